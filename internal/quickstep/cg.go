package quickstep

import (
	"math"

	"github.com/san-kum/quickstep/internal/arena"
)

func cgScratch(m, nb int) int { return 4*m + bodyStride*nb }

// cgSystem names the multiplier, right-hand side and accumulator of one of
// the two systems.
type cgSystem struct {
	lambda []float64
	rhs    []float64
	accel  []float64
}

type cgResult struct {
	iterations int
	residual   float64
	converged  bool
}

// solveCG runs Jacobi-preconditioned conjugate gradients on
// (J M^-1 J^T + cfm) lambda = b for both systems, ignoring bounds, then
// projects onto the bounds and rebuilds the accumulators.
func (ctx *solverContext) solveCG(a *arena.Arena, p *Parameters, hook RowHook) cgResult {
	mark := a.Begin()
	defer a.End(mark)

	m := ctx.m
	r := a.Float64s(m)
	z := a.Float64s(m)
	d := a.Float64s(m)
	q := a.Float64s(m)
	tmp := a.Float64s(bodyStride * ctx.nb)

	copy(ctx.lambdaErp, ctx.lambda)

	var res cgResult
	res.converged = true
	for _, sys := range []cgSystem{
		{ctx.lambda, ctx.rhs, ctx.caccel},
		{ctx.lambdaErp, ctx.rhsErp, ctx.caccelErp},
	} {
		one := ctx.cg(sys, p, r, z, d, q, tmp)
		res.iterations = max(res.iterations, one.iterations)
		res.residual = math.Hypot(res.residual, one.residual)
		res.converged = res.converged && one.converged
		ctx.clampSystem(sys, hook)
	}
	res.residual /= math.Sqrt2
	return res
}

func (ctx *solverContext) cg(sys cgSystem, p *Parameters, r, z, d, q, tmp []float64) cgResult {
	m := ctx.m
	x := sys.lambda

	// b_i = rhs_i / Ad_i undoes the row scaling.
	ctx.applyA(x, q, tmp)
	for i := 0; i < m; i++ {
		var b float64
		if ctx.Ad[i] != 0 {
			b = sys.rhs[i] / ctx.Ad[i]
		}
		r[i] = b - q[i]
	}
	ctx.jacobi(r, z, p.W)
	copy(d, z)
	rz := dotN(r, z)

	var out cgResult
	for it := 0; it < p.Iterations; it++ {
		out.residual = math.Sqrt(dotN(r, r) / float64(m))
		if p.Tolerance > 0 && out.residual < p.Tolerance {
			out.converged = true
			break
		}
		ctx.applyA(d, q, tmp)
		dq := dotN(d, q)
		if dq <= 0 {
			break
		}
		alpha := rz / dq
		for i := 0; i < m; i++ {
			x[i] += alpha * d[i]
			r[i] -= alpha * q[i]
		}
		out.iterations++

		ctx.jacobi(r, z, p.W)
		rzNext := dotN(r, z)
		beta := rzNext / rz
		rz = rzNext
		for i := 0; i < m; i++ {
			d[i] = z[i] + beta*d[i]
		}
	}
	if !out.converged {
		out.residual = math.Sqrt(dotN(r, r) / float64(m))
		out.converged = p.Tolerance > 0 && out.residual < p.Tolerance
	}
	return out
}

// applyA computes out = (J M^-1 J^T + cfm) x with the unscaled Jacobian.
func (ctx *solverContext) applyA(x, out, tmp []float64) {
	clear(tmp)
	for i := 0; i < ctx.m; i++ {
		if x[i] == 0 {
			continue
		}
		imj := rowRange(ctx.iMJ, i)
		addScaled6(bodyRange(tmp, ctx.jb[2*i]), imj[:6], x[i])
		if b2 := ctx.jb[2*i+1]; b2 >= 0 {
			addScaled6(bodyRange(tmp, b2), imj[6:], x[i])
		}
	}
	for i := 0; i < ctx.m; i++ {
		orig := rowRange(ctx.JOrig, i)
		v := dot6(orig[:6], bodyRange(tmp, ctx.jb[2*i]))
		if b2 := ctx.jb[2*i+1]; b2 >= 0 {
			v += dot6(orig[6:], bodyRange(tmp, b2))
		}
		out[i] = v + ctx.cfm[i]*x[i]
	}
}

// jacobi applies the inverse diagonal, which is Ad/w.
func (ctx *solverContext) jacobi(r, z []float64, w float64) {
	for i := range r {
		z[i] = r[i] * ctx.Ad[i] / w
	}
}

// clampSystem projects the unbounded solution onto the row bounds in solve
// order, then rebuilds the accumulator from scratch.
func (ctx *solverContext) clampSystem(sys cgSystem, hook RowHook) {
	for _, i := range ctx.order {
		lo, hi := ctx.lo[i], ctx.hi[i]
		var coupled float64
		f := ctx.findex[i]
		if f >= 0 {
			coupled = sys.lambda[f]
			hi = frictionBound(ctx.hi[i], coupled)
			lo = -hi
		}
		sys.lambda[i] = clamp(sys.lambda[i], lo, hi)
		if hook != nil && &sys.lambda[0] == &ctx.lambda[0] {
			hook(RowVisit{Row: i, Findex: f, Lambda: sys.lambda[i], Lo: lo, Hi: hi, Coupled: coupled})
		}
	}
	clear(sys.accel)
	for i := 0; i < ctx.m; i++ {
		l := sys.lambda[i]
		if l == 0 {
			continue
		}
		imj := rowRange(ctx.iMJ, i)
		addScaled6(bodyRange(sys.accel, ctx.jb[2*i]), imj[:6], l)
		if b2 := ctx.jb[2*i+1]; b2 >= 0 {
			addScaled6(bodyRange(sys.accel, b2), imj[6:], l)
		}
	}
}

func dotN(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
