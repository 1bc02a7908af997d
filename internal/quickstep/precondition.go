package quickstep

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/quickstep/internal/arena"
)

// buildRHS computes the three right-hand sides:
//
//	rhs       = clip(c)/h - J (v/h + M^-1 f)
//	rhsErp    =      c/h  - J (v/h + M^-1 f)
//	rhsPrecon = clip(c)/h - J (M v/h + f)
func (ctx *solverContext) buildRHS(a *arena.Arena) {
	mark := a.Begin()
	defer a.End(mark)

	inv := 1 / ctx.h
	tmp := a.Float64s(bodyStride * ctx.nb)
	tmpP := a.Float64s(bodyStride * ctx.nb)

	for i, b := range ctx.bodies {
		invI := mat3At(ctx.invI, i)
		inertia := mat3At(ctx.inertia, i)

		t := bodyRange(tmp, i)
		put3(t[0:3], b.LinVel.Mul(inv).Add(b.Force.Mul(b.InvMass)))
		put3(t[3:6], b.AngVel.Mul(inv).Add(invI.Mul3x1(b.Torque)))

		lin := b.Force
		if !b.IsStatic() {
			lin = lin.Add(b.LinVel.Mul(b.Mass() * inv))
		}
		p := bodyRange(tmpP, i)
		put3(p[0:3], lin)
		put3(p[3:6], inertia.Mul3x1(b.AngVel).Mul(inv).Add(b.Torque))
	}

	for i := 0; i < ctx.m; i++ {
		row := rowRange(ctx.J, i)
		b1, b2 := ctx.jb[2*i], ctx.jb[2*i+1]
		jt := dot6(row[:6], bodyRange(tmp, b1))
		jp := dot6(row[:6], bodyRange(tmpP, b1))
		if b2 >= 0 {
			jt += dot6(row[6:], bodyRange(tmp, b2))
			jp += dot6(row[6:], bodyRange(tmpP, b2))
		}
		c := ctx.c[i]
		clipped := clipBias(c, ctx.cvmax[i])
		ctx.rhs[i] = clipped*inv - jt
		ctx.rhsErp[i] = c*inv - jt
		ctx.rhsPrecon[i] = clipped*inv - jp
	}
}

// precondition computes iMJ and both diagonal scalings, then rescales the
// Jacobians and right-hand sides so every row has a unit diagonal (times w).
//
//	Ad       = w / (J M^-1 J^T + cfm)
//	AdPrecon = w / (J J^T + cfm)
func (ctx *solverContext) precondition(w float64) {
	for i := 0; i < ctx.m; i++ {
		b1, b2 := ctx.jb[2*i], ctx.jb[2*i+1]
		row := rowRange(ctx.J, i)
		imj := rowRange(ctx.iMJ, i)

		ctx.fillIMJ(imj[:6], row[:6], b1)
		sum := dot6(row[:6], imj[:6])
		sumP := dot6(row[:6], row[:6])
		if b2 >= 0 {
			ctx.fillIMJ(imj[6:], row[6:], b2)
			sum += dot6(row[6:], imj[6:])
			sumP += dot6(row[6:], row[6:])
		} else {
			clear(row[6:])
		}

		cfm := ctx.cfm[i]
		ctx.Ad[i] = scale(w, sum+cfm)
		ctx.AdPrecon[i] = scale(w, sumP+cfm)
	}

	copy(ctx.JOrig, ctx.J)
	for i := 0; i < ctx.m; i++ {
		ad, adp := ctx.Ad[i], ctx.AdPrecon[i]
		orig := rowRange(ctx.JOrig, i)
		row := rowRange(ctx.J, i)
		pre := rowRange(ctx.JPrecon, i)
		for k := range row {
			pre[k] = orig[k] * adp
			row[k] *= ad
		}
		ctx.rhs[i] *= ad
		ctx.rhsErp[i] *= ad
		ctx.rhsPrecon[i] *= adp
		ctx.Adcfm[i] = ad * ctx.cfm[i]
		ctx.AdcfmPrecon[i] = adp * ctx.cfm[i]
	}
}

// fillIMJ writes M^-1 J^T for one body half of a row.
func (ctx *solverContext) fillIMJ(dst, j []float64, b int) {
	invI := mat3At(ctx.invI, b)
	put3(dst[0:3], vec3(j[0:3]).Mul(ctx.bodies[b].InvMass))
	put3(dst[3:6], invI.Mul3x1(mgl64.Vec3{j[3], j[4], j[5]}))
}

// scale returns w/d, or zero for a row that touches no movable body and has
// no compliance.
func scale(w, d float64) float64 {
	if d == 0 {
		return 0
	}
	return w / d
}
