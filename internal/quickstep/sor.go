package quickstep

import (
	"math"
	"math/rand"
)

// RowVisit describes one row update. Lo and Hi are the effective bounds the
// new multiplier was clamped to; for friction rows Coupled is the multiplier
// of the row they are coupled to, read at the time of the visit.
type RowVisit struct {
	Row     int
	Findex  int
	Lambda  float64
	Lo      float64
	Hi      float64
	Coupled float64

	Preconditioned bool
}

// RowHook observes row updates. It runs on solver goroutines; with more
// than one worker it must be safe for concurrent use.
type RowHook func(RowVisit)

type phase int

const (
	phasePrecon phase = iota
	phaseUncond
)

type chunkState struct {
	span
	rng *rand.Rand

	iterations int
	converged  bool

	// sum of squared multiplier changes and the number of terms, for the
	// last completed sweep
	sumSq float64
	count int
}

func (cs *chunkState) rms() float64 {
	if cs.count == 0 {
		return 0
	}
	return math.Sqrt(cs.sumSq / float64(cs.count))
}

// sweep runs up to iters sweeps of one phase over a chunk. base is the
// global iteration number of the first sweep.
func (ctx *solverContext) sweep(cs *chunkState, ph phase, base, iters int, p *Parameters, hook RowHook) {
	seg := ctx.order[cs.start:cs.end]
	terms := len(seg)
	if ph == phaseUncond {
		terms *= 2
	}
	for it := 0; it < iters; it++ {
		ctx.reorder(seg, base+it, cs.rng, p)

		var sum float64
		for _, i := range seg {
			if ph == phasePrecon {
				sum += ctx.updatePrecon(i, hook)
			} else {
				sum += ctx.update(i, hook)
			}
		}
		cs.iterations++
		cs.sumSq, cs.count = sum, terms
		if p.Tolerance > 0 && cs.rms() < p.Tolerance {
			cs.converged = true
			return
		}
	}
}

// update relaxes row i in both the clipped and the full-bias system.
func (ctx *solverContext) update(i int, hook RowHook) float64 {
	b1, b2 := ctx.jb[2*i], ctx.jb[2*i+1]
	row := rowRange(ctx.J, i)
	a1 := bodyRange(ctx.caccel, b1)
	e1 := bodyRange(ctx.caccelErp, b1)

	delta := ctx.rhs[i] - ctx.lambda[i]*ctx.Adcfm[i] - dot6(row[:6], a1)
	deltaErp := ctx.rhsErp[i] - ctx.lambdaErp[i]*ctx.Adcfm[i] - dot6(row[:6], e1)
	var a2, e2 []float64
	if b2 >= 0 {
		a2 = bodyRange(ctx.caccel, b2)
		e2 = bodyRange(ctx.caccelErp, b2)
		delta -= dot6(row[6:], a2)
		deltaErp -= dot6(row[6:], e2)
	}

	lo, hi := ctx.lo[i], ctx.hi[i]
	loErp, hiErp := lo, hi
	var coupled float64
	f := ctx.findex[i]
	if f >= 0 {
		coupled = ctx.lambda[f]
		hi = frictionBound(ctx.hi[i], coupled)
		lo = -hi
		hiErp = frictionBound(ctx.hi[i], ctx.lambdaErp[f])
		loErp = -hiErp
	}

	old := ctx.lambda[i]
	nl := clamp(old+delta, lo, hi)
	delta = nl - old
	ctx.lambda[i] = nl

	oldErp := ctx.lambdaErp[i]
	nlErp := clamp(oldErp+deltaErp, loErp, hiErp)
	deltaErp = nlErp - oldErp
	ctx.lambdaErp[i] = nlErp

	imj := rowRange(ctx.iMJ, i)
	addScaled6(a1, imj[:6], delta)
	addScaled6(e1, imj[:6], deltaErp)
	if b2 >= 0 {
		addScaled6(a2, imj[6:], delta)
		addScaled6(e2, imj[6:], deltaErp)
	}

	ctx.rowErr[i] = math.Abs(delta)
	if hook != nil {
		hook(RowVisit{Row: i, Findex: f, Lambda: nl, Lo: lo, Hi: hi, Coupled: coupled})
	}
	return delta*delta + deltaErp*deltaErp
}

// updatePrecon relaxes row i of the preconditioned system, accumulating
// constraint force instead of acceleration.
func (ctx *solverContext) updatePrecon(i int, hook RowHook) float64 {
	b1, b2 := ctx.jb[2*i], ctx.jb[2*i+1]
	row := rowRange(ctx.JPrecon, i)
	f1 := bodyRange(ctx.cforce, b1)

	delta := ctx.rhsPrecon[i] - ctx.lambda[i]*ctx.AdcfmPrecon[i] - dot6(row[:6], f1)
	var f2 []float64
	if b2 >= 0 {
		f2 = bodyRange(ctx.cforce, b2)
		delta -= dot6(row[6:], f2)
	}

	lo, hi := ctx.lo[i], ctx.hi[i]
	var coupled float64
	f := ctx.findex[i]
	if f >= 0 {
		coupled = ctx.lambda[f]
		hi = frictionBound(ctx.hi[i], coupled)
		lo = -hi
	}

	old := ctx.lambda[i]
	nl := clamp(old+delta, lo, hi)
	delta = nl - old
	ctx.lambda[i] = nl

	orig := rowRange(ctx.JOrig, i)
	addScaled6(f1, orig[:6], delta)
	if b2 >= 0 {
		addScaled6(f2, orig[6:], delta)
	}

	ctx.rowErr[i] = math.Abs(delta)
	if hook != nil {
		hook(RowVisit{Row: i, Findex: f, Lambda: nl, Lo: lo, Hi: hi, Coupled: coupled, Preconditioned: true})
	}
	return delta * delta
}

// forceToAccel ends the preconditioned phase: both acceleration
// accumulators become M^-1 cforce and the full-bias multipliers restart from
// the preconditioned solution.
func (ctx *solverContext) forceToAccel() {
	for b := 0; b < ctx.nb; b++ {
		dst := bodyRange(ctx.caccel, b)
		ctx.accelFromForce(dst, bodyRange(ctx.cforce, b), b)
		copy(bodyRange(ctx.caccelErp, b), dst)
	}
	copy(ctx.lambdaErp, ctx.lambda)
}

// applyWarm seeds the accumulators from the multipliers already in lambda.
func (ctx *solverContext) applyWarm(precon bool) {
	for i := 0; i < ctx.m; i++ {
		l := ctx.lambda[i]
		if l == 0 {
			continue
		}
		b1, b2 := ctx.jb[2*i], ctx.jb[2*i+1]
		if precon {
			orig := rowRange(ctx.JOrig, i)
			addScaled6(bodyRange(ctx.cforce, b1), orig[:6], l)
			if b2 >= 0 {
				addScaled6(bodyRange(ctx.cforce, b2), orig[6:], l)
			}
			continue
		}
		imj := rowRange(ctx.iMJ, i)
		addScaled6(bodyRange(ctx.caccel, b1), imj[:6], l)
		addScaled6(bodyRange(ctx.caccelErp, b1), imj[:6], l)
		if b2 >= 0 {
			addScaled6(bodyRange(ctx.caccel, b2), imj[6:], l)
			addScaled6(bodyRange(ctx.caccelErp, b2), imj[6:], l)
		}
	}
	copy(ctx.lambdaErp, ctx.lambda)
}

// project re-clamps coupled rows against the final multipliers of the rows
// they depend on, in both systems.
func (ctx *solverContext) project() {
	for _, i := range ctx.order {
		f := ctx.findex[i]
		if f < 0 {
			continue
		}
		b1, b2 := ctx.jb[2*i], ctx.jb[2*i+1]
		imj := rowRange(ctx.iMJ, i)

		hi := frictionBound(ctx.hi[i], ctx.lambda[f])
		if nl := clamp(ctx.lambda[i], -hi, hi); nl != ctx.lambda[i] {
			d := nl - ctx.lambda[i]
			ctx.lambda[i] = nl
			addScaled6(bodyRange(ctx.caccel, b1), imj[:6], d)
			if b2 >= 0 {
				addScaled6(bodyRange(ctx.caccel, b2), imj[6:], d)
			}
		}

		hiErp := frictionBound(ctx.hi[i], ctx.lambdaErp[f])
		if nl := clamp(ctx.lambdaErp[i], -hiErp, hiErp); nl != ctx.lambdaErp[i] {
			d := nl - ctx.lambdaErp[i]
			ctx.lambdaErp[i] = nl
			addScaled6(bodyRange(ctx.caccelErp, b1), imj[:6], d)
			if b2 >= 0 {
				addScaled6(bodyRange(ctx.caccelErp, b2), imj[6:], d)
			}
		}
	}
}
