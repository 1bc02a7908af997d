package quickstep

import (
	"math"

	"github.com/san-kum/quickstep/internal/joint"
	"github.com/san-kum/quickstep/internal/rigid"
)

// gatherJoints queries Info1 on every joint and keeps the ones that produce
// rows. It returns the total row count and the number of rows needing a
// feedback copy of their Jacobian.
func (s *Stepper) gatherJoints(bodies []*rigid.Body, joints []joint.Source) (m, mfb int) {
	s.active = s.active[:0]
	for _, j := range joints {
		info := j.Info1()
		if info.M < 0 || info.M > joint.MaxRows {
			panic(contractf("%T reports %d rows, want 0..%d", j, info.M, joint.MaxRows))
		}
		if info.Nub < 0 || info.Nub > info.M {
			panic(contractf("%T reports nub %d for %d rows", j, info.Nub, info.M))
		}
		if info.M == 0 {
			continue
		}
		b1, b2 := j.Bodies()
		if b1 == nil {
			panic(contractf("%T has no first body", j))
		}
		aj := activeJoint{
			src:   j,
			ofs:   m,
			m:     info.M,
			nub:   info.Nub,
			b1:    bodyIndex(bodies, b1),
			b2:    -1,
			fb:    j.Feedback(),
			fbOfs: -1,
		}
		if b2 != nil {
			aj.b2 = bodyIndex(bodies, b2)
		}
		if aj.fb != nil {
			aj.fbOfs = mfb
			mfb += info.M
		}
		m += info.M
		s.active = append(s.active, aj)
	}
	return m, mfb
}

func bodyIndex(bodies []*rigid.Body, b *rigid.Body) int {
	if b.Tag < 0 || b.Tag >= len(bodies) || bodies[b.Tag] != b {
		panic(contractf("body %q is not part of this step", b.Name))
	}
	return b.Tag
}

// collect fills every row through Info2 and resolves joint-local friction
// indices to global rows.
func (ctx *solverContext) collect(env Env, joints []activeJoint) {
	inf := math.Inf(1)
	for i := 0; i < ctx.m; i++ {
		ctx.cfm[i] = env.CFM
		ctx.lo[i] = -inf
		ctx.hi[i] = inf
		ctx.cvmax[i] = inf
		ctx.findex[i] = -1
	}

	info := joint.Info2{
		Fps:              1 / ctx.h,
		ERP:              env.ERP,
		MaxCorrectingVel: env.MaxCorrectingVel,
	}
	for _, aj := range joints {
		lo, hi := aj.ofs, aj.ofs+aj.m
		info.J = ctx.J[lo*rowStride : hi*rowStride]
		info.C = ctx.c[lo:hi]
		info.CFM = ctx.cfm[lo:hi]
		info.Lo = ctx.lo[lo:hi]
		info.Hi = ctx.hi[lo:hi]
		info.CVMax = ctx.cvmax[lo:hi]
		info.Findex = ctx.findex[lo:hi]
		aj.src.Info2(&info)

		for r := lo; r < hi; r++ {
			if f := ctx.findex[r]; f >= 0 {
				if f >= aj.m || f == r-lo {
					panic(contractf("%T row %d couples to local row %d", aj.src, r-lo, f))
				}
				ctx.findex[r] = f + aj.ofs
			} else {
				ctx.findex[r] = -1
			}
			if ctx.lo[r] > ctx.hi[r] {
				panic(contractf("%T row %d has lo %g > hi %g", aj.src, r-lo, ctx.lo[r], ctx.hi[r]))
			}
			ctx.jb[2*r] = aj.b1
			ctx.jb[2*r+1] = aj.b2
		}
		if aj.fbOfs >= 0 {
			copy(ctx.Jcopy[aj.fbOfs*rowStride:], ctx.J[lo*rowStride:hi*rowStride])
		}
	}
}
