package quickstep

import "github.com/san-kum/quickstep/internal/joint"

// feedback writes J^T lambda per body into every joint that asked for it,
// using the unscaled Jacobian copied at collection time.
func (ctx *solverContext) feedback(joints []activeJoint) {
	for _, aj := range joints {
		if aj.fb == nil {
			continue
		}
		var out joint.Feedback
		for r := 0; r < aj.m; r++ {
			row := rowRange(ctx.Jcopy, aj.fbOfs+r)
			l := ctx.lambda[aj.ofs+r]
			out.F1 = out.F1.Add(vec3(row[0:3]).Mul(l))
			out.T1 = out.T1.Add(vec3(row[3:6]).Mul(l))
			if aj.b2 >= 0 {
				out.F2 = out.F2.Add(vec3(row[6:9]).Mul(l))
				out.T2 = out.T2.Add(vec3(row[9:12]).Mul(l))
			}
		}
		*aj.fb = out
	}
}
