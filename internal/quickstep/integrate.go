package quickstep

// integrate applies external and full-bias constraint accelerations, moves
// the bodies, and then, in split mode, swaps the full-bias constraint
// velocity for the clipped one. Accumulators are cleared for every body.
func (ctx *solverContext) integrate(mode Penetration) {
	h := ctx.h
	for i, b := range ctx.bodies {
		if !b.IsStatic() {
			invI := mat3At(ctx.invI, i)
			ae := bodyRange(ctx.caccelErp, i)

			lin := b.Force.Mul(b.InvMass).Add(vec3(ae[0:3]))
			ang := invI.Mul3x1(b.Torque).Add(vec3(ae[3:6]))
			b.LinVel = b.LinVel.Add(lin.Mul(h))
			b.AngVel = b.AngVel.Add(ang.Mul(h))

			b.Advance(h)

			if mode == PenetrationSplit {
				a := bodyRange(ctx.caccel, i)
				b.LinVel = b.LinVel.Add(vec3(a[0:3]).Sub(vec3(ae[0:3])).Mul(h))
				b.AngVel = b.AngVel.Add(vec3(a[3:6]).Sub(vec3(ae[3:6])).Mul(h))
			}
		}
		b.ClearAccumulators()
	}
}
