package quickstep

import "github.com/go-gl/mathgl/mgl64"

// prepareBodies caches world-frame inertia tensors and adds gravity and the
// gyroscopic term to the force accumulators.
func (ctx *solverContext) prepareBodies(gravity mgl64.Vec3) {
	for i, b := range ctx.bodies {
		invI := b.WorldInverseInertia()
		inertia := b.WorldInertia()
		copy(ctx.invI[i*matStride:], invI[:])
		copy(ctx.inertia[i*matStride:], inertia[:])

		if b.IsStatic() {
			continue
		}
		if b.Gyroscopic {
			l := inertia.Mul3x1(b.AngVel)
			b.Torque = b.Torque.Sub(b.AngVel.Cross(l))
		}
		if !b.NoGravity {
			b.Force = b.Force.Add(gravity.Mul(b.Mass()))
		}
	}
}

// accelFromForce writes M^-1 f for body b into dst.
func (ctx *solverContext) accelFromForce(dst, f []float64, b int) {
	invI := mat3At(ctx.invI, b)
	put3(dst[0:3], vec3(f[0:3]).Mul(ctx.bodies[b].InvMass))
	put3(dst[3:6], invI.Mul3x1(vec3(f[3:6])))
}
