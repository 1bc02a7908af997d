// Package rigid defines the rigid body state the stepper reads and writes.
//
// Bodies are owned by the caller. The stepper never creates or destroys them;
// it writes [Body.Tag] with a dense index for the duration of a step, adds
// gravity and gyroscopic terms to the accumulators, updates velocity and pose,
// and clears the accumulators at the end of the step.
package rigid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Body struct {
	Name string

	Pos mgl64.Vec3
	Rot mgl64.Quat

	LinVel mgl64.Vec3
	AngVel mgl64.Vec3

	// InvMass is zero for bodies that cannot be moved by forces.
	InvMass float64
	// Inertia and InvInertia are expressed in the body frame.
	Inertia    mgl64.Mat3
	InvInertia mgl64.Mat3

	Force  mgl64.Vec3
	Torque mgl64.Vec3

	// Tag is the dense body index assigned by the stepper.
	Tag int

	Gyroscopic bool
	NoGravity  bool
}

func newBody(pos mgl64.Vec3) *Body {
	return &Body{
		Pos: pos,
		Rot: mgl64.QuatIdent(),
		Tag: -1,
	}
}

// NewSphere returns a solid sphere of the given mass and radius.
func NewSphere(mass, radius float64, pos mgl64.Vec3) *Body {
	b := newBody(pos)
	i := 0.4 * mass * radius * radius
	b.SetMass(mass, mgl64.Diag3(mgl64.Vec3{i, i, i}))
	return b
}

// NewBox returns a solid box with full side lengths lx, ly, lz.
func NewBox(mass, lx, ly, lz float64, pos mgl64.Vec3) *Body {
	b := newBody(pos)
	k := mass / 12
	b.SetMass(mass, mgl64.Diag3(mgl64.Vec3{
		k * (ly*ly + lz*lz),
		k * (lx*lx + lz*lz),
		k * (lx*lx + ly*ly),
	}))
	return b
}

// NewStatic returns an immovable body.
func NewStatic(pos mgl64.Vec3) *Body {
	b := newBody(pos)
	b.NoGravity = true
	return b
}

// SetMass sets mass and body-frame inertia. A non-positive or infinite mass
// makes the body immovable.
func (b *Body) SetMass(mass float64, inertia mgl64.Mat3) {
	if mass <= 0 || math.IsInf(mass, 1) {
		b.InvMass = 0
		b.Inertia = mgl64.Mat3{}
		b.InvInertia = mgl64.Mat3{}
		return
	}
	b.InvMass = 1 / mass
	b.Inertia = inertia
	b.InvInertia = inertia.Inv()
}

func (b *Body) Mass() float64 {
	if b.InvMass == 0 {
		return math.Inf(1)
	}
	return 1 / b.InvMass
}

func (b *Body) IsStatic() bool { return b.InvMass == 0 }

func (b *Body) Rotation() mgl64.Mat3 {
	return b.Rot.Mat4().Mat3()
}

// WorldInertia returns R * I * R^T.
func (b *Body) WorldInertia() mgl64.Mat3 {
	r := b.Rotation()
	return r.Mul3(b.Inertia).Mul3(r.Transpose())
}

// WorldInverseInertia returns R * I^-1 * R^T.
func (b *Body) WorldInverseInertia() mgl64.Mat3 {
	r := b.Rotation()
	return r.Mul3(b.InvInertia).Mul3(r.Transpose())
}

// WorldPoint maps a body-frame point to world coordinates.
func (b *Body) WorldPoint(local mgl64.Vec3) mgl64.Vec3 {
	return b.Pos.Add(b.Rot.Rotate(local))
}

// LocalPoint maps a world point into the body frame.
func (b *Body) LocalPoint(world mgl64.Vec3) mgl64.Vec3 {
	return b.Rot.Inverse().Rotate(world.Sub(b.Pos))
}

// WorldVector rotates a body-frame direction into world coordinates.
func (b *Body) WorldVector(local mgl64.Vec3) mgl64.Vec3 {
	return b.Rot.Rotate(local)
}

func (b *Body) LocalVector(world mgl64.Vec3) mgl64.Vec3 {
	return b.Rot.Inverse().Rotate(world)
}

// PointVelocity returns the world velocity of a world point attached to the body.
func (b *Body) PointVelocity(p mgl64.Vec3) mgl64.Vec3 {
	return b.LinVel.Add(b.AngVel.Cross(p.Sub(b.Pos)))
}

func (b *Body) AddForce(f mgl64.Vec3) {
	b.Force = b.Force.Add(f)
}

func (b *Body) AddTorque(t mgl64.Vec3) {
	b.Torque = b.Torque.Add(t)
}

// AddForceAt applies f at world point p.
func (b *Body) AddForceAt(f, p mgl64.Vec3) {
	b.Force = b.Force.Add(f)
	b.Torque = b.Torque.Add(p.Sub(b.Pos).Cross(f))
}

func (b *Body) ClearAccumulators() {
	b.Force = mgl64.Vec3{}
	b.Torque = mgl64.Vec3{}
}

// Advance moves the pose forward by h using the current velocities.
func (b *Body) Advance(h float64) {
	if b.IsStatic() {
		return
	}
	b.Pos = b.Pos.Add(b.LinVel.Mul(h))

	w := mgl64.Quat{V: b.AngVel, W: 0}
	dq := w.Mul(b.Rot).Scale(0.5 * h)
	b.Rot = b.Rot.Add(dq).Normalize()
}

// KineticEnergy returns translational plus rotational kinetic energy.
func (b *Body) KineticEnergy() float64 {
	if b.IsStatic() {
		return 0
	}
	m := 1 / b.InvMass
	lin := 0.5 * m * b.LinVel.Dot(b.LinVel)
	rot := 0.5 * b.AngVel.Dot(b.WorldInertia().Mul3x1(b.AngVel))
	return lin + rot
}

func (b *Body) Momentum() mgl64.Vec3 {
	if b.IsStatic() {
		return mgl64.Vec3{}
	}
	return b.LinVel.Mul(1 / b.InvMass)
}

// IsValid reports whether pose and velocity are finite.
func (b *Body) IsValid() bool {
	for _, v := range [...]float64{
		b.Pos[0], b.Pos[1], b.Pos[2],
		b.LinVel[0], b.LinVel[1], b.LinVel[2],
		b.AngVel[0], b.AngVel[1], b.AngVel[2],
		b.Rot.W, b.Rot.V[0], b.Rot.V[1], b.Rot.V[2],
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
