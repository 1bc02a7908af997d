package joint

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/quickstep/internal/rigid"
)

// Hinge allows rotation about a single axis. With MotorFMax > 0 an extra
// bounded row drives the relative angular velocity about the axis toward
// MotorVel.
type Hinge struct {
	Base
	Anchor1, Anchor2 mgl64.Vec3
	Axis1, Axis2     mgl64.Vec3

	MotorVel  float64
	MotorFMax float64
}

func NewHinge(b1, b2 *rigid.Body, anchor, axis mgl64.Vec3) *Hinge {
	axis = axis.Normalize()
	return &Hinge{
		Base:    Base{B1: b1, B2: b2},
		Anchor1: b1.LocalPoint(anchor),
		Anchor2: anchorFrame(b2, anchor),
		Axis1:   b1.LocalVector(axis),
		Axis2:   axisFrame(b2, axis),
	}
}

func (j *Hinge) Info1() Info1 {
	if j.MotorFMax > 0 {
		return Info1{M: 6, Nub: 5}
	}
	return Info1{M: 5, Nub: 5}
}

func (j *Hinge) Info2(info *Info2) {
	pointRows(info, &j.Base, j.B1.WorldPoint(j.Anchor1), anchorWorld(j.B2, j.Anchor2))

	ax1 := j.B1.WorldVector(j.Axis1)
	ax2 := axisWorld(j.B2, j.Axis2)
	p, q := PlaneSpace(ax1)

	info.SetAngular1(3, p)
	info.SetAngular1(4, q)
	if j.B2 != nil {
		info.SetAngular2(3, p.Mul(-1))
		info.SetAngular2(4, q.Mul(-1))
	}

	k := info.Fps * info.ERP
	b := ax1.Cross(ax2)
	info.C[3] = k * b.Dot(p)
	info.C[4] = k * b.Dot(q)

	if j.MotorFMax > 0 {
		info.SetAngular1(5, ax1)
		if j.B2 != nil {
			info.SetAngular2(5, ax1.Mul(-1))
		}
		info.C[5] = j.MotorVel
		info.Lo[5] = -j.MotorFMax
		info.Hi[5] = j.MotorFMax
	}
}

// Rate returns the relative angular velocity about the hinge axis.
func (j *Hinge) Rate() float64 {
	ax1 := j.B1.WorldVector(j.Axis1)
	w := j.B1.AngVel
	if j.B2 != nil {
		w = w.Sub(j.B2.AngVel)
	}
	return w.Dot(ax1)
}
