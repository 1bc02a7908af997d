package joint

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/quickstep/internal/rigid"
)

// Contact is a single non-penetration point with an optional Coulomb friction
// pyramid. Normal points from the second body (or the world) into the first.
//
// Friction rows are coupled to the normal row through findex, so their bound
// is Mu times the current normal multiplier. Mu = +Inf gives unbounded
// friction, Mu = 0 drops the friction rows.
type Contact struct {
	Base
	Point  mgl64.Vec3
	Normal mgl64.Vec3
	Depth  float64

	Mu      float64
	SoftCFM float64

	// Bounce is the restitution coefficient, applied when the approach speed
	// exceeds BounceVel.
	Bounce    float64
	BounceVel float64
}

func NewContact(b1, b2 *rigid.Body, point, normal mgl64.Vec3, depth, mu float64) *Contact {
	return &Contact{
		Base:   Base{B1: b1, B2: b2},
		Point:  point,
		Normal: normal.Normalize(),
		Depth:  depth,
		Mu:     mu,
	}
}

func (j *Contact) Info1() Info1 {
	if j.Mu == 0 {
		return Info1{M: 1}
	}
	return Info1{M: 3}
}

func (j *Contact) Info2(info *Info2) {
	n := j.Normal
	r1 := j.Point.Sub(j.B1.Pos)
	var r2 mgl64.Vec3
	if j.B2 != nil {
		r2 = j.Point.Sub(j.B2.Pos)
	}

	j.setRow(info, 0, n, r1, r2)

	info.C[0] = info.Fps * info.ERP * j.Depth
	info.CVMax[0] = info.MaxCorrectingVel
	if j.Bounce > 0 {
		vn := j.normalVelocity()
		if vn < -j.BounceVel {
			out := -j.Bounce * vn
			if out > info.C[0] {
				info.C[0] = out
			}
			info.CVMax[0] = math.Max(info.CVMax[0], out)
		}
	}
	info.Lo[0] = 0
	info.Hi[0] = math.Inf(1)
	if j.SoftCFM > 0 {
		info.CFM[0] = j.SoftCFM
	}

	if j.Mu == 0 {
		return
	}
	t1, t2 := PlaneSpace(n)
	for r, t := range [2]mgl64.Vec3{t1, t2} {
		row := r + 1
		j.setRow(info, row, t, r1, r2)
		if math.IsInf(j.Mu, 1) {
			continue
		}
		info.Lo[row] = -j.Mu
		info.Hi[row] = j.Mu
		info.Findex[row] = 0
	}
}

func (j *Contact) setRow(info *Info2, r int, d, r1, r2 mgl64.Vec3) {
	info.SetLinear1(r, d)
	info.SetAngular1(r, r1.Cross(d))
	if j.B2 != nil {
		info.SetLinear2(r, d.Mul(-1))
		info.SetAngular2(r, r2.Cross(d).Mul(-1))
	}
}

func (j *Contact) normalVelocity() float64 {
	v := j.B1.PointVelocity(j.Point)
	if j.B2 != nil {
		v = v.Sub(j.B2.PointVelocity(j.Point))
	}
	return v.Dot(j.Normal)
}
