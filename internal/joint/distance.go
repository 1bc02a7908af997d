package joint

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/quickstep/internal/rigid"
)

// Distance keeps two anchor points at a fixed separation.
type Distance struct {
	Base
	Anchor1, Anchor2 mgl64.Vec3
	Length           float64
}

// NewDistance uses the current separation of the world anchors p1 and p2 as
// the rest length.
func NewDistance(b1, b2 *rigid.Body, p1, p2 mgl64.Vec3) *Distance {
	return &Distance{
		Base:    Base{B1: b1, B2: b2},
		Anchor1: b1.LocalPoint(p1),
		Anchor2: anchorFrame(b2, p2),
		Length:  p1.Sub(p2).Len(),
	}
}

func (j *Distance) Info1() Info1 { return Info1{M: 1, Nub: 1} }

func (j *Distance) Info2(info *Info2) {
	x1 := j.B1.WorldPoint(j.Anchor1)
	x2 := anchorWorld(j.B2, j.Anchor2)
	d := x1.Sub(x2)
	l := d.Len()

	n := mgl64.Vec3{1, 0, 0}
	if l > 1e-12 {
		n = d.Mul(1 / l)
	}

	r1 := x1.Sub(j.B1.Pos)
	info.SetLinear1(0, n)
	info.SetAngular1(0, r1.Cross(n))
	if j.B2 != nil {
		r2 := x2.Sub(j.B2.Pos)
		info.SetLinear2(0, n.Mul(-1))
		info.SetAngular2(0, r2.Cross(n).Mul(-1))
	}
	info.C[0] = info.Fps * info.ERP * (j.Length - l)
}

// Separation returns the current anchor distance.
func (j *Distance) Separation() float64 {
	return j.B1.WorldPoint(j.Anchor1).Sub(anchorWorld(j.B2, j.Anchor2)).Len()
}
