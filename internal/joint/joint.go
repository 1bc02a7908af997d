// Package joint defines the capability interface through which constraints
// describe themselves to the stepper, plus a handful of reference joints.
//
// A [Source] reports its row count through Info1 and fills Jacobian rows,
// bias, bounds, CFM and friction coupling through Info2. The stepper does not
// know about concrete joint types; it only consumes the flattened rows.
//
// Row layout is fixed: each row is [RowStride] scalars, laid out as
//
//	[0:3]  linear part for the first body
//	[3:6]  angular part for the first body
//	[6:9]  linear part for the second body
//	[9:12] angular part for the second body
package joint

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/quickstep/internal/rigid"
)

const (
	RowStride = 12
	MaxRows   = 6
)

// Info1 carries the row count M and the number of unbounded rows Nub.
type Info1 struct {
	M   int
	Nub int
}

// Info2 is the fill-in view a joint writes its rows into. The stepper
// initializes CFM to the world default, Lo to -Inf, Hi to +Inf, Findex to -1
// and CVMax to +Inf before calling Info2.
type Info2 struct {
	// Fps is 1/h, ERP the world error reduction parameter.
	Fps float64
	ERP float64
	// MaxCorrectingVel is the world limit on contact correction speed.
	MaxCorrectingVel float64

	J      []float64
	C      []float64
	CFM    []float64
	Lo     []float64
	Hi     []float64
	CVMax  []float64
	Findex []int
}

func (in *Info2) row(r int) []float64 {
	return in.J[r*RowStride : (r+1)*RowStride]
}

func (in *Info2) SetLinear1(r int, v mgl64.Vec3)  { copy(in.row(r)[0:3], v[:]) }
func (in *Info2) SetAngular1(r int, v mgl64.Vec3) { copy(in.row(r)[3:6], v[:]) }
func (in *Info2) SetLinear2(r int, v mgl64.Vec3)  { copy(in.row(r)[6:9], v[:]) }
func (in *Info2) SetAngular2(r int, v mgl64.Vec3) { copy(in.row(r)[9:12], v[:]) }

// Feedback receives the constraint force and torque applied to each body.
type Feedback struct {
	F1 mgl64.Vec3
	T1 mgl64.Vec3
	F2 mgl64.Vec3
	T2 mgl64.Vec3
}

type Source interface {
	Info1() Info1
	Info2(info *Info2)
	// Bodies returns the attached bodies. The first must be non-nil; a nil
	// second body anchors the constraint to the world.
	Bodies() (*rigid.Body, *rigid.Body)
	// Feedback returns the sink for constraint forces, or nil.
	Feedback() *Feedback
}

// Base carries the body pair and optional feedback sink shared by every joint.
type Base struct {
	B1, B2 *rigid.Body
	FB     *Feedback
}

func (b *Base) Bodies() (*rigid.Body, *rigid.Body) { return b.B1, b.B2 }
func (b *Base) Feedback() *Feedback                { return b.FB }

// EnableFeedback attaches a fresh sink and returns it.
func (b *Base) EnableFeedback() *Feedback {
	b.FB = &Feedback{}
	return b.FB
}

// pointRows fills three rows constraining world point p1 on b1 to coincide
// with p2 on b2 (or the fixed world point p2).
func pointRows(info *Info2, base *Base, p1, p2 mgl64.Vec3) {
	k := info.Fps * info.ERP
	r1 := p1.Sub(base.B1.Pos)
	var r2 mgl64.Vec3
	if base.B2 != nil {
		r2 = p2.Sub(base.B2.Pos)
	}
	axes := [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for i, e := range axes {
		info.SetLinear1(i, e)
		info.SetAngular1(i, r1.Cross(e))
		if base.B2 != nil {
			info.SetLinear2(i, e.Mul(-1))
			info.SetAngular2(i, r2.Cross(e).Mul(-1))
		}
		info.C[i] = k * (p2[i] - p1[i])
	}
}

// PlaneSpace returns two unit vectors perpendicular to n and to each other.
func PlaneSpace(n mgl64.Vec3) (p, q mgl64.Vec3) {
	if math.Abs(n[2]) > 0.7071067811865476 {
		a := n[1]*n[1] + n[2]*n[2]
		k := 1 / math.Sqrt(a)
		p = mgl64.Vec3{0, -n[2] * k, n[1] * k}
		q = mgl64.Vec3{a * k, -n[0] * p[2], n[0] * p[1]}
		return p, q
	}
	a := n[0]*n[0] + n[1]*n[1]
	k := 1 / math.Sqrt(a)
	p = mgl64.Vec3{-n[1] * k, n[0] * k, 0}
	q = mgl64.Vec3{-n[2] * p[1], n[2] * p[0], a * k}
	return p, q
}
