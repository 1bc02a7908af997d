package joint

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/quickstep/internal/rigid"
)

// Ball keeps one point of each body coincident.
type Ball struct {
	Base
	// Anchor1 is in the first body's frame. Anchor2 is in the second body's
	// frame, or in world coordinates when there is no second body.
	Anchor1 mgl64.Vec3
	Anchor2 mgl64.Vec3
}

// NewBall joins b1 and b2 (nil for world) at the given world anchor.
func NewBall(b1, b2 *rigid.Body, anchor mgl64.Vec3) *Ball {
	j := &Ball{Base: Base{B1: b1, B2: b2}}
	j.Anchor1 = b1.LocalPoint(anchor)
	j.Anchor2 = anchorFrame(b2, anchor)
	return j
}

func (j *Ball) Info1() Info1 { return Info1{M: 3, Nub: 3} }

func (j *Ball) Info2(info *Info2) {
	pointRows(info, &j.Base, j.B1.WorldPoint(j.Anchor1), anchorWorld(j.B2, j.Anchor2))
}

func anchorFrame(b *rigid.Body, world mgl64.Vec3) mgl64.Vec3 {
	if b == nil {
		return world
	}
	return b.LocalPoint(world)
}

func anchorWorld(b *rigid.Body, a mgl64.Vec3) mgl64.Vec3 {
	if b == nil {
		return a
	}
	return b.WorldPoint(a)
}

func axisFrame(b *rigid.Body, world mgl64.Vec3) mgl64.Vec3 {
	if b == nil {
		return world
	}
	return b.LocalVector(world)
}

func axisWorld(b *rigid.Body, a mgl64.Vec3) mgl64.Vec3 {
	if b == nil {
		return a
	}
	return b.WorldVector(a)
}
