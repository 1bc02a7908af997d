package scenario

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/quickstep/internal/joint"
	"github.com/san-kum/quickstep/internal/rigid"
)

func buildPair(p Params) (*Scene, error) {
	length := p.Get("length", 2)
	spin := p.Get("spin", 1)
	if length <= 0 {
		return nil, fmt.Errorf("pair: length must be positive, got %f", length)
	}

	a := rigid.NewSphere(p.Get("mass", 1), 0.2, mgl64.Vec3{-length / 2, 0, 5})
	b := rigid.NewSphere(p.Get("mass2", 1), 0.2, mgl64.Vec3{length / 2, 0, 5})
	a.Name, b.Name = "a", "b"
	a.LinVel = mgl64.Vec3{0, -spin, 0}
	b.LinVel = mgl64.Vec3{0, spin, 0}

	d := joint.NewDistance(a, b, a.Pos, b.Pos)
	d.EnableFeedback()
	return &Scene{Bodies: []*rigid.Body{a, b}, Joints: []joint.Source{d}}, nil
}

func buildChain(p Params) (*Scene, error) {
	links := p.Int("links", 8)
	if links < 1 {
		return nil, fmt.Errorf("chain: need at least one link, got %d", links)
	}
	spacing := p.Get("spacing", 0.5)
	angle := p.Get("angle", math.Pi/4)
	dir := mgl64.Vec3{math.Sin(angle), 0, -math.Cos(angle)}
	top := mgl64.Vec3{0, 0, p.Get("height", 5)}

	s := &Scene{}
	var prev *rigid.Body
	for i := 0; i < links; i++ {
		b := rigid.NewSphere(p.Get("mass", 1), spacing/4, top.Add(dir.Mul(spacing*float64(i+1))))
		b.Name = fmt.Sprintf("link%d", i)
		anchor := top.Add(dir.Mul(spacing * float64(i)))
		j := joint.NewBall(b, nil, anchor)
		if prev != nil {
			j = joint.NewBall(prev, b, anchor)
		}
		s.Bodies = append(s.Bodies, b)
		s.Joints = append(s.Joints, j)
		prev = b
	}
	s.Joints[0].(*joint.Ball).EnableFeedback()
	return s, nil
}

func buildHinge(p Params) (*Scene, error) {
	box := rigid.NewBox(p.Get("mass", 2), 1, 0.1, 0.3, mgl64.Vec3{0.5, 0, 1})
	box.Name = "door"
	box.NoGravity = p.Get("gravity", 0) == 0
	h := joint.NewHinge(box, nil, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 1})
	h.MotorVel = p.Get("motor_vel", 2)
	h.MotorFMax = p.Get("motor_fmax", 5)
	h.EnableFeedback()
	return &Scene{Bodies: []*rigid.Body{box}, Joints: []joint.Source{h}}, nil
}

func buildPile(p Params) (*Scene, error) {
	count := p.Int("count", 10)
	if count < 1 {
		return nil, fmt.Errorf("pile: need at least one sphere, got %d", count)
	}
	radius := p.Get("radius", 0.25)
	col := NewSphereCollider(p.Get("mu", 0.5))
	col.Bounce = p.Get("bounce", 0)
	col.BounceVel = p.Get("bounce_vel", 0.1)

	s := &Scene{Collider: col}
	side := int(math.Ceil(math.Sqrt(float64(count))))
	for i := 0; i < count; i++ {
		// staggered layers so spheres land on each other
		layer := i / (side * side)
		k := i % (side * side)
		x := float64(k%side)*2.1*radius + float64(layer%2)*radius
		y := float64(k/side)*2.1*radius + float64(layer%2)*radius
		z := radius + 0.05 + float64(layer)*2.2*radius + float64(i%3)*0.01
		b := rigid.NewSphere(p.Get("mass", 1), radius, mgl64.Vec3{x, y, z})
		b.Name = fmt.Sprintf("s%d", i)
		col.Add(b, radius)
		s.Bodies = append(s.Bodies, b)
	}
	return s, nil
}
