package scenario

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/quickstep/internal/joint"
	"github.com/san-kum/quickstep/internal/rigid"
)

// SphereCollider generates contacts between registered spheres and against
// the ground plane z = Ground. Contacts are rebuilt from scratch every call.
type SphereCollider struct {
	Ground    float64
	Mu        float64
	Bounce    float64
	BounceVel float64
	SoftCFM   float64

	spheres []sphere
}

type sphere struct {
	body   *rigid.Body
	radius float64
}

func NewSphereCollider(mu float64) *SphereCollider {
	return &SphereCollider{Mu: mu}
}

func (c *SphereCollider) Add(b *rigid.Body, radius float64) {
	c.spheres = append(c.spheres, sphere{body: b, radius: radius})
}

func (c *SphereCollider) Collide(_ []*rigid.Body) []joint.Source {
	var out []joint.Source
	for i, a := range c.spheres {
		if depth := c.Ground + a.radius - a.body.Pos[2]; depth > 0 {
			p := mgl64.Vec3{a.body.Pos[0], a.body.Pos[1], c.Ground}
			out = append(out, c.contact(a.body, nil, p, mgl64.Vec3{0, 0, 1}, depth))
		}
		for _, b := range c.spheres[i+1:] {
			d := a.body.Pos.Sub(b.body.Pos)
			dist := d.Len()
			depth := a.radius + b.radius - dist
			if depth <= 0 || dist == 0 {
				continue
			}
			n := d.Mul(1 / dist)
			p := b.body.Pos.Add(n.Mul(b.radius - depth/2))
			out = append(out, c.contact(a.body, b.body, p, n, depth))
		}
	}
	return out
}

func (c *SphereCollider) contact(b1, b2 *rigid.Body, p, n mgl64.Vec3, depth float64) *joint.Contact {
	ct := joint.NewContact(b1, b2, p, n, depth, c.Mu)
	ct.Bounce = c.Bounce
	ct.BounceVel = c.BounceVel
	ct.SoftCFM = c.SoftCFM
	return ct
}
