package quickstep

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/quickstep/internal/joint"
	"github.com/san-kum/quickstep/internal/rigid"
	"github.com/stretchr/testify/require"
)

const testStep = 0.01

func zeroGravityEnv() Env {
	env := DefaultEnv(testStep)
	env.Gravity = mgl64.Vec3{}
	return env
}

func newStepper(t testing.TB, p Parameters, opts ...Option) *Stepper {
	t.Helper()
	s, err := New(p, opts...)
	require.NoError(t, err)
	return s
}

// hangingChain returns n unit spheres one unit apart below the origin, the
// first pinned to the world at the origin.
func hangingChain(n int) ([]*rigid.Body, []joint.Source) {
	bodies := make([]*rigid.Body, n)
	joints := make([]joint.Source, n)
	for i := range bodies {
		bodies[i] = rigid.NewSphere(1, 0.2, mgl64.Vec3{0, 0, -float64(i + 1)})
		anchor := mgl64.Vec3{0, 0, -float64(i)}
		if i == 0 {
			joints[i] = joint.NewBall(bodies[i], nil, anchor)
		} else {
			joints[i] = joint.NewBall(bodies[i-1], bodies[i], anchor)
		}
	}
	return bodies, joints
}

// groundPile returns n spheres resting on the z=0 plane with a slight
// penetration, each with its own frictional contact.
func groundPile(n int, mu float64) ([]*rigid.Body, []joint.Source) {
	bodies := make([]*rigid.Body, n)
	joints := make([]joint.Source, n)
	for i := range bodies {
		b := rigid.NewSphere(1, 0.5, mgl64.Vec3{float64(i), 0, 0.49})
		b.LinVel = mgl64.Vec3{0.5, -0.2, 0}
		bodies[i] = b
		joints[i] = joint.NewContact(b, nil, mgl64.Vec3{float64(i), 0, 0}, mgl64.Vec3{0, 0, 1}, 0.01, mu)
	}
	return bodies, joints
}

func totalMomentum(bodies []*rigid.Body) mgl64.Vec3 {
	var p mgl64.Vec3
	for _, b := range bodies {
		p = p.Add(b.Momentum())
	}
	return p
}

func snapshot(bodies []*rigid.Body) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, 0, 2*len(bodies))
	for _, b := range bodies {
		out = append(out, b.Pos, b.LinVel)
	}
	return out
}
