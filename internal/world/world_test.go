package world_test

import (
	"context"
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/quickstep/internal/joint"
	"github.com/san-kum/quickstep/internal/quickstep"
	"github.com/san-kum/quickstep/internal/rigid"
	"github.com/san-kum/quickstep/internal/world"
)

// planeCollider emits a frictional contact for every sphere of the given
// radius that touches z = 0.
type planeCollider struct {
	radius float64
	mu     float64
	calls  int
}

func (c *planeCollider) Collide(bodies []*rigid.Body) []joint.Source {
	c.calls++
	var out []joint.Source
	for _, b := range bodies {
		if depth := c.radius - b.Pos[2]; depth > 0 && !b.IsStatic() {
			p := mgl64.Vec3{b.Pos[0], b.Pos[1], 0}
			out = append(out, joint.NewContact(b, nil, p, mgl64.Vec3{0, 0, 1}, depth, c.mu))
		}
	}
	return out
}

type countingObserver struct{ steps int }

func (o *countingObserver) OnStep(*world.World, quickstep.Stats, float64) { o.steps++ }

type maxRMS struct{ v float64 }

func (m *maxRMS) Name() string { return "max_rms" }
func (m *maxRMS) Observe(_ *world.World, s quickstep.Stats, _ float64) {
	m.v = math.Max(m.v, s.RMS)
}
func (m *maxRMS) Value() float64 { return m.v }
func (m *maxRMS) Reset()        { m.v = 0 }

// badJoint reports more rows than any joint may have.
type badJoint struct{ joint.Base }

func (badJoint) Info1() joint.Info1 { return joint.Info1{M: 9} }
func (badJoint) Info2(*joint.Info2) {}

var _ = Describe("World", func() {
	var (
		w        *world.World
		settings world.Settings
	)

	BeforeEach(func() {
		stepper, err := quickstep.New(quickstep.DefaultParameters())
		Expect(err).NotTo(HaveOccurred())
		settings = world.DefaultSettings()
		w = world.New(stepper, settings)
	})

	Describe("Run", func() {
		It("records one entry per step", func() {
			b := rigid.NewSphere(1, 0.1, mgl64.Vec3{0, 0, 10})
			w.AddBody(b)

			res, err := w.Run(context.Background(), world.RunConfig{Dt: 0.01, Duration: 1, RecordStates: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(Equal(100))
			Expect(res.Times).To(HaveLen(101))
			Expect(res.States).To(HaveLen(101))
			Expect(res.RMS).To(HaveLen(100))
			Expect(res.Errors).To(BeEmpty())
			Expect(w.Time()).To(BeNumerically("~", 1.0, 1e-9))
			Expect(w.Stepper().Steps()).To(Equal(int64(100)))

			// semi-implicit Euler: z = z0 - g h^2 n(n+1)/2
			want := 10 - 9.81*0.01*0.01*100*101/2
			Expect(b.Pos[2]).To(BeNumerically("~", want, 1e-9))
		})

		It("rejects invalid configs", func() {
			for _, cfg := range []world.RunConfig{
				{Dt: 0, Duration: 1},
				{Dt: -0.1, Duration: 1},
				{Dt: 0.1, Duration: 0},
				{Dt: 0.1, Duration: 0.01},
			} {
				_, err := w.Run(context.Background(), cfg)
				Expect(errors.Is(err, world.ErrInvalidConfig)).To(BeTrue(), "%+v", cfg)
			}
		})

		It("stops on cancellation", func() {
			w.AddBody(rigid.NewSphere(1, 0.1, mgl64.Vec3{}))
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			res, err := w.Run(ctx, world.RunConfig{Dt: 0.01, Duration: 1})
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.StepsTaken).To(BeZero())
		})

		It("reports contract violations as run errors", func() {
			b := rigid.NewSphere(1, 0.1, mgl64.Vec3{})
			w.AddBody(b)
			w.AddJoint(&badJoint{joint.Base{B1: b}})

			res, err := w.Run(context.Background(), world.RunConfig{Dt: 0.01, Duration: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Errors).To(HaveLen(1))

			var runErr *world.RunError
			Expect(errors.As(res.Errors[0], &runErr)).To(BeTrue())
			Expect(runErr.Step).To(Equal(0))
			Expect(errors.Is(runErr, quickstep.ErrContract)).To(BeTrue())
		})

		It("stops at the first invalid body when validating", func() {
			b := rigid.NewSphere(1, 0.1, mgl64.Vec3{})
			b.Name = "broken"
			b.LinVel = mgl64.Vec3{math.Inf(1), 0, 0}
			w.AddBody(b)

			res, err := w.Run(context.Background(), world.RunConfig{Dt: 0.01, Duration: 1, ValidateState: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(Equal(1))
			Expect(res.Errors).To(HaveLen(1))
			Expect(errors.Is(res.Errors[0], world.ErrInvalidState)).To(BeTrue())
			Expect(res.Errors[0].Error()).To(ContainSubstring(`"broken"`))
		})

		It("feeds metrics and observers every step", func() {
			w.AddBody(rigid.NewSphere(1, 0.1, mgl64.Vec3{0, 0, -1}))
			w.AddJoint(joint.NewBall(w.Bodies()[0], nil, mgl64.Vec3{}))
			obs := &countingObserver{}
			w.AddObserver(obs)
			w.AddMetric(&maxRMS{})

			res, err := w.Run(context.Background(), world.RunConfig{Dt: 0.01, Duration: 0.5})
			Expect(err).NotTo(HaveOccurred())
			Expect(obs.steps).To(Equal(50))
			Expect(res.Metrics).To(HaveKey("max_rms"))
		})
	})

	Describe("pendulum", func() {
		It("keeps the rod length and roughly conserves energy", func() {
			b := rigid.NewSphere(1, 0.1, mgl64.Vec3{1, 0, 2})
			w.AddBody(b)
			w.AddJoint(joint.NewBall(b, nil, mgl64.Vec3{0, 0, 2}))

			res, err := w.Run(context.Background(), world.RunConfig{Dt: 0.005, Duration: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Pos.Sub(mgl64.Vec3{0, 0, 2}).Len()).To(BeNumerically("~", 1.0, 1e-2))
			Expect(res.EnergyDrift).To(BeNumerically("<", 0.25))
		})
	})

	Describe("contacts", func() {
		It("rests on the collider plane and sweeps stale multipliers", func() {
			col := &planeCollider{radius: 0.5, mu: 0.5}
			stepper, err := quickstep.New(quickstep.DefaultParameters())
			Expect(err).NotTo(HaveOccurred())
			w = world.New(stepper, settings, world.WithCollider(col))

			b := rigid.NewSphere(1, 0.5, mgl64.Vec3{0, 0, 0.6})
			w.AddBody(b)

			_, err = w.Run(context.Background(), world.RunConfig{Dt: 0.01, Duration: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(col.calls).To(Equal(200))
			Expect(b.Pos[2]).To(BeNumerically("~", 0.5, 0.01))
			Expect(b.LinVel.Len()).To(BeNumerically("<", 0.05))

			// contacts are rebuilt every step, so only the latest survive
			Expect(w.Cache().Len()).To(Equal(len(w.Contacts())))
		})
	})

	Describe("State", func() {
		It("flattens position and velocity with labels", func() {
			b := rigid.NewSphere(1, 0.1, mgl64.Vec3{1, 2, 3})
			b.Name = "ball"
			b.LinVel = mgl64.Vec3{4, 5, 6}
			w.AddBody(b, rigid.NewStatic(mgl64.Vec3{}))

			Expect(w.State()[:6]).To(Equal([]float64{1, 2, 3, 4, 5, 6}))
			Expect(w.StateLabels()[:3]).To(Equal([]string{"ball.x", "ball.y", "ball.z"}))
			Expect(w.StateLabels()[6]).To(Equal("b1.x"))
			Expect(w.Body("ball")).To(BeIdenticalTo(b))
			Expect(w.Body("missing")).To(BeNil())
		})
	})
})
