package metrics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/quickstep/internal/quickstep"
	"github.com/san-kum/quickstep/internal/rigid"
	"github.com/san-kum/quickstep/internal/world"
)

func newWorld(t *testing.T, bodies ...*rigid.Body) *world.World {
	t.Helper()
	s, err := quickstep.New(quickstep.DefaultParameters())
	if err != nil {
		t.Fatal(err)
	}
	w := world.New(s, world.DefaultSettings())
	w.AddBody(bodies...)
	return w
}

func TestKineticEnergy(t *testing.T) {
	b := rigid.NewSphere(2, 1, mgl64.Vec3{})
	b.LinVel = mgl64.Vec3{3, 0, 0}
	w := newWorld(t, b)

	m := NewKineticEnergy()
	m.Observe(w, quickstep.Stats{}, 0)
	if math.Abs(m.Value()-9) > 1e-12 {
		t.Errorf("expected kinetic energy 9, got %f", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	b := rigid.NewSphere(1, 1, mgl64.Vec3{0, 0, 1})
	w := newWorld(t, b)

	m := NewEnergyDrift()
	m.Observe(w, quickstep.Stats{}, 0)
	if m.Value() != 0 {
		t.Errorf("expected no drift on first sample, got %f", m.Value())
	}

	// potential m*g*z = 9.81; add 0.981 J of kinetic energy
	b.LinVel = mgl64.Vec3{math.Sqrt(2 * 0.981), 0, 0}
	m.Observe(w, quickstep.Stats{}, 0.01)
	if math.Abs(m.Value()-0.1) > 1e-9 {
		t.Errorf("expected drift 0.1, got %f", m.Value())
	}
}

func TestMomentumDrift(t *testing.T) {
	b := rigid.NewSphere(2, 1, mgl64.Vec3{})
	w := newWorld(t, b)

	m := NewMomentumDrift()
	m.Observe(w, quickstep.Stats{}, 0)
	b.LinVel = mgl64.Vec3{0, 1, 0}
	m.Observe(w, quickstep.Stats{}, 0.01)
	if math.Abs(m.Value()-2) > 1e-12 {
		t.Errorf("expected drift 2, got %f", m.Value())
	}
}

func TestSolverMetrics(t *testing.T) {
	w := newWorld(t)
	rms := NewMeanRMS()
	conv := NewConvergence()

	samples := []quickstep.Stats{
		{Rows: 3, RMS: 1e-3, Converged: false},
		{Rows: 3, RMS: 3e-3, Converged: true},
		{Rows: 0, RMS: 0, Converged: true},
	}
	for _, s := range samples {
		rms.Observe(w, s, 0)
		conv.Observe(w, s, 0)
	}

	if math.Abs(rms.Value()-2e-3) > 1e-15 {
		t.Errorf("expected mean rms 2e-3, got %g", rms.Value())
	}
	if conv.Value() != 0.5 {
		t.Errorf("expected convergence 0.5, got %f", conv.Value())
	}

	conv.Reset()
	if conv.Value() != 1.0 {
		t.Errorf("expected 1.0 with no samples, got %f", conv.Value())
	}
}

func TestStandardNames(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Standard() {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %s", m.Name())
		}
		seen[m.Name()] = true
	}
	if len(seen) != 5 {
		t.Errorf("expected 5 metrics, got %d", len(seen))
	}
}
