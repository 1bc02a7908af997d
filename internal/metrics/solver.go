package metrics

import (
	"github.com/san-kum/quickstep/internal/quickstep"
	"github.com/san-kum/quickstep/internal/world"
)

type MeanRMS struct {
	name    string
	samples int
	total   float64
}

func NewMeanRMS() *MeanRMS {
	return &MeanRMS{name: "mean_rms"}
}

func (m *MeanRMS) Name() string { return m.name }

func (m *MeanRMS) Observe(_ *world.World, s quickstep.Stats, _ float64) {
	if s.Rows == 0 {
		return
	}
	m.total += s.RMS
	m.samples++
}

func (m *MeanRMS) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.total / float64(m.samples)
}

func (m *MeanRMS) Reset() {
	m.total = 0
	m.samples = 0
}

// Convergence is the fraction of steps with rows whose solve converged.
type Convergence struct {
	name      string
	converged int
	samples   int
}

func NewConvergence() *Convergence {
	return &Convergence{name: "convergence"}
}

func (c *Convergence) Name() string { return c.name }

func (c *Convergence) Observe(_ *world.World, s quickstep.Stats, _ float64) {
	if s.Rows == 0 {
		return
	}
	c.samples++
	if s.Converged {
		c.converged++
	}
}

func (c *Convergence) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return float64(c.converged) / float64(c.samples)
}

func (c *Convergence) Reset() {
	c.converged = 0
	c.samples = 0
}

// Standard returns one of each metric.
func Standard() []world.Metric {
	return []world.Metric{
		NewKineticEnergy(),
		NewEnergyDrift(),
		NewMomentumDrift(),
		NewMeanRMS(),
		NewConvergence(),
	}
}
