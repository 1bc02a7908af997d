package world

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/quickstep/internal/joint"
	"github.com/san-kum/quickstep/internal/quickstep"
	"github.com/san-kum/quickstep/internal/rigid"
)

// Collider produces the contact joints for the current body poses. It is
// called once per step; returned joints are only used for that step.
type Collider interface {
	Collide(bodies []*rigid.Body) []joint.Source
}

type Metric interface {
	Name() string
	Observe(w *World, stats quickstep.Stats, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(w *World, stats quickstep.Stats, t float64)
}

// Settings are the world-wide physical constants handed to joints.
type Settings struct {
	Gravity          mgl64.Vec3 `yaml:"gravity,flow"`
	ERP              float64    `yaml:"erp"`
	CFM              float64    `yaml:"cfm"`
	MaxCorrectingVel float64    `yaml:"max_correcting_vel"`
	WarmStart        bool       `yaml:"warm_start"`
}

func DefaultSettings() Settings {
	env := quickstep.DefaultEnv(0)
	return Settings{
		Gravity:          env.Gravity,
		ERP:              env.ERP,
		CFM:              env.CFM,
		MaxCorrectingVel: env.MaxCorrectingVel,
		WarmStart:        true,
	}
}

type RunConfig struct {
	Dt       float64
	Duration float64
	// ValidateState stops the run at the first body with a NaN or Inf.
	ValidateState bool
	// RecordStates keeps a flattened state per step in the result.
	RecordStates bool
}

type Result struct {
	Times      []float64
	States     [][]float64
	RMS        []float64
	Iterations []int

	StepsTaken  int
	Unconverged int
	EnergyDrift float64
	Metrics     map[string]float64
	Errors      []error
}
