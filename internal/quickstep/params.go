package quickstep

import (
	"fmt"
	"runtime"

	"github.com/go-gl/mathgl/mgl64"
)

// Strategy selects the row solver.
type Strategy int

const (
	// StrategySOR is projected SOR with periodic random reordering.
	StrategySOR Strategy = iota
	// StrategySORByError sorts each chunk by the last multiplier change
	// instead of shuffling it.
	StrategySORByError
	// StrategyCG runs Jacobi-preconditioned conjugate gradients on the
	// unbounded system and projects onto the bounds afterwards. Only suitable
	// for systems made mostly of equality rows.
	StrategyCG
)

var strategyNames = map[Strategy]string{
	StrategySOR:        "sor",
	StrategySORByError: "sor-error",
	StrategyCG:         "cg",
}

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return 0, invalidf("unknown strategy %q", name)
}

func (s Strategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Strategy) UnmarshalText(b []byte) error {
	v, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Penetration selects what happens to the bias velocity after the position
// update.
type Penetration int

const (
	// PenetrationSplit removes the unclipped part of the bias velocity once
	// positions have been advanced.
	PenetrationSplit Penetration = iota
	// PenetrationBaumgarte keeps the full bias velocity.
	PenetrationBaumgarte
)

func (p Penetration) String() string {
	switch p {
	case PenetrationSplit:
		return "split"
	case PenetrationBaumgarte:
		return "baumgarte"
	}
	return fmt.Sprintf("penetration(%d)", int(p))
}

func ParsePenetration(name string) (Penetration, error) {
	switch name {
	case "split":
		return PenetrationSplit, nil
	case "baumgarte":
		return PenetrationBaumgarte, nil
	}
	return 0, invalidf("unknown penetration mode %q", name)
}

func (p Penetration) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Penetration) UnmarshalText(b []byte) error {
	v, err := ParsePenetration(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Parameters configures the solver. The zero value is not valid; start from
// DefaultParameters.
type Parameters struct {
	// W is the over-relaxation factor, 0 < W <= 2.
	W float64 `yaml:"w"`
	// Iterations is the number of unconditioned sweeps.
	Iterations int `yaml:"iterations"`
	// PreconIterations is the number of preconditioned sweeps run first.
	PreconIterations int `yaml:"precon_iterations"`
	// Tolerance is the RMS multiplier change below which a chunk stops
	// iterating. Zero disables early exit.
	Tolerance float64 `yaml:"tolerance"`
	// Chunks is the number of row chunks, Overlap the number of rows each
	// chunk extends into its neighbours.
	Chunks  int `yaml:"chunks"`
	Overlap int `yaml:"overlap"`
	// Workers bounds the number of chunks solved at once. Zero uses
	// GOMAXPROCS, one runs chunks sequentially.
	Workers int `yaml:"workers"`
	// Reorder shuffles each chunk every eight iterations.
	Reorder bool  `yaml:"reorder"`
	Seed    int64 `yaml:"seed"`

	Strategy    Strategy    `yaml:"strategy"`
	Penetration Penetration `yaml:"penetration"`
}

func DefaultParameters() Parameters {
	return Parameters{
		W:           1.3,
		Iterations:  50,
		Tolerance:   1e-8,
		Chunks:      1,
		Workers:     1,
		Reorder:     true,
		Strategy:    StrategySOR,
		Penetration: PenetrationSplit,
	}
}

func (p Parameters) Validate() error {
	if !(p.W > 0 && p.W <= 2) {
		return invalidf("relaxation w must be in (0, 2], got %g", p.W)
	}
	if p.Iterations < 0 || p.PreconIterations < 0 {
		return invalidf("iteration counts must be non-negative, got %d and %d", p.Iterations, p.PreconIterations)
	}
	if p.Iterations+p.PreconIterations == 0 {
		return invalidf("at least one iteration is required")
	}
	if p.Tolerance < 0 {
		return invalidf("tolerance must be non-negative, got %g", p.Tolerance)
	}
	if p.Chunks < 1 {
		return invalidf("chunks must be at least 1, got %d", p.Chunks)
	}
	if p.Overlap < 0 {
		return invalidf("overlap must be non-negative, got %d", p.Overlap)
	}
	if p.Workers < 0 {
		return invalidf("workers must be non-negative, got %d", p.Workers)
	}
	if _, ok := strategyNames[p.Strategy]; !ok {
		return invalidf("unknown strategy %d", int(p.Strategy))
	}
	if p.Penetration != PenetrationSplit && p.Penetration != PenetrationBaumgarte {
		return invalidf("unknown penetration mode %d", int(p.Penetration))
	}
	return nil
}

func (p Parameters) workers() int {
	if p.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return p.Workers
}

// Env is the per-step world context.
type Env struct {
	Step    float64
	Gravity mgl64.Vec3
	// ERP and CFM are the defaults handed to joints.
	ERP float64
	CFM float64
	// MaxCorrectingVel bounds the bias velocity contacts keep after the step.
	MaxCorrectingVel float64
}

func DefaultEnv(step float64) Env {
	return Env{
		Step:    step,
		Gravity: mgl64.Vec3{0, 0, -9.81},
		ERP:     0.2,
		CFM:     1e-5,
	}
}

// Stats summarizes one step.
type Stats struct {
	Bodies int
	Joints int
	Rows   int

	// Iterations counts preconditioned plus unconditioned sweeps of the
	// slowest chunk.
	Iterations       int
	PreconIterations int

	// RMS is the root mean square multiplier change of the final sweep.
	RMS       float64
	Converged bool
}
