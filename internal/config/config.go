// Package config loads and validates run configuration files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"

	"github.com/san-kum/quickstep/internal/quickstep"
	"github.com/san-kum/quickstep/internal/scenario"
	"github.com/san-kum/quickstep/internal/world"
	"gopkg.in/yaml.v3"
)

const (
	DefaultScenario = "chain"
	DefaultDt       = 0.01
	DefaultDuration = 10.0
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Scenario       string               `yaml:"scenario"`
	Dt             float64              `yaml:"dt"`
	Duration       float64              `yaml:"duration"`
	Seed           int64                `yaml:"seed"`
	World          world.Settings       `yaml:"world"`
	Solver         quickstep.Parameters `yaml:"solver"`
	ScenarioParams scenario.Params      `yaml:"scenario_params,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Scenario: DefaultScenario,
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		World:    world.DefaultSettings(),
		Solver:   quickstep.DefaultParameters(),
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Scenario == "" {
		return fmt.Errorf("%w: scenario is required", ErrInvalid)
	}
	if !(c.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalid, c.Dt)
	}
	if c.Duration < c.Dt {
		return fmt.Errorf("%w: duration %f shorter than dt %f", ErrInvalid, c.Duration, c.Dt)
	}
	if c.World.ERP < 0 || c.World.ERP > 1 {
		return fmt.Errorf("%w: erp must be in [0, 1], got %f", ErrInvalid, c.World.ERP)
	}
	if c.World.CFM < 0 {
		return fmt.Errorf("%w: cfm must be non-negative, got %f", ErrInvalid, c.World.CFM)
	}
	if c.World.MaxCorrectingVel < 0 {
		return fmt.Errorf("%w: max_correcting_vel must be non-negative, got %f", ErrInvalid, c.World.MaxCorrectingVel)
	}
	return c.Parameters().Validate()
}

// Parameters returns the solver parameters with the run seed applied.
func (c *Config) Parameters() quickstep.Parameters {
	p := c.Solver
	p.Seed = c.Seed
	return p
}

func (c *Config) RunConfig() world.RunConfig {
	return world.RunConfig{Dt: c.Dt, Duration: c.Duration, ValidateState: true}
}

func (c *Config) Clone() *Config {
	out := *c
	out.ScenarioParams = maps.Clone(c.ScenarioParams)
	return &out
}

// Build constructs the stepper and world for c and populates it with the
// configured scenario.
func (c *Config) Build(reg *scenario.Registry, logger *slog.Logger) (*world.World, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	scene, err := reg.Build(c.Scenario, c.ScenarioParams)
	if err != nil {
		return nil, err
	}
	stepper, err := quickstep.New(c.Parameters(), quickstep.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	w := world.New(stepper, c.World, world.WithLogger(logger))
	scene.Populate(w)
	return w, nil
}
