package config

import (
	"sort"

	"github.com/san-kum/quickstep/internal/quickstep"
	"github.com/san-kum/quickstep/internal/scenario"
)

func preset(name string, dt, duration float64, params scenario.Params, mod func(c *Config)) *Config {
	c := DefaultConfig()
	c.Scenario = name
	c.Dt = dt
	c.Duration = duration
	c.ScenarioParams = params
	if mod != nil {
		mod(c)
	}
	return c
}

var Presets = map[string]map[string]*Config{
	"chain": {
		"short": preset("chain", 0.01, 10, scenario.Params{"links": 4}, nil),
		"long": preset("chain", 0.005, 20, scenario.Params{"links": 24, "spacing": 0.25}, func(c *Config) {
			c.Solver.Iterations = 100
		}),
		"chunked": preset("chain", 0.005, 20, scenario.Params{"links": 64, "spacing": 0.2}, func(c *Config) {
			c.Solver.Chunks = 4
			c.Solver.Overlap = 8
			c.Solver.Workers = 4
		}),
		"cg": preset("chain", 0.01, 10, scenario.Params{"links": 12}, func(c *Config) {
			c.Solver.Strategy = quickstep.StrategyCG
		}),
	},
	"pair": {
		"spin": preset("pair", 0.01, 10, scenario.Params{"spin": 2}, nil),
		"heavy": preset("pair", 0.01, 10, scenario.Params{"mass": 1, "mass2": 100, "spin": 1}, func(c *Config) {
			c.Solver.PreconIterations = 10
		}),
	},
	"hinge": {
		"motor": preset("hinge", 0.01, 5, scenario.Params{"motor_vel": 3, "motor_fmax": 10}, nil),
		"weak": preset("hinge", 0.01, 5, scenario.Params{"motor_vel": 3, "motor_fmax": 0.5}, nil),
	},
	"pile": {
		"small": preset("pile", 0.01, 5, scenario.Params{"count": 9}, nil),
		"stack": preset("pile", 0.005, 10, scenario.Params{"count": 27, "mu": 0.8}, func(c *Config) {
			c.Solver.Iterations = 80
			c.Solver.Strategy = quickstep.StrategySORByError
		}),
		"bouncy": preset("pile", 0.01, 5, scenario.Params{"count": 9, "bounce": 0.6}, func(c *Config) {
			c.World.MaxCorrectingVel = 0.1
			c.Solver.Penetration = quickstep.PenetrationBaumgarte
		}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(scenarioName, name string) *Config {
	presets, ok := Presets[scenarioName]
	if !ok {
		return nil
	}
	cfg, ok := presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(scenarioName string) []string {
	presets, ok := Presets[scenarioName]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
