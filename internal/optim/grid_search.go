// Package optim searches solver and world settings for the configuration
// that minimizes a run metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"

	"github.com/san-kum/quickstep/internal/config"
	"github.com/san-kum/quickstep/internal/metrics"
	"github.com/san-kum/quickstep/internal/scenario"
)

var ErrUnknownKnob = errors.New("optim: unknown knob")

// knobs maps a searchable name to the config field it sets.
var knobs = map[string]func(*config.Config, float64){
	"w":          func(c *config.Config, v float64) { c.Solver.W = v },
	"iterations": func(c *config.Config, v float64) { c.Solver.Iterations = int(math.Round(v)) },
	"precon":     func(c *config.Config, v float64) { c.Solver.PreconIterations = int(math.Round(v)) },
	"chunks":     func(c *config.Config, v float64) { c.Solver.Chunks = int(math.Round(v)) },
	"overlap":    func(c *config.Config, v float64) { c.Solver.Overlap = int(math.Round(v)) },
	"erp":        func(c *config.Config, v float64) { c.World.ERP = v },
	"cfm":        func(c *config.Config, v float64) { c.World.CFM = v },
	"dt":         func(c *config.Config, v float64) { c.Dt = v },
}

func Knobs() []string {
	return slices.Sorted(maps.Keys(knobs))
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	logger     *slog.Logger
}

func NewGridSearch(params []string, ranges [][]float64, logger *slog.Logger) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d knobs but %d ranges", len(params), len(ranges))
	}
	for _, p := range params {
		if _, ok := knobs[p]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKnob, p)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges, logger: logger}, nil
}

// Outcome is the best point of a search. Failed counts grid points whose
// configuration was invalid or whose run reported an error.
type Outcome struct {
	Best   map[string]float64
	Value  float64
	Trials int
	Failed int
}

// Search runs base at every grid point and keeps the one with the lowest
// value of metricName.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, reg *scenario.Registry, metricName string) (*Outcome, error) {
	out := &Outcome{Value: math.Inf(1)}
	if err := g.searchRecursive(ctx, 0, map[string]float64{}, base, reg, metricName, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	reg *scenario.Registry,
	metricName string,
	out *Outcome,
) error {
	if depth == len(g.paramNames) {
		if err := ctx.Err(); err != nil {
			return err
		}
		out.Trials++

		cfg := base.Clone()
		for name, v := range current {
			knobs[name](cfg, v)
		}
		w, err := cfg.Build(reg, g.logger)
		if err != nil {
			out.Failed++
			return nil
		}
		for _, m := range metrics.Standard() {
			w.AddMetric(m)
		}
		result, err := w.Run(ctx, cfg.RunConfig())
		if err != nil {
			return err
		}
		if len(result.Errors) > 0 {
			out.Failed++
			return nil
		}

		val, ok := result.Metrics[metricName]
		if !ok {
			return fmt.Errorf("optim: run has no metric %q", metricName)
		}
		if val < out.Value {
			out.Value = val
			out.Best = maps.Clone(current)
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := maps.Clone(current)
		next[paramName] = val
		if err := g.searchRecursive(ctx, depth+1, next, base, reg, metricName, out); err != nil {
			return err
		}
	}
	return nil
}
