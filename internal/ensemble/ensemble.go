// Package ensemble runs one configuration under many reordering seeds.
package ensemble

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/san-kum/quickstep/internal/config"
	"github.com/san-kum/quickstep/internal/metrics"
	"github.com/san-kum/quickstep/internal/scenario"
	"github.com/san-kum/quickstep/internal/world"
	"golang.org/x/sync/errgroup"
)

type Ensemble struct {
	base      *config.Config
	reg       *scenario.Registry
	numRuns   int
	seedStart int64
	parallel  int
	logger    *slog.Logger
}

// New returns an ensemble of numRuns copies of base seeded seedStart,
// seedStart+1 and so on. At most parallel runs execute at once; zero means
// all of them.
func New(base *config.Config, reg *scenario.Registry, numRuns int, seedStart int64, parallel int, logger *slog.Logger) *Ensemble {
	return &Ensemble{base: base, reg: reg, numRuns: numRuns, seedStart: seedStart, parallel: parallel, logger: logger}
}

// Run executes every member and returns the results in seed order. The first
// build or run error cancels the rest.
func (e *Ensemble) Run(ctx context.Context) ([]*world.Result, error) {
	if e.numRuns < 1 {
		return nil, fmt.Errorf("ensemble: need at least one run, got %d", e.numRuns)
	}
	results := make([]*world.Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	if e.parallel > 0 {
		g.SetLimit(e.parallel)
	}
	for i := 0; i < e.numRuns; i++ {
		g.Go(func() error {
			cfg := e.base.Clone()
			cfg.Seed = e.seedStart + int64(i)

			w, err := cfg.Build(e.reg, e.logger)
			if err != nil {
				return err
			}
			for _, m := range metrics.Standard() {
				w.AddMetric(m)
			}
			res, err := w.Run(ctx, cfg.RunConfig())
			if err != nil {
				return fmt.Errorf("ensemble: seed %d: %w", cfg.Seed, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Spread summarizes one metric across the members.
type Spread struct {
	Name     string
	Mean     float64
	StdDev   float64
	Min, Max float64
}

// Summarize returns the spread of every metric the results share, sorted by
// name.
func Summarize(results []*world.Result) []Spread {
	if len(results) == 0 {
		return nil
	}
	names := make([]string, 0, len(results[0].Metrics))
	for name := range results[0].Metrics {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]Spread, 0, len(names))
	for _, name := range names {
		s := Spread{Name: name, Min: math.Inf(1), Max: math.Inf(-1)}
		var n int
		for _, r := range results {
			v, ok := r.Metrics[name]
			if !ok {
				continue
			}
			s.Mean += v
			s.Min = math.Min(s.Min, v)
			s.Max = math.Max(s.Max, v)
			n++
		}
		s.Mean /= float64(n)
		for _, r := range results {
			if v, ok := r.Metrics[name]; ok {
				s.StdDev += (v - s.Mean) * (v - s.Mean)
			}
		}
		s.StdDev = math.Sqrt(s.StdDev / float64(n))
		out = append(out, s)
	}
	return out
}
