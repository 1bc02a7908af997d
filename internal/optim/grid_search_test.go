package optim

import (
	"context"
	"testing"

	"github.com/san-kum/quickstep/internal/config"
	"github.com/san-kum/quickstep/internal/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortChain() *config.Config {
	cfg := config.GetPreset("chain", "short")
	cfg.Duration = 0.3
	cfg.Solver.Tolerance = 0
	return cfg
}

func TestSearchPrefersMoreIterations(t *testing.T) {
	g, err := NewGridSearch([]string{"iterations", "w"}, [][]float64{{2, 40}, {1.0, 1.3}}, nil)
	require.NoError(t, err)

	out, err := g.Search(context.Background(), shortChain(), scenario.NewRegistry(), "mean_rms")
	require.NoError(t, err)

	assert.Equal(t, 4, out.Trials)
	assert.Zero(t, out.Failed)
	assert.Equal(t, 40.0, out.Best["iterations"])
	assert.Contains(t, out.Best, "w")
}

func TestSearchCountsInvalidPoints(t *testing.T) {
	g, err := NewGridSearch([]string{"w"}, [][]float64{{1.0, 3.0}}, nil)
	require.NoError(t, err)

	out, err := g.Search(context.Background(), shortChain(), scenario.NewRegistry(), "mean_rms")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Trials)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, 1.0, out.Best["w"])
}

func TestSearchErrors(t *testing.T) {
	_, err := NewGridSearch([]string{"gravity"}, [][]float64{{1}}, nil)
	assert.ErrorIs(t, err, ErrUnknownKnob)

	_, err = NewGridSearch([]string{"w"}, nil, nil)
	assert.Error(t, err)

	g, err := NewGridSearch([]string{"w"}, [][]float64{{1}}, nil)
	require.NoError(t, err)
	_, err = g.Search(context.Background(), shortChain(), scenario.NewRegistry(), "missing")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Search(ctx, shortChain(), scenario.NewRegistry(), "mean_rms")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKnobsSorted(t *testing.T) {
	names := Knobs()
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "iterations")
}
