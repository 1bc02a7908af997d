package quickstep

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultParametersValid(t *testing.T) {
	require.NoError(t, DefaultParameters().Validate())
}

func TestParametersValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(p *Parameters)
	}{
		{"zero w", func(p *Parameters) { p.W = 0 }},
		{"w above two", func(p *Parameters) { p.W = 2.5 }},
		{"negative iterations", func(p *Parameters) { p.Iterations = -1 }},
		{"no iterations", func(p *Parameters) { p.Iterations, p.PreconIterations = 0, 0 }},
		{"negative tolerance", func(p *Parameters) { p.Tolerance = -1 }},
		{"no chunks", func(p *Parameters) { p.Chunks = 0 }},
		{"negative overlap", func(p *Parameters) { p.Overlap = -2 }},
		{"negative workers", func(p *Parameters) { p.Workers = -1 }},
		{"bad strategy", func(p *Parameters) { p.Strategy = Strategy(42) }},
		{"bad penetration", func(p *Parameters) { p.Penetration = Penetration(7) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.mod(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParameters))

			_, err = New(p)
			assert.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}

func TestParametersYAML(t *testing.T) {
	src := `
w: 1.1
iterations: 30
precon_iterations: 5
strategy: sor-error
penetration: baumgarte
chunks: 4
overlap: 2
reorder: false
`
	p := DefaultParameters()
	require.NoError(t, yaml.Unmarshal([]byte(src), &p))
	assert.Equal(t, 1.1, p.W)
	assert.Equal(t, 5, p.PreconIterations)
	assert.Equal(t, StrategySORByError, p.Strategy)
	assert.Equal(t, PenetrationBaumgarte, p.Penetration)
	assert.False(t, p.Reorder)
	assert.Equal(t, 1e-8, p.Tolerance, "unset fields keep defaults")

	out, err := yaml.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(out), "strategy: sor-error")

	err = yaml.Unmarshal([]byte("strategy: newton"), &p)
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestStrategyNames(t *testing.T) {
	for _, s := range []Strategy{StrategySOR, StrategySORByError, StrategyCG} {
		got, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	assert.Equal(t, "strategy(9)", Strategy(9).String())
}
