package arena

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaAllocZeroed(t *testing.T) {
	a := New(16, 4)

	f := a.Float64s(8)
	for i := range f {
		f[i] = float64(i + 1)
	}
	ids := a.Ints(4)
	ids[0] = 7

	m := a.Begin()
	g := a.Float64s(8)
	assert.Len(t, g, 8)
	for _, v := range g {
		assert.Zero(t, v)
	}
	a.End(m)

	fu, iu := a.Used()
	assert.Equal(t, 8, fu)
	assert.Equal(t, 4, iu)

	// the released region comes back zeroed
	m = a.Begin()
	g[0] = 3
	h := a.Float64s(8)
	assert.Zero(t, h[0])
	a.End(m)

	assert.Equal(t, 1.0, f[0], "outer allocation must survive nested scope")
	assert.Equal(t, 7, ids[0])
}

func TestArenaNestedScopes(t *testing.T) {
	a := New(32, 0)
	outer := a.Begin()
	a.Float64s(4)
	inner := a.Begin()
	a.Float64s(10)
	a.End(inner)

	fu, _ := a.Used()
	assert.Equal(t, 4, fu)
	a.End(outer)

	fu, _ = a.Used()
	assert.Equal(t, 0, fu)

	peak, _ := a.Peak()
	assert.Equal(t, 14, peak)
}

func TestArenaScope(t *testing.T) {
	a := New(8, 8)
	a.Scope(func() {
		a.Float64s(8)
		a.Ints(8)
	})
	fu, iu := a.Used()
	assert.Zero(t, fu)
	assert.Zero(t, iu)
}

func TestArenaExhausted(t *testing.T) {
	a := New(4, 2)
	a.Float64s(4)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ErrExhausted))
	}()
	a.Float64s(1)
}

func TestArenaEndOutOfOrder(t *testing.T) {
	a := New(4, 0)
	outer := a.Begin()
	a.Begin()

	assert.PanicsWithError(t, "arena: mark ended out of order: depth 1, innermost 2", func() {
		a.End(outer)
	})
}

func TestArenaReserve(t *testing.T) {
	a := New(0, 0)
	a.Reserve(10, 3)
	fc, ic := a.Cap()
	assert.Equal(t, 10, fc)
	assert.Equal(t, 3, ic)

	// smaller reservations keep existing storage
	a.Reserve(2, 1)
	fc, _ = a.Cap()
	assert.Equal(t, 10, fc)

	a.Float64s(1)
	assert.Panics(t, func() { a.Reserve(20, 0) })
}

func TestPoolReuse(t *testing.T) {
	p := NewPool()
	a := p.Get()
	require.NotNil(t, a)
	a.Reserve(5, 5)
	a.Float64s(5)
	p.Put(a)

	b := p.Get()
	fu, iu := b.Used()
	assert.Zero(t, fu)
	assert.Zero(t, iu)
	p.Put(nil)
}
