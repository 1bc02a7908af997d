package quickstep

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitOrderUncoupledFirst(t *testing.T) {
	ctx := &solverContext{
		m:      6,
		findex: []int{-1, 0, 0, -1, 3, -1},
		order:  make([]int, 6),
	}
	ctx.initOrder()

	assert.Equal(t, []int{0, 3, 5}, ctx.order[:3])
	rest := slices.Clone(ctx.order[3:])
	slices.Sort(rest)
	assert.Equal(t, []int{1, 2, 4}, rest)
}

func TestChunkSpans(t *testing.T) {
	assert.Nil(t, chunkSpans(0, 4, 1))
	assert.Equal(t, []span{{0, 10}}, chunkSpans(10, 1, 3))
	assert.Equal(t, []span{{0, 4}, {4, 8}, {8, 10}}, chunkSpans(10, 3, 0))
	assert.Equal(t, []span{{0, 5}, {3, 9}, {7, 10}}, chunkSpans(10, 3, 1))

	// more chunks than rows collapses to one row per chunk
	assert.Len(t, chunkSpans(3, 8, 0), 3)
}

func TestShufflePermutes(t *testing.T) {
	seg := []int{0, 1, 2, 3, 4, 5, 6, 7}
	shuffle(seg, rand.New(rand.NewSource(1)))
	sorted := slices.Clone(seg)
	slices.Sort(sorted)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, sorted)
}

func TestSortByError(t *testing.T) {
	findex := []int{-1, 0, -1, 2}
	rowErr := []float64{0.1, 5, 0.7, 0.2}
	seg := []int{0, 1, 2, 3}
	sortByError(seg, findex, rowErr)
	assert.Equal(t, []int{2, 0, 1, 3}, seg)
}

func TestReorderSchedule(t *testing.T) {
	ctx := &solverContext{}
	p := DefaultParameters()
	rng := rand.New(rand.NewSource(3))
	seg := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	for g := 0; g < 8; g++ {
		ctx.reorder(seg, g, rng, &p)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, seg, "no shuffle before iteration 8")

	p.Reorder = false
	ctx.reorder(seg, 8, rng, &p)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, seg)
}
