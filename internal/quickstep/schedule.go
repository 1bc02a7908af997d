package quickstep

import (
	"cmp"
	"math/rand"
	"slices"
)

// reorderMask makes shuffling happen every eight iterations.
const reorderMask = 7

// stepSeedStride separates the random streams of consecutive steps.
const stepSeedStride = 1_000_003

// initOrder places rows without friction coupling first, keeping their
// relative order, and coupled rows after them.
func (ctx *solverContext) initOrder() {
	j, k := 0, ctx.m-1
	for i := 0; i < ctx.m; i++ {
		if ctx.findex[i] < 0 {
			ctx.order[j] = i
			j++
		} else {
			ctx.order[k] = i
			k--
		}
	}
}

type span struct {
	start int
	end   int
}

// chunkSpans splits m ordered rows into n chunks of ceil(m/n) rows, each
// widened by overlap rows on both sides and clamped to [0, m). Empty chunks
// are dropped.
func chunkSpans(m, n, overlap int) []span {
	if m == 0 {
		return nil
	}
	n = max(1, min(n, m))
	size := (m + n - 1) / n
	spans := make([]span, 0, n)
	for k := 0; k < n; k++ {
		start := max(0, k*size-overlap)
		end := min(m, (k+1)*size+overlap)
		if k*size >= m {
			break
		}
		spans = append(spans, span{start: start, end: end})
	}
	return spans
}

func shuffle(seg []int, rng *rand.Rand) {
	for i := len(seg) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		seg[i], seg[j] = seg[j], seg[i]
	}
}

// sortByError orders uncoupled rows first, then by decreasing last
// multiplier change.
func sortByError(seg []int, findex []int, rowErr []float64) {
	slices.SortStableFunc(seg, func(a, b int) int {
		fa, fb := findex[a] < 0, findex[b] < 0
		if fa != fb {
			if fa {
				return -1
			}
			return 1
		}
		return cmp.Compare(rowErr[b], rowErr[a])
	})
}

// reorder applies the strategy's reordering for global iteration g.
func (ctx *solverContext) reorder(seg []int, g int, rng *rand.Rand, p *Parameters) {
	switch p.Strategy {
	case StrategySORByError:
		if g >= 2 {
			sortByError(seg, ctx.findex, ctx.rowErr)
		}
	default:
		if p.Reorder && g > 0 && g&reorderMask == 0 {
			shuffle(seg, rng)
		}
	}
}
