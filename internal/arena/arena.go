// Package arena provides the per-step scratch allocator used by the solver.
//
// An [Arena] hands out zeroed float64 and int views from two preallocated
// slabs. Allocations follow stack discipline: [Arena.Begin] returns a [Mark]
// and [Arena.End] releases everything allocated after it. Marks must be ended
// in reverse order of creation.
//
// Capacity is fixed by [Arena.Reserve] before the first allocation of a step.
// Running past it is a sizing bug in the caller and panics with [ErrExhausted].
//
// An Arena is not safe for concurrent mutation. Slices it hands out may be
// read and written from many goroutines once allocation is finished.
package arena

import (
	"errors"
	"fmt"
)

var (
	// ErrExhausted indicates an allocation larger than the reserved capacity.
	ErrExhausted = errors.New("arena: exhausted")

	// ErrMarkOrder indicates a Mark ended out of LIFO order.
	ErrMarkOrder = errors.New("arena: mark ended out of order")

	// ErrBusy indicates Reserve was called while allocations are live.
	ErrBusy = errors.New("arena: reserve with live allocations")
)

// Mark records the arena tops at the time Begin was called.
type Mark struct {
	floats int
	ints   int
	depth  int
}

type Arena struct {
	floats []float64
	ints   []int
	fTop   int
	iTop   int
	depth  int

	// high-water marks, useful for sizing checks
	fPeak int
	iPeak int
}

func New(floats, ints int) *Arena {
	return &Arena{
		floats: make([]float64, floats),
		ints:   make([]int, ints),
	}
}

// Reserve makes sure at least the given capacity is available. Existing
// storage is reused when large enough.
func (a *Arena) Reserve(floats, ints int) {
	if a.fTop != 0 || a.iTop != 0 || a.depth != 0 {
		panic(ErrBusy)
	}
	if floats > len(a.floats) {
		a.floats = make([]float64, floats)
	}
	if ints > len(a.ints) {
		a.ints = make([]int, ints)
	}
	a.fPeak, a.iPeak = 0, 0
}

func (a *Arena) Begin() Mark {
	a.depth++
	return Mark{floats: a.fTop, ints: a.iTop, depth: a.depth}
}

func (a *Arena) End(m Mark) {
	if m.depth != a.depth {
		panic(fmt.Errorf("%w: depth %d, innermost %d", ErrMarkOrder, m.depth, a.depth))
	}
	a.fTop, a.iTop = m.floats, m.ints
	a.depth--
}

// Scope runs fn between Begin and End.
func (a *Arena) Scope(fn func()) {
	m := a.Begin()
	defer a.End(m)
	fn()
}

func (a *Arena) Float64s(n int) []float64 {
	if n < 0 || a.fTop+n > len(a.floats) {
		panic(fmt.Errorf("%w: want %d floats, %d of %d in use", ErrExhausted, n, a.fTop, len(a.floats)))
	}
	s := a.floats[a.fTop : a.fTop+n : a.fTop+n]
	clear(s)
	a.fTop += n
	a.fPeak = max(a.fPeak, a.fTop)
	return s
}

func (a *Arena) Ints(n int) []int {
	if n < 0 || a.iTop+n > len(a.ints) {
		panic(fmt.Errorf("%w: want %d ints, %d of %d in use", ErrExhausted, n, a.iTop, len(a.ints)))
	}
	s := a.ints[a.iTop : a.iTop+n : a.iTop+n]
	clear(s)
	a.iTop += n
	a.iPeak = max(a.iPeak, a.iTop)
	return s
}

// Used reports the current tops.
func (a *Arena) Used() (floats, ints int) { return a.fTop, a.iTop }

// Peak reports the high-water marks since the last Reserve.
func (a *Arena) Peak() (floats, ints int) { return a.fPeak, a.iPeak }

// Cap reports the reserved capacity.
func (a *Arena) Cap() (floats, ints int) { return len(a.floats), len(a.ints) }

// Reset drops every allocation and open mark.
func (a *Arena) Reset() {
	a.fTop, a.iTop, a.depth = 0, 0, 0
}
