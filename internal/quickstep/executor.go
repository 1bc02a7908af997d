package quickstep

import (
	"golang.org/x/sync/errgroup"
)

// executor runs chunk tasks with a bounded number of goroutines and waits
// for all of them.
type executor struct {
	workers int
}

func (e executor) each(n int, fn func(k int)) {
	if e.workers <= 1 || n <= 1 {
		for k := 0; k < n; k++ {
			fn(k)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(e.workers)
	for k := 0; k < n; k++ {
		g.Go(func() error {
			fn(k)
			return nil
		})
	}
	_ = g.Wait()
}
