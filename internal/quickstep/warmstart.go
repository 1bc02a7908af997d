package quickstep

import "github.com/san-kum/quickstep/internal/joint"

// WarmStore supplies and receives per-joint multipliers across steps.
// Load returns nil, or a slice whose length does not match the joint's
// current row count, for a cold start. Store must copy lambda.
type WarmStore interface {
	Load(j joint.Source) []float64
	Store(j joint.Source, lambda []float64)
}

type cacheEntry struct {
	lambda []float64
	seen   bool
}

// LambdaCache is a WarmStore keyed by joint identity. Joints must have
// comparable dynamic types; pointer joints always are.
//
// Call Sweep once per step, after the solve, to forget joints that were not
// stored since the previous sweep, such as vanished contacts.
type LambdaCache struct {
	entries map[joint.Source]*cacheEntry
}

func NewLambdaCache() *LambdaCache {
	return &LambdaCache{entries: make(map[joint.Source]*cacheEntry)}
}

func (c *LambdaCache) Load(j joint.Source) []float64 {
	if e, ok := c.entries[j]; ok {
		return e.lambda
	}
	return nil
}

func (c *LambdaCache) Store(j joint.Source, lambda []float64) {
	e, ok := c.entries[j]
	if !ok {
		e = &cacheEntry{}
		c.entries[j] = e
	}
	e.lambda = append(e.lambda[:0], lambda...)
	e.seen = true
}

// Lambda returns a copy of the cached multipliers for j.
func (c *LambdaCache) Lambda(j joint.Source) []float64 {
	l := c.Load(j)
	if l == nil {
		return nil
	}
	return append([]float64(nil), l...)
}

// Sweep drops entries not stored since the previous sweep and reports how
// many were dropped.
func (c *LambdaCache) Sweep() int {
	n := 0
	for j, e := range c.entries {
		if !e.seen {
			delete(c.entries, j)
			n++
			continue
		}
		e.seen = false
	}
	return n
}

func (c *LambdaCache) Len() int { return len(c.entries) }

func (c *LambdaCache) Reset() { clear(c.entries) }

func (ctx *solverContext) loadWarm(w WarmStore, joints []activeJoint) int {
	n := 0
	for _, aj := range joints {
		if l := w.Load(aj.src); len(l) == aj.m {
			copy(ctx.lambda[aj.ofs:aj.ofs+aj.m], l)
			n++
		}
	}
	return n
}

func (ctx *solverContext) storeWarm(w WarmStore, joints []activeJoint) {
	for _, aj := range joints {
		w.Store(aj.src, ctx.lambda[aj.ofs:aj.ofs+aj.m])
	}
}
