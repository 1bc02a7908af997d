package quickstep

import (
	"io"
	"log/slog"
	"math"
	"math/rand"

	"github.com/san-kum/quickstep/internal/arena"
	"github.com/san-kum/quickstep/internal/joint"
	"github.com/san-kum/quickstep/internal/rigid"
)

var defaultPool = arena.NewPool()

type Option func(*Stepper)

func WithLogger(l *slog.Logger) Option {
	return func(s *Stepper) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithArena makes the stepper reuse a caller-owned arena instead of drawing
// one from the shared pool.
func WithArena(a *arena.Arena) Option {
	return func(s *Stepper) { s.arena = a }
}

func WithRowHook(h RowHook) Option {
	return func(s *Stepper) { s.hook = h }
}

// Stepper advances a set of bodies and joints by one time step. A Stepper
// is not safe for concurrent use; run one per world.
type Stepper struct {
	params Parameters
	logger *slog.Logger
	arena  *arena.Arena
	hook   RowHook
	exec   executor

	active []activeJoint
	chunks []chunkState
	steps  int64
}

func New(p Parameters, opts ...Option) (*Stepper, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Stepper{
		params: p,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		exec:   executor{workers: p.workers()},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Stepper) Parameters() Parameters { return s.params }

// Steps reports how many steps have been taken.
func (s *Stepper) Steps() int64 { return s.steps }

// Step advances bodies by env.Step under the rows produced by joints. warm
// may be nil. Bodies referenced by a joint must be in bodies; their Tag
// fields are overwritten.
func (s *Stepper) Step(bodies []*rigid.Body, joints []joint.Source, env Env, warm WarmStore) Stats {
	if !(env.Step > 0) || math.IsInf(env.Step, 1) {
		panic(contractf("step size must be positive and finite, got %g", env.Step))
	}
	for i, b := range bodies {
		b.Tag = i
	}
	m, mfb := s.gatherJoints(bodies, joints)

	a := s.arena
	if a == nil {
		a = defaultPool.Get()
		defer defaultPool.Put(a)
	}
	floats, ints := scratchSize(m, len(bodies), mfb, s.params.Strategy == StrategyCG)
	a.Reserve(floats, ints)
	mark := a.Begin()
	defer a.End(mark)

	ctx := newSolverContext(a, bodies, m, mfb, env.Step)

	// Rows are collected before any body is touched so that a contract
	// panic leaves the accumulators as the caller set them.
	warmed := 0
	if m > 0 {
		ctx.collect(env, s.active)
		if warm != nil {
			warmed = ctx.loadWarm(warm, s.active)
		}
	}
	ctx.prepareBodies(env.Gravity)

	stats := Stats{Bodies: len(bodies), Joints: len(s.active), Rows: m}
	if m > 0 {
		ctx.buildRHS(a)
		ctx.precondition(s.params.W)
		ctx.initOrder()

		if s.params.Strategy == StrategyCG {
			res := ctx.solveCG(a, &s.params, s.hook)
			stats.Iterations = res.iterations
			stats.RMS = res.residual
			stats.Converged = res.converged
		} else {
			s.solveSOR(ctx, &stats)
			ctx.project()
		}

		ctx.feedback(s.active)
		if warm != nil {
			ctx.storeWarm(warm, s.active)
		}
		s.logger.Debug("quickstep solve",
			"step", s.steps,
			"rows", m,
			"joints", len(s.active),
			"warm", warmed,
			"iterations", stats.Iterations,
			"rms", stats.RMS,
			"converged", stats.Converged)
	} else {
		stats.Converged = true
	}
	ctx.integrate(s.params.Penetration)
	s.steps++
	return stats
}

// solveSOR runs the preconditioned phase, the barrier that converts its
// forces into accelerations, and the unconditioned phase.
func (s *Stepper) solveSOR(ctx *solverContext, stats *Stats) {
	p := &s.params
	s.chunks = s.chunks[:0]
	for k, sp := range chunkSpans(ctx.m, p.Chunks, p.Overlap) {
		seed := p.Seed + s.steps*stepSeedStride + int64(k)
		s.chunks = append(s.chunks, chunkState{span: sp, rng: rand.New(rand.NewSource(seed))})
	}

	precon := p.PreconIterations > 0
	ctx.applyWarm(precon)

	preconConverged := p.Tolerance > 0
	if precon {
		s.exec.each(len(s.chunks), func(k int) {
			ctx.sweep(&s.chunks[k], phasePrecon, 0, p.PreconIterations, p, s.hook)
		})
		for k := range s.chunks {
			stats.PreconIterations = max(stats.PreconIterations, s.chunks[k].iterations)
			preconConverged = preconConverged && s.chunks[k].converged
			s.chunks[k].iterations = 0
			s.chunks[k].converged = false
		}
		ctx.forceToAccel()
	}

	if p.Iterations > 0 {
		s.exec.each(len(s.chunks), func(k int) {
			ctx.sweep(&s.chunks[k], phaseUncond, p.PreconIterations, p.Iterations, p, s.hook)
		})
	}

	var sumSq float64
	var count, iters int
	converged := p.Tolerance > 0
	for k := range s.chunks {
		cs := &s.chunks[k]
		sumSq += cs.sumSq
		count += cs.count
		iters = max(iters, cs.iterations)
		if p.Iterations > 0 && !cs.converged {
			converged = false
		}
	}
	if p.Iterations == 0 {
		converged = preconConverged
	}
	stats.Iterations = stats.PreconIterations + iters
	if count > 0 {
		stats.RMS = math.Sqrt(sumSq / float64(count))
	}
	stats.Converged = converged
}
