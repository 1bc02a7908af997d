// Package world owns bodies and joints and drives the stepper over time.
package world

import (
	"io"
	"log/slog"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/quickstep/internal/joint"
	"github.com/san-kum/quickstep/internal/quickstep"
	"github.com/san-kum/quickstep/internal/rigid"
)

type Option func(*World)

func WithLogger(l *slog.Logger) Option {
	return func(w *World) {
		if l != nil {
			w.logger = l
		}
	}
}

func WithCollider(c Collider) Option {
	return func(w *World) { w.collider = c }
}

type World struct {
	settings Settings
	stepper  *quickstep.Stepper
	cache    *quickstep.LambdaCache
	collider Collider
	logger   *slog.Logger

	bodies   []*rigid.Body
	joints   []joint.Source
	contacts []joint.Source
	active   []joint.Source

	metrics   []Metric
	observers []Observer

	time  float64
	steps int
}

func New(stepper *quickstep.Stepper, settings Settings, opts ...Option) *World {
	w := &World{
		settings: settings,
		stepper:  stepper,
		cache:    quickstep.NewLambdaCache(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *World) AddBody(b ...*rigid.Body)    { w.bodies = append(w.bodies, b...) }
func (w *World) AddJoint(j ...joint.Source)  { w.joints = append(w.joints, j...) }
func (w *World) AddMetric(m Metric)          { w.metrics = append(w.metrics, m) }
func (w *World) AddObserver(o Observer)      { w.observers = append(w.observers, o) }
func (w *World) SetCollider(c Collider)      { w.collider = c }
func (w *World) Bodies() []*rigid.Body       { return w.bodies }
func (w *World) Joints() []joint.Source      { return w.joints }
func (w *World) Settings() Settings          { return w.settings }
func (w *World) Time() float64               { return w.time }
func (w *World) Stepper() *quickstep.Stepper { return w.stepper }

// Contacts returns the contact joints used by the last step.
func (w *World) Contacts() []joint.Source { return w.contacts }

// Cache exposes the warm-start multipliers.
func (w *World) Cache() *quickstep.LambdaCache { return w.cache }

// Body returns the first body with the given name, or nil.
func (w *World) Body(name string) *rigid.Body {
	for _, b := range w.bodies {
		if b.Name == name {
			return b
		}
	}
	return nil
}

func (w *World) env(h float64) quickstep.Env {
	return quickstep.Env{
		Step:             h,
		Gravity:          w.settings.Gravity,
		ERP:              w.settings.ERP,
		CFM:              w.settings.CFM,
		MaxCorrectingVel: w.settings.MaxCorrectingVel,
	}
}

// Step collides, solves and integrates one step of size h.
func (w *World) Step(h float64) quickstep.Stats {
	w.contacts = nil
	if w.collider != nil {
		w.contacts = w.collider.Collide(w.bodies)
	}
	w.active = append(append(w.active[:0], w.joints...), w.contacts...)

	var warm quickstep.WarmStore
	if w.settings.WarmStart {
		warm = w.cache
	}
	stats := w.stepper.Step(w.bodies, w.active, w.env(h), warm)
	if warm != nil {
		if n := w.cache.Sweep(); n > 0 {
			w.logger.Debug("warm cache swept", "evicted", n, "kept", w.cache.Len())
		}
	}
	w.time += h
	w.steps++
	return stats
}

// State flattens position and linear velocity of every body.
func (w *World) State() []float64 {
	s := make([]float64, 0, 6*len(w.bodies))
	for _, b := range w.bodies {
		s = append(s, b.Pos[0], b.Pos[1], b.Pos[2], b.LinVel[0], b.LinVel[1], b.LinVel[2])
	}
	return s
}

// StateLabels names the entries of State.
func (w *World) StateLabels() []string {
	labels := make([]string, 0, 6*len(w.bodies))
	for i, b := range w.bodies {
		name := b.Name
		if name == "" {
			name = "b" + strconv.Itoa(i)
		}
		for _, f := range [...]string{"x", "y", "z", "vx", "vy", "vz"} {
			labels = append(labels, name+"."+f)
		}
	}
	return labels
}

// Energy returns kinetic plus gravitational potential energy.
func (w *World) Energy() float64 {
	var e float64
	for _, b := range w.bodies {
		if b.IsStatic() {
			continue
		}
		e += b.KineticEnergy()
		if !b.NoGravity {
			e -= b.Mass() * w.settings.Gravity.Dot(b.Pos)
		}
	}
	return e
}

func (w *World) Momentum() mgl64.Vec3 {
	var p mgl64.Vec3
	for _, b := range w.bodies {
		p = p.Add(b.Momentum())
	}
	return p
}
