// Package scenario builds ready-to-run scenes by name.
package scenario

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/quickstep/internal/joint"
	"github.com/san-kum/quickstep/internal/rigid"
	"github.com/san-kum/quickstep/internal/world"
)

var ErrUnknown = errors.New("scenario: unknown scenario")

// Params are free-form numeric scenario knobs, read with defaults.
type Params map[string]float64

func (p Params) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

func (p Params) Int(key string, def int) int {
	return int(p.Get(key, float64(def)))
}

// Scene is the body and joint set a scenario produces.
type Scene struct {
	Bodies   []*rigid.Body
	Joints   []joint.Source
	Collider world.Collider
}

// Populate adds the scene to w.
func (s *Scene) Populate(w *world.World) {
	w.AddBody(s.Bodies...)
	w.AddJoint(s.Joints...)
	if s.Collider != nil {
		w.SetCollider(s.Collider)
	}
}

type Builder func(p Params) (*Scene, error)

type entry struct {
	build       Builder
	description string
}

type Registry struct {
	scenarios map[string]entry
}

func NewRegistry() *Registry {
	r := &Registry{scenarios: make(map[string]entry)}
	r.Register("pair", "two spheres spinning on a distance joint", buildPair)
	r.Register("chain", "ball-jointed pendulum chain hanging from the world", buildChain)
	r.Register("hinge", "box on a motorised hinge", buildHinge)
	r.Register("pile", "spheres dropped onto a frictional ground plane", buildPile)
	return r
}

func (r *Registry) Register(name, description string, b Builder) {
	r.scenarios[name] = entry{build: b, description: description}
}

func (r *Registry) Build(name string, p Params) (*Scene, error) {
	e, ok := r.scenarios[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	return e.build(p)
}

func (r *Registry) Describe(name string) string {
	return r.scenarios[name].description
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
