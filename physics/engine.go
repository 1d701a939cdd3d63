package physics

import (
	"github.com/olivierh59500/trampoline-go/assert"
	"github.com/olivierh59500/trampoline-go/mesh"
)

// Hook runs between the spring pass and the integration pass of every step. It sees the forces of
// the current step and may change particles or constants before they are integrated.
type Hook interface {
	AfterSprings(dt float32, b Backend)
}

// Reading is the state of the observed probe particles after the spring pass of a step.
type Reading struct {
	// Height is the y coordinate of the first probe.
	Height float32
	// Force is the sum of the y components of the force on all probes.
	Force float32
}

// Engine advances a loaded mesh one step at a time.
type Engine struct {
	b    Backend
	hook Hook

	probes  []int
	observe func(Reading)

	steps int
}

// NewEngine ...
func NewEngine(b Backend) *Engine {
	return &Engine{b: b}
}

// Load hands m to the backend. m must describe a valid mesh.
func (e *Engine) Load(m *mesh.Mesh) {
	err := m.Validate()
	assert.IsTrue(err == nil, "cannot load mesh: %v", err)
	e.b.Load(m)
	e.steps = 0
}

// SetHook sets the hook called after the spring pass. A nil hook disables it.
func (e *Engine) SetHook(h Hook) {
	e.hook = h
}

// Observe calls fn with a reading of the probes after the hook of every step. A nil fn disables it.
func (e *Engine) Observe(probes []int, fn func(Reading)) {
	e.probes = probes
	e.observe = fn
}

// Backend ...
func (e *Engine) Backend() Backend {
	return e.b
}

// Steps returns the number of steps run since the last Load.
func (e *Engine) Steps() int {
	return e.steps
}

// Step runs the spring pass, the hook and the integration pass once with the timestep dt. The
// timestep is stored in the constants table before any pass runs.
func (e *Engine) Step(dt float32) {
	assert.IsTrue(e.b.Loaded(), "step called before a mesh was loaded")
	consts := e.b.Constants()
	consts.Set(mesh.Timestep, dt)

	e.b.AccumulateSprings()
	if e.hook != nil {
		e.hook.AfterSprings(dt, e.b)
	}
	if e.observe != nil && len(e.probes) > 0 {
		e.observe(e.read())
	}
	e.b.Integrate(dt, consts.Get(mesh.Gravity))
	e.steps++
}

func (e *Engine) read() Reading {
	var r Reading
	for i, idx := range e.probes {
		assert.IsTrue(idx >= 0 && idx < e.b.ParticleCount(), "probe index %d outside [0, %d)", idx, e.b.ParticleCount())
		p := e.b.Particle(idx)
		if i == 0 {
			r.Height = p.Position.Y()
		}
		r.Force += p.Force.Y()
	}
	return r
}
