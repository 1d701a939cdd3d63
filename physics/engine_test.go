package physics

import (
	"reflect"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/olivierh59500/trampoline-go/mesh"
)

type hookFunc func(dt float32, b Backend)

func (f hookFunc) AfterSprings(dt float32, b Backend) {
	f(dt, b)
}

// pair returns a mesh of two particles joined by one inner spring.
func pair(a, b mgl32.Vec3, rest float32) *mesh.Mesh {
	c := &mesh.Constants{}
	c.Set(mesh.InnerSpring, 3)
	c.Set(mesh.InnerDamping, 0.5)
	return &mesh.Mesh{
		Particles: []mesh.Particle{{Position: a, Mass: 1}, {Position: b, Mass: 1}},
		Springs:   []mesh.Spring{{A: 0, B: 1, RestLength: rest, Stiffness: mesh.InnerSpring, Damping: mesh.InnerDamping}},
		Constants: c,
	}
}

func sheet(t *testing.T, fineness float32, probes int) *mesh.Mesh {
	t.Helper()
	m, err := mesh.Build(mesh.Parameters{
		R1:                  1.65,
		R2:                  1.31,
		Fineness:            fineness,
		ParticleMass:        mesh.ParticleMassFor(fineness),
		OuterSprings:        72,
		InnerSpringConstant: 1,
		InnerDamping:        0.5,
		OuterSpringConstant: 2,
		OuterDamping:        1,
		OuterSpringLength:   0.17,
		ProbeParticles:      probes,
	}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return m
}

func finite(v mgl32.Vec3) bool {
	for _, x := range v {
		if math32.IsNaN(x) || math32.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func TestSpringForce(t *testing.T) {
	b := NewCPUBackend(1)
	b.Load(pair(mgl32.Vec3{}, mgl32.Vec3{2, 0, 0}, 1))
	b.particles[1].Velocity = mgl32.Vec3{0, 1, 0}
	b.AccumulateSprings()
	if f := b.Particle(0).Force; f != (mgl32.Vec3{3, 0.5, 0}) {
		t.Fatalf("expected (3, 0.5, 0) on the first particle, got %v", f)
	}
	if f := b.Particle(1).Force; f != (mgl32.Vec3{-3, -0.5, 0}) {
		t.Fatalf("expected (-3, -0.5, 0) on the second particle, got %v", f)
	}
}

func TestForcePairing(t *testing.T) {
	e := NewEngine(NewCPUBackend(1))
	e.Load(pair(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0.3, 0.4, 1.2}, 0.5))
	steps := 0
	e.SetHook(hookFunc(func(_ float32, b Backend) {
		f1, f2 := b.Particle(0).Force, b.Particle(1).Force
		if f1.Add(f2) != (mgl32.Vec3{}) {
			t.Fatalf("forces are not antiparallel and equal: %v, %v", f1, f2)
		}
		steps++
	}))
	for i := 0; i < 50; i++ {
		e.Step(0.01)
	}
	if steps != 50 {
		t.Fatalf("expected the hook to run 50 times, ran %d", steps)
	}
}

func TestLockedParticlesDoNotMove(t *testing.T) {
	m := sheet(t, 0.1, 1)
	for i := range m.Particles {
		m.Particles[i].Locked = true
	}
	before := make([]mesh.Particle, len(m.Particles))
	copy(before, m.Particles)

	e := NewEngine(NewCPUBackend(4))
	e.Load(m)
	e.Backend().Constants().Set(mesh.Gravity, 9.81)
	for i := 0; i < 100; i++ {
		e.Step(0.001)
	}
	after := e.Backend().Snapshot(nil)
	for i := range before {
		if after[i].Position != before[i].Position || after[i].Velocity != before[i].Velocity {
			t.Fatalf("locked particle %d moved from %v to %v", i, before[i].Position, after[i].Position)
		}
		if after[i].Force != (mgl32.Vec3{}) {
			t.Fatalf("force of locked particle %d was not reset", i)
		}
	}
}

func TestZeroLengthSpring(t *testing.T) {
	e := NewEngine(NewCPUBackend(1))
	e.Load(pair(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{1, 1, 1}, 0.1))
	e.Backend().Constants().Set(mesh.Gravity, 9.81)
	e.SetHook(hookFunc(func(_ float32, b Backend) {
		if f := b.Particle(0).Force; f != (mgl32.Vec3{}) {
			t.Fatalf("zero length spring produced force %v", f)
		}
	}))
	for i := 0; i < 1000; i++ {
		e.Step(0.01)
	}
	for _, p := range e.Backend().Snapshot(nil) {
		if !finite(p.Position) || !finite(p.Velocity) {
			t.Fatalf("particle state is not finite: %v, %v", p.Position, p.Velocity)
		}
	}
}

func TestConstantsAreShared(t *testing.T) {
	m := pair(mgl32.Vec3{}, mgl32.Vec3{2, 0, 0}, 1)
	m.Particles[0].Locked, m.Particles[1].Locked = true, true
	b := NewCPUBackend(1)
	b.Load(m)

	b.AccumulateSprings()
	first := b.Particle(0).Force
	b.Integrate(0.01, 0)

	m.Constants.Set(mesh.InnerSpring, 6)
	b.AccumulateSprings()
	if got := b.Particle(0).Force; got != first.Mul(2) {
		t.Fatalf("expected the doubled spring constant to double the force %v, got %v", first, got)
	}
}

func TestFreeFall(t *testing.T) {
	const (
		g  = float32(9.81)
		dt = float32(0.01)
	)
	c := &mesh.Constants{}
	c.Set(mesh.Gravity, g)
	e := NewEngine(NewCPUBackend(1))
	e.Load(&mesh.Mesh{Particles: []mesh.Particle{{Mass: 1}}, Constants: c})

	for n := 1; n <= 200; n++ {
		e.Step(dt)
		// v grows by g·dt²/2 every step and the position follows it, so y_n = -g·dt³·n(n+1)/4.
		want := -g * dt * dt * dt * float32(n*(n+1)) / 4
		got := e.Backend().Particle(0).Position.Y()
		if math32.Abs(got-want) > 1e-4*math32.Abs(want) {
			t.Fatalf("step %d: expected y=%v, got %v", n, want, got)
		}
	}
	if dt := e.Backend().Constants().Get(mesh.Timestep); dt != 0.01 {
		t.Fatalf("expected the timestep slot to hold 0.01, got %v", dt)
	}
}

func TestWorkerCountDoesNotChangeResult(t *testing.T) {
	run := func(workers int) []mesh.Particle {
		e := NewEngine(NewCPUBackend(workers))
		e.Load(sheet(t, 0.05, 1))
		e.Backend().Constants().Set(mesh.Gravity, 9.81)
		for i := 0; i < 20; i++ {
			e.Step(0.001)
		}
		return e.Backend().Snapshot(nil)
	}
	if !reflect.DeepEqual(run(1), run(4)) {
		t.Fatalf("parallel and sequential runs differ")
	}
}

func TestStepBeforeLoadPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic")
		}
	}()
	NewEngine(NewCPUBackend(1)).Step(0.01)
}

func TestLoadInvalidMeshPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic")
		}
	}()
	m := pair(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, 1)
	m.Springs[0].B = 5
	NewEngine(NewCPUBackend(1)).Load(m)
}

func TestEndToEndFreeFall(t *testing.T) {
	const (
		g  = float32(9.81)
		dt = float32(0.0001)
	)
	m := sheet(t, 0.03, 1)
	e := NewEngine(NewCPUBackend(0))
	e.Load(m)
	e.Backend().Constants().Set(mesh.Gravity, g)

	var heights []float32
	e.Observe(m.Probes, func(r Reading) {
		heights = append(heights, r.Height)
	})
	for i := 0; i < 1000; i++ {
		e.Step(dt)
	}
	if e.Steps() != 1000 || len(heights) != 1000 {
		t.Fatalf("expected 1000 steps and readings, got %d and %d", e.Steps(), len(heights))
	}
	for i := 1; i < len(heights); i++ {
		if heights[i] > heights[i-1] {
			t.Fatalf("probe rose from %v to %v at step %d", heights[i-1], heights[i], i)
		}
	}
	// The probe sits far from the rim, so it falls freely for at least the first steps. Reading n
	// is taken before the n-th integration.
	for n := 1; n <= 20; n++ {
		want := -g * dt * dt * dt * float32(n*(n+1)) / 4
		if got := heights[n]; math32.Abs(got-want) > 1e-3*math32.Abs(want) {
			t.Fatalf("step %d: expected free fall height %v, got %v", n, want, got)
		}
	}
	if final := e.Backend().Particle(m.Probes[0]).Position.Y(); final >= 0 {
		t.Fatalf("probe did not fall, final height %v", final)
	}
}
