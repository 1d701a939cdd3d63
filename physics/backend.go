package physics

import (
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/olivierh59500/trampoline-go/mesh"
)

// Backend holds the particle state of a loaded mesh and runs the two passes of a step over it.
type Backend interface {
	// Load replaces the backend's state with the particles, springs and constants of m. The backend
	// takes ownership of m's slices and shares its constants table.
	Load(m *mesh.Mesh)
	Loaded() bool
	// AccumulateSprings adds the force of every spring to both of its particles.
	AccumulateSprings()
	// Integrate advances every unlocked particle by dt and resets all forces.
	Integrate(dt, gravity float32)

	ParticleCount() int
	Particle(i int) mesh.Particle
	SetParticle(i int, p mesh.Particle)
	Constants() *mesh.Constants
	Springs() []mesh.Spring
	// Snapshot copies the particles into dst, growing it if needed, and returns it.
	Snapshot(dst []mesh.Particle) []mesh.Particle
}

// incident is one spring attached to a particle. sign is +1 if the particle is the spring's A end
// and -1 if it is the B end.
type incident struct {
	spring int32
	sign   float32
}

// CPUBackend runs both passes on goroutines over contiguous chunks of springs or particles.
type CPUBackend struct {
	workers int

	particles []mesh.Particle
	springs   []mesh.Spring
	consts    *mesh.Constants

	// forces holds the force of each spring computed in the first half of the spring pass.
	forces []mgl32.Vec3
	// offsets[i]:offsets[i+1] is the range of incidents belonging to particle i, in spring order.
	offsets   []int32
	incidents []incident
}

// NewCPUBackend returns a backend using the given number of goroutines per pass. A value of zero
// or less uses one per CPU.
func NewCPUBackend(workers int) *CPUBackend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &CPUBackend{workers: workers}
}

// Load ...
func (b *CPUBackend) Load(m *mesh.Mesh) {
	b.particles = m.Particles
	b.springs = m.Springs
	b.consts = m.Constants
	b.forces = make([]mgl32.Vec3, len(m.Springs))

	b.offsets = make([]int32, len(m.Particles)+1)
	for _, s := range m.Springs {
		b.offsets[s.A+1]++
		b.offsets[s.B+1]++
	}
	for i := 1; i < len(b.offsets); i++ {
		b.offsets[i] += b.offsets[i-1]
	}
	b.incidents = make([]incident, 2*len(m.Springs))
	fill := make([]int32, len(m.Particles))
	copy(fill, b.offsets[:len(m.Particles)])
	for i, s := range m.Springs {
		b.incidents[fill[s.A]] = incident{spring: int32(i), sign: 1}
		fill[s.A]++
		b.incidents[fill[s.B]] = incident{spring: int32(i), sign: -1}
		fill[s.B]++
	}
}

// Loaded ...
func (b *CPUBackend) Loaded() bool {
	return b.consts != nil
}

// AccumulateSprings computes the force of every spring once, then lets each particle sum the forces
// of its own springs. Each particle adds its springs in spring order, which gives the same result as
// applying the springs one after another.
func (b *CPUBackend) AccumulateSprings() {
	parallelFor(len(b.springs), b.workers, func(start, end int) {
		for i := start; i < end; i++ {
			b.forces[i] = b.springForce(b.springs[i])
		}
	})
	parallelFor(len(b.particles), b.workers, func(start, end int) {
		for i := start; i < end; i++ {
			f := b.particles[i].Force
			for _, inc := range b.incidents[b.offsets[i]:b.offsets[i+1]] {
				f = f.Add(b.forces[inc.spring].Mul(inc.sign))
			}
			b.particles[i].Force = f
		}
	})
}

// springForce returns the force the spring exerts on its A end. The B end receives the negation.
func (b *CPUBackend) springForce(s mesh.Spring) mgl32.Vec3 {
	p1, p2 := &b.particles[s.A], &b.particles[s.B]
	d := p2.Position.Sub(p1.Position)
	l := d.Len()
	if l == 0 {
		return mgl32.Vec3{}
	}
	stretch := l - s.RestLength
	k, c := b.consts.Get(s.Stiffness), b.consts.Get(s.Damping)
	return d.Normalize().Mul(k * stretch).Add(p2.Velocity.Sub(p1.Velocity).Mul(c))
}

// Integrate applies v += (F/m + g)·dt²/2 and x += v·dt to every unlocked particle, where g points
// down with the given magnitude. Locked particles keep their state, but their force is reset too.
func (b *CPUBackend) Integrate(dt, gravity float32) {
	g := mgl32.Vec3{0, -gravity, 0}
	h := dt * dt / 2
	parallelFor(len(b.particles), b.workers, func(start, end int) {
		for i := start; i < end; i++ {
			p := &b.particles[i]
			if !p.Locked {
				acc := mgl32.Vec3{p.Force[0] / p.Mass, p.Force[1] / p.Mass, p.Force[2] / p.Mass}.Add(g)
				p.Velocity = p.Velocity.Add(acc.Mul(h))
				p.Position = p.Position.Add(p.Velocity.Mul(dt))
			}
			p.Force = mgl32.Vec3{}
		}
	})
}

// ParticleCount ...
func (b *CPUBackend) ParticleCount() int {
	return len(b.particles)
}

// Particle ...
func (b *CPUBackend) Particle(i int) mesh.Particle {
	return b.particles[i]
}

// SetParticle ...
func (b *CPUBackend) SetParticle(i int, p mesh.Particle) {
	b.particles[i] = p
}

// Constants ...
func (b *CPUBackend) Constants() *mesh.Constants {
	return b.consts
}

// Springs ...
func (b *CPUBackend) Springs() []mesh.Spring {
	return b.springs
}

// Snapshot ...
func (b *CPUBackend) Snapshot(dst []mesh.Particle) []mesh.Particle {
	if cap(dst) < len(b.particles) {
		dst = make([]mesh.Particle, len(b.particles))
	}
	dst = dst[:len(b.particles)]
	copy(dst, b.particles)
	return dst
}
