package mesh

import (
	"github.com/chewxy/math32"
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/olivierh59500/trampoline-go/oerror"
)

// Mesh owns the particles, springs and constants of one built sheet. Spring and probe indices are
// only meaningful for the particle slice of the same Mesh.
type Mesh struct {
	Particles []Particle
	Springs   []Spring
	Constants *Constants
	// Probes holds the indices of the particles closest to the centre, nearest first.
	Probes []int
	// AnchorStart is the index of the first outer anchor. Every particle from there on is an anchor.
	AnchorStart int
	Params      Parameters
}

// ParticleCount ...
func (m *Mesh) ParticleCount() int {
	return len(m.Particles)
}

// SpringCount ...
func (m *Mesh) SpringCount() int {
	return len(m.Springs)
}

// Validate checks that every spring and probe references an existing particle and that no spring
// connects a particle to itself.
func (m *Mesh) Validate() error {
	n := int32(len(m.Particles))
	for i, s := range m.Springs {
		if s.A < 0 || s.A >= n || s.B < 0 || s.B >= n {
			return oerror.New("spring %d references particle outside [0, %d): %d-%d", i, n, s.A, s.B)
		}
		if s.A == s.B {
			return oerror.New("spring %d connects particle %d to itself", i, s.A)
		}
		if s.RestLength < 0 {
			return oerror.New("spring %d has negative rest length %v", i, s.RestLength)
		}
	}
	for _, p := range m.Probes {
		if p < 0 || p >= len(m.Particles) {
			return oerror.New("probe index %d outside [0, %d)", p, len(m.Particles))
		}
	}
	if m.Constants == nil {
		return oerror.New("mesh has no constants table")
	}
	return nil
}

// Clone returns a deep copy of the mesh with its own constants table.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Particles:   make([]Particle, len(m.Particles)),
		Springs:     make([]Spring, len(m.Springs)),
		Probes:      make([]int, len(m.Probes)),
		AnchorStart: m.AnchorStart,
		Params:      m.Params,
	}
	copy(c.Particles, m.Particles)
	copy(c.Springs, m.Springs)
	copy(c.Probes, m.Probes)
	if m.Constants != nil {
		consts := *m.Constants
		c.Constants = &consts
	}
	return c
}

// Bounds returns the box enclosing every particle of the mesh.
func (m *Mesh) Bounds() cube.BBox {
	if len(m.Particles) == 0 {
		return cube.Box(0, 0, 0, 0, 0, 0)
	}
	lo, hi := m.Particles[0].Position, m.Particles[0].Position
	for _, p := range m.Particles[1:] {
		for i := 0; i < 3; i++ {
			lo[i] = math32.Min(lo[i], p.Position[i])
			hi[i] = math32.Max(hi[i], p.Position[i])
		}
	}
	return cube.Box(lo[0], lo[1], lo[2], hi[0], hi[1], hi[2])
}
