package mesh

import (
	"fmt"
	"io"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// link is a spring between two particles of the build arena, before trimming and remapping.
type link struct {
	a, b      int
	rest      float32
	stiffness Slot
	damping   Slot
}

// Build constructs a circular sheet from the parameters. The resulting particle slice holds the
// surviving grid particles in row-major order followed by the locked outer anchors.
func Build(p Parameters, log logrus.FieldLogger) (*Mesh, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	n := p.GridSize()

	log.WithField("size", n).Debug("initialising square grid")
	height := heightField(p.Noise)
	offset := float32(n-1) / 2
	positions := make([]mgl32.Vec3, n*n, n*n+p.OuterSprings)
	for row := 0; row < n; row++ {
		z := (float32(row) - offset) * p.Fineness
		for col := 0; col < n; col++ {
			x := (float32(col) - offset) * p.Fineness
			positions[row*n+col] = mgl32.Vec3{x, height(x, z), z}
		}
	}

	log.Debug("connecting grid particles")
	links := make([]link, 0, 2*n*(n-1))
	for row := 0; row < n; row++ {
		for col := 0; col < n-1; col++ {
			links = append(links, link{a: row*n + col, b: row*n + col + 1, rest: p.Fineness, stiffness: InnerSpring, damping: InnerDamping})
		}
	}
	for row := 0; row < n-1; row++ {
		for col := 0; col < n; col++ {
			links = append(links, link{a: row*n + col, b: (row+1)*n + col, rest: p.Fineness, stiffness: InnerSpring, damping: InnerDamping})
		}
	}

	log.WithField("radius", p.R2).Debug("trimming grid to circle")
	alive := make([]bool, n*n)
	for i, pos := range positions {
		alive[i] = math32.Sqrt(pos.X()*pos.X()+pos.Z()*pos.Z()) <= p.R2
	}

	log.Debug("searching inner edge particles")
	var edge []int
	for row := 0; row < n; row++ {
		edge = appendEnds(edge, alive, n, func(k int) int { return row*n + k })
	}
	for col := 0; col < n; col++ {
		edge = appendEnds(edge, alive, n, func(k int) int { return k*n + col })
	}
	edge = lo.Uniq(edge)
	if len(edge) == 0 {
		return nil, fmt.Errorf("%w: no grid particle lies within the sheet radius %v", ErrInvalidParameters, p.R2)
	}

	log.WithField("edge", len(edge)).Debug("connecting inner edge particles")
	for _, e := range edge {
		for _, o := range nearest(positions[e], edge, positions, 2, e) {
			links = append(links, link{a: e, b: o, rest: positions[o].Sub(positions[e]).Len(), stiffness: InnerSpring, damping: InnerDamping})
		}
	}

	log.WithField("anchors", p.OuterSprings).Debug("initialising outer edge particles")
	anchorStart := len(positions)
	for k := 0; k < p.OuterSprings; k++ {
		a := 2 * math32.Pi * float32(k) / float32(p.OuterSprings)
		positions = append(positions, mgl32.Vec3{p.R1 * math32.Sin(a), 0, p.R1 * math32.Cos(a)})
		alive = append(alive, true)
		target := nearest(positions[anchorStart+k], edge, positions, 1, -1)[0]
		links = append(links, link{a: anchorStart + k, b: target, rest: p.OuterSpringLength, stiffness: OuterSpring, damping: OuterDamping})
	}

	log.Debug("putting all particles together")
	final := make([]int, len(positions))
	m := &Mesh{Params: p}
	for i, pos := range positions {
		final[i] = -1
		if !alive[i] {
			continue
		}
		final[i] = len(m.Particles)
		if i == anchorStart {
			m.AnchorStart = final[i]
		}
		m.Particles = append(m.Particles, Particle{Position: pos, Mass: p.ParticleMass, Locked: i >= anchorStart})
	}
	m.Springs = make([]Spring, 0, len(links))
	for _, l := range links {
		a, b := final[l.a], final[l.b]
		if a < 0 || b < 0 || a == b {
			continue
		}
		m.Springs = append(m.Springs, Spring{A: int32(a), B: int32(b), RestLength: l.rest, Stiffness: l.stiffness, Damping: l.damping})
	}

	if p.ProbeParticles > len(m.Particles) {
		return nil, fmt.Errorf("%w: %d probe particles requested but the sheet only has %d particles",
			ErrInvalidParameters, p.ProbeParticles, len(m.Particles))
	}
	finalPositions := lo.Map(m.Particles, func(pt Particle, _ int) mgl32.Vec3 { return pt.Position })
	m.Probes = nearest(mgl32.Vec3{}, lo.Range(len(m.Particles)), finalPositions, p.ProbeParticles, -1)

	m.Constants = &Constants{}
	m.Constants.Set(InnerSpring, p.InnerSpringConstant)
	m.Constants.Set(InnerDamping, p.InnerDamping)
	m.Constants.Set(OuterSpring, p.OuterSpringConstant)
	m.Constants.Set(OuterDamping, p.OuterDamping)

	log.WithFields(logrus.Fields{
		"particles": len(m.Particles),
		"springs":   len(m.Springs),
		"probes":    len(m.Probes),
	}).Debug("completed circular sheet")
	return m, nil
}

// appendEnds appends the first and the last alive index of a grid line to edge. at maps a position
// along the line to an arena index.
func appendEnds(edge []int, alive []bool, n int, at func(k int) int) []int {
	first, last := -1, -1
	for k := 0; k < n; k++ {
		if alive[at(k)] {
			if first < 0 {
				first = at(k)
			}
			last = at(k)
		}
	}
	if first < 0 {
		return edge
	}
	return append(edge, first, last)
}
