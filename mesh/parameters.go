package mesh

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// ErrInvalidParameters is returned by Build when the parameters cannot describe a sheet.
var ErrInvalidParameters = errors.New("mesh: invalid parameters")

// Parameters describes a circular trampoline sheet.
type Parameters struct {
	// R1 is the radius of the frame the outer springs are anchored to.
	R1 float32
	// R2 is the radius of the jumping sheet itself.
	R2 float32
	// Fineness is the grid spacing.
	Fineness     float32
	ParticleMass float32
	OuterSprings int

	InnerSpringConstant float32
	InnerDamping        float32
	OuterSpringConstant float32
	OuterDamping        float32
	// OuterSpringLength is the rest length of the springs between the frame and the sheet.
	OuterSpringLength float32

	// ProbeParticles is the number of particles closest to the centre that are used for measurements.
	ProbeParticles int

	Noise Noise
}

// Noise displaces the initial height of the grid by perlin noise. A zero Amplitude disables it.
type Noise struct {
	Amplitude float64
	Alpha     float64
	Beta      float64
	Octaves   int32
	Seed      int64
}

// ParticleMassFor returns the mass of a grid particle for a sheet with an areal density of 0.26.
func ParticleMassFor(fineness float32) float32 {
	return 0.26 * fineness * fineness
}

// GridSize returns the number of particles along one side of the square grid the sheet is cut from.
func (p Parameters) GridSize() int {
	if p.Fineness <= 0 {
		return 0
	}
	return int(math32.Floor(2 * p.R1 / p.Fineness))
}

// Validate returns an error wrapping ErrInvalidParameters if the parameters are unusable.
func (p Parameters) Validate() error {
	switch {
	case p.R1 <= 0 || p.R2 <= 0:
		return fmt.Errorf("%w: radii must be positive (r1=%v, r2=%v)", ErrInvalidParameters, p.R1, p.R2)
	case p.R2 >= p.R1:
		return fmt.Errorf("%w: sheet radius %v must be smaller than frame radius %v", ErrInvalidParameters, p.R2, p.R1)
	case p.Fineness <= 0:
		return fmt.Errorf("%w: fineness must be positive, got %v", ErrInvalidParameters, p.Fineness)
	case p.GridSize() < 2:
		return fmt.Errorf("%w: grid of %d particles per side is too small", ErrInvalidParameters, p.GridSize())
	case p.ParticleMass <= 0:
		return fmt.Errorf("%w: particle mass must be positive, got %v", ErrInvalidParameters, p.ParticleMass)
	case p.OuterSprings <= 0:
		return fmt.Errorf("%w: at least one outer spring is required", ErrInvalidParameters)
	case p.OuterSpringLength < 0:
		return fmt.Errorf("%w: outer spring length must not be negative, got %v", ErrInvalidParameters, p.OuterSpringLength)
	case p.ProbeParticles < 0:
		return fmt.Errorf("%w: probe particle count must not be negative, got %d", ErrInvalidParameters, p.ProbeParticles)
	case p.Noise.Amplitude > 0 && p.Noise.Octaves <= 0:
		return fmt.Errorf("%w: noise needs at least one octave", ErrInvalidParameters)
	}
	return nil
}

// String returns the description written in front of exported data sets.
func (p Parameters) String() string {
	s := fmt.Sprintf("CircularTrampolineSheet{r1: %v, r2: %v, fineness: %v, particleMass: %v, n_outerSprings: %d, "+
		"innerSpringConstant: %v, innerVelConstant: %v, outerSpringConstant: %v, outerVelConstant: %v, "+
		"outerSpringLength: %v, n_dataParticles: %d",
		p.R1, p.R2, p.Fineness, p.ParticleMass, p.OuterSprings,
		p.InnerSpringConstant, p.InnerDamping, p.OuterSpringConstant, p.OuterDamping,
		p.OuterSpringLength, p.ProbeParticles)
	if p.Noise.Amplitude > 0 {
		s += fmt.Sprintf(", noise: {amplitude: %v, alpha: %v, beta: %v, octaves: %d, seed: %d}",
			p.Noise.Amplitude, p.Noise.Alpha, p.Noise.Beta, p.Noise.Octaves, p.Noise.Seed)
	}
	return s + "}"
}
