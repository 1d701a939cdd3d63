package mesh

import "github.com/aquilax/go-perlin"

// heightField returns the initial height of a grid particle at (x, z).
func heightField(n Noise) func(x, z float32) float32 {
	if n.Amplitude <= 0 {
		return func(float32, float32) float32 { return 0 }
	}
	p := perlin.NewPerlin(n.Alpha, n.Beta, n.Octaves, n.Seed)
	return func(x, z float32) float32 {
		return float32(n.Amplitude * p.Noise2D(float64(x), float64(z)))
	}
}
