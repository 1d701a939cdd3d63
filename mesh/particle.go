package mesh

import "github.com/go-gl/mathgl/mgl32"

// Particle is a single mass point of the sheet.
type Particle struct {
	Position mgl32.Vec3
	Velocity mgl32.Vec3
	// Force accumulates spring forces during a step and is cleared after integration.
	Force mgl32.Vec3
	Mass  float32
	// Locked particles keep their position and velocity but still accumulate force.
	Locked bool
}

// Spring connects the particles at indices A and B. Its coefficients are not stored on the spring
// itself but looked up in the mesh's Constants table, so tuning a slot affects every spring using it.
type Spring struct {
	A, B       int32
	RestLength float32
	Stiffness  Slot
	Damping    Slot
}

// Slot names a value in the Constants table.
type Slot uint8

const (
	InnerSpring Slot = iota
	InnerDamping
	OuterSpring
	OuterDamping
	Timestep
	Gravity

	slotCount
)

// String ...
func (s Slot) String() string {
	switch s {
	case InnerSpring:
		return "inner spring constant"
	case InnerDamping:
		return "inner damping"
	case OuterSpring:
		return "outer spring constant"
	case OuterDamping:
		return "outer damping"
	case Timestep:
		return "timestep"
	case Gravity:
		return "gravity"
	}
	return "unknown"
}

// Constants is the coefficient table shared by reference between all springs of a mesh.
type Constants struct {
	values [slotCount]float32
}

// Get returns the current value of the slot.
func (c *Constants) Get(s Slot) float32 {
	return c.values[s]
}

// Set overwrites the slot. Every spring referencing the slot picks up the new value on the next step.
func (c *Constants) Set(s Slot, v float32) {
	c.values[s] = v
}

// Values returns a copy of all slot values in slot order.
func (c *Constants) Values() []float32 {
	out := make([]float32, slotCount)
	copy(out, c.values[:])
	return out
}
