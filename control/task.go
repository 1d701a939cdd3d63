package control

import (
	"fmt"

	"github.com/olivierh59500/trampoline-go/assert"
	"github.com/olivierh59500/trampoline-go/mesh"
)

// TaskKind is the action a queued task performs.
type TaskKind uint8

const (
	// CollectSample records the probe height and the summed probe force.
	CollectSample TaskKind = iota
	MoveProbeUp
	MoveProbeDown
	// ToggleLock flips the lock of every probe.
	ToggleLock
	// EndDataSet exports the averaged samples.
	EndDataSet
	SetInnerSpringConstant
	SetInnerVelConstant
	SetOuterSpringConstant
	SetOuterVelConstant
)

// String ...
func (k TaskKind) String() string {
	switch k {
	case CollectSample:
		return "collect sample"
	case MoveProbeUp:
		return "move probe up"
	case MoveProbeDown:
		return "move probe down"
	case ToggleLock:
		return "toggle lock"
	case EndDataSet:
		return "end data set"
	case SetInnerSpringConstant:
		return "set inner spring constant"
	case SetInnerVelConstant:
		return "set inner velocity constant"
	case SetOuterSpringConstant:
		return "set outer spring constant"
	case SetOuterVelConstant:
		return "set outer velocity constant"
	}
	return fmt.Sprintf("task(%d)", uint8(k))
}

// slot returns the constants slot a Set task writes to.
func (k TaskKind) slot() (mesh.Slot, bool) {
	switch k {
	case SetInnerSpringConstant:
		return mesh.InnerSpring, true
	case SetInnerVelConstant:
		return mesh.InnerDamping, true
	case SetOuterSpringConstant:
		return mesh.OuterSpring, true
	case SetOuterVelConstant:
		return mesh.OuterDamping, true
	}
	return 0, false
}

// probe reports whether the task acts on the probe particles.
func (k TaskKind) probe() bool {
	switch k {
	case CollectSample, MoveProbeUp, MoveProbeDown, ToggleLock:
		return true
	}
	return false
}

// Task is a unit of work for the controller. Value is only used by the Set kinds.
type Task struct {
	Kind  TaskKind
	Value float32
}

// NewTask returns a task that takes no value.
func NewTask(kind TaskKind) Task {
	_, set := kind.slot()
	assert.IsTrue(!set, "%v requires a value", kind)
	return Task{Kind: kind}
}

// NewSetTask returns a task that overwrites a constant with v.
func NewSetTask(kind TaskKind, v float32) Task {
	_, set := kind.slot()
	assert.IsTrue(set, "%v does not take a value", kind)
	return Task{Kind: kind, Value: v}
}

// String ...
func (t Task) String() string {
	if _, ok := t.Kind.slot(); ok {
		return fmt.Sprintf("%v to %v", t.Kind, t.Value)
	}
	return t.Kind.String()
}
