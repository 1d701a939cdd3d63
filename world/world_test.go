package world

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/olivierh59500/trampoline-go/control"
	"github.com/olivierh59500/trampoline-go/export"
	"github.com/olivierh59500/trampoline-go/mesh"
	"github.com/sirupsen/logrus"
)

type counter struct{ exports int }

func (c *counter) Export(string, []export.Pair) error {
	c.exports++
	return nil
}

func testParameters() mesh.Parameters {
	return mesh.Parameters{
		R1:                  1.3125,
		R2:                  1,
		Fineness:            0.125,
		ParticleMass:        mesh.ParticleMassFor(0.125),
		OuterSprings:        24,
		InnerSpringConstant: 1,
		InnerDamping:        0.5,
		OuterSpringConstant: 2,
		OuterDamping:        1,
		OuterSpringLength:   0.17,
		ProbeParticles:      1,
	}
}

func wait(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(10 * time.Second):
		t.Fatalf("load did not finish")
	}
	return nil
}

func loaded(t *testing.T, cfg Config, ctrlCfg control.Config, exp control.Exporter) *World {
	t.Helper()
	w := New(cfg, control.New(nil, ctrlCfg, exp, nil), nil)
	if err := wait(t, w.LoadInBackground(testParameters())); err != nil {
		t.Fatalf("load: %v", err)
	}
	return w
}

func TestLoadInBackground(t *testing.T) {
	w := New(Config{Gravity: 9.81}, control.New(nil, control.Config{}, nil, nil), nil)
	if w.State() != Init {
		t.Fatalf("expected init state, got %v", w.State())
	}
	if w.Snapshot(nil) != nil {
		t.Fatalf("expected no particles before loading")
	}
	if err := wait(t, w.LoadInBackground(testParameters())); err != nil {
		t.Fatalf("load: %v", err)
	}
	if w.State() != Ready {
		t.Fatalf("expected ready state, got %v", w.State())
	}
	m, _ := mesh.Build(testParameters(), nil)
	if got := w.Snapshot(nil); !reflect.DeepEqual(got, m.Particles) {
		t.Fatalf("loaded particles differ from a fresh build")
	}
	if len(w.Springs()) != m.SpringCount() {
		t.Fatalf("expected %d springs, got %d", m.SpringCount(), len(w.Springs()))
	}
	if g := w.Constants().Get(mesh.Gravity); g != 9.81 {
		t.Fatalf("expected gravity 9.81, got %v", g)
	}
}

func TestLoadInvalidParameters(t *testing.T) {
	w := New(Config{}, control.New(nil, control.Config{}, nil, nil), nil)
	p := testParameters()
	p.OuterSprings = 0
	if err := wait(t, w.LoadInBackground(p)); !errors.Is(err, mesh.ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters, got %v", err)
	}
	if w.State() != Init {
		t.Fatalf("expected the state to stay init, got %v", w.State())
	}
}

func TestLoadAfterCrashedBuild(t *testing.T) {
	w := New(Config{}, control.New(nil, control.Config{}, nil, nil), nil)
	w.meshFor = func(mesh.Parameters, logrus.FieldLogger) (*mesh.Mesh, error) {
		panic("out of memory")
	}
	if err := wait(t, w.LoadInBackground(testParameters())); err == nil {
		t.Fatalf("expected the crashed build to be reported")
	}
	if w.State() != ParametersSet {
		t.Fatalf("expected parameters set after a crashed build, got %v", w.State())
	}

	w.meshFor = w.cache.Get
	if err := wait(t, w.LoadInBackground(testParameters())); err != nil {
		t.Fatalf("load after crash: %v", err)
	}
	if w.State() != Ready {
		t.Fatalf("expected ready state, got %v", w.State())
	}
}

func TestTickOnlyWhileRunning(t *testing.T) {
	w := loaded(t, Config{Gravity: 9.81, VirtualFrameTime: 0.01, StepsPerFrame: 4}, control.Config{}, nil)
	if n := w.Tick(0.5); n != 0 {
		t.Fatalf("ready world ran %d steps", n)
	}
	w.Start()
	if w.State() != Running {
		t.Fatalf("expected running state, got %v", w.State())
	}
	if n := w.Tick(0.5); n != 4 || w.Steps() != 4 {
		t.Fatalf("expected 4 steps, ran %d (%d in total)", n, w.Steps())
	}
	if vt := w.VirtualTime(); vt < 0.0099 || vt > 0.0101 {
		t.Fatalf("expected a virtual time of 0.01, got %v", vt)
	}
	w.Toggle()
	if w.State() != Ready {
		t.Fatalf("expected toggle to pause, got %v", w.State())
	}
}

func TestTickUsesRealTimeWithoutVirtualFrameTime(t *testing.T) {
	w := loaded(t, Config{StepsPerFrame: 2}, control.Config{}, nil)
	w.Start()
	w.Tick(0.02)
	if vt := w.VirtualTime(); vt < 0.0199 || vt > 0.0201 {
		t.Fatalf("expected a virtual time of 0.02, got %v", vt)
	}
}

func TestReset(t *testing.T) {
	w := loaded(t, Config{Gravity: 9.81, VirtualFrameTime: 0.01, StepsPerFrame: 5}, control.Config{Delta: 0.2}, nil)
	fresh := w.Snapshot(nil)
	w.Start()
	for i := 0; i < 10; i++ {
		w.Tick(0)
	}
	if reflect.DeepEqual(w.Snapshot(nil), fresh) {
		t.Fatalf("sheet did not move")
	}
	w.Controller().Enqueue(control.NewTask(control.MoveProbeUp))

	w.Reset(true)
	if w.State() != Ready {
		t.Fatalf("expected reset to pause the world, got %v", w.State())
	}
	if w.VirtualTime() != 0 || w.Steps() != 0 {
		t.Fatalf("virtual time or step count was not reset")
	}
	if w.Controller().Pending() != 0 {
		t.Fatalf("queued tasks survived the reset")
	}
	if !reflect.DeepEqual(w.Snapshot(nil), fresh) {
		t.Fatalf("reset did not restore the initial sheet")
	}
}

func TestSweepRestarts(t *testing.T) {
	exp := &counter{}
	w := loaded(t,
		Config{VirtualFrameTime: 0.01, StepsPerFrame: 1, RepeatSweeps: true},
		control.Config{Delta: 0.2, Floor: -0.3, Latency: 0.01},
		exp,
	)
	w.StartAutonomous()
	if w.Controller().State() != control.Autonomous {
		t.Fatalf("expected an autonomous sweep")
	}
	for i := 0; i < 10 && exp.exports == 0; i++ {
		w.Tick(0)
	}
	if exp.exports != 1 {
		t.Fatalf("expected the sweep to end once, got %d exports", exp.exports)
	}
	if w.State() != Running || w.Controller().State() != control.Autonomous {
		t.Fatalf("expected a new sweep, got world %v and controller %v", w.State(), w.Controller().State())
	}
	m, _ := mesh.Build(testParameters(), nil)
	if y := w.Snapshot(nil)[m.Probes[0]].Position.Y(); y != 0 {
		t.Fatalf("expected the probe back at its initial height, got %v", y)
	}
}

func TestSetGravity(t *testing.T) {
	w := loaded(t, Config{Gravity: 9.81}, control.Config{}, nil)
	w.SetGravity(false)
	if w.GravityOn() || w.Constants().Get(mesh.Gravity) != 0 {
		t.Fatalf("gravity was not turned off")
	}
	w.Reset(false)
	if w.Constants().Get(mesh.Gravity) != 0 {
		t.Fatalf("reset turned gravity back on")
	}
	w.SetGravity(true)
	if w.Constants().Get(mesh.Gravity) != 9.81 {
		t.Fatalf("gravity was not turned back on")
	}
}
