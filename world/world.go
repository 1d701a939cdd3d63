package world

import (
	"io"
	"sync"

	"github.com/ethaniccc/float32-cube/cube"
	"github.com/olivierh59500/trampoline-go/control"
	"github.com/olivierh59500/trampoline-go/mesh"
	"github.com/olivierh59500/trampoline-go/oerror"
	"github.com/olivierh59500/trampoline-go/physics"
	"github.com/olivierh59500/trampoline-go/worker"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// State is the lifecycle state of the simulated sheet.
type State int32

const (
	Init State = iota
	ParametersSet
	Loading
	Ready
	Running
)

// String ...
func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case ParametersSet:
		return "parameters set"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Running:
		return "running"
	}
	return "unknown"
}

// Config holds the settings of the step loop.
type Config struct {
	Gravity float32
	// VirtualFrameTime is the simulated time per frame. Zero uses the real frame time instead.
	VirtualFrameTime float32
	// StepsPerFrame splits every frame into this many steps of equal length.
	StepsPerFrame int
	Workers       int
	// RepeatSweeps starts a new sweep every time a sweep reached the floor.
	RepeatSweeps bool
}

// World owns the loaded sheet, the physics engine and the measurement controller, and decides when
// the sheet is stepped, reset or reloaded.
type World struct {
	cfg   Config
	log   logrus.FieldLogger
	cache *mesh.Cache
	ctrl  *control.Controller
	// meshFor returns a fresh sheet for the parameters. It reads from the cache.
	meshFor func(mesh.Parameters, logrus.FieldLogger) (*mesh.Mesh, error)

	state   atomic.Int32
	gravity atomic.Bool

	// mu serialises steps, resets and loads.
	mu             sync.Mutex
	engine         *physics.Engine
	params         mesh.Parameters
	bounds         cube.BBox
	probes         []int
	virtualTime    float64
	pendingRestart bool
}

// New returns a world in the Init state. The controller is hooked between the passes of every step.
func New(cfg Config, ctrl *control.Controller, log logrus.FieldLogger) *World {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	if cfg.StepsPerFrame <= 0 {
		cfg.StepsPerFrame = 1
	}
	w := &World{
		cfg:    cfg,
		log:    log,
		cache:  mesh.NewCache(),
		ctrl:   ctrl,
		engine: physics.NewEngine(physics.NewCPUBackend(cfg.Workers)),
	}
	w.meshFor = w.cache.Get
	w.gravity.Store(true)
	w.engine.SetHook(ctrl)
	// Called from within a step, so the restart itself waits until the step is done.
	ctrl.OnSweepEnd(func() { w.pendingRestart = true })
	return w
}

// State ...
func (w *World) State() State {
	return State(w.state.Load())
}

func (w *World) setState(s State) {
	if old := State(w.state.Swap(int32(s))); old != s {
		w.log.WithFields(logrus.Fields{"from": old, "to": s}).Info("world state changed")
	}
}

// Controller ...
func (w *World) Controller() *control.Controller {
	return w.ctrl
}

// LoadInBackground builds the sheet described by p on a worker and installs it once it is complete.
// The returned channel receives the result of the load.
func (w *World) LoadInBackground(p mesh.Parameters) <-chan error {
	if err := p.Validate(); err != nil {
		return failed(err)
	}
	if w.State() == Loading {
		return failed(oerror.New("a sheet is already being loaded"))
	}
	w.mu.Lock()
	w.params = p
	w.mu.Unlock()
	w.setState(ParametersSet)
	w.setState(Loading)

	return worker.Go(func() error {
		// Leaves Loading on every way out, a crashed build included.
		defer func() {
			if w.State() == Loading {
				w.setState(ParametersSet)
			}
		}()
		m, err := w.meshFor(p, w.log)
		if err != nil {
			return err
		}
		func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			w.install(m)
		}()
		w.setState(Ready)
		w.log.WithFields(logrus.Fields{
			"particles": m.ParticleCount(),
			"springs":   m.SpringCount(),
		}).Info("sheet loaded")
		return nil
	})
}

func failed(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	return ch
}

// install hands m to the engine and points the controller at its probes. w.mu must be held.
func (w *World) install(m *mesh.Mesh) {
	w.engine.Load(m)
	w.applyGravity()
	w.bounds = m.Bounds()
	w.probes = m.Probes
	w.pendingRestart = false
	w.ctrl.SetProbes(m.Probes)
	w.ctrl.SetDescription(m.Params.String())
	w.ctrl.Reset()
}

func (w *World) applyGravity() {
	g := float32(0)
	if w.gravity.Load() {
		g = w.cfg.Gravity
	}
	w.engine.Backend().Constants().Set(mesh.Gravity, g)
}

// Start runs the simulation on the following ticks. It has no effect unless a sheet is loaded.
func (w *World) Start() {
	if w.state.CompareAndSwap(int32(Ready), int32(Running)) {
		w.log.WithFields(logrus.Fields{"from": Ready, "to": Running}).Info("world state changed")
	}
}

// Stop pauses the simulation.
func (w *World) Stop() {
	if w.state.CompareAndSwap(int32(Running), int32(Ready)) {
		w.log.WithFields(logrus.Fields{"from": Running, "to": Ready}).Info("world state changed")
	}
}

// Toggle starts a paused simulation or pauses a running one.
func (w *World) Toggle() {
	if w.State() == Running {
		w.Stop()
		return
	}
	w.Start()
}

// Tick advances a running simulation by one frame and returns the number of steps it ran. realDt
// is the wall clock time since the last frame and is only used without a virtual frame time.
func (w *World) Tick(realDt float32) int {
	if w.State() != Running {
		return 0
	}
	frame := w.cfg.VirtualFrameTime
	if frame <= 0 {
		frame = realDt
	}
	if frame <= 0 {
		return 0
	}
	dt := frame / float32(w.cfg.StepsPerFrame)

	w.mu.Lock()
	steps := 0
	for ; steps < w.cfg.StepsPerFrame && !w.pendingRestart; steps++ {
		w.engine.Step(dt)
		w.virtualTime += float64(dt)
	}
	restart := w.pendingRestart
	w.mu.Unlock()

	if restart {
		w.restartSweep()
	}
	return steps
}

// restartSweep reloads the sheet after a sweep reached the floor and starts the next one if enabled.
func (w *World) restartSweep() {
	w.Reset(false)
	if !w.cfg.RepeatSweeps {
		return
	}
	w.Start()
	w.ctrl.StartAutonomous()
}

// Reset waits for a running step to finish, replaces the sheet with a fresh copy of the one last
// loaded and discards all queued controller tasks. The simulation is paused afterwards.
func (w *World) Reset(resetVirtualTime bool) {
	s := w.State()
	if s != Ready && s != Running {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	m, err := w.meshFor(w.params, w.log)
	if err != nil {
		// The parameters were built successfully before, so this only fails if the cache is broken.
		w.log.WithError(err).Error("unable to reload sheet")
		return
	}
	w.install(m)
	if resetVirtualTime {
		w.virtualTime = 0
	}
	w.Stop()
	w.log.Debug("sheet reset")
}

// StartAutonomous resets the sheet, runs it and starts a measurement sweep.
func (w *World) StartAutonomous() {
	w.Reset(false)
	w.Start()
	if w.State() == Running {
		w.ctrl.StartAutonomous()
	}
}

// SetGravity turns gravity on or off. It takes effect on the next step.
func (w *World) SetGravity(on bool) {
	w.gravity.Store(on)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.engine.Backend().Loaded() {
		w.applyGravity()
	}
}

// GravityOn ...
func (w *World) GravityOn() bool {
	return w.gravity.Load()
}

// Snapshot copies the current particles into dst. It returns nil while no sheet is loaded.
func (w *World) Snapshot(dst []mesh.Particle) []mesh.Particle {
	if s := w.State(); s != Ready && s != Running {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.engine.Backend().Snapshot(dst)
}

// Springs returns the springs of the loaded sheet. The slice must not be modified.
func (w *World) Springs() []mesh.Spring {
	if s := w.State(); s != Ready && s != Running {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.engine.Backend().Springs()
}

// Constants returns the constants table of the loaded sheet, or nil.
func (w *World) Constants() *mesh.Constants {
	if s := w.State(); s != Ready && s != Running {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.engine.Backend().Constants()
}

// ProbeHeight ...
func (w *World) ProbeHeight() float32 {
	return w.ctrl.Height()
}

// ProbeForce ...
func (w *World) ProbeForce() float32 {
	return w.ctrl.Force()
}

// Steps returns the number of steps run on the current sheet since it was loaded or reset.
func (w *World) Steps() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.engine.Steps()
}

// VirtualTime returns the simulated time since the last reset that cleared it.
func (w *World) VirtualTime() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.virtualTime
}

// Parameters returns the parameters of the last requested sheet.
func (w *World) Parameters() mesh.Parameters {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.params
}

// Probes returns the indices of the probe particles of the loaded sheet.
func (w *World) Probes() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.probes
}

// Bounds returns the box enclosing the sheet as it was loaded.
func (w *World) Bounds() cube.BBox {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds
}
