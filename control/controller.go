package control

import (
	"io"
	"sync"
	"time"

	"github.com/olivierh59500/trampoline-go/assert"
	"github.com/olivierh59500/trampoline-go/export"
	"github.com/olivierh59500/trampoline-go/mesh"
	"github.com/olivierh59500/trampoline-go/physics"
	"github.com/sirupsen/logrus"
)

// State is the mode of the controller.
type State int32

const (
	// Idle runs queued tasks.
	Idle State = iota
	// Autonomous sweeps the probes down in fixed steps, sampling along the way.
	Autonomous
)

// String ...
func (s State) String() string {
	if s == Autonomous {
		return "autonomous"
	}
	return "idle"
}

// Config holds the tuning of probe movement and of the autonomous sweep.
type Config struct {
	// Delta is the distance the probes move per move task or sweep step.
	Delta float32
	// Floor is the probe height at which a sweep ends.
	Floor float32
	// Latency is the simulated time the sweep waits at each height before sampling and moving on.
	Latency float32
}

// Exporter receives finished data sets.
type Exporter interface {
	Export(header string, pairs []export.Pair) error
}

// Controller drives the probe particles of a sheet between the spring pass and the integration pass
// of each step. It only holds probe indices and reads the probes from the backend every step.
type Controller struct {
	cfg      Config
	exporter Exporter
	log      logrus.FieldLogger
	now      func() time.Time

	mu         sync.Mutex
	state      State
	queue      []Task
	restart    bool
	probes     []int
	onSweepEnd func()

	// elapsed is only touched from AfterSprings.
	elapsed float32

	dataMu      sync.Mutex
	samples     *SampleTable
	height      float32
	force       float32
	description string
}

// New returns an idle controller for the given probe indices. The exporter may be nil, in which
// case data sets are dropped.
func New(probes []int, cfg Config, exporter Exporter, log logrus.FieldLogger) *Controller {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	return &Controller{
		cfg:      cfg,
		exporter: exporter,
		log:      log,
		now:      time.Now,
		probes:   append([]int(nil), probes...),
		samples:  NewSampleTable(),
	}
}

// Enqueue queues a task for the next step. Enqueueing while autonomous stops the sweep.
func (c *Controller) Enqueue(t Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Autonomous {
		c.state = Idle
		c.log.WithField("task", t).Info("manual task cancelled autonomous control")
	}
	c.queue = append(c.queue, t)
}

// StartAutonomous starts a sweep from the current probe height. Without probes it does nothing.
func (c *Controller) StartAutonomous() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.probes) == 0 {
		c.log.Warn("autonomous control needs at least one probe particle")
		return
	}
	c.state = Autonomous
	c.restart = true
	c.log.Info("autonomous control started")
}

// StopAutonomous stops a running sweep and exports what it has measured so far.
func (c *Controller) StopAutonomous() {
	c.mu.Lock()
	was := c.state
	c.state = Idle
	c.mu.Unlock()
	if was == Autonomous {
		c.log.Info("autonomous control stopped")
	}
	c.endDataSet()
}

// State ...
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reset discards every queued task. Samples are kept.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = nil
}

// Pending returns the number of queued tasks.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// SetProbes replaces the probe indices, for example after a sheet with other parameters was loaded.
func (c *Controller) SetProbes(probes []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes = append([]int(nil), probes...)
}

// OnSweepEnd sets a function called every time a sweep reaches the floor. It is called from the
// stepping goroutine after the controller returned to Idle.
func (c *Controller) OnSweepEnd(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSweepEnd = fn
}

// SetDescription sets the text written after the timestamp in the header of exported data sets.
func (c *Controller) SetDescription(d string) {
	c.dataMu.Lock()
	defer c.dataMu.Unlock()
	c.description = d
}

// ClearSamples ...
func (c *Controller) ClearSamples() {
	c.dataMu.Lock()
	defer c.dataMu.Unlock()
	c.samples.Clear()
}

// Samples returns the averaged samples and the total number of samples recorded.
func (c *Controller) Samples() ([]export.Pair, int) {
	c.dataMu.Lock()
	defer c.dataMu.Unlock()
	return c.samples.Averaged(), c.samples.Count()
}

// LastSample returns the averaged sample at the height measured last.
func (c *Controller) LastSample() (export.Pair, bool) {
	c.dataMu.Lock()
	defer c.dataMu.Unlock()
	return c.samples.Latest()
}

// Height returns the height of the first probe as of the last step.
func (c *Controller) Height() float32 {
	c.dataMu.Lock()
	defer c.dataMu.Unlock()
	return c.height
}

// Force returns the summed vertical force on all probes as of the last step.
func (c *Controller) Force() float32 {
	c.dataMu.Lock()
	defer c.dataMu.Unlock()
	return c.force
}

// AfterSprings runs once per step between the spring pass and the integration pass. In Idle it
// drains the whole task queue in order, in Autonomous it advances the sweep. Without probes only the
// tasks that do not act on a probe are applied.
func (c *Controller) AfterSprings(dt float32, b physics.Backend) {
	c.mu.Lock()
	state, tasks, indices := c.state, c.queue, c.probes
	c.queue = nil
	if c.restart {
		c.elapsed, c.restart = 0, false
	}
	if len(indices) == 0 && state == Autonomous {
		// The probes were removed under a running sweep.
		c.state, state = Idle, Idle
	}
	c.mu.Unlock()

	var probes []mesh.Particle
	if len(indices) > 0 {
		probes = c.fetch(b, indices)
	}
	if state == Autonomous {
		c.sweep(dt, b, indices, probes)
		return
	}
	for _, t := range tasks {
		if len(probes) == 0 && t.Kind.probe() {
			c.log.WithField("task", t).Warn("no probe particles, task skipped")
			continue
		}
		c.apply(t, b, indices, probes)
	}
}

// sweep advances the autonomous measurement by one step.
func (c *Controller) sweep(dt float32, b physics.Backend, indices []int, probes []mesh.Particle) {
	c.elapsed += dt
	if !probes[0].Locked {
		for i := range probes {
			probes[i].Locked = true
			b.SetParticle(indices[i], probes[i])
		}
	}
	if probes[0].Position.Y() <= c.cfg.Floor {
		c.collect(probes)
		c.endDataSet()

		c.mu.Lock()
		c.state = Idle
		fn := c.onSweepEnd
		c.mu.Unlock()
		c.log.WithField("height", probes[0].Position.Y()).Info("sweep reached the floor")
		if fn != nil {
			fn()
		}
		return
	}
	if c.elapsed >= c.cfg.Latency {
		c.collect(probes)
		c.move(b, indices, probes, -c.cfg.Delta)
		c.elapsed = 0
	}
}

func (c *Controller) apply(t Task, b physics.Backend, indices []int, probes []mesh.Particle) {
	switch t.Kind {
	case CollectSample:
		c.collect(probes)
	case MoveProbeUp:
		c.move(b, indices, probes, c.cfg.Delta)
	case MoveProbeDown:
		c.move(b, indices, probes, -c.cfg.Delta)
	case ToggleLock:
		for i := range probes {
			probes[i].Locked = !probes[i].Locked
			b.SetParticle(indices[i], probes[i])
		}
	case EndDataSet:
		c.endDataSet()
	default:
		slot, ok := t.Kind.slot()
		assert.IsTrue(ok, "unknown task %v", t.Kind)
		b.Constants().Set(slot, t.Value)
	}
	c.log.WithField("task", t).Debug("applied task")
}

// fetch reads the current probe particles from the backend and updates the published readings.
func (c *Controller) fetch(b physics.Backend, indices []int) []mesh.Particle {
	probes := make([]mesh.Particle, len(indices))
	for i, idx := range indices {
		assert.IsTrue(idx >= 0 && idx < b.ParticleCount(), "probe index %d outside [0, %d)", idx, b.ParticleCount())
		probes[i] = b.Particle(idx)
	}
	h, f := reading(probes)
	c.dataMu.Lock()
	c.height, c.force = h, f
	c.dataMu.Unlock()
	return probes
}

// reading returns the height of the first probe and the sum of the vertical forces of all probes.
func reading(probes []mesh.Particle) (height, force float32) {
	for _, p := range probes {
		force += p.Force.Y()
	}
	return probes[0].Position.Y(), force
}

func (c *Controller) collect(probes []mesh.Particle) {
	h, f := reading(probes)
	c.dataMu.Lock()
	defer c.dataMu.Unlock()
	c.samples.Add(h, f)
}

// move shifts every probe vertically by dy, bypassing integration.
func (c *Controller) move(b physics.Backend, indices []int, probes []mesh.Particle, dy float32) {
	for i := range probes {
		probes[i].Position[1] += dy
		b.SetParticle(indices[i], probes[i])
	}
}

// endDataSet hands the averaged samples to the exporter. Failures are logged and do not stop the
// simulation.
func (c *Controller) endDataSet() {
	c.dataMu.Lock()
	pairs := c.samples.Averaged()
	header := "# " + c.now().Format(time.DateTime)
	if c.description != "" {
		header += "; " + c.description
	}
	c.dataMu.Unlock()

	if c.exporter == nil {
		return
	}
	if err := c.exporter.Export(header, pairs); err != nil {
		c.log.WithError(err).Error("unable to export data set")
		return
	}
	c.log.WithField("pairs", len(pairs)).Info("exported data set")
}
