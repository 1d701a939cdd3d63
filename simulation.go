package main

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/charmbracelet/harmonica"
	"github.com/crazy3lf/colorconv"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/olivierh59500/trampoline-go/control"
	"github.com/olivierh59500/trampoline-go/mesh"
	"github.com/olivierh59500/trampoline-go/settings"
	"github.com/olivierh59500/trampoline-go/world"
	"github.com/sirupsen/logrus"
)

// Viewer constants
const (
	MinZoom     = 0.2
	MaxZoom     = 8.0
	DragSpeed   = 0.01
	TuneFactor  = 1.1
	ProbeSize   = 3.0
	RimSegments = 96
)

var (
	rimColor   = color.RGBA{60, 120, 255, 255}
	probeColor = color.RGBA{255, 255, 255, 255}
)

// Simulation implements ebiten.Game on top of a world: it turns input into controller tasks and
// draws the sheet every frame.
type Simulation struct {
	Width, Height int
	world         *world.World
	log           logrus.FieldLogger

	loadDone <-chan error
	lastTick time.Time

	particles []mesh.Particle // Snapshot buffer reused between frames

	RotX, RotY     float64 // Camera pitch and yaw in radians
	Zoom           float64
	zoomTarget     float64
	zoomVel        float64
	zoomSpring     harmonica.Spring
	PrevMX, PrevMY float64
}

// NewSimulation creates a viewer for w. loadDone is the result of the load the viewer waits for.
func NewSimulation(s settings.Settings, w *world.World, loadDone <-chan error, log logrus.FieldLogger) *Simulation {
	return &Simulation{
		Width:      s.Viewer.Width,
		Height:     s.Viewer.Height,
		world:      w,
		log:        log,
		loadDone:   loadDone,
		lastTick:   time.Now(),
		RotX:       0.6,
		Zoom:       1,
		zoomTarget: 1,
		zoomSpring: harmonica.NewSpring(harmonica.FPS(s.Viewer.TPS), 6.0, 1.0),
	}
}

// Update is called each tick by Ebitengine
func (s *Simulation) Update() error {
	if s.loadDone != nil {
		select {
		case err := <-s.loadDone:
			s.loadDone = nil
			if err != nil {
				return fmt.Errorf("unable to load sheet: %w", err)
			}
		default:
		}
	}

	s.handleInput()

	now := time.Now()
	realDt := float32(now.Sub(s.lastTick).Seconds())
	s.lastTick = now
	s.world.Tick(realDt)

	s.Zoom, s.zoomVel = s.zoomSpring.Update(s.Zoom, s.zoomVel, s.zoomTarget)
	return nil
}

// Draw is called each frame by Ebitengine
func (s *Simulation) Draw(screen *ebiten.Image) {
	scale := s.scale()
	p := s.world.Parameters()

	// The frame is drawn as soon as the parameters are known, the sheet only once it is loaded.
	for i := 0; i < RimSegments; i++ {
		a0 := 2 * math.Pi * float64(i) / RimSegments
		a1 := 2 * math.Pi * float64(i+1) / RimSegments
		r := float64(p.R1)
		x0, y0 := s.project(r*math.Sin(a0), 0, r*math.Cos(a0), scale)
		x1, y1 := s.project(r*math.Sin(a1), 0, r*math.Cos(a1), scale)
		vector.StrokeLine(screen, x0, y0, x1, y1, 2, rimColor, true)
	}

	s.particles = s.world.Snapshot(s.particles)
	if s.particles == nil {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("state: %v\nbuilding sheet...", s.world.State()))
		return
	}

	for _, sp := range s.world.Springs() {
		a, b := s.particles[sp.A].Position, s.particles[sp.B].Position
		strain := float32(0)
		if sp.RestLength > 0 {
			strain = (b.Sub(a).Len() - sp.RestLength) / sp.RestLength
		}
		x0, y0 := s.project(float64(a[0]), float64(a[1]), float64(a[2]), scale)
		x1, y1 := s.project(float64(b[0]), float64(b[1]), float64(b[2]), scale)
		vector.StrokeLine(screen, x0, y0, x1, y1, 1, strainColor(strain), true)
	}

	for _, i := range s.world.Probes() {
		pos := s.particles[i].Position
		x, y := s.project(float64(pos[0]), float64(pos[1]), float64(pos[2]), scale)
		vector.DrawFilledCircle(screen, x, y, ProbeSize, probeColor, true)
	}

	ebitenutil.DebugPrint(screen, s.hud())
}

// Layout returns the screen size
func (s *Simulation) Layout(outsideWidth, outsideHeight int) (int, int) {
	return s.Width, s.Height
}

// handleInput processes keyboard and mouse input
func (s *Simulation) handleInput() {
	ctrl := s.world.Controller()
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		s.world.Toggle()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		s.world.Reset(true)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyA) {
		s.world.StartAutonomous()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		ctrl.StopAutonomous()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		s.world.SetGravity(!s.world.GravityOn())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyX) {
		ctrl.ClearSamples()
	}

	tasks := []struct {
		key  ebiten.Key
		kind control.TaskKind
	}{
		{ebiten.KeyC, control.CollectSample},
		{ebiten.KeyArrowUp, control.MoveProbeUp},
		{ebiten.KeyArrowDown, control.MoveProbeDown},
		{ebiten.KeyL, control.ToggleLock},
		{ebiten.KeyE, control.EndDataSet},
	}
	for _, t := range tasks {
		if inpututil.IsKeyJustPressed(t.key) {
			ctrl.Enqueue(control.NewTask(t.kind))
		}
	}
	s.handleTuning()

	// Zoom
	_, wheelY := ebiten.Wheel()
	s.zoomTarget = math.Min(math.Max(s.zoomTarget*math.Pow(1.1, wheelY), MinZoom), MaxZoom)

	// Rotate (drag)
	mx, my := ebiten.CursorPosition()
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		s.RotY += (float64(mx) - s.PrevMX) * DragSpeed
		s.RotX += (float64(my) - s.PrevMY) * DragSpeed
	}
	s.PrevMX = float64(mx)
	s.PrevMY = float64(my)
}

// handleTuning maps the digit keys to the spring constants: odd digits decrease a constant, even
// digits increase it.
func (s *Simulation) handleTuning() {
	consts := s.world.Constants()
	if consts == nil {
		return
	}
	tunable := []struct {
		down, up ebiten.Key
		kind     control.TaskKind
		slot     mesh.Slot
	}{
		{ebiten.KeyDigit1, ebiten.KeyDigit2, control.SetInnerSpringConstant, mesh.InnerSpring},
		{ebiten.KeyDigit3, ebiten.KeyDigit4, control.SetInnerVelConstant, mesh.InnerDamping},
		{ebiten.KeyDigit5, ebiten.KeyDigit6, control.SetOuterSpringConstant, mesh.OuterSpring},
		{ebiten.KeyDigit7, ebiten.KeyDigit8, control.SetOuterVelConstant, mesh.OuterDamping},
	}
	for _, t := range tunable {
		v := consts.Get(t.slot)
		switch {
		case inpututil.IsKeyJustPressed(t.down):
			v /= TuneFactor
		case inpututil.IsKeyJustPressed(t.up):
			v *= TuneFactor
		default:
			continue
		}
		s.world.Controller().Enqueue(control.NewSetTask(t.kind, v))
		s.log.WithFields(logrus.Fields{"constant": t.slot, "value": v}).Info("tuned constant")
	}
}

// scale returns the number of pixels per metre that fits the frame into the window at zoom 1.
func (s *Simulation) scale() float64 {
	b := s.world.Bounds()
	extent := math.Max(
		math.Max(math.Abs(float64(b.Min().X())), math.Abs(float64(b.Max().X()))),
		math.Max(math.Abs(float64(b.Min().Z())), math.Abs(float64(b.Max().Z()))),
	)
	if extent == 0 {
		extent = float64(s.world.Parameters().R1)
	}
	if extent == 0 {
		return 1
	}
	return 0.45 * float64(min(s.Width, s.Height)) / extent * s.Zoom
}

// project rotates a point by the camera yaw and pitch and maps it onto the screen.
func (s *Simulation) project(x, y, z, scale float64) (float32, float32) {
	sinY, cosY := math.Sincos(s.RotY)
	sinX, cosX := math.Sincos(s.RotX)
	rx := x*cosY + z*sinY
	rz := -x*sinY + z*cosY
	ry := y*cosX - rz*sinX
	return float32(float64(s.Width)/2 + rx*scale), float32(float64(s.Height)/2 - ry*scale)
}

// hud returns the text shown in the top left corner
func (s *Simulation) hud() string {
	ctrl := s.world.Controller()
	pairs, count := ctrl.Samples()
	gravity := "off"
	if s.world.GravityOn() {
		gravity = "on"
	}
	text := fmt.Sprintf("state: %v  t=%.3fs  step %d  gravity: %s  TPS: %.0f\n",
		s.world.State(), s.world.VirtualTime(), s.world.Steps(), gravity, ebiten.ActualTPS())
	text += fmt.Sprintf("probe height: %.2f  force: %.1f\n", s.world.ProbeHeight(), s.world.ProbeForce())
	text += fmt.Sprintf("control: %v  samples: %d (%d heights)", ctrl.State(), count, len(pairs))
	if last, ok := ctrl.LastSample(); ok {
		text += fmt.Sprintf("  last: %.2f -> %.1f", last.X, last.Y)
	}
	text += "\n"
	if c := s.world.Constants(); c != nil {
		text += fmt.Sprintf("k_in %.3f  c_in %.3f  k_out %.3f  c_out %.3f\n",
			c.Get(mesh.InnerSpring), c.Get(mesh.InnerDamping), c.Get(mesh.OuterSpring), c.Get(mesh.OuterDamping))
	}
	text += "[space] run/pause  [r] reset  [a/s] start/stop sweep  [g] gravity\n"
	text += "[c] collect  [up/down] move probe  [l] lock  [e] export  [x] clear samples  [1-8] tune springs"
	return text
}

// strainColor maps the relative elongation of a spring to a hue from blue (relaxed) to red.
func strainColor(strain float32) color.RGBA {
	t := math.Min(math.Max(float64(strain)*4, 0), 1)
	r, g, b, err := colorconv.HSVToRGB(240*(1-t), 0.8, 1)
	if err != nil {
		return color.RGBA{255, 255, 255, 255}
	}
	return color.RGBA{r, g, b, 255}
}
