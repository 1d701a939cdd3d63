package main

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/olivierh59500/trampoline-go/control"
	"github.com/olivierh59500/trampoline-go/export"
	"github.com/olivierh59500/trampoline-go/settings"
	"github.com/olivierh59500/trampoline-go/world"
	"github.com/sirupsen/logrus"
)

const settingsPath = "settings.toml"

func main() {
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{ForceColors: true, FullTimestamp: true}
	log.Level = logrus.InfoLevel
	if os.Getenv("TRAMPOLINE_DEBUG") != "" {
		log.Level = logrus.DebugLevel
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
			log.Fatalf("unable to initialise sentry: %v", err)
		}
		defer sentry.Flush(time.Second * 5)
	}

	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		if err := settings.SaveDefault(settingsPath); err != nil {
			log.Fatal(err)
		}
		log.Infof("created default settings in %s", settingsPath)
	}
	s, err := settings.Load(settingsPath)
	if err != nil {
		log.Fatal(err)
	}

	if os.Getenv("PPROF_ENABLED") != "" {
		// set configurations before calling `statsview.New()` method
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr("localhost:8080"))

		mgr := statsview.New()
		go mgr.Start()
	}

	// Bad parameters are reported before any window is opened.
	params := s.MeshParameters()
	if err := params.Validate(); err != nil {
		log.Fatal(err)
	}

	exporters := export.Multi{export.TextFile{Dir: s.Export.Directory, Name: s.Export.FileName}}
	if s.Export.Chart {
		name := strings.TrimSuffix(s.Export.FileName, filepath.Ext(s.Export.FileName)) + ".html"
		exporters = append(exporters, export.Chart{Dir: s.Export.Directory, Name: name})
	}
	ctrl := control.New(nil, s.ControlConfig(), exporters, log)
	w := world.New(world.Config{
		Gravity:          s.Simulation.Gravity,
		VirtualFrameTime: s.Simulation.VirtualFrameTime,
		StepsPerFrame:    s.Simulation.StepsPerFrame,
		Workers:          s.Simulation.Workers,
		RepeatSweeps:     s.Measurement.RepeatSweeps,
	}, ctrl, log)

	sim := NewSimulation(s, w, w.LoadInBackground(params), log)

	ebiten.SetWindowSize(s.Viewer.Width, s.Viewer.Height)
	ebiten.SetWindowTitle("Trampoline Simulation")
	ebiten.SetTPS(s.Viewer.TPS)

	if err := ebiten.RunGame(sim); err != nil {
		log.Fatal(err)
	}
}
