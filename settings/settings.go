package settings

import (
	"errors"
	"fmt"
	"os"

	"github.com/olivierh59500/trampoline-go/control"
	"github.com/olivierh59500/trampoline-go/mesh"
	"github.com/pelletier/go-toml"
)

// Settings contains everything that can be configured for the simulator.
type Settings struct {
	Mesh struct {
		R1       float32
		R2       float32
		Fineness float32
		// ParticleMass of zero derives the mass from the fineness.
		ParticleMass float32
		OuterSprings int

		InnerSpringConstant float32
		InnerVelConstant    float32
		OuterSpringConstant float32
		OuterVelConstant    float32
		OuterSpringLength   float32

		ProbeParticles int

		Noise struct {
			Amplitude float64
			Alpha     float64
			Beta      float64
			Octaves   int32
			Seed      int64
		}
	}
	Simulation struct {
		Gravity float32
		// VirtualFrameTime is the simulated time per frame. Zero advances by the real frame time.
		VirtualFrameTime float32
		StepsPerFrame    int
		// Workers is the number of goroutines per physics pass. Zero uses one per CPU.
		Workers int
	}
	Measurement struct {
		Delta        float32
		Floor        float32
		Latency      float32
		RepeatSweeps bool
	}
	Export struct {
		Directory string
		FileName  string
		// Chart also renders each data set as an HTML chart next to the text file.
		Chart bool
	}
	Viewer struct {
		Width  int
		Height int
		TPS    int
	}
}

// DefaultSettings returns the settings of the sheet the simulator was tuned with.
func DefaultSettings() Settings {
	settings := Settings{}
	settings.Mesh.R1 = 1.65
	settings.Mesh.R2 = 1.31
	settings.Mesh.Fineness = 0.05
	settings.Mesh.OuterSprings = 72
	settings.Mesh.InnerSpringConstant = 1
	settings.Mesh.InnerVelConstant = 0.5
	settings.Mesh.OuterSpringConstant = 2
	settings.Mesh.OuterVelConstant = 1
	settings.Mesh.OuterSpringLength = 0.17
	settings.Mesh.ProbeParticles = 13
	settings.Mesh.Noise.Alpha = 2
	settings.Mesh.Noise.Beta = 2
	settings.Mesh.Noise.Octaves = 3

	settings.Simulation.Gravity = 9.81
	settings.Simulation.VirtualFrameTime = 1.0 / 600
	settings.Simulation.StepsPerFrame = 10

	settings.Measurement.Delta = 0.2
	settings.Measurement.Floor = -3
	settings.Measurement.Latency = 0.1
	settings.Measurement.RepeatSweeps = true

	settings.Export.Directory = "TrampolineOutput"
	settings.Export.FileName = "data.txt"

	settings.Viewer.Width = 1280
	settings.Viewer.Height = 800
	settings.Viewer.TPS = 60
	return settings
}

// MeshParameters returns the builder parameters described by the settings.
func (s Settings) MeshParameters() mesh.Parameters {
	m := s.Mesh
	mass := m.ParticleMass
	if mass == 0 {
		mass = mesh.ParticleMassFor(m.Fineness)
	}
	return mesh.Parameters{
		R1:                  m.R1,
		R2:                  m.R2,
		Fineness:            m.Fineness,
		ParticleMass:        mass,
		OuterSprings:        m.OuterSprings,
		InnerSpringConstant: m.InnerSpringConstant,
		InnerDamping:        m.InnerVelConstant,
		OuterSpringConstant: m.OuterSpringConstant,
		OuterDamping:        m.OuterVelConstant,
		OuterSpringLength:   m.OuterSpringLength,
		ProbeParticles:      m.ProbeParticles,
		Noise: mesh.Noise{
			Amplitude: m.Noise.Amplitude,
			Alpha:     m.Noise.Alpha,
			Beta:      m.Noise.Beta,
			Octaves:   m.Noise.Octaves,
			Seed:      m.Noise.Seed,
		},
	}
}

// ControlConfig returns the tuning of the measurement controller.
func (s Settings) ControlConfig() control.Config {
	return control.Config{
		Delta:   s.Measurement.Delta,
		Floor:   s.Measurement.Floor,
		Latency: s.Measurement.Latency,
	}
}

// SaveDefault will create and save the default settings file. If the file already exists, it will return an error.
func SaveDefault(path string) error {
	s := DefaultSettings()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if data, err := toml.Marshal(s); err != nil {
			return fmt.Errorf("failed encoding default settings: %w", err)
		} else if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed creating settings file: %w", err)
		}
		return nil
	}
	return errors.New("settings file already exists")
}

// Load will load the settings from your settings file, and return an error if the file does not exist.
func Load(path string) (Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Settings{}, errors.New("settings file doesn't exist")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("error reading config: %w", err)
	}

	settings := DefaultSettings()
	if err = toml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("error decoding config: %w", err)
	}
	return settings, nil
}
