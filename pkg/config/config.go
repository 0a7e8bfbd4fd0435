// Package config provides configuration loading and management for pivsynth.
// It loads configuration from YAML or INI files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate for inconsistent settings
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration
type Config struct {
	// Particle population parameters
	Particles struct {
		// Count is the number of particles seeded per exposure pair
		Count int `yaml:"count"`

		// Distribution is the diameter distribution kind; only "gaussian" is supported
		Distribution string `yaml:"distribution"`

		// MinDiameter and MaxDiameter clip the sampled diameters, in metres
		MinDiameter float64 `yaml:"minDiameter"`
		MaxDiameter float64 `yaml:"maxDiameter"`

		// MeanDiameter and StdDiameter parameterise the normal distribution, in metres
		MeanDiameter float64 `yaml:"meanDiameter"`
		StdDiameter  float64 `yaml:"stdDiameter"`

		// Density is the particle material density in kg/m³
		Density float64 `yaml:"density"`

		// InPlanePercent is the share of particles placed exactly on the sheet centre plane
		InPlanePercent float64 `yaml:"inPlanePercent"`
	} `yaml:"particles"`

	// Interrogation area bounds in physical units
	Interrogation struct {
		XMin float64 `yaml:"xMin"`
		XMax float64 `yaml:"xMax"`
		YMin float64 `yaml:"yMin"`
		YMax float64 `yaml:"yMax"`
	} `yaml:"interrogation"`

	// Laser sheet parameters
	Laser struct {
		// Position is the z coordinate of the sheet centre
		Position float64 `yaml:"position"`

		// Thickness is the full sheet thickness
		Thickness float64 `yaml:"thickness"`

		// ShapeFactor controls the sheet profile: 2 is Gaussian, large values approach a top-hat
		ShapeFactor float64 `yaml:"shapeFactor"`

		// PulseTime is the time between the two exposures
		PulseTime float64 `yaml:"pulseTime"`
	} `yaml:"laser"`

	// Camera geometry
	Camera struct {
		XResolution int     `yaml:"xResolution"`
		YResolution int     `yaml:"yResolution"`
		DPI         float64 `yaml:"dpi"`

		// DCCD is the sensor standoff distance
		DCCD float64 `yaml:"dCCD"`

		// DIA is the interrogation area standoff distance
		DIA float64 `yaml:"dIA"`
	} `yaml:"camera"`

	// Optics parameters of the intensity model
	Optics struct {
		SX         float64 `yaml:"sx"`
		SY         float64 `yaml:"sy"`
		FrameX     float64 `yaml:"frameX"`
		FrameY     float64 `yaml:"frameY"`
		Efficiency float64 `yaml:"efficiency"`
	} `yaml:"optics"`

	// Flow field source
	Flow struct {
		// Kind is "uniform" for a constant velocity box or "points" for a flow record file
		Kind string `yaml:"kind"`

		// Velocity, DomainMin and DomainMax describe the uniform flow
		Velocity  []float64 `yaml:"velocity"`
		DomainMin []float64 `yaml:"domainMin"`
		DomainMax []float64 `yaml:"domainMax"`

		// Path is the flow record file used by the points sampler
		Path string `yaml:"path"`

		// Neighbors is the number of records blended per velocity lookup
		Neighbors int `yaml:"neighbors"`
	} `yaml:"flow"`

	// Run control
	Run struct {
		// Pairs is the number of image pairs to generate
		Pairs int `yaml:"pairs"`

		// Seed initialises the random stream; equal seeds reproduce a run
		Seed uint64 `yaml:"seed"`

		// NumWorkers sizes the worker pool; 0 selects NumCPU-1
		NumWorkers int `yaml:"numWorkers"`

		// ChunkSize bounds the particles rendered at once
		ChunkSize int `yaml:"chunkSize"`

		// AdvectionMode is "parallel" or "sequential"
		AdvectionMode string `yaml:"advectionMode"`

		// RenderStrategy is "auto", "batch", "chunked" or "sequential"
		RenderStrategy string `yaml:"renderStrategy"`
	} `yaml:"run"`

	// Output parameters
	Output struct {
		// Dir is where image pairs are written
		Dir string `yaml:"dir"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default particle parameters
	cfg.Particles.Count = 500
	cfg.Particles.Distribution = "gaussian"
	cfg.Particles.MinDiameter = 144e-9
	cfg.Particles.MaxDiameter = 573e-9
	cfg.Particles.MeanDiameter = 281e-9
	cfg.Particles.StdDiameter = 97e-9
	cfg.Particles.Density = 810
	cfg.Particles.InPlanePercent = 90

	// Set default interrogation area
	cfg.Interrogation.XMin = 0
	cfg.Interrogation.XMax = 0.003
	cfg.Interrogation.YMin = 0
	cfg.Interrogation.YMax = 0.001

	// Set default laser sheet
	cfg.Laser.Position = 0.0009
	cfg.Laser.Thickness = 0.0001
	cfg.Laser.ShapeFactor = 2
	cfg.Laser.PulseTime = 1e-7

	// Set default camera
	cfg.Camera.XResolution = 512
	cfg.Camera.YResolution = 512
	cfg.Camera.DPI = 96
	cfg.Camera.DCCD = 0.0135
	cfg.Camera.DIA = 0.0009

	// Set default optics
	cfg.Optics.SX = 2
	cfg.Optics.SY = 2
	cfg.Optics.FrameX = 1
	cfg.Optics.FrameY = 1
	cfg.Optics.Efficiency = 1

	// Set default flow
	cfg.Flow.Kind = "uniform"
	cfg.Flow.Velocity = []float64{10, 0, 0}
	cfg.Flow.DomainMin = []float64{-0.01, -0.01, -0.01}
	cfg.Flow.DomainMax = []float64{0.01, 0.01, 0.01}
	cfg.Flow.Neighbors = 8

	// Set default run control
	cfg.Run.Pairs = 3
	cfg.Run.Seed = 1
	cfg.Run.NumWorkers = 0
	cfg.Run.ChunkSize = 64
	cfg.Run.AdvectionMode = "parallel"
	cfg.Run.RenderStrategy = "auto"

	// Set default output parameters
	cfg.Output.Dir = "output"
	cfg.Output.Verbose = false

	return cfg
}

// isINI reports whether the path selects the INI format
func isINI(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".ini")
}

// LoadConfig loads configuration from a YAML or INI file, chosen by extension.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if isINI(configPath) {
		if err := decodeINI(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		return cfg, nil
	}

	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}

// Parse overlays YAML data on cfg
func Parse(data []byte, cfg *Config) error {
	return yaml.Unmarshal(data, cfg)
}

// SaveConfig saves the configuration to a YAML or INI file, chosen by extension
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	if isINI(configPath) {
		if err := encodeINI(cfg).SaveTo(configPath); err != nil {
			return fmt.Errorf("error writing config file: %w", err)
		}
		return nil
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks the settings that cannot be checked by the components themselves
func (c *Config) Validate() error {
	if c.Particles.Count < 0 {
		return fmt.Errorf("%w: particle count must not be negative, got %d", ErrInvalidConfig, c.Particles.Count)
	}
	if c.Particles.InPlanePercent < 0 || c.Particles.InPlanePercent > 100 {
		return fmt.Errorf("%w: in-plane percent must be in [0, 100], got %g", ErrInvalidConfig, c.Particles.InPlanePercent)
	}
	if c.Run.Pairs < 1 {
		return fmt.Errorf("%w: at least one image pair is required, got %d", ErrInvalidConfig, c.Run.Pairs)
	}
	if c.Run.NumWorkers < 0 {
		return fmt.Errorf("%w: worker count must not be negative, got %d", ErrInvalidConfig, c.Run.NumWorkers)
	}

	switch strings.ToLower(c.Flow.Kind) {
	case "uniform":
		for name, v := range map[string][]float64{
			"velocity":  c.Flow.Velocity,
			"domainMin": c.Flow.DomainMin,
			"domainMax": c.Flow.DomainMax,
		} {
			if len(v) != 3 {
				return fmt.Errorf("%w: flow %s needs 3 components, got %d", ErrInvalidConfig, name, len(v))
			}
		}
	case "points":
		if c.Flow.Path == "" {
			return fmt.Errorf("%w: points flow requires a path", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown flow kind %q", ErrInvalidConfig, c.Flow.Kind)
	}
	return nil
}
