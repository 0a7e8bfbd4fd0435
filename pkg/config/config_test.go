package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Error("expected default configuration for a missing file")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default configuration is invalid: %v", err)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := `particles:
  count: 42
laser:
  thickness: 0.0002
flow:
  kind: points
  path: flow.dat
run:
  seed: 7
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Particles.Count != 42 || cfg.Laser.Thickness != 0.0002 || cfg.Run.Seed != 7 {
		t.Errorf("overlay not applied: %+v", cfg)
	}
	if cfg.Flow.Kind != "points" || cfg.Flow.Path != "flow.dat" {
		t.Errorf("flow section not applied: %+v", cfg.Flow)
	}
	// Untouched keys keep their defaults
	if cfg.Particles.MeanDiameter != 281e-9 || cfg.Camera.XResolution != 512 {
		t.Errorf("defaults lost: mean %g, xres %d", cfg.Particles.MeanDiameter, cfg.Camera.XResolution)
	}
}

func TestLoadINI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.ini")
	data := `[particles]
count = 12
inPlanePercent = 50

[flow]
velocity = 1, 2, 3

[run]
pairs = 2
seed = 99
renderStrategy = chunked

[output]
verbose = true
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Particles.Count != 12 || cfg.Particles.InPlanePercent != 50 {
		t.Errorf("particles section not applied: %+v", cfg.Particles)
	}
	if !reflect.DeepEqual(cfg.Flow.Velocity, []float64{1, 2, 3}) {
		t.Errorf("expected velocity [1 2 3], got %v", cfg.Flow.Velocity)
	}
	if cfg.Run.Pairs != 2 || cfg.Run.Seed != 99 || cfg.Run.RenderStrategy != "chunked" || !cfg.Output.Verbose {
		t.Errorf("run/output not applied: %+v %+v", cfg.Run, cfg.Output)
	}
	if cfg.Laser.Position != 0.0009 {
		t.Errorf("expected default laser position, got %g", cfg.Laser.Position)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	want := DefaultConfig()
	want.Particles.Count = 321
	want.Flow.Velocity = []float64{0.5, -1.25, 3e-3}
	want.Run.Seed = 12345
	want.Output.Verbose = true

	for _, name := range []string{"cfg.yaml", "cfg.ini"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			if err := SaveConfig(want, path); err != nil {
				t.Fatalf("SaveConfig: %v", err)
			}
			got, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not created: %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	bad := map[string]string{
		"bad.yaml": "particles: [unterminated",
		"bad.ini":  "[flow]\nvelocity = 1, x, 3\n",
	}
	for name, data := range bad {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("%s: expected parse error", name)
		}
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative count", func(c *Config) { c.Particles.Count = -1 }},
		{"in-plane above 100", func(c *Config) { c.Particles.InPlanePercent = 101 }},
		{"no pairs", func(c *Config) { c.Run.Pairs = 0 }},
		{"negative workers", func(c *Config) { c.Run.NumWorkers = -2 }},
		{"short velocity", func(c *Config) { c.Flow.Velocity = []float64{1, 2} }},
		{"points without path", func(c *Config) { c.Flow.Kind = "points"; c.Flow.Path = "" }},
		{"unknown flow", func(c *Config) { c.Flow.Kind = "vortex" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}
