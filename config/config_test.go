package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Playfield.Width != 1920 || cfg.Playfield.Height != 1080 {
		t.Errorf("playfield = %vx%v, want 1920x1080", cfg.Playfield.Width, cfg.Playfield.Height)
	}
	if cfg.Population.Size != 500 {
		t.Errorf("population.size = %d, want 500", cfg.Population.Size)
	}
	if cfg.Derived.ElitismCount != 50 {
		t.Errorf("elitism = %d, want 50", cfg.Derived.ElitismCount)
	}
	if math.Abs(cfg.Derived.RotationStep-math.Pi/90) > 1e-12 {
		t.Errorf("rotation step = %v, want pi/90", cfg.Derived.RotationStep)
	}
	if math.Abs(cfg.Derived.MaxFireAngle-math.Pi/6) > 1e-12 {
		t.Errorf("max fire angle = %v, want pi/6", cfg.Derived.MaxFireAngle)
	}

	want := []int{NumInputs, 10, NumOutputs}
	if len(cfg.Derived.LayerSizes) != len(want) {
		t.Fatalf("layer sizes = %v, want %v", cfg.Derived.LayerSizes, want)
	}
	for i := range want {
		if cfg.Derived.LayerSizes[i] != want[i] {
			t.Errorf("layer sizes = %v, want %v", cfg.Derived.LayerSizes, want)
			break
		}
	}
}

func TestLoadOverridesOnlyPresentFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	data := "population:\n  size: 20\ngeneration:\n  lifespan: 42\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Population.Size != 20 {
		t.Errorf("population.size = %d, want 20", cfg.Population.Size)
	}
	if cfg.Generation.Lifespan != 42 {
		t.Errorf("lifespan = %d, want 42", cfg.Generation.Lifespan)
	}
	if cfg.Derived.ElitismCount != 2 {
		t.Errorf("elitism = %d, want 2", cfg.Derived.ElitismCount)
	}
	if cfg.Physics.Gravity != 0.4 {
		t.Errorf("gravity = %v, want default 0.4", cfg.Physics.Gravity)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero population", func(c *Config) { c.Population.Size = 0 }, "population.size"},
		{"zero lifespan", func(c *Config) { c.Generation.Lifespan = 0 }, "generation.lifespan"},
		{"elitism above size", func(c *Config) { c.Population.ElitismFraction = 1.5 }, "elitism_fraction"},
		{"unknown selection", func(c *Config) { c.Selection.Method = "roulette" }, "selection.method"},
		{"rocket too wide", func(c *Config) { c.Rocket.Width = 5000 }, "does not fit"},
		{"empty hidden layer", func(c *Config) { c.Neural.HiddenLayers = []int{0} }, "hidden_layers[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			cfg.ComputeDerived()
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate returned nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Population.Size = 64
	cfg.Neural.HiddenLayers = []int{8, 4}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Population.Size != 64 {
		t.Errorf("population.size = %d, want 64", loaded.Population.Size)
	}
	if len(loaded.Derived.LayerSizes) != 4 {
		t.Errorf("layer sizes = %v, want 4 layers", loaded.Derived.LayerSizes)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Neural.HiddenLayers[0] = 99
	clone.Population.Size = 1

	if cfg.Neural.HiddenLayers[0] == 99 {
		t.Error("Clone shares hidden layer slice")
	}
	if cfg.Population.Size == 1 {
		t.Error("Clone shares population config")
	}
}
