// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Network dimensions fixed by the sensor and actuator layouts.
const (
	NumInputs  = 11 // target delta (2), velocity (2), angles (3), wall distances (4)
	NumOutputs = 3  // thrust, rotate left, rotate right
)

// Config holds all simulation configuration parameters.
type Config struct {
	Playfield  PlayfieldConfig  `yaml:"playfield"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Rocket     RocketConfig     `yaml:"rocket"`
	Target     TargetConfig     `yaml:"target"`
	Sensors    SensorsConfig    `yaml:"sensors"`
	Actuators  ActuatorsConfig  `yaml:"actuators"`
	Fitness    FitnessConfig    `yaml:"fitness"`
	Generation GenerationConfig `yaml:"generation"`
	Population PopulationConfig `yaml:"population"`
	Mutation   MutationConfig   `yaml:"mutation"`
	Selection  SelectionConfig  `yaml:"selection"`
	Neural     NeuralConfig     `yaml:"neural"`
	Parallel   ParallelConfig   `yaml:"parallel"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Stream     StreamConfig     `yaml:"stream"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// PlayfieldConfig holds the playfield dimensions in world units.
type PlayfieldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// PhysicsConfig holds per-tick physics constants.
type PhysicsConfig struct {
	Drag            float64 `yaml:"drag"`               // horizontal velocity multiplier per tick
	Gravity         float64 `yaml:"gravity"`            // added to vy per tick
	Thrust          float64 `yaml:"thrust"`             // impulse along the heading when thrusting
	RotationStepDeg float64 `yaml:"rotation_step_deg"`  // heading change per rotating tick
	MaxFireAngleDeg float64 `yaml:"max_fire_angle_deg"` // exhaust deflection cap
	FireAngleStep   float64 `yaml:"fire_angle_step"`    // exhaust change per rotating tick (radians)
	FireAngleEasing float64 `yaml:"fire_angle_easing"`  // relaxation factor toward 0
}

// RocketConfig holds the rocket body and spawn parameters.
type RocketConfig struct {
	Width             float64 `yaml:"width"`
	Height            float64 `yaml:"height"`
	SpawnXFraction    float64 `yaml:"spawn_x_fraction"`    // left edge at playfield width * this
	SpawnBottomOffset float64 `yaml:"spawn_bottom_offset"` // top edge at playfield height - this
}

// TargetConfig holds collection target placement.
type TargetConfig struct {
	Size         float64 `yaml:"size"`
	CenterMargin float64 `yaml:"center_margin"` // fraction of each dimension kept clear at the edges
}

// SensorsConfig holds sensor normalization constants.
type SensorsConfig struct {
	MaxSpeed float64 `yaml:"max_speed"`
}

// ActuatorsConfig holds the output decoding threshold.
type ActuatorsConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// FitnessConfig holds fitness weights.
type FitnessConfig struct {
	DistanceWeight float64 `yaml:"distance_weight"` // fitness at distance 0
	DistanceScale  float64 `yaml:"distance_scale"`  // exp(-dist/scale)
	LifetimeWeight float64 `yaml:"lifetime_weight"` // per frame survived
}

// GenerationConfig holds generation lifecycle parameters.
type GenerationConfig struct {
	Lifespan int `yaml:"lifespan"` // frames per generation
}

// PopulationConfig holds population sizing.
type PopulationConfig struct {
	Size            int     `yaml:"size"`
	ElitismFraction float64 `yaml:"elitism_fraction"`
}

// MutationConfig holds mutation parameters.
type MutationConfig struct {
	Rate               float64 `yaml:"rate"`        // probability a member is mutated by MutateAll
	WeightRate         float64 `yaml:"weight_rate"` // per-weight mutation probability
	Sigma              float64 `yaml:"sigma"`
	BigRate            float64 `yaml:"big_rate"`
	BigSigma           float64 `yaml:"big_sigma"`
	BiasRateMultiplier float64 `yaml:"bias_rate_multiplier"`
	MutateElites       bool    `yaml:"mutate_elites"`
}

// SelectionConfig holds parent selection parameters.
type SelectionConfig struct {
	Method         string  `yaml:"method"` // "power" or "tournament"
	Power          float64 `yaml:"power"`
	TournamentSize int     `yaml:"tournament_size"`
}

// NeuralConfig holds policy network parameters.
type NeuralConfig struct {
	HiddenLayers []int `yaml:"hidden_layers"`
}

// ParallelConfig holds worker pool settings for the per-tick agent pass.
type ParallelConfig struct {
	Workers   int `yaml:"workers"`   // 0 = GOMAXPROCS
	Threshold int `yaml:"threshold"` // minimum active agents before going parallel
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow    int `yaml:"perf_window"`     // ticks averaged by the perf collector
	PerfLogEvery  int `yaml:"perf_log_every"`  // generations between perf log lines (0 = never)
	StatsLogEvery int `yaml:"stats_log_every"` // generations between stats log lines
}

// StreamConfig holds renderer feed parameters.
type StreamConfig struct {
	EveryFrames int `yaml:"every_frames"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	RotationStep float64 // radians
	MaxFireAngle float64 // radians
	ElitismCount int     // round(elitism_fraction * size)
	LayerSizes   []int   // NumInputs, hidden..., NumOutputs
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.ComputeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ComputeDerived calculates values derived from loaded config.
// Call it again after mutating fields programmatically.
func (c *Config) ComputeDerived() {
	c.Derived.RotationStep = c.Physics.RotationStepDeg * math.Pi / 180
	c.Derived.MaxFireAngle = c.Physics.MaxFireAngleDeg * math.Pi / 180
	c.Derived.ElitismCount = int(math.Round(c.Population.ElitismFraction * float64(c.Population.Size)))

	sizes := make([]int, 0, len(c.Neural.HiddenLayers)+2)
	sizes = append(sizes, NumInputs)
	sizes = append(sizes, c.Neural.HiddenLayers...)
	sizes = append(sizes, NumOutputs)
	c.Derived.LayerSizes = sizes
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Playfield.Width > 0 && c.Playfield.Height > 0,
		"playfield: dimensions must be positive, got %vx%v", c.Playfield.Width, c.Playfield.Height)
	check(c.Rocket.Width > 0 && c.Rocket.Height > 0,
		"rocket: dimensions must be positive, got %vx%v", c.Rocket.Width, c.Rocket.Height)
	check(c.Rocket.Width <= c.Playfield.Width && c.Rocket.Height <= c.Playfield.Height,
		"rocket: %vx%v does not fit the playfield", c.Rocket.Width, c.Rocket.Height)
	check(c.Physics.Drag > 0 && c.Physics.Drag <= 1,
		"physics.drag: must be in (0,1], got %v", c.Physics.Drag)
	check(c.Target.Size > 0, "target.size: must be positive, got %v", c.Target.Size)
	check(c.Target.CenterMargin >= 0 && c.Target.CenterMargin < 0.5,
		"target.center_margin: must be in [0,0.5), got %v", c.Target.CenterMargin)
	check(c.Sensors.MaxSpeed > 0, "sensors.max_speed: must be positive, got %v", c.Sensors.MaxSpeed)
	check(c.Fitness.DistanceScale > 0, "fitness.distance_scale: must be positive, got %v", c.Fitness.DistanceScale)
	check(c.Generation.Lifespan > 0, "generation.lifespan: must be positive, got %d", c.Generation.Lifespan)
	check(c.Population.Size > 0, "population.size: must be positive, got %d", c.Population.Size)
	check(c.Derived.ElitismCount >= 0 && c.Derived.ElitismCount <= c.Population.Size,
		"population.elitism_fraction: %v yields elitism %d outside [0,%d]",
		c.Population.ElitismFraction, c.Derived.ElitismCount, c.Population.Size)
	check(c.Selection.Method == "power" || c.Selection.Method == "tournament",
		"selection.method: unknown %q", c.Selection.Method)
	for i, n := range c.Neural.HiddenLayers {
		check(n > 0, "neural.hidden_layers[%d]: must be positive, got %d", i, n)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Neural.HiddenLayers = append([]int(nil), c.Neural.HiddenLayers...)
	clone.Derived.LayerSizes = append([]int(nil), c.Derived.LayerSizes...)
	return &clone
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
