// Package game runs the generational rocket simulation: per-tick physics,
// sensing and scoring of every agent, and the hand-off to the evolver when a
// generation ends.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/rockets/components"
	"github.com/pthm-cable/rockets/config"
	"github.com/pthm-cable/rockets/systems"
	"github.com/pthm-cable/rockets/telemetry"
)

// TargetPlacer picks the target for a new generation.
type TargetPlacer func(rng *rand.Rand, cfg *config.Config) components.Target

// Options configures a Simulation.
type Options struct {
	Config  *config.Config // required
	Evolver Evolver        // required

	Seed   int64        // seeds target placement
	RunID  string       // defaults to a random UUID
	Logger *slog.Logger // defaults to slog.Default()

	// PlaceTarget overrides random target placement.
	PlaceTarget TargetPlacer

	// OnGenerationEnd is called after each generation is scored and the
	// next population is in place.
	OnGenerationEnd func(stats telemetry.GenerationStats)
}

// StepResult describes what a call to Step did.
type StepResult struct {
	Generation int  // generation the step belonged to
	Frame      int  // frame index after the step
	Ended      bool // the generation ended instead of ticking
	Stats      telemetry.GenerationStats
}

// Simulation holds the complete state of one training run.
type Simulation struct {
	cfg     *config.Config
	evolver Evolver
	logger  *slog.Logger
	rng     *rand.Rand
	runID   string

	world *ecs.World

	// Entity mapper for spawning agents
	agentMapper *ecs.Map5[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Body,
		components.Flight,
	]
	flightFilter *ecs.Filter1[components.Flight]

	// Agents in slot order, and the policies borrowed for this generation
	agents   []ecs.Entity
	policies []Policy

	physics   *systems.PhysicsSystem
	sensors   *systems.SensorSystem
	actuators *systems.ActuatorSystem
	fitness   *systems.FitnessSystem

	placeTarget     TargetPlacer
	onGenerationEnd func(telemetry.GenerationStats)

	// Generation state
	generation  int
	frame       int
	bestFitness float64
	target      components.Target
	scored      bool // scores handed to the evolver for this generation

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	parallel  *parallelState
}

// NewSimulation creates a simulation and spawns generation 0 from the
// evolver's current population.
func NewSimulation(opts Options) (*Simulation, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("new simulation: config is required")
	}
	if opts.Evolver == nil {
		return nil, fmt.Errorf("new simulation: %w: evolver is required", ErrPopulationMismatch)
	}

	cfg := opts.Config
	world := ecs.NewWorld()

	s := &Simulation{
		cfg:     cfg,
		evolver: opts.Evolver,
		logger:  opts.Logger,
		rng:     rand.New(rand.NewSource(opts.Seed)),
		runID:   opts.RunID,
		world:   world,
		agentMapper: ecs.NewMap5[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Body,
			components.Flight,
		](world),
		flightFilter:    ecs.NewFilter1[components.Flight](world),
		physics:         systems.NewPhysicsSystem(cfg),
		sensors:         systems.NewSensorSystem(cfg),
		actuators:       systems.NewActuatorSystem(cfg),
		fitness:         systems.NewFitnessSystem(cfg),
		placeTarget:     opts.PlaceTarget,
		onGenerationEnd: opts.OnGenerationEnd,
		perf:            telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		parallel:        newParallelState(cfg.Parallel.Workers, cfg.Parallel.Threshold),
	}

	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("run_id", s.runID)
	if s.placeTarget == nil {
		s.placeTarget = systems.PlaceTarget
	}
	s.collector = telemetry.NewCollector(s.runID)

	policies, err := s.checkPopulation()
	if err != nil {
		return nil, fmt.Errorf("new simulation: %w", err)
	}
	s.startGeneration(policies)

	return s, nil
}

// Step advances the simulation by one frame. If the generation is over (the
// lifespan is used up or no agent is active) it instead scores the agents,
// asks the evolver for the next population and starts the next generation.
//
// An error wrapping ErrPopulationMismatch leaves the simulation at the end of
// the current generation; nothing is respawned.
func (s *Simulation) Step() (StepResult, error) {
	if s.frame >= s.cfg.Generation.Lifespan || s.ActiveCount() == 0 {
		reason := telemetry.EndLifespan
		if s.frame < s.cfg.Generation.Lifespan {
			reason = telemetry.EndAllInactive
		}
		return s.endGeneration(reason)
	}

	gen := s.generation
	s.tick()
	s.frame++
	return StepResult{Generation: gen, Frame: s.frame}, nil
}

// RunGeneration steps until the current generation ends and returns its stats.
func (s *Simulation) RunGeneration() (telemetry.GenerationStats, error) {
	for {
		res, err := s.Step()
		if err != nil {
			return res.Stats, err
		}
		if res.Ended {
			return res.Stats, nil
		}
	}
}

// Close stops the worker pool.
func (s *Simulation) Close() {
	s.parallel.stopWorkers()
}

// Config returns the simulation configuration.
func (s *Simulation) Config() *config.Config {
	return s.cfg
}

// RunID returns the identifier stamped on logs and stats.
func (s *Simulation) RunID() string {
	return s.runID
}

// Generation returns the current generation index.
func (s *Simulation) Generation() int {
	return s.generation
}

// Frame returns the frame index within the current generation.
func (s *Simulation) Frame() int {
	return s.frame
}

// BestFitness returns the best fitness observed this generation.
func (s *Simulation) BestFitness() float64 {
	return s.bestFitness
}

// Target returns the current target.
func (s *Simulation) Target() components.Target {
	return s.target
}

// PerfStats returns timing statistics over the recent ticks.
func (s *Simulation) PerfStats() telemetry.PerfStats {
	return s.perf.Stats()
}

// ActiveCount returns the number of agents still flying.
func (s *Simulation) ActiveCount() int {
	n := 0
	query := s.flightFilter.Query()
	for query.Next() {
		if query.Get().Active {
			n++
		}
	}
	return n
}
