package main

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sync"

	"github.com/pthm-cable/rockets/config"
	"github.com/pthm-cable/rockets/evolve"
	"github.com/pthm-cable/rockets/game"
	"github.com/pthm-cable/rockets/telemetry"
)

// FitnessEvaluator runs headless training runs and scores a parameter vector.
type FitnessEvaluator struct {
	params      *ParamVector
	generations int
	seeds       []int64
	baseConfig  *config.Config
	logger      *slog.Logger

	mu          sync.Mutex
	lastReached float64 // mean targets reached per generation, most recent Evaluate
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, generations int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		generations: generations,
		seeds:       seeds,
		baseConfig:  baseCfg,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// LastReached returns the mean target hits per generation of the most recent evaluation.
func (fe *FitnessEvaluator) LastReached() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastReached
}

// runResult holds the results from a single training run.
type runResult struct {
	stats []telemetry.GenerationStats
	err   error
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is the negated mean best fitness over the final quarter of the
// generations, averaged across seeds. Failed runs score +Inf.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runTraining(x, s)
		}(i, seed)
	}
	wg.Wait()

	var total, reached float64
	for _, r := range results {
		if r.err != nil {
			return math.Inf(1)
		}
		total += computeFitness(r.stats)
		for _, s := range r.stats {
			reached += float64(s.Reached)
		}
	}

	n := float64(len(fe.seeds))
	fe.mu.Lock()
	fe.lastReached = reached / (n * float64(fe.generations))
	fe.mu.Unlock()

	return total / n
}

// runTraining executes one headless training run.
func (fe *FitnessEvaluator) runTraining(x []float64, seed int64) runResult {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	// Seeds already run in parallel.
	cfg.Parallel.Workers = 1

	if err := cfg.Validate(); err != nil {
		return runResult{err: err}
	}

	pop, err := evolve.NewPopulation(cfg, rand.New(rand.NewSource(seed+1)))
	if err != nil {
		return runResult{err: err}
	}

	sim, err := game.NewSimulation(game.Options{
		Config:  cfg,
		Evolver: pop,
		Seed:    seed,
		RunID:   "optimize",
		Logger:  fe.logger,
	})
	if err != nil {
		return runResult{err: err}
	}
	defer sim.Close()

	result := runResult{stats: make([]telemetry.GenerationStats, 0, fe.generations)}
	for g := 0; g < fe.generations; g++ {
		stats, err := sim.RunGeneration()
		if err != nil {
			result.err = err
			return result
		}
		result.stats = append(result.stats, stats)
	}
	return result
}

// computeFitness negates the mean best fitness of the final quarter of the run.
func computeFitness(stats []telemetry.GenerationStats) float64 {
	if len(stats) == 0 {
		return 0
	}
	tail := max(len(stats)/4, 1)
	var sum float64
	for _, s := range stats[len(stats)-tail:] {
		sum += s.BestFitness
	}
	return -sum / float64(tail)
}
