package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/rockets/config"
	"github.com/pthm-cable/rockets/telemetry"
)

func TestParamVector_NormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector()
	raw := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(back[i]-raw[i]) > 1e-12 {
			t.Errorf("%s: %v -> %v", pv.Specs[i].Name, raw[i], back[i])
		}
	}
}

func TestParamVector_DefaultsMatchConfig(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()
	got := pv.ExtractFromConfig(cfg)
	if len(got) != pv.Dim() {
		t.Fatalf("ExtractFromConfig returned %d values, want %d", len(got), pv.Dim())
	}
	for i, spec := range pv.Specs {
		if got[i] != spec.Default {
			t.Errorf("%s: config default %v, spec default %v", spec.Name, got[i], spec.Default)
		}
	}
}

func TestParamVector_ApplyClampsAndDerives(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()

	values := pv.DefaultVector()
	values[0] = 5     // mutation rate above max
	values[6] = 0.205 // elitism fraction
	pv.ApplyToConfig(cfg, values)

	if cfg.Mutation.Rate != 1.0 {
		t.Errorf("Mutation.Rate = %v, want clamped to 1", cfg.Mutation.Rate)
	}
	if cfg.Derived.ElitismCount != int(math.Round(0.205*float64(cfg.Population.Size))) {
		t.Errorf("ElitismCount = %d not recomputed", cfg.Derived.ElitismCount)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("applied config invalid: %v", err)
	}

	got := pv.ExtractFromConfig(cfg)
	if got[0] != 1.0 || got[6] != 0.205 {
		t.Errorf("ExtractFromConfig = %v", got)
	}
}

func TestComputeFitness(t *testing.T) {
	stats := make([]telemetry.GenerationStats, 8)
	for i := range stats {
		stats[i].BestFitness = float64(i * 10)
	}
	// Final quarter: generations 6 and 7
	if got := computeFitness(stats); got != -65 {
		t.Errorf("computeFitness = %v, want -65", got)
	}
	if got := computeFitness(stats[:1]); got != 0 {
		t.Errorf("single generation = %v, want 0", got)
	}
	if got := computeFitness(nil); got != 0 {
		t.Errorf("empty = %v, want 0", got)
	}
}

func TestFitnessEvaluator_ShortRun(t *testing.T) {
	cfg := config.Default()
	cfg.Population.Size = 12
	cfg.Generation.Lifespan = 30
	cfg.ComputeDerived()

	pv := NewParamVector()
	fe := NewFitnessEvaluator(pv, 2, []int64{1, 2}, cfg)

	fitness := fe.Evaluate(pv.DefaultVector())
	if math.IsInf(fitness, 0) || math.IsNaN(fitness) {
		t.Fatalf("Evaluate = %v", fitness)
	}
	if fitness >= 0 {
		t.Errorf("Evaluate = %v, want negative (best fitness is positive)", fitness)
	}
	if fe.LastReached() < 0 {
		t.Errorf("LastReached = %v", fe.LastReached())
	}
}
