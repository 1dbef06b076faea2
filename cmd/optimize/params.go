// Package main provides CMA-ES optimization of the evolver's hyper-parameters.
package main

import (
	"math"

	"github.com/pthm-cable/rockets/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Mutation
			{Name: "mutation_rate", Path: "mutation.rate", Min: 0.05, Max: 1.0, Default: 0.3},
			{Name: "weight_rate", Path: "mutation.weight_rate", Min: 0.01, Max: 0.5, Default: 0.1},
			{Name: "sigma", Path: "mutation.sigma", Min: 0.02, Max: 1.0, Default: 0.2},
			{Name: "big_rate", Path: "mutation.big_rate", Min: 0.0, Max: 0.3, Default: 0.05},
			{Name: "big_sigma", Path: "mutation.big_sigma", Min: 0.2, Max: 3.0, Default: 1.0},
			// Selection
			{Name: "selection_power", Path: "selection.power", Min: 1.0, Max: 8.0, Default: 4.0},
			// Population
			{Name: "elitism_fraction", Path: "population.elitism_fraction", Min: 0.0, Max: 0.4, Default: 0.1},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = math.Max(spec.Min, math.Min(spec.Max, v[i]))
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct and recomputes
// derived values. Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Mutation.Rate = clamped[0]
	cfg.Mutation.WeightRate = clamped[1]
	cfg.Mutation.Sigma = clamped[2]
	cfg.Mutation.BigRate = clamped[3]
	cfg.Mutation.BigSigma = clamped[4]

	cfg.Selection.Method = "power"
	cfg.Selection.Power = clamped[5]

	cfg.Population.ElitismFraction = clamped[6]

	cfg.ComputeDerived()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Mutation.Rate,
		cfg.Mutation.WeightRate,
		cfg.Mutation.Sigma,
		cfg.Mutation.BigRate,
		cfg.Mutation.BigSigma,
		cfg.Selection.Power,
		cfg.Population.ElitismFraction,
	}
}
