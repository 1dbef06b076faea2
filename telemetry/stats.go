package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EndReason records why a generation ended.
type EndReason string

const (
	EndLifespan    EndReason = "lifespan"
	EndAllInactive EndReason = "all_inactive"
)

// GenerationStats holds aggregated statistics for one finished generation.
type GenerationStats struct {
	RunID      string `csv:"run_id" json:"run_id"`
	Generation int    `csv:"generation" json:"generation"`
	Frames     int    `csv:"frames" json:"frames"`
	Reason     string `csv:"reason" json:"reason"`

	// Population counts at generation end
	Population int `csv:"population" json:"population"`
	Survivors  int `csv:"survivors" json:"survivors"` // still active when the generation ended

	// Events during the generation
	Reached     int `csv:"reached" json:"reached"`
	OutOfBounds int `csv:"out_of_bounds" json:"out_of_bounds"`
	Faults      int `csv:"faults" json:"faults"`

	// Fitness distribution
	BestFitness float64 `csv:"best_fitness" json:"best_fitness"`
	MeanFitness float64 `csv:"mean_fitness" json:"mean_fitness"`
	StdFitness  float64 `csv:"std_fitness" json:"std_fitness"`
	P50Fitness  float64 `csv:"p50_fitness" json:"p50_fitness"`
	P90Fitness  float64 `csv:"p90_fitness" json:"p90_fitness"`
	BestSlot    int     `csv:"best_slot" json:"best_slot"`

	// Lifetime distribution
	BestLifetime int     `csv:"best_lifetime" json:"best_lifetime"`
	MeanLifetime float64 `csv:"mean_lifetime" json:"mean_lifetime"`

	ElapsedMS int64 `csv:"elapsed_ms" json:"elapsed_ms"`
}

// FitnessSummary holds distribution statistics of a sample.
type FitnessSummary struct {
	Max     float64
	ArgMax  int
	Mean    float64
	Std     float64
	P50     float64
	P90     float64
	Samples int
}

// Summarize computes the distribution statistics of values.
// Returns the zero summary (ArgMax -1) for an empty slice.
func Summarize(values []float64) FitnessSummary {
	n := len(values)
	if n == 0 {
		return FitnessSummary{ArgMax: -1}
	}

	s := FitnessSummary{Samples: n}
	s.ArgMax = floats.MaxIdx(values)
	s.Max = values[s.ArgMax]

	if n > 1 {
		s.Mean, s.Std = stat.MeanStdDev(values, nil)
	} else {
		s.Mean = values[0]
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	s.P50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.P90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)

	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("run_id", s.RunID),
		slog.Int("generation", s.Generation),
		slog.Int("frames", s.Frames),
		slog.String("reason", s.Reason),
		slog.Int("population", s.Population),
		slog.Int("survivors", s.Survivors),
		slog.Int("reached", s.Reached),
		slog.Int("out_of_bounds", s.OutOfBounds),
		slog.Int("faults", s.Faults),
		slog.Float64("best_fitness", s.BestFitness),
		slog.Float64("mean_fitness", s.MeanFitness),
		slog.Float64("std_fitness", s.StdFitness),
		slog.Float64("p50_fitness", s.P50Fitness),
		slog.Float64("p90_fitness", s.P90Fitness),
		slog.Int("best_slot", s.BestSlot),
		slog.Int("best_lifetime", s.BestLifetime),
		slog.Float64("mean_lifetime", s.MeanLifetime),
		slog.Int64("elapsed_ms", s.ElapsedMS),
	)
}

// LogStats logs the generation stats using the given logger.
func (s GenerationStats) LogStats(logger *slog.Logger) {
	logger.Info("Generation ended",
		"generation", s.Generation,
		"reason", s.Reason,
		"frames", s.Frames,
		"best_fitness", s.BestFitness,
		"mean_fitness", s.MeanFitness,
		"reached", s.Reached,
		"out_of_bounds", s.OutOfBounds,
		"survivors", s.Survivors,
		"faults", s.Faults,
	)
}
