package telemetry

import "time"

// AgentResult is the final state of one agent, as reported at generation end.
type AgentResult struct {
	Slot     int
	Active   bool
	Lifetime int
	Fitness  float64
}

// Collector accumulates events within a generation and produces GenerationStats.
type Collector struct {
	runID string
	start time.Time

	// Event counters for current generation
	reached     int
	outOfBounds int
	faults      int
}

// NewCollector creates a new stats collector for the given run.
func NewCollector(runID string) *Collector {
	return &Collector{runID: runID, start: time.Now()}
}

// RecordReached records an agent reaching the target.
func (c *Collector) RecordReached() {
	c.reached++
}

// RecordOutOfBounds records an agent leaving the playfield.
func (c *Collector) RecordOutOfBounds() {
	c.outOfBounds++
}

// RecordFault records a policy contract violation.
func (c *Collector) RecordFault() {
	c.faults++
}

// Reached returns the number of target hits so far this generation.
func (c *Collector) Reached() int {
	return c.reached
}

// Flush produces stats for the finished generation and resets counters.
func (c *Collector) Flush(generation, frames int, reason EndReason, results []AgentResult) GenerationStats {
	fitness := make([]float64, len(results))
	lifetimes := make([]float64, len(results))
	survivors := 0
	bestLifetime := 0
	for i, r := range results {
		fitness[i] = r.Fitness
		lifetimes[i] = float64(r.Lifetime)
		if r.Active {
			survivors++
		}
		if r.Lifetime > bestLifetime {
			bestLifetime = r.Lifetime
		}
	}

	fs := Summarize(fitness)
	ls := Summarize(lifetimes)

	bestSlot := -1
	if fs.ArgMax >= 0 {
		bestSlot = results[fs.ArgMax].Slot
	}

	stats := GenerationStats{
		RunID:        c.runID,
		Generation:   generation,
		Frames:       frames,
		Reason:       string(reason),
		Population:   len(results),
		Survivors:    survivors,
		Reached:      c.reached,
		OutOfBounds:  c.outOfBounds,
		Faults:       c.faults,
		BestFitness:  fs.Max,
		MeanFitness:  fs.Mean,
		StdFitness:   fs.Std,
		P50Fitness:   fs.P50,
		P90Fitness:   fs.P90,
		BestSlot:     bestSlot,
		BestLifetime: bestLifetime,
		MeanLifetime: ls.Mean,
		ElapsedMS:    time.Since(c.start).Milliseconds(),
	}

	c.reached = 0
	c.outOfBounds = 0
	c.faults = 0
	c.start = time.Now()

	return stats
}
