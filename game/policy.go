package game

import "errors"

// ErrPopulationMismatch is returned when the evolver population cannot be
// simulated: empty, wrong size, elitism out of range, or rejected policies.
var ErrPopulationMismatch = errors.New("population mismatch")

// Policy maps sensor inputs to actuator outputs.
//
// Evaluate must not keep state between calls. The simulation may call it
// concurrently for different agents within a tick.
type Policy interface {
	Evaluate(inputs []float64) []float64
}

// Evolver owns the population of policies and produces the next generation.
// The simulation borrows policies for one generation at a time.
type Evolver interface {
	// Population returns the current members in slot order.
	Population() []Policy
	Size() int
	// Elitism is the number of top members copied unchanged into the next generation.
	Elitism() int

	SetScore(i int, score float64)
	// SortByScore orders the population by descending score.
	SortByScore()
	// Offspring breeds a new member from the scored population.
	Offspring() Policy
	// SetPopulation replaces the population. It fails for foreign policy types.
	SetPopulation(members []Policy) error
	// MutateAll mutates the population in place once per generation.
	MutateAll()
}

// OffspringErrorer is implemented by evolvers that can explain a nil
// Offspring result.
type OffspringErrorer interface {
	LastError() error
}
