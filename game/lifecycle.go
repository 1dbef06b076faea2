package game

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/rockets/components"
	"github.com/pthm-cable/rockets/telemetry"
)

// checkPopulation validates the evolver's population before it is simulated.
func (s *Simulation) checkPopulation() ([]Policy, error) {
	pop := s.evolver.Population()
	size := s.evolver.Size()
	elitism := s.evolver.Elitism()

	switch {
	case size <= 0:
		return nil, fmt.Errorf("%w: empty population", ErrPopulationMismatch)
	case len(pop) != size:
		return nil, fmt.Errorf("%w: population has %d members, size is %d", ErrPopulationMismatch, len(pop), size)
	case elitism < 0 || elitism > size:
		return nil, fmt.Errorf("%w: elitism %d outside [0,%d]", ErrPopulationMismatch, elitism, size)
	}
	for i, p := range pop {
		if p == nil {
			return nil, fmt.Errorf("%w: member %d is nil", ErrPopulationMismatch, i)
		}
	}
	return pop, nil
}

// startGeneration places a new target and spawns one agent per policy.
func (s *Simulation) startGeneration(policies []Policy) {
	s.clearAgents()

	s.frame = 0
	s.bestFitness = 0
	s.scored = false
	s.target = s.placeTarget(s.rng, s.cfg)
	s.policies = append(s.policies[:0], policies...)

	for slot := range policies {
		s.agents = append(s.agents, s.spawnAgent(slot))
	}
}

// spawnAgent creates an agent at the launch position.
func (s *Simulation) spawnAgent(slot int) ecs.Entity {
	cfg := s.cfg

	pos := components.Position{
		X: cfg.Playfield.Width * cfg.Rocket.SpawnXFraction,
		Y: cfg.Playfield.Height - cfg.Rocket.SpawnBottomOffset,
	}
	vel := components.Velocity{}
	rot := components.Rotation{}
	body := components.Body{Width: cfg.Rocket.Width, Height: cfg.Rocket.Height}
	flight := components.Flight{Slot: slot, Active: true}

	return s.agentMapper.NewEntity(&pos, &vel, &rot, &body, &flight)
}

// clearAgents removes the previous generation's agents from the world.
func (s *Simulation) clearAgents() {
	for _, e := range s.agents {
		s.world.RemoveEntity(e)
	}
	s.agents = s.agents[:0]
}

// endGeneration scores every agent, assembles the next population and
// respawns. The generation counter only advances if the evolver cooperates.
func (s *Simulation) endGeneration(reason telemetry.EndReason) (StepResult, error) {
	s.perf.StartTick()
	s.perf.StartPhase(telemetry.PhaseEvolve)
	defer s.perf.EndTick()

	gen := s.generation
	result := StepResult{Generation: gen, Frame: s.frame, Ended: true}

	if _, err := s.checkPopulation(); err != nil {
		return result, fmt.Errorf("generation %d: %w", gen, err)
	}

	// Scores are assigned by slot, which only matches the evolver's order
	// before its first SortByScore. A retry after a failed boundary reuses them.
	results := make([]telemetry.AgentResult, len(s.agents))
	for i, e := range s.agents {
		flight := s.agentFlight(e)
		results[i] = telemetry.AgentResult{
			Slot:     flight.Slot,
			Active:   flight.Active,
			Lifetime: flight.Lifetime,
			Fitness:  flight.Fitness,
		}
		if !s.scored {
			s.evolver.SetScore(flight.Slot, flight.Fitness)
		}
	}
	s.scored = true

	next, err := s.nextPopulation()
	if err != nil {
		return result, fmt.Errorf("generation %d: %w", gen, err)
	}

	result.Stats = s.collector.Flush(gen, s.frame, reason, results)
	if every := s.cfg.Telemetry.StatsLogEvery; every > 0 && gen%every == 0 {
		result.Stats.LogStats(s.logger)
	}

	s.generation++
	s.startGeneration(next)

	if s.onGenerationEnd != nil {
		s.onGenerationEnd(result.Stats)
	}
	return result, nil
}

// nextPopulation sorts by score, keeps the elites verbatim, fills the rest
// with offspring and mutates once.
func (s *Simulation) nextPopulation() ([]Policy, error) {
	size := s.evolver.Size()
	elitism := s.evolver.Elitism()

	s.evolver.SortByScore()
	sorted := s.evolver.Population()
	if len(sorted) != size {
		return nil, fmt.Errorf("%w: sorted population has %d members, size is %d", ErrPopulationMismatch, len(sorted), size)
	}

	next := make([]Policy, 0, size)
	next = append(next, sorted[:elitism]...)
	for len(next) < size {
		child := s.evolver.Offspring()
		if child == nil {
			if e, ok := s.evolver.(OffspringErrorer); ok && e.LastError() != nil {
				return nil, fmt.Errorf("%w: evolver produced no offspring: %w", ErrPopulationMismatch, e.LastError())
			}
			return nil, fmt.Errorf("%w: evolver produced no offspring", ErrPopulationMismatch)
		}
		next = append(next, child)
	}

	if err := s.evolver.SetPopulation(next); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPopulationMismatch, err)
	}
	s.evolver.MutateAll()

	return s.checkPopulation()
}

func (s *Simulation) agentFlight(e ecs.Entity) *components.Flight {
	_, _, _, _, flight := s.agentMapper.Get(e)
	return flight
}
