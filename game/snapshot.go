package game

import "github.com/pthm-cable/rockets/components"

// AgentState is the renderable state of one agent.
type AgentState struct {
	Slot      int     `json:"slot"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	VX        float64 `json:"vx"`
	VY        float64 `json:"vy"`
	Angle     float64 `json:"angle"`
	FireAngle float64 `json:"fire_angle"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Active    bool    `json:"active"`
	Thrusting bool    `json:"thrusting"`
	Lifetime  int     `json:"lifetime"`
	Fitness   float64 `json:"fitness"`
}

// Snapshot is a read-only copy of the generation state. It shares no memory
// with the simulation and may be handed to another goroutine.
type Snapshot struct {
	Generation  int               `json:"generation"`
	Frame       int               `json:"frame"`
	BestFitness float64           `json:"best_fitness"`
	Active      int               `json:"active"`
	Target      components.Target `json:"target"`
	Agents      []AgentState      `json:"agents"`
}

// Snapshot copies the current generation state.
func (s *Simulation) Snapshot() Snapshot {
	snap := Snapshot{
		Generation:  s.generation,
		Frame:       s.frame,
		BestFitness: s.bestFitness,
		Target:      s.target,
		Agents:      make([]AgentState, len(s.agents)),
	}

	for i, e := range s.agents {
		pos, vel, rot, body, flight := s.agentMapper.Get(e)
		snap.Agents[i] = AgentState{
			Slot:      flight.Slot,
			X:         pos.X,
			Y:         pos.Y,
			VX:        vel.X,
			VY:        vel.Y,
			Angle:     rot.Angle,
			FireAngle: rot.FireAngle,
			Width:     body.Width,
			Height:    body.Height,
			Active:    flight.Active,
			Thrusting: flight.Thrusting,
			Lifetime:  flight.Lifetime,
			Fitness:   flight.Fitness,
		}
		if flight.Active {
			snap.Active++
		}
	}

	return snap
}
