// Package systems contains the per-agent simulation systems: physics, sensors,
// actuators, fitness and target placement.
package systems

import (
	"math"

	"github.com/pthm-cable/rockets/components"
	"github.com/pthm-cable/rockets/config"
)

// Bounds represents the playfield bounds.
type Bounds struct {
	Width, Height float64
}

// BoundsFrom returns the playfield bounds from config.
func BoundsFrom(cfg *config.Config) Bounds {
	return Bounds{Width: cfg.Playfield.Width, Height: cfg.Playfield.Height}
}

// PhysicsSystem integrates agent motion and enforces the playfield walls.
type PhysicsSystem struct {
	drag    float64
	gravity float64
	thrust  float64
	bounds  Bounds
}

// NewPhysicsSystem creates a new physics system.
func NewPhysicsSystem(cfg *config.Config) *PhysicsSystem {
	return &PhysicsSystem{
		drag:    cfg.Physics.Drag,
		gravity: cfg.Physics.Gravity,
		thrust:  cfg.Physics.Thrust,
		bounds:  BoundsFrom(cfg),
	}
}

// Integrate advances one tick: drag, gravity, thrust along the heading, then position.
func (s *PhysicsSystem) Integrate(pos *components.Position, vel *components.Velocity, rot components.Rotation, thrusting bool) {
	vel.X *= s.drag
	vel.Y += s.gravity

	if thrusting {
		vel.X += s.thrust * math.Sin(rot.Angle)
		vel.Y -= s.thrust * math.Cos(rot.Angle)
	}

	pos.X += vel.X
	pos.Y += vel.Y
}

// KeepInBounds clamps a body that left the playfield back inside and zeroes its
// velocity. Returns true if the body was out of bounds; the caller deactivates it.
func (s *PhysicsSystem) KeepInBounds(pos *components.Position, vel *components.Velocity, body components.Body) bool {
	maxX := s.bounds.Width - body.Width
	maxY := s.bounds.Height - body.Height

	if pos.X >= 0 && pos.X <= maxX && pos.Y >= 0 && pos.Y <= maxY {
		return false
	}

	pos.X = clamp(pos.X, 0, maxX)
	pos.Y = clamp(pos.Y, 0, maxY)
	vel.X = 0
	vel.Y = 0
	return true
}

// Step runs Integrate followed by KeepInBounds.
func (s *PhysicsSystem) Step(pos *components.Position, vel *components.Velocity, rot components.Rotation, body components.Body, thrusting bool) (exited bool) {
	s.Integrate(pos, vel, rot, thrusting)
	return s.KeepInBounds(pos, vel, body)
}

// Contains reports whether a body at pos lies fully inside the playfield.
func (s *PhysicsSystem) Contains(pos components.Position, body components.Body) bool {
	return pos.X >= 0 && pos.X <= s.bounds.Width-body.Width &&
		pos.Y >= 0 && pos.Y <= s.bounds.Height-body.Height
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
