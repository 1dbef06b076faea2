// Package components defines ECS components for the simulation.
package components

// Position is the top-left corner of an agent's bounding box.
type Position struct {
	X, Y float64
}

// Velocity represents an agent's velocity in world units per tick.
type Velocity struct {
	X, Y float64
}

// Rotation holds heading and the cosmetic exhaust deflection.
type Rotation struct {
	Angle     float64 // radians, 0 = nose up, positive = clockwise
	FireAngle float64 // exhaust deflection, eased toward 0 when not rotating
}

// Flight holds per-generation agent state.
type Flight struct {
	Slot      int  // index of the agent's policy in the evolver population
	Active    bool // false once out of bounds, on target, or after a policy fault
	Thrusting bool // thrust decision of the most recent tick
	Lifetime  int  // frames survived while active
	Fitness   float64
}

// Rect is an axis-aligned rectangle in world coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the rectangle center.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Target is the collection target agents steer toward.
type Target struct {
	Rect
}
