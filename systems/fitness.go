package systems

import (
	"math"

	"github.com/pthm-cable/rockets/components"
	"github.com/pthm-cable/rockets/config"
)

// FitnessSystem scores agents by proximity to the target and survival time.
type FitnessSystem struct {
	distanceWeight float64
	distanceScale  float64
	lifetimeWeight float64
}

// NewFitnessSystem creates a new fitness system.
func NewFitnessSystem(cfg *config.Config) *FitnessSystem {
	return &FitnessSystem{
		distanceWeight: cfg.Fitness.DistanceWeight,
		distanceScale:  cfg.Fitness.DistanceScale,
		lifetimeWeight: cfg.Fitness.LifetimeWeight,
	}
}

// DistanceFitness is strictly decreasing in dist and equals the distance weight at 0.
func (s *FitnessSystem) DistanceFitness(dist float64) float64 {
	return math.Max(0, s.distanceWeight*math.Exp(-dist/s.distanceScale))
}

// LifetimeFitness rewards survival independent of proximity.
func (s *FitnessSystem) LifetimeFitness(lifetime int) float64 {
	return float64(lifetime) * s.lifetimeWeight
}

// Evaluate returns the total fitness of an agent.
func (s *FitnessSystem) Evaluate(pos components.Position, body components.Body, target components.Target, lifetime int) float64 {
	return s.DistanceFitness(CenterDistance(pos, body, target)) + s.LifetimeFitness(lifetime)
}

// CenterDistance is the Euclidean distance between agent and target centers.
func CenterDistance(pos components.Position, body components.Body, target components.Target) float64 {
	ax, ay := body.Center(pos)
	tx, ty := target.Center()
	return math.Hypot(tx-ax, ty-ay)
}

// ReachedTarget is a circular overlap test: the centers must be closer than a
// quarter of the combined widths.
func ReachedTarget(pos components.Position, body components.Body, target components.Target) bool {
	return CenterDistance(pos, body, target) < CollisionRadius(body, target)
}

// CollisionRadius is the center distance below which an agent reaches the target.
func CollisionRadius(body components.Body, target components.Target) float64 {
	return (body.Width + target.Width) / 4
}
