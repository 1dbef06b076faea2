package systems

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/rockets/components"
	"github.com/pthm-cable/rockets/config"
)

// Output contract violations.
var (
	ErrOutputArity     = errors.New("policy output has wrong length")
	ErrOutputNonFinite = errors.New("policy output is not finite")
)

// Turn is the rotation command decoded from a policy output.
type Turn int8

const (
	TurnNone Turn = iota
	TurnLeft
	TurnRight
)

func (t Turn) String() string {
	switch t {
	case TurnLeft:
		return "left"
	case TurnRight:
		return "right"
	default:
		return "none"
	}
}

// Controls are the effects of one policy decision.
type Controls struct {
	Thrust bool
	Turn   Turn
}

// ValidateOutputs checks a policy output against the actuator contract.
func ValidateOutputs(out []float64) error {
	if len(out) != config.NumOutputs {
		return fmt.Errorf("%w: got %d, want %d", ErrOutputArity, len(out), config.NumOutputs)
	}
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: output[%d] = %v", ErrOutputNonFinite, i, v)
		}
	}
	return nil
}

// ActuatorSystem turns policy outputs into heading and exhaust changes.
type ActuatorSystem struct {
	threshold    float64
	rotationStep float64
	fireStep     float64
	maxFire      float64
	easing       float64
}

// NewActuatorSystem creates a new actuator system.
func NewActuatorSystem(cfg *config.Config) *ActuatorSystem {
	return &ActuatorSystem{
		threshold:    cfg.Actuators.Threshold,
		rotationStep: cfg.Derived.RotationStep,
		fireStep:     cfg.Physics.FireAngleStep,
		maxFire:      cfg.Derived.MaxFireAngle,
		easing:       cfg.Physics.FireAngleEasing,
	}
}

// Decode maps a validated output vector to controls.
// Left takes priority when both rotation outputs fire.
func (s *ActuatorSystem) Decode(out []float64) Controls {
	c := Controls{Thrust: out[0] > s.threshold}
	switch {
	case out[1] > s.threshold:
		c.Turn = TurnLeft
	case out[2] > s.threshold:
		c.Turn = TurnRight
	}
	return c
}

// Rotate applies the rotation command. Heading moves by a fixed step per tick;
// the exhaust angle follows, capped at the max deflection, and relaxes toward 0
// when not rotating.
func (s *ActuatorSystem) Rotate(rot *components.Rotation, turn Turn) {
	switch turn {
	case TurnLeft:
		rot.Angle -= s.rotationStep
		rot.FireAngle = math.Min(rot.FireAngle+s.fireStep, s.maxFire)
	case TurnRight:
		rot.Angle += s.rotationStep
		rot.FireAngle = math.Max(rot.FireAngle-s.fireStep, -s.maxFire)
	default:
		rot.FireAngle += (0 - rot.FireAngle) * s.easing
	}
}
