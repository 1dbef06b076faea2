package systems

import (
	"math"

	"github.com/pthm-cable/rockets/components"
	"github.com/pthm-cable/rockets/config"
)

const twoPi = 2 * math.Pi

// SensorInputs holds the computed sensor values for one agent.
// Total: config.NumInputs floats.
type SensorInputs struct {
	TargetDX    float64 // target center - agent center, / playfield width
	TargetDY    float64 // target center - agent center, / playfield height
	VelX        float64 // vx / max speed
	VelY        float64 // vy / max speed
	TargetAngle float64 // atan2(dy, dx) / 2pi, signed
	Heading     float64 // mod(angle, 2pi) / 2pi, keeps the sign of angle
	AngleDiff   float64 // TargetAngle - Heading
	WallLeft    float64
	WallRight   float64
	WallTop     float64
	WallBottom  float64
}

// FillSlice writes inputs into dst in network order and returns it.
// dst must have room for config.NumInputs values.
func (s *SensorInputs) FillSlice(dst []float64) []float64 {
	dst = dst[:config.NumInputs]
	dst[0] = s.TargetDX
	dst[1] = s.TargetDY
	dst[2] = s.VelX
	dst[3] = s.VelY
	dst[4] = s.TargetAngle
	dst[5] = s.Heading
	dst[6] = s.AngleDiff
	dst[7] = s.WallLeft
	dst[8] = s.WallRight
	dst[9] = s.WallTop
	dst[10] = s.WallBottom
	return dst
}

// AsSlice returns the sensor inputs as a freshly allocated slice.
func (s *SensorInputs) AsSlice() []float64 {
	return s.FillSlice(make([]float64, config.NumInputs))
}

// SensorSystem encodes world state into network inputs.
type SensorSystem struct {
	bounds   Bounds
	maxSpeed float64
}

// NewSensorSystem creates a new sensor system.
func NewSensorSystem(cfg *config.Config) *SensorSystem {
	return &SensorSystem{bounds: BoundsFrom(cfg), maxSpeed: cfg.Sensors.MaxSpeed}
}

// Compute calculates all sensor inputs for an agent. It depends only on its
// arguments, so identical state yields bit-identical inputs.
func (s *SensorSystem) Compute(
	pos components.Position,
	vel components.Velocity,
	rot components.Rotation,
	body components.Body,
	target components.Target,
) SensorInputs {
	var in SensorInputs

	ax, ay := body.Center(pos)
	tx, ty := target.Center()
	dx, dy := tx-ax, ty-ay

	in.TargetDX = dx / s.bounds.Width
	in.TargetDY = dy / s.bounds.Height

	in.VelX = vel.X / s.maxSpeed
	in.VelY = vel.Y / s.maxSpeed

	// Neither angle is wrapped into [0,1]; negative values pass through.
	in.TargetAngle = math.Atan2(dy, dx) / twoPi
	in.Heading = math.Mod(rot.Angle, twoPi) / twoPi
	in.AngleDiff = in.TargetAngle - in.Heading

	in.WallLeft = pos.X / s.bounds.Width
	in.WallRight = (s.bounds.Width - (pos.X + body.Width)) / s.bounds.Width
	in.WallTop = pos.Y / s.bounds.Height
	in.WallBottom = (s.bounds.Height - (pos.Y + body.Height)) / s.bounds.Height

	return in
}
