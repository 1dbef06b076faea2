package systems

import (
	"math/rand"

	"github.com/pthm-cable/rockets/components"
	"github.com/pthm-cable/rockets/config"
)

// PlaceTarget picks a target inside the central region of the playfield.
// The region keeps center_margin of each dimension clear on both sides, and
// the whole target rectangle stays inside it.
func PlaceTarget(rng *rand.Rand, cfg *config.Config) components.Target {
	size := cfg.Target.Size
	margin := cfg.Target.CenterMargin

	x := regionOffset(rng, cfg.Playfield.Width, margin, size)
	y := regionOffset(rng, cfg.Playfield.Height, margin, size)

	return components.Target{Rect: components.Rect{X: x, Y: y, Width: size, Height: size}}
}

// CenteredTarget places a target of the configured size at the playfield center.
func CenteredTarget(cfg *config.Config) components.Target {
	size := cfg.Target.Size
	return components.Target{Rect: components.Rect{
		X:      cfg.Playfield.Width/2 - size/2,
		Y:      cfg.Playfield.Height/2 - size/2,
		Width:  size,
		Height: size,
	}}
}

func regionOffset(rng *rand.Rand, extent, margin, size float64) float64 {
	lo := extent * margin
	hi := extent * (1 - margin)
	span := hi - lo - size
	if span <= 0 {
		return lo
	}
	return lo + rng.Float64()*span
}
