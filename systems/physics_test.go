package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/rockets/components"
	"github.com/pthm-cable/rockets/config"
)

func testConfig(t testing.TB) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func TestIntegrateAppliesDragGravityThrustInOrder(t *testing.T) {
	cfg := testConfig(t)
	ps := NewPhysicsSystem(cfg)

	pos := components.Position{X: 100, Y: 100}
	vel := components.Velocity{X: 1, Y: 0}
	rot := components.Rotation{Angle: math.Pi / 2}

	ps.Integrate(&pos, &vel, rot, true)

	// Drag hits the old vx only; thrust is added after.
	wantVX := 1*0.99 + 0.45*math.Sin(math.Pi/2)
	wantVY := 0.4 - 0.45*math.Cos(math.Pi/2)
	if math.Abs(vel.X-wantVX) > 1e-12 {
		t.Errorf("vx = %v, want %v", vel.X, wantVX)
	}
	if math.Abs(vel.Y-wantVY) > 1e-12 {
		t.Errorf("vy = %v, want %v", vel.Y, wantVY)
	}
	if math.Abs(pos.X-(100+wantVX)) > 1e-12 || math.Abs(pos.Y-(100+wantVY)) > 1e-12 {
		t.Errorf("pos = %+v, want (%v, %v)", pos, 100+wantVX, 100+wantVY)
	}
}

func TestIntegrateWithoutThrustFalls(t *testing.T) {
	cfg := testConfig(t)
	ps := NewPhysicsSystem(cfg)

	pos := components.Position{X: 0, Y: 0}
	vel := components.Velocity{}
	for i := 0; i < 3; i++ {
		ps.Integrate(&pos, &vel, components.Rotation{}, false)
	}

	// vy: 0.4, 0.8, 1.2 -> y = 2.4
	if math.Abs(vel.Y-1.2) > 1e-12 {
		t.Errorf("vy = %v, want 1.2", vel.Y)
	}
	if math.Abs(pos.Y-2.4) > 1e-12 {
		t.Errorf("y = %v, want 2.4", pos.Y)
	}
}

func TestKeepInBounds(t *testing.T) {
	cfg := testConfig(t)
	ps := NewPhysicsSystem(cfg)
	body := components.Body{Width: 450, Height: 280}
	maxX := cfg.Playfield.Width - body.Width
	maxY := cfg.Playfield.Height - body.Height

	tests := []struct {
		name    string
		pos     components.Position
		exited  bool
		wantPos components.Position
	}{
		{"inside", components.Position{X: 10, Y: 10}, false, components.Position{X: 10, Y: 10}},
		{"exact edges", components.Position{X: maxX, Y: maxY}, false, components.Position{X: maxX, Y: maxY}},
		{"left", components.Position{X: -0.5, Y: 10}, true, components.Position{X: 0, Y: 10}},
		{"right", components.Position{X: maxX + 3, Y: 10}, true, components.Position{X: maxX, Y: 10}},
		{"top", components.Position{X: 10, Y: -7}, true, components.Position{X: 10, Y: 0}},
		{"bottom", components.Position{X: 10, Y: maxY + 1}, true, components.Position{X: 10, Y: maxY}},
		{"corner", components.Position{X: -5, Y: maxY + 5}, true, components.Position{X: 0, Y: maxY}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := tt.pos
			vel := components.Velocity{X: 3, Y: -2}

			exited := ps.KeepInBounds(&pos, &vel, body)

			if exited != tt.exited {
				t.Fatalf("exited = %v, want %v", exited, tt.exited)
			}
			if pos != tt.wantPos {
				t.Errorf("pos = %+v, want %+v", pos, tt.wantPos)
			}
			if tt.exited && (vel.X != 0 || vel.Y != 0) {
				t.Errorf("velocity not zeroed: %+v", vel)
			}
			if !tt.exited && (vel.X != 3 || vel.Y != -2) {
				t.Errorf("velocity changed while inside: %+v", vel)
			}
			if !ps.Contains(pos, body) {
				t.Errorf("pos %+v not contained after KeepInBounds", pos)
			}
		})
	}
}

func BenchmarkPhysicsStep(b *testing.B) {
	cfg := testConfig(b)
	ps := NewPhysicsSystem(cfg)
	body := components.Body{Width: 450, Height: 280}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pos := components.Position{X: 500, Y: 500}
		vel := components.Velocity{X: 1, Y: -1}
		ps.Step(&pos, &vel, components.Rotation{Angle: 0.3}, body, true)
	}
}
