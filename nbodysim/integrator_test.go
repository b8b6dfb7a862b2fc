package nbodysim

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestSymplecticEulerUsesUpdatedVelocity(t *testing.T) {
	b := Body{
		Position:     mgl64.Vec2{0, 0},
		Velocity:     mgl64.Vec2{1, 0},
		Acceleration: mgl64.Vec2{10, 0},
		Mass:         1,
	}

	SymplecticEuler{}.Integrate(&b, 0.1)

	// v' = 1 + 10*0.1 = 2; p' = 0 + 2*0.1 = 0.2 (not 0.1, which explicit
	// Euler's stale velocity would give)
	if math.Abs(b.Velocity.X()-2) > 1e-12 {
		t.Errorf("velocity = %v, want 2", b.Velocity.X())
	}
	if math.Abs(b.Position.X()-0.2) > 1e-12 {
		t.Errorf("position = %v, want 0.2", b.Position.X())
	}
}

func TestExplicitEulerUsesStaleVelocity(t *testing.T) {
	b := Body{
		Velocity:     mgl64.Vec2{1, 0},
		Acceleration: mgl64.Vec2{10, 0},
		Mass:         1,
	}

	ExplicitEuler{}.Integrate(&b, 0.1)

	if math.Abs(b.Position.X()-0.1) > 1e-12 {
		t.Errorf("position = %v, want 0.1", b.Position.X())
	}
	if math.Abs(b.Velocity.X()-2) > 1e-12 {
		t.Errorf("velocity = %v, want 2", b.Velocity.X())
	}
}

func TestIntegratorDoesNotTouchAccelerationOrMass(t *testing.T) {
	b := Body{
		Acceleration: mgl64.Vec2{3, -4},
		Mass:         17,
	}

	SymplecticEuler{}.Integrate(&b, 0.05)

	if b.Acceleration != (mgl64.Vec2{3, -4}) {
		t.Errorf("acceleration changed to %v", b.Acceleration)
	}
	if b.Mass != 17 {
		t.Errorf("mass changed to %v", b.Mass)
	}
}

func TestIntegratorDeterminism(t *testing.T) {
	template := Body{
		Position:     mgl64.Vec2{0.123, -0.456},
		Velocity:     mgl64.Vec2{7.89, 0.12},
		Acceleration: mgl64.Vec2{-3.21, 4.56},
		Mass:         9.9,
	}

	first := template
	SymplecticEuler{}.Integrate(&first, 0.037)

	for i := 0; i < 100; i++ {
		b := template
		SymplecticEuler{}.Integrate(&b, 0.037)
		if b != first {
			t.Fatalf("run %d diverged: %+v vs %+v", i, b, first)
		}
	}
}
