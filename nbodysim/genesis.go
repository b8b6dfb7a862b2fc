package nbodysim

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// GenerateCluster produces the initial body set for a run: positions
// uniform in the unit square, mass drawn from [0.5, 1.5) times the
// configured mean, zero acceleration, and an initial velocity pointing at
// roughly evenly spaced angles around a circle (jittered by up to ±0.25
// rad) with magnitude scaled by DebugAccelScale. The generator is a pure
// function of the config: the same seed always yields the same cluster.
func GenerateCluster(cfg Config) []Body {
	rng := rand.New(rand.NewSource(cfg.Seed))
	scale := cfg.DebugAccelScale

	bodies := make([]Body, cfg.BodyCount)
	for i := range bodies {
		angle := float64(i)/float64(cfg.BodyCount)*2*math.Pi + (rng.Float64()-0.5)*0.5

		bodies[i].Position = mgl64.Vec2{rng.Float64(), rng.Float64()}
		bodies[i].Mass = cfg.InitialBodyMass * (rng.Float64() + 0.5)

		speed := scale * rng.Float64()
		bodies[i].Velocity = mgl64.Vec2{math.Cos(angle) * speed, math.Sin(angle) * speed}
	}
	return bodies
}
