package nbodysim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Statistics summarizes a body set. Energies follow the simulation's
// normalized units (G folded into the mass scale).
type Statistics struct {
	KineticEnergy   float64    `json:"kinetic_energy"`
	PotentialEnergy float64    `json:"potential_energy"`
	TotalEnergy     float64    `json:"total_energy"`
	CenterOfMass    mgl64.Vec2 `json:"center_of_mass"`
	TotalMomentum   mgl64.Vec2 `json:"total_momentum"`
	MaxVelocity     float64    `json:"max_velocity"`
}

// Measure computes summary statistics over a body set.
func Measure(bodies []Body) Statistics {
	var stats Statistics
	totalMass := 0.0

	for _, b := range bodies {
		speedSq := b.Velocity.Dot(b.Velocity)
		stats.KineticEnergy += 0.5 * b.Mass * speedSq
		stats.TotalMomentum = stats.TotalMomentum.Add(b.Velocity.Mul(b.Mass))
		stats.CenterOfMass = stats.CenterOfMass.Add(b.Position.Mul(b.Mass))
		totalMass += b.Mass
		if speed := math.Sqrt(speedSq); speed > stats.MaxVelocity {
			stats.MaxVelocity = speed
		}
	}
	if totalMass > 0 {
		stats.CenterOfMass = stats.CenterOfMass.Mul(1 / totalMass)
	}

	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			d := bodies[i].Position.Sub(bodies[j].Position).Len()
			if d > 0 {
				stats.PotentialEnergy -= bodies[i].Mass * bodies[j].Mass / d
			}
		}
	}

	stats.TotalEnergy = stats.KineticEnergy + stats.PotentialEnergy
	return stats
}
