package nbodysim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ForceKernel computes softened Newtonian gravity in normalized units
// (G folded into the mass scale). The softening length keeps the
// acceleration finite for near-coincident bodies: the effective squared
// distance never drops below the squared softening length.
type ForceKernel struct {
	softeningSq float64
}

// NewForceKernel builds a kernel for the given softening length.
func NewForceKernel(softeningLength float64) ForceKernel {
	return ForceKernel{softeningSq: softeningLength * softeningLength}
}

// Acceleration returns the acceleration imparted on subject by source:
//
//	r = source.pos - subject.pos
//	a = source.mass / (|r|^2 + eps^2)^1.5 * r
//
// The caller is responsible for never passing a body as its own source.
func (k ForceKernel) Acceleration(subject, source Body) mgl64.Vec2 {
	r := source.Position.Sub(subject.Position)
	d2 := r.Dot(r) + k.softeningSq
	return r.Mul(source.Mass / (d2 * math.Sqrt(d2)))
}

// TotalAcceleration sums the kernel over every body other than
// bodies[index]. The self pair is skipped outright rather than relying on
// the zero separation cancelling in the formula.
func (k ForceKernel) TotalAcceleration(index int, bodies []Body) mgl64.Vec2 {
	subject := bodies[index]
	var total mgl64.Vec2
	for j := range bodies {
		if j == index {
			continue
		}
		total = total.Add(k.Acceleration(subject, bodies[j]))
	}
	return total
}

// ComputePartition evaluates total accelerations for every body in part
// against the complete body set, writing results into out, which must be
// sized to the partition. Position, velocity and mass are carried through
// unchanged.
func ComputePartition(kernel ForceKernel, bodies []Body, part Partition, out []Body) {
	for i := part.Begin; i < part.End; i++ {
		b := bodies[i]
		b.Acceleration = kernel.TotalAcceleration(i, bodies)
		out[i-part.Begin] = b
	}
}
