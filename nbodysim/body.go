// Package nbodysim implements a distributed-memory n-body gravity
// simulation with direct all-pairs force summation. A fixed world of
// ranks shares the work: the full body set is broadcast every step, each
// rank computes accelerations for its contiguous partition, partitions
// are gathered back in rank order, and the coordinator rank integrates
// and records the result. Communication goes through the transport-blind
// collective interface, so the same coordinator and worker code runs over
// in-process goroutine ranks or TCP-connected processes.
package nbodysim

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultDebugAccelScale is the default magnitude scale applied to the
// generated initial velocities.
const DefaultDebugAccelScale = 100.0

// Body is one point mass in simulation space. Mass is fixed for the
// lifetime of a run; acceleration is fully recomputed each step and never
// carried across steps except into the acceleration history.
type Body struct {
	Position     mgl64.Vec2
	Velocity     mgl64.Vec2
	Acceleration mgl64.Vec2
	Mass         float64
}

// Config holds the immutable parameters of one run.
type Config struct {
	// TimePeriod is the total simulated duration.
	TimePeriod float64
	// DeltaTime is the fixed integration step size.
	DeltaTime float64
	// BodyCount is the number of bodies. It must be evenly divisible by
	// the world size.
	BodyCount int
	// InitialBodyMass is the mean mass used by initial-condition
	// generation; each body's mass is drawn from [0.5, 1.5) times it.
	InitialBodyMass float64
	// SofteningLength bounds the minimum effective pair distance in the
	// force law; the kernel works with its square.
	SofteningLength float64
	// DebugAccelScale scales generated initial velocities only.
	DebugAccelScale float64
	// Seed seeds the initial-condition generator.
	Seed int64
}

// Iterations returns the count-bounded number of steps for the run,
// floor(TimePeriod / DeltaTime).
func (c Config) Iterations() int {
	return int(c.TimePeriod / c.DeltaTime)
}

// ErrConfig reports an invalid run configuration.
var ErrConfig = errors.New("nbodysim: invalid configuration")

// Validate checks the configuration against a world size. Any violation
// is fatal misconfiguration: the run must not start.
func (c Config) Validate(worldSize int) error {
	switch {
	case worldSize < 1:
		return fmt.Errorf("%w: world size %d", ErrConfig, worldSize)
	case c.BodyCount < 1:
		return fmt.Errorf("%w: body count %d", ErrConfig, c.BodyCount)
	case c.TimePeriod <= 0 || math.IsNaN(c.TimePeriod) || math.IsInf(c.TimePeriod, 0):
		return fmt.Errorf("%w: time period %v", ErrConfig, c.TimePeriod)
	case c.DeltaTime <= 0 || math.IsNaN(c.DeltaTime) || math.IsInf(c.DeltaTime, 0):
		return fmt.Errorf("%w: delta time %v", ErrConfig, c.DeltaTime)
	case c.InitialBodyMass <= 0:
		return fmt.Errorf("%w: initial body mass %v", ErrConfig, c.InitialBodyMass)
	case c.SofteningLength < 0:
		return fmt.Errorf("%w: softening length %v", ErrConfig, c.SofteningLength)
	}
	if c.BodyCount%worldSize != 0 {
		return fmt.Errorf("%w: %d bodies across %d ranks", ErrUnevenPartition, c.BodyCount, worldSize)
	}
	return nil
}
