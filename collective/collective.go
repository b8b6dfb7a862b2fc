// Package collective provides blocking collective communication operations
// (broadcast, gather) for a fixed-size world of ranks. Rank 0 is the root.
// The same rank-side API is served by an in-process hub of goroutine ranks
// and by a TCP transport, so code driving a collective never knows whether
// its peers are goroutines or separate OS processes.
package collective

import (
	"context"
	"errors"
	"fmt"
)

// Collective is one rank's handle to its world's collective operations.
// Every operation is collective: all ranks of the world must invoke the
// same operation for it to complete. A rank that fails to take part blocks
// the whole world; there is no timeout beyond context cancellation.
type Collective[T any] interface {
	// Rank returns this participant's rank, in [0, WorldSize).
	Rank() int

	// WorldSize returns the fixed number of participating ranks.
	WorldSize() int

	// Broadcast replicates the root's buf into every rank's buf,
	// including the root's own. All buffers must have equal length.
	Broadcast(ctx context.Context, buf []T) error

	// Gather collects every rank's partial into the root's all,
	// placed at offset rank*len(partial) so the result is ordered by
	// rank regardless of arrival order. Non-root ranks may pass a nil
	// all. Every rank must contribute a partial of the same length.
	Gather(ctx context.Context, partial []T, all []T) error

	// Close releases the rank's transport resources. A closed rank
	// must not take part in further collectives.
	Close() error
}

var (
	// ErrWorldSize reports an invalid world size.
	ErrWorldSize = errors.New("collective: world size must be at least 1")

	// ErrRankRange reports a rank outside [0, world).
	ErrRankRange = errors.New("collective: rank out of range")
)

func checkGatherBounds(world, partialLen, allLen int) error {
	if allLen != world*partialLen {
		return fmt.Errorf("collective: gather buffer holds %d elements, want %d (%d ranks x %d)",
			allLen, world*partialLen, world, partialLen)
	}
	return nil
}
