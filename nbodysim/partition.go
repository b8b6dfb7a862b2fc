package nbodysim

import (
	"errors"
	"fmt"
)

// ErrUnevenPartition reports a body count that cannot be split into equal
// contiguous ranges across the world. Padding is deliberately not an
// option: it would change the meaning of the all-pairs force sum.
var ErrUnevenPartition = errors.New("nbodysim: body count not evenly divisible by world size")

// Partition is the half-open range of body indices one rank evaluates.
// Partitions are assigned statically at startup and never change.
type Partition struct {
	Begin, End int
}

// Len returns the number of bodies in the partition.
func (p Partition) Len() int { return p.End - p.Begin }

// PartitionForRank returns rank's partition of bodyCount bodies split
// evenly across worldSize ranks: [rank*(N/W), (rank+1)*(N/W)).
func PartitionForRank(bodyCount, worldSize, rank int) (Partition, error) {
	if worldSize < 1 {
		return Partition{}, fmt.Errorf("nbodysim: world size %d", worldSize)
	}
	if rank < 0 || rank >= worldSize {
		return Partition{}, fmt.Errorf("nbodysim: rank %d out of world %d", rank, worldSize)
	}
	if bodyCount%worldSize != 0 {
		return Partition{}, fmt.Errorf("%w: %d bodies across %d ranks", ErrUnevenPartition, bodyCount, worldSize)
	}
	per := bodyCount / worldSize
	return Partition{Begin: rank * per, End: (rank + 1) * per}, nil
}

// Partitions returns every rank's partition in rank order. The ranges are
// contiguous, non-overlapping and together cover [0, bodyCount).
func Partitions(bodyCount, worldSize int) ([]Partition, error) {
	parts := make([]Partition, worldSize)
	for rank := 0; rank < worldSize; rank++ {
		p, err := PartitionForRank(bodyCount, worldSize, rank)
		if err != nil {
			return nil, err
		}
		parts[rank] = p
	}
	return parts, nil
}
