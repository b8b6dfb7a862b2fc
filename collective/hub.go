package collective

import (
	"context"
	"fmt"
)

// Hub connects a world of in-process ranks, one goroutine per rank. Data
// crossing a collective is copied, never shared, so every rank works on a
// private replica exactly as it would across process boundaries.
type Hub[T any] struct {
	world    int
	bcast    []chan []T
	gathered chan rankChunk[T]
}

type rankChunk[T any] struct {
	rank int
	data []T
}

// NewHub creates a hub for the given world size.
func NewHub[T any](world int) (*Hub[T], error) {
	if world < 1 {
		return nil, ErrWorldSize
	}
	h := &Hub[T]{
		world:    world,
		bcast:    make([]chan []T, world),
		gathered: make(chan rankChunk[T], world),
	}
	for r := range h.bcast {
		h.bcast[r] = make(chan []T, 1)
	}
	return h, nil
}

// Rank returns the collective handle for one rank of the hub's world.
// Each rank handle must be driven by exactly one goroutine.
func (h *Hub[T]) Rank(rank int) (Collective[T], error) {
	if rank < 0 || rank >= h.world {
		return nil, ErrRankRange
	}
	return &hubRank[T]{hub: h, rank: rank}, nil
}

type hubRank[T any] struct {
	hub  *Hub[T]
	rank int
}

func (r *hubRank[T]) Rank() int      { return r.rank }
func (r *hubRank[T]) WorldSize() int { return r.hub.world }

func (r *hubRank[T]) Broadcast(ctx context.Context, buf []T) error {
	if r.rank == 0 {
		for dest := 0; dest < r.hub.world; dest++ {
			replica := make([]T, len(buf))
			copy(replica, buf)
			select {
			case r.hub.bcast[dest] <- replica:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	select {
	case replica := <-r.hub.bcast[r.rank]:
		if len(replica) != len(buf) {
			return fmt.Errorf("collective: broadcast of %d elements into buffer of %d", len(replica), len(buf))
		}
		copy(buf, replica)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *hubRank[T]) Gather(ctx context.Context, partial []T, all []T) error {
	chunk := rankChunk[T]{rank: r.rank, data: make([]T, len(partial))}
	copy(chunk.data, partial)
	select {
	case r.hub.gathered <- chunk:
	case <-ctx.Done():
		return ctx.Err()
	}

	if r.rank != 0 {
		return nil
	}

	if err := checkGatherBounds(r.hub.world, len(partial), len(all)); err != nil {
		return err
	}
	for received := 0; received < r.hub.world; received++ {
		select {
		case chunk := <-r.hub.gathered:
			if len(chunk.data) != len(partial) {
				return fmt.Errorf("collective: rank %d gathered %d elements, want %d", chunk.rank, len(chunk.data), len(partial))
			}
			copy(all[chunk.rank*len(chunk.data):], chunk.data)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (r *hubRank[T]) Close() error { return nil }
