package collective

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestNewHubValidation(t *testing.T) {
	if _, err := NewHub[int](0); err != ErrWorldSize {
		t.Errorf("expected ErrWorldSize for world 0, got %v", err)
	}

	hub, err := NewHub[int](2)
	if err != nil {
		t.Fatalf("NewHub failed: %v", err)
	}

	if _, err := hub.Rank(-1); err != ErrRankRange {
		t.Errorf("expected ErrRankRange for rank -1, got %v", err)
	}
	if _, err := hub.Rank(2); err != ErrRankRange {
		t.Errorf("expected ErrRankRange for rank 2, got %v", err)
	}
}

func TestHubSingleRankWorld(t *testing.T) {
	hub, _ := NewHub[int](1)
	root, err := hub.Rank(0)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	ctx := context.Background()
	buf := []int{1, 2, 3, 4}
	if err := root.Broadcast(ctx, buf); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	all := make([]int, 4)
	if err := root.Gather(ctx, buf, all); err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for i, v := range all {
		if v != buf[i] {
			t.Errorf("all[%d] = %d, want %d", i, v, buf[i])
		}
	}
}

func TestHubBroadcastReplicates(t *testing.T) {
	const world = 4
	hub, _ := NewHub[int](world)
	ctx := context.Background()

	source := []int{10, 20, 30}
	var wg sync.WaitGroup
	received := make([][]int, world)
	errs := make(chan error, world)

	for rank := 0; rank < world; rank++ {
		col, err := hub.Rank(rank)
		if err != nil {
			t.Fatalf("Rank(%d) failed: %v", rank, err)
		}
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			buf := make([]int, len(source))
			if rank == 0 {
				copy(buf, source)
			}
			if err := col.Broadcast(ctx, buf); err != nil {
				errs <- err
				return
			}
			received[rank] = buf
		}(rank)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Broadcast failed: %v", err)
	}

	for rank := 0; rank < world; rank++ {
		for i, v := range received[rank] {
			if v != source[i] {
				t.Errorf("rank %d received[%d] = %d, want %d", rank, i, v, source[i])
			}
		}
	}
}

func TestHubGatherOrdersByRank(t *testing.T) {
	const world = 3
	const perRank = 2
	hub, _ := NewHub[int](world)
	ctx := context.Background()

	var wg sync.WaitGroup
	all := make([]int, world*perRank)
	errs := make(chan error, world)

	// start workers in reverse so arrival order differs from rank order
	for rank := world - 1; rank >= 0; rank-- {
		col, _ := hub.Rank(rank)
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			partial := make([]int, perRank)
			for i := range partial {
				partial[i] = rank*perRank + i
			}
			if rank != 0 {
				time.Sleep(time.Duration(rank) * time.Millisecond)
			}
			var dest []int
			if rank == 0 {
				dest = all
			}
			if err := col.Gather(ctx, partial, dest); err != nil {
				errs <- err
			}
		}(rank)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Gather failed: %v", err)
	}

	for i, v := range all {
		if v != i {
			t.Errorf("all[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestHubGatherBufferMismatch(t *testing.T) {
	hub, _ := NewHub[int](2)
	root, _ := hub.Rank(0)
	worker, _ := hub.Rank(1)
	ctx := context.Background()

	go worker.Gather(ctx, []int{1}, nil)
	err := root.Gather(ctx, []int{0}, make([]int, 3))
	if err == nil {
		t.Error("expected error for wrong gather buffer size")
	}
}

func TestHubBroadcastContextCancel(t *testing.T) {
	hub, _ := NewHub[int](2)
	worker, _ := hub.Rank(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := worker.Broadcast(ctx, make([]int, 1)); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type wirePoint struct {
	X, Y float64
}

func TestTCPWorldRoundTrip(t *testing.T) {
	const world = 3
	const perRank = 2
	ctx := context.Background()

	type result struct {
		rank int
		err  error
	}
	results := make(chan result, world-1)

	ln, err := NewTCPListener("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewTCPListener failed: %v", err)
	}
	addr := ln.Addr()

	rootDone := make(chan struct{})
	var all []wirePoint
	var rootErr error

	go func() {
		defer close(rootDone)
		root, err := AcceptWorld[wirePoint](ln, world, 0)
		if err != nil {
			rootErr = err
			return
		}
		defer root.Close()

		source := make([]wirePoint, world*perRank)
		for i := range source {
			source[i] = wirePoint{X: float64(i), Y: float64(-i)}
		}
		if err := root.Broadcast(ctx, source); err != nil {
			rootErr = err
			return
		}

		all = make([]wirePoint, world*perRank)
		if err := root.Gather(ctx, source[:perRank], all); err != nil {
			rootErr = err
			return
		}
	}()

	for rank := 1; rank < world; rank++ {
		go func(rank int) {
			worker, startStep, err := DialTCP[wirePoint](addr, rank, world)
			if err != nil {
				results <- result{rank, err}
				return
			}
			defer worker.Close()
			if startStep != 0 {
				results <- result{rank, fmt.Errorf("welcomed with start step %d, want 0", startStep)}
				return
			}

			buf := make([]wirePoint, world*perRank)
			if err := worker.Broadcast(ctx, buf); err != nil {
				results <- result{rank, err}
				return
			}
			for i, p := range buf {
				if p.X != float64(i) || p.Y != float64(-i) {
					results <- result{rank, fmt.Errorf("buf[%d] = %v", i, p)}
					return
				}
			}

			partial := buf[rank*perRank : (rank+1)*perRank]
			results <- result{rank, worker.Gather(ctx, partial, nil)}
		}(rank)
	}

	for i := 1; i < world; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("rank %d: %v", r.rank, r.err)
		}
	}
	<-rootDone
	if rootErr != nil {
		t.Fatalf("root: %v", rootErr)
	}

	for i, p := range all {
		if p.X != float64(i) || p.Y != float64(-i) {
			t.Errorf("all[%d] = %v, want {%d %d}", i, p, i, -i)
		}
	}
}

func TestDialTCPRankValidation(t *testing.T) {
	if _, _, err := DialTCP[int]("127.0.0.1:0", 0, 2); err != ErrRankRange {
		t.Errorf("expected ErrRankRange for rank 0 dial, got %v", err)
	}
	if _, _, err := DialTCP[int]("127.0.0.1:0", 2, 2); err != ErrRankRange {
		t.Errorf("expected ErrRankRange for rank 2 of world 2, got %v", err)
	}
}

func TestTCPWelcomeCarriesStartStep(t *testing.T) {
	ln, err := NewTCPListener("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewTCPListener failed: %v", err)
	}
	addr := ln.Addr()

	rootDone := make(chan error, 1)
	go func() {
		root, err := AcceptWorld[int](ln, 2, 4)
		if err != nil {
			rootDone <- err
			return
		}
		rootDone <- root.Close()
	}()

	worker, startStep, err := DialTCP[int](addr, 1, 2)
	if err != nil {
		t.Fatalf("DialTCP failed: %v", err)
	}
	defer worker.Close()
	if startStep != 4 {
		t.Errorf("welcomed with start step %d, want 4", startStep)
	}
	if err := <-rootDone; err != nil {
		t.Fatalf("root: %v", err)
	}
}
