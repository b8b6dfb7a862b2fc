package collective

import (
	"context"
	"encoding/gob"
	"fmt"
	"net"
	"sort"
)

// The TCP transport runs one rank per OS process. The root listens and
// every worker dials in, announcing its rank and receiving the run's
// start step in return; after that the connections carry gob-encoded
// frames, one per collective per rank. Collectives are matched purely by
// call order, so all ranks must drive the same sequence of operations.

type tcpHello struct {
	Rank  int
	World int
}

// tcpWelcome is the root's reply to a hello. StartStep tells the
// joining rank which step the run begins at, so a world resumed from a
// saved state schedules the same collective cycles on every rank.
type tcpWelcome struct {
	StartStep int
}

type tcpFrame[T any] struct {
	Rank int
	Data []T
}

// TCPListener is a bound root-rank endpoint whose world has not yet
// assembled. Binding and accepting are separate so the chosen address
// (port 0 included) is known before workers dial in.
type TCPListener struct {
	ln net.Listener
}

// NewTCPListener binds the root rank's endpoint.
func NewTCPListener(addr string) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("collective: listen %s: %w", addr, err)
	}
	return &TCPListener{ln: ln}, nil
}

// Addr returns the bound address workers should dial.
func (l *TCPListener) Addr() string {
	return l.ln.Addr().String()
}

// Close releases the endpoint without assembling a world.
func (l *TCPListener) Close() error {
	return l.ln.Close()
}

// AcceptWorld blocks until the other world-1 ranks have dialed in and
// announced themselves, then returns the root's collective handle. Each
// accepted rank is welcomed with startStep, the step the run begins at.
// The listener itself is closed either way.
func AcceptWorld[T any](l *TCPListener, world, startStep int) (Collective[T], error) {
	if world < 1 {
		l.Close()
		return nil, ErrWorldSize
	}

	ln := l.ln
	root := &tcpRoot[T]{world: world, peers: make(map[int]*tcpPeer[T], world-1)}
	for len(root.peers) < world-1 {
		conn, err := ln.Accept()
		if err != nil {
			ln.Close()
			root.Close()
			return nil, fmt.Errorf("collective: accept: %w", err)
		}
		peer := &tcpPeer[T]{conn: conn, enc: gob.NewEncoder(conn), dec: gob.NewDecoder(conn)}
		var hello tcpHello
		if err := peer.dec.Decode(&hello); err != nil {
			conn.Close()
			ln.Close()
			root.Close()
			return nil, fmt.Errorf("collective: handshake: %w", err)
		}
		if hello.World != world || hello.Rank < 1 || hello.Rank >= world {
			conn.Close()
			ln.Close()
			root.Close()
			return nil, fmt.Errorf("collective: peer announced rank %d of world %d, want world %d", hello.Rank, hello.World, world)
		}
		if _, taken := root.peers[hello.Rank]; taken {
			conn.Close()
			ln.Close()
			root.Close()
			return nil, fmt.Errorf("collective: duplicate rank %d", hello.Rank)
		}
		if err := peer.enc.Encode(tcpWelcome{StartStep: startStep}); err != nil {
			conn.Close()
			ln.Close()
			root.Close()
			return nil, fmt.Errorf("collective: handshake: %w", err)
		}
		root.peers[hello.Rank] = peer
	}
	ln.Close()
	return root, nil
}

// DialTCP joins a TCP world as a worker rank by connecting to the root.
// It also returns the run's start step announced in the root's welcome.
func DialTCP[T any](addr string, rank, world int) (Collective[T], int, error) {
	if world < 1 {
		return nil, 0, ErrWorldSize
	}
	if rank < 1 || rank >= world {
		return nil, 0, ErrRankRange
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, 0, fmt.Errorf("collective: dial %s: %w", addr, err)
	}
	w := &tcpWorker[T]{
		rank:  rank,
		world: world,
		peer:  &tcpPeer[T]{conn: conn, enc: gob.NewEncoder(conn), dec: gob.NewDecoder(conn)},
	}
	if err := w.peer.enc.Encode(tcpHello{Rank: rank, World: world}); err != nil {
		conn.Close()
		return nil, 0, fmt.Errorf("collective: handshake: %w", err)
	}
	var welcome tcpWelcome
	if err := w.peer.dec.Decode(&welcome); err != nil {
		conn.Close()
		return nil, 0, fmt.Errorf("collective: handshake: %w", err)
	}
	return w, welcome.StartStep, nil
}

type tcpPeer[T any] struct {
	conn net.Conn
	enc  *gob.Encoder
	dec  *gob.Decoder
}

type tcpRoot[T any] struct {
	world int
	peers map[int]*tcpPeer[T]
}

func (r *tcpRoot[T]) Rank() int      { return 0 }
func (r *tcpRoot[T]) WorldSize() int { return r.world }

// peerRanks returns the connected ranks in ascending order so frame
// exchange happens in a deterministic order.
func (r *tcpRoot[T]) peerRanks() []int {
	ranks := make([]int, 0, len(r.peers))
	for rank := range r.peers {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)
	return ranks
}

func (r *tcpRoot[T]) Broadcast(ctx context.Context, buf []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame := tcpFrame[T]{Rank: 0, Data: buf}
	for _, rank := range r.peerRanks() {
		if err := r.peers[rank].enc.Encode(frame); err != nil {
			return fmt.Errorf("collective: broadcast to rank %d: %w", rank, err)
		}
	}
	return nil
}

func (r *tcpRoot[T]) Gather(ctx context.Context, partial []T, all []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkGatherBounds(r.world, len(partial), len(all)); err != nil {
		return err
	}
	copy(all[:len(partial)], partial)

	for _, rank := range r.peerRanks() {
		var frame tcpFrame[T]
		if err := r.peers[rank].dec.Decode(&frame); err != nil {
			return fmt.Errorf("collective: gather from rank %d: %w", rank, err)
		}
		if frame.Rank != rank || len(frame.Data) != len(partial) {
			return fmt.Errorf("collective: gather frame rank %d length %d, want rank %d length %d",
				frame.Rank, len(frame.Data), rank, len(partial))
		}
		copy(all[rank*len(partial):], frame.Data)
	}
	return nil
}

func (r *tcpRoot[T]) Close() error {
	var firstErr error
	for _, peer := range r.peers {
		if err := peer.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type tcpWorker[T any] struct {
	rank  int
	world int
	peer  *tcpPeer[T]
}

func (w *tcpWorker[T]) Rank() int      { return w.rank }
func (w *tcpWorker[T]) WorldSize() int { return w.world }

func (w *tcpWorker[T]) Broadcast(ctx context.Context, buf []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var frame tcpFrame[T]
	if err := w.peer.dec.Decode(&frame); err != nil {
		return fmt.Errorf("collective: broadcast receive: %w", err)
	}
	if len(frame.Data) != len(buf) {
		return fmt.Errorf("collective: broadcast of %d elements into buffer of %d", len(frame.Data), len(buf))
	}
	copy(buf, frame.Data)
	return nil
}

func (w *tcpWorker[T]) Gather(ctx context.Context, partial []T, all []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.peer.enc.Encode(tcpFrame[T]{Rank: w.rank, Data: partial}); err != nil {
		return fmt.Errorf("collective: gather send: %w", err)
	}
	return nil
}

func (w *tcpWorker[T]) Close() error {
	return w.peer.conn.Close()
}
