package nbodysim

import (
	"bufio"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl64"
)

// AccelerationHistory accumulates one (ax, ay) entry per body per step,
// appended in body-index order within a step and chronologically across
// steps. Capacity is allocated once up front; a completed run holds
// exactly steps*bodyCount entries.
type AccelerationHistory struct {
	entries []mgl64.Vec2
}

// NewAccelerationHistory preallocates a history for the given run shape.
func NewAccelerationHistory(steps, bodyCount int) *AccelerationHistory {
	return &AccelerationHistory{entries: make([]mgl64.Vec2, 0, steps*bodyCount)}
}

// Append records one body's acceleration for the current step.
func (h *AccelerationHistory) Append(a mgl64.Vec2) {
	h.entries = append(h.entries, a)
}

// Len returns the number of recorded entries.
func (h *AccelerationHistory) Len() int { return len(h.entries) }

// At returns the i-th recorded entry.
func (h *AccelerationHistory) At(i int) mgl64.Vec2 { return h.entries[i] }

// WriteTo emits the history as newline-delimited "ax ay" records in
// recording order.
func (h *AccelerationHistory) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64
	for _, a := range h.entries {
		n, err := fmt.Fprintf(bw, "%f %f\n", a.X(), a.Y())
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}
