package nbodysim

import (
	"bufio"
	"fmt"
	"io"
)

// ResultWriter emits the run's plain-text result stream: a header with
// the run shape and full initial body set before the first step, and the
// complete acceleration history after the last. Only the coordinator rank
// writes results.
type ResultWriter struct {
	w io.Writer
}

// NewResultWriter wraps the destination stream.
func NewResultWriter(w io.Writer) *ResultWriter {
	return &ResultWriter{w: w}
}

// WriteHeader emits the body count, time period and delta time on their
// own lines, followed by each body's initial state as four lines:
// "x y", "ax ay", "vx vy", "mass", in body-index order.
func (rw *ResultWriter) WriteHeader(cfg Config, bodies []Body) error {
	bw := bufio.NewWriter(rw.w)
	if _, err := fmt.Fprintf(bw, "%d\n%f\n%f\n", cfg.BodyCount, cfg.TimePeriod, cfg.DeltaTime); err != nil {
		return err
	}
	for _, b := range bodies {
		_, err := fmt.Fprintf(bw, "%f %f\n%f %f\n%f %f\n%f\n",
			b.Position.X(), b.Position.Y(),
			b.Acceleration.X(), b.Acceleration.Y(),
			b.Velocity.X(), b.Velocity.Y(),
			b.Mass)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteHistory emits the recorded acceleration history.
func (rw *ResultWriter) WriteHistory(h *AccelerationHistory) error {
	_, err := h.WriteTo(rw.w)
	return err
}
