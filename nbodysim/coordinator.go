package nbodysim

import (
	"context"
	"fmt"
	"sync"

	"github.com/sandeepkv93/distributed-nbody/collective"
)

// StepObserver is notified on the coordinator after each completed step,
// with the freshly integrated body set. Observers drive the progress bar,
// the sqlite sink and the telemetry stream without entangling the step
// loop. The bodies slice is the coordinator's live state: observers must
// treat it as read-only and must not retain it.
type StepObserver interface {
	OnStepComplete(step, totalSteps int, bodies []Body)
}

// StepStartObserver is an optional extension for observers that also
// want a notification as each step begins, before any collective
// traffic for it. The progress bar uses this so a long step shows its
// line up front rather than after the step lands.
type StepStartObserver interface {
	OnStepStart(step, totalSteps int)
}

// Coordinator is the root rank's role: it owns the authoritative body
// set, drives the per-step collective protocol, integrates gathered
// results and records the acceleration history. Exactly one coordinator
// exists per world.
type Coordinator struct {
	cfg        Config
	col        collective.Collective[Body]
	kernel     ForceKernel
	integrator Integrator

	bodies    []Body
	startStep int
	history   *AccelerationHistory
	out       *ResultWriter
	observers []StepObserver
}

// NewCoordinator validates the configuration against the collective's
// world, generates the initial body set and prepares the coordinator. The
// collective handle must be rank 0.
func NewCoordinator(cfg Config, col collective.Collective[Body]) (*Coordinator, error) {
	if col.Rank() != 0 {
		return nil, fmt.Errorf("nbodysim: coordinator needs rank 0, got rank %d", col.Rank())
	}
	if err := cfg.Validate(col.WorldSize()); err != nil {
		return nil, err
	}
	return &Coordinator{
		cfg:        cfg,
		col:        col,
		kernel:     NewForceKernel(cfg.SofteningLength),
		integrator: SymplecticEuler{},
		bodies:     GenerateCluster(cfg),
	}, nil
}

// SetIntegrator replaces the default semi-implicit Euler integrator.
func (c *Coordinator) SetIntegrator(integrator Integrator) {
	c.integrator = integrator
}

// SetResultWriter directs the run's text output to w. Without a writer
// the run is silent, which is what tests want.
func (c *Coordinator) SetResultWriter(w *ResultWriter) {
	c.out = w
}

// AddObserver registers a per-step observer.
func (c *Coordinator) AddObserver(o StepObserver) {
	c.observers = append(c.observers, o)
}

// ResumeFrom replaces the generated initial state with a checkpoint, so
// the run continues from the recorded step.
func (c *Coordinator) ResumeFrom(cp Checkpoint) error {
	if len(cp.Bodies) != c.cfg.BodyCount {
		return fmt.Errorf("nbodysim: checkpoint holds %d bodies, config wants %d", len(cp.Bodies), c.cfg.BodyCount)
	}
	if cp.Step < 0 || cp.Step > c.cfg.Iterations() {
		return fmt.Errorf("nbodysim: checkpoint step %d outside run of %d steps", cp.Step, c.cfg.Iterations())
	}
	c.bodies = make([]Body, len(cp.Bodies))
	copy(c.bodies, cp.Bodies)
	c.startStep = cp.Step
	return nil
}

// Bodies returns a copy of the coordinator's current body set.
func (c *Coordinator) Bodies() []Body {
	out := make([]Body, len(c.bodies))
	copy(out, c.bodies)
	return out
}

// History returns the acceleration history recorded so far.
func (c *Coordinator) History() *AccelerationHistory {
	return c.history
}

// Checkpoint captures the coordinator's current state.
func (c *Coordinator) Checkpoint(step int) Checkpoint {
	return Checkpoint{Step: step, Bodies: c.Bodies()}
}

// Run executes the whole simulation. Each step is the fixed collective
// cycle: broadcast the full body set, compute this rank's partition,
// gather every rank's partition back in rank order, then integrate all
// bodies and record their accelerations. The loop is purely
// count-bounded; it only stops early if the context is cancelled or a
// collective fails.
func (c *Coordinator) Run(ctx context.Context) error {
	iterations := c.cfg.Iterations()
	part, err := PartitionForRank(c.cfg.BodyCount, c.col.WorldSize(), 0)
	if err != nil {
		return err
	}

	c.history = NewAccelerationHistory(iterations-c.startStep, c.cfg.BodyCount)
	buf := make([]Body, part.Len())

	if c.out != nil {
		if err := c.out.WriteHeader(c.cfg, c.bodies); err != nil {
			return fmt.Errorf("nbodysim: write header: %w", err)
		}
	}

	for step := c.startStep; step < iterations; step++ {
		for _, o := range c.observers {
			if s, ok := o.(StepStartObserver); ok {
				s.OnStepStart(step+1, iterations)
			}
		}

		if err := c.col.Broadcast(ctx, c.bodies); err != nil {
			return fmt.Errorf("nbodysim: step %d broadcast: %w", step, err)
		}

		ComputePartition(c.kernel, c.bodies, part, buf)

		if err := c.col.Gather(ctx, buf, c.bodies); err != nil {
			return fmt.Errorf("nbodysim: step %d gather: %w", step, err)
		}

		for i := range c.bodies {
			c.integrator.Integrate(&c.bodies[i], c.cfg.DeltaTime)
			c.history.Append(c.bodies[i].Acceleration)
		}

		for _, o := range c.observers {
			o.OnStepComplete(step+1, iterations, c.bodies)
		}
	}

	if c.out != nil {
		if err := c.out.WriteHistory(c.history); err != nil {
			return fmt.Errorf("nbodysim: write history: %w", err)
		}
	}
	return nil
}

// Worker is every non-root rank's role: receive the broadcast body set,
// compute accelerations for its own partition, contribute the partition
// back, repeat. Workers perform no I/O and hold no state across steps
// beyond their partition buffer.
type Worker struct {
	cfg       Config
	col       collective.Collective[Body]
	kernel    ForceKernel
	startStep int
}

// NewWorker validates the configuration against the collective's world
// and prepares a worker for a non-root rank.
func NewWorker(cfg Config, col collective.Collective[Body]) (*Worker, error) {
	if col.Rank() == 0 {
		return nil, fmt.Errorf("nbodysim: rank 0 is the coordinator, not a worker")
	}
	if err := cfg.Validate(col.WorldSize()); err != nil {
		return nil, err
	}
	return &Worker{cfg: cfg, col: col, kernel: NewForceKernel(cfg.SofteningLength)}, nil
}

// SetStartStep aligns the worker with a coordinator resuming from a
// checkpoint, so both sides run the same number of collective cycles.
func (w *Worker) SetStartStep(step int) {
	w.startStep = step
}

// Run participates in every collective cycle of the run.
func (w *Worker) Run(ctx context.Context) error {
	iterations := w.cfg.Iterations()
	part, err := PartitionForRank(w.cfg.BodyCount, w.col.WorldSize(), w.col.Rank())
	if err != nil {
		return err
	}

	bodies := make([]Body, w.cfg.BodyCount)
	buf := make([]Body, part.Len())

	for step := w.startStep; step < iterations; step++ {
		if err := w.col.Broadcast(ctx, bodies); err != nil {
			return fmt.Errorf("nbodysim: step %d broadcast: %w", step, err)
		}

		ComputePartition(w.kernel, bodies, part, buf)

		if err := w.col.Gather(ctx, buf, nil); err != nil {
			return fmt.Errorf("nbodysim: step %d gather: %w", step, err)
		}
	}
	return nil
}

// RunLocal drives a coordinator and its workers over in-process ranks,
// one goroutine per worker, and blocks until the whole world finishes.
// The coordinator's error wins; worker errors surface only when the
// coordinator itself succeeded.
func RunLocal(ctx context.Context, coord *Coordinator, workers []*Worker) error {
	var wg sync.WaitGroup
	workerErrs := make(chan error, len(workers))
	for _, w := range workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			if err := w.Run(ctx); err != nil {
				workerErrs <- err
			}
		}(w)
	}

	err := coord.Run(ctx)
	wg.Wait()
	close(workerErrs)
	if err != nil {
		return err
	}
	for werr := range workerErrs {
		return werr
	}
	return nil
}
