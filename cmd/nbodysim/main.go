// Command nbodysim runs a distributed direct-summation n-body gravity
// simulation. All ranks are launched with the same positional simulation
// parameters; rank 0 coordinates and is the only rank writing results.
//
// By default the whole world runs inside one process (one goroutine per
// rank). With --listen the process becomes the coordinator of a TCP
// world; with --connect it joins one as the worker for --rank.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/distributed-nbody/collective"
	"github.com/sandeepkv93/distributed-nbody/nbodysim"
)

type options struct {
	ranks         int
	seed          int64
	listenAddr    string
	connectAddr   string
	rank          int
	world         int
	dbPath        string
	telemetryAddr string
	saveState     string
	loadState     string
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use: "nbodysim <time period (~10-100)> <delta time (~0.01-0.1)> " +
			"<body count (~100-1000)> <initial body mass (~10000)> " +
			"<softening length (~100)> [debug acceleration scale (~100)]",
		Short:         "distributed direct-summation n-body gravity simulation",
		Args:          cobra.RangeArgs(5, 6),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := parseConfig(args, opts.seed)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().IntVar(&opts.ranks, "ranks", 1, "world size for the in-process mode")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "initial-condition generator seed")
	cmd.Flags().StringVar(&opts.listenAddr, "listen", "", "coordinate a TCP world on this address")
	cmd.Flags().StringVar(&opts.connectAddr, "connect", "", "join a TCP world at this coordinator address")
	cmd.Flags().IntVar(&opts.rank, "rank", 0, "this process's rank when joining a TCP world")
	cmd.Flags().IntVar(&opts.world, "world", 0, "world size of the TCP world")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "also record every step into this sqlite database")
	cmd.Flags().StringVar(&opts.telemetryAddr, "telemetry", "", "serve live progress over websocket on this address")
	cmd.Flags().StringVar(&opts.saveState, "save-state", "", "write a resumable state snapshot here on completion")
	cmd.Flags().StringVar(&opts.loadState, "load-state", "", "resume from a state snapshot instead of generating bodies")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n%s", err, cmd.UsageString())
		os.Exit(1)
	}
}

func parseConfig(args []string, seed int64) (nbodysim.Config, error) {
	cfg := nbodysim.Config{
		DebugAccelScale: nbodysim.DefaultDebugAccelScale,
		Seed:            seed,
	}

	fields := []struct {
		name string
		dst  *float64
	}{
		{"time period", &cfg.TimePeriod},
		{"delta time", &cfg.DeltaTime},
		{"body count", nil},
		{"initial body mass", &cfg.InitialBodyMass},
		{"softening length", &cfg.SofteningLength},
	}
	for i, field := range fields {
		if field.dst == nil {
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return cfg, fmt.Errorf("invalid %s %q", field.name, args[i])
			}
			cfg.BodyCount = n
			continue
		}
		v, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s %q", field.name, args[i])
		}
		*field.dst = v
	}
	if len(args) > 5 {
		v, err := strconv.ParseFloat(args[5], 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid debug acceleration scale %q", args[5])
		}
		cfg.DebugAccelScale = v
	}
	return cfg, nil
}

func run(ctx context.Context, cfg nbodysim.Config, opts options) error {
	// TCP worker rank: compute-only, no I/O, no observers. The root's
	// welcome carries the start step, so a resumed world aligns without
	// the worker seeing the state snapshot.
	if opts.connectAddr != "" {
		col, startStep, err := collective.DialTCP[nbodysim.Body](opts.connectAddr, opts.rank, opts.world)
		if err != nil {
			return err
		}
		defer col.Close()

		worker, err := nbodysim.NewWorker(cfg, col)
		if err != nil {
			return err
		}
		worker.SetStartStep(startStep)
		return worker.Run(ctx)
	}

	var cp nbodysim.Checkpoint
	if opts.loadState != "" {
		loaded, err := nbodysim.LoadCheckpoint(opts.loadState)
		if err != nil {
			return err
		}
		cp = loaded
	}

	var (
		coord   *nbodysim.Coordinator
		workers []*nbodysim.Worker
	)

	if opts.listenAddr != "" {
		l, err := collective.NewTCPListener(opts.listenAddr)
		if err != nil {
			return err
		}
		col, err := collective.AcceptWorld[nbodysim.Body](l, opts.world, cp.Step)
		if err != nil {
			return err
		}
		defer col.Close()

		coord, err = nbodysim.NewCoordinator(cfg, col)
		if err != nil {
			return err
		}
	} else {
		hub, err := collective.NewHub[nbodysim.Body](opts.ranks)
		if err != nil {
			return err
		}
		for rank := 0; rank < opts.ranks; rank++ {
			col, err := hub.Rank(rank)
			if err != nil {
				return err
			}
			if rank == 0 {
				coord, err = nbodysim.NewCoordinator(cfg, col)
			} else {
				var w *nbodysim.Worker
				w, err = nbodysim.NewWorker(cfg, col)
				workers = append(workers, w)
			}
			if err != nil {
				return err
			}
		}
	}

	if opts.loadState != "" {
		if err := coord.ResumeFrom(cp); err != nil {
			return err
		}
		for _, w := range workers {
			w.SetStartStep(cp.Step)
		}
	}

	coord.SetResultWriter(nbodysim.NewResultWriter(os.Stdout))

	if nbodysim.StdoutRedirected() {
		coord.AddObserver(nbodysim.NewProgressBar(os.Stderr))
	}
	if opts.dbPath != "" {
		db, err := nbodysim.OpenTrajectoryDB(opts.dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		coord.AddObserver(db)
	}
	if opts.telemetryAddr != "" {
		ts, err := nbodysim.NewTelemetryServer(opts.telemetryAddr)
		if err != nil {
			return err
		}
		defer ts.Close()
		coord.AddObserver(ts)
	}

	if err := nbodysim.RunLocal(ctx, coord, workers); err != nil {
		return err
	}

	if opts.saveState != "" {
		return nbodysim.SaveCheckpoint(opts.saveState, coord.Checkpoint(cfg.Iterations()))
	}
	return nil
}
