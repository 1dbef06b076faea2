package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/rockets/config"
	"github.com/pthm-cable/rockets/evolve"
	"github.com/pthm-cable/rockets/game"
	"github.com/pthm-cable/rockets/stream"
	"github.com/pthm-cable/rockets/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	generations := flag.Int("generations", 0, "Stop after N generations (0 = unlimited)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	serveAddr := flag.String("serve", "", "Serve the websocket viewer feed on this address (e.g. :8080)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		slog.Error("invalid log level", "level", *logLevel, "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	runID := uuid.NewString()

	if err := run(cfg, runOptions{
		runID:       runID,
		seed:        rngSeed,
		generations: *generations,
		outputDir:   *outputDir,
		serveAddr:   *serveAddr,
		logger:      logger,
	}); err != nil {
		logger.Error("run failed", "run_id", runID, "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	runID       string
	seed        int64
	generations int
	outputDir   string
	serveAddr   string
	logger      *slog.Logger
}

func run(cfg *config.Config, opts runOptions) error {
	logger := opts.logger.With("run_id", opts.runID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var output *telemetry.OutputManager
	if opts.outputDir != "" {
		om, err := telemetry.NewOutputManager(opts.outputDir)
		if err != nil {
			return err
		}
		defer func() {
			if err := om.Close(); err != nil {
				logger.Error("failed to close output files", "error", err)
			}
		}()
		if err := om.WriteConfig(cfg); err != nil {
			return err
		}
		output = om
	}

	pop, err := evolve.NewPopulation(cfg, rand.New(rand.NewSource(opts.seed+1)))
	if err != nil {
		return err
	}

	var hub *stream.Hub
	if opts.serveAddr != "" {
		hub = stream.NewHub(logger, stream.Info{
			RunID:      opts.runID,
			Width:      cfg.Playfield.Width,
			Height:     cfg.Playfield.Height,
			Lifespan:   cfg.Generation.Lifespan,
			Population: cfg.Population.Size,
		})
		defer hub.Close()

		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		srv := &http.Server{Addr: opts.serveAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("viewer server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving viewer feed", "addr", opts.serveAddr, "path", "/ws")
	}

	var sim *game.Simulation
	onGenerationEnd := func(stats telemetry.GenerationStats) {
		if output != nil {
			if err := output.WriteGeneration(stats); err != nil {
				logger.Error("failed to write generation stats", "error", err)
			}
		}
		if hub != nil {
			hub.PublishGeneration(stats)
		}

		mut := pop.LastMutation()
		logger.Debug("population mutated",
			"generation", stats.Generation,
			"mutated", mut.Mutated,
			"avg_abs_delta", mut.AvgAbsDelta,
		)

		if every := cfg.Telemetry.PerfLogEvery; every > 0 && stats.Generation%every == 0 {
			perf := sim.PerfStats()
			logger.Info("perf", "generation", stats.Generation, "stats", perf)
			if output != nil {
				if err := output.WritePerf(perf, stats.Generation); err != nil {
					logger.Error("failed to write perf", "error", err)
				}
			}
		}
	}

	sim, err = game.NewSimulation(game.Options{
		Config:          cfg,
		Evolver:         pop,
		Seed:            opts.seed,
		RunID:           opts.runID,
		Logger:          opts.logger,
		OnGenerationEnd: onGenerationEnd,
	})
	if err != nil {
		return err
	}
	defer sim.Close()

	logger.Info("starting simulation",
		"seed", opts.seed,
		"population", cfg.Population.Size,
		"elitism", cfg.Derived.ElitismCount,
		"lifespan", cfg.Generation.Lifespan,
		"layers", cfg.Derived.LayerSizes,
		"generations", opts.generations,
		"output_dir", opts.outputDir,
	)

	best := 0.0
	for ctx.Err() == nil {
		res, err := sim.Step()
		if err != nil {
			return err
		}

		if !res.Ended {
			if hub != nil && res.Frame%max(cfg.Stream.EveryFrames, 1) == 0 {
				hub.PublishState(sim.Snapshot())
			}
			continue
		}

		best = max(best, res.Stats.BestFitness)
		if opts.generations > 0 && sim.Generation() >= opts.generations {
			logger.Info("generation limit reached", "generations", sim.Generation())
			break
		}
	}

	if ctx.Err() != nil {
		logger.Info("interrupted", "generation", sim.Generation(), "frame", sim.Frame())
	}
	logger.Info("simulation finished", "generations", sim.Generation(), "best_fitness", best)
	return nil
}
