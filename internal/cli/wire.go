package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/agora/internal/agent"
	"github.com/roach88/agora/internal/channel"
	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/config"
	"github.com/roach88/agora/internal/inference"
	"github.com/roach88/agora/internal/metrics"
	"github.com/roach88/agora/internal/platform"
	"github.com/roach88/agora/internal/sim"
	"github.com/roach88/agora/internal/store"
)

// stack is the platform half of a wired configuration.
type stack struct {
	store    *store.Store
	clock    clock.Provider
	channel  *platform.Channel
	platform *platform.Platform
	metrics  *metrics.Metrics
}

// loadConfig maps load and schema errors onto ExitCommandError.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// openStack opens the store and builds the platform for cfg. The platform
// closes the store when its loop ends; close covers a loop that never ran.
func openStack(cfg *config.Config, logger *slog.Logger) (*stack, error) {
	pcfg, err := cfg.PlatformConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid platform config", err)
	}
	clk, err := cfg.Clock()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid clock config", err)
	}
	ids, err := cfg.IDGenerator()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid channel config", err)
	}

	logger.Info("opening database", "path", cfg.Database.Path, "driver", cfg.Database.Driver)
	st, err := store.Open(cfg.Database.Path, store.WithDriver(cfg.Database.Driver))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	s := &stack{
		store:   st,
		clock:   clk,
		channel: platform.NewChannel(channel.WithIDGenerator(ids)),
		metrics: metrics.New(),
	}
	seed := cfg.Simulation.Seed
	s.platform = platform.New(st, s.channel, clk, pcfg,
		platform.WithLogger(logger),
		platform.WithMetrics(s.metrics),
		platform.WithRand(rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))),
	)
	return s, nil
}

func (s *stack) close(logger *slog.Logger) {
	if err := s.store.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}

// buildSimulation wires the inference pool, agents and driver onto s.
// Without endpoints every worker is an EchoBackend.
func buildSimulation(cfg *config.Config, s *stack, logger *slog.Logger) (*sim.Simulation, error) {
	ids, err := cfg.IDGenerator()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid channel config", err)
	}
	infer := inference.NewChannel(channel.WithIDGenerator(ids))

	workerOpts := []inference.WorkerOption{
		inference.WithBreaker(cfg.Inference.Breaker.Failures, cfg.Inference.Breaker.Cooldown.Std()),
		inference.WithWorkerLogger(logger),
	}
	var workers []*inference.Worker
	urls := cfg.EndpointURLs()
	for i, url := range urls {
		backend := inference.NewOpenAIBackend(inference.OpenAIConfig{
			BaseURL:     url,
			Model:       cfg.Inference.Model,
			APIKey:      cfg.Inference.APIKey,
			Temperature: cfg.Inference.Temperature,
			Stop:        cfg.Inference.Stop,
			Timeout:     cfg.Inference.Timeout.Std(),
		})
		workers = append(workers, inference.NewWorker(fmt.Sprintf("worker-%d", i), backend, workerOpts...))
	}
	if len(urls) == 0 {
		logger.Warn("no inference endpoints configured, agents use the echo backend")
		workers = append(workers, inference.NewWorker("echo", inference.EchoBackend{Reply: cfg.Inference.EchoReply}, workerOpts...))
	}

	manager := inference.NewManager(infer, workers,
		inference.WithPollInterval(cfg.Inference.PollInterval.Std()),
		inference.WithManagerLogger(logger),
		inference.WithManagerMetrics(s.metrics),
	)

	model := inference.NewChannelBackend(infer)
	actors := make([]sim.Actor, 0, len(cfg.Agents))
	for i, profile := range cfg.Agents {
		id := int64(i + 1)
		actors = append(actors, agent.New(id, profile, agent.NewClient(id, s.channel), model,
			agent.WithStyle(agent.Style(cfg.Simulation.Style)),
			agent.WithMaxAttempts(cfg.Inference.MaxAttempts),
			agent.WithMemoryWindow(cfg.Inference.MemoryWindow),
			agent.WithLogger(logger),
		))
	}

	driver := sim.NewDriver(s.channel, s.clock, actors, sim.Config{
		Steps:      cfg.Simulation.Steps,
		TickStep:   cfg.Simulation.TickStep,
		Activation: cfg.Simulation.Activation,
		Seed:       cfg.Simulation.Seed,
	}, sim.WithLogger(logger))

	return &sim.Simulation{
		Platform:  s.platform,
		Inference: infer,
		Manager:   manager,
		Driver:    driver,
	}, nil
}

// signalContext cancels on SIGINT or SIGTERM. parent may be nil.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
