// Package sim drives a simulation: it signs agents up, advances time step by
// step, rebuilds recommendations and activates agents, then stops the
// platform.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/agora/internal/agent"
	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/inference"
	"github.com/roach88/agora/internal/platform"
)

// Config controls the timestep loop.
type Config struct {
	// Steps is the number of timesteps to run.
	Steps int

	// TickStep is how far a tick clock advances per step.
	TickStep int64

	// Activation is the probability that an agent acts in a step.
	Activation float64

	// Seed makes agent activation reproducible.
	Seed uint64
}

// Actor is what the driver needs from an agent.
type Actor interface {
	ID() int64
	SignUp(ctx context.Context) error
	Step(ctx context.Context) (agent.Outcome, error)
}

// Driver runs the timestep loop against a platform channel.
type Driver struct {
	runID  string
	ctl    *agent.Client
	clock  clock.Provider
	actors []Actor
	cfg    Config
	rng    *rand.Rand
	logger *slog.Logger
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) DriverOption {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) DriverOption {
	return func(d *Driver) {
		if id != "" {
			d.runID = id
		}
	}
}

// NewDriver creates a driver. Control commands (rec rebuild, exit) are sent
// as agent 0 over ch.
func NewDriver(ch *platform.Channel, clk clock.Provider, actors []Actor, cfg Config, opts ...DriverOption) *Driver {
	d := &Driver{
		runID:  ulid.Make().String(),
		ctl:    agent.NewClient(0, ch),
		clock:  clk,
		actors: actors,
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("run_id", d.runID)
	return d
}

// RunID identifies this run in logs.
func (d *Driver) RunID() string { return d.runID }

// Report summarizes a run.
type Report struct {
	RunID      string `json:"run_id"`
	Steps      int    `json:"steps"`
	Activated  int    `json:"activated"`
	Commands   int    `json:"commands"`
	Rejections int    `json:"rejections"`
	Fallbacks  int    `json:"fallbacks"`
}

// Run signs every agent up, runs the configured steps and sends Exit. The
// platform stops even when a step fails.
func (d *Driver) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: d.runID}
	d.logger.Info("simulation starting", "agents", len(d.actors), "steps", d.cfg.Steps)

	runErr := d.run(ctx, &report)

	_, exitErr := d.ctl.Exit(context.WithoutCancel(ctx))
	if exitErr != nil && !isClosed(exitErr) {
		runErr = errors.Join(runErr, fmt.Errorf("exit: %w", exitErr))
	}

	d.logger.Info("simulation finished",
		"steps", report.Steps, "activated", report.Activated,
		"commands", report.Commands, "rejections", report.Rejections)
	return report, runErr
}

func (d *Driver) run(ctx context.Context, report *Report) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range d.actors {
		g.Go(func() error { return a.SignUp(gctx) })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("sign up: %w", err)
	}

	for step := range d.cfg.Steps {
		if err := d.step(ctx, step, report); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		report.Steps++
	}
	return nil
}

func (d *Driver) step(ctx context.Context, step int, report *Report) error {
	if tc, ok := d.clock.(*clock.TickClock); ok {
		tc.Set(int64(step) * d.cfg.TickStep)
	}

	res, err := d.ctl.UpdateRecTable(ctx)
	if err != nil {
		return err
	}
	if !res.Success() {
		d.logger.Debug("rec table not rebuilt", "step", step, "message", res.Message())
	}

	active := d.activate()
	d.logger.Info("step starting", "step", step, "active", len(active), "now", d.clock.Now())

	outcomes := make([]agent.Outcome, len(active))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range active {
		g.Go(func() error {
			out, err := a.Step(gctx)
			if err != nil {
				return fmt.Errorf("agent %d: %w", a.ID(), err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	report.Activated += len(active)
	for _, out := range outcomes {
		report.Commands += len(out.Commands)
		if out.Response == inference.NoResponse {
			report.Fallbacks++
		}
		for _, r := range out.Results {
			if !r.Success() {
				report.Rejections++
			}
		}
	}
	return nil
}

// activate samples the agents acting this step.
func (d *Driver) activate() []Actor {
	var out []Actor
	for _, a := range d.actors {
		if d.cfg.Activation >= 1 || d.rng.Float64() < d.cfg.Activation {
			out = append(out, a)
		}
	}
	return out
}
