package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/roach88/agora/internal/action"
	"github.com/roach88/agora/internal/channel"
	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/config"
	"github.com/roach88/agora/internal/platform"
	"github.com/roach88/agora/internal/store"
)

// Harness holds one scenario's platform while it runs.
type Harness struct {
	store  *store.Store
	ch     *platform.Channel
	clock  *clock.TickClock
	logger *slog.Logger
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
	driver string
}

// WithLogger routes platform and harness logs to l. Runs are silent by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDriver selects the SQLite driver for the scenario's store.
func WithDriver(name string) Option {
	return func(o *options) {
		o.driver = name
	}
}

// Run executes a scenario against a fresh in-memory platform.
//
// Execution flow:
//  1. Open an in-memory store and start the platform loop on a tick clock
//  2. Execute setup steps, failing on the first rejection
//  3. Execute flow steps and check their expect clauses
//  4. Read the trace and evaluate assertions
//  5. Stop the platform with an exit command
//
// The returned error reports a run that could not complete; scenario
// failures are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (res *Result, err error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	pcfg, err := platformConfig(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(store.MemoryPath, store.WithDriver(o.driver))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		ch:     platform.NewChannel(channel.WithIDGenerator(channel.NewSequenceGenerator("step"))),
		clock:  clock.NewTickClock(0),
		logger: o.logger,
	}
	rng := rand.New(rand.NewPCG(scenario.Seed, scenario.Seed^0x5851f42d4c957f2d))
	p := platform.New(st, h.ch, h.clock, pcfg,
		platform.WithLogger(o.logger),
		platform.WithRand(rng),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Run(runCtx) }()

	defer func() {
		if stopErr := h.stop(ctx, done); stopErr != nil && err == nil {
			err = stopErr
		}
	}()

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	trace, err := h.readTrace(ctx)
	if err != nil {
		return nil, err
	}
	result.Trace = trace

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func platformConfig(s *Scenario) (platform.Config, error) {
	cfg := config.Default()
	if s.Platform != nil {
		cfg.Platform = *s.Platform
	}
	cfg.Database.Snapshot = ""
	pcfg, err := cfg.PlatformConfig()
	if err != nil {
		return platform.Config{}, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return pcfg, nil
}

// stop sends exit and waits for the loop.
func (h *Harness) stop(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("platform stopped early: %w", err)
		}
		return nil
	default:
	}

	_, callErr := h.ch.Call(ctx, action.Request{AgentID: 0, Command: action.Exit{}})
	// A failed call means ctx is done, which also stops the loop.
	loopErr := <-done
	if callErr != nil && !errors.Is(callErr, channel.ErrClosed) {
		return fmt.Errorf("stop platform: %w", callErr)
	}
	if loopErr != nil && !errors.Is(loopErr, context.Canceled) {
		return fmt.Errorf("stop platform: %w", loopErr)
	}
	return nil
}

// executeSetup runs setup steps. Every step must succeed.
func (h *Harness) executeSetup(ctx context.Context, setup []Step) error {
	for i, step := range setup {
		res, err := h.execute(ctx, step)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		if !res.Success() {
			return fmt.Errorf("setup step %d: %s rejected: %s%s", i, step.Action, res.Error(), res.Message())
		}
		h.logger.Info("setup step completed", "step", i, "agent", step.Agent, "action", step.Action)
	}
	return nil
}

// executeFlow runs flow steps and checks their expect clauses.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		res, err := h.execute(ctx, step)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		result.Steps = append(result.Steps, StepResult{
			Step:    i,
			Agent:   step.Agent,
			Action:  step.Action,
			Tick:    h.clock.Current(),
			Outcome: outcomeOf(res),
			Result:  res,
		})

		if step.Expect != nil {
			if msg := checkExpect(i, step, res); msg != "" {
				result.AddError(msg)
			}
		}

		h.logger.Info("flow step completed",
			"step", i,
			"agent", step.Agent,
			"action", step.Action,
			"outcome", outcomeOf(res),
		)
	}
	return nil
}

// execute advances the clock, decodes the step and round-trips it through
// the platform channel.
func (h *Harness) execute(ctx context.Context, step Step) (action.Result, error) {
	if step.Tick != nil && !h.clock.Set(*step.Tick) {
		return nil, fmt.Errorf("tick %d is behind the clock (%d)", *step.Tick, h.clock.Current())
	}

	payload, err := json.Marshal(step.Args)
	if err != nil {
		return nil, fmt.Errorf("encode args: %w", err)
	}
	cmd, err := action.Decode(step.Action, payload)
	if err != nil {
		return nil, err
	}

	resp, err := h.ch.Call(ctx, action.Request{AgentID: step.Agent, Command: cmd})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", step.Action, err)
	}
	return resp.Result, nil
}

func checkExpect(i int, step Step, res action.Result) string {
	if got := outcomeOf(res); got != step.Expect.Case {
		return fmt.Sprintf("flow step %d (%s): expected %s, got %s: %v", i, step.Action, step.Expect.Case, got, res)
	}
	if len(step.Expect.Result) > 0 && !matchSubset(normalize(map[string]any(res)), step.Expect.Result) {
		return fmt.Sprintf("flow step %d (%s): result %v does not contain %v", i, step.Action, res, step.Expect.Result)
	}
	return ""
}

func (h *Harness) readTrace(ctx context.Context) ([]TraceEvent, error) {
	entries, err := h.store.ReadTrace(ctx, store.TraceFilter{})
	if err != nil {
		return nil, err
	}
	events := make([]TraceEvent, len(entries))
	for i, e := range entries {
		info := map[string]any{}
		if err := json.Unmarshal([]byte(e.Info), &info); err != nil {
			return nil, fmt.Errorf("trace row %d: decode info: %w", i+1, err)
		}
		events[i] = TraceEvent{
			Seq:       i + 1,
			UserID:    e.UserID,
			Action:    e.Action,
			CreatedAt: e.CreatedAt,
			Info:      info,
		}
	}
	return events, nil
}
