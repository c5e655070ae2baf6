// Package platform implements the single-writer dispatch loop that owns all
// world-state mutation.
//
// Agents submit action.Request values on a channel. Run receives them one at
// a time, runs the matching handler to completion and replies on the same
// channel. No two handlers ever execute concurrently, which is what keeps
// the store's counters consistent without row locks.
//
// Thread-safety model:
//   - Run(): must be called from exactly one goroutine
//   - Handle(): same goroutine restriction; only for use when Run is not
//     running (tests, harness setup)
//   - State(): safe from any goroutine
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/roach88/agora/internal/action"
	"github.com/roach88/agora/internal/channel"
	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/metrics"
	"github.com/roach88/agora/internal/recsys"
	"github.com/roach88/agora/internal/store"
)

// Channel is the platform's request/response conduit.
type Channel = channel.Channel[action.Request, action.Response]

// NewChannel creates a platform channel.
func NewChannel(opts ...channel.Option) *Channel {
	return channel.New[action.Request, action.Response](opts...)
}

// State is the loop's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config holds the platform's behavioral settings.
type Config struct {
	Recsys recsys.Strategy

	// ShowScore exposes score = likes - dislikes instead of both counters.
	ShowScore bool

	// AllowSelfRating permits rating one's own posts and comments.
	AllowSelfRating bool

	// RefreshRecPostCount caps posts sampled from the rec cache per refresh.
	RefreshRecPostCount int

	// FollowingPostCount caps followee posts per refresh.
	FollowingPostCount int

	// MaxRecPostLen caps each user's rec cache row.
	MaxRecPostLen int

	// TrendNumDays is the trend window length.
	TrendNumDays int

	// TrendTopK caps trend results.
	TrendTopK int

	// RecProb is the personalized share of recommendation slots.
	RecProb float64

	// SnapshotPath receives a copy of a transient store on exit.
	// Empty discards the transient store.
	SnapshotPath string
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		Recsys:              recsys.Personalized,
		ShowScore:           false,
		AllowSelfRating:     true,
		RefreshRecPostCount: 1,
		FollowingPostCount:  3,
		MaxRecPostLen:       2,
		TrendNumDays:        7,
		TrendTopK:           1,
		RecProb:             recsys.DefaultRecProb,
	}
}

// Platform is the social platform's dispatch loop and handlers.
type Platform struct {
	store   *store.Store
	ch      *Channel
	clock   clock.Provider
	cfg     Config
	rec     *recsys.Engine
	rng     *rand.Rand
	logger  *slog.Logger
	metrics *metrics.Metrics

	state atomic.Int32
}

// Option configures a Platform.
type Option func(*Platform)

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(p *Platform) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Platform) {
		p.metrics = m
	}
}

// WithRand injects the random source used for feed sampling and
// recommendation. Tests pass a seeded generator.
func WithRand(rng *rand.Rand) Option {
	return func(p *Platform) {
		if rng != nil {
			p.rng = rng
		}
	}
}

// New creates a platform over store st, serving requests from ch and
// stamping records with clk.
func New(st *store.Store, ch *Channel, clk clock.Provider, cfg Config, opts ...Option) *Platform {
	p := &Platform{
		store:  st,
		ch:     ch,
		clock:  clk,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	p.rec = recsys.New(cfg.Recsys, recsys.WithRand(p.rng), recsys.WithRecProb(cfg.RecProb))
	return p
}

// State returns the loop's lifecycle state.
func (p *Platform) State() State {
	return State(p.state.Load())
}

// Config returns the platform's settings.
func (p *Platform) Config() Config {
	return p.cfg
}

// Run serves requests until an Exit command arrives, the channel closes or
// ctx is cancelled.
//
// Exit snapshots a transient store, closes the store, replies and returns
// nil. A ProtocolFault is replied to, then returned. Whatever stops the
// loop, the channel is closed on return so no submitter waits on a loop
// that is gone.
func (p *Platform) Run(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fmt.Errorf("platform already %s", p.State())
	}
	defer p.ch.Close()
	p.logger.Info("platform starting", "recsys", p.cfg.Recsys, "clock", p.clock.Mode())

	for {
		env, err := p.ch.Receive(ctx)
		if err != nil {
			if errors.Is(err, channel.ErrClosed) {
				p.logger.Info("platform stopping: channel closed")
				return p.terminate(ctx)
			}
			p.logger.Info("platform stopping: context cancelled")
			if termErr := p.terminate(context.WithoutCancel(ctx)); termErr != nil {
				return errors.Join(err, termErr)
			}
			return err
		}
		p.metrics.SetQueueDepth(p.ch.Pending())

		req := env.Payload
		if _, ok := req.Command.(action.Exit); ok {
			p.logger.Info("platform stopping: exit requested", "agent_id", req.AgentID)
			termErr := p.terminate(ctx)
			result := action.OK()
			if termErr != nil {
				result = action.Fail(termErr.Error())
			}
			p.reply(env.ID, req.AgentID, result)
			return termErr
		}

		result, err := p.Handle(ctx, req)
		if err != nil {
			p.logger.Error("dispatch failed", "agent_id", req.AgentID, "error", err)
			p.reply(env.ID, req.AgentID, action.Fail(err.Error()))
			if termErr := p.terminate(context.WithoutCancel(ctx)); termErr != nil {
				return errors.Join(err, termErr)
			}
			return err
		}
		p.reply(env.ID, req.AgentID, result)
	}
}

// Handle executes one request synchronously and returns its result. The
// only error it returns is a *ProtocolFault; handler failures become
// {"success": false, "error": ...} results.
func (p *Platform) Handle(ctx context.Context, req action.Request) (result action.Result, fault error) {
	kind := "unknown"
	if req.Command != nil {
		kind = string(req.Command.Kind())
	}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("handler panicked", "agent_id", req.AgentID, "action", kind, "panic", r)
			result = action.Fail(fmt.Sprintf("internal error: %v", r))
			fault = nil
		}
		if fault == nil {
			p.metrics.ObserveAction(kind, result.Success(), time.Since(start))
		}
	}()

	result, err := p.dispatch(ctx, req)
	if err != nil {
		if IsProtocolFault(err) {
			return nil, err
		}
		p.logger.Debug("action failed", "agent_id", req.AgentID, "action", kind, "error", err)
		// Posts and comments are checked before writing; a dangling
		// reference left at this point is an unregistered user.
		if store.IsForeignKeyViolation(err) {
			return action.Fail(msgUserNotFound), nil
		}
		return action.Fail(err.Error()), nil
	}

	p.logger.Debug("action handled", "agent_id", req.AgentID, "action", kind, "success", result.Success())
	return result, nil
}

func (p *Platform) reply(id string, agentID int64, result action.Result) {
	err := p.ch.Reply(id, action.Response{AgentID: agentID, Result: result})
	switch {
	case err == nil:
	case errors.Is(err, channel.ErrUnknownCorrelation):
		p.logger.Debug("reply dropped: caller stopped waiting", "correlation_id", id, "agent_id", agentID)
	default:
		p.logger.Error("reply failed", "correlation_id", id, "agent_id", agentID, "error", err)
	}
}

// terminate persists a transient store and closes it. Safe to call once
// per Run.
func (p *Platform) terminate(ctx context.Context) error {
	defer p.state.Store(int32(StateTerminated))

	var snapErr error
	if p.store.Transient() {
		if p.cfg.SnapshotPath != "" {
			snapErr = p.store.Snapshot(ctx, p.cfg.SnapshotPath)
			if snapErr == nil {
				p.logger.Info("transient store snapshotted", "path", p.cfg.SnapshotPath)
			}
		} else {
			p.logger.Info("transient store discarded")
		}
	}

	closeErr := p.store.Close()
	if err := errors.Join(snapErr, closeErr); err != nil {
		return fmt.Errorf("terminate: %w", err)
	}
	return nil
}
