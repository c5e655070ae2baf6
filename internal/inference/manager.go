package inference

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/agora/internal/channel"
	"github.com/roach88/agora/internal/metrics"
)

// DefaultPollInterval is the Manager's tick period.
const DefaultPollInterval = 10 * time.Millisecond

// Manager multiplexes an inference Channel over a fixed set of workers.
//
// Capacity is static: at most len(workers) requests are in flight, and the
// rest wait in the channel.
type Manager struct {
	ch       *Channel
	workers  []*Worker
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	stopOnce sync.Once
	stop     chan struct{}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithPollInterval sets the tick period.
func WithPollInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithManagerLogger sets the logger.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithManagerMetrics attaches Prometheus instrumentation.
func WithManagerMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// NewManager creates a manager serving ch with workers.
func NewManager(ch *Channel, workers []*Worker, opts ...ManagerOption) *Manager {
	m := &Manager{
		ch:       ch,
		workers:  workers,
		interval: DefaultPollInterval,
		logger:   slog.Default(),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, w := range workers {
		w.onState = func(name string, s WorkerState) {
			m.metrics.SetWorkerState(name, s.String())
		}
	}
	return m
}

// Workers returns the pool.
func (m *Manager) Workers() []*Worker {
	return m.workers
}

// Run starts one goroutine per worker and polls until ctx is done, Stop is
// called or the channel closes. Queued and in-flight requests are not
// drained.
func (m *Manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range m.workers {
		m.metrics.SetWorkerState(w.name, w.State().String())
		g.Go(func() error {
			w.run(gctx)
			return nil
		})
	}
	m.logger.Info("inference manager starting", "workers", len(m.workers), "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("inference manager stopping: context cancelled")
		case <-m.stop:
			m.logger.Info("inference manager stopping: stop requested")
		case <-m.ch.Done():
			m.logger.Info("inference manager stopping: channel closed")
		case <-ticker.C:
			m.poll()
			continue
		}
		cancel()
		return g.Wait()
	}
}

// Stop ends Run. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// poll forwards finished results and assigns queued prompts to idle
// workers.
func (m *Manager) poll() {
	for _, w := range m.workers {
		if w.State() == WorkerDone {
			if r, ok := w.collect(); ok {
				err := m.ch.Reply(r.id, r.text)
				switch {
				case err == nil:
				case errors.Is(err, channel.ErrUnknownCorrelation):
					m.logger.Debug("reply dropped: caller stopped waiting", "worker", w.name, "correlation_id", r.id)
				default:
					m.logger.Error("reply failed", "worker", w.name, "correlation_id", r.id, "error", err)
				}
				m.metrics.InferenceCompleted(r.fallback)
			}
		}

		if w.State() != WorkerIdle {
			continue
		}
		env, ok := m.ch.TryReceive()
		if !ok {
			continue
		}
		m.logger.Debug("request assigned", "worker", w.name, "correlation_id", env.ID)
		w.assign(job{id: env.ID, prompt: env.Payload})
	}
}

// ChannelBackend is the agent side of a Manager: it submits prompts on a
// Channel and waits for the pool's answer.
type ChannelBackend struct {
	ch *Channel
}

// NewChannelBackend returns a Backend served by whatever pool drains ch.
func NewChannelBackend(ch *Channel) *ChannelBackend {
	return &ChannelBackend{ch: ch}
}

// Complete implements Backend.
func (b *ChannelBackend) Complete(ctx context.Context, prompt Prompt) (string, error) {
	return b.ch.Call(ctx, prompt)
}
