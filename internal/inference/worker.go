package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
)

// WorkerState is a worker's position in its lifecycle.
type WorkerState int32

const (
	WorkerIdle WorkerState = iota
	WorkerBusy
	WorkerWorking
	WorkerDone
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerBusy:
		return "busy"
	case WorkerWorking:
		return "working"
	case WorkerDone:
		return "done"
	default:
		return fmt.Sprintf("WorkerState(%d)", int32(s))
	}
}

// ErrBackendFault marks a failed completion. It is logged, never returned
// to agents.
var ErrBackendFault = errors.New("backend fault")

type job struct {
	id     string
	prompt Prompt
}

type result struct {
	id       string
	text     string
	fallback bool
}

// Worker runs one backend. Only the Manager assigns work to it.
type Worker struct {
	name    string
	backend Backend
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger

	mailbox chan job
	results chan result
	state   atomic.Int32
	served  atomic.Int64

	// onState observes every transition; set by the Manager.
	onState func(name string, s WorkerState)
}

// WorkerOption configures a Worker.
type WorkerOption func(*workerOptions)

type workerOptions struct {
	failures uint32
	cooldown time.Duration
	logger   *slog.Logger
}

// WithBreaker trips the worker's circuit after failures consecutive backend
// errors and probes again after cooldown.
func WithBreaker(failures uint32, cooldown time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if failures > 0 {
			o.failures = failures
		}
		if cooldown > 0 {
			o.cooldown = cooldown
		}
	}
}

// WithWorkerLogger sets the worker's logger.
func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewWorker creates an idle worker named name serving backend.
func NewWorker(name string, backend Backend, opts ...WorkerOption) *Worker {
	o := workerOptions{failures: 5, cooldown: 30 * time.Second, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	w := &Worker{
		name:    name,
		backend: backend,
		logger:  o.logger.With("worker", name),
		mailbox: make(chan job, 1),
		results: make(chan result, 1),
	}
	w.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: o.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			w.logger.Warn("circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	})
	return w
}

// Name returns the worker's name.
func (w *Worker) Name() string { return w.name }

// State returns the current lifecycle state. Safe from any goroutine.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// Served returns the number of completed requests.
func (w *Worker) Served() int64 {
	return w.served.Load()
}

// BreakerState reports the circuit breaker's state.
func (w *Worker) BreakerState() gobreaker.State {
	return w.breaker.State()
}

func (w *Worker) setState(s WorkerState) {
	w.state.Store(int32(s))
	if w.onState != nil {
		w.onState(w.name, s)
	}
}

// assign hands j to an idle worker. The mailbox has one slot and an idle
// worker's slot is always empty, so assign never blocks.
func (w *Worker) assign(j job) {
	w.setState(WorkerBusy)
	w.mailbox <- j
}

// collect takes a finished result and returns the worker to IDLE.
func (w *Worker) collect() (result, bool) {
	select {
	case r := <-w.results:
		w.setState(WorkerIdle)
		return r, true
	default:
		return result{}, false
	}
}

// run serves the mailbox until ctx is done. An in-flight call is abandoned
// when ctx is cancelled.
func (w *Worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-w.mailbox:
			w.setState(WorkerWorking)
			text, fallback := w.complete(ctx, j.prompt)
			w.results <- result{id: j.id, text: text, fallback: fallback}
			w.served.Add(1)
			w.setState(WorkerDone)
		}
	}
}

func (w *Worker) complete(ctx context.Context, prompt Prompt) (string, bool) {
	out, err := w.breaker.Execute(func() (interface{}, error) {
		return w.backend.Complete(ctx, prompt)
	})
	if err != nil {
		w.logger.Warn("completion failed", "error", fmt.Errorf("%w: %w", ErrBackendFault, err))
		return NoResponse, true
	}
	text, _ := out.(string)
	return text, false
}
