// Package channel implements the correlation-ID request/response conduit
// between many producers and a single consumer.
//
// Producers Submit a payload and later AwaitResponse on the returned
// identifier. The consumer Receives requests in FIFO order and Replies by
// identifier. A reply that arrives before anyone awaits it is buffered, so
// ordering between Reply and AwaitResponse does not matter.
package channel

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrClosed is returned by Submit, Receive and pending AwaitResponse
	// calls after Close.
	ErrClosed = errors.New("channel closed")

	// ErrUnknownCorrelation is returned when an identifier was never issued
	// by Submit, its response was already consumed, or its waiter gave up.
	ErrUnknownCorrelation = errors.New("unknown correlation id")

	// ErrDuplicateReply is returned when a request is replied to twice.
	ErrDuplicateReply = errors.New("request already replied")
)

// Envelope is a queued request as seen by the consumer.
type Envelope[Req any] struct {
	ID      string
	Payload Req
}

type waiter[Resp any] struct {
	ch      chan Resp // buffered, size 1
	replied bool
}

// Channel pairs a FIFO request queue with a correlation-keyed response table.
//
// Thread-safety: all methods are safe for concurrent use. Receive and
// TryReceive are intended for a single consumer goroutine.
type Channel[Req, Resp any] struct {
	ids      IDGenerator
	requests *queue[Envelope[Req]]

	mu      sync.Mutex
	waiters map[string]*waiter[Resp]
	closed  bool
	done    chan struct{}
}

// Option configures a Channel.
type Option func(*options)

type options struct {
	ids IDGenerator
}

// WithIDGenerator sets the correlation ID source (default UUIDv7).
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		o.ids = g
	}
}

// New creates an open channel.
func New[Req, Resp any](opts ...Option) *Channel[Req, Resp] {
	o := options{ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Channel[Req, Resp]{
		ids:      o.ids,
		requests: newQueue[Envelope[Req]](),
		waiters:  make(map[string]*waiter[Resp]),
		done:     make(chan struct{}),
	}
}

// Submit enqueues a request and returns its correlation identifier.
// It never blocks on the consumer.
func (c *Channel[Req, Resp]) Submit(ctx context.Context, payload Req) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	id := c.ids.Generate()
	c.waiters[id] = &waiter[Resp]{ch: make(chan Resp, 1)}
	c.mu.Unlock()

	if !c.requests.push(Envelope[Req]{ID: id, Payload: payload}) {
		c.forget(id)
		return "", ErrClosed
	}
	return id, nil
}

// AwaitResponse blocks until the reply for id arrives, ctx is done, or the
// channel closes. A response is delivered at most once. Once ctx ends the
// wait, id is forgotten and a later Reply to it fails.
func (c *Channel[Req, Resp]) AwaitResponse(ctx context.Context, id string) (Resp, error) {
	var zero Resp

	c.mu.Lock()
	w, ok := c.waiters[id]
	c.mu.Unlock()
	if !ok {
		return zero, ErrUnknownCorrelation
	}

	// A reply buffered before Close still wins.
	select {
	case resp := <-w.ch:
		c.forget(id)
		return resp, nil
	default:
	}

	select {
	case resp := <-w.ch:
		c.forget(id)
		return resp, nil
	case <-ctx.Done():
		// The caller is gone; a late reply is dropped rather than kept.
		c.forget(id)
		return zero, ctx.Err()
	case <-c.done:
		select {
		case resp := <-w.ch:
			c.forget(id)
			return resp, nil
		default:
			return zero, ErrClosed
		}
	}
}

// Call is Submit followed by AwaitResponse.
func (c *Channel[Req, Resp]) Call(ctx context.Context, payload Req) (Resp, error) {
	id, err := c.Submit(ctx, payload)
	if err != nil {
		var zero Resp
		return zero, err
	}
	return c.AwaitResponse(ctx, id)
}

// Receive blocks until a request is available, ctx is done, or the channel
// is closed and drained.
func (c *Channel[Req, Resp]) Receive(ctx context.Context) (Envelope[Req], error) {
	for {
		if env, ok := c.requests.tryPop(); ok {
			return env, nil
		}
		if c.requests.drained() {
			return Envelope[Req]{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return Envelope[Req]{}, ctx.Err()
		case <-c.requests.wait():
		}
	}
}

// TryReceive returns the next request without blocking.
func (c *Channel[Req, Resp]) TryReceive() (Envelope[Req], bool) {
	return c.requests.tryPop()
}

// Pending returns the number of queued, unreceived requests.
func (c *Channel[Req, Resp]) Pending() int {
	return c.requests.len()
}

// Reply delivers the response for id. Replying to an identifier that was
// never issued, or twice to the same one, is an error. Reply still succeeds
// after Close so a consumer can answer requests it already received.
func (c *Channel[Req, Resp]) Reply(id string, resp Resp) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.waiters[id]
	if !ok {
		return ErrUnknownCorrelation
	}
	if w.replied {
		return ErrDuplicateReply
	}
	w.replied = true
	w.ch <- resp // buffered; never blocks on the first reply
	return nil
}

// Close stops accepting requests and wakes all waiters. Requests already
// queued may still be received. Close is idempotent.
func (c *Channel[Req, Resp]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	c.requests.close()
}

// Done is closed when the channel closes.
func (c *Channel[Req, Resp]) Done() <-chan struct{} {
	return c.done
}

func (c *Channel[Req, Resp]) forget(id string) {
	c.mu.Lock()
	delete(c.waiters, id)
	c.mu.Unlock()
}
