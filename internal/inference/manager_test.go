package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedBackend blocks every call until release is closed and records peak
// concurrency.
type gatedBackend struct {
	release chan struct{}
	active  *atomic.Int32
	peak    *atomic.Int32
}

func (b gatedBackend) Complete(ctx context.Context, prompt Prompt) (string, error) {
	n := b.active.Add(1)
	defer b.active.Add(-1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-b.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return "re: " + prompt[len(prompt)-1].Content, nil
}

func startManager(t *testing.T, ch *Channel, workers ...*Worker) *Manager {
	t.Helper()
	m := NewManager(ch, workers, WithPollInterval(time.Millisecond))
	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()
	t.Cleanup(func() {
		m.Stop()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("manager did not stop")
		}
	})
	return m
}

func prompt(s string) Prompt {
	return Prompt{{Role: RoleUser, Content: s}}
}

func TestManager_BoundedConcurrencyAndOneReplyEach(t *testing.T) {
	ch := NewChannel()
	var active, peak atomic.Int32
	backend := gatedBackend{release: make(chan struct{}), active: &active, peak: &peak}

	workers := []*Worker{
		NewWorker("w0", backend),
		NewWorker("w1", backend),
		NewWorker("w2", backend),
	}
	m := startManager(t, ch, workers...)

	ctx := context.Background()
	ids := make([]string, 5)
	for i := range ids {
		id, err := ch.Submit(ctx, prompt(fmt.Sprintf("q%d", i)))
		require.NoError(t, err)
		ids[i] = id
	}

	require.Eventually(t, func() bool { return active.Load() == 3 }, 2*time.Second, time.Millisecond)
	working := 0
	for _, w := range m.Workers() {
		if w.State() == WorkerWorking {
			working++
		}
	}
	assert.Equal(t, 3, working)
	assert.Equal(t, 2, ch.Pending(), "unserved requests wait in the channel")

	close(backend.release)

	var wg sync.WaitGroup
	replies := make([]string, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := ch.AwaitResponse(ctx, id)
			assert.NoError(t, err)
			replies[i] = resp
		}()
	}
	wg.Wait()

	for i, r := range replies {
		assert.Equal(t, fmt.Sprintf("re: q%d", i), r, "reply %d routed to its own waiter", i)
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))

	var served int64
	for _, w := range m.Workers() {
		served += w.Served()
	}
	assert.Equal(t, int64(5), served)

	require.Eventually(t, func() bool {
		for _, w := range m.Workers() {
			if w.State() != WorkerIdle {
				return false
			}
		}
		return true
	}, time.Second, time.Millisecond)
}

func TestManager_BackendErrorYieldsSentinel(t *testing.T) {
	ch := NewChannel()
	failing := BackendFunc(func(context.Context, Prompt) (string, error) {
		return "", errors.New("connection refused")
	})
	startManager(t, ch, NewWorker("w0", failing))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := NewChannelBackend(ch).Complete(ctx, prompt("hi"))
	require.NoError(t, err)
	assert.Equal(t, NoResponse, resp)
}

func TestWorker_OpenBreakerSkipsBackend(t *testing.T) {
	var calls atomic.Int32
	failing := BackendFunc(func(context.Context, Prompt) (string, error) {
		calls.Add(1)
		return "", errors.New("boom")
	})
	w := NewWorker("w0", failing, WithBreaker(2, time.Hour))
	ctx := context.Background()

	for range 4 {
		text, fallback := w.complete(ctx, prompt("x"))
		assert.Equal(t, NoResponse, text)
		assert.True(t, fallback)
	}
	assert.Equal(t, int32(2), calls.Load(), "breaker opens after two failures")
	assert.Equal(t, "open", w.BreakerState().String())
}

func TestManager_StopsWhenChannelCloses(t *testing.T) {
	ch := NewChannel()
	m := NewManager(ch, []*Worker{NewWorker("w0", EchoBackend{})}, WithPollInterval(time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()
	ch.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}
}

func TestWorkerState_String(t *testing.T) {
	assert.Equal(t, "idle", WorkerIdle.String())
	assert.Equal(t, "busy", WorkerBusy.String())
	assert.Equal(t, "working", WorkerWorking.String())
	assert.Equal(t, "done", WorkerDone.String())
}

func TestEchoBackend(t *testing.T) {
	ctx := context.Background()

	out, err := EchoBackend{}.Complete(ctx, Prompt{{Role: RoleSystem, Content: "a"}, {Role: RoleUser, Content: "b"}})
	require.NoError(t, err)
	assert.Equal(t, "b", out)

	out, err = EchoBackend{Reply: "fixed"}.Complete(ctx, prompt("b"))
	require.NoError(t, err)
	assert.Equal(t, "fixed", out)
}
