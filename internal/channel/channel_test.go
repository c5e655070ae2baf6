package channel

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_SubmitReceiveReply(t *testing.T) {
	c := New[string, int](WithIDGenerator(NewSequenceGenerator("t")))
	ctx := context.Background()

	id, err := c.Submit(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "t-1", id)
	assert.Equal(t, 1, c.Pending())

	env, err := c.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, env.ID)
	assert.Equal(t, "hello", env.Payload)

	require.NoError(t, c.Reply(id, 5))

	resp, err := c.AwaitResponse(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, resp)
}

func TestChannel_ReplyBeforeAwaitIsBuffered(t *testing.T) {
	c := New[string, string]()
	ctx := context.Background()

	id, err := c.Submit(ctx, "q")
	require.NoError(t, err)
	_, ok := c.TryReceive()
	require.True(t, ok)

	require.NoError(t, c.Reply(id, "early"))

	got, err := c.AwaitResponse(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "early", got)
}

func TestChannel_ResponseDeliveredOnce(t *testing.T) {
	c := New[int, int]()
	ctx := context.Background()

	id, _ := c.Submit(ctx, 1)
	require.NoError(t, c.Reply(id, 1))
	assert.ErrorIs(t, c.Reply(id, 2), ErrDuplicateReply)

	_, err := c.AwaitResponse(ctx, id)
	require.NoError(t, err)

	_, err = c.AwaitResponse(ctx, id)
	assert.ErrorIs(t, err, ErrUnknownCorrelation, "consumed responses are forgotten")
}

func TestChannel_UnknownCorrelation(t *testing.T) {
	c := New[int, int]()

	assert.ErrorIs(t, c.Reply("nope", 1), ErrUnknownCorrelation)
	_, err := c.AwaitResponse(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownCorrelation)
}

func TestChannel_FIFO(t *testing.T) {
	c := New[int, int]()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := c.Submit(ctx, i)
		require.NoError(t, err)
	}
	for i := 1; i <= 5; i++ {
		env, err := c.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, env.Payload)
	}
	_, ok := c.TryReceive()
	assert.False(t, ok)
}

func TestChannel_ReceiveBlocksUntilSubmit(t *testing.T) {
	c := New[string, string]()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got := make(chan string, 1)
	go func() {
		env, err := c.Receive(ctx)
		if err == nil {
			got <- env.Payload
		}
	}()

	time.Sleep(10 * time.Millisecond)
	_, err := c.Submit(ctx, "late")
	require.NoError(t, err)

	select {
	case v := <-got:
		assert.Equal(t, "late", v)
	case <-time.After(time.Second):
		t.Fatal("Receive did not wake")
	}
}

func TestChannel_ReceiveHonorsContext(t *testing.T) {
	c := New[int, int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Receive(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChannel_Close(t *testing.T) {
	c := New[int, int]()
	ctx := context.Background()

	id, err := c.Submit(ctx, 1)
	require.NoError(t, err)

	awaitErr := make(chan error, 1)
	go func() {
		_, err := c.AwaitResponse(ctx, id)
		awaitErr <- err
	}()

	c.Close()
	c.Close()

	select {
	case err := <-awaitErr:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("AwaitResponse did not wake on Close")
	}

	_, err = c.Submit(ctx, 2)
	assert.ErrorIs(t, err, ErrClosed)

	// The queued request is still drained, then Receive reports closure.
	env, err := c.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, env.Payload)
	_, err = c.Receive(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestChannel_ConcurrentProducers(t *testing.T) {
	c := New[int, int]()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Echo consumer doubling each payload.
	go func() {
		for {
			env, err := c.Receive(ctx)
			if err != nil {
				return
			}
			_ = c.Reply(env.ID, env.Payload*2)
		}
	}()

	const producers = 50
	var wg sync.WaitGroup
	errs := make(chan error, producers)
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			got, err := c.Call(ctx, n)
			if err != nil {
				errs <- err
				return
			}
			if got != n*2 {
				errs <- fmt.Errorf("producer %d got %d", n, got)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestChannel_AbandonedWaitIsForgotten(t *testing.T) {
	c := New[string, int](WithIDGenerator(NewSequenceGenerator("t")))

	id, err := c.Submit(context.Background(), "slow")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.AwaitResponse(ctx, id)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	c.mu.Lock()
	_, kept := c.waiters[id]
	c.mu.Unlock()
	assert.False(t, kept, "abandoned waiter must not be retained")

	assert.ErrorIs(t, c.Reply(id, 1), ErrUnknownCorrelation, "late reply is dropped")
	_, err = c.AwaitResponse(context.Background(), id)
	assert.ErrorIs(t, err, ErrUnknownCorrelation)
}
