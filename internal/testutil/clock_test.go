package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/inference"
)

func TestSteppingClock_Steps(t *testing.T) {
	c := NewSteppingClock(Epoch, time.Minute)

	assert.Equal(t, Epoch, c.Now().Time())
	assert.Equal(t, Epoch.Add(time.Minute), c.Now().Time())
	assert.Equal(t, int64(2), c.Calls())
	assert.Equal(t, clock.ModeSandbox, c.Mode())
}

func TestSteppingClock_DaysAgoDoesNotAdvance(t *testing.T) {
	c := NewSteppingClock(Epoch, time.Hour)
	c.Now()

	assert.Equal(t, Epoch.AddDate(0, 0, -7), c.DaysAgo(7).Time())
	assert.Equal(t, int64(1), c.Calls())
}

func TestSteppingClock_Reset(t *testing.T) {
	c := NewSteppingClock(Epoch, time.Second)
	c.Now()
	c.Now()

	c.Reset()
	assert.Equal(t, Epoch, c.Now().Time())
}

func TestSteppingClock_ConcurrentCallsAreUnique(t *testing.T) {
	c := NewSteppingClock(Epoch, time.Millisecond)

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[time.Time]bool)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ts := c.Now().Time()
			mu.Lock()
			seen[ts] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}

func TestScriptedIDGenerator(t *testing.T) {
	g := NewScriptedIDGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestScriptedBackend(t *testing.T) {
	ctx := context.Background()
	b := NewScriptedBackend("one")
	p := inference.Prompt{{Role: inference.RoleUser, Content: "hi"}}

	out, err := b.Complete(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "one", out)

	_, err = b.Complete(ctx, p)
	assert.ErrorIs(t, err, ErrScriptExhausted)

	b.WithFallback("again")
	out, err = b.Complete(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "again", out)
	assert.Equal(t, 3, b.Calls())

	boom := errors.New("boom")
	b.WithError(boom)
	_, err = b.Complete(ctx, p)
	assert.ErrorIs(t, err, boom)
}
