package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWall struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeWall) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeWall) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Sandbox")
	require.NoError(t, err)
	assert.Equal(t, ModeSandbox, m)

	m, err = ParseMode(" tick ")
	require.NoError(t, err)
	assert.Equal(t, ModeTick, m)

	_, err = ParseMode("lunar")
	assert.Error(t, err)
}

func TestSandboxClock_ScalesElapsed(t *testing.T) {
	wall := &fakeWall{now: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	c := NewSandboxClock(60, WithStart(start), WithWallClock(wall.Now))
	assert.True(t, c.Now().Time().Equal(start), "no elapsed time means start")

	wall.Advance(10 * time.Second)
	assert.Equal(t, start.Add(10*time.Minute), c.Now().Time())
	assert.Equal(t, ModeSandbox, c.Mode())
}

func TestSandboxClock_DefaultsStartToWallClock(t *testing.T) {
	wall := &fakeWall{now: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewSandboxClock(0, WithWallClock(wall.Now))

	assert.Equal(t, float64(1), c.Factor(), "non-positive factor falls back to 1")
	assert.Equal(t, wall.now, c.Now().Time())
}

func TestSandboxClock_DaysAgo(t *testing.T) {
	wall := &fakeWall{now: time.Date(2030, 1, 8, 0, 0, 0, 0, time.UTC)}
	c := NewSandboxClock(1, WithWallClock(wall.Now))

	assert.Equal(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), c.DaysAgo(7).Time())
}

func TestTickClock_SetIsMonotonic(t *testing.T) {
	c := NewTickClock(0)
	assert.True(t, c.Set(3))
	assert.Equal(t, int64(3), c.Now().Tick())

	assert.False(t, c.Set(2), "ticks never move backwards")
	assert.Equal(t, int64(3), c.Current())

	assert.Equal(t, int64(5), c.Advance(2))
	assert.Equal(t, int64(5), c.Advance(-4), "negative advance is ignored")
	assert.Equal(t, ModeTick, c.Mode())
}

func TestTickClock_DaysAgo(t *testing.T) {
	c := NewTickClock(3 * MinutesPerDay)
	assert.Equal(t, int64(MinutesPerDay), c.DaysAgo(2).Tick())
	assert.True(t, c.DaysAgo(1).IsTick())
}

func TestTickClock_ConcurrentSet(t *testing.T) {
	c := NewTickClock(0)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			c.Set(v)
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, int64(100), c.Current())
}
