package platform

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/agora/internal/action"
	"github.com/roach88/agora/internal/channel"
	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/store"
)

type fixture struct {
	p     *Platform
	store *store.Store
	clock *clock.TickClock
	ch    *Channel
}

// setupPlatform builds a file-backed platform on a tick clock with seeded
// randomness. Handlers are driven through Handle unless a test starts Run.
func setupPlatform(t *testing.T, cfg Config) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clk := clock.NewTickClock(0)
	ch := NewChannel(channel.WithIDGenerator(channel.NewSequenceGenerator("req")))
	p := New(st, ch, clk, cfg, WithRand(rand.New(rand.NewPCG(1, 2))))
	return &fixture{p: p, store: st, clock: clk, ch: ch}
}

// do runs one command as agent and fails the test on a protocol fault.
func (f *fixture) do(t *testing.T, agent int64, cmd action.Command) action.Result {
	t.Helper()
	res, err := f.p.Handle(context.Background(), action.Request{AgentID: agent, Command: cmd})
	require.NoError(t, err)
	return res
}

// signUp registers agents 1..n.
func (f *fixture) signUp(t *testing.T, n int) {
	t.Helper()
	for i := int64(1); i <= int64(n); i++ {
		res := f.do(t, i, action.SignUp{UserName: "u" + string(rune('0'+i)), Name: "User", Bio: "bio"})
		require.True(t, res.Success(), "sign up %d: %v", i, res)
	}
}

func requireID(t *testing.T, res action.Result, key string) int64 {
	t.Helper()
	require.True(t, res.Success(), "result: %v", res)
	id, ok := res.Int(key)
	require.True(t, ok, "missing %s in %v", key, res)
	return id
}

func countTrace(t *testing.T, st *store.Store, kind action.Kind) int {
	t.Helper()
	n, err := st.CountTrace(context.Background(), string(kind))
	require.NoError(t, err)
	return n
}
