package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/model"
)

// createTestStore creates a file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedUsers signs up users with IDs 1..n.
func seedUsers(t *testing.T, s *Store, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		id := int64(i)
		require.NoError(t, s.CreateUser(ctx, model.User{
			UserID:    id,
			AgentID:   id,
			UserName:  "user" + string(rune('0'+i)),
			Name:      "User " + string(rune('0'+i)),
			Bio:       "bio",
			CreatedAt: clock.TickStamp(0),
		}))
	}
}
