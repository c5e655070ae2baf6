package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/store"
)

// seedTrace writes a small trace directly through the store.
func seedTrace(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.AppendTrace(ctx, 1, clock.TickStamp(0), "sign_up", map[string]any{"user_name": "alice", "name": "Alice", "bio": "Gopher"}))
	require.NoError(t, st.AppendTrace(ctx, 2, clock.TickStamp(0), "sign_up", map[string]any{"user_name": "bob", "name": "Bob", "bio": "Rustacean"}))
	require.NoError(t, st.AppendTrace(ctx, 1, clock.TickStamp(60), "create_post", map[string]any{"post_id": 1, "content": "hello"}))
	require.NoError(t, st.AppendTrace(ctx, 2, clock.TickStamp(120), "like_post", map[string]any{"post_id": 1, "like_id": 1}))
	return path
}

func TestTraceCommand_Text(t *testing.T) {
	db := seedTrace(t)

	out, err := execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "=== Timeline ===")
	assert.Contains(t, out, "[1] 0 user 1 sign_up {bio=Gopher, name=Alice, user_name=alice}")
	assert.Contains(t, out, "[3] 60 user 1 create_post {content=hello, post_id=1}")
	assert.Contains(t, out, "  Total: 4")
	assert.Contains(t, out, "  like_post: 1")
	assert.Contains(t, out, "  sign_up: 2")
}

func TestTraceCommand_Filters(t *testing.T) {
	db := seedTrace(t)

	tests := []struct {
		name  string
		args  []string
		total int
		want  []string
	}{
		{"user", []string{"--user", "2"}, 2, []string{"sign_up", "like_post"}},
		{"action", []string{"--action", "create_post"}, 1, []string{"create_post"}},
		{"limit", []string{"--limit", "1"}, 1, []string{"sign_up"}},
		{"user and action", []string{"--user", "1", "--action", "like_post"}, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"trace", "--db", db, "--format", "json"}, tt.args...)
			out, err := execute(t, args...)
			require.NoError(t, err)

			var resp struct {
				Status string      `json:"status"`
				Data   TraceResult `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "ok", resp.Status)
			require.Len(t, resp.Data.Entries, tt.total)
			for i, action := range tt.want {
				assert.Equal(t, action, resp.Data.Entries[i].Action)
			}
		})
	}
}

func TestTraceCommand_JSONEntry(t *testing.T) {
	db := seedTrace(t)

	out, err := execute(t, "trace", "--db", db, "--action", "create_post", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Entries, 1)

	e := resp.Data.Entries[0]
	assert.Equal(t, 1, e.Seq)
	assert.Equal(t, int64(1), e.UserID)
	assert.Equal(t, clock.TickStamp(60), e.CreatedAt)
	assert.Equal(t, map[string]any{"content": "hello", "post_id": float64(1)}, e.Info)
	assert.Equal(t, map[string]int{"create_post": 1}, resp.Data.Stats)
}

func TestTraceCommand_EmptyTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "trace", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "(no entries)")
	assert.Contains(t, out, "Total: 0")
}

func TestTraceCommand_Errors(t *testing.T) {
	db := seedTrace(t)

	_, err := execute(t, "trace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)

	_, err = execute(t, "trace", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")

	_, err = execute(t, "trace", "--db", db, "--action", "teleport")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `unknown action "teleport"`)
}

func TestFormatArgs(t *testing.T) {
	args := map[string]any{
		"posts": []any{map[string]any{"post_id": float64(2), "content": "b"}},
		"a":     true,
	}
	assert.Equal(t, "{a=true, posts=[{content=b, post_id=2}]}", formatArgs(args))
	assert.Equal(t, "{}", formatArgs(nil))
}
