package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/model"
)

func TestTrace_AppendAndFilter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendTrace(ctx, 1, clock.TickStamp(1), "create_post", map[string]any{"post_id": 1, "content": "hi"}))
	require.NoError(t, s.AppendTrace(ctx, 2, clock.TickStamp(2), "like_post", map[string]any{"post_id": 1, "like_id": 1}))
	require.NoError(t, s.AppendTrace(ctx, 1, clock.TickStamp(3), "do_nothing", nil))

	all, err := s.ReadTrace(ctx, TraceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, `{"content":"hi","post_id":1}`, all[0].Info)
	assert.Equal(t, "{}", all[2].Info)
	assert.Equal(t, clock.TickStamp(2), all[1].CreatedAt)

	mine, err := s.ReadTrace(ctx, TraceFilter{UserID: 1, HasUser: true})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	likes, err := s.ReadTrace(ctx, TraceFilter{Actions: []string{"like_post"}, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []model.TraceEntry{all[1]}, likes)

	n, err := s.CountTrace(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = s.CountTrace(ctx, "do_nothing")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReplaceRecs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceRecs(ctx, model.RecCache{1: {3, 2}, 2: {1}}))
	require.NoError(t, s.ReplaceRecs(ctx, model.RecCache{2: {4, 5}}))

	all, err := s.AllRecs(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RecCache{2: {4, 5}}, all, "rebuild replaces the whole table")

	recs, err := s.Recs(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSearch_CaseFolding(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, model.User{UserID: 1, AgentID: 1, UserName: "alice", Name: "Alice", Bio: "Straße cyclist"}))
	require.NoError(t, s.CreateUser(ctx, model.User{UserID: 12, AgentID: 12, UserName: "bob", Name: "Bob", Bio: "baker"}))

	_, err := s.CreatePost(ctx, 1, "GOING TO THE STRASSE FAIR", clock.TickStamp(0), 0)
	require.NoError(t, err)
	_, err = s.CreatePost(ctx, 12, "bread", clock.TickStamp(0), 0)
	require.NoError(t, err)

	posts, err := s.SearchPosts(ctx, "straße")
	require.NoError(t, err)
	require.Len(t, posts, 1, "ß folds to ss")
	assert.Equal(t, int64(1), posts[0].UserID)

	posts, err = s.SearchPosts(ctx, "12")
	require.NoError(t, err)
	require.Len(t, posts, 1, "author ID matches as text")

	users, err := s.SearchUsers(ctx, "ALI")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].UserName)

	users, err = s.SearchUsers(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, users)
}
