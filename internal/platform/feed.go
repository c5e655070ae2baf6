package platform

import (
	"context"
	"fmt"

	"github.com/roach88/agora/internal/action"
	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/model"
	"github.com/roach88/agora/internal/recsys"
	"github.com/roach88/agora/internal/store"
)

// PostView is a post as agents see it, with its comment thread. Exactly
// one of Score or the NumLikes/NumDislikes pair is set.
type PostView struct {
	PostID      int64         `json:"post_id"`
	UserID      int64         `json:"user_id"`
	Content     string        `json:"content"`
	CreatedAt   clock.Stamp   `json:"created_at"`
	Score       *int64        `json:"score,omitempty"`
	NumLikes    *int64        `json:"num_likes,omitempty"`
	NumDislikes *int64        `json:"num_dislikes,omitempty"`
	Comments    []CommentView `json:"comments"`
}

// CommentView is a comment as agents see it.
type CommentView struct {
	CommentID   int64       `json:"comment_id"`
	PostID      int64       `json:"post_id"`
	UserID      int64       `json:"user_id"`
	Content     string      `json:"content"`
	CreatedAt   clock.Stamp `json:"created_at"`
	Score       *int64      `json:"score,omitempty"`
	NumLikes    *int64      `json:"num_likes,omitempty"`
	NumDislikes *int64      `json:"num_dislikes,omitempty"`
}

// refresh composes the caller's feed: a sample of their rec cache row plus,
// when the follow graph is modeled, their followees' most-liked posts.
func (p *Platform) refresh(ctx context.Context, agentID int64) (action.Result, error) {
	now := p.clock.Now()

	recIDs, err := p.store.Recs(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if n := p.cfg.RefreshRecPostCount; len(recIDs) > n {
		p.rng.Shuffle(len(recIDs), func(i, j int) { recIDs[i], recIDs[j] = recIDs[j], recIDs[i] })
		recIDs = recIDs[:max(n, 0)]
	}

	var ids []int64
	if p.cfg.Recsys.ModelsFollowGraph() {
		following, err := p.store.FolloweePosts(ctx, agentID, p.cfg.FollowingPostCount)
		if err != nil {
			return nil, err
		}
		for _, post := range following {
			ids = append(ids, post.PostID)
		}
	}
	ids = dedupe(append(ids, recIDs...))

	posts, err := p.store.PostsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return action.Notice(msgEmptyFeed), nil
	}

	views, err := p.render(ctx, posts)
	if err != nil {
		return nil, err
	}
	if err := p.trace(ctx, agentID, now, action.KindRefresh, map[string]any{"posts": views}); err != nil {
		return nil, err
	}
	return action.OK("posts", views), nil
}

// trend returns the most-liked posts of the last TrendNumDays.
func (p *Platform) trend(ctx context.Context, agentID int64) (action.Result, error) {
	now := p.clock.Now()
	since := p.clock.DaysAgo(p.cfg.TrendNumDays)

	posts, err := p.store.TrendingPosts(ctx, since, p.cfg.TrendTopK)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return action.Notice(msgNoTrending), nil
	}

	views, err := p.render(ctx, posts)
	if err != nil {
		return nil, err
	}
	if err := p.trace(ctx, agentID, now, action.KindTrend, map[string]any{"posts": views}); err != nil {
		return nil, err
	}
	return action.OK("posts", views), nil
}

// searchPosts traces the query even when nothing matches.
func (p *Platform) searchPosts(ctx context.Context, agentID int64, cmd action.SearchPosts) (action.Result, error) {
	now := p.clock.Now()
	posts, err := p.store.SearchPosts(ctx, cmd.Query)
	if err != nil {
		return nil, err
	}
	if err := p.trace(ctx, agentID, now, action.KindSearchPosts, map[string]any{"query": cmd.Query}); err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return action.Notice(msgNoPostsMatch), nil
	}

	views, err := p.render(ctx, posts)
	if err != nil {
		return nil, err
	}
	return action.OK("posts", views), nil
}

func (p *Platform) searchUser(ctx context.Context, agentID int64, cmd action.SearchUser) (action.Result, error) {
	now := p.clock.Now()
	users, err := p.store.SearchUsers(ctx, cmd.Query)
	if err != nil {
		return nil, err
	}
	if err := p.trace(ctx, agentID, now, action.KindSearchUser, map[string]any{"query": cmd.Query}); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return action.Notice(msgNoUsersMatch), nil
	}
	return action.OK("users", users), nil
}

// updateRecTable rebuilds the rec cache from the current world state. It
// runs inside the loop, so no handler observes a half-written cache.
func (p *Platform) updateRecTable(ctx context.Context) (action.Result, error) {
	users, err := p.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := p.store.Posts(ctx)
	if err != nil {
		return nil, err
	}
	trace, err := p.store.ReadTrace(ctx, store.TraceFilter{})
	if err != nil {
		return nil, err
	}

	in := recsys.Input{
		Users:      users,
		Posts:      posts,
		Trace:      trace,
		MaxPerUser: p.cfg.MaxRecPostLen,
	}
	if p.cfg.Recsys == recsys.Incremental {
		latest, err := p.store.LatestPostCount(ctx)
		if err != nil {
			return nil, err
		}
		if latest == 0 {
			return action.Notice(msgNoLatestPosts), nil
		}
		prev, err := p.store.AllRecs(ctx)
		if err != nil {
			return nil, err
		}
		in.Previous = prev
		in.LatestCount = latest
	}

	cache := p.rec.Recommend(in)
	if err := p.store.ReplaceRecs(ctx, cache); err != nil {
		return nil, err
	}
	p.metrics.RecRebuilt()
	p.logger.Debug("rec table rebuilt", "users", len(users), "posts", len(posts), "strategy", p.cfg.Recsys)
	return action.OK("users", len(cache)), nil
}

// render attaches comment threads and applies score-hiding.
func (p *Platform) render(ctx context.Context, posts []model.Post) ([]PostView, error) {
	ids := make([]int64, len(posts))
	for i, post := range posts {
		ids[i] = post.PostID
	}
	threads, err := p.store.CommentsByPost(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("render feed: %w", err)
	}

	views := make([]PostView, len(posts))
	for i, post := range posts {
		v := PostView{
			PostID:    post.PostID,
			UserID:    post.UserID,
			Content:   post.Content,
			CreatedAt: post.CreatedAt,
			Comments:  make([]CommentView, 0, len(threads[post.PostID])),
		}
		v.Score, v.NumLikes, v.NumDislikes = p.counters(post.NumLikes, post.NumDislikes)
		for _, c := range threads[post.PostID] {
			cv := CommentView{
				CommentID: c.CommentID,
				PostID:    c.PostID,
				UserID:    c.UserID,
				Content:   c.Content,
				CreatedAt: c.CreatedAt,
			}
			cv.Score, cv.NumLikes, cv.NumDislikes = p.counters(c.NumLikes, c.NumDislikes)
			v.Comments = append(v.Comments, cv)
		}
		views[i] = v
	}
	return views, nil
}

func (p *Platform) counters(likes, dislikes int64) (score, numLikes, numDislikes *int64) {
	if p.cfg.ShowScore {
		s := likes - dislikes
		return &s, nil, nil
	}
	return nil, &likes, &dislikes
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
