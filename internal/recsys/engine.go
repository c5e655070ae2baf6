package recsys

import (
	"math/rand/v2"
	"sort"

	"github.com/roach88/agora/internal/model"
)

// DefaultRecProb is the share of personalized slots; the rest are filled by
// random exploration.
const DefaultRecProb = 0.7

// Input is everything a rebuild reads.
type Input struct {
	Users      []model.User
	Posts      []model.Post // ordered by post_id
	Trace      []model.TraceEntry
	Previous   model.RecCache
	MaxPerUser int

	// LatestCount is the number of posts sharing the newest created_at.
	// Only Incremental reads it.
	LatestCount int
}

// Engine produces a fresh RecCache for one strategy.
type Engine struct {
	strategy Strategy
	recProb  float64
	scorer   *Scorer
	rng      *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand injects the random source. Tests pass a seeded generator.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = rng
	}
}

// WithRecProb sets the personalized share in [0, 1].
func WithRecProb(p float64) Option {
	return func(e *Engine) {
		if p >= 0 && p <= 1 {
			e.recProb = p
		}
	}
}

// WithScorer overrides the scorer weights.
func WithScorer(config ScorerConfig) Option {
	return func(e *Engine) {
		e.scorer = NewScorer(config)
	}
}

// New creates an engine for strategy.
func New(strategy Strategy, opts ...Option) *Engine {
	e := &Engine{
		strategy: strategy,
		recProb:  DefaultRecProb,
		scorer:   NewScorer(DefaultScorerConfig()),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return e
}

// Strategy returns the configured strategy.
func (e *Engine) Strategy() Strategy { return e.strategy }

// Recommend builds the cache. Every user in in.Users gets an entry, possibly
// empty; no entry exceeds in.MaxPerUser.
func (e *Engine) Recommend(in Input) model.RecCache {
	cache := make(model.RecCache, len(in.Users))
	if in.MaxPerUser <= 0 {
		for _, u := range in.Users {
			cache[u.UserID] = []int64{}
		}
		return cache
	}

	switch e.strategy {
	case Trending:
		top := e.trending(in.Posts, in.MaxPerUser)
		for _, u := range in.Users {
			cache[u.UserID] = append([]int64(nil), top...)
		}
	case Personalized, Incremental:
		sig := digest(in.Posts, in.Trace)
		fresh := in.Posts
		if e.strategy == Incremental {
			fresh = newest(in.Posts, in.LatestCount)
		}
		for _, u := range in.Users {
			pool := in.Posts
			if prev, ok := in.Previous[u.UserID]; ok && e.strategy == Incremental {
				pool = union(in.Posts, prev, fresh)
			}
			cache[u.UserID] = e.personalized(u.UserID, pool, in.Posts, sig, in.MaxPerUser)
		}
	default: // Random
		for _, u := range in.Users {
			cache[u.UserID] = e.sample(in.Posts, in.MaxPerUser)
		}
	}
	return cache
}

// sample picks up to n post IDs uniformly without replacement.
func (e *Engine) sample(posts []model.Post, n int) []int64 {
	if len(posts) <= n {
		ids := make([]int64, len(posts))
		for i, p := range posts {
			ids[i] = p.PostID
		}
		return ids
	}
	ids := make([]int64, 0, n)
	for _, i := range e.rng.Perm(len(posts))[:n] {
		ids = append(ids, posts[i].PostID)
	}
	return ids
}

// trending ranks by like count, newer posts first on ties.
func (e *Engine) trending(posts []model.Post, n int) []int64 {
	ranked := append([]model.Post(nil), posts...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].NumLikes != ranked[j].NumLikes {
			return ranked[i].NumLikes > ranked[j].NumLikes
		}
		return ranked[i].PostID > ranked[j].PostID
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	ids := make([]int64, len(ranked))
	for i, p := range ranked {
		ids[i] = p.PostID
	}
	return ids
}

// personalized fills up to n slots from pool. Each slot takes the best
// remaining scored post with probability recProb, otherwise a random
// remaining one. Posts authored by the user or already engaged with are
// excluded.
func (e *Engine) personalized(userID int64, pool, all []model.Post, sig *signals, n int) []int64 {
	seen := newSeenFilter(sig.engaged[userID])
	candidates := make([]model.Post, 0, len(pool))
	for _, p := range pool {
		if p.UserID == userID || seen.has(p.PostID) {
			continue
		}
		candidates = append(candidates, p)
	}

	maxEng := maxEngagement(all, sig)
	maxAff := maxAffinity(userID, sig)
	scored := make([]ScoredPost, len(candidates))
	for i, p := range candidates {
		scored[i] = e.scorer.score(p, userID, sig, maxEng, maxAff)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].PostID > scored[j].PostID
	})

	ids := make([]int64, 0, min(n, len(scored)))
	for len(ids) < n && len(scored) > 0 {
		idx := 0
		if e.rng.Float64() >= e.recProb {
			idx = e.rng.IntN(len(scored))
		}
		ids = append(ids, scored[idx].PostID)
		scored = append(scored[:idx], scored[idx+1:]...)
	}
	return ids
}

// newest returns the last count posts (all when count exceeds the total).
func newest(posts []model.Post, count int) []model.Post {
	if count <= 0 {
		return nil
	}
	if count >= len(posts) {
		return posts
	}
	return posts[len(posts)-count:]
}

// union returns the posts whose IDs appear in prev, followed by fresh,
// without duplicates. Previously cached IDs that no longer exist are
// dropped.
func union(all []model.Post, prev []int64, fresh []model.Post) []model.Post {
	byID := make(map[int64]model.Post, len(all))
	for _, p := range all {
		byID[p.PostID] = p
	}
	out := make([]model.Post, 0, len(prev)+len(fresh))
	added := make(map[int64]bool, len(prev)+len(fresh))
	for _, id := range prev {
		if p, ok := byID[id]; ok && !added[id] {
			out = append(out, p)
			added[id] = true
		}
	}
	for _, p := range fresh {
		if !added[p.PostID] {
			out = append(out, p)
			added[p.PostID] = true
		}
	}
	return out
}
