package recsys

import (
	"encoding/json"
	"math"

	"github.com/roach88/agora/internal/model"
)

// ScorerConfig configures the personalized scorer.
type ScorerConfig struct {
	// Weight for post engagement (likes minus dislikes plus traced
	// interactions, log-scaled)
	EngagementWeight float64

	// Weight for recency
	RecencyWeight float64

	// Weight for the user's affinity to the post's author
	AffinityWeight float64

	// RecencyHalfLife is the number of newer posts after which a post's
	// recency score is halved
	RecencyHalfLife float64
}

// DefaultScorerConfig returns the default weights.
// Weights: Engagement 40%, Recency 30%, Affinity 30%
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		EngagementWeight: 0.4,
		RecencyWeight:    0.3,
		AffinityWeight:   0.3,
		RecencyHalfLife:  50,
	}
}

// Scorer ranks posts for one user from the trace log.
type Scorer struct {
	config ScorerConfig
}

// NewScorer normalizes the weights so they sum to 1.
func NewScorer(config ScorerConfig) *Scorer {
	total := config.EngagementWeight + config.RecencyWeight + config.AffinityWeight
	if total <= 0 {
		config = DefaultScorerConfig()
	} else if total != 1.0 {
		config.EngagementWeight /= total
		config.RecencyWeight /= total
		config.AffinityWeight /= total
	}
	if config.RecencyHalfLife <= 0 {
		config.RecencyHalfLife = DefaultScorerConfig().RecencyHalfLife
	}
	return &Scorer{config: config}
}

// ScoredPost is a post with its score and component scores.
type ScoredPost struct {
	PostID int64
	Score  float64

	EngagementScore float64
	RecencyScore    float64
	AffinityScore   float64
}

// signals is the trace log digested once per Recommend call.
type signals struct {
	// traced interactions per post across all users
	engagement map[int64]int
	// per-user interaction counts with each author
	affinity map[int64]map[int64]int
	// per-user post IDs already engaged with
	engaged map[int64][]int64
	// creation rank of each post (0 = oldest)
	rank   map[int64]int
	newest int
	author map[int64]int64
}

// engagingActions lists trace actions that count as interest in a post or
// author.
var engagingActions = map[string]bool{
	"like_post":      true,
	"repost":         true,
	"create_comment": true,
	"like_comment":   true,
	"follow":         true,
}

// traceInfo is the subset of trace info the scorer reads. A repost credits
// the original post rather than the new copy.
type traceInfo struct {
	PostID         *int64 `json:"post_id"`
	OriginalPostID *int64 `json:"original_post_id"`
	FolloweeID     *int64 `json:"followee_id"`
}

func (t traceInfo) subject() *int64 {
	if t.OriginalPostID != nil {
		return t.OriginalPostID
	}
	return t.PostID
}

func digest(posts []model.Post, trace []model.TraceEntry) *signals {
	sig := &signals{
		engagement: make(map[int64]int),
		affinity:   make(map[int64]map[int64]int),
		engaged:    make(map[int64][]int64),
		rank:       make(map[int64]int, len(posts)),
		author:     make(map[int64]int64, len(posts)),
	}
	for i, p := range posts {
		sig.rank[p.PostID] = i
		sig.author[p.PostID] = p.UserID
	}
	sig.newest = len(posts) - 1

	for _, entry := range trace {
		if !engagingActions[entry.Action] {
			continue
		}
		var info traceInfo
		if err := json.Unmarshal([]byte(entry.Info), &info); err != nil {
			continue
		}

		var author int64
		switch {
		case info.FolloweeID != nil:
			author = *info.FolloweeID
		case info.subject() != nil:
			pid := *info.subject()
			a, ok := sig.author[pid]
			if !ok {
				continue
			}
			author = a
			sig.engagement[pid]++
			sig.engaged[entry.UserID] = append(sig.engaged[entry.UserID], pid)
		default:
			continue
		}

		if sig.affinity[entry.UserID] == nil {
			sig.affinity[entry.UserID] = make(map[int64]int)
		}
		sig.affinity[entry.UserID][author]++
	}
	return sig
}

// score computes the weighted score of post for userID. maxEngagement and
// maxAffinity normalize the raw components into [0, 1].
func (s *Scorer) score(p model.Post, userID int64, sig *signals, maxEngagement, maxAffinity float64) ScoredPost {
	sp := ScoredPost{PostID: p.PostID}

	raw := float64(p.Score()) + float64(sig.engagement[p.PostID])
	if raw > 0 && maxEngagement > 0 {
		sp.EngagementScore = math.Log1p(raw) / math.Log1p(maxEngagement)
	}

	age := float64(sig.newest - sig.rank[p.PostID])
	sp.RecencyScore = math.Pow(0.5, age/s.config.RecencyHalfLife)

	if maxAffinity > 0 {
		sp.AffinityScore = float64(sig.affinity[userID][p.UserID]) / maxAffinity
	}

	sp.Score = sp.EngagementScore*s.config.EngagementWeight +
		sp.RecencyScore*s.config.RecencyWeight +
		sp.AffinityScore*s.config.AffinityWeight
	return sp
}

func maxEngagement(posts []model.Post, sig *signals) float64 {
	var m float64
	for _, p := range posts {
		if v := float64(p.Score()) + float64(sig.engagement[p.PostID]); v > m {
			m = v
		}
	}
	return m
}

func maxAffinity(userID int64, sig *signals) float64 {
	var m float64
	for _, n := range sig.affinity[userID] {
		if float64(n) > m {
			m = float64(n)
		}
	}
	return m
}
