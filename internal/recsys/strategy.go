// Package recsys builds the per-user recommendation cache.
//
// Recommend is a pure function of its Input and the engine's random source:
// it reads no store and has no side effects. The platform persists the
// result by replacing the rec table wholesale.
package recsys

import (
	"fmt"
	"strings"
)

// Strategy selects how posts are chosen for each user.
type Strategy string

const (
	// Random samples posts uniformly.
	Random Strategy = "random"

	// Personalized blends trace-derived scores with random exploration.
	Personalized Strategy = "personalized"

	// Incremental is Personalized restricted to the newest posts plus each
	// user's previous cache row.
	Incremental Strategy = "incremental"

	// Trending ranks by like count only. Used when no follow graph is
	// modeled.
	Trending Strategy = "trending"
)

// ParseStrategy validates a strategy name. "twitter" and "reddit" are
// accepted as aliases for Personalized and Trending.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "random":
		return Random, nil
	case "personalized", "twitter":
		return Personalized, nil
	case "incremental":
		return Incremental, nil
	case "trending", "reddit":
		return Trending, nil
	default:
		return "", fmt.Errorf("unknown recsys strategy %q", s)
	}
}

// ModelsFollowGraph reports whether feeds include followee posts under
// this strategy.
func (s Strategy) ModelsFollowGraph() bool {
	return s != Trending
}
