// Package model defines the platform's persisted row types.
//
// These types are shared by the store, the platform handlers and the
// recommendation engine. They carry no behavior beyond small helpers.
package model

import (
	"github.com/roach88/agora/internal/clock"
)

// User is a registered account. UserID equals the owning agent's ID.
type User struct {
	UserID        int64       `json:"user_id"`
	AgentID       int64       `json:"agent_id"`
	UserName      string      `json:"user_name"`
	Name          string      `json:"name"`
	Bio           string      `json:"bio"`
	CreatedAt     clock.Stamp `json:"created_at"`
	NumFollowings int64       `json:"num_followings"`
	NumFollowers  int64       `json:"num_followers"`
}

// Post is a top-level post or a repost. Reposts copy content with a
// "user{id} repost from user{author}. original_post: " prefix.
type Post struct {
	PostID      int64       `json:"post_id"`
	UserID      int64       `json:"user_id"`
	Content     string      `json:"content"`
	CreatedAt   clock.Stamp `json:"created_at"`
	NumLikes    int64       `json:"num_likes"`
	NumDislikes int64       `json:"num_dislikes"`
}

// Score is likes minus dislikes.
func (p Post) Score() int64 { return p.NumLikes - p.NumDislikes }

// Comment belongs to exactly one post.
type Comment struct {
	CommentID   int64       `json:"comment_id"`
	PostID      int64       `json:"post_id"`
	UserID      int64       `json:"user_id"`
	Content     string      `json:"content"`
	CreatedAt   clock.Stamp `json:"created_at"`
	NumLikes    int64       `json:"num_likes"`
	NumDislikes int64       `json:"num_dislikes"`
}

// Score is likes minus dislikes.
func (c Comment) Score() int64 { return c.NumLikes - c.NumDislikes }

// TraceEntry is one audit record of an accepted action. Info holds the
// action's JSON-encoded details.
type TraceEntry struct {
	UserID    int64       `json:"user_id"`
	CreatedAt clock.Stamp `json:"created_at"`
	Action    string      `json:"action"`
	Info      string      `json:"info"`
}

// Product is a purchasable item with a running sales count.
type Product struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Sales       int64  `json:"sales"`
}

// RecCache maps a user to the post IDs recommended to them.
type RecCache map[int64][]int64
