package store

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/agora/internal/model"
)

// SearchPosts returns posts whose content, post ID or author ID contains
// query, compared with Unicode case folding. Results are in post_id order.
func (s *Store) SearchPosts(ctx context.Context, query string) ([]model.Post, error) {
	posts, err := s.Posts(ctx)
	if err != nil {
		return nil, err
	}

	m := newMatcher(query)
	matches := []model.Post{}
	for _, p := range posts {
		if m.any(p.Content, strconv.FormatInt(p.PostID, 10), strconv.FormatInt(p.UserID, 10)) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// SearchUsers returns users whose user_name, name, bio or user ID contains
// query, compared with Unicode case folding.
func (s *Store) SearchUsers(ctx context.Context, query string) ([]model.User, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}

	m := newMatcher(query)
	matches := []model.User{}
	for _, u := range users {
		if m.any(u.UserName, u.Name, u.Bio, strconv.FormatInt(u.UserID, 10)) {
			matches = append(matches, u)
		}
	}
	return matches, nil
}

// matcher folds once per search. A cases.Caser is stateful, so each
// search gets its own.
type matcher struct {
	fold   cases.Caser
	needle string
}

func newMatcher(query string) *matcher {
	fold := cases.Fold()
	return &matcher{fold: fold, needle: fold.String(query)}
}

func (m *matcher) any(fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(m.fold.String(f), m.needle) {
			return true
		}
	}
	return false
}
