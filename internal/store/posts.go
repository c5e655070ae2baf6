package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/model"
)

const postColumns = `post_id, user_id, content, created_at, num_likes, num_dislikes`

// CreatePost inserts a post and returns its ID. numLikes seeds the like
// counter (reposts inherit the original's count).
func (s *Store) CreatePost(ctx context.Context, userID int64, content string, at clock.Stamp, numLikes int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO post (user_id, content, created_at, num_likes, num_dislikes)
		VALUES (?, ?, ?, ?, 0)
	`, userID, content, at, numLikes)
	if err != nil {
		return 0, fmt.Errorf("create post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create post: %w", err)
	}
	return id, nil
}

// Post reads one post. Returns ErrNotFound when absent.
func (s *Store) Post(ctx context.Context, postID int64) (model.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM post WHERE post_id = ?`, postID)
	p, err := scanPost(row)
	if err != nil {
		return model.Post{}, fmt.Errorf("read post %d: %w", postID, notFound(err))
	}
	return p, nil
}

// HasPostContaining reports whether userID authored a post whose content
// contains fragment. Used to detect duplicate reposts.
func (s *Store) HasPostContaining(ctx context.Context, userID int64, fragment string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM post WHERE user_id = ? AND instr(content, ?) > 0
	`, userID, fragment).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check repost: %w", err)
	}
	return n > 0, nil
}

// Posts reads every post ordered by post_id.
func (s *Store) Posts(ctx context.Context) ([]model.Post, error) {
	return s.queryPosts(ctx, "read posts", `SELECT `+postColumns+` FROM post ORDER BY post_id ASC`)
}

// PostsByID reads the given posts, preserving the order of ids. Missing IDs
// are skipped.
func (s *Store) PostsByID(ctx context.Context, ids []int64) ([]model.Post, error) {
	if len(ids) == 0 {
		return []model.Post{}, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + postColumns + ` FROM post WHERE post_id IN (` + placeholders(len(ids)) + `)`
	found, err := s.queryPosts(ctx, "read posts by id", query, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]model.Post, len(found))
	for _, p := range found {
		byID[p.PostID] = p
	}
	posts := make([]model.Post, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			posts = append(posts, p)
			delete(byID, id)
		}
	}
	return posts, nil
}

// FolloweePosts returns up to limit posts authored by accounts userID
// follows, most-liked first.
func (s *Store) FolloweePosts(ctx context.Context, userID int64, limit int) ([]model.Post, error) {
	return s.queryPosts(ctx, "read followee posts", `
		SELECT p.post_id, p.user_id, p.content, p.created_at, p.num_likes, p.num_dislikes
		FROM post p
		JOIN follow f ON f.followee_id = p.user_id
		WHERE f.follower_id = ?
		ORDER BY p.num_likes DESC, p.post_id DESC
		LIMIT ?
	`, userID, limit)
}

// TrendingPosts returns up to limit posts created at or after since,
// most-liked first.
func (s *Store) TrendingPosts(ctx context.Context, since clock.Stamp, limit int) ([]model.Post, error) {
	return s.queryPosts(ctx, "read trending posts", `
		SELECT `+postColumns+`
		FROM post
		WHERE created_at >= ?
		ORDER BY num_likes DESC, post_id DESC
		LIMIT ?
	`, since, limit)
}

// LatestPostCount returns how many posts share the newest created_at.
// Zero means there are no posts.
func (s *Store) LatestPostCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM post
		WHERE created_at = (SELECT MAX(created_at) FROM post)
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count latest posts: %w", err)
	}
	return n, nil
}

// adjustCounter adds delta to a counter column of one row.
func (s *Store) adjustCounter(ctx context.Context, table, key, column string, id, delta int64) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = %s + ? WHERE %s = ?`, table, column, column, key)
	if _, err := s.db.ExecContext(ctx, query, delta, id); err != nil {
		return fmt.Errorf("adjust %s.%s: %w", table, column, err)
	}
	return nil
}

func (s *Store) queryPosts(ctx context.Context, op, query string, args ...any) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	return collectPosts(op, rows)
}

func collectPosts(op string, rows *sql.Rows) ([]model.Post, error) {
	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return posts, nil
}

func scanPost(sc scanner) (model.Post, error) {
	var p model.Post
	err := sc.Scan(&p.PostID, &p.UserID, &p.Content, &p.CreatedAt, &p.NumLikes, &p.NumDislikes)
	return p, err
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
