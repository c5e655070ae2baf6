package store

import (
	"context"
	"fmt"

	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/model"
)

const commentColumns = `comment_id, post_id, user_id, content, created_at, num_likes, num_dislikes`

// CreateComment inserts a comment on postID and returns its ID.
func (s *Store) CreateComment(ctx context.Context, postID, userID int64, content string, at clock.Stamp) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO comment (post_id, user_id, content, created_at, num_likes, num_dislikes)
		VALUES (?, ?, ?, ?, 0, 0)
	`, postID, userID, content, at)
	if err != nil {
		return 0, fmt.Errorf("create comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create comment: %w", err)
	}
	return id, nil
}

// Comment reads one comment. Returns ErrNotFound when absent.
func (s *Store) Comment(ctx context.Context, commentID int64) (model.Comment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comment WHERE comment_id = ?`, commentID)
	c, err := scanComment(row)
	if err != nil {
		return model.Comment{}, fmt.Errorf("read comment %d: %w", commentID, notFound(err))
	}
	return c, nil
}

// CommentsByPost groups the comments of the given posts by post ID, each
// thread in creation order.
func (s *Store) CommentsByPost(ctx context.Context, postIDs []int64) (map[int64][]model.Comment, error) {
	threads := make(map[int64][]model.Comment, len(postIDs))
	if len(postIDs) == 0 {
		return threads, nil
	}

	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commentColumns+`
		FROM comment
		WHERE post_id IN (`+placeholders(len(postIDs))+`)
		ORDER BY comment_id ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("read comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("read comments: %w", err)
		}
		threads[c.PostID] = append(threads[c.PostID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read comments: %w", err)
	}
	return threads, nil
}

func scanComment(sc scanner) (model.Comment, error) {
	var c model.Comment
	err := sc.Scan(&c.CommentID, &c.PostID, &c.UserID, &c.Content, &c.CreatedAt, &c.NumLikes, &c.NumDislikes)
	return c, err
}
