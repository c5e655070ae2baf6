package store

import (
	"context"
	"fmt"

	"github.com/roach88/agora/internal/clock"
)

// Rating names one of the four rating relations.
type Rating int

const (
	PostLike Rating = iota + 1
	PostDislike
	CommentLike
	CommentDislike
)

// ratingTable describes where a rating relation lives and which counter on
// its subject it maintains.
type ratingTable struct {
	table   string // relation table
	key     string // surrogate key column
	subject string // subject FK column (post_id or comment_id)
	parent  string // subject table
	counter string // counter column on the subject
}

var ratingTables = map[Rating]ratingTable{
	PostLike:       {`"like"`, "like_id", "post_id", "post", "num_likes"},
	PostDislike:    {"dislike", "dislike_id", "post_id", "post", "num_dislikes"},
	CommentLike:    {"comment_like", "comment_like_id", "comment_id", "comment", "num_likes"},
	CommentDislike: {"comment_dislike", "comment_dislike_id", "comment_id", "comment", "num_dislikes"},
}

func (r Rating) table() (ratingTable, error) {
	t, ok := ratingTables[r]
	if !ok {
		return ratingTable{}, fmt.Errorf("unknown rating relation %d", r)
	}
	return t, nil
}

// String returns the relation's table name.
func (r Rating) String() string {
	t, ok := ratingTables[r]
	if !ok {
		return fmt.Sprintf("Rating(%d)", r)
	}
	return t.table
}

// FindRating returns the surrogate key of userID's rating on subjectID.
// Returns ErrNotFound when no such row exists.
func (s *Store) FindRating(ctx context.Context, r Rating, userID, subjectID int64) (int64, error) {
	t, err := r.table()
	if err != nil {
		return 0, err
	}
	var id int64
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = ? AND %s = ?`, t.key, t.table, t.subject)
	if err := s.db.QueryRowContext(ctx, query, userID, subjectID).Scan(&id); err != nil {
		return 0, fmt.Errorf("find %s: %w", r, notFound(err))
	}
	return id, nil
}

// AddRating inserts a rating row and increments the subject's counter.
// The two statements run separately; the platform's single writer keeps
// them consistent.
func (s *Store) AddRating(ctx context.Context, r Rating, userID, subjectID int64, at clock.Stamp) (int64, error) {
	t, err := r.table()
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`INSERT INTO %s (user_id, %s, created_at) VALUES (?, ?, ?)`, t.table, t.subject)
	res, err := s.db.ExecContext(ctx, query, userID, subjectID, at)
	if err != nil {
		return 0, fmt.Errorf("add %s: %w", r, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add %s: %w", r, err)
	}
	if err := s.adjustCounter(ctx, t.parent, t.subject, t.counter, subjectID, 1); err != nil {
		return 0, err
	}
	return id, nil
}

// RemoveRating deletes the rating row ratingID and decrements the subject's
// counter.
func (s *Store) RemoveRating(ctx context.Context, r Rating, ratingID, subjectID int64) error {
	t, err := r.table()
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, t.table, t.key)
	if _, err := s.db.ExecContext(ctx, query, ratingID); err != nil {
		return fmt.Errorf("remove %s: %w", r, err)
	}
	return s.adjustCounter(ctx, t.parent, t.subject, t.counter, subjectID, -1)
}

// SubjectAuthor returns the author of the rated post or comment.
// Returns ErrNotFound when the subject does not exist.
func (s *Store) SubjectAuthor(ctx context.Context, r Rating, subjectID int64) (int64, error) {
	t, err := r.table()
	if err != nil {
		return 0, err
	}
	var author int64
	query := fmt.Sprintf(`SELECT user_id FROM %s WHERE %s = ?`, t.parent, t.subject)
	if err := s.db.QueryRowContext(ctx, query, subjectID).Scan(&author); err != nil {
		return 0, fmt.Errorf("read %s %d: %w", t.parent, subjectID, notFound(err))
	}
	return author, nil
}
