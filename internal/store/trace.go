package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/model"
)

// AppendTrace records one accepted action. info is JSON-encoded; a nil info
// is stored as an empty object.
func (s *Store) AppendTrace(ctx context.Context, userID int64, at clock.Stamp, action string, info any) error {
	encoded := "{}"
	if info != nil {
		b, err := json.Marshal(info)
		if err != nil {
			return fmt.Errorf("append trace: marshal info: %w", err)
		}
		encoded = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trace (user_id, created_at, action, info)
		VALUES (?, ?, ?, ?)
	`, userID, at, action, encoded)
	if err != nil {
		return fmt.Errorf("append trace: %w", err)
	}
	return nil
}

// TraceFilter narrows ReadTrace. Zero values match everything.
type TraceFilter struct {
	UserID  int64
	HasUser bool
	Actions []string
	Limit   int
}

// ReadTrace returns trace entries in insertion order.
func (s *Store) ReadTrace(ctx context.Context, f TraceFilter) ([]model.TraceEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.HasUser {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if len(f.Actions) > 0 {
		where = append(where, "action IN ("+placeholders(len(f.Actions))+")")
		for _, a := range f.Actions {
			args = append(args, a)
		}
	}

	query := `SELECT user_id, created_at, action, info FROM trace`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	defer rows.Close()

	entries := []model.TraceEntry{}
	for rows.Next() {
		var e model.TraceEntry
		if err := rows.Scan(&e.UserID, &e.CreatedAt, &e.Action, &e.Info); err != nil {
			return nil, fmt.Errorf("read trace: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return entries, nil
}

// CountTrace returns the number of trace rows for action (all actions when
// empty).
func (s *Store) CountTrace(ctx context.Context, action string) (int, error) {
	var (
		n   int
		err error
	)
	if action == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trace`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trace WHERE action = ?`, action).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count trace: %w", err)
	}
	return n, nil
}
