package store

import (
	"context"
	"fmt"

	"github.com/roach88/agora/internal/clock"
)

// Edge names a directed social relation.
type Edge int

const (
	Follow Edge = iota + 1
	Mute
)

type edgeTable struct {
	table string
	key   string
	from  string
	to    string
}

var edgeTables = map[Edge]edgeTable{
	Follow: {"follow", "follow_id", "follower_id", "followee_id"},
	Mute:   {"mute", "mute_id", "muter_id", "mutee_id"},
}

func (e Edge) table() (edgeTable, error) {
	t, ok := edgeTables[e]
	if !ok {
		return edgeTable{}, fmt.Errorf("unknown edge relation %d", e)
	}
	return t, nil
}

// String returns the relation's table name.
func (e Edge) String() string {
	if t, ok := edgeTables[e]; ok {
		return t.table
	}
	return fmt.Sprintf("Edge(%d)", e)
}

// FindEdge returns the surrogate key of the from→to edge.
// Returns ErrNotFound when the edge is absent.
func (s *Store) FindEdge(ctx context.Context, e Edge, from, to int64) (int64, error) {
	t, err := e.table()
	if err != nil {
		return 0, err
	}
	var id int64
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ? AND %s = ?`, t.key, t.table, t.from, t.to)
	if err := s.db.QueryRowContext(ctx, query, from, to).Scan(&id); err != nil {
		return 0, fmt.Errorf("find %s: %w", e, notFound(err))
	}
	return id, nil
}

// AddEdge inserts the from→to edge. For Follow it also increments the
// follower's num_followings and the followee's num_followers.
func (s *Store) AddEdge(ctx context.Context, e Edge, from, to int64, at clock.Stamp) (int64, error) {
	t, err := e.table()
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s, created_at) VALUES (?, ?, ?)`, t.table, t.from, t.to)
	res, err := s.db.ExecContext(ctx, query, from, to, at)
	if err != nil {
		return 0, fmt.Errorf("add %s: %w", e, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add %s: %w", e, err)
	}
	if e == Follow {
		if err := s.adjustFollowCounts(ctx, from, to, 1); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// RemoveEdge deletes edge edgeID between from and to. For Follow it also
// decrements both endpoint counters.
func (s *Store) RemoveEdge(ctx context.Context, e Edge, edgeID, from, to int64) error {
	t, err := e.table()
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, t.table, t.key)
	if _, err := s.db.ExecContext(ctx, query, edgeID); err != nil {
		return fmt.Errorf("remove %s: %w", e, err)
	}
	if e == Follow {
		return s.adjustFollowCounts(ctx, from, to, -1)
	}
	return nil
}

func (s *Store) adjustFollowCounts(ctx context.Context, follower, followee, delta int64) error {
	if err := s.adjustCounter(ctx, "user", "user_id", "num_followings", follower, delta); err != nil {
		return err
	}
	return s.adjustCounter(ctx, "user", "user_id", "num_followers", followee, delta)
}
