package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/roach88/agora/internal/model"
)

// ReplaceRecs deletes every rec row and inserts cache in one transaction.
// Users are written in ascending ID order so the table is reproducible.
func (s *Store) ReplaceRecs(ctx context.Context, cache model.RecCache) error {
	users := make([]int64, 0, len(cache))
	for u := range cache {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	var rows [][]any
	for _, u := range users {
		for _, p := range cache[u] {
			rows = append(rows, []any{u, p})
		}
	}

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM rec`); err != nil {
			return fmt.Errorf("clear rec: %w", err)
		}
		if err := execMany(ctx, tx, `INSERT OR IGNORE INTO rec (user_id, post_id) VALUES (?, ?)`, rows); err != nil {
			return fmt.Errorf("insert rec: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace recs: %w", err)
	}
	return nil
}

// Recs returns the post IDs cached for userID in insertion order.
func (s *Store) Recs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT post_id FROM rec WHERE user_id = ? ORDER BY rowid ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("read recs: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("read recs: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read recs: %w", err)
	}
	return ids, nil
}

// AllRecs returns the whole cache.
func (s *Store) AllRecs(ctx context.Context) (model.RecCache, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, post_id FROM rec ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("read recs: %w", err)
	}
	defer rows.Close()

	cache := model.RecCache{}
	for rows.Next() {
		var u, p int64
		if err := rows.Scan(&u, &p); err != nil {
			return nil, fmt.Errorf("read recs: %w", err)
		}
		cache[u] = append(cache[u], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read recs: %w", err)
	}
	return cache, nil
}
