package store

import (
	"context"
	"fmt"

	"github.com/roach88/agora/internal/model"
)

const userColumns = `user_id, agent_id, user_name, name, bio, created_at, num_followings, num_followers`

// CreateUser inserts a user row. UserID must already be set (it equals the
// agent ID).
func (s *Store) CreateUser(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user (user_id, agent_id, user_name, name, bio, created_at, num_followings, num_followers)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0)
	`, u.UserID, u.AgentID, u.UserName, u.Name, u.Bio, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// User reads one user. Returns ErrNotFound when absent.
func (s *Store) User(ctx context.Context, userID int64) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM user WHERE user_id = ?`, userID)
	u, err := scanUser(row)
	if err != nil {
		return model.User{}, fmt.Errorf("read user %d: %w", userID, notFound(err))
	}
	return u, nil
}

// Users reads every user ordered by user_id.
func (s *Store) Users(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM user ORDER BY user_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("read users: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}
	return users, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(sc scanner) (model.User, error) {
	var u model.User
	err := sc.Scan(&u.UserID, &u.AgentID, &u.UserName, &u.Name, &u.Bio, &u.CreatedAt, &u.NumFollowings, &u.NumFollowers)
	return u, err
}
