package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"gatherly/internal/model"
)

const uniqueViolation = "23505"

func (r *repository) CreateUser(ctx context.Context, u *model.User) (int64, error) {
	query := `
		INSERT INTO users (first_name, last_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		u.FirstName, u.LastName, u.Email, u.PasswordHash,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	return id, nil
}

func (r *repository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT user_id, first_name, last_name, email, password_hash
		FROM users WHERE user_id = $1
	`

	var u model.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT user_id, first_name, last_name, email, password_hash
		FROM users WHERE email = $1
	`

	var u model.User
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

func (r *repository) GetUserByToken(ctx context.Context, token string) (*model.User, error) {
	query := `
		SELECT u.user_id, u.first_name, u.last_name, u.email, u.password_hash
		FROM users u
		JOIN sessions s ON s.user_id = u.user_id
		WHERE s.token = $1
	`

	var u model.User
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get user by token: %w", err)
	}
	return &u, nil
}

func (r *repository) SessionForUser(ctx context.Context, userID int64) (*model.Session, error) {
	query := `
		SELECT token, user_id, created_at
		FROM sessions WHERE user_id = $1
	`

	var s model.Session
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.Token, &s.UserID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session for user: %w", err)
	}
	return &s, nil
}

func (r *repository) CreateSession(ctx context.Context, s *model.Session) error {
	query := `
		INSERT INTO sessions (token, user_id, created_at)
		VALUES ($1, $2, NOW())
	`

	if _, err := r.db.ExecContext(ctx, query, s.Token, s.UserID); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (r *repository) DeleteSession(ctx context.Context, token string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted session: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}
