// Package users manages accounts, passwords and access tokens.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/portfolio-manager/internal/domain"
	"github.com/rs/zerolog"
)

const usersColumns = `id, username, email, password_hash, first_name, last_name, phone, created_at, updated_at`

// Repository stores users in portfolio.db and implements domain.UserLookup
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a new user repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "user").Logger(),
	}
}

// ByID returns the user, or nil when absent
func (r *Repository) ByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.queryOne(ctx, "SELECT "+usersColumns+" FROM users WHERE id = ?", id)
}

// ByUsername returns the user, or nil when absent
func (r *Repository) ByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.queryOne(ctx, "SELECT "+usersColumns+" FROM users WHERE username = ?", username)
}

// ByEmail returns the user, or nil when absent
func (r *Repository) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.queryOne(ctx, "SELECT "+usersColumns+" FROM users WHERE email = ?", email)
}

// List returns all users ordered by ID
func (r *Repository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+usersColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// Create inserts the user and sets ID and timestamps
func (r *Repository) Create(ctx context.Context, u *domain.User) error {
	now := r.now().UTC().Truncate(time.Second)

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, first_name, last_name, phone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone, now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user id: %w", err)
	}

	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	r.log.Info().Int64("user_id", id).Str("username", u.Username).Msg("User created")
	return nil
}

// Update writes the mutable profile fields and the password hash
func (r *Repository) Update(ctx context.Context, u *domain.User) error {
	now := r.now().UTC().Truncate(time.Second)

	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, phone = ?, password_hash = ?, updated_at = ?
		WHERE id = ?`,
		u.FirstName, u.LastName, u.Phone, u.PasswordHash, now.Unix(), u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	u.UpdatedAt = now
	return nil
}

// Delete removes the user. Owned rows go with it via ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	r.log.Info().Int64("user_id", id).Msg("User deleted")
	return nil
}

func (r *Repository) queryOne(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var createdAt, updatedAt int64
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.Phone, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &u, nil
}
