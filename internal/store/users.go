package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// User is a person allowed to sign in on behalf of a company.
type User struct {
	ID           string
	StoreID      string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser inserts u. A duplicate e-mail returns ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u User) (*User, error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = s.now()

	_, err := s.q().ExecContext(ctx,
		`INSERT INTO users (id, store_id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.StoreID, u.Email, u.Name, u.PasswordHash, formatTime(u.CreatedAt),
	)
	if isUniqueViolation(err) {
		return nil, eris.Wrapf(ErrConflict, "store: e-mail %s already registered", u.Email)
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: insert user")
	}
	return &u, nil
}

// UserByEmail returns the user with email (case-insensitive).
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	var created string
	err := s.q().QueryRowContext(ctx,
		`SELECT id, store_id, email, name, password_hash, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&u.ID, &u.StoreID, &u.Email, &u.Name, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "store: user")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan user")
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &u, nil
}
