// Package store persists companies, their pricing catalogs and client quotes
// in SQLite. Every query is scoped by store id.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("store: conflict")
)

// Store implements persistence on top of a migrated SQLite database. A Store
// handed out by WithTx runs every call inside that transaction.
type Store struct {
	db  *sql.DB
	tx  *sql.Tx
	now func() time.Time
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// WithTx runs fn against a Store bound to a single transaction, committing
// when fn returns nil and rolling back otherwise. Calls made on a Store that
// is already bound join its transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: begin")
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Store{db: s.db, tx: tx, now: s.now}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "store: commit")
	}
	return nil
}

// txn is a write transaction that may belong to an enclosing WithTx.
type txn struct {
	*sql.Tx
	joined bool
}

func (s *Store) begin(ctx context.Context) (*txn, error) {
	if s.tx != nil {
		return &txn{Tx: s.tx, joined: true}, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txn{Tx: tx}, nil
}

// Commit commits unless the enclosing WithTx owns the transaction.
func (t *txn) Commit() error {
	if t.joined {
		return nil
	}
	return t.Tx.Commit()
}

func (t *txn) rollback() {
	if !t.joined {
		_ = t.Tx.Rollback()
	}
}

// New wraps an open database. The schema must already be migrated.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// SetClock replaces the time source used for stored timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = func() time.Time { return now().UTC() }
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type scannable interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "store: parse time %q", raw)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
