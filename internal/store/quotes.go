package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// QuoteRecord is a client's persisted quote document.
type QuoteRecord struct {
	ID        string
	StoreID   string
	ClientID  string
	Document  json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// QuoteFilter narrows ListQuotes.
type QuoteFilter struct {
	// Search matches client ids containing the text, case-insensitively.
	Search string
	Limit  int
}

const quoteColumns = `id, store_id, client_id, document, created_at, updated_at`

// PutQuote creates or replaces the quote document of a client.
func (s *Store) PutQuote(ctx context.Context, storeID, clientID string, document []byte) (*QuoteRecord, error) {
	if !json.Valid(document) {
		return nil, eris.New("store: quote document is not valid JSON")
	}
	now := formatTime(s.now())

	_, err := s.q().ExecContext(ctx, `
		INSERT INTO quotes (id, store_id, client_id, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (store_id, client_id) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at
	`, uuid.New().String(), storeID, clientID, string(document), now, now)
	if err != nil {
		return nil, eris.Wrapf(err, "store: put quote %s", clientID)
	}
	return s.GetQuote(ctx, storeID, clientID)
}

// GetQuote returns the quote of a client or ErrNotFound.
func (s *Store) GetQuote(ctx context.Context, storeID, clientID string) (*QuoteRecord, error) {
	row := s.q().QueryRowContext(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE store_id = ? AND client_id = ?`, storeID, clientID)
	return scanQuote(row)
}

// ListQuotes returns the most recently updated quotes first.
func (s *Store) ListQuotes(ctx context.Context, storeID string, filter QuoteFilter) ([]QuoteRecord, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE store_id = ?`
	args := []any{storeID}

	if search := strings.TrimSpace(filter.Search); search != "" {
		query += ` AND lower(client_id) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(search))+"%")
	}
	query += ` ORDER BY updated_at DESC, client_id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list quotes")
	}
	defer rows.Close()

	var out []QuoteRecord
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate quotes")
}

// DeleteQuote removes a client's quote.
func (s *Store) DeleteQuote(ctx context.Context, storeID, clientID string) error {
	res, err := s.q().ExecContext(ctx, `DELETE FROM quotes WHERE store_id = ? AND client_id = ?`, storeID, clientID)
	if err != nil {
		return eris.Wrapf(err, "store: delete quote %s", clientID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "store: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "store: quote %s", clientID)
	}
	return nil
}

func scanQuote(row scannable) (*QuoteRecord, error) {
	var q QuoteRecord
	var doc, created, updated string
	err := row.Scan(&q.ID, &q.StoreID, &q.ClientID, &doc, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "store: quote")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan quote")
	}
	q.Document = json.RawMessage(doc)

	if q.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if q.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &q, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
