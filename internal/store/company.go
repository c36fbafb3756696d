package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Subscription states stored on a company.
const (
	SubscriptionTrial    = "trial"
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
)

// Company is a registered store (tenant).
type Company struct {
	ID                 string
	Name               string
	CNPJ               string
	Phone              string
	OwnerName          string
	OwnerEmail         string
	SubscriptionStatus string
	TrialEndsAt        time.Time
	SubscriptionEndsAt time.Time
	CreatedAt          time.Time
}

const companyColumns = `id, name, cnpj, phone, owner_name, owner_email, subscription_status, trial_ends_at, subscription_ends_at, created_at`

// CreateCompany inserts c, assigning an id when empty. A duplicate CNPJ returns ErrConflict.
func (s *Store) CreateCompany(ctx context.Context, c Company) (*Company, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.SubscriptionStatus == "" {
		c.SubscriptionStatus = SubscriptionTrial
	}
	c.CreatedAt = s.now()

	_, err := s.q().ExecContext(ctx,
		`INSERT INTO stores (`+companyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.CNPJ, c.Phone, c.OwnerName, c.OwnerEmail, c.SubscriptionStatus,
		formatTime(c.TrialEndsAt), formatTime(c.SubscriptionEndsAt), formatTime(c.CreatedAt),
	)
	if isUniqueViolation(err) {
		return nil, eris.Wrapf(ErrConflict, "store: cnpj %s already registered", c.CNPJ)
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: insert company")
	}
	return &c, nil
}

// GetCompany returns the company with id.
func (s *Store) GetCompany(ctx context.Context, id string) (*Company, error) {
	row := s.q().QueryRowContext(ctx, `SELECT `+companyColumns+` FROM stores WHERE id = ?`, id)
	return scanCompany(row)
}

// CompanyByCNPJ returns the company registered with cnpj (digits only).
func (s *Store) CompanyByCNPJ(ctx context.Context, cnpj string) (*Company, error) {
	row := s.q().QueryRowContext(ctx, `SELECT `+companyColumns+` FROM stores WHERE cnpj = ?`, cnpj)
	return scanCompany(row)
}

// UpdateSubscription records a subscription state change.
func (s *Store) UpdateSubscription(ctx context.Context, id, status string, endsAt time.Time) error {
	res, err := s.q().ExecContext(ctx,
		`UPDATE stores SET subscription_status = ?, subscription_ends_at = ? WHERE id = ?`,
		status, formatTime(endsAt), id,
	)
	if err != nil {
		return eris.Wrapf(err, "store: update subscription %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "store: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "store: company %s", id)
	}
	return nil
}

// ListCompanies returns every company ordered by creation time.
func (s *Store) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := s.q().QueryContext(ctx, `SELECT `+companyColumns+` FROM stores ORDER BY created_at, id`)
	if err != nil {
		return nil, eris.Wrap(err, "store: list companies")
	}
	defer rows.Close()

	var out []Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate companies")
}

func scanCompany(row scannable) (*Company, error) {
	var c Company
	var trialEnds, subEnds, created string
	err := row.Scan(&c.ID, &c.Name, &c.CNPJ, &c.Phone, &c.OwnerName, &c.OwnerEmail,
		&c.SubscriptionStatus, &trialEnds, &subEnds, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "store: company")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan company")
	}

	if c.TrialEndsAt, err = parseTime(trialEnds); err != nil {
		return nil, err
	}
	if c.SubscriptionEndsAt, err = parseTime(subEnds); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &c, nil
}
