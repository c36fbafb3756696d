package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/Simplici0/decorquote/internal/pricing"
)

// AssemblyPrice is one row of a company's assembly price table.
type AssemblyPrice struct {
	Composition string
	Tall        bool
	Price       float64
}

// Track is a track/rail option with its price.
type Track struct {
	Name  string
	Price float64
}

// Option is a labeled price (freight or installation). Label may be empty.
type Option struct {
	ID    int64
	Label string
	Value float64
}

// OptionKind selects the freight or installation option table.
type OptionKind string

const (
	FreightOptions      OptionKind = "freight"
	InstallationOptions OptionKind = "installation"
)

func (k OptionKind) table() (string, error) {
	switch k {
	case FreightOptions:
		return "freight_options", nil
	case InstallationOptions:
		return "installation_options", nil
	}
	return "", eris.Errorf("store: unknown option kind %q", string(k))
}

// Model option kinds.
const (
	CurtainModels = "curtain_model"
	AwningModels  = "awning_model"
	CurtainColors = "curtain_color"
	AwningColors  = "awning_color"
)

// UpsertFabrics inserts or updates fabrics by name and returns how many rows were written.
func (s *Store) UpsertFabrics(ctx context.Context, storeID string, fabrics []pricing.Fabric) (int, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "store: begin fabrics")
	}
	defer tx.rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fabrics (store_id, name, roll_width, wholesale_price, categories, favorite)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (store_id, name) DO UPDATE SET
			roll_width = excluded.roll_width,
			wholesale_price = excluded.wholesale_price,
			categories = excluded.categories,
			favorite = excluded.favorite
	`)
	if err != nil {
		return 0, eris.Wrap(err, "store: prepare fabric upsert")
	}
	defer stmt.Close()

	n := 0
	for _, f := range fabrics {
		name := strings.TrimSpace(f.ID)
		if name == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, storeID, name, f.RollWidth, f.WholesalePrice,
			strings.Join(f.Categories, ","), boolInt(f.Favorite)); err != nil {
			return 0, eris.Wrapf(err, "store: upsert fabric %s", name)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "store: commit fabrics")
	}
	return n, nil
}

// ListFabrics returns the fabric catalog ordered by name.
func (s *Store) ListFabrics(ctx context.Context, storeID string) ([]pricing.Fabric, error) {
	rows, err := s.q().QueryContext(ctx, `
		SELECT name, roll_width, wholesale_price, categories, favorite
		FROM fabrics WHERE store_id = ? ORDER BY name
	`, storeID)
	if err != nil {
		return nil, eris.Wrap(err, "store: list fabrics")
	}
	defer rows.Close()

	var out []pricing.Fabric
	for rows.Next() {
		var f pricing.Fabric
		var categories string
		var favorite int
		if err := rows.Scan(&f.ID, &f.RollWidth, &f.WholesalePrice, &categories, &favorite); err != nil {
			return nil, eris.Wrap(err, "store: scan fabric")
		}
		f.Categories = splitCategories(categories)
		f.Favorite = favorite != 0
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate fabrics")
}

// DeleteFabric removes a fabric from the catalog.
func (s *Store) DeleteFabric(ctx context.Context, storeID, name string) error {
	res, err := s.q().ExecContext(ctx, `DELETE FROM fabrics WHERE store_id = ? AND name = ?`, storeID, name)
	if err != nil {
		return eris.Wrapf(err, "store: delete fabric %s", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "store: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "store: fabric %s", name)
	}
	return nil
}

// UpsertAssemblyPrices writes assembly prices keyed by composition and height tier.
func (s *Store) UpsertAssemblyPrices(ctx context.Context, storeID string, prices []AssemblyPrice) (int, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "store: begin assembly prices")
	}
	defer tx.rollback()

	n := 0
	for _, p := range prices {
		if p.Composition == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO assembly_prices (store_id, composition, tall, price) VALUES (?, ?, ?, ?)
			ON CONFLICT (store_id, composition, tall) DO UPDATE SET price = excluded.price
		`, storeID, p.Composition, boolInt(p.Tall), p.Price); err != nil {
			return 0, eris.Wrapf(err, "store: upsert assembly price %s", p.Composition)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "store: commit assembly prices")
	}
	return n, nil
}

// ListAssemblyPrices returns the assembly price table.
func (s *Store) ListAssemblyPrices(ctx context.Context, storeID string) ([]AssemblyPrice, error) {
	rows, err := s.q().QueryContext(ctx, `
		SELECT composition, tall, price FROM assembly_prices
		WHERE store_id = ? ORDER BY composition, tall
	`, storeID)
	if err != nil {
		return nil, eris.Wrap(err, "store: list assembly prices")
	}
	defer rows.Close()

	var out []AssemblyPrice
	for rows.Next() {
		var p AssemblyPrice
		var tall int
		if err := rows.Scan(&p.Composition, &tall, &p.Price); err != nil {
			return nil, eris.Wrap(err, "store: scan assembly price")
		}
		p.Tall = tall != 0
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate assembly prices")
}

// UpsertTracks writes track options by name.
func (s *Store) UpsertTracks(ctx context.Context, storeID string, tracks []Track) (int, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "store: begin tracks")
	}
	defer tx.rollback()

	n := 0
	for _, tr := range tracks {
		if strings.TrimSpace(tr.Name) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tracks (store_id, name, price) VALUES (?, ?, ?)
			ON CONFLICT (store_id, name) DO UPDATE SET price = excluded.price
		`, storeID, tr.Name, tr.Price); err != nil {
			return 0, eris.Wrapf(err, "store: upsert track %s", tr.Name)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "store: commit tracks")
	}
	return n, nil
}

// ListTracks returns the track options ordered by name.
func (s *Store) ListTracks(ctx context.Context, storeID string) ([]Track, error) {
	rows, err := s.q().QueryContext(ctx, `SELECT name, price FROM tracks WHERE store_id = ? ORDER BY name`, storeID)
	if err != nil {
		return nil, eris.Wrap(err, "store: list tracks")
	}
	defer rows.Close()

	var out []Track
	for rows.Next() {
		var tr Track
		if err := rows.Scan(&tr.Name, &tr.Price); err != nil {
			return nil, eris.Wrap(err, "store: scan track")
		}
		out = append(out, tr)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate tracks")
}

// ReplaceOptions replaces every freight or installation option of a company.
func (s *Store) ReplaceOptions(ctx context.Context, kind OptionKind, storeID string, opts []Option) error {
	table, err := kind.table()
	if err != nil {
		return err
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return eris.Wrapf(err, "store: begin %s options", kind)
	}
	defer tx.rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE store_id = ?`, storeID); err != nil {
		return eris.Wrapf(err, "store: clear %s options", kind)
	}
	for _, o := range opts {
		if _, err := tx.ExecContext(ctx, `INSERT INTO `+table+` (store_id, label, value) VALUES (?, ?, ?)`,
			storeID, strings.TrimSpace(o.Label), o.Value); err != nil {
			return eris.Wrapf(err, "store: insert %s option", kind)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrapf(err, "store: commit %s options", kind)
	}
	return nil
}

// ListOptions returns freight or installation options in insertion order.
func (s *Store) ListOptions(ctx context.Context, kind OptionKind, storeID string) ([]Option, error) {
	table, err := kind.table()
	if err != nil {
		return nil, err
	}

	rows, err := s.q().QueryContext(ctx, `SELECT id, label, value FROM `+table+` WHERE store_id = ? ORDER BY id`, storeID)
	if err != nil {
		return nil, eris.Wrapf(err, "store: list %s options", kind)
	}
	defer rows.Close()

	var out []Option
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.Label, &o.Value); err != nil {
			return nil, eris.Wrapf(err, "store: scan %s option", kind)
		}
		out = append(out, o)
	}
	return out, eris.Wrapf(rows.Err(), "store: iterate %s options", kind)
}

// ListFreightOptions returns the freight price table.
func (s *Store) ListFreightOptions(ctx context.Context, storeID string) ([]Option, error) {
	return s.ListOptions(ctx, FreightOptions, storeID)
}

// ListInstallationOptions returns the installation price table.
func (s *Store) ListInstallationOptions(ctx context.Context, storeID string) ([]Option, error) {
	return s.ListOptions(ctx, InstallationOptions, storeID)
}

// GetFeeTable returns the company's financing fee table or ErrNotFound.
func (s *Store) GetFeeTable(ctx context.Context, storeID string) (pricing.FeeTable, error) {
	var raw string
	err := s.q().QueryRowContext(ctx, `SELECT rates FROM fee_tables WHERE store_id = ?`, storeID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "store: fee table")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: get fee table")
	}

	fees := pricing.FeeTable{}
	if err := json.Unmarshal([]byte(raw), &fees); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal fee table")
	}
	return fees, nil
}

// PutFeeTable stores the company's financing fee table.
func (s *Store) PutFeeTable(ctx context.Context, storeID string, fees pricing.FeeTable) error {
	raw, err := json.Marshal(fees)
	if err != nil {
		return eris.Wrap(err, "store: marshal fee table")
	}

	_, err = s.q().ExecContext(ctx, `
		INSERT INTO fee_tables (store_id, rates, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (store_id) DO UPDATE SET rates = excluded.rates, updated_at = excluded.updated_at
	`, storeID, string(raw), formatTime(s.now()))
	return eris.Wrap(err, "store: put fee table")
}

// AddModelOptions adds names of the given kind, ignoring duplicates, and
// returns how many were new.
func (s *Store) AddModelOptions(ctx context.Context, storeID, kind string, names []string) (int, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "store: begin model options")
	}
	defer tx.rollback()

	n := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO model_options (store_id, kind, name) VALUES (?, ?, ?)`,
			storeID, kind, name)
		if err != nil {
			return 0, eris.Wrapf(err, "store: insert model option %s", name)
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			n++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "store: commit model options")
	}
	return n, nil
}

// ListModelOptions returns the option names of kind, alphabetically.
func (s *Store) ListModelOptions(ctx context.Context, storeID, kind string) ([]string, error) {
	rows, err := s.q().QueryContext(ctx,
		`SELECT name FROM model_options WHERE store_id = ? AND kind = ? ORDER BY name`, storeID, kind)
	if err != nil {
		return nil, eris.Wrap(err, "store: list model options")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "store: scan model option")
		}
		out = append(out, name)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate model options")
}

func splitCategories(raw string) []string {
	var out []string
	for _, c := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}
