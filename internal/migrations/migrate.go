package migrations

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
	"github.com/rotisserie/eris"
)

const (
	sqliteDialect = "sqlite3"
	migrationsDir = "sql"
)

//go:embed sql/*.sql
var embedded embed.FS

// Up runs all pending SQL migrations embedded in the binary.
func Up(db *sql.DB) error {
	goose.SetBaseFS(embedded)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(sqliteDialect); err != nil {
		return eris.Wrap(err, "migrations: set goose dialect")
	}

	if err := goose.Up(db, migrationsDir); err != nil {
		return eris.Wrap(err, "migrations: run goose up")
	}

	return nil
}

// Version returns the current schema version.
func Version(db *sql.DB) (int64, error) {
	goose.SetBaseFS(embedded)
	if err := goose.SetDialect(sqliteDialect); err != nil {
		return 0, eris.Wrap(err, "migrations: set goose dialect")
	}
	v, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, eris.Wrap(err, "migrations: read version")
	}
	return v, nil
}
