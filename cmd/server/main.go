package main

import (
	"context"
	"database/sql"
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/decorquote/internal/config"
	"github.com/Simplici0/decorquote/internal/db"
	"github.com/Simplici0/decorquote/internal/migrations"
	"github.com/Simplici0/decorquote/internal/pricing"
	"github.com/Simplici0/decorquote/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "decorquote",
	Short: "Curtain and awning quote calculator",
	Long:  "Prices curtain, curtain-system and awning quotes from each store's fabric catalog and serves the calculator API.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		for _, w := range cfg.Warnings() {
			zap.L().Warn(w)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// appEnv holds the resources shared by commands that touch the database.
type appEnv struct {
	db    *sql.DB
	store *store.Store
}

// openEnv opens the configured database and brings its schema up to date.
func openEnv() (*appEnv, error) {
	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(database); err != nil {
		database.Close()
		return nil, err
	}
	return &appEnv{db: database, store: store.New(database)}, nil
}

func (e *appEnv) Close() error {
	return e.db.Close()
}

// feeTable returns the fee table of a store, or the default table when the
// store never saved one.
func feeTable(ctx context.Context, st *store.Store, id string) (pricing.FeeTable, error) {
	fees, err := st.GetFeeTable(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return pricing.DefaultFeeTable(), nil
	}
	return fees, err
}
