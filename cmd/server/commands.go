package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/decorquote/internal/account"
	"github.com/Simplici0/decorquote/internal/catalog"
	"github.com/Simplici0/decorquote/internal/migrations"
	"github.com/Simplici0/decorquote/internal/pricing"
	"github.com/Simplici0/decorquote/internal/quote"
	"github.com/Simplici0/decorquote/internal/seed"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		version, err := migrations.Version(env.db)
		if err != nil {
			return err
		}
		zap.L().Info("database migrated", zap.String("path", cfg.DB.Path), zap.Int64("version", version))
		return nil
	},
}

var seedDemo bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Backfill default options and optionally create the demo store",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := seed.Run(cmd.Context(), env.store, seed.Config{
			DemoStore: seedDemo || cfg.Seed.DemoStore,
			TrialDays: cfg.Account.TrialDays,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seed complete: %d inserts, %d updates\n", stats.Inserts, stats.Updates)
		return nil
	},
}

var tokenStore, tokenEmail string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token for a store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenStore == "" {
			return eris.New("--store is required")
		}
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		if _, err := env.store.GetCompany(cmd.Context(), tokenStore); err != nil {
			return err
		}
		token, err := newAuthService(nil, cfg.Auth.SessionSecret, cfg.Auth.TokenTTL).signer.Issue(tokenStore, tokenEmail)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var (
	subStore, subStatus, subUntil string
)

var subscriptionCmd = &cobra.Command{
	Use:   "subscription",
	Short: "Activate or cancel a store's subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		if subStore == "" {
			return eris.New("--store is required")
		}
		var until time.Time
		if subUntil != "" {
			t, err := time.Parse(time.DateOnly, subUntil)
			if err != nil {
				return eris.Wrap(err, "parse --until")
			}
			until = t
		}

		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		status, err := account.NewService(env.store, cfg.Account.TrialDays).SetSubscription(cmd.Context(), subStore, subStatus, until)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, %d days remaining\n", subStore, status.State, status.DaysRemaining)
		return nil
	},
}

var importStore string

var importFabricsCmd = &cobra.Command{
	Use:   "import-fabrics <file.xlsx>",
	Short: "Import a fabric catalog spreadsheet into a store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importStore == "" {
			return eris.New("--store is required")
		}
		fabrics, err := catalog.ReadFabricsXLSX(args[0])
		if err != nil {
			return err
		}

		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.store.UpsertFabrics(cmd.Context(), importStore, fabrics)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d fabrics imported\n", n)
		return nil
	},
}

var (
	exportStore, exportClient, exportFormat, exportOut string
)

var exportQuoteCmd = &cobra.Command{
	Use:   "export-quote",
	Short: "Export a client's quote as text or xlsx",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportStore == "" || exportClient == "" {
			return eris.New("--store and --client are required")
		}
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		rec, err := env.store.GetQuote(ctx, exportStore, exportClient)
		if err != nil {
			return err
		}
		doc, err := quote.Parse(rec.Document)
		if err != nil {
			return err
		}
		snap, err := catalog.NewLoader(env.store).Load(ctx, exportStore)
		if err != nil {
			return err
		}
		fees, err := feeTable(ctx, env.store, exportStore)
		if err != nil {
			return err
		}
		tabs := doc.Summarize(snap, fees, cfg.PricingConfig())

		out := cmd.OutOrStdout()
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return eris.Wrap(err, "create output file")
			}
			defer f.Close()
			out = f
		}

		switch exportFormat {
		case "text":
			return quote.WriteText(out, exportClient, tabs)
		case "xlsx":
			return quote.WriteXLSX(out, exportClient, tabs)
		}
		return eris.Errorf("unknown format %q", exportFormat)
	},
}

var (
	calcStore string
	calcLine  calcRequest
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Price one fabric line against a store's catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if calcStore == "" {
			return eris.New("--store is required")
		}
		env, err := openEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		snap, err := catalog.NewLoader(env.store).Load(ctx, calcStore)
		if err != nil {
			return err
		}
		fees, err := feeTable(ctx, env.store, calcStore)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(calculate(calcLine, snap, fees, cfg.PricingConfig()))
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "create the demo store")

	tokenCmd.Flags().StringVar(&tokenStore, "store", "", "store id")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "e-mail recorded in the token")

	subscriptionCmd.Flags().StringVar(&subStore, "store", "", "store id")
	subscriptionCmd.Flags().StringVar(&subStatus, "status", "active", "active or canceled")
	subscriptionCmd.Flags().StringVar(&subUntil, "until", "", "end date of an active subscription (YYYY-MM-DD)")

	importFabricsCmd.Flags().StringVar(&importStore, "store", "", "store id")

	exportQuoteCmd.Flags().StringVar(&exportStore, "store", "", "store id")
	exportQuoteCmd.Flags().StringVar(&exportClient, "client", "", "client id")
	exportQuoteCmd.Flags().StringVar(&exportFormat, "format", "text", "output format: text or xlsx")
	exportQuoteCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")

	f := calcCmd.Flags()
	f.StringVar(&calcStore, "store", "", "store id")
	f.Float64Var((*float64)(&calcLine.Width), "width", 0, "width in meters")
	f.Float64Var((*float64)(&calcLine.Height), "height", 0, "height in meters")
	f.Float64Var((*float64)(&calcLine.CurtainFullness), "fullness", 0, "curtain and lining fullness")
	f.Float64Var((*float64)(&calcLine.BlackoutFullness), "blackout-fullness", 0, "blackout fullness")
	f.StringVar((*string)(&calcLine.CurtainFabric), "curtain", "", "curtain fabric name")
	f.StringVar((*string)(&calcLine.LiningFabric), "lining", "", "lining fabric name")
	f.StringVar((*string)(&calcLine.BlackoutFabric), "blackout", "", "blackout fabric name")
	f.StringVar((*string)(&calcLine.Track), "track", "", "track option")
	f.StringVar((*string)(&calcLine.Installation), "installation", "", "installation option key or amount")
	f.Float64Var((*float64)(&calcLine.Misc), "misc", 0, "other fees")
	f.Float64Var((*float64)(&calcLine.Markup), "markup", 0, "markup percent (default from config)")
	f.StringVar((*string)(&calcLine.FeeKey), "installments", pricing.DebitKey, "financing option")

	rootCmd.AddCommand(migrateCmd, seedCmd, tokenCmd, subscriptionCmd, importFabricsCmd, exportQuoteCmd, calcCmd)
}
