// Package seed provisions the default option lists of new stores and an
// optional demo store.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/Simplici0/decorquote/internal/auth"
	"github.com/Simplici0/decorquote/internal/pricing"
	"github.com/Simplici0/decorquote/internal/store"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config contains the values required by startup seed.
type Config struct {
	DemoStore bool
	TrialDays int
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Defaults is the embedded seed data.
type Defaults struct {
	CurtainModels []string `yaml:"curtain_models"`
	AwningModels  []string `yaml:"awning_models"`
	CurtainColors []string `yaml:"curtain_colors"`
	AwningColors  []string `yaml:"awning_colors"`
	Demo          Demo     `yaml:"demo"`
}

// Demo describes the demo store and its base pricing data.
type Demo struct {
	Name       string `yaml:"name"`
	CNPJ       string `yaml:"cnpj"`
	OwnerName  string `yaml:"owner_name"`
	OwnerEmail string `yaml:"owner_email"`
	Password   string `yaml:"password"`
	Fabrics    []struct {
		Name       string   `yaml:"name"`
		RollWidth  float64  `yaml:"roll_width"`
		Price      float64  `yaml:"price"`
		Categories []string `yaml:"categories"`
		Favorite   bool     `yaml:"favorite"`
	} `yaml:"fabrics"`
	Assembly []struct {
		Composition string  `yaml:"composition"`
		Price       float64 `yaml:"price"`
		TallPrice   float64 `yaml:"tall_price"`
	} `yaml:"assembly"`
	Tracks []struct {
		Name  string  `yaml:"name"`
		Price float64 `yaml:"price"`
	} `yaml:"tracks"`
	Freight      []option `yaml:"freight"`
	Installation []option `yaml:"installation"`
}

type option struct {
	Label string  `yaml:"label"`
	Value float64 `yaml:"value"`
}

var loadDefaults = sync.OnceValues(func() (*Defaults, error) {
	var d Defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		return nil, eris.Wrap(err, "seed: parse defaults")
	}
	return &d, nil
})

// LoadDefaults returns the parsed embedded defaults.
func LoadDefaults() (*Defaults, error) {
	return loadDefaults()
}

// ModelLists returns the default option names keyed by model option kind.
func (d *Defaults) ModelLists() map[string][]string {
	return map[string][]string{
		store.CurtainModels: d.CurtainModels,
		store.AwningModels:  d.AwningModels,
		store.CurtainColors: d.CurtainColors,
		store.AwningColors:  d.AwningColors,
	}
}

// Run executes the startup seed in an idempotent way: it creates the demo
// store when enabled and backfills defaults missing from any store.
func Run(ctx context.Context, st *store.Store, cfg Config) (Stats, error) {
	d, err := LoadDefaults()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{}

	if cfg.DemoStore {
		if err := ensureDemoStore(ctx, st, d, cfg.TrialDays, &stats); err != nil {
			return Stats{}, err
		}
	}

	companies, err := st.ListCompanies(ctx)
	if err != nil {
		return Stats{}, err
	}
	for _, c := range companies {
		n, err := ApplyDefaults(ctx, st, c.ID)
		if err != nil {
			return Stats{}, err
		}
		stats.Inserts += n
	}

	return stats, nil
}

// ApplyDefaults adds the default model and color lists and the default fee
// table to storeID. Entries already present are left untouched. It returns
// the number of rows inserted.
func ApplyDefaults(ctx context.Context, st *store.Store, storeID string) (int, error) {
	d, err := LoadDefaults()
	if err != nil {
		return 0, err
	}

	inserts := 0
	for kind, names := range d.ModelLists() {
		n, err := st.AddModelOptions(ctx, storeID, kind, names)
		if err != nil {
			return 0, err
		}
		inserts += n
	}

	_, err = st.GetFeeTable(ctx, storeID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := st.PutFeeTable(ctx, storeID, pricing.DefaultFeeTable()); err != nil {
			return 0, err
		}
		inserts++
	case err != nil:
		return 0, err
	}

	return inserts, nil
}

func ensureDemoStore(ctx context.Context, st *store.Store, d *Defaults, trialDays int, stats *Stats) error {
	_, err := st.CompanyByCNPJ(ctx, d.Demo.CNPJ)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	c, err := st.CreateCompany(ctx, store.Company{
		Name:        d.Demo.Name,
		CNPJ:        d.Demo.CNPJ,
		OwnerName:   d.Demo.OwnerName,
		OwnerEmail:  d.Demo.OwnerEmail,
		TrialEndsAt: time.Now().UTC().AddDate(0, 0, trialDays),
	})
	if err != nil {
		return eris.Wrap(err, "seed: create demo store")
	}
	stats.Inserts++

	hash, err := auth.HashPassword(d.Demo.Password)
	if err != nil {
		return eris.Wrap(err, "seed: hash demo password")
	}
	if _, err := st.CreateUser(ctx, store.User{
		StoreID:      c.ID,
		Email:        d.Demo.OwnerEmail,
		Name:         d.Demo.OwnerName,
		PasswordHash: hash,
	}); err != nil {
		return eris.Wrap(err, "seed: create demo user")
	}
	stats.Inserts++

	fabrics := make([]pricing.Fabric, 0, len(d.Demo.Fabrics))
	for _, f := range d.Demo.Fabrics {
		fabrics = append(fabrics, pricing.Fabric{
			ID:             f.Name,
			RollWidth:      f.RollWidth,
			WholesalePrice: f.Price,
			Categories:     f.Categories,
			Favorite:       f.Favorite,
		})
	}
	n, err := st.UpsertFabrics(ctx, c.ID, fabrics)
	if err != nil {
		return err
	}
	stats.Inserts += n

	assembly := make([]store.AssemblyPrice, 0, 2*len(d.Demo.Assembly))
	for _, a := range d.Demo.Assembly {
		assembly = append(assembly,
			store.AssemblyPrice{Composition: a.Composition, Price: a.Price},
			store.AssemblyPrice{Composition: a.Composition, Tall: true, Price: a.TallPrice},
		)
	}
	if n, err = st.UpsertAssemblyPrices(ctx, c.ID, assembly); err != nil {
		return err
	}
	stats.Inserts += n

	tracks := make([]store.Track, 0, len(d.Demo.Tracks))
	for _, tr := range d.Demo.Tracks {
		tracks = append(tracks, store.Track{Name: tr.Name, Price: tr.Price})
	}
	if n, err = st.UpsertTracks(ctx, c.ID, tracks); err != nil {
		return err
	}
	stats.Inserts += n

	for kind, opts := range map[store.OptionKind][]option{
		store.FreightOptions:      d.Demo.Freight,
		store.InstallationOptions: d.Demo.Installation,
	} {
		rows := make([]store.Option, 0, len(opts))
		for _, o := range opts {
			rows = append(rows, store.Option{Label: o.Label, Value: o.Value})
		}
		if err := st.ReplaceOptions(ctx, kind, c.ID, rows); err != nil {
			return err
		}
		stats.Inserts += len(rows)
	}

	return nil
}
