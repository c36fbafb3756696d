// Package catalog loads a company's base pricing data into immutable
// snapshots consumed by the pricing engine.
package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/Simplici0/decorquote/internal/pricing"
	"github.com/Simplici0/decorquote/internal/store"
)

// Source provides the raw pricing tables of a company.
type Source interface {
	ListFabrics(ctx context.Context, storeID string) ([]pricing.Fabric, error)
	ListAssemblyPrices(ctx context.Context, storeID string) ([]store.AssemblyPrice, error)
	ListTracks(ctx context.Context, storeID string) ([]store.Track, error)
	ListFreightOptions(ctx context.Context, storeID string) ([]store.Option, error)
	ListInstallationOptions(ctx context.Context, storeID string) ([]store.Option, error)
}

// Option is a freight or installation choice addressed by its canonical key.
type Option struct {
	Key   string  `json:"chave"`
	Label string  `json:"rotulo"`
	Value float64 `json:"valor"`
}

// Snapshot is a consistent view of a company's pricing data. It is never
// mutated after Load returns it.
type Snapshot struct {
	StoreID      string
	Tables       pricing.Tables
	Fabrics      []pricing.Fabric
	Tracks       []store.Track
	Assembly     []store.AssemblyPrice
	Freight      []Option
	Installation []Option
	LoadedAt     time.Time
}

// Loader builds snapshots from a Source.
type Loader struct {
	src Source
	now func() time.Time
}

// NewLoader returns a Loader reading from src.
func NewLoader(src Source) *Loader {
	return &Loader{src: src, now: time.Now}
}

// Load reads every table of storeID concurrently and assembles a snapshot.
func (l *Loader) Load(ctx context.Context, storeID string) (*Snapshot, error) {
	var (
		fabrics      []pricing.Fabric
		assembly     []store.AssemblyPrice
		tracks       []store.Track
		freight      []store.Option
		installation []store.Option
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		fabrics, err = l.src.ListFabrics(gctx, storeID)
		return eris.Wrap(err, "catalog: load fabrics")
	})
	g.Go(func() (err error) {
		assembly, err = l.src.ListAssemblyPrices(gctx, storeID)
		return eris.Wrap(err, "catalog: load assembly prices")
	})
	g.Go(func() (err error) {
		tracks, err = l.src.ListTracks(gctx, storeID)
		return eris.Wrap(err, "catalog: load tracks")
	})
	g.Go(func() (err error) {
		freight, err = l.src.ListFreightOptions(gctx, storeID)
		return eris.Wrap(err, "catalog: load freight options")
	})
	g.Go(func() (err error) {
		installation, err = l.src.ListInstallationOptions(gctx, storeID)
		return eris.Wrap(err, "catalog: load installation options")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Build(storeID, fabrics, assembly, tracks, freight, installation, l.now()), nil
}

// Build assembles a snapshot from already loaded tables.
func Build(storeID string, fabrics []pricing.Fabric, assembly []store.AssemblyPrice, tracks []store.Track, freight, installation []store.Option, loadedAt time.Time) *Snapshot {
	snap := &Snapshot{
		StoreID:  storeID,
		LoadedAt: loadedAt,
		Tables: pricing.Tables{
			Fabrics:  make(map[string]pricing.Fabric, len(fabrics)),
			Assembly: make(pricing.AssemblyTable, len(assembly)),
			Tracks:   make(map[string]float64, len(tracks)),
		},
		Tracks:       append([]store.Track(nil), tracks...),
		Assembly:     append([]store.AssemblyPrice(nil), assembly...),
		Freight:      canonicalOptions(freight),
		Installation: canonicalOptions(installation),
	}

	for _, f := range fabrics {
		if pricing.IsNone(f.ID) {
			continue
		}
		f.Categories = append([]string(nil), f.Categories...)
		snap.Tables.Fabrics[f.ID] = f
		snap.Fabrics = append(snap.Fabrics, f)
	}
	sortFabrics(snap.Fabrics)

	for _, a := range assembly {
		snap.Tables.Assembly[pricing.AssemblyKey{Label: a.Composition, Tall: a.Tall}] = a.Price
	}
	for _, t := range tracks {
		snap.Tables.Tracks[t.Name] = t.Price
	}
	return snap
}

// FabricsForRole lists the fabrics offered for role, favorites first and then
// by name. Fabrics without categories are offered for every role.
func (s *Snapshot) FabricsForRole(role string) []pricing.Fabric {
	var out []pricing.Fabric
	for _, f := range s.Fabrics {
		if f.OfferedFor(role) {
			out = append(out, f)
		}
	}
	return out
}

// FreightValue resolves a freight option key to its price.
func (s *Snapshot) FreightValue(key string) (float64, bool) {
	return lookupOption(s.Freight, key)
}

// InstallationValue resolves an installation option key to its price.
func (s *Snapshot) InstallationValue(key string) (float64, bool) {
	return lookupOption(s.Installation, key)
}

// TrackKeys lists the track option names in table order.
func (s *Snapshot) TrackKeys() []string {
	keys := make([]string, 0, len(s.Tracks))
	for _, t := range s.Tracks {
		keys = append(keys, t.Name)
	}
	return keys
}

func canonicalOptions(opts []store.Option) []Option {
	out := make([]Option, 0, len(opts))
	for _, o := range opts {
		out = append(out, Option{
			Key:   pricing.CanonicalKey(o.Label, o.Value),
			Label: strings.TrimSpace(o.Label),
			Value: o.Value,
		})
	}
	return out
}

func lookupOption(opts []Option, key string) (float64, bool) {
	key = strings.TrimSpace(key)
	for _, o := range opts {
		if o.Key == key {
			return o.Value, true
		}
	}
	return 0, false
}

func sortFabrics(fabrics []pricing.Fabric) {
	sort.SliceStable(fabrics, func(i, j int) bool {
		a, b := fabrics[i], fabrics[j]
		if a.Favorite != b.Favorite {
			return a.Favorite
		}
		return strings.ToLower(a.ID) < strings.ToLower(b.ID)
	})
}
