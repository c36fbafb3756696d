package catalog

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/Simplici0/decorquote/internal/pricing"
	"github.com/Simplici0/decorquote/internal/store"
)

type fakeSource struct {
	fabrics      []pricing.Fabric
	assembly     []store.AssemblyPrice
	tracks       []store.Track
	freight      []store.Option
	installation []store.Option
	failTracks   error
	loads        atomic.Int32
}

func (f *fakeSource) ListFabrics(context.Context, string) ([]pricing.Fabric, error) {
	f.loads.Add(1)
	return f.fabrics, nil
}

func (f *fakeSource) ListAssemblyPrices(context.Context, string) ([]store.AssemblyPrice, error) {
	return f.assembly, nil
}

func (f *fakeSource) ListTracks(context.Context, string) ([]store.Track, error) {
	return f.tracks, f.failTracks
}

func (f *fakeSource) ListFreightOptions(context.Context, string) ([]store.Option, error) {
	return f.freight, nil
}

func (f *fakeSource) ListInstallationOptions(context.Context, string) ([]store.Option, error) {
	return f.installation, nil
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		fabrics: []pricing.Fabric{
			{ID: "Voil Branco", RollWidth: 2.8, WholesalePrice: 20, Categories: []string{pricing.RoleCurtain, pricing.RoleLining}},
			{ID: "Blackout Cinza", RollWidth: 2.8, WholesalePrice: 30, Categories: []string{pricing.RoleBlackout}, Favorite: true},
			{ID: "Linho Cru", RollWidth: 1.4, WholesalePrice: 40},
			{ID: "SEM TECIDO"},
		},
		assembly: []store.AssemblyPrice{
			{Composition: "Curtain", Price: 50},
			{Composition: "Curtain", Tall: true, Price: 70},
		},
		tracks:       []store.Track{{Name: "Trilho suíço", Price: 35}},
		freight:      []store.Option{{Label: "Centro", Value: 30}, {Value: 45.5}},
		installation: []store.Option{{Label: "Padrão", Value: 80}, {Value: 120}},
	}
}

func TestLoader_BuildsSnapshot(t *testing.T) {
	snap, err := NewLoader(newFakeSource()).Load(context.Background(), "store-1")
	require.NoError(t, err)

	assert.Equal(t, "store-1", snap.StoreID)
	assert.Len(t, snap.Tables.Fabrics, 3)
	assert.NotContains(t, snap.Tables.Fabrics, "SEM TECIDO")
	assert.Equal(t, 70.0, snap.Tables.Assembly[pricing.AssemblyKey{Label: "Curtain", Tall: true}])
	assert.Equal(t, 35.0, snap.Tables.TrackPrice("Trilho suíço"))
	assert.Equal(t, []string{"Trilho suíço"}, snap.TrackKeys())

	// Favorites first, then by name.
	require.Len(t, snap.Fabrics, 3)
	assert.Equal(t, "Blackout Cinza", snap.Fabrics[0].ID)
	assert.Equal(t, "Linho Cru", snap.Fabrics[1].ID)
	assert.Equal(t, "Voil Branco", snap.Fabrics[2].ID)
}

func TestLoader_PropagatesErrors(t *testing.T) {
	src := newFakeSource()
	src.failTracks = errors.New("db is down")

	_, err := NewLoader(src).Load(context.Background(), "store-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db is down")
}

func TestSnapshot_FabricsForRole(t *testing.T) {
	snap, err := NewLoader(newFakeSource()).Load(context.Background(), "s")
	require.NoError(t, err)

	names := func(fabrics []pricing.Fabric) []string {
		var out []string
		for _, f := range fabrics {
			out = append(out, f.ID)
		}
		return out
	}

	// Fabrics without categories are offered everywhere.
	assert.Equal(t, []string{"Linho Cru", "Voil Branco"}, names(snap.FabricsForRole(pricing.RoleCurtain)))
	assert.Equal(t, []string{"Linho Cru", "Voil Branco"}, names(snap.FabricsForRole(pricing.RoleLining)))
	assert.Equal(t, []string{"Blackout Cinza", "Linho Cru"}, names(snap.FabricsForRole(pricing.RoleBlackout)))
}

func TestSnapshot_OptionKeys(t *testing.T) {
	snap, err := NewLoader(newFakeSource()).Load(context.Background(), "s")
	require.NoError(t, err)

	require.Len(t, snap.Freight, 2)
	assert.Equal(t, "Centro", snap.Freight[0].Key)
	assert.Equal(t, "R$ 45,50", snap.Freight[1].Key)

	v, ok := snap.FreightValue("R$ 45,50")
	assert.True(t, ok)
	assert.Equal(t, 45.5, v)

	v, ok = snap.InstallationValue("Padrão")
	assert.True(t, ok)
	assert.Equal(t, 80.0, v)

	_, ok = snap.InstallationValue("Inexistente")
	assert.False(t, ok)
}

func TestCache_TTLAndInvalidate(t *testing.T) {
	src := newFakeSource()
	cache := NewCache(NewLoader(src), time.Minute)
	clock := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }
	ctx := context.Background()

	first, err := cache.Get(ctx, "s")
	require.NoError(t, err)
	second, err := cache.Get(ctx, "s")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), src.loads.Load())

	clock = clock.Add(2 * time.Minute)
	_, err = cache.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.loads.Load())

	cache.Invalidate("s")
	_, err = cache.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, int32(3), src.loads.Load())
}

// gatedSource holds its first ListFabrics call open until release is closed.
type gatedSource struct {
	*fakeSource
	mu      sync.Mutex
	price   float64
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (g *gatedSource) setPrice(p float64) {
	g.mu.Lock()
	g.price = p
	g.mu.Unlock()
}

func (g *gatedSource) ListFabrics(context.Context, string) ([]pricing.Fabric, error) {
	g.mu.Lock()
	fabrics := []pricing.Fabric{{ID: "Linho", RollWidth: 1.4, WholesalePrice: g.price}}
	g.mu.Unlock()
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return fabrics, nil
}

func TestCache_InvalidateDuringLoad(t *testing.T) {
	src := &gatedSource{
		fakeSource: newFakeSource(),
		price:      10,
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	cache := NewCache(NewLoader(src), time.Minute)
	ctx := context.Background()

	done := make(chan *Snapshot)
	go func() {
		snap, err := cache.Get(ctx, "s")
		assert.NoError(t, err)
		done <- snap
	}()

	<-src.started
	src.setPrice(99)
	cache.Invalidate("s")
	close(src.release)

	stale := <-done
	require.NotNil(t, stale)
	assert.Equal(t, 10.0, stale.Tables.Fabrics["Linho"].WholesalePrice)

	fresh, err := cache.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 99.0, fresh.Tables.Fabrics["Linho"].WholesalePrice)
}

func TestCache_Disabled(t *testing.T) {
	src := newFakeSource()
	cache := NewCache(NewLoader(src), 0)

	for i := 0; i < 3; i++ {
		_, err := cache.Get(context.Background(), "s")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), src.loads.Load())
}

func TestCache_ConcurrentGet(t *testing.T) {
	cache := NewCache(NewLoader(newFakeSource()), time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := cache.Get(context.Background(), "s")
			assert.NoError(t, err)
			assert.NotNil(t, snap)
		}()
	}
	wg.Wait()
}

func TestFabricsXLSX_WriteAndRead(t *testing.T) {
	fabrics := []pricing.Fabric{
		{ID: "Voil Branco", RollWidth: 2.8, WholesalePrice: 19.9, Categories: []string{"cortina", "forro"}},
		{ID: "Blackout Cinza", RollWidth: 1.4, WholesalePrice: 35, Favorite: true},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFabricsXLSX(&buf, fabrics))

	got, err := ParseFabricsXLSX(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Voil Branco", got[0].ID)
	assert.InDelta(t, 2.8, got[0].RollWidth, 1e-9)
	assert.InDelta(t, 19.9, got[0].WholesalePrice, 1e-9)
	assert.Equal(t, []string{"cortina", "forro"}, got[0].Categories)
	assert.False(t, got[0].Favorite)
	assert.True(t, got[1].Favorite)
}

func TestReadFabricsXLSX_HandwrittenSheet(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Planilha1")
	require.NoError(t, err)
	for _, values := range [][]string{
		{"Produto", "Largura (m)", "Atacado", "Categorias", "Favorito"},
		{"Linho Cru", "1,40", "R$ 1.234,50", "Cortina; Forro", "Sim"},
		{"SEM TECIDO", "", "", "", ""},
		{"Tela Solar", "abc", "", "", ""},
	} {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "tecidos.xlsx")
	require.NoError(t, f.Save(path))

	got, err := ReadFabricsXLSX(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, pricing.Fabric{
		ID:             "Linho Cru",
		RollWidth:      1.4,
		WholesalePrice: 1234.5,
		Categories:     []string{"cortina", "forro"},
		Favorite:       true,
	}, got[0])
	// Unreadable numbers become 0 instead of failing the import.
	assert.Equal(t, "Tela Solar", got[1].ID)
	assert.Zero(t, got[1].RollWidth)
}

func TestReadFabricsXLSX_MissingNameColumn(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Planilha1")
	require.NoError(t, err)
	sheet.AddRow().AddCell().SetString("largura")
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	require.NoError(t, f.Save(path))

	_, err = ReadFabricsXLSX(path)
	assert.Error(t, err)
}
