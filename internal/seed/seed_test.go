package seed

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/decorquote/internal/auth"
	"github.com/Simplici0/decorquote/internal/db"
	"github.com/Simplici0/decorquote/internal/migrations"
	"github.com/Simplici0/decorquote/internal/pricing"
	"github.com/Simplici0/decorquote/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "seed-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return store.New(database)
}

func TestLoadDefaults(t *testing.T) {
	d, err := LoadDefaults()
	require.NoError(t, err)

	assert.Len(t, d.CurtainModels, 19)
	assert.Len(t, d.AwningModels, 13)
	assert.Equal(t, d.CurtainColors, d.AwningColors)
	assert.Contains(t, d.CurtainColors, "PADRAO")
	assert.Len(t, d.Demo.Assembly, 7)
	for _, a := range d.Demo.Assembly {
		assert.Greater(t, a.TallPrice, a.Price, a.Composition)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()
	cfg := Config{DemoStore: true, TrialDays: 30}

	d, err := LoadDefaults()
	require.NoError(t, err)
	models := len(d.CurtainModels) + len(d.AwningModels) + len(d.CurtainColors) + len(d.AwningColors)
	want := 2 + len(d.Demo.Fabrics) + 2*len(d.Demo.Assembly) + len(d.Demo.Tracks) +
		len(d.Demo.Freight) + len(d.Demo.Installation) + models + 1

	for i := 0; i < 5; i++ {
		stats, err := Run(ctx, st, cfg)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != want {
				t.Fatalf("expected %d inserts in first run, got %d", want, stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	c, err := st.CompanyByCNPJ(ctx, d.Demo.CNPJ)
	require.NoError(t, err)
	assert.Equal(t, store.SubscriptionTrial, c.SubscriptionStatus)
	assert.True(t, c.TrialEndsAt.After(c.CreatedAt))

	u, err := st.UserByEmail(ctx, d.Demo.OwnerEmail)
	require.NoError(t, err)
	assert.Equal(t, c.ID, u.StoreID)
	assert.True(t, auth.CheckPassword(u.PasswordHash, d.Demo.Password))

	fabrics, err := st.ListFabrics(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, fabrics, len(d.Demo.Fabrics))

	freight, err := st.ListFreightOptions(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, freight, len(d.Demo.Freight))

	fees, err := st.GetFeeTable(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, pricing.DefaultFeeTable(), fees)
}

func TestRunWithoutDemoBackfillsExistingStores(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	c, err := st.CreateCompany(ctx, store.Company{Name: "Loja", CNPJ: "99888777000166"})
	require.NoError(t, err)
	require.NoError(t, st.PutFeeTable(ctx, c.ID, pricing.FeeTable{pricing.DebitKey: 0.01}))

	stats, err := Run(ctx, st, Config{})
	require.NoError(t, err)

	d, err := LoadDefaults()
	require.NoError(t, err)
	assert.Equal(t, len(d.CurtainModels)+len(d.AwningModels)+len(d.CurtainColors)+len(d.AwningColors), stats.Inserts)

	fees, err := st.GetFeeTable(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, pricing.FeeTable{pricing.DebitKey: 0.01}, fees, "existing fee table is kept")

	companies, err := st.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Len(t, companies, 1, "demo store not created")

	names, err := st.ListModelOptions(ctx, c.ID, store.AwningColors)
	require.NoError(t, err)
	assert.Len(t, names, len(d.AwningColors))
}
