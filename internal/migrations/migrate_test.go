package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/decorquote/internal/db"
)

func TestUp_CreatesSchema(t *testing.T) {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, Up(conn))
	// Running again is a no-op.
	require.NoError(t, Up(conn))

	for _, table := range []string{"stores", "fabrics", "assembly_prices", "tracks", "freight_options", "installation_options", "fee_tables", "model_options", "quotes", "users"} {
		var n int
		err := conn.QueryRow(`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}

	v, err := Version(conn)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}
