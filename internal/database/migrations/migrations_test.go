package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_Embedded(t *testing.T) {
	migrations, err := LoadMigrations(Files)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Contains(t, migrations[0].Up, "CREATE TABLE IF NOT EXISTS kv")
	assert.Contains(t, migrations[0].Down, "DROP TABLE")
}

func TestLoadMigrations_OrdersAndSkips(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_second.up.sql": {Data: []byte("SELECT 2;")},
		"0001_first.up.sql":  {Data: []byte("SELECT 1;")},
		"notes.txt":          {Data: []byte("ignored")},
		"bogus.sql":          {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Equal(t, "SELECT 2;", migrations[1].Up)
}
