package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_AppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "news.db")

	db, err := NewDB(NewConfig(path))
	require.NoError(t, err)

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM kv"))
	assert.Equal(t, 0, count)
	require.NoError(t, db.Close())

	// Reopening must not re-run applied migrations
	db, err = NewDB(NewConfig(path))
	require.NoError(t, err)
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM migrations"))
	assert.Equal(t, 1, count)
	require.NoError(t, db.Close())

	require.NoError(t, DeleteDB(path))
	assert.NoFileExists(t, path)
}

func TestNewDB_InMemory(t *testing.T) {
	db, err := NewDB(NewConfig(":memory:"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("INSERT INTO kv (key, value) VALUES (?, ?)", "k", "v")
	require.NoError(t, err)

	var value string
	require.NoError(t, db.Get(&value, "SELECT value FROM kv WHERE key = ?", "k"))
	assert.Equal(t, "v", value)
}
