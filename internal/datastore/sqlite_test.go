package datastore

import (
	"testing"

	"github.com/lepinkainen/boxset/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreUpsert(t *testing.T) {
	env := testutil.NewTestEnv(t)
	store := NewSQLiteStore(env.Path("db", "test.db"))
	require.NoError(t, store.Connect())
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.CreateTable(`CREATE TABLE IF NOT EXISTS items (id TEXT PRIMARY KEY, n INTEGER)`))
	require.NoError(t, store.Upsert("items", []map[string]any{
		{"id": "a", "n": 1},
		{"id": "b", "n": 2},
	}))
	require.NoError(t, store.Upsert("items", []map[string]any{
		{"id": "a", "n": 10},
	}))

	var count, n int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count))
	require.NoError(t, store.db.QueryRow(`SELECT n FROM items WHERE id = 'a'`).Scan(&n))
	assert.Equal(t, 2, count)
	assert.Equal(t, 10, n)
}

func TestSQLiteStoreUpsertEmptyAndMissingColumn(t *testing.T) {
	env := testutil.NewTestEnv(t)
	store := NewSQLiteStore(env.Path("test.db"))
	require.NoError(t, store.Connect())
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.CreateTable(`CREATE TABLE items (id TEXT PRIMARY KEY, n INTEGER)`))

	assert.NoError(t, store.Upsert("items", nil))

	err := store.Upsert("items", []map[string]any{
		{"id": "a", "n": 1},
		{"id": "b"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "n"`)

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count))
	assert.Equal(t, 0, count, "failed batch is rolled back")
}

func TestSQLiteStoreCreateTableError(t *testing.T) {
	env := testutil.NewTestEnv(t)
	store := NewSQLiteStore(env.Path("test.db"))
	require.NoError(t, store.Connect())
	t.Cleanup(func() { _ = store.Close() })

	err := store.CreateTable("NOT SQL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create table")
}

func TestCloseWithoutConnect(t *testing.T) {
	assert.NoError(t, NewSQLiteStore("unused.db").Close())
}

