package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/lepinkainen/boxset/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestData struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func setupTestCache(t *testing.T, ttl time.Duration) *CacheDB {
	t.Helper()

	env := testutil.NewTestEnv(t)
	c, err := Open(env.Path("cache.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func setCachedAt(t *testing.T, c *CacheDB, tableName, key string, at time.Time) {
	t.Helper()

	if _, err := c.db.Exec("UPDATE "+tableName+" SET cached_at = ? WHERE cache_key = ?", at.UTC(), key); err != nil {
		t.Fatalf("Failed to update cached_at: %v", err)
	}
}

func hasEntry(t *testing.T, c *CacheDB, key string) bool {
	t.Helper()
	_, ok, err := c.Get(TMDBTable, key, time.Hour)
	require.NoError(t, err)
	return ok
}

func TestOpenDefaultsTTL(t *testing.T) {
	c := setupTestCache(t, 0)
	assert.Equal(t, DefaultCacheTTL, c.ttl)
}

func TestSetAndGet(t *testing.T) {
	c := setupTestCache(t, time.Hour)

	require.NoError(t, c.Set(TMDBTable, "collection_10", `{"id":10}`))

	data, fromCache, err := c.Get(TMDBTable, "collection_10", time.Hour)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, `{"id":10}`, data)

	_, fromCache, err = c.Get(TMDBTable, "collection_11", time.Hour)
	require.NoError(t, err)
	assert.False(t, fromCache)
}

func TestGetExpired(t *testing.T) {
	c := setupTestCache(t, time.Hour)

	require.NoError(t, c.Set(TMDBTable, "old", `{}`))
	setCachedAt(t, c, TMDBTable, "old", time.Now().Add(-2*time.Hour))

	_, fromCache, err := c.Get(TMDBTable, "old", time.Hour)
	require.NoError(t, err)
	assert.False(t, fromCache)
}

func TestInvalidTableName(t *testing.T) {
	c := setupTestCache(t, time.Hour)

	err := c.Set("movies; DROP TABLE tmdb_cache", "k", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cache table name")

	_, err = c.InvalidateSource("nope_cache")
	require.Error(t, err)
}

func TestGetOrFetchCachesValue(t *testing.T) {
	c := setupTestCache(t, time.Hour)

	calls := 0
	fetch := func() (*TestData, error) {
		calls++
		return &TestData{ID: 1, Name: "Alpha"}, nil
	}

	got, fromCache, err := GetOrFetch(c, TMDBTable, "alpha", fetch, nil)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, "Alpha", got.Name)

	got, fromCache, err = GetOrFetch(c, TMDBTable, "alpha", fetch, nil)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, 1, got.ID)
	assert.Equal(t, 1, calls)
}

func TestGetOrFetchPolicySkipsStore(t *testing.T) {
	c := setupTestCache(t, time.Hour)

	calls := 0
	fetch := func() (*TestData, error) {
		calls++
		return &TestData{}, nil
	}
	never := func(*TestData) bool { return false }

	_, _, err := GetOrFetch(c, TMDBTable, "empty", fetch, never)
	require.NoError(t, err)
	_, fromCache, err := GetOrFetch(c, TMDBTable, "empty", fetch, never)
	require.NoError(t, err)

	assert.False(t, fromCache)
	assert.Equal(t, 2, calls)
}

func TestGetOrFetchPropagatesFetchError(t *testing.T) {
	c := setupTestCache(t, time.Hour)
	boom := errors.New("boom")

	_, _, err := GetOrFetch(c, TMDBTable, "err", func() (*TestData, error) { return nil, boom }, nil)
	require.ErrorIs(t, err, boom)
	assert.False(t, hasEntry(t, c, "err"))
}

func TestGetOrFetchNilCacheFetchesDirectly(t *testing.T) {
	calls := 0
	for i := 0; i < 2; i++ {
		_, fromCache, err := GetOrFetch[*TestData](nil, TMDBTable, "k", func() (*TestData, error) {
			calls++
			return &TestData{ID: 2}, nil
		}, nil)
		require.NoError(t, err)
		assert.False(t, fromCache)
	}
	assert.Equal(t, 2, calls)
}

func TestInvalidateSource(t *testing.T) {
	c := setupTestCache(t, time.Hour)
	require.NoError(t, c.Set(TMDBTable, "a", "1"))
	require.NoError(t, c.Set(TMDBTable, "b", "2"))

	rows, err := c.InvalidateSource(TMDBTable)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)
	assert.False(t, hasEntry(t, c, "a"))
}

func TestInvalidateCacheCmd(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	env := testutil.NewTestEnv(t)
	dbPath := env.Path("cache.db")

	c, err := Open(dbPath, time.Hour)
	require.NoError(t, err)
	require.NoError(t, c.Set(TMDBTable, "a", "1"))
	require.NoError(t, c.Close())

	viper.Set("cache.dbfile", dbPath)
	require.NoError(t, (&InvalidateCacheCmd{Source: "tmdb"}).Run())

	c, err = Open(dbPath, time.Hour)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	assert.False(t, hasEntry(t, c, "a"))

	err = (&InvalidateCacheCmd{Source: "omdb"}).Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid sources are: tmdb")
}
