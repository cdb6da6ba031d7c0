package testutil

import (
	"testing"

	"github.com/spf13/viper"
)

// ResetViper clears the global viper instance now and after the test.
func ResetViper(t *testing.T) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
}

// SetupTestCache points cache.dbfile at a database inside env and returns its path.
func SetupTestCache(t *testing.T, env *TestEnv) string {
	t.Helper()

	env.MkdirAll("cache")
	dbPath := env.Path("cache", "test-cache.db")
	viper.Set("cache.dbfile", dbPath)
	viper.Set("cache.ttl", "24h")
	return dbPath
}
