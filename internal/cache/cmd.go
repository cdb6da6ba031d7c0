package cache

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// InvalidateCacheCmd represents the cache invalidate subcommand
type InvalidateCacheCmd struct {
	Source string `arg:"" help:"Cache source to invalidate: tmdb" required:""`
}

func (i *InvalidateCacheCmd) Run() error {
	tableName := i.Source + "_cache"
	if err := validateTableName(tableName); err != nil {
		return fmt.Errorf("invalid cache source '%s'; valid sources are: %s", i.Source, strings.Join(validSources(), ", "))
	}

	dbPath := viper.GetString("cache.dbfile")
	if dbPath == "" {
		return fmt.Errorf("no cache database configured (set --cache-db or cache.dbfile in config)")
	}

	slog.Info("Invalidating cache", "source", i.Source, "database", dbPath)

	cacheDB, err := Open(dbPath, 0)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	defer func() { _ = cacheDB.Close() }()

	rowsDeleted, err := cacheDB.InvalidateSource(tableName)
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	slog.Info("Cache invalidated", "source", i.Source, "rows_deleted", rowsDeleted)
	return nil
}

func validSources() []string {
	sources := make([]string, 0, len(ValidCacheTableNames))
	for table := range ValidCacheTableNames {
		sources = append(sources, strings.TrimSuffix(table, "_cache"))
	}
	sort.Strings(sources)
	return sources
}
