package cache

// SQL schemas for cache tables
// All cache tables use "cache_key" as the primary key column for consistency

// TMDBTable is the table holding TMDB collection, image and genre responses.
const TMDBTable = "tmdb_cache"

// TMDBCacheSchema defines the schema for the TMDB response cache
const TMDBCacheSchema = `
CREATE TABLE IF NOT EXISTS tmdb_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tmdb_cached_at ON tmdb_cache(cached_at);
`

// AllCacheSchemas contains all cache table schemas for easy initialization
var AllCacheSchemas = []string{
	TMDBCacheSchema,
}

// ValidCacheTableNames is the whitelist of allowed cache table names
// Used to prevent SQL injection when interpolating table names
var ValidCacheTableNames = map[string]bool{
	TMDBTable: true,
}
