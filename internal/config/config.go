// Package config turns viper settings into the run configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// OverviewSource selects where a collection's Overview comes from.
type OverviewSource string

const (
	// OverviewProvider uses the TMDB overview when one is available, else the sidecar's.
	OverviewProvider OverviewSource = "provider"
	// OverviewLocal always uses the overview merged from sidecars.
	OverviewLocal OverviewSource = "local"
)

// Layout selects how artifacts are placed under the output directory.
type Layout string

const (
	// LayoutDirectory writes <output>/<name><suffix>/collection.xml.
	LayoutDirectory Layout = "directory"
	// LayoutFlat writes <output>/<name>.xml.
	LayoutFlat Layout = "flat"
)

// Viper keys
const (
	KeyLibraryRoot     = "library.root"
	KeySidecarRoot     = "library.sidecars"
	KeyMediaRoot       = "library.mediaroot"
	KeyOutputDir       = "output.dir"
	KeyOverwrite       = "output.overwrite"
	KeyLayout          = "output.layout"
	KeyDirSuffix       = "output.dirsuffix"
	KeyMinMembers      = "collections.minmembers"
	KeyOverviewSource  = "collections.overviewsource"
	KeySortByDate      = "collections.sortbydate"
	KeyTMDBAPIKey      = "tmdb.apikey"
	KeyThrottle        = "tmdb.throttle"
	KeyFetchStudios    = "tmdb.fetchstudios"
	KeyImageMaxWidth   = "tmdb.imagemaxwidth"
	KeyVideoExtensions = "scan.videoextensions"
	KeySidecarExt      = "scan.sidecarextension"
	KeyCacheDBFile     = "cache.dbfile"
	KeyCacheTTL        = "cache.ttl"
	KeyReportFile      = "report.file"
	KeyDatasetteDB     = "datasette.dbfile"
)

// Config is the configuration of one build run.
type Config struct {
	// LibraryRoot is the directory movie paths are made relative to.
	LibraryRoot string
	// SidecarRoot is walked for sidecars; defaults to LibraryRoot.
	SidecarRoot string
	// MediaRoot replaces LibraryRoot in emitted paths; defaults to LibraryRoot.
	MediaRoot string
	OutputDir string

	// TMDBAPIKey enables enrichment and artwork when non-empty.
	TMDBAPIKey string
	Overwrite  bool

	MinMembers     int
	OverviewSource OverviewSource
	Layout         Layout
	DirSuffix      string
	SortByDate     bool

	Throttle      time.Duration
	FetchStudios  bool
	ImageMaxWidth int

	VideoExtensions  []string
	SidecarExtension string

	CacheDBFile string
	CacheTTL    time.Duration
	ReportFile  string
	// DatasetteDB is a SQLite database that keeps the latest outcome per
	// collection; empty disables it.
	DatasetteDB string
}

// SetDefaults registers default values on the global viper instance.
func SetDefaults() {
	viper.SetDefault(KeyOverwrite, false)
	viper.SetDefault(KeyLayout, string(LayoutDirectory))
	viper.SetDefault(KeyDirSuffix, "")
	viper.SetDefault(KeyMinMembers, 2)
	viper.SetDefault(KeyOverviewSource, string(OverviewProvider))
	viper.SetDefault(KeySortByDate, false)
	viper.SetDefault(KeyThrottle, "100ms")
	viper.SetDefault(KeyFetchStudios, false)
	viper.SetDefault(KeyImageMaxWidth, 0)
	viper.SetDefault(KeyVideoExtensions, []string{".mp4", ".mkv", ".avi", ".mov", ".flv", ".wmv", ".webm", ".m4v"})
	viper.SetDefault(KeySidecarExt, ".nfo")
	viper.SetDefault(KeyCacheDBFile, "")
	viper.SetDefault(KeyCacheTTL, "720h")
}

// Load builds a Config from the global viper instance and validates it.
func Load() (*Config, error) {
	throttle, err := parseDuration(KeyThrottle)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration(KeyCacheTTL)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LibraryRoot:      strings.TrimSpace(viper.GetString(KeyLibraryRoot)),
		SidecarRoot:      strings.TrimSpace(viper.GetString(KeySidecarRoot)),
		MediaRoot:        strings.TrimSpace(viper.GetString(KeyMediaRoot)),
		OutputDir:        strings.TrimSpace(viper.GetString(KeyOutputDir)),
		TMDBAPIKey:       strings.TrimSpace(viper.GetString(KeyTMDBAPIKey)),
		Overwrite:        viper.GetBool(KeyOverwrite),
		MinMembers:       viper.GetInt(KeyMinMembers),
		OverviewSource:   OverviewSource(strings.ToLower(viper.GetString(KeyOverviewSource))),
		Layout:           Layout(strings.ToLower(viper.GetString(KeyLayout))),
		DirSuffix:        viper.GetString(KeyDirSuffix),
		SortByDate:       viper.GetBool(KeySortByDate),
		Throttle:         throttle,
		FetchStudios:     viper.GetBool(KeyFetchStudios),
		ImageMaxWidth:    viper.GetInt(KeyImageMaxWidth),
		VideoExtensions:  viper.GetStringSlice(KeyVideoExtensions),
		SidecarExtension: strings.TrimSpace(viper.GetString(KeySidecarExt)),
		CacheDBFile:      strings.TrimSpace(viper.GetString(KeyCacheDBFile)),
		CacheTTL:         cacheTTL,
		ReportFile:       strings.TrimSpace(viper.GetString(KeyReportFile)),
		DatasetteDB:      strings.TrimSpace(viper.GetString(KeyDatasetteDB)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fills derived defaults and rejects unusable settings.
// An unreadable library root is an error.
func (c *Config) Validate() error {
	if c.LibraryRoot == "" {
		return fmt.Errorf("library root is required (provide via --library flag or %s in config)", KeyLibraryRoot)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required (provide via --output flag or %s in config)", KeyOutputDir)
	}
	if c.SidecarRoot == "" {
		c.SidecarRoot = c.LibraryRoot
	}
	if c.MediaRoot == "" {
		c.MediaRoot = c.LibraryRoot
	}

	for _, dir := range []string{c.LibraryRoot, c.SidecarRoot} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("library directory %s is not readable: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("library path %s is not a directory", dir)
		}
	}

	if c.MinMembers < 1 {
		return fmt.Errorf("minimum collection size must be at least 1, got %d", c.MinMembers)
	}
	switch c.OverviewSource {
	case OverviewProvider, OverviewLocal:
	case "":
		c.OverviewSource = OverviewProvider
	default:
		return fmt.Errorf("invalid overview source %q (want %q or %q)", c.OverviewSource, OverviewProvider, OverviewLocal)
	}
	switch c.Layout {
	case LayoutDirectory, LayoutFlat:
	case "":
		c.Layout = LayoutDirectory
	default:
		return fmt.Errorf("invalid output layout %q (want %q or %q)", c.Layout, LayoutDirectory, LayoutFlat)
	}
	if c.Throttle < 0 {
		return fmt.Errorf("throttle must not be negative, got %s", c.Throttle)
	}
	if c.ImageMaxWidth < 0 {
		return fmt.Errorf("image max width must not be negative, got %d", c.ImageMaxWidth)
	}

	if c.SidecarExtension == "" {
		c.SidecarExtension = ".nfo"
	}
	if !strings.HasPrefix(c.SidecarExtension, ".") {
		c.SidecarExtension = "." + c.SidecarExtension
	}
	c.SidecarExtension = strings.ToLower(c.SidecarExtension)

	return nil
}

// EnrichmentEnabled reports whether a TMDB key is configured.
func (c *Config) EnrichmentEnabled() bool {
	return c.TMDBAPIKey != ""
}

func parseDuration(key string) (time.Duration, error) {
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}
