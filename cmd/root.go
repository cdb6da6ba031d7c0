package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/boxset/internal/cache"
	"github.com/lepinkainen/boxset/internal/collection"
	"github.com/lepinkainen/boxset/internal/config"
	"github.com/lepinkainen/boxset/internal/datastore"
	"github.com/lepinkainen/boxset/internal/report"
	"github.com/lepinkainen/boxset/internal/tmdb"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"
)

// runEngine is replaced in tests.
var runEngine = func(ctx context.Context, cfg *config.Config, opts ...collection.Option) (*report.Report, error) {
	return collection.NewEngine(cfg, opts...).Run(ctx)
}

// CLI represents the complete command structure for the boxset application
type CLI struct {
	// Global flags
	Verbose bool   `short:"v" help:"Enable debug logging"`
	Config  string `help:"Path to YAML config file (default: ./boxset.yaml or ~/.config/boxset/boxset.yaml)" type:"path"`

	// Cache flags
	CacheDBFile string `name:"cache-db" help:"Path to TMDB response cache SQLite database (empty disables caching)"`
	CacheTTL    string `help:"Cache time-to-live duration (e.g., 720h for 30 days)"`

	Build BuildCmd `cmd:"" help:"Build collection.xml files from movie sidecars"`
	Cache CacheCmd `cmd:"" help:"Manage the TMDB response cache"`
}

// CacheCmd groups cache maintenance subcommands
type CacheCmd struct {
	Invalidate cache.InvalidateCacheCmd `cmd:"" help:"Delete all cached responses of a source"`
}

// BuildCmd represents the build command. Empty flags fall back to the
// config file and then to defaults.
type BuildCmd struct {
	Library        string   `short:"l" help:"Library root that movie paths are made relative to" type:"path"`
	Sidecars       string   `help:"Directory to scan for sidecars (defaults to the library root)" type:"path"`
	MediaRoot      string   `help:"Root to write in collection paths (defaults to the library root)"`
	Output         string   `short:"o" help:"Directory to write collections to" type:"path"`
	TMDBKey        string   `name:"tmdb-key" help:"TMDB API key; enables enrichment and artwork (also TMDB_API_KEY)"`
	Overwrite      bool     `help:"Regenerate existing collection files and artwork"`
	MinMembers     int      `help:"Minimum number of movies for a collection to be written (default 2)"`
	OverviewSource string   `help:"Overview source: provider or local"`
	Layout         string   `help:"Output layout: directory or flat"`
	DirSuffix      string   `help:"Suffix appended to collection directory names (e.g. ' [Boxset]')"`
	SortByDate     bool     `help:"Order movies by the (YYYY-MM-DD) date in their file names"`
	Throttle       string   `help:"Minimum delay between TMDB requests (default 100ms)"`
	VideoExt       []string `name:"video-ext" help:"Video file extension to look for; repeatable"`
	SidecarExt     string   `help:"Sidecar file extension (default .nfo)"`
	ImageMaxWidth  int      `help:"Downscale artwork wider than this many pixels (0 keeps originals)"`
	FetchStudios   bool     `help:"Fetch studios for every collection part from TMDB"`
	Report         string   `help:"Write a YAML run report to this path" type:"path"`
	DatasetteDB    string   `name:"datasette-db" help:"Record collection outcomes in this SQLite database" type:"path"`
}

// Execute runs the Kong-based CLI
func Execute() {
	var cli CLI

	kctx := kong.Parse(&cli,
		kong.Name("boxset"),
		kong.Description("Build media server collection metadata from movie sidecar files."),
		kong.UsageOnError(),
	)

	initLogging(cli.Verbose)

	if err := initConfig(cli.Config); err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	updateGlobalConfig(&cli)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(); err != nil {
		slog.Error("Command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func initConfig(configFile string) error {
	config.SetDefaults()

	viper.SetEnvPrefix("BOXSET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv(config.KeyTMDBAPIKey, "TMDB_API_KEY"); err != nil {
		return fmt.Errorf("bind TMDB_API_KEY: %w", err)
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("boxset")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.config/boxset")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			slog.Debug("No config file found, using flags and defaults")
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	slog.Debug("Loaded config file", "path", viper.ConfigFileUsed())
	return nil
}

func updateGlobalConfig(cli *CLI) {
	if cli.CacheDBFile != "" {
		viper.Set(config.KeyCacheDBFile, cli.CacheDBFile)
	}
	if cli.CacheTTL != "" {
		viper.Set(config.KeyCacheTTL, cli.CacheTTL)
	}
}

// applyFlags copies flags that were given onto viper so they win over the
// config file.
func (b *BuildCmd) applyFlags() {
	setString := func(key, v string) {
		if v != "" {
			viper.Set(key, v)
		}
	}
	setString(config.KeyLibraryRoot, b.Library)
	setString(config.KeySidecarRoot, b.Sidecars)
	setString(config.KeyMediaRoot, b.MediaRoot)
	setString(config.KeyOutputDir, b.Output)
	setString(config.KeyTMDBAPIKey, b.TMDBKey)
	setString(config.KeyOverviewSource, b.OverviewSource)
	setString(config.KeyLayout, b.Layout)
	setString(config.KeyDirSuffix, b.DirSuffix)
	setString(config.KeyThrottle, b.Throttle)
	setString(config.KeySidecarExt, b.SidecarExt)
	setString(config.KeyReportFile, b.Report)
	setString(config.KeyDatasetteDB, b.DatasetteDB)

	if b.Overwrite {
		viper.Set(config.KeyOverwrite, true)
	}
	if b.SortByDate {
		viper.Set(config.KeySortByDate, true)
	}
	if b.FetchStudios {
		viper.Set(config.KeyFetchStudios, true)
	}
	if b.MinMembers != 0 {
		viper.Set(config.KeyMinMembers, b.MinMembers)
	}
	if b.ImageMaxWidth != 0 {
		viper.Set(config.KeyImageMaxWidth, b.ImageMaxWidth)
	}
	if len(b.VideoExt) > 0 {
		viper.Set(config.KeyVideoExtensions, b.VideoExt)
	}
}

// Run executes one build pass.
func (b *BuildCmd) Run(ctx context.Context) error {
	b.applyFlags()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts := []collection.Option{
		collection.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	}

	if cfg.EnrichmentEnabled() {
		var cacheDB *cache.CacheDB
		if cfg.CacheDBFile != "" {
			cacheDB, err = cache.Open(cfg.CacheDBFile, cfg.CacheTTL)
			if err != nil {
				return fmt.Errorf("failed to open cache database: %w", err)
			}
			defer func() { _ = cacheDB.Close() }()
		}

		client := tmdb.NewClient(cfg.TMDBAPIKey,
			tmdb.WithThrottle(cfg.Throttle),
			tmdb.WithCache(cacheDB),
		)
		opts = append(opts,
			collection.WithProvider(client),
			collection.WithHTTPClient(client.HTTPClient()),
		)
	}

	slog.Info("Building collections",
		"library", cfg.LibraryRoot,
		"sidecars", cfg.SidecarRoot,
		"output", cfg.OutputDir,
		"tmdb", cfg.EnrichmentEnabled(),
		"overwrite", cfg.Overwrite,
	)

	rep, runErr := runEngine(ctx, cfg, opts...)
	if rep != nil {
		rep.Log(slog.Default())
		if cfg.ReportFile != "" {
			if err := rep.WriteFile(cfg.ReportFile); err != nil {
				return errors.Join(runErr, err)
			}
			slog.Info("Wrote run report", "path", cfg.ReportFile)
		}
		if cfg.DatasetteDB != "" {
			if err := datastore.SaveReportToFile(cfg.DatasetteDB, rep); err != nil {
				return errors.Join(runErr, err)
			}
			slog.Info("Saved collections to database", "path", cfg.DatasetteDB, "collections", len(rep.Collections))
		}
	}
	return runErr
}

func initLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: level,
	})

	slog.SetDefault(slog.New(handler))
}
