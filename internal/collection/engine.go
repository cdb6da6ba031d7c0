package collection

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lepinkainen/boxset/internal/artifact"
	"github.com/lepinkainen/boxset/internal/config"
	"github.com/lepinkainen/boxset/internal/fileutil"
	"github.com/lepinkainen/boxset/internal/nfo"
	"github.com/lepinkainen/boxset/internal/report"
	"github.com/lepinkainen/boxset/internal/tmdb"
	"github.com/lepinkainen/boxset/internal/video"
)

// Engine runs one build pass over a library.
type Engine struct {
	cfg        *config.Config
	provider   Provider
	httpClient fileutil.HTTPDoer
	locator    *video.Locator
	placement  artifact.Placement
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithProvider sets the remote metadata provider. It is only used when
// the configuration carries a provider key.
func WithProvider(p Provider) Option {
	return func(e *Engine) {
		e.provider = p
	}
}

// WithHTTPClient sets the client used for artwork downloads.
func WithHTTPClient(c fileutil.HTTPDoer) Option {
	return func(e *Engine) {
		if c != nil {
			e.httpClient = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the time source used for the report and export date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine for cfg. cfg must already be validated.
func NewEngine(cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		locator:    video.NewLocator(cfg.VideoExtensions),
		placement:  artifact.NewPlacement(cfg),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run discovers sidecars, groups them into collections, filters small
// groups, enriches the rest and writes one artifact per collection.
// Only an unreadable sidecar root or cancellation ends the run early;
// per-record and per-collection failures are logged and counted.
func (e *Engine) Run(ctx context.Context) (*report.Report, error) {
	rep := report.New(e.now())

	libRoot, err := filepath.Abs(e.cfg.LibraryRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve library root: %w", err)
	}

	records, err := e.discover(ctx, rep)
	if err != nil {
		return nil, err
	}

	groups := e.group(records, libRoot, rep)
	groups = e.filter(groups, rep)

	reasons := e.enrich(ctx, groups, rep)

	err = e.emit(ctx, groups, reasons, rep)
	rep.Finish(e.now())
	if err != nil {
		return rep, err
	}
	return rep, nil
}

func (e *Engine) discover(ctx context.Context, rep *report.Report) ([]*nfo.MovieRecord, error) {
	root := e.cfg.SidecarRoot
	ext := strings.ToLower(e.cfg.SidecarExtension)

	var records []*nfo.MovieRecord
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			e.logger.Warn("Skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ext) {
			return nil
		}

		rep.SidecarsScanned++
		rec, parseErr := nfo.ParseFile(path)
		if parseErr != nil {
			rep.ParseFailures++
			e.logger.Warn("Skipping unparseable sidecar", "path", path, "error", parseErr)
			return nil
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan sidecars in %s: %w", root, err)
	}

	e.logger.Debug("Discovered sidecars", "root", root, "parsed", len(records), "failed", rep.ParseFailures)
	return records, nil
}

// group builds collections in discovery order and returns them sorted by name.
func (e *Engine) group(records []*nfo.MovieRecord, libRoot string, rep *report.Report) []*Group {
	byName := make(map[string]*Group)

	for _, rec := range records {
		if !rec.HasCollection() {
			rep.NoCollection++
			continue
		}
		name := NormalizeName(rec.CollectionName)
		if name == "" {
			rep.NoCollection++
			e.logger.Warn("Collection name is not usable as a directory name, ignoring",
				"sidecar", rec.SidecarPath, "collection", rec.CollectionName)
			continue
		}

		videoPath, ok := e.locator.Find(rec.SidecarPath)
		if !ok {
			rep.MissingVideo++
			e.logger.Warn("No matching video file found for sidecar", "sidecar", rec.SidecarPath)
			continue
		}
		rec.VideoPath = videoPath

		rel, err := relativeTo(libRoot, videoPath)
		if err != nil {
			rep.MissingVideo++
			e.logger.Warn("Video file is not below the library root", "video", videoPath, "error", err)
			continue
		}

		g, exists := byName[name]
		if !exists {
			g = newGroup(rec.CollectionName, rec.Overview)
			byName[name] = g
		}
		g.add(Member{Title: rec.Title, RelPath: rel, Date: DateFromPath(videoPath)}, rec.Genres, rec.Studios)
	}

	groups := make([]*Group, 0, len(byName))
	for _, g := range byName {
		if e.cfg.SortByDate {
			SortByDate(g.Movies)
		}
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })

	rep.GroupsFound = len(groups)
	return groups
}

// relativeTo returns path relative to root, failing when path lies outside it.
func relativeTo(root, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", abs, root)
	}
	return rel, nil
}

func (e *Engine) filter(groups []*Group, rep *report.Report) []*Group {
	kept := groups[:0]
	for _, g := range groups {
		if len(g.Movies) < e.cfg.MinMembers {
			rep.GroupsDropped++
			e.logger.Debug("Dropping collection below minimum size",
				"collection", g.Name, "movies", len(g.Movies), "min", e.cfg.MinMembers)
			continue
		}
		kept = append(kept, g)
	}
	return kept
}

// enrich returns the enrichment reason per group index. Groups whose
// artifact will be skipped are not looked up.
func (e *Engine) enrich(ctx context.Context, groups []*Group, rep *report.Report) []Reason {
	reasons := make([]Reason, len(groups))

	var provider Provider
	if e.cfg.EnrichmentEnabled() {
		provider = e.provider
	}

	var pending []int
	for i, g := range groups {
		if e.skipEmit(g) {
			e.logger.Debug("Artifact exists, not enriching", "collection", g.Name)
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return reasons
	}

	var index tmdb.CollectionIndex
	if provider != nil {
		index = provider.LoadCollectionIndex(ctx, e.now(), e.logger)
		rep.IndexSize = index.Len()
	}
	enricher := NewEnricher(provider, index, e.cfg.FetchStudios, e.logger)
	preferProvider := e.cfg.OverviewSource != config.OverviewLocal

	for _, i := range pending {
		if ctx.Err() != nil {
			break
		}
		g := groups[i]
		res := enricher.Enrich(ctx, g)
		if res.Reason == ReasonOK {
			apply(g, res.Data, preferProvider)
		}
		reasons[i] = res.Reason
	}
	return reasons
}

func (e *Engine) skipEmit(g *Group) bool {
	return !e.cfg.Overwrite && fileutil.FileExists(e.placement.ArtifactPath(g.Name))
}

func (e *Engine) emit(ctx context.Context, groups []*Group, reasons []Reason, rep *report.Report) error {
	for i, g := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := e.placement.ArtifactPath(g.Name)
		entry := report.Collection{
			Name:         g.Name,
			Members:      len(g.Movies),
			Artifact:     path,
			CollectionID: g.CollectionID,
			Enrichment:   string(reasons[i]),
		}

		if e.skipEmit(g) {
			e.logger.Info("Collection artifact already exists, skipping", "collection", g.Name, "path", path)
			entry.Status = report.StatusSkipped
			rep.Add(entry)
			continue
		}

		item := artifact.NewItem(artifact.Entry{
			Name:         g.Name,
			Overview:     g.Overview,
			Genres:       g.Genres,
			Studios:      g.Studios,
			RelPaths:     g.RelPaths(),
			CollectionID: g.CollectionID,
		}, e.cfg.MediaRoot)

		if err := artifact.Write(path, item); err != nil {
			e.logger.Error("Failed to write collection artifact", "collection", g.Name, "path", path, "error", err)
			entry.Status = report.StatusFailed
			entry.Error = err.Error()
			rep.Add(entry)
			continue
		}
		e.logger.Info("Wrote collection artifact", "collection", g.Name, "movies", len(g.Movies), "path", path)
		entry.Status = report.StatusWritten

		for _, ref := range g.Artwork {
			res, err := fileutil.DownloadArtwork(ctx, e.httpClient, fileutil.ArtworkOptions{
				URL:       ref.URL,
				Path:      e.placement.ArtworkPath(g.Name, ref.FileName),
				Overwrite: e.cfg.Overwrite,
				MaxWidth:  e.cfg.ImageMaxWidth,
			})
			if err != nil {
				entry.ArtworkFail++
				e.logger.Warn("Failed to download artwork", "collection", g.Name, "file", ref.FileName, "error", err)
				continue
			}
			if res.Downloaded {
				entry.Artwork++
			}
		}

		rep.Add(entry)
	}
	return nil
}
