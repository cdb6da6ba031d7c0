package collection

import (
	"context"
	"log/slog"
	"time"

	"github.com/lepinkainen/boxset/internal/errors"
	"github.com/lepinkainen/boxset/internal/tmdb"
)

// Artwork file names written next to the artifact.
const (
	BackdropFile = "backdrop.jpg"
	PosterFile   = "poster.jpg"
)

// Provider is the remote metadata source used for enrichment.
// *tmdb.Client satisfies it.
type Provider interface {
	LoadCollectionIndex(ctx context.Context, now time.Time, logger *slog.Logger) tmdb.CollectionIndex
	GetCollection(ctx context.Context, collectionID int) (*tmdb.Collection, error)
	GetCollectionImages(ctx context.Context, collectionID int) (*tmdb.Images, error)
	GenreNames(ctx context.Context, ids []int) ([]string, error)
	MovieStudios(ctx context.Context, movieID int) ([]string, error)
	ImageURL(filePath string) string
}

var _ Provider = (*tmdb.Client)(nil)

// Reason says why an enrichment attempt produced the data it did.
type Reason string

const (
	ReasonOK               Reason = "ok"
	ReasonNoProviderKey    Reason = "no_provider_key"
	ReasonNoIdentifier     Reason = "no_identifier"
	ReasonProviderError    Reason = "provider_error"
	ReasonProviderDisabled Reason = "provider_disabled"
)

// EnrichData is what the provider knows about a collection.
type EnrichData struct {
	CollectionID int
	Overview     string
	Genres       []string
	Studios      []string
	Artwork      []ArtworkRef
}

// EnrichResult is the outcome of enriching one group. Data is only
// meaningful when Reason is ReasonOK.
type EnrichResult struct {
	Data   EnrichData
	Reason Reason
	Err    error
}

// runState holds the per-run flags that make some log lines one-shot.
type runState struct {
	noKeyLogged      bool
	providerDisabled bool
}

// Enricher looks up groups in the collection index and fetches their metadata.
type Enricher struct {
	provider     Provider
	index        tmdb.CollectionIndex
	fetchStudios bool
	state        *runState
	logger       *slog.Logger
}

// NewEnricher returns an enricher for one run. A nil provider means no
// provider key is configured and no network calls are made.
func NewEnricher(provider Provider, index tmdb.CollectionIndex, fetchStudios bool, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		provider:     provider,
		index:        index,
		fetchStudios: fetchStudios,
		state:        &runState{},
		logger:       logger,
	}
}

// Enrich fetches provider metadata for g. It never fails the run: problems
// are reported through the result's Reason and Err.
func (e *Enricher) Enrich(ctx context.Context, g *Group) EnrichResult {
	if e.provider == nil {
		if !e.state.noKeyLogged {
			e.logger.Info("No TMDB API key configured, using sidecar metadata only")
			e.state.noKeyLogged = true
		}
		return EnrichResult{Reason: ReasonNoProviderKey}
	}
	if e.state.providerDisabled {
		return EnrichResult{Reason: ReasonProviderDisabled}
	}

	id, ok := e.lookup(g)
	if !ok {
		e.logger.Debug("Collection not found in TMDB index", "collection", g.Name)
		return EnrichResult{Reason: ReasonNoIdentifier}
	}

	coll, err := e.provider.GetCollection(ctx, id)
	if err != nil {
		return e.failed(g, id, err)
	}

	var genreIDs []int
	for _, part := range coll.Parts {
		genreIDs = append(genreIDs, part.GenreIDs...)
	}
	genres, err := e.provider.GenreNames(ctx, genreIDs)
	if err != nil {
		return e.failed(g, id, err)
	}

	data := EnrichData{
		CollectionID: id,
		Overview:     coll.Overview,
		Genres:       genres,
	}

	if e.fetchStudios {
		data.Studios = e.studios(ctx, g, coll.Parts)
	}
	if !e.state.providerDisabled {
		data.Artwork = e.artwork(ctx, g, id)
	}

	e.logger.Debug("Enriched collection from TMDB",
		"collection", g.Name,
		"tmdb_id", id,
		"genres", len(data.Genres),
		"studios", len(data.Studios),
		"artwork", len(data.Artwork),
	)
	return EnrichResult{Data: data, Reason: ReasonOK}
}

func (e *Enricher) lookup(g *Group) (int, bool) {
	if id, ok := e.index.Lookup(g.SourceName); ok {
		return id, true
	}
	return e.index.Lookup(g.Name)
}

func (e *Enricher) failed(g *Group, id int, err error) EnrichResult {
	e.noteRateLimit(err)
	e.logger.Warn("TMDB enrichment failed, keeping sidecar metadata",
		"collection", g.Name, "tmdb_id", id, "error", err)
	return EnrichResult{Reason: ReasonProviderError, Err: err}
}

// noteRateLimit disables the provider for the rest of the run on a 429.
func (e *Enricher) noteRateLimit(err error) {
	if e.state.providerDisabled || !errors.IsRateLimitError(err) {
		return
	}
	e.state.providerDisabled = true
	e.logger.Warn("TMDB rate limit reached, skipping enrichment for remaining collections", "error", err)
}

// studios unions the production companies of every part. A failed part is
// logged and skipped.
func (e *Enricher) studios(ctx context.Context, g *Group, parts []tmdb.Part) []string {
	var all []string
	for _, part := range parts {
		if e.state.providerDisabled || ctx.Err() != nil {
			break
		}
		names, err := e.provider.MovieStudios(ctx, part.ID)
		if err != nil {
			e.noteRateLimit(err)
			e.logger.Warn("Failed to fetch studios", "collection", g.Name, "movie_id", part.ID, "error", err)
			continue
		}
		all = append(all, names...)
	}
	return dedupe(all)
}

// artwork selects one backdrop and one poster. A failed image catalog
// request yields no artwork but keeps the metadata.
func (e *Enricher) artwork(ctx context.Context, g *Group, id int) []ArtworkRef {
	images, err := e.provider.GetCollectionImages(ctx, id)
	if err != nil {
		e.noteRateLimit(err)
		e.logger.Warn("Failed to fetch collection images", "collection", g.Name, "tmdb_id", id, "error", err)
		return nil
	}

	var refs []ArtworkRef
	if path := tmdb.SelectImage(images.Backdrops); path != "" {
		refs = append(refs, ArtworkRef{URL: e.provider.ImageURL(path), FileName: BackdropFile})
	}
	if path := tmdb.SelectImage(images.Posters); path != "" {
		refs = append(refs, ArtworkRef{URL: e.provider.ImageURL(path), FileName: PosterFile})
	}
	return refs
}

// apply merges a successful result into g according to the overview policy.
// Provider genres and studios replace local ones only when non-empty.
func apply(g *Group, data EnrichData, preferProvider bool) {
	g.CollectionID = data.CollectionID
	if preferProvider && data.Overview != "" {
		g.Overview = data.Overview
	}
	if len(data.Genres) > 0 {
		g.Genres = data.Genres
	}
	if len(data.Studios) > 0 {
		g.Studios = data.Studios
	}
	g.Artwork = data.Artwork
}
