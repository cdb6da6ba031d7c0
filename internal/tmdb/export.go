package tmdb

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// CollectionIndex maps collection display names to TMDB IDs. Lookups try
// the exact name first and then a case- and whitespace-folded form.
// The zero value is an empty index.
type CollectionIndex struct {
	byName map[string]int
	byFold map[string]int
	// Skipped counts export lines that were malformed or incomplete.
	Skipped int
}

// Add records name. The first ID seen for a name, or for its folded form, wins.
func (idx *CollectionIndex) Add(name string, id int) {
	if idx.byName == nil {
		idx.byName = make(map[string]int)
		idx.byFold = make(map[string]int)
	}
	if _, exists := idx.byName[name]; !exists {
		idx.byName[name] = id
	}
	key := foldName(name)
	if _, exists := idx.byFold[key]; !exists {
		idx.byFold[key] = id
	}
}

// Lookup returns the TMDB ID for name.
func (idx CollectionIndex) Lookup(name string) (int, bool) {
	if id, ok := idx.byName[name]; ok {
		return id, true
	}
	id, ok := idx.byFold[foldName(name)]
	return id, ok
}

// Len returns the number of distinct names.
func (idx CollectionIndex) Len() int {
	return len(idx.byName)
}

// foldName lowercases name and collapses runs of whitespace.
func foldName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

type exportRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CollectionExportURL returns the daily collection ID export URL for day.
func (c *Client) CollectionExportURL(day time.Time) string {
	return fmt.Sprintf("%s/collection_ids_%s.json.gz", c.exportBaseURL, day.UTC().Format("01_02_2006"))
}

// FetchCollectionIndex downloads and parses the collection ID export for day.
// Malformed lines are skipped; transport, status and gzip failures are returned.
func (c *Client) FetchCollectionIndex(ctx context.Context, day time.Time) (CollectionIndex, error) {
	exportURL := c.CollectionExportURL(day)

	resp, err := c.get(ctx, exportURL)
	if err != nil {
		return CollectionIndex{}, fmt.Errorf("fetch collection export: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return CollectionIndex{}, fmt.Errorf("fetch collection export %s: %w", exportURL, err)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return CollectionIndex{}, fmt.Errorf("decompress collection export: %w", err)
	}
	defer func() { _ = gz.Close() }()

	return ParseCollectionIndex(gz)
}

// LoadCollectionIndex is the best-effort form of FetchCollectionIndex used by a
// run: on failure it logs and returns an empty index. When the export for now
// is not published yet (404) the previous day's export is tried once.
func (c *Client) LoadCollectionIndex(ctx context.Context, now time.Time, logger *slog.Logger) CollectionIndex {
	if logger == nil {
		logger = slog.Default()
	}

	idx, err := c.FetchCollectionIndex(ctx, now)
	if errors.Is(err, ErrNotFound) {
		logger.Info("Today's collection export is not published yet, trying previous day")
		idx, err = c.FetchCollectionIndex(ctx, now.AddDate(0, 0, -1))
	}
	if err != nil {
		logger.Warn("Could not load TMDB collection index, continuing without remote IDs", "error", err)
		return CollectionIndex{}
	}

	logger.Info("Loaded TMDB collection index", "collections", idx.Len(), "skipped_lines", idx.Skipped)
	return idx
}

// ParseCollectionIndex reads newline-delimited JSON records of the form
// {"id":N,"name":"..."}. Lines that do not decode, or lack a name or a
// positive ID, are counted in Skipped. Only read errors are returned.
func ParseCollectionIndex(r io.Reader) (CollectionIndex, error) {
	var idx CollectionIndex
	br := bufio.NewReader(r)

	for {
		line, readErr := br.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			var rec exportRecord
			if err := json.Unmarshal(line, &rec); err != nil || rec.Name == "" || rec.ID <= 0 {
				idx.Skipped++
			} else {
				idx.Add(rec.Name, rec.ID)
			}
		}
		if errors.Is(readErr, io.EOF) {
			return idx, nil
		}
		if readErr != nil {
			return CollectionIndex{}, fmt.Errorf("read collection export: %w", readErr)
		}
	}
}
