package datastore

import (
	"fmt"
	"time"

	"github.com/lepinkainen/boxset/internal/report"
)

// CollectionsTable holds the latest outcome per collection name.
const CollectionsTable = "collections"

// CollectionsSchema is the DDL for CollectionsTable.
const CollectionsSchema = `CREATE TABLE IF NOT EXISTS collections (
	name TEXT PRIMARY KEY,
	members INTEGER NOT NULL,
	artifact TEXT,
	status TEXT NOT NULL,
	collection_id INTEGER,
	enrichment TEXT,
	artwork_downloaded INTEGER,
	artwork_failed INTEGER,
	error TEXT,
	run_at TEXT NOT NULL
)`

// SaveReport records every collection of rep in store. Collections from
// earlier runs that are not in rep are left as they were.
func SaveReport(store Store, rep *report.Report) error {
	if err := store.CreateTable(CollectionsSchema); err != nil {
		return err
	}

	runAt := rep.StartedAt.UTC().Format(time.RFC3339)
	records := make([]map[string]any, 0, len(rep.Collections))
	for _, c := range rep.Collections {
		records = append(records, collectionRecord(c, runAt))
	}

	if err := store.Upsert(CollectionsTable, records); err != nil {
		return fmt.Errorf("save collections: %w", err)
	}
	return nil
}

// SaveReportToFile opens the database at dbPath, saves rep and closes it.
func SaveReportToFile(dbPath string, rep *report.Report) error {
	store := NewSQLiteStore(dbPath)
	if err := store.Connect(); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return SaveReport(store, rep)
}

func collectionRecord(c report.Collection, runAt string) map[string]any {
	return map[string]any{
		"name":               c.Name,
		"members":            c.Members,
		"artifact":           c.Artifact,
		"status":             string(c.Status),
		"collection_id":      nullableInt(c.CollectionID),
		"enrichment":         c.Enrichment,
		"artwork_downloaded": c.Artwork,
		"artwork_failed":     c.ArtworkFail,
		"error":              c.Error,
		"run_at":             runAt,
	}
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}
