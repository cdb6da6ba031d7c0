// Package report records the outcome of a build run and writes it as YAML.
package report

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/boxset/internal/fileutil"
)

// Status is the outcome of emitting one collection.
type Status string

const (
	StatusWritten Status = "written"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Collection is the per-collection entry of a run report.
type Collection struct {
	Name         string `yaml:"name"`
	Members      int    `yaml:"members"`
	Artifact     string `yaml:"artifact"`
	Status       Status `yaml:"status"`
	CollectionID int    `yaml:"collection_id,omitempty"`
	Enrichment   string `yaml:"enrichment,omitempty"`
	Artwork      int    `yaml:"artwork_downloaded,omitempty"`
	ArtworkFail  int    `yaml:"artwork_failed,omitempty"`
	Error        string `yaml:"error,omitempty"`
}

// Report summarizes one build run.
type Report struct {
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`

	SidecarsScanned int `yaml:"sidecars_scanned"`
	ParseFailures   int `yaml:"parse_failures"`
	NoCollection    int `yaml:"no_collection"`
	MissingVideo    int `yaml:"missing_video"`
	GroupsFound     int `yaml:"groups_found"`
	GroupsDropped   int `yaml:"groups_dropped"`
	IndexSize       int `yaml:"collection_index_size,omitempty"`

	Written int `yaml:"written"`
	Skipped int `yaml:"skipped"`
	Failed  int `yaml:"failed"`

	Collections []Collection `yaml:"collections"`
}

// New returns an empty report stamped with the start time.
func New(start time.Time) *Report {
	return &Report{StartedAt: start.UTC()}
}

// Add records a collection outcome and updates the status counters.
func (r *Report) Add(c Collection) {
	switch c.Status {
	case StatusWritten:
		r.Written++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
	r.Collections = append(r.Collections, c)
}

// Finish stamps the end time.
func (r *Report) Finish(end time.Time) {
	r.FinishedAt = end.UTC()
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Encode writes the report as YAML.
func (r *Report) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

// WriteFile writes the report to path, replacing any previous report.
func (r *Report) WriteFile(path string) error {
	if err := fileutil.WriteFileAtomic(path, 0o644, r.Encode); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

// Load reads a report previously written by WriteFile.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}

// Log emits the run summary at Info level.
func (r *Report) Log(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Build complete",
		"sidecars", r.SidecarsScanned,
		"parse_failures", r.ParseFailures,
		"missing_video", r.MissingVideo,
		"groups", r.GroupsFound,
		"dropped", r.GroupsDropped,
		"written", r.Written,
		"skipped", r.Skipped,
		"failed", r.Failed,
		"duration", r.Duration().Round(time.Millisecond),
	)
}
