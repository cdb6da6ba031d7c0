// Package nfo reads Kodi-style movie sidecar files.
package nfo

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html/charset"
)

// Defaults applied when a sidecar omits a field.
const (
	DefaultTitle    = "Unknown Title"
	DefaultTMDBID   = "Unknown"
	DefaultOverview = "No overview available."
)

// MovieRecord holds the fields of one sidecar needed for grouping and enrichment.
type MovieRecord struct {
	Title  string
	TMDBID string
	// CollectionName is empty when the movie belongs to no collection.
	CollectionName   string
	Overview         string
	OriginalFilename string
	Genres           []string
	Studios          []string

	// SidecarPath is the file the record was read from.
	SidecarPath string
	// VideoPath is filled in by the caller once a video file is matched.
	VideoPath string
}

// HasCollection reports whether the movie names a collection.
func (m *MovieRecord) HasCollection() bool {
	return m.CollectionName != ""
}

// ParseError is returned when a sidecar is not well-formed XML.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse sidecar %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type xmlSet struct {
	Name     string `xml:"name"`
	Overview string `xml:"overview"`
	// Older scrapers write <set>Name</set> without children.
	Text string `xml:",chardata"`
}

type xmlMovie struct {
	Title            *string  `xml:"title"`
	TMDBID           *string  `xml:"tmdbid"`
	Plot             *string  `xml:"plot"`
	OriginalFilename string   `xml:"original_filename"`
	Set              *xmlSet  `xml:"set"`
	Genres           []string `xml:"genre"`
	Studios          []string `xml:"studio"`
}

// ParseFile reads and parses the sidecar at path.
func ParseFile(path string) (*MovieRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sidecar: %w", err)
	}
	defer func() { _ = f.Close() }()

	var raw xmlMovie
	dec := xml.NewDecoder(f)
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&raw); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	rec := fromXML(raw)
	rec.SidecarPath = path
	return rec, nil
}

func fromXML(raw xmlMovie) *MovieRecord {
	rec := &MovieRecord{
		Title:            orDefault(raw.Title, DefaultTitle),
		TMDBID:           orDefault(raw.TMDBID, DefaultTMDBID),
		OriginalFilename: strings.TrimSpace(raw.OriginalFilename),
		Genres:           cleanList(raw.Genres),
		Studios:          cleanList(raw.Studios),
	}

	var setOverview string
	if raw.Set != nil {
		rec.CollectionName = strings.TrimSpace(raw.Set.Name)
		if rec.CollectionName == "" {
			rec.CollectionName = strings.TrimSpace(raw.Set.Text)
		}
		setOverview = strings.TrimSpace(raw.Set.Overview)
	}

	switch {
	case setOverview != "":
		rec.Overview = setOverview
	default:
		rec.Overview = orDefault(raw.Plot, DefaultOverview)
	}

	return rec
}

func orDefault(v *string, def string) string {
	if v == nil {
		return def
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return def
	}
	return s
}

// cleanList trims entries and drops blanks, keeping document order.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
