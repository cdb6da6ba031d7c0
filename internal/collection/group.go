// Package collection groups parsed movie sidecars into collections, merges
// and enriches their metadata, and emits one artifact per collection.
package collection

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Member is one movie of a collection.
type Member struct {
	Title string
	// RelPath is the video path relative to the library root.
	RelPath string
	// Date is the YYYY-MM-DD token from the video file name, if any.
	Date string
}

// ArtworkRef is an image to download next to the artifact.
type ArtworkRef struct {
	URL      string
	FileName string
}

// Group is a collection being assembled during a run.
// Movies is never empty once the group exists.
type Group struct {
	// Name is the normalized collection name, safe as a path segment.
	Name string
	// SourceName is the collection name as first seen in a sidecar.
	SourceName   string
	Overview     string
	Genres       []string
	Studios      []string
	Movies       []Member
	CollectionID int
	Artwork      []ArtworkRef

	genreSet  map[string]struct{}
	studioSet map[string]struct{}
}

func newGroup(sourceName, overview string) *Group {
	return &Group{
		Name:       NormalizeName(sourceName),
		SourceName: sourceName,
		Overview:   overview,
		genreSet:   make(map[string]struct{}),
		studioSet:  make(map[string]struct{}),
	}
}

// add appends a member and unions its genres and studios into the group.
func (g *Group) add(m Member, genres, studios []string) {
	g.Movies = append(g.Movies, m)
	g.Genres = union(g.Genres, g.genreSet, genres)
	g.Studios = union(g.Studios, g.studioSet, studios)
}

// RelPaths returns member paths in member order.
func (g *Group) RelPaths() []string {
	paths := make([]string, 0, len(g.Movies))
	for _, m := range g.Movies {
		paths = append(paths, m.RelPath)
	}
	return paths
}

// union appends values not yet in seen, keeping first-seen order.
// Comparison is exact.
func union(dst []string, seen map[string]struct{}, values []string) []string {
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}

// dedupe returns values without repeats, keeping first-seen order.
func dedupe(values []string) []string {
	return union(nil, make(map[string]struct{}, len(values)), values)
}

var separatorReplacer = strings.NewReplacer("/", " - ", "\\", " - ")

// NormalizeName makes a collection name usable as a single path segment
// below the output directory. Names made only of dots ("." or "..") would
// escape that directory and normalize to "".
func NormalizeName(name string) string {
	name = strings.TrimSpace(separatorReplacer.Replace(name))
	if strings.Trim(name, ".") == "" {
		return ""
	}
	return name
}

var dateToken = regexp.MustCompile(`\((\d{4}-\d{2}-\d{2})\)`)

// DateFromPath extracts the "(YYYY-MM-DD)" token from a video file name.
func DateFromPath(path string) string {
	m := dateToken.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return ""
	}
	return m[1]
}

// SortByDate orders members by date, undated first. Ties keep their order.
func SortByDate(members []Member) {
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Date < members[j].Date
	})
}
