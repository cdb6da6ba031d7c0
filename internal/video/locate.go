// Package video matches sidecar files to the video files next to them.
package video

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtensions is the probe order used when none is configured.
var DefaultExtensions = []string{".mp4", ".mkv", ".avi", ".mov", ".flv", ".wmv", ".webm", ".m4v"}

// Locator finds the video file that shares a sidecar's base name.
type Locator struct {
	extensions []string
}

// NewLocator creates a Locator probing extensions in the given order.
// Entries are normalized to a leading dot; an empty list selects DefaultExtensions.
func NewLocator(extensions []string) *Locator {
	exts := NormalizeExtensions(extensions)
	if len(exts) == 0 {
		exts = append([]string(nil), DefaultExtensions...)
	}
	return &Locator{extensions: exts}
}

// Find returns the video in the sidecar's directory named "<base><ext>" for
// the first configured extension that matches. Extensions match regardless
// of case, so "Movie.MKV" satisfies ".mkv". Only the sidecar's own
// directory is checked.
func (l *Locator) Find(sidecarPath string) (string, bool) {
	dir := filepath.Dir(sidecarPath)
	base := strings.TrimSuffix(filepath.Base(sidecarPath), filepath.Ext(sidecarPath))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	// ReadDir sorts by name, so the first spelling of an extension wins.
	byExt := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext == "" || strings.TrimSuffix(name, ext) != base {
			continue
		}
		key := strings.ToLower(ext)
		if _, seen := byExt[key]; !seen {
			byExt[key] = name
		}
	}

	for _, ext := range l.extensions {
		name, ok := byExt[ext]
		if !ok {
			continue
		}
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return candidate, true
	}
	return "", false
}

// NormalizeExtensions trims, lowercases and dot-prefixes extensions,
// dropping blanks and duplicates while keeping order.
func NormalizeExtensions(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, ext := range in {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	return out
}
