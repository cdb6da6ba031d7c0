// Package artifact encodes collection metadata as the media server's
// collection.xml document and places it in the output tree.
package artifact

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"

	"github.com/lepinkainen/boxset/internal/config"
	"github.com/lepinkainen/boxset/internal/fileutil"
)

// Fixed values the media server expects on every collection.
const (
	ContentRating = "NR"
	DisplayOrder  = "PremiereDate"

	// FileName is the artifact name inside a collection directory.
	FileName = "collection.xml"
)

// Item is the root element of a collection artifact. Field order is the
// element order in the output.
type Item struct {
	XMLName         xml.Name        `xml:"Item"`
	ContentRating   string          `xml:"ContentRating"`
	LockData        bool            `xml:"LockData"`
	Overview        string          `xml:"Overview"`
	LocalTitle      string          `xml:"LocalTitle"`
	DisplayOrder    string          `xml:"DisplayOrder"`
	Genres          genres          `xml:"Genres"`
	Studios         studios         `xml:"Studios"`
	CollectionItems collectionItems `xml:"CollectionItems"`
	CollectionID    int             `xml:"CollectionID,omitempty"`
}

type genres struct {
	Genre []string `xml:"Genre"`
}

type studios struct {
	Studio []string `xml:"Studio"`
}

type collectionItems struct {
	Items []collectionItem `xml:"CollectionItem"`
}

type collectionItem struct {
	Path string `xml:"Path"`
}

// Entry is the collection data an Item is built from.
type Entry struct {
	Name         string
	Overview     string
	Genres       []string
	Studios      []string
	RelPaths     []string
	CollectionID int
}

// NewItem builds an Item, joining each member path onto mediaRoot.
func NewItem(e Entry, mediaRoot string) *Item {
	item := &Item{
		ContentRating: ContentRating,
		LockData:      false,
		Overview:      e.Overview,
		LocalTitle:    e.Name,
		DisplayOrder:  DisplayOrder,
		Genres:        genres{Genre: e.Genres},
		Studios:       studios{Studio: e.Studios},
		CollectionID:  e.CollectionID,
	}
	for _, rel := range e.RelPaths {
		item.CollectionItems.Items = append(item.CollectionItems.Items, collectionItem{
			Path: filepath.Join(mediaRoot, rel),
		})
	}
	return item
}

// Paths returns the member paths in document order.
func (i *Item) Paths() []string {
	out := make([]string, 0, len(i.CollectionItems.Items))
	for _, ci := range i.CollectionItems.Items {
		out = append(out, ci.Path)
	}
	return out
}

// Encode writes the XML header, the indented document and a trailing newline.
func Encode(w io.Writer, item *Item) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(item); err != nil {
		return fmt.Errorf("encode collection %q: %w", item.LocalTitle, err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Marshal returns the encoded document.
func Marshal(item *Item) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, item); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a document produced by Encode.
func Decode(r io.Reader) (*Item, error) {
	var item Item
	if err := xml.NewDecoder(r).Decode(&item); err != nil {
		return nil, fmt.Errorf("decode collection artifact: %w", err)
	}
	return &item, nil
}

// Write encodes item to path atomically.
func Write(path string, item *Item) error {
	return fileutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return Encode(w, item)
	})
}

// Placement computes where a collection's files go under the output directory.
type Placement struct {
	OutputDir string
	Layout    config.Layout
	DirSuffix string
}

// NewPlacement returns the placement described by cfg.
func NewPlacement(cfg *config.Config) Placement {
	return Placement{
		OutputDir: cfg.OutputDir,
		Layout:    cfg.Layout,
		DirSuffix: cfg.DirSuffix,
	}
}

// ArtifactPath returns the artifact path for a collection name.
func (p Placement) ArtifactPath(name string) string {
	if p.Layout == config.LayoutFlat {
		return filepath.Join(p.OutputDir, name+".xml")
	}
	return filepath.Join(p.OutputDir, name+p.DirSuffix, FileName)
}

// ArtworkPath returns the path for an artwork file such as "backdrop.jpg".
func (p Placement) ArtworkPath(name, fileName string) string {
	if p.Layout == config.LayoutFlat {
		return filepath.Join(p.OutputDir, name+"-"+fileName)
	}
	return filepath.Join(p.OutputDir, name+p.DirSuffix, fileName)
}
