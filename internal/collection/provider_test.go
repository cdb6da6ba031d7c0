package collection

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lepinkainen/boxset/internal/tmdb"
)

// fakeProvider records every call so tests can assert on network usage.
type fakeProvider struct {
	mu sync.Mutex

	index       tmdb.CollectionIndex
	collections map[int]*tmdb.Collection
	images      map[int]*tmdb.Images
	genres      map[int]string
	studios     map[int][]string
	imageBase   string

	collectionErr error
	imagesErr     error
	studiosErr    error

	calls []string
}

func (f *fakeProvider) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeProvider) LoadCollectionIndex(_ context.Context, _ time.Time, _ *slog.Logger) tmdb.CollectionIndex {
	f.record("index")
	return f.index
}

func (f *fakeProvider) GetCollection(_ context.Context, id int) (*tmdb.Collection, error) {
	f.record("collection")
	if f.collectionErr != nil {
		return nil, f.collectionErr
	}
	c, ok := f.collections[id]
	if !ok {
		return nil, tmdb.ErrNotFound
	}
	return c, nil
}

func (f *fakeProvider) GetCollectionImages(_ context.Context, id int) (*tmdb.Images, error) {
	f.record("images")
	if f.imagesErr != nil {
		return nil, f.imagesErr
	}
	if img, ok := f.images[id]; ok {
		return img, nil
	}
	return &tmdb.Images{ID: id}, nil
}

func (f *fakeProvider) GenreNames(_ context.Context, ids []int) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	f.record("genres")
	seen := make(map[int]bool)
	var names []string
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if name, ok := f.genres[id]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (f *fakeProvider) MovieStudios(_ context.Context, movieID int) ([]string, error) {
	f.record("studios")
	if f.studiosErr != nil {
		return nil, f.studiosErr
	}
	return f.studios[movieID], nil
}

func (f *fakeProvider) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	return f.imageBase + path
}

// indexOf builds a collection index from names in sorted order.
func indexOf(names map[string]int) tmdb.CollectionIndex {
	keys := make([]string, 0, len(names))
	for name := range names {
		keys = append(keys, name)
	}
	sort.Strings(keys)

	var idx tmdb.CollectionIndex
	for _, name := range keys {
		idx.Add(name, names[name])
	}
	return idx
}

func alphaProvider(imageBase string) *fakeProvider {
	return &fakeProvider{
		index: indexOf(map[string]int{"Alpha Trilogy": 10}),
		collections: map[int]*tmdb.Collection{
			10: {
				ID:       10,
				Name:     "Alpha Trilogy",
				Overview: "Provider overview.",
				Parts: []tmdb.Part{
					{ID: 1, Title: "Alpha One", GenreIDs: []int{28, 18}},
					{ID: 2, Title: "Alpha Two", GenreIDs: []int{18, 878}},
				},
			},
		},
		images: map[int]*tmdb.Images{
			10: {
				ID: 10,
				Backdrops: []tmdb.Image{
					{FilePath: "/b_fr.jpg", Language: "fr"},
					{FilePath: "/b_en.jpg", Language: "en"},
				},
				Posters: []tmdb.Image{
					{FilePath: "/p1.jpg"},
				},
			},
		},
		genres:    map[int]string{28: "Action", 18: "Drama", 878: "Science Fiction"},
		studios:   map[int][]string{1: {"Alpha Pictures"}, 2: {"Alpha Pictures", "Beta Films"}},
		imageBase: imageBase,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
