package fileutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/lepinkainen/boxset/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadArtwork_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("fake image data"))
	}))
	defer server.Close()

	env := testutil.NewTestEnv(t)
	dest := env.Path("Alpha Trilogy", "backdrop.jpg")

	result, err := DownloadArtwork(context.Background(), server.Client(), ArtworkOptions{
		URL:  server.URL + "/backdrop.jpg",
		Path: dest,
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Downloaded)
	assert.Equal(t, dest, result.Path)
	assert.Equal(t, "fake image data", env.ReadFileString("Alpha Trilogy/backdrop.jpg"))
}

func TestDownloadArtwork_SkipsExisting(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte("new data"))
	}))
	defer server.Close()

	env := testutil.NewTestEnv(t)
	env.WriteFileString("poster.jpg", "existing")

	result, err := DownloadArtwork(context.Background(), server.Client(), ArtworkOptions{
		URL:  server.URL,
		Path: env.Path("poster.jpg"),
	})
	require.NoError(t, err)
	assert.False(t, result.Downloaded)
	assert.Equal(t, 0, requests)
	assert.Equal(t, "existing", env.ReadFileString("poster.jpg"))

	result, err = DownloadArtwork(context.Background(), server.Client(), ArtworkOptions{
		URL:       server.URL,
		Path:      env.Path("poster.jpg"),
		Overwrite: true,
	})
	require.NoError(t, err)
	assert.True(t, result.Downloaded)
	assert.Equal(t, "new data", env.ReadFileString("poster.jpg"))
}

func TestDownloadArtwork_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	env := testutil.NewTestEnv(t)

	result, err := DownloadArtwork(context.Background(), server.Client(), ArtworkOptions{
		URL:  server.URL,
		Path: env.Path("poster.jpg"),
	})

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "unexpected status 404")
	env.RequireFileNotExists("poster.jpg")
}

func TestDownloadArtwork_EmptyURL(t *testing.T) {
	_, err := DownloadArtwork(context.Background(), http.DefaultClient, ArtworkOptions{Path: "/tmp/x.jpg"})
	assert.Error(t, err)
}

func TestDownloadArtwork_Resize(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for x := 0; x < 400; x++ {
		for y := 0; y < 200; y++ {
			src.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	defer server.Close()

	env := testutil.NewTestEnv(t)
	dest := env.Path("backdrop.jpg")

	_, err := DownloadArtwork(context.Background(), server.Client(), ArtworkOptions{
		URL:      server.URL,
		Path:     dest,
		MaxWidth: 100,
	})
	require.NoError(t, err)

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	img, err := imaging.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}
