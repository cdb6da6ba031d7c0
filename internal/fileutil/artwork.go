package fileutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/disintegration/imaging"
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// ArtworkOptions holds options for downloading one artwork image.
type ArtworkOptions struct {
	// URL is the absolute source URL of the image
	URL string
	// Path is the destination file
	Path string
	// Overwrite forces re-downloading even if the file exists
	Overwrite bool
	// MaxWidth re-encodes wider images as JPEG scaled to this width; 0 keeps the original bytes
	MaxWidth int
}

// ArtworkResult holds the result of an artwork download.
type ArtworkResult struct {
	// Downloaded indicates if a new file was written
	Downloaded bool
	// Path is the destination file
	Path string
}

// DownloadArtwork downloads an image to opts.Path.
// It skips downloading if the file already exists and Overwrite is false.
func DownloadArtwork(ctx context.Context, client HTTPDoer, opts ArtworkOptions) (*ArtworkResult, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("artwork URL is empty")
	}

	result := &ArtworkResult{Path: opts.Path}

	if FileExists(opts.Path) && !opts.Overwrite {
		slog.Debug("Artwork already exists, skipping download", "path", opts.Path)
		return result, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download artwork: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d downloading artwork from %s", resp.StatusCode, opts.URL)
	}

	if err := WriteFileAtomic(opts.Path, 0o644, func(w io.Writer) error {
		if opts.MaxWidth > 0 {
			return resizeJPEG(resp.Body, w, opts.MaxWidth)
		}
		_, err := io.Copy(w, resp.Body)
		return err
	}); err != nil {
		return nil, err
	}

	slog.Info("Downloaded artwork", "path", opts.Path)
	result.Downloaded = true
	return result, nil
}

func resizeJPEG(r io.Reader, w io.Writer, maxWidth int) error {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(85))
}
