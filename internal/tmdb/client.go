// Package tmdb provides a client for TheMovieDB API.
package tmdb

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lepinkainen/boxset/internal/cache"
	"github.com/lepinkainen/boxset/internal/ratelimit"
)

const (
	defaultBaseURL       = "https://api.themoviedb.org/3"
	defaultImageBaseURL  = "https://image.tmdb.org/t/p/original"
	defaultExportBaseURL = "https://files.tmdb.org/p/exports"
	defaultMaxAttempts   = 3
	// DefaultThrottle is the minimum delay between consecutive TMDB requests.
	DefaultThrottle = 100 * time.Millisecond
)

var (
	// ErrNotFound is returned when TMDB answers 404 for a resource.
	ErrNotFound = errors.New("tmdb: not found")
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is a TMDB API client.
type Client struct {
	apiKey        string
	baseURL       string
	imageBaseURL  string
	exportBaseURL string
	httpClient    HTTPDoer
	rateLimiter   *ratelimit.Limiter
	cache         *cache.CacheDB
	mu            sync.RWMutex
	genreCache    map[string]map[int]string
	retryAttempts int
}

// NewClient creates a new TMDB API client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:        apiKey,
		baseURL:       defaultBaseURL,
		imageBaseURL:  defaultImageBaseURL,
		exportBaseURL: defaultExportBaseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		rateLimiter:   ratelimit.NewInterval("TMDB", DefaultThrottle),
		genreCache:    make(map[string]map[int]string),
		retryAttempts: defaultMaxAttempts,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// HTTPClient returns the HTTP client used for API and image requests.
func (c *Client) HTTPClient() HTTPDoer {
	return c.httpClient
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithBaseURL sets a custom base URL for the TMDB API.
func WithBaseURL(base string) Option {
	return func(client *Client) {
		if base != "" {
			client.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithImageBaseURL sets a custom base URL for TMDB images.
func WithImageBaseURL(base string) Option {
	return func(client *Client) {
		if base != "" {
			client.imageBaseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithExportBaseURL sets a custom base URL for the daily ID exports.
func WithExportBaseURL(base string) Option {
	return func(client *Client) {
		if base != "" {
			client.exportBaseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithRetryAttempts sets the number of retry attempts for failed requests.
func WithRetryAttempts(attempts int) Option {
	return func(client *Client) {
		if attempts > 0 {
			client.retryAttempts = attempts
		}
	}
}

// WithRateLimiter sets a custom rate limiter for the client.
func WithRateLimiter(limiter *ratelimit.Limiter) Option {
	return func(client *Client) {
		if limiter != nil {
			client.rateLimiter = limiter
		}
	}
}

// WithThrottle sets the minimum delay between consecutive requests.
func WithThrottle(interval time.Duration) Option {
	return func(client *Client) {
		client.rateLimiter = ratelimit.NewInterval("TMDB", interval)
	}
}

// WithCache stores API responses in the given cache. A nil cache disables caching.
func WithCache(c *cache.CacheDB) Option {
	return func(client *Client) {
		client.cache = c
	}
}
