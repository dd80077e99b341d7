package nominatim

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/placxborcx/Onboarding-MainPage/internal/upstream"
)

const (
	// DefaultBaseURL is the public Nominatim API endpoint
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	// DefaultUserAgent follows OSM usage policy requirements
	DefaultUserAgent = "parkfinder/1.0"
	// DefaultTimeout for HTTP requests
	DefaultTimeout = 5 * time.Second
	// DefaultRateLimit is 1 request per second (OSM policy)
	DefaultRateLimit = 1.0
	// MaxLimit is the largest result count Nominatim honours
	MaxLimit = 50
)

// Client handles communication with the Nominatim geocoding API.
type Client struct {
	fetcher *upstream.Fetcher
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit sets a custom rate limit (requests per second).
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.fetcher.Limiter.SetLimit(rate.Limit(rps))
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.fetcher.HTTPClient.Timeout = d
		}
	}
}

// WithRetryDelay sets the base backoff delay between retries.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.fetcher.BaseDelay = d
	}
}

// NewClient creates a new Nominatim API client. email is included in the
// User-Agent header per OSM usage policy.
func NewClient(baseURL, email string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := DefaultUserAgent
	if email != "" {
		userAgent = fmt.Sprintf("%s (%s)", DefaultUserAgent, email)
	}

	client := &Client{
		fetcher: upstream.NewFetcher(userAgent, DefaultTimeout, DefaultRateLimit),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Search performs forward geocoding (query -> coordinates).
// Returns up to opts.Limit results (default: 1).
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")

	if opts.CountryCodes != "" {
		params.Set("countrycodes", opts.CountryCodes)
	}
	params.Set("limit", strconv.Itoa(min(max(opts.Limit, 1), MaxLimit)))

	if opts.Viewbox != nil {
		params.Set("viewbox", fmt.Sprintf("%f,%f,%f,%f",
			opts.Viewbox.MinLon, opts.Viewbox.MinLat,
			opts.Viewbox.MaxLon, opts.Viewbox.MaxLat))
		if opts.Bounded {
			params.Set("bounded", "1")
		}
	}

	var results []SearchResult
	if err := c.fetcher.GetJSON(ctx, c.baseURL+"/search?"+params.Encode(), &results); err != nil {
		return nil, fmt.Errorf("search geocoding: %w", err)
	}
	return results, nil
}

// Reverse performs reverse geocoding (coordinates -> address).
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*ReverseResult, error) {
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("invalid latitude: %f (must be between -90 and 90)", lat)
	}
	if lon < -180 || lon > 180 {
		return nil, fmt.Errorf("invalid longitude: %f (must be between -180 and 180)", lon)
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")

	var result ReverseResult
	if err := c.fetcher.GetJSON(ctx, c.baseURL+"/reverse?"+params.Encode(), &result); err != nil {
		return nil, fmt.Errorf("reverse geocoding: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("reverse geocoding: %s", result.Error)
	}
	return &result, nil
}
