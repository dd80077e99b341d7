// Package mapbox is a client for the Mapbox Geocoding v5 places endpoint.
package mapbox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/placxborcx/Onboarding-MainPage/internal/upstream"
)

const (
	// DefaultBaseURL is the public Mapbox API host
	DefaultBaseURL = "https://api.mapbox.com"
	// DefaultTimeout for HTTP requests
	DefaultTimeout = 10 * time.Second
	// DefaultRateLimit stays well inside the free tier's 600 requests per minute
	DefaultRateLimit = 5.0
	// MaxLimit is the largest feature count the places endpoint returns
	MaxLimit = 10

	placesPath = "/geocoding/v5/mapbox.places/"
)

// ErrMissingToken is returned when the client has no access token.
var ErrMissingToken = errors.New("mapbox access token is required")

// Client handles communication with the Mapbox geocoding API.
type Client struct {
	fetcher *upstream.Fetcher
	baseURL string
	token   string
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

// NewClient creates a Mapbox client authenticated with token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &Client{
		fetcher: upstream.NewFetcher("parkfinder/1.0", DefaultTimeout, DefaultRateLimit),
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Forward geocodes free text. Results are biased toward opts.Proximity when set.
func (c *Client) Forward(ctx context.Context, query string, opts ForwardOptions) (*FeatureCollection, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	params := c.params()
	params.Set("autocomplete", "true")
	params.Set("limit", strconv.Itoa(min(max(opts.Limit, 1), MaxLimit)))
	if opts.Proximity != nil {
		params.Set("proximity", lonLat(opts.Proximity.Lon, opts.Proximity.Lat))
	}
	if opts.Country != "" {
		params.Set("country", opts.Country)
	}
	if len(opts.Types) > 0 {
		params.Set("types", strings.Join(opts.Types, ","))
	}
	if opts.BBox != nil {
		params.Set("bbox", fmt.Sprintf("%f,%f,%f,%f", opts.BBox[0], opts.BBox[1], opts.BBox[2], opts.BBox[3]))
	}

	return c.places(ctx, url.PathEscape(query), params)
}

// Reverse returns the features at a coordinate, most specific first.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*FeatureCollection, error) {
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("invalid latitude: %f (must be between -90 and 90)", lat)
	}
	if lon < -180 || lon > 180 {
		return nil, fmt.Errorf("invalid longitude: %f (must be between -180 and 180)", lon)
	}
	return c.places(ctx, lonLat(lon, lat), c.params())
}

func (c *Client) params() url.Values {
	params := url.Values{}
	params.Set("access_token", c.token)
	return params
}

func (c *Client) places(ctx context.Context, search string, params url.Values) (*FeatureCollection, error) {
	if c.token == "" {
		return nil, ErrMissingToken
	}
	var fc FeatureCollection
	requestURL := c.baseURL + placesPath + search + ".json?" + params.Encode()
	if err := c.fetcher.GetJSON(ctx, requestURL, &fc); err != nil {
		return nil, fmt.Errorf("mapbox places: %w", err)
	}
	return &fc, nil
}

func lonLat(lon, lat float64) string {
	return strconv.FormatFloat(lon, 'f', 6, 64) + "," + strconv.FormatFloat(lat, 'f', 6, 64)
}
