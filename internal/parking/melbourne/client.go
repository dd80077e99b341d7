// Package melbourne reads the City of Melbourne open data parking datasets
// through the Opendatasoft Explore v2.1 API.
package melbourne

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
	"github.com/placxborcx/Onboarding-MainPage/internal/metrics"
	"github.com/placxborcx/Onboarding-MainPage/internal/upstream"
)

const (
	// DefaultBaseURL is the public Explore v2.1 endpoint
	DefaultBaseURL = "https://data.melbourne.vic.gov.au/api/explore/v2.1"
	// DefaultUserAgent identifies the client to the portal
	DefaultUserAgent = "parkfinder/1.0"
	// DefaultTimeout for HTTP requests
	DefaultTimeout = 12 * time.Second
	// DefaultRateLimit in requests per second
	DefaultRateLimit = 5.0
	// DefaultPageLimit is the largest page the API serves
	DefaultPageLimit = 100
	// DefaultMaxPages bounds sensor paging
	DefaultMaxPages = 5
	// zoneChunk bounds how many zones go into one where clause
	zoneChunk = 40
)

// Dataset identifiers.
const (
	SensorsDataset      = "on-street-parking-bay-sensors"
	SignPlatesDataset   = "sign-plates-located-in-each-parking-zone"
	ZoneSegmentsDataset = "parking-zones-linked-to-street-segments"
)

// Client queries the parking datasets.
type Client struct {
	fetcher   *upstream.Fetcher
	baseURL   string
	pageLimit int
	maxPages  int
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key in the Authorization header. An empty key is ignored.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.fetcher.Header.Set("Authorization", "Apikey "+key)
		}
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

// WithRateLimit sets a custom rate limit (requests per second).
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.fetcher.Limiter.SetLimit(rate.Limit(rps))
	}
}

// WithRetryDelay sets the base backoff delay between retries.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.fetcher.BaseDelay = d
	}
}

// WithPaging overrides page size and the sensor page cap. Zero keeps the default.
func WithPaging(limit, maxPages int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.pageLimit = min(limit, DefaultPageLimit)
		}
		if maxPages > 0 {
			c.maxPages = maxPages
		}
	}
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		fetcher:   upstream.NewFetcher(DefaultUserAgent, DefaultTimeout, DefaultRateLimit),
		baseURL:   strings.TrimRight(baseURL, "/"),
		pageLimit: DefaultPageLimit,
		maxPages:  DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sensors returns the bay sensors within radiusMeters of center, following
// offset paging until a short page or the page cap.
func (c *Client) Sensors(ctx context.Context, center geo.Point, radiusMeters float64) ([]Sensor, error) {
	params := url.Values{}
	params.Set("geofilter.distance", fmt.Sprintf("%s,%s,%s",
		strconv.FormatFloat(center.Lat, 'f', -1, 64),
		strconv.FormatFloat(center.Lon, 'f', -1, 64),
		strconv.FormatFloat(radiusMeters, 'f', -1, 64)))

	sensors, pages, err := records[Sensor](ctx, c, SensorsDataset, params, c.maxPages)
	metrics.ParkingSensorPages.Observe(float64(pages))
	return sensors, err
}

// SignPlates returns the restriction signs for zones.
func (c *Client) SignPlates(ctx context.Context, zones []int) ([]SignPlate, error) {
	return byZone[SignPlate](ctx, c, SignPlatesDataset, zones)
}

// ZoneSegments returns the street segments covered by zones.
func (c *Client) ZoneSegments(ctx context.Context, zones []int) ([]ZoneSegment, error) {
	return byZone[ZoneSegment](ctx, c, ZoneSegmentsDataset, zones)
}

func byZone[T any](ctx context.Context, c *Client, dataset string, zones []int) ([]T, error) {
	var out []T
	for start := 0; start < len(zones); start += zoneChunk {
		chunk := zones[start:min(start+zoneChunk, len(zones))]
		params := url.Values{}
		params.Set("where", zoneFilter(chunk))

		rows, _, err := records[T](ctx, c, dataset, params, c.maxPages)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// zoneFilter builds an ODSQL clause matching any of zones.
func zoneFilter(zones []int) string {
	parts := make([]string, len(zones))
	for i, z := range zones {
		parts[i] = "parkingzone=" + strconv.Itoa(z)
	}
	return strings.Join(parts, " or ")
}

// records pages through dataset and reports how many pages were fetched.
func records[T any](ctx context.Context, c *Client, dataset string, params url.Values, maxPages int) ([]T, int, error) {
	endpoint := c.baseURL + "/catalog/datasets/" + dataset + "/records"
	params.Set("limit", strconv.Itoa(c.pageLimit))

	var out []T
	pages := 0
	for offset := 0; pages < maxPages; offset += c.pageLimit {
		params.Set("offset", strconv.Itoa(offset))

		var page Page[T]
		start := time.Now()
		err := c.fetcher.GetJSON(ctx, endpoint+"?"+params.Encode(), &page)
		metrics.ParkingUpstreamLatency.WithLabelValues(dataset).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ParkingUpstreamRequestsTotal.WithLabelValues(dataset, "error").Inc()
			return nil, pages, fmt.Errorf("fetch %s offset %d: %w", dataset, offset, err)
		}
		metrics.ParkingUpstreamRequestsTotal.WithLabelValues(dataset, "success").Inc()
		pages++

		out = append(out, page.Results...)
		if len(page.Results) < c.pageLimit {
			break
		}
		if page.TotalCount > 0 && offset+len(page.Results) >= page.TotalCount {
			break
		}
	}
	return out, pages, nil
}
