// Package upstream holds the rate-limited, retrying JSON GET shared by the
// geocoder and open data clients.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultMaxRetries for transient errors
	DefaultMaxRetries = 2
	// DefaultRetryBaseDelay is the initial backoff delay
	DefaultRetryBaseDelay = time.Second
	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 8 << 20
)

// StatusError is returned for a non-retryable, non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Fetcher performs JSON GET requests with a shared rate limiter and
// exponential backoff on network errors, 429 and 5xx responses.
type Fetcher struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	UserAgent  string
	Header     http.Header
	MaxRetries int
	BaseDelay  time.Duration
}

// NewFetcher returns a Fetcher allowing rps requests per second.
func NewFetcher(userAgent string, timeout time.Duration, rps float64) *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{Timeout: timeout},
		Limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		UserAgent:  userAgent,
		Header:     make(http.Header),
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultRetryBaseDelay,
	}
}

// GetJSON fetches requestURL and decodes the body into out.
func (f *Fetcher) GetJSON(ctx context.Context, requestURL string, out any) error {
	req, err := f.newRequest(ctx, requestURL)
	if err != nil {
		return err
	}

	var lastErr error

	for attempt := 0; attempt <= f.MaxRetries; attempt++ {
		if attempt > 0 {
			// 1s, 2s, 4s, ...
			delay := f.BaseDelay * time.Duration(1<<uint(attempt-1))
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		if f.Limiter != nil {
			if err := f.Limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter: %w", err)
			}
		}

		body, status, err := f.do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		switch {
		case status == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		case status >= 500:
			lastErr = fmt.Errorf("server error (%d)", status)
			continue
		case status < 200 || status > 299:
			return &StatusError{StatusCode: status, Body: truncate(string(body), 512)}
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("parse json: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// newRequest builds the GET once; a URL that does not parse is not retried.
func (f *Fetcher) newRequest(ctx context.Context, requestURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	for key, values := range f.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return req, nil
}

func (f *Fetcher) do(req *http.Request) ([]byte, int, error) {
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
