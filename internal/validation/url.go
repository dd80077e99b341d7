// Package validation checks the URLs parkfinder is configured with.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// URLError describes why a configured URL was rejected.
type URLError struct {
	Setting string
	Reason  string
	URL     string
}

func (e URLError) Error() string {
	return fmt.Sprintf("%s: %s (url: %s)", e.Setting, e.Reason, e.URL)
}

// Endpoint checks an upstream API root such as the Nominatim or open data
// URL: http or https with a host. Paths are allowed since most APIs are
// versioned under one. requireHTTPS rejects plain http.
func Endpoint(raw, setting string, requireHTTPS bool) error {
	u, err := parse(raw, setting)
	if err != nil {
		return err
	}
	if requireHTTPS && u.Scheme != "https" {
		return URLError{Setting: setting, Reason: "must use https", URL: raw}
	}
	if u.RawQuery != "" {
		return URLError{Setting: setting, Reason: "must not contain query parameters", URL: raw}
	}
	return nil
}

// BaseURL checks the public origin the server is reached at. It may not
// carry a path, query or fragment.
func BaseURL(raw, setting string) error {
	u, err := parse(raw, setting)
	if err != nil {
		return err
	}
	switch {
	case u.Path != "" && u.Path != "/":
		return URLError{Setting: setting, Reason: "must not contain a path", URL: raw}
	case u.RawQuery != "":
		return URLError{Setting: setting, Reason: "must not contain query parameters", URL: raw}
	case u.Fragment != "":
		return URLError{Setting: setting, Reason: "must not contain a fragment", URL: raw}
	}
	return nil
}

func parse(raw, setting string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, URLError{Setting: setting, Reason: "is required", URL: raw}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, URLError{Setting: setting, Reason: "invalid URL format", URL: raw}
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, URLError{Setting: setting, Reason: "scheme must be http or https", URL: raw}
	}
	if u.Host == "" {
		return nil, URLError{Setting: setting, Reason: "must include a host", URL: raw}
	}
	return u, nil
}
