package web

import (
	_ "embed"
	"net/http"
)

//go:embed robots.txt
var robotsTxt []byte

// RobotsTxtHandler serves robots.txt. Crawlers may index the landing page
// but not the API.
func RobotsTxtHandler() http.Handler {
	return static(robotsTxt, "text/plain; charset=utf-8", "public, max-age=86400")
}
