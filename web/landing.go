package web

import (
	_ "embed"
	"net/http"
)

//go:embed index.html
var indexHTML []byte

//go:embed app.js
var appJS []byte

// IndexHandler serves the landing page with the parking search box.
// Only GET and HEAD are allowed.
func IndexHandler() http.Handler {
	return static(indexHTML, "text/html; charset=utf-8", "public, max-age=3600, must-revalidate")
}

// AppJSHandler serves the script behind the landing page.
func AppJSHandler() http.Handler {
	return static(appJS, "text/javascript; charset=utf-8", "public, max-age=3600, must-revalidate")
}

func static(body []byte, contentType, cacheControl string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Cache-Control", cacheControl)
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(body) // Error is ignored as WriteHeader already sent status
	})
}
