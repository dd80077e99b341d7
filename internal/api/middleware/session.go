package middleware

import (
	"net/http"
	"strings"
)

// SessionHeader lets a browser tab name its own supersession stream, so two
// tabs behind one NAT do not cancel each other.
const SessionHeader = "X-Client-Session"

const maxSessionLength = 128

// SessionKey returns the key newer requests from the same client supersede
// under: the session header when present and short, otherwise the client IP.
func SessionKey(r *http.Request, trustedProxyCIDRs []string) string {
	if session := strings.TrimSpace(r.Header.Get(SessionHeader)); session != "" && len(session) <= maxSessionLength {
		return "session:" + session
	}
	return "ip:" + ClientIP(r, trustedProxyCIDRs)
}
