package preview

import (
	"net/http"
	"net/url"
	"strings"
)

// sameOrigin reports whether a state-changing request may proceed. Requests
// without an Origin header (curl, scripts) pass; browser requests must come
// from a page served by the preview itself.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
