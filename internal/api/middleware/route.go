package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// routePattern returns the chi route pattern that matched r, such as
// /v1/stations/weather-data/{city}, so city names never become metric or
// span labels. Falls back to the raw path outside a chi router.
// It is only populated after routing, so call it once next has returned.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
