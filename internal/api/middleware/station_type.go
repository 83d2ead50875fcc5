package middleware

import (
	"context"
	"net/http"

	"github.com/stationhub/weatheraggregator/internal/reading"
)

type stationTypeKey struct{}

// StationType labels every request of a vendor route with the station type
// it serves.
func StationType(kind reading.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if info := infoFrom(r.Context()); info != nil {
				info.stationType = kind
			}
			ctx := context.WithValue(r.Context(), stationTypeKey{}, kind)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetStationType returns the station type of the route serving ctx, or ""
// outside a vendor route. Middleware wrapping the router see the value once
// the request has been served.
func GetStationType(ctx context.Context) reading.Kind {
	if kind, ok := ctx.Value(stationTypeKey{}).(reading.Kind); ok {
		return kind
	}
	if info := infoFrom(ctx); info != nil {
		return info.stationType
	}
	return ""
}
