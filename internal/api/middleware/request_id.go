// Package middleware provides HTTP middleware for the weather aggregator API.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/stationhub/weatheraggregator/internal/reading"
)

// maxRequestIDLength bounds a caller-supplied X-Request-Id.
const maxRequestIDLength = 128

type requestInfoKey struct{}

// requestInfo is shared by every middleware handling one request. Route
// middleware record the station type and ingestion client on it, so the
// outer logging and tracing middleware can label the request after it has
// been served.
type requestInfo struct {
	id          string
	stationType reading.Kind
	clientID    string
}

// RequestID assigns the request its ID and sets it in the X-Request-Id
// response header. A vendor-supplied ID is kept when it is short printable
// ASCII; anything else is replaced.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if !validRequestID(requestID) {
			requestID = "req_" + uuid.New().String()[:22]
		}

		w.Header().Set("X-Request-Id", requestID)

		ctx := context.WithValue(r.Context(), requestInfoKey{}, &requestInfo{id: requestID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '!' || id[i] > '~' {
			return false
		}
	}
	return true
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if info := infoFrom(ctx); info != nil {
		return info.id
	}
	return ""
}

func infoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}
