package middleware

import (
	"mime"
	"net/http"
	"strings"

	"github.com/stationhub/weatheraggregator/internal/api/models"
)

// ContentTypeJSON sets the Content-Type header to application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Handlers writing problems override it
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireJSON rejects vendor payloads that are not declared as UTF-8 JSON.
// application/json and any +json media type are accepted, with or without a
// charset parameter. A missing Content-Type is treated as JSON since some
// station firmware omits it.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			next.ServeHTTP(w, r)
			return
		}

		if detail := checkJSONMediaType(contentType); detail != "" {
			problem := models.NewUnsupportedMediaType(GetRequestID(r.Context()), detail)
			problem.Instance = r.URL.Path
			problem.Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkJSONMediaType returns a problem detail, or "" when contentType is
// acceptable.
func checkJSONMediaType(contentType string) string {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "malformed Content-Type header"
	}
	if mediaType != "application/json" && !strings.HasSuffix(mediaType, "+json") {
		return "Content-Type must be application/json"
	}
	if charset, ok := params["charset"]; ok && !strings.EqualFold(charset, "utf-8") {
		return "JSON payloads must be UTF-8 encoded"
	}
	return ""
}
