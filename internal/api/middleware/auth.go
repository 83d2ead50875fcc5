package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/stationhub/weatheraggregator/internal/api/models"
	"github.com/stationhub/weatheraggregator/internal/auth"
	"github.com/stationhub/weatheraggregator/internal/reading"
)

// clientIDKey is the context key for the authenticated ingestion client.
type clientIDKey struct{}

// TokenValidator validates ingestion bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*auth.IngestClaims, error)
}

// IngestAuth creates middleware that requires a valid ingestion token
// allowed to push readings of kind. A nil validator disables the check.
func IngestAuth(validator TokenValidator, kind reading.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, r, "missing authorization header")
				return
			}

			// Check for Bearer prefix (case-insensitive)
			const bearerPrefix = "Bearer "
			if len(authHeader) < len(bearerPrefix) ||
				!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
				writeUnauthorized(w, r, "invalid authorization header format")
				return
			}

			tokenString := authHeader[len(bearerPrefix):]
			if tokenString == "" {
				writeUnauthorized(w, r, "missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					writeUnauthorized(w, r, "ingestion token has expired")
				case errors.Is(err, auth.ErrInvalidToken):
					writeUnauthorized(w, r, "invalid ingestion token")
				default:
					writeUnauthorized(w, r, "authentication failed")
				}
				return
			}

			if !claims.Allows(kind) {
				writeForbidden(w, r, "token may not submit "+string(kind)+" readings")
				return
			}

			if info := infoFrom(r.Context()); info != nil {
				info.clientID = claims.ClientID()
			}
			ctx := context.WithValue(r.Context(), clientIDKey{}, claims.ClientID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeUnauthorized writes a 401 Unauthorized response.
// This is implemented directly here to avoid import cycle with response package.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	traceID := GetRequestID(r.Context())
	problem := models.NewUnauthorized(traceID, detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

func writeForbidden(w http.ResponseWriter, r *http.Request, detail string) {
	traceID := GetRequestID(r.Context())
	problem := models.NewForbidden(traceID, detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// GetClientID retrieves the authenticated ingestion client from the context.
// Returns an empty string if not authenticated.
func GetClientID(ctx context.Context) string {
	if id, ok := ctx.Value(clientIDKey{}).(string); ok {
		return id
	}
	if info := infoFrom(ctx); info != nil {
		return info.clientID
	}
	return ""
}
