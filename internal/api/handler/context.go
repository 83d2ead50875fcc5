package handler

import (
	"context"

	"github.com/stationhub/weatheraggregator/internal/api/middleware"
)

// GetClientID retrieves the authenticated ingestion client from the context.
// This is a convenience wrapper around middleware.GetClientID.
func GetClientID(ctx context.Context) string {
	return middleware.GetClientID(ctx)
}
