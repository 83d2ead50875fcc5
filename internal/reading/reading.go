// Package reading defines the vendor-neutral contract shared by every
// weather-reading store: the kind enum, the common output fields, and the
// adapter and store interfaces the station registry dispatches through.
package reading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Reading errors.
var (
	ErrNoAdapter        = errors.New("no adapter registered")
	ErrUnknownKind      = errors.New("unknown station kind")
	ErrKindMismatch     = errors.New("reading kind does not match")
	ErrMalformedPayload = errors.New("payload is not a JSON object")
)

// Kind identifies a vendor reading store. The value doubles as the
// station type recorded in the registry.
type Kind string

const (
	KindBulgarianMeteoPro Kind = "bulgarianmeteoprodata"
	KindWeatherMasterX    Kind = "weathermasterx"
)

// Kinds returns every kind the service knows about, in a stable order.
func Kinds() []Kind {
	return []Kind{KindBulgarianMeteoPro, KindWeatherMasterX}
}

// ParseKind converts a station type name into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Reading is one immutable record held by a vendor store.
type Reading interface {
	Kind() Kind
	ReadingID() int64
	RawPayload() json.RawMessage
}

// Fields is the common output shape. Nil means the vendor does not report
// the value.
type Fields struct {
	StationID          *string
	City               *string
	Latitude           *float64
	Longitude          *float64
	TemperatureCelsius *float64
	HumidityPercent    *float64
	WindSpeedKPH       *float64
	PressureHPA        *float64
	UVIndex            *int
	Timestamp          *time.Time
	IsActive           *bool
}

// FieldError reports one invalid field of a vendor payload. Field is the
// vendor's flat JSON field name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Adapter translates between one vendor's wire shape and the common fields.
type Adapter interface {
	Kind() Kind

	// Decode parses and validates a vendor payload. The returned reading
	// keeps payload verbatim as its raw data. Field errors are returned
	// instead of a reading when validation fails.
	Decode(payload []byte) (Reading, []FieldError)

	// Normalize maps a stored reading onto the common fields.
	Normalize(r Reading) (Fields, error)
}

// Store persists and batch-loads the readings of a single kind.
type Store interface {
	Kind() Kind

	// Save persists r and assigns its id.
	Save(ctx context.Context, r Reading) error

	// Load returns the readings with the given ids keyed by id. Ids with no
	// row are absent from the map.
	Load(ctx context.Context, ids []int64) (map[int64]Reading, error)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
