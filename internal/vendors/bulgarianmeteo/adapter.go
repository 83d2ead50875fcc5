package bulgarianmeteo

import (
	"encoding/json"
	"fmt"

	"github.com/stationhub/weatheraggregator/internal/reading"
)

// Adapter decodes Bulgarian Meteo Pro payloads and maps them to the common
// field set. The vendor already reports Celsius and km/h so no unit
// conversion is needed.
type Adapter struct{}

// NewAdapter creates a Bulgarian Meteo Pro adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Kind implements reading.Adapter.
func (a *Adapter) Kind() reading.Kind {
	return reading.KindBulgarianMeteoPro
}

// Decode parses and validates a vendor payload. The payload is kept verbatim
// as the reading's raw data.
func (a *Adapter) Decode(payload []byte) (reading.Reading, []reading.FieldError) {
	d, err := reading.NewDecoder(payload)
	if err != nil {
		return nil, []reading.FieldError{{
			Field:   "non_field_errors",
			Message: "Invalid data. Expected a dictionary.",
			Code:    reading.CodeInvalid,
		}}
	}

	rd := &Reading{
		StationID:          d.String("station_id"),
		City:               d.String("city"),
		Latitude:           d.Float("latitude"),
		Longitude:          d.Float("longitude"),
		Timestamp:          d.Time("timestamp"),
		TemperatureCelsius: d.Decimal("temperature_celsius", MeasurementDigits, reading.MeasurementPlaces),
		HumidityPercent:    d.Decimal("humidity_percent", MeasurementDigits, reading.MeasurementPlaces),
		WindSpeedKPH:       d.Decimal("wind_speed_kph", MeasurementDigits, reading.MeasurementPlaces),
		StationStatus:      Status(d.String("station_status")),
		Raw:                append(json.RawMessage(nil), payload...),
	}

	if errs := reading.Check(rd, d.Errors()); len(errs) > 0 {
		return nil, errs
	}
	return rd, nil
}

// Normalize implements reading.Adapter.
func (a *Adapter) Normalize(r reading.Reading) (reading.Fields, error) {
	rd, ok := r.(*Reading)
	if !ok {
		return reading.Fields{}, fmt.Errorf("%w: got %s", reading.ErrKindMismatch, r.Kind())
	}

	return reading.Fields{
		StationID:          reading.Ptr(rd.StationID),
		City:               reading.Ptr(rd.City),
		Latitude:           reading.Ptr(rd.Latitude),
		Longitude:          reading.Ptr(rd.Longitude),
		TemperatureCelsius: reading.Ptr(rd.TemperatureCelsius),
		HumidityPercent:    reading.Ptr(rd.HumidityPercent),
		WindSpeedKPH:       reading.Ptr(rd.WindSpeedKPH),
		Timestamp:          reading.Ptr(rd.Timestamp),
		IsActive:           reading.Ptr(rd.StationStatus == StatusActive),
	}, nil
}

var _ reading.Adapter = (*Adapter)(nil)
