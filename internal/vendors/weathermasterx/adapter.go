package weathermasterx

import (
	"encoding/json"
	"fmt"

	"github.com/stationhub/weatheraggregator/internal/reading"
)

// Adapter decodes WeatherMaster X payloads and maps them to the common
// field set.
//
// The wire shape nests its data:
//
//	{
//	  "station_identifier": "...",
//	  "recorded_at": "...",
//	  "operational_status": "operational",
//	  "location": {"city_name": "...", "coordinates": {"lat": 0, "lon": 0}},
//	  "readings": {"temp_fahrenheit": 0, "humidity_percent": 0,
//	               "pressure_hpa": 0, "uv_index": 0, "rain_mm": 0}
//	}
//
// Errors on nested values are reported under the flattened field name.
type Adapter struct{}

// NewAdapter creates a WeatherMaster X adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Kind implements reading.Adapter.
func (a *Adapter) Kind() reading.Kind {
	return reading.KindWeatherMasterX
}

// Decode flattens, parses and validates a vendor payload.
func (a *Adapter) Decode(payload []byte) (reading.Reading, []reading.FieldError) {
	d, err := reading.NewDecoder(payload)
	if err != nil {
		return nil, []reading.FieldError{{
			Field:   "non_field_errors",
			Message: "Invalid data. Expected a dictionary.",
			Code:    reading.CodeInvalid,
		}}
	}

	location := d.Nested("location")
	coordinates := location.Nested("coordinates")
	readings := d.Nested("readings")

	rd := &Reading{
		StationIdentifier: d.String("station_identifier"),
		CityName:          location.String("city_name"),
		Lat:               coordinates.Float("lat"),
		Lon:               coordinates.Float("lon"),
		RecordedAt:        d.Time("recorded_at"),
		TempFahrenheit:    readings.Decimal("temp_fahrenheit", MeasurementDigits, reading.MeasurementPlaces),
		HumidityPercent:   readings.Decimal("humidity_percent", MeasurementDigits, reading.MeasurementPlaces),
		PressureHPA:       readings.Decimal("pressure_hpa", PressureDigits, reading.MeasurementPlaces),
		UVIndex:           readings.Int("uv_index"),
		RainMM:            readings.Decimal("rain_mm", MeasurementDigits, reading.MeasurementPlaces),
		OperationalStatus: OperationalStatus(d.String("operational_status")),
		Raw:               append(json.RawMessage(nil), payload...),
	}

	if errs := reading.Check(rd, d.Errors()); len(errs) > 0 {
		return nil, errs
	}
	return rd, nil
}

// Normalize implements reading.Adapter. Temperature is converted to Celsius;
// the vendor reports no wind speed.
func (a *Adapter) Normalize(r reading.Reading) (reading.Fields, error) {
	rd, ok := r.(*Reading)
	if !ok {
		return reading.Fields{}, fmt.Errorf("%w: got %s", reading.ErrKindMismatch, r.Kind())
	}

	return reading.Fields{
		StationID:          reading.Ptr(rd.StationIdentifier),
		City:               reading.Ptr(rd.CityName),
		Latitude:           reading.Ptr(rd.Lat),
		Longitude:          reading.Ptr(rd.Lon),
		TemperatureCelsius: reading.Ptr(reading.FahrenheitToCelsius(rd.TempFahrenheit)),
		HumidityPercent:    reading.Ptr(rd.HumidityPercent),
		PressureHPA:        reading.Ptr(rd.PressureHPA),
		UVIndex:            reading.Ptr(rd.UVIndex),
		Timestamp:          reading.Ptr(rd.RecordedAt),
		IsActive:           reading.Ptr(rd.OperationalStatus == StatusOperational),
	}, nil
}

var _ reading.Adapter = (*Adapter)(nil)
