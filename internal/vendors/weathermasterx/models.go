// Package weathermasterx stores and adapts WeatherMaster X readings. The
// vendor nests location and measurements and reports temperature in
// Fahrenheit.
package weathermasterx

import (
	"encoding/json"
	"time"

	"github.com/stationhub/weatheraggregator/internal/reading"
)

// Digit budgets of the measurement columns.
const (
	MeasurementDigits = 5
	PressureDigits    = 10
)

// OperationalStatus is the station state reported with a reading.
type OperationalStatus string

const (
	StatusOperational OperationalStatus = "operational"
	StatusMaintenance OperationalStatus = "maintenance"
	StatusOffline     OperationalStatus = "offline"
)

// Reading is a single WeatherMaster X measurement, flattened.
type Reading struct {
	ID                int64             `json:"id"`
	StationIdentifier string            `json:"station_identifier" validate:"required,max=50"`
	CityName          string            `json:"city_name" validate:"required,max=100"`
	Lat               float64           `json:"lat" validate:"gte=-90,lte=90"`
	Lon               float64           `json:"lon" validate:"gte=-180,lte=180"`
	RecordedAt        time.Time         `json:"recorded_at"`
	TempFahrenheit    float64           `json:"temp_fahrenheit"`
	HumidityPercent   float64           `json:"humidity_percent" validate:"gte=0,lte=100"`
	PressureHPA       float64           `json:"pressure_hpa" validate:"gte=0"`
	UVIndex           int               `json:"uv_index" validate:"gte=0"`
	RainMM            float64           `json:"rain_mm" validate:"gte=0"`
	OperationalStatus OperationalStatus `json:"operational_status" validate:"required,oneof=operational maintenance offline"`
	Raw               json.RawMessage   `json:"-"`
}

// Kind implements reading.Reading.
func (r *Reading) Kind() reading.Kind {
	return reading.KindWeatherMasterX
}

// ReadingID implements reading.Reading.
func (r *Reading) ReadingID() int64 {
	return r.ID
}

// RawPayload implements reading.Reading.
func (r *Reading) RawPayload() json.RawMessage {
	return r.Raw
}
