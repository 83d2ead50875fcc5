// Package bulgarianmeteo stores and adapts readings sent by Bulgarian Meteo
// Pro stations: a flat JSON document with Celsius temperatures and wind in
// km/h.
package bulgarianmeteo

import (
	"encoding/json"
	"time"

	"github.com/stationhub/weatheraggregator/internal/reading"
)

// MeasurementDigits is the total digit budget of the measurement columns.
const MeasurementDigits = 5

// Status is the station status reported with a reading.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Reading is a single Bulgarian Meteo Pro measurement.
type Reading struct {
	ID                 int64           `json:"id"`
	StationID          string          `json:"station_id" validate:"required,max=50"`
	City               string          `json:"city" validate:"required,max=100"`
	Latitude           float64         `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude          float64         `json:"longitude" validate:"gte=-180,lte=180"`
	Timestamp          time.Time       `json:"timestamp"`
	TemperatureCelsius float64         `json:"temperature_celsius"`
	HumidityPercent    float64         `json:"humidity_percent" validate:"gte=0,lte=100"`
	WindSpeedKPH       float64         `json:"wind_speed_kph" validate:"gte=0"`
	StationStatus      Status          `json:"station_status" validate:"required,oneof=active inactive"`
	Raw                json.RawMessage `json:"raw_data"`
}

// Kind implements reading.Reading.
func (r *Reading) Kind() reading.Kind {
	return reading.KindBulgarianMeteoPro
}

// ReadingID implements reading.Reading.
func (r *Reading) ReadingID() int64 {
	return r.ID
}

// RawPayload implements reading.Reading.
func (r *Reading) RawPayload() json.RawMessage {
	return r.Raw
}
