package models

// WeatherData is the normalized shape every station reading is converted to
// by the aggregation endpoint. Fields a vendor does not report are null.
type WeatherData struct {
	StationID          *string    `json:"station_id"`
	City               *string    `json:"city"`
	Latitude           *float64   `json:"latitude"`
	Longitude          *float64   `json:"longitude"`
	TemperatureCelsius *float64   `json:"temperature_celsius"`
	HumidityPercent    *float64   `json:"humidity_percent"`
	WindSpeedKPH       *float64   `json:"wind_speed_kph"`
	PressureHPA        *float64   `json:"pressure_hpa"`
	UVIndex            *int       `json:"uv_index"`
	Timestamp          *Timestamp `json:"timestamp"`
	IsActive           *bool      `json:"is_active"`
}
