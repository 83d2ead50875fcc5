package reading

import "math"

// MeasurementPlaces is the decimal precision measurement columns are stored with.
const MeasurementPlaces = 2

// FahrenheitToCelsius converts a temperature and rounds it to the stored
// measurement precision.
func FahrenheitToCelsius(f float64) float64 {
	return Round((f-32)/1.8, MeasurementPlaces)
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
