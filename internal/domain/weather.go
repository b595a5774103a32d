package domain

import "time"

// WeatherObservation is one hour of observed or forecast surface weather at a
// location. Immutable once created.
type WeatherObservation struct {
	Timestamp     time.Time `json:"timestamp"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	WindSpeedKmh  float64   `json:"wind_speed_kmh"`
	WindDirection float64   `json:"wind_direction_degrees"`
	TemperatureC  float64   `json:"temperature_celsius"`
	Humidity      float64   `json:"relative_humidity"`
	PressureKPa   float64   `json:"pressure_kpa"`
	Precipitation float64   `json:"precipitation_mm"`
}

// WeatherForecast is a location plus its chronological observation sequence
// covering a requested horizon. The first element may be current conditions.
type WeatherForecast struct {
	Latitude     float64              `json:"location_lat"`
	Longitude    float64              `json:"location_lon"`
	ForecastTime time.Time            `json:"forecast_time"`
	Hours        []WeatherObservation `json:"forecasts"`
}
