package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFire_JSONRoundTrip(t *testing.T) {
	fire := Fire{
		ID:          "nl-014",
		Latitude:    48.95,
		Longitude:   -55.65,
		SizeHa:      512.3,
		Status:      StatusOutOfControl,
		StartDate:   time.Date(2026, 7, 12, 9, 30, 0, 0, time.UTC),
		LastUpdated: time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC),
		Agency:      "nl",
		Name:        "Paradise Lake",
		Cause:       "lightning",
	}

	data, err := json.Marshal(fire)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"OC"`)
	assert.Contains(t, string(data), `"fire_id":"nl-014"`)
	assert.Contains(t, string(data), `"size_hectares":512.3`)

	var back Fire
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, fire, back)
}

func TestFireStatus_UnmarshalLegacyCode(t *testing.T) {
	var fire Fire
	require.NoError(t, json.Unmarshal([]byte(`{"fire_id":"x","status":"Out of Control"}`), &fire))
	assert.Equal(t, StatusOutOfControl, fire.Status)

	require.NoError(t, json.Unmarshal([]byte(`{"fire_id":"x","status":"whatever"}`), &fire))
	assert.Equal(t, StatusUnknown, fire.Status)
}

func TestDataset_JSONRoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ds := Dataset{
		Timestamp: ts,
		RunID:     "run-1",
		Fires:     []Fire{{ID: "a", Status: StatusBeingHeld, StartDate: ts, LastUpdated: ts}},
		Weather: []WeatherForecast{{
			Latitude: 48.0, Longitude: -56.0, ForecastTime: ts,
			Hours: []WeatherObservation{{
				Timestamp: ts, Latitude: 48.0, Longitude: -56.0,
				WindSpeedKmh: 22.5, WindDirection: 270, TemperatureC: 18.2,
				Humidity: 61, PressureKPa: 101.3, Precipitation: 0.4,
			}},
		}},
		Predictions: []AQHIPrediction{{
			Timestamp: ts, Latitude: 47.5615, Longitude: -52.7126,
			AQHI: 6, PM25: 30.5, SourceFireIDs: []string{"a"}, Confidence: 0.75,
		}},
		Bounds: Bounds{MinLat: 46.5, MaxLat: 60.5, MinLon: -67.5, MaxLon: -52.5},
	}

	data, err := json.Marshal(ds)
	require.NoError(t, err)

	var back Dataset
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ds, back)
}

func TestBaselineFresh(t *testing.T) {
	now := time.Now()

	assert.True(t, AirQualityBaseline{Value: 2, ObservedAt: now.Add(-time.Hour)}.Fresh(3*time.Hour))
	assert.False(t, AirQualityBaseline{Value: 2, ObservedAt: now.Add(-4 * time.Hour)}.Fresh(3*time.Hour))
	assert.False(t, AirQualityBaseline{Value: 2}.Fresh(3*time.Hour), "zero timestamp is never fresh")
}

func TestCommunitySlug(t *testing.T) {
	tests := []struct {
		name, slug string
	}{
		{"St. John's", "st-johns"},
		{"Conception Bay South", "conception-bay-south"},
		{"Mount Pearl", "mount-pearl"},
		{"Bay Roberts", "bay-roberts"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.slug, Community{Name: tt.name}.Slug())
	}
}
