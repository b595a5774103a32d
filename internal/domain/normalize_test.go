package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBounds = Bounds{MinLat: 46.5, MaxLat: 60.5, MinLon: -67.5, MaxLon: -52.5}

func rawRecord(lat, lon float64, props map[string]string) RawFireRecord {
	return RawFireRecord{Lat: lat, Lon: lon, HasCoords: true, Props: props, Format: "csv"}
}

func TestNormalize(t *testing.T) {
	n := NewNormalizer(testBounds, "")

	t.Run("complete CSV row", func(t *testing.T) {
		fire, err := n.Normalize(rawRecord(48.95, -55.65, map[string]string{
			"firename":         "NL-014-2026",
			"hectares":         "512.3",
			"stage_of_control": "OC",
			"startdate":        "2026-07-12 09:30:00",
			"agency":           "nl",
		}))
		require.NoError(t, err)
		assert.Equal(t, "NL-014-2026", fire.ID)
		assert.Equal(t, 48.95, fire.Latitude)
		assert.Equal(t, -55.65, fire.Longitude)
		assert.Equal(t, 512.3, fire.SizeHa)
		assert.Equal(t, StatusOutOfControl, fire.Status)
		assert.Equal(t, time.Date(2026, 7, 12, 9, 30, 0, 0, time.UTC), fire.StartDate)
		assert.Equal(t, "nl", fire.Agency)
	})

	t.Run("alias order wins over later aliases", func(t *testing.T) {
		fire, err := n.Normalize(rawRecord(48.0, -56.0, map[string]string{
			"fire_id":  "primary-id",
			"firename": "secondary-id",
			"hectares": "10",
			"area":     "99999",
		}))
		require.NoError(t, err)
		assert.Equal(t, "primary-id", fire.ID)
		assert.Equal(t, 10.0, fire.SizeHa)
	})

	t.Run("uppercase keys from a different feed revision", func(t *testing.T) {
		fire, err := n.Normalize(rawRecord(48.0, -56.0, map[string]string{
			"FIRE_ID":  "ABC-1",
			"HECTARES": "42",
			"STATUS":   "Being Held",
		}))
		require.NoError(t, err)
		assert.Equal(t, "ABC-1", fire.ID)
		assert.Equal(t, 42.0, fire.SizeHa)
		assert.Equal(t, StatusBeingHeld, fire.Status)
	})

	t.Run("missing coordinates is a hard reject", func(t *testing.T) {
		_, err := n.Normalize(RawFireRecord{Props: map[string]string{"fire_id": "x"}})
		require.ErrorIs(t, err, ErrRecordRejected)
		assert.Contains(t, err.Error(), "coordinates")
	})

	t.Run("outside bounding box rejected", func(t *testing.T) {
		for _, loc := range []Location{
			{Lat: 45.0, Lon: -55.0},  // south of region
			{Lat: 61.0, Lon: -55.0},  // north
			{Lat: 50.0, Lon: -70.0},  // west
			{Lat: 50.0, Lon: -50.0},  // east
			{Lat: 31.02, Lon: 98.44}, // other hemisphere
		} {
			_, err := n.Normalize(rawRecord(loc.Lat, loc.Lon, map[string]string{"fire_id": "x"}))
			require.ErrorIs(t, err, ErrRecordRejected, "lat=%v lon=%v", loc.Lat, loc.Lon)
		}
	})

	t.Run("missing id gets deterministic fallback", func(t *testing.T) {
		props := map[string]string{"agency": "nl", "startdate": "2026-07-12"}
		fire1, err := n.Normalize(rawRecord(48.0, -56.0, props))
		require.NoError(t, err)
		fire2, err := n.Normalize(rawRecord(48.0, -56.0, props))
		require.NoError(t, err)

		assert.NotEmpty(t, fire1.ID)
		assert.True(t, strings.HasPrefix(fire1.ID, "nl-"))
		assert.Equal(t, fire1.ID, fire2.ID)
	})

	t.Run("garbage size clamps to zero", func(t *testing.T) {
		for _, size := range []string{"", "n/a", "-40"} {
			fire, err := n.Normalize(rawRecord(48.0, -56.0, map[string]string{
				"fire_id": "x", "hectares": size,
			}))
			require.NoError(t, err)
			assert.Equal(t, 0.0, fire.SizeHa, "size=%q", size)
		}
	})
}

func TestNormalize_AgencyFilter(t *testing.T) {
	n := NewNormalizer(testBounds, "NL")

	_, err := n.Normalize(rawRecord(48.0, -56.0, map[string]string{
		"fire_id": "qc-1", "agency": "qc",
	}))
	require.ErrorIs(t, err, ErrRecordRejected)

	fire, err := n.Normalize(rawRecord(48.0, -56.0, map[string]string{
		"fire_id": "nl-1", "agency": "nl",
	}))
	require.NoError(t, err)
	assert.Equal(t, "nl-1", fire.ID)
}

func TestParseFireStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected FireStatus
	}{
		{"OC", StatusOutOfControl},
		{"OUT OF CONTROL", StatusOutOfControl},
		{"Out of Control", StatusOutOfControl},
		{"oc", StatusOutOfControl},
		{"BH", StatusBeingHeld},
		{"Being Held", StatusBeingHeld},
		{"UC", StatusUnderControl},
		{"under control", StatusUnderControl},
		{"OUT", StatusOut},
		{"Extinguished", StatusOut},
		{"", StatusUnknown},
		{"monitored", StatusUnknown},
		{"n/a", StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseFireStatus(tt.raw))
		})
	}
}

func TestParseDate(t *testing.T) {
	frozen := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)

	tests := []struct {
		name     string
		in       string
		expected time.Time
	}{
		{"space separated", "2026-07-12 09:30:00", time.Date(2026, 7, 12, 9, 30, 0, 0, time.UTC)},
		{"T separated", "2026-07-12T09:30:00", time.Date(2026, 7, 12, 9, 30, 0, 0, time.UTC)},
		{"RFC3339", "2026-07-12T09:30:00Z", time.Date(2026, 7, 12, 9, 30, 0, 0, time.UTC)},
		{"date only", "2026-07-12", time.Date(2026, 7, 12, 0, 0, 0, 0, time.UTC)},
		{"slashed", "2026/07/12 09:30:00", time.Date(2026, 7, 12, 9, 30, 0, 0, time.UTC)},
		{"slashed date only", "2026/07/12", time.Date(2026, 7, 12, 0, 0, 0, 0, time.UTC)},
		{"empty falls back to now", "", frozen},
		{"garbage falls back to now", "last Tuesday", frozen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseDate(tt.in))
		})
	}
}
