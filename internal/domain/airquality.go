package domain

import "time"

// AirQualityBaseline is a single authoritative AQHI reading for the reference
// monitoring location. Monitored is false when the value is a configured
// fallback rather than a real-time measurement.
type AirQualityBaseline struct {
	Value      int       `json:"aqhi_value"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ObservedAt time.Time `json:"timestamp"`
	Monitored  bool      `json:"is_official"`
	Source     string    `json:"source,omitempty"`
}

// Fresh reports whether the reading is recent enough to present as current.
// Stale baselines are replaced with the configured default upstream.
func (b AirQualityBaseline) Fresh(window time.Duration) bool {
	if b.ObservedAt.IsZero() {
		return false
	}
	return clock.Now().Sub(b.ObservedAt) <= window
}

// AQHIPrediction is the estimated air-quality impact at one community for one
// forecast hour. Created fresh per cycle, never mutated.
type AQHIPrediction struct {
	Timestamp     time.Time `json:"timestamp"`
	Community     string    `json:"community"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	AQHI          int       `json:"aqhi_value"`
	PM25          float64   `json:"pm25_concentration"`
	SourceFireIDs []string  `json:"source_fire_ids"`
	Confidence    float64   `json:"confidence"`
}

// Community is static reference data for a population center, read-only input
// to the predictor.
type Community struct {
	Name       string  `json:"name"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Population int     `json:"population,omitempty"`
	Region     string  `json:"region,omitempty"`
}

// Slug returns the community name in the lowercase hyphenated form used for
// per-community artifact filenames ("Conception Bay South" → "conception-bay-south").
func (c Community) Slug() string {
	s := make([]rune, 0, len(c.Name))
	for _, r := range c.Name {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			s = append(s, r)
		case r >= 'A' && r <= 'Z':
			s = append(s, r+('a'-'A'))
		case r == ' ' || r == '-':
			if len(s) > 0 && s[len(s)-1] != '-' {
				s = append(s, '-')
			}
		}
	}
	for len(s) > 0 && s[len(s)-1] == '-' {
		s = s[:len(s)-1]
	}
	return string(s)
}
