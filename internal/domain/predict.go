package domain

import (
	"math"
	"time"
)

// PredictorConfig carries the tunable constants of the fire-proximity impact
// model. Zero values are replaced with the defaults below at construction.
type PredictorConfig struct {
	// BackgroundPM25 is the no-fire seed concentration in µg/m³.
	BackgroundPM25 float64
	// MaxFirePM25 is the PM2.5 added by a single fire at impact weight 1.
	MaxFirePM25 float64
	// InfluenceRadiusKm is the maximum distance at which a fire contributes.
	InfluenceRadiusKm float64
	// SaturationHa is the fire size at which the size factor reaches 1.
	SaturationHa float64
	// DefaultBaseline is the AQHI used when no fresh baseline is available.
	// A policy choice of the upstream agency, not a measurement.
	DefaultBaseline int
	// FireConfidence and ClearConfidence are the scores assigned to
	// predictions with and without fire contributors.
	FireConfidence  float64
	ClearConfidence float64
}

const (
	defaultBackgroundPM25  = 8.0
	defaultMaxFirePM25     = 50.0
	defaultInfluenceRadius = 200.0
	defaultSaturationHa    = 1000.0
	defaultBaselineAQHI    = 2
	defaultFireConfidence  = 0.75
	defaultClearConfidence = 0.9
)

func (c PredictorConfig) withDefaults() PredictorConfig {
	if c.BackgroundPM25 <= 0 {
		c.BackgroundPM25 = defaultBackgroundPM25
	}
	if c.MaxFirePM25 <= 0 {
		c.MaxFirePM25 = defaultMaxFirePM25
	}
	if c.InfluenceRadiusKm <= 0 {
		c.InfluenceRadiusKm = defaultInfluenceRadius
	}
	if c.SaturationHa <= 0 {
		c.SaturationHa = defaultSaturationHa
	}
	if c.DefaultBaseline <= 0 {
		c.DefaultBaseline = defaultBaselineAQHI
	}
	if c.FireConfidence <= 0 {
		c.FireConfidence = defaultFireConfidence
	}
	if c.ClearConfidence <= 0 {
		c.ClearConfidence = defaultClearConfidence
	}
	return c
}

// Predictor converts fire facts, an optional AQHI baseline, and a set of
// target communities into per-hour air-quality predictions.
type Predictor struct {
	cfg PredictorConfig
}

// NewPredictor creates a Predictor, filling unset config values with the
// model defaults.
func NewPredictor(cfg PredictorConfig) *Predictor {
	return &Predictor{cfg: cfg.withDefaults()}
}

// aqhiBreakpoints is the monotonic piecewise-linear PM2.5→AQHI table. Above
// the last segment the index continues at that segment's slope, uncapped.
var aqhiBreakpoints = []struct {
	loPM, hiPM   float64
	loIdx, hiIdx float64
}{
	{0, 12, 1, 3},
	{12, 35, 4, 6},
	{35, 55, 7, 8},
	{55, 150, 9, 10},
}

// indexFromPM25 evaluates the breakpoint table, returning the unrounded index.
func indexFromPM25(pm float64) float64 {
	if pm <= 0 {
		return aqhiBreakpoints[0].loIdx
	}
	for _, seg := range aqhiBreakpoints {
		if pm <= seg.hiPM {
			t := (pm - seg.loPM) / (seg.hiPM - seg.loPM)
			return seg.loIdx + t*(seg.hiIdx-seg.loIdx)
		}
	}
	last := aqhiBreakpoints[len(aqhiBreakpoints)-1]
	slope := (last.hiIdx - last.loIdx) / (last.hiPM - last.loPM)
	return last.hiIdx + (pm-last.hiPM)*slope
}

// roundAQHI rounds to the nearest integer and floors at 1.
func roundAQHI(idx float64) int {
	v := int(math.Round(idx))
	if v < 1 {
		return 1
	}
	return v
}

// Predict produces one AQHIPrediction per (community, hour) pair for hour in
// [0, horizonHours). A nil or stale-filtered baseline falls back to the
// configured default. Malformed fire records are skipped, never fatal.
func (p *Predictor) Predict(fires []Fire, baseline *AirQualityBaseline, communities []Community, horizonHours int) []AQHIPrediction {
	baseAQHI := p.cfg.DefaultBaseline
	if baseline != nil && baseline.Value >= 1 {
		baseAQHI = baseline.Value
	}

	now := clock.Now().UTC()
	predictions := make([]AQHIPrediction, 0, len(communities)*horizonHours)

	for _, community := range communities {
		for hour := 0; hour < horizonHours; hour++ {
			pred := p.predictAt(community, fires, baseAQHI)
			pred.Timestamp = now.Add(time.Duration(hour) * time.Hour)
			predictions = append(predictions, pred)
		}
	}
	return predictions
}

// predictAt runs the impact model for one community. The fire set does not
// vary by hour, so the per-hour loop only restamps the timestamp.
func (p *Predictor) predictAt(community Community, fires []Fire, baseAQHI int) AQHIPrediction {
	pm := p.cfg.BackgroundPM25
	sourceIDs := []string{}

	for _, fire := range fires {
		if fire.Status != StatusOutOfControl {
			continue
		}
		if badCoordinate(fire.Latitude, fire.Longitude) {
			continue
		}
		dist := DistanceKm(fire.Latitude, fire.Longitude, community.Latitude, community.Longitude)
		if dist > p.cfg.InfluenceRadiusKm {
			continue
		}

		distanceFactor := (p.cfg.InfluenceRadiusKm - dist) / p.cfg.InfluenceRadiusKm
		sizeFactor := math.Min(1, math.Max(0, fire.SizeHa)/p.cfg.SaturationHa)
		weight := distanceFactor * sizeFactor
		if weight <= 0 {
			continue
		}

		pm += weight * p.cfg.MaxFirePM25
		sourceIDs = append(sourceIDs, fire.ID)
	}

	aqhi := baseAQHI
	confidence := p.cfg.ClearConfidence
	if len(sourceIDs) > 0 {
		// Fire-driven estimates come from the concentration model; the
		// monitored baseline still acts as a floor.
		aqhi = max(baseAQHI, roundAQHI(indexFromPM25(pm)))
		confidence = p.cfg.FireConfidence
	}

	return AQHIPrediction{
		Community:     community.Name,
		Latitude:      community.Latitude,
		Longitude:     community.Longitude,
		AQHI:          aqhi,
		PM25:          pm,
		SourceFireIDs: sourceIDs,
		Confidence:    confidence,
	}
}

func badCoordinate(lat, lon float64) bool {
	return math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) ||
		lat < -90 || lat > 90 || lon < -180 || lon > 180
}
