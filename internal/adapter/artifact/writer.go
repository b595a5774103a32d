// Package artifact renders a cycle's dataset into the static JSON files
// served to clients from a CDN. Files are written atomically via a temp
// file rename so a reader never observes a partial document.
package artifact

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/borealsmoke/smoke-data-etl/internal/domain"
)

const artifactVersion = "1.0.0"

var dataSources = []string{
	"Canadian Wildland Fire Information System (CWFIS)",
	"Environment Canada MSC GeoMet API",
}

// Writer emits the static artifact set for one dataset.
type Writer struct {
	dir      string
	interval time.Duration
	logger   *slog.Logger
	clock    clockwork.Clock
}

// NewWriter creates a Writer rooted at dir. interval is the publication
// cadence, used to advertise the next expected update in metadata.json.
func NewWriter(dir string, interval time.Duration, logger *slog.Logger) *Writer {
	return &Writer{
		dir:      dir,
		interval: interval,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
	}
}

// SetClock replaces the wall clock. Tests only.
func (w *Writer) SetClock(clock clockwork.Clock) {
	w.clock = clock
}

// communityFile is the per-community slice of the dataset: current index
// plus up to a half-day of hourly predictions.
type communityFile struct {
	Community   string                  `json:"community"`
	Coordinates domain.Location         `json:"coordinates"`
	Timestamp   time.Time               `json:"timestamp"`
	CurrentAQHI int                     `json:"current_aqhi"`
	Predictions []domain.AQHIPrediction `json:"predictions"`
}

type metadataFile struct {
	LastUpdated time.Time `json:"last_updated"`
	NextUpdate  time.Time `json:"next_update"`
	RunID       string    `json:"run_id"`
	Files       []string  `json:"files"`
	Version     string    `json:"version"`
	DataSources []string  `json:"data_sources"`
}

// WriteDataset renders data.json, one community-<slug>.json per community,
// a smoke overlay GeoJSON, and metadata.json. Returns the written filenames.
func (w *Writer) WriteDataset(ds *domain.Dataset, communities []domain.Community) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	var files []string

	if err := w.writeJSON("data.json", ds, false); err != nil {
		return nil, err
	}
	files = append(files, "data.json")

	for _, community := range communities {
		name := "community-" + community.Slug() + ".json"
		if err := w.writeJSON(name, w.communitySlice(ds, community), false); err != nil {
			return nil, err
		}
		files = append(files, name)
	}

	if err := w.writeJSON("smoke-overlay.geojson", overlayFeatures(ds.Predictions), false); err != nil {
		return nil, err
	}
	files = append(files, "smoke-overlay.geojson")

	now := w.clock.Now().UTC()
	meta := metadataFile{
		LastUpdated: now,
		NextUpdate:  now.Add(w.interval),
		RunID:       ds.RunID,
		Files:       append(files, "metadata.json"),
		Version:     artifactVersion,
		DataSources: dataSources,
	}
	if err := w.writeJSON("metadata.json", meta, true); err != nil {
		return nil, err
	}
	files = append(files, "metadata.json")

	w.logger.Info("wrote static artifacts", "dir", w.dir, "files", len(files))
	return files, nil
}

func (w *Writer) communitySlice(ds *domain.Dataset, community domain.Community) communityFile {
	var preds []domain.AQHIPrediction
	for _, p := range ds.Predictions {
		if p.Community != community.Name {
			continue
		}
		preds = append(preds, p)
		if len(preds) == 12 {
			break
		}
	}

	current := 1
	if len(preds) > 0 {
		current = preds[0].AQHI
	}
	if preds == nil {
		preds = []domain.AQHIPrediction{}
	}

	return communityFile{
		Community:   community.Slug(),
		Coordinates: domain.Location{Lat: community.Latitude, Lon: community.Longitude},
		Timestamp:   ds.Timestamp,
		CurrentAQHI: current,
		Predictions: preds,
	}
}

type geoJSONFeature struct {
	Type       string         `json:"type"`
	Geometry   map[string]any `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// overlayFeatures renders predictions as a point FeatureCollection for the
// map overlay.
func overlayFeatures(predictions []domain.AQHIPrediction) geoJSONCollection {
	features := make([]geoJSONFeature, 0, len(predictions))
	for _, p := range predictions {
		features = append(features, geoJSONFeature{
			Type: "Feature",
			Geometry: map[string]any{
				"type":        "Point",
				"coordinates": []float64{p.Longitude, p.Latitude},
			},
			Properties: map[string]any{
				"aqhi":      p.AQHI,
				"pm25":      p.PM25,
				"timestamp": p.Timestamp.Format(time.RFC3339),
			},
		})
	}
	return geoJSONCollection{Type: "FeatureCollection", Features: features}
}

// writeJSON marshals v and atomically replaces name in the artifact dir.
func (w *Writer) writeJSON(name string, v any, indent bool) error {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	final := filepath.Join(w.dir, name)
	tmp, err := os.CreateTemp(w.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
