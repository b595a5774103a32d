// Command genmock generates the mock CWFIS active-fire fixtures used by the
// pipeline test suite: the same fire set rendered as CSV, GeoJSON, and KML,
// plus the expected normalized output produced by the actual normalizer so
// the fixtures can never drift from real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/borealsmoke/smoke-data-etl/internal/domain"
)

// mockFire is one row of the fixture table. The QC entry sits outside the
// NL bounds and must be rejected by normalization.
type mockFire struct {
	Name    string
	Lat     float64
	Lon     float64
	Size    string
	Status  string
	Start   string
	Updated string
	Agency  string
	Cause   string
}

var mockFires = []mockFire{
	{"NL-014-2025", 47.8, -53.2, "512.5", "Out of Control", "2025-06-14 09:30:00", "2025-06-15 10:00:00", "nl", "L"},
	{"NL-015-2025", 48.95, -54.57, "12.0", "Under Control", "2025-06-15", "2025-06-15 08:00:00", "nl", "H"},
	{"NL-016-2025", 53.3, -60.33, "1500.0", "Being Held", "2025-06-10 14:00:00", "2025-06-15 09:00:00", "nl", "L"},
	{"QC-200-2025", 45.0, -70.0, "90.0", "Out of Control", "2025-06-12 11:00:00", "2025-06-15 07:00:00", "qc", "L"},
}

var nlBounds = domain.Bounds{MinLat: 46.5, MaxLat: 60.5, MinLon: -67.5, MaxLon: -52.5}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "data/mock", "output directory for fixtures")
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	// Fixed clock so any record needing a date fallback stays reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	outputs := map[string][]byte{
		"activefires.csv":  renderCSV(),
		"activefires.json": renderGeoJSON(),
		"activefires.kml":  renderKML(),
	}

	expected, rejected := normalizeExpected()
	data, err := json.MarshalIndent(expected, "", "  ")
	if err != nil {
		return err
	}
	outputs["fires_normalized.json"] = append(data, '\n')

	for name, payload := range outputs {
		path := filepath.Join(*outDir, name)
		if err := os.WriteFile(path, payload, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		log.Printf("wrote %s (%d bytes)", path, len(payload))
	}

	log.Printf("fires: %d total, %d normalized, %d rejected",
		len(mockFires), len(expected), rejected)
	return nil
}

func renderCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"lat", "lon", "firename", "hectares", "stage_of_control", "startdate", "last_updated", "agency", "cause"}) //nolint:errcheck
	for _, f := range mockFires {
		w.Write([]string{ //nolint:errcheck
			fmt.Sprintf("%.4f", f.Lat), fmt.Sprintf("%.4f", f.Lon),
			f.Name, f.Size, f.Status, f.Start, f.Updated, f.Agency, f.Cause,
		})
	}
	w.Flush()
	return buf.Bytes()
}

func renderGeoJSON() []byte {
	type feature struct {
		Type       string         `json:"type"`
		Geometry   map[string]any `json:"geometry"`
		Properties map[string]any `json:"properties"`
	}
	features := make([]feature, 0, len(mockFires))
	for _, f := range mockFires {
		features = append(features, feature{
			Type:     "Feature",
			Geometry: map[string]any{"type": "Point", "coordinates": []float64{f.Lon, f.Lat}},
			Properties: map[string]any{
				"firename": f.Name, "hectares": f.Size, "stage_of_control": f.Status,
				"startdate": f.Start, "last_updated": f.Updated, "agency": f.Agency, "cause": f.Cause,
			},
		})
	}
	data, err := json.MarshalIndent(map[string]any{
		"type": "FeatureCollection", "features": features,
	}, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	return append(data, '\n')
}

func renderKML() []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString(`<kml xmlns="http://www.opengis.net/kml/2.2">` + "\n")
	buf.WriteString("  <Document>\n    <Folder>\n      <name>Active Fires</name>\n")
	for _, f := range mockFires {
		buf.WriteString("      <Placemark>\n")
		fmt.Fprintf(&buf, "        <name>%s</name>\n", f.Name)
		buf.WriteString("        <ExtendedData>\n")
		for _, kv := range [][2]string{
			{"firename", f.Name}, {"hectares", f.Size}, {"stage_of_control", f.Status},
			{"startdate", f.Start}, {"last_updated", f.Updated}, {"agency", f.Agency}, {"cause", f.Cause},
		} {
			fmt.Fprintf(&buf, "          <Data name=%q><value>%s</value></Data>\n", kv[0], kv[1])
		}
		buf.WriteString("        </ExtendedData>\n")
		fmt.Fprintf(&buf, "        <Point><coordinates>%g,%g,0</coordinates></Point>\n", f.Lon, f.Lat)
		buf.WriteString("      </Placemark>\n")
	}
	buf.WriteString("    </Folder>\n  </Document>\n</kml>\n")
	return buf.Bytes()
}

// normalizeExpected runs the fixture rows through the real normalizer.
func normalizeExpected() ([]domain.Fire, int) {
	normalizer := domain.NewNormalizer(nlBounds, "")

	var fires []domain.Fire
	rejected := 0
	for _, f := range mockFires {
		fire, err := normalizer.Normalize(domain.RawFireRecord{
			Lat:       f.Lat,
			Lon:       f.Lon,
			HasCoords: true,
			Props: map[string]string{
				"firename": f.Name, "hectares": f.Size, "stage_of_control": f.Status,
				"startdate": f.Start, "last_updated": f.Updated, "agency": f.Agency, "cause": f.Cause,
			},
			Format: "csv",
		})
		if err != nil {
			log.Printf("rejected %s: %v", f.Name, err)
			rejected++
			continue
		}
		fires = append(fires, fire)
	}
	return fires, rejected
}
