package cwfis

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/borealsmoke/smoke-data-etl/internal/domain"
)

var latKeys = []string{"lat", "latitude", "y"}
var lonKeys = []string{"lon", "lng", "longitude", "x"}

// parseCSV reads a header-mapped CSV feed. Rows shorter than the header are
// skipped rather than failing the whole document; the Datamart occasionally
// emits ragged trailing rows.
func parseCSV(body []byte) ([]domain.RawFireRecord, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: csv: %v", ErrParseFailure, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("%w: csv: empty document", ErrParseFailure)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	records := make([]domain.RawFireRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		props := make(map[string]string, len(header))
		for i, h := range header {
			if i >= len(row) {
				break
			}
			props[h] = strings.TrimSpace(row[i])
		}
		records = append(records, rawFromProps(props, "csv"))
	}
	return records, nil
}

type geoJSONDoc struct {
	Features []struct {
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

// parseGeoJSON reads a FeatureCollection of Point features. Coordinates come
// from the geometry; every property is stringified so normalization sees the
// same shape regardless of source format.
func parseGeoJSON(body []byte) ([]domain.RawFireRecord, error) {
	var doc geoJSONDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: geojson: %v", ErrParseFailure, err)
	}

	records := make([]domain.RawFireRecord, 0, len(doc.Features))
	for _, feat := range doc.Features {
		props := make(map[string]string, len(feat.Properties))
		for k, v := range feat.Properties {
			props[strings.ToLower(k)] = stringifyProp(v)
		}

		rec := domain.RawFireRecord{Props: props, Format: "geojson"}
		if len(feat.Geometry.Coordinates) >= 2 {
			rec.Lon = feat.Geometry.Coordinates[0]
			rec.Lat = feat.Geometry.Coordinates[1]
			rec.HasCoords = true
		} else {
			// Some exports carry coordinates only as properties.
			rec = rawFromProps(props, "geojson")
		}
		records = append(records, rec)
	}
	return records, nil
}

type kmlDoc struct {
	Document kmlFolder `xml:"Document"`
}

type kmlFolder struct {
	Folders    []kmlFolder    `xml:"Folder"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name  string `xml:"name"`
	Point struct {
		Coordinates string `xml:"coordinates"`
	} `xml:"Point"`
	ExtendedData struct {
		Data []struct {
			Name  string `xml:"name,attr"`
			Value string `xml:"value"`
		} `xml:"Data"`
	} `xml:"ExtendedData"`
}

// parseKML reads Placemark points, descending into nested Folders. KML
// coordinates are "lon,lat[,alt]".
func parseKML(body []byte) ([]domain.RawFireRecord, error) {
	var doc kmlDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: kml: %v", ErrParseFailure, err)
	}

	var records []domain.RawFireRecord
	collectPlacemarks(doc.Document, &records)
	if records == nil {
		records = []domain.RawFireRecord{}
	}
	return records, nil
}

func collectPlacemarks(folder kmlFolder, out *[]domain.RawFireRecord) {
	for _, pm := range folder.Placemarks {
		props := make(map[string]string, len(pm.ExtendedData.Data)+1)
		if pm.Name != "" {
			props["name"] = strings.TrimSpace(pm.Name)
		}
		for _, d := range pm.ExtendedData.Data {
			props[strings.ToLower(strings.TrimSpace(d.Name))] = strings.TrimSpace(d.Value)
		}

		rec := domain.RawFireRecord{Props: props, Format: "kml"}
		parts := strings.Split(strings.TrimSpace(pm.Point.Coordinates), ",")
		if len(parts) >= 2 {
			lon, lonErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if lonErr == nil && latErr == nil {
				rec.Lon = lon
				rec.Lat = lat
				rec.HasCoords = true
			}
		}
		*out = append(*out, rec)
	}
	for _, sub := range folder.Folders {
		collectPlacemarks(sub, out)
	}
}

// rawFromProps builds a record whose coordinates, if any, live in the
// property map under one of the usual column names.
func rawFromProps(props map[string]string, format string) domain.RawFireRecord {
	rec := domain.RawFireRecord{Props: props, Format: format}

	lat, latOK := floatProp(props, latKeys)
	lon, lonOK := floatProp(props, lonKeys)
	if latOK && lonOK {
		rec.Lat = lat
		rec.Lon = lon
		rec.HasCoords = true
	}
	return rec
}

func floatProp(props map[string]string, keys []string) (float64, bool) {
	for _, k := range keys {
		v, ok := props[k]
		if !ok || v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		return f, true
	}
	return 0, false
}

func stringifyProp(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
