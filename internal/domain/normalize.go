package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrRecordRejected marks an individual record that failed normalization or
// filtering. Rejections are counted and logged, never fatal to a batch.
var ErrRecordRejected = errors.New("record rejected")

// RejectionError carries a stable machine-readable reason alongside the
// human-readable detail. Reason values double as metric labels.
type RejectionError struct {
	Reason string
	Detail string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%v: %s", ErrRecordRejected, e.Detail)
}

func (e *RejectionError) Unwrap() error { return ErrRecordRejected }

// RejectReason returns the stable reason label of a rejection error, or
// "other" for anything else.
func RejectReason(err error) string {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return "other"
}

// RawFireRecord is the format-independent shape every wire parser emits:
// coordinates plus a loosely-typed property bag. HasCoords is false when the
// source row carried no usable coordinate pair; the normalizer hard-rejects
// those rather than defaulting a position.
type RawFireRecord struct {
	Lat       float64
	Lon       float64
	HasCoords bool
	Props     map[string]string
	Format    string // "csv", "geojson", or "kml"
}

// Alias lists per canonical field, probed in order, case-insensitively, first
// match wins. The lists are the normalizer's contract with the upstream feeds;
// extend them here when a feed revision renames a column.
var (
	idAliases      = []string{"fire_id", "firename", "fire_name", "irwinid", "id"}
	sizeAliases    = []string{"hectares", "area", "size_ha"}
	statusAliases  = []string{"stage_of_control", "status"}
	startAliases   = []string{"startdate", "start_date", "discovered_date"}
	updatedAliases = []string{"last_updated", "lastdate", "modified_date"}
	agencyAliases  = []string{"agency", "agency_code"}
	nameAliases    = []string{"fire_name", "firename", "name"}
	causeAliases   = []string{"cause"}
)

// dateLayouts is the fixed ordered list of date formats seen across CWFIS
// feed revisions. The first layout that parses wins.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// Normalizer converts raw fire records into canonical Fire entities, applying
// the geographic bounds filter and the optional agency filter.
type Normalizer struct {
	bounds Bounds
	agency string // lowercase; empty disables the filter
}

// NewNormalizer creates a Normalizer for the given region. agencyFilter is
// matched case-insensitively against the record's agency code; pass "" to
// accept every agency.
func NewNormalizer(bounds Bounds, agencyFilter string) *Normalizer {
	return &Normalizer{
		bounds: bounds,
		agency: strings.ToLower(strings.TrimSpace(agencyFilter)),
	}
}

// Normalize converts one raw record into a Fire. Failures wrap
// ErrRecordRejected with the reason; callers drop and count them.
func (n *Normalizer) Normalize(raw RawFireRecord) (Fire, error) {
	if !raw.HasCoords {
		return Fire{}, &RejectionError{Reason: "missing_coordinates", Detail: "missing coordinates"}
	}
	if !n.bounds.Contains(raw.Lat, raw.Lon) {
		return Fire{}, &RejectionError{
			Reason: "out_of_bounds",
			Detail: fmt.Sprintf("coordinates (%.4f, %.4f) outside region bounds", raw.Lat, raw.Lon),
		}
	}

	props := lowerKeys(raw.Props)

	agency := strings.TrimSpace(lookup(props, agencyAliases))
	if n.agency != "" && !strings.EqualFold(agency, n.agency) {
		return Fire{}, &RejectionError{
			Reason: "agency_filter",
			Detail: fmt.Sprintf("agency %q does not match filter %q", agency, n.agency),
		}
	}

	startRaw := lookup(props, startAliases)
	id := strings.TrimSpace(lookup(props, idAliases))
	if id == "" {
		id = generateFireID(agency, raw.Lat, raw.Lon, startRaw)
	}

	return Fire{
		ID:          id,
		Latitude:    raw.Lat,
		Longitude:   raw.Lon,
		SizeHa:      parseSize(lookup(props, sizeAliases)),
		Status:      ParseFireStatus(lookup(props, statusAliases)),
		StartDate:   parseDate(startRaw),
		LastUpdated: parseDate(lookup(props, updatedAliases)),
		Agency:      agency,
		Name:        strings.TrimSpace(lookup(props, nameAliases)),
		Cause:       strings.TrimSpace(lookup(props, causeAliases)),
	}, nil
}

// lowerKeys copies the property bag with lowercased keys so alias lookup is
// case-insensitive regardless of which format produced the record.
func lowerKeys(props map[string]string) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		key := strings.ToLower(strings.TrimSpace(k))
		if _, exists := out[key]; !exists || v != "" {
			out[key] = v
		}
	}
	return out
}

// lookup probes the ordered alias list and returns the first present
// non-empty value.
func lookup(props map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if v, ok := props[alias]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// parseSize parses a hectare figure, clamping to zero on garbage or negative
// input. Size is informational; a bad value must not reject the record.
func parseSize(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// parseDate tries the known layouts in order. No match yields "now": a record
// with an unparseable date is still a real fire.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	}
	return clock.Now().UTC()
}
