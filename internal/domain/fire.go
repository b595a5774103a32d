package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FireStatus is the stage-of-control classification of a wildfire.
type FireStatus string

const (
	StatusOutOfControl FireStatus = "OC"
	StatusBeingHeld    FireStatus = "BH"
	StatusUnderControl FireStatus = "UC"
	StatusOut          FireStatus = "OUT"
	StatusUnknown      FireStatus = "UNK"
)

// statusTable maps known status substrings to their canonical code. Longer
// phrases are listed before their two-letter abbreviations so that
// "OUT OF CONTROL" does not first match the bare "OUT" entry.
var statusTable = []struct {
	needle string
	status FireStatus
}{
	{"OUT OF CONTROL", StatusOutOfControl},
	{"BEING HELD", StatusBeingHeld},
	{"UNDER CONTROL", StatusUnderControl},
	{"EXTINGUISHED", StatusOut},
	{"OC", StatusOutOfControl},
	{"BH", StatusBeingHeld},
	{"UC", StatusUnderControl},
	{"OUT", StatusOut},
}

// ParseFireStatus maps a raw status string to a FireStatus by case-insensitive
// substring match. Unrecognized strings map to StatusUnknown; it never fails.
func ParseFireStatus(raw string) FireStatus {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if upper == "" {
		return StatusUnknown
	}
	for _, e := range statusTable {
		if strings.Contains(upper, e.needle) {
			return e.status
		}
	}
	return StatusUnknown
}

// MarshalJSON serializes the status as its wire code.
func (s FireStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON restores a status from its wire code, mapping unknown codes
// through ParseFireStatus so stored documents from older revisions still load.
func (s *FireStatus) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	switch FireStatus(code) {
	case StatusOutOfControl, StatusBeingHeld, StatusUnderControl, StatusOut, StatusUnknown:
		*s = FireStatus(code)
	default:
		*s = ParseFireStatus(code)
	}
	return nil
}

// Fire is the canonical active-wildfire record. Values are created fresh each
// ingestion cycle and never mutated; a refreshed fetch produces a new value
// for the same ID and the persistence collaborator owns upsert semantics.
type Fire struct {
	ID          string     `json:"fire_id"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	SizeHa      float64    `json:"size_hectares"`
	Status      FireStatus `json:"status"`
	StartDate   time.Time  `json:"start_date"`
	LastUpdated time.Time  `json:"last_updated"`
	Agency      string     `json:"agency"`
	Name        string     `json:"fire_name,omitempty"`
	Cause       string     `json:"cause,omitempty"`
}

// generateFireID produces a deterministic fallback ID for records whose feed
// omits one. Hashing the key fields keeps reprocessing idempotent across
// cycles, matching how downstream storage deduplicates on document ID.
func generateFireID(agency string, lat, lon float64, startDate string) string {
	input := fmt.Sprintf("%s|%.4f|%.4f|%s", agency, lat, lon, startDate)
	sum := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(sum[:8])
	if agency == "" {
		return "fire-" + short
	}
	return strings.ToLower(agency) + "-" + short
}
