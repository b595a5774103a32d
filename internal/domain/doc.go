// Package domain models Canadian wildfire and air-quality data for the
// Newfoundland and Labrador (NL) smoke forecast pipeline.
//
// # Data Sources
//
// Active fire records come from the CWFIS Datamart (Canadian Wildland Fire
// Information System, https://cwfis.cfs.nrcan.gc.ca). The Datamart publishes
// the same feed in three formats (a CSV download, a GeoJSON endpoint, and a
// KML endpoint) and has historically changed endpoints and field names
// without notice. All three formats funnel into one RawFireRecord shape
// (coordinates plus a loosely-typed property bag) and a single normalization
// path; nothing format-specific survives past [Normalizer.Normalize].
//
// Weather forecasts come from the Environment Canada MSC GeoMet API, and the
// AQHI baseline from the Environment Canada feed for St. John's, the only NL
// community with real-time AQHI monitoring.
//
// # CWFIS Conventions
//
// Stage-of-control codes (case-insensitive substring match, see
// [ParseFireStatus]):
//
//	OC  / "OUT OF CONTROL"      → StatusOutOfControl
//	BH  / "BEING HELD"          → StatusBeingHeld
//	UC  / "UNDER CONTROL"       → StatusUnderControl
//	OUT / "EXTINGUISHED"        → StatusOut
//	anything else               → StatusUnknown (never an error)
//
// Field names vary by format and feed revision ("hectares" vs "HECTARES" vs
// "area", "stage_of_control" vs "status", …). Each canonical field has an
// ordered alias list resolved case-insensitively, first match wins; the lists
// are part of the normalizer's contract and live in normalize.go.
//
// Dates appear in half a dozen layouts. A fixed ordered layout list is tried;
// when none matches, the record keeps "now" rather than being discarded,
// because a missing date must not drop an otherwise-valid fire.
//
// # AQHI Estimation
//
// Fire impact is accumulated in PM2.5 space and converted to the Air Quality
// Health Index afterwards. Only fires that are currently out of control and
// within the influence radius contribute. Each fire's contribution is a
// distance factor (linear, 1 at the fire down to 0 at the radius) times a
// size factor (linear in hectares, saturating at the configured threshold),
// scaled by a fixed maximum per-fire PM2.5 addition. Total PM2.5 maps to the
// index through a monotonic piecewise-linear breakpoint table:
//
//	0–12 µg/m³   → 1–3
//	12–35 µg/m³  → 4–6
//	35–55 µg/m³  → 7–8
//	55–150 µg/m³ → 9–10
//	>150 µg/m³   → continues at the 55–150 slope, uncapped
//
// # ID Generation
//
// Feeds occasionally omit a fire identifier. Fallback IDs are deterministic
// SHA-256 hashes of agency|lat|lon|startdate so that reprocessing the same
// feed yields the same ID and downstream upserts stay idempotent. See
// [generateFireID].
package domain
