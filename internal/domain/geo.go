package domain

import "math"

// kmPerDegree is the planar degree-to-kilometre approximation used throughout
// the pipeline. At NL latitudes the error versus a geodesic distance is well
// inside the tolerance of the impact model.
const kmPerDegree = 111.0

// Location is a bare WGS-84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds is the rectangular geographic filter defining the region of interest.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the coordinate lies within the bounding box,
// boundary inclusive.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Valid reports whether the box is a plausible, non-degenerate region.
func (b Bounds) Valid() bool {
	return b.MinLat < b.MaxLat && b.MinLon < b.MaxLon &&
		b.MinLat >= -90 && b.MaxLat <= 90 && b.MinLon >= -180 && b.MaxLon <= 180
}

// DistanceKm approximates the distance between two coordinates as Euclidean
// degree distance scaled by kmPerDegree.
func DistanceKm(aLat, aLon, bLat, bLon float64) float64 {
	dLat := aLat - bLat
	dLon := aLon - bLon
	return math.Sqrt(dLat*dLat+dLon*dLon) * kmPerDegree
}

// DedupeLocations collapses near-duplicate coordinates to one representative
// per cluster, keeping first-seen order. A candidate is accepted only if it is
// farther than thresholdKm from every already-accepted location. Quadratic in
// the candidate count, which stays in the tens per cycle.
func DedupeLocations(locations []Location, thresholdKm float64) []Location {
	unique := make([]Location, 0, len(locations))
	for _, cand := range locations {
		dup := false
		for _, kept := range unique {
			if DistanceKm(cand.Lat, cand.Lon, kept.Lat, kept.Lon) < thresholdKm {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, cand)
		}
	}
	return unique
}
