package domain

import "time"

// Dataset is the versioned artifact handed to the publication collaborator:
// everything a client needs for one ingestion cycle, keyed by timestamp.
type Dataset struct {
	Timestamp   time.Time         `json:"timestamp"`
	RunID       string            `json:"run_id"`
	Fires       []Fire            `json:"wildfires"`
	Weather     []WeatherForecast `json:"weather"`
	Predictions []AQHIPrediction  `json:"predictions"`
	Bounds      Bounds            `json:"bounds"`
}

// DefaultCommunities is the built-in reference list of Avalon-peninsula
// population centers, used when config names no communities file.
var DefaultCommunities = []Community{
	{Name: "St. John's", Latitude: 47.5615, Longitude: -52.7126},
	{Name: "Mount Pearl", Latitude: 47.5189, Longitude: -52.8061},
	{Name: "Conception Bay South", Latitude: 47.5297, Longitude: -52.9547},
	{Name: "Paradise", Latitude: 47.5361, Longitude: -52.8579},
	{Name: "Holyrood", Latitude: 47.3875, Longitude: -53.1356},
	{Name: "Bay Roberts", Latitude: 47.5989, Longitude: -53.2644},
	{Name: "Carbonear", Latitude: 47.7369, Longitude: -53.2144},
	{Name: "Harbour Grace", Latitude: 47.7050, Longitude: -53.2144},
}
