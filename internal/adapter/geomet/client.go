// Package geomet fetches weather conditions from the Environment Canada
// MSC GeoMet OGC API. Observations come from a small set of NL reporting
// stations; the forecast series is built by carrying the nearest station's
// latest observation forward hour by hour. Missing feature properties fall
// back to climatological defaults so one sparse station report never sinks
// a cycle.
package geomet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/borealsmoke/smoke-data-etl/internal/domain"
)

const userAgent = "BorealSmokeNL/1.0 (Weather Data Fetcher)"

// observationTTL is how long a station observation is reused before the
// station is queried again.
const observationTTL = 10 * time.Minute

// station is an NL surface reporting station used for current conditions.
type station struct {
	ID  string
	Lat float64
	Lon float64
}

var stations = []station{
	{ID: "CYYT", Lat: 47.6167, Lon: -52.7515}, // St. John's
	{ID: "CYQX", Lat: 48.9369, Lon: -54.5681}, // Gander
	{ID: "CYDF", Lat: 48.9361, Lon: -57.8858}, // Corner Brook / Deer Lake
	{ID: "CYHV", Lat: 53.3192, Lon: -60.3583}, // Happy Valley-Goose Bay
	{ID: "CYJT", Lat: 48.5444, Lon: -58.5500}, // Stephenville
}

// Client queries the GeoMet API for station observations.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	concurrency int
	logger      *slog.Logger
	clock       clockwork.Clock
	cache       *stationCache
}

// NewClient creates a GeoMet client. concurrency bounds the number of
// in-flight station queries during bulk fetches.
func NewClient(baseURL string, timeout time.Duration, concurrency int, logger *slog.Logger) *Client {
	if concurrency < 1 {
		concurrency = 1
	}
	clock := clockwork.NewRealClock()
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		concurrency: concurrency,
		logger:      logger,
		clock:       clock,
		cache:       newStationCache(observationTTL, clock),
	}
}

// SetClock replaces the wall clock. Tests only.
func (c *Client) SetClock(clock clockwork.Clock) {
	c.clock = clock
	c.cache = newStationCache(observationTTL, clock)
}

// FetchForecast returns an hourly forecast for one location covering the
// next hours hours. The first point is the nearest station's latest
// observation relocated to the query point; later points carry it forward.
func (c *Client) FetchForecast(ctx context.Context, lat, lon float64, hours int) (domain.WeatherForecast, error) {
	st := nearestStation(lat, lon)

	obs, err := c.fetchCurrentConditions(ctx, st)
	if err != nil {
		return domain.WeatherForecast{}, fmt.Errorf("station %s: %w", st.ID, err)
	}

	now := c.clock.Now().UTC()
	points := make([]domain.WeatherObservation, 0, hours+1)
	for h := 0; h <= hours; h++ {
		pt := obs
		pt.Timestamp = now.Add(time.Duration(h) * time.Hour)
		pt.Latitude = lat
		pt.Longitude = lon
		points = append(points, pt)
	}

	return domain.WeatherForecast{
		Latitude:     lat,
		Longitude:    lon,
		ForecastTime: now,
		Hours:        points,
	}, nil
}

// FetchBulk fetches forecasts for many locations with bounded concurrency.
// Locations whose fetch fails are logged and omitted; the call only errors
// when the context is done.
func (c *Client) FetchBulk(ctx context.Context, locations []domain.Location, hours int) ([]domain.WeatherForecast, error) {
	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		forecasts []domain.WeatherForecast
	)
	sem := make(chan struct{}, c.concurrency)

	for _, loc := range locations {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(loc domain.Location) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			fc, err := c.FetchForecast(ctx, loc.Lat, loc.Lon, hours)
			if err != nil {
				c.logger.Warn("weather fetch failed for location",
					"lat", loc.Lat, "lon", loc.Lon, "error", err)
				return
			}
			mu.Lock()
			forecasts = append(forecasts, fc)
			mu.Unlock()
		}(loc)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.logger.Info("fetched weather forecasts",
		"locations", len(locations), "succeeded", len(forecasts))
	return forecasts, nil
}

func (c *Client) fetchCurrentConditions(ctx context.Context, st station) (domain.WeatherObservation, error) {
	if obs, ok := c.cache.get(st.ID); ok {
		return obs, nil
	}

	q := url.Values{}
	q.Set("STATION_NAME", st.ID)
	q.Set("limit", "1")
	q.Set("sortby", "-LOCAL_DATE")
	q.Set("f", "json")
	endpoint := c.baseURL + "/collections/climate-hourly/items?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.WeatherObservation{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherObservation{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.WeatherObservation{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.WeatherObservation{}, err
	}

	var doc struct {
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("decode response: %w", err)
	}
	if len(doc.Features) == 0 {
		return domain.WeatherObservation{}, fmt.Errorf("no observations for station")
	}

	feat := doc.Features[0]
	obs := domain.WeatherObservation{
		Timestamp:     c.clock.Now().UTC(),
		Latitude:      st.Lat,
		Longitude:     st.Lon,
		WindSpeedKmh:  numProp(feat.Properties, "WIND_SPEED", 0),
		WindDirection: numProp(feat.Properties, "WIND_DIRECTION", 0),
		TemperatureC:  numProp(feat.Properties, "TEMPERATURE", 15),
		Humidity:      numProp(feat.Properties, "RELATIVE_HUMIDITY", 50),
		PressureKPa:   numProp(feat.Properties, "PRESSURE", 101.3),
		Precipitation: numProp(feat.Properties, "PRECIPITATION", 0),
	}
	if len(feat.Geometry.Coordinates) >= 2 {
		obs.Longitude = feat.Geometry.Coordinates[0]
		obs.Latitude = feat.Geometry.Coordinates[1]
	}
	c.cache.put(st.ID, obs)
	return obs, nil
}

func nearestStation(lat, lon float64) station {
	best := stations[0]
	bestDist := domain.DistanceKm(lat, lon, best.Lat, best.Lon)
	for _, st := range stations[1:] {
		if d := domain.DistanceKm(lat, lon, st.Lat, st.Lon); d < bestDist {
			best = st
			bestDist = d
		}
	}
	return best
}

// numProp reads a numeric property that may arrive as a JSON number or a
// quoted string, falling back to def when absent or unparseable.
func numProp(props map[string]any, key string, def float64) float64 {
	v, ok := props[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case float64:
		return t
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
	}
	return def
}
