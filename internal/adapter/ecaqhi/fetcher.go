// Package ecaqhi fetches the observed Air Quality Health Index for
// St. John's, the only NL location with an official monitoring station.
// The primary source is the Environment Canada city RSS feed; when that
// fails or carries no index, a set of patterns is matched against the
// public city weather page. When neither source yields a value the caller
// falls back to a configured default rather than an invented reading.
package ecaqhi

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/borealsmoke/smoke-data-etl/internal/domain"
)

const userAgent = "BorealSmokeNL/1.0 (Official AQHI Data Only)"

// St. John's monitoring station.
const (
	stationLat = 47.5615
	stationLon = -52.7126
)

var pagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`<div[^>]*class="aqhi-number"[^>]*>(\d+)</div>`),
	regexp.MustCompile(`AQHI:\s*(\d+)`),
	regexp.MustCompile(`Air Quality Health Index[^0-9]{0,40}(\d+)`),
}

var feedPattern = regexp.MustCompile(`Air Quality Health Index[:\s]+(\d+)`)

// Fetcher retrieves the monitored AQHI baseline.
type Fetcher struct {
	httpClient *http.Client
	feedURL    string
	pageURL    string
	logger     *slog.Logger
	clock      clockwork.Clock
}

// NewFetcher creates a baseline fetcher for the given feed and page URLs.
func NewFetcher(feedURL, pageURL string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		feedURL:    feedURL,
		pageURL:    pageURL,
		logger:     logger,
		clock:      clockwork.NewRealClock(),
	}
}

// SetClock replaces the wall clock. Tests only.
func (f *Fetcher) SetClock(clock clockwork.Clock) {
	f.clock = clock
}

// FetchBaseline returns the current monitored AQHI for St. John's. The feed
// is authoritative; the weather page is a fallback. An error means no
// official reading could be obtained, never a fabricated one.
func (f *Fetcher) FetchBaseline(ctx context.Context) (*domain.AirQualityBaseline, error) {
	value, err := f.fromFeed(ctx)
	if err != nil {
		f.logger.Warn("aqhi feed failed, trying city page", "error", err)
		value, err = f.fromPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("no official aqhi reading: %w", err)
		}
	}

	return &domain.AirQualityBaseline{
		Value:      value,
		Latitude:   stationLat,
		Longitude:  stationLon,
		ObservedAt: f.clock.Now().UTC(),
		Monitored:  true,
		Source:     "Environment Canada",
	}, nil
}

type rssFeed struct {
	Channel struct {
		Items []struct {
			Title       string `xml:"title"`
			Description string `xml:"description"`
		} `xml:"item"`
	} `xml:"channel"`
	// Atom feeds carry entries instead of channel items.
	Entries []struct {
		Title   string `xml:"title"`
		Summary string `xml:"summary"`
	} `xml:"entry"`
}

func (f *Fetcher) fromFeed(ctx context.Context) (int, error) {
	body, err := f.get(ctx, f.feedURL)
	if err != nil {
		return 0, err
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return 0, fmt.Errorf("decode feed: %w", err)
	}

	for _, item := range feed.Channel.Items {
		if v, ok := matchIndex(feedPattern, item.Title+" "+item.Description); ok {
			return v, nil
		}
	}
	for _, entry := range feed.Entries {
		if v, ok := matchIndex(feedPattern, entry.Title+" "+entry.Summary); ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("feed carries no aqhi reading")
}

func (f *Fetcher) fromPage(ctx context.Context) (int, error) {
	body, err := f.get(ctx, f.pageURL)
	if err != nil {
		return 0, err
	}
	for _, pattern := range pagePatterns {
		if v, ok := matchIndex(pattern, string(body)); ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("page carries no aqhi reading")
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return io.ReadAll(resp.Body)
}

func matchIndex(pattern *regexp.Regexp, text string) (int, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}
