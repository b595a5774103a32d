package cwfis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/borealsmoke/smoke-data-etl/internal/domain"
	"github.com/borealsmoke/smoke-data-etl/internal/observability"
)

// format binds one wire rendition of the active-fires feed to its parser.
// Order matters: the slice below is the fixed fallback priority.
type format struct {
	name  string
	path  string
	parse func([]byte) ([]domain.RawFireRecord, error)
}

var formats = []format{
	{name: "csv", path: "/downloads/activefires/activefires.csv", parse: parseCSV},
	{name: "geojson", path: "/datamart/activefire/activefires.json", parse: parseGeoJSON},
	{name: "kml", path: "/datamart/activefire/activefires.kml", parse: parseKML},
}

// Fetcher is the multi-format acquisition layer: it walks the format priority
// list until one yields parseable records. The Datamart has changed formats
// and endpoints without notice before; surviving that drift is the point.
type Fetcher struct {
	client  *Client
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewFetcher creates a Fetcher on top of a Datamart client.
func NewFetcher(client *Client, logger *slog.Logger, metrics *observability.Metrics) *Fetcher {
	return &Fetcher{client: client, logger: logger, metrics: metrics}
}

// FetchActiveFires returns raw fire records from the first format that both
// fetches and parses. When every format fails it returns an empty slice and
// an error wrapping ErrSourceUnavailable, a cycle-level warning rather than an
// abort; downstream stages tolerate zero records.
func (f *Fetcher) FetchActiveFires(ctx context.Context) ([]domain.RawFireRecord, error) {
	for _, fm := range formats {
		body, err := f.client.Get(ctx, fm.path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.logger.Warn("format fetch failed, trying next",
				"format", fm.name, "error", err)
			f.metrics.FormatFallbacks.WithLabelValues(fm.name).Inc()
			continue
		}

		records, err := fm.parse(body)
		if err != nil {
			f.logger.Warn("format parse failed, trying next",
				"format", fm.name, "error", err)
			f.metrics.FormatFallbacks.WithLabelValues(fm.name).Inc()
			continue
		}

		f.logger.Info("fetched active fires",
			"format", fm.name, "records", len(records))
		return records, nil
	}

	f.metrics.SourceFailures.Inc()
	return nil, fmt.Errorf("all fire feed formats failed: %w", ErrSourceUnavailable)
}
