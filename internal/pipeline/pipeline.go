// Package pipeline orchestrates the periodic ingestion cycle: fetch active
// fires, normalize and dedupe them, gather weather at fire locations, read
// the monitored AQHI baseline, run the impact model for every tracked
// community, and publish the assembled dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/borealsmoke/smoke-data-etl/internal/config"
	"github.com/borealsmoke/smoke-data-etl/internal/domain"
	"github.com/borealsmoke/smoke-data-etl/internal/observability"
)

// weatherLocationCap bounds the number of fire locations queried for
// weather per cycle. Weather beyond the largest clusters adds API load
// without changing predictions.
const weatherLocationCap = 10

// FireSource fetches raw fire records from the upstream feed.
type FireSource interface {
	FetchActiveFires(ctx context.Context) ([]domain.RawFireRecord, error)
}

// WeatherSource fetches hourly forecasts for a set of locations.
type WeatherSource interface {
	FetchBulk(ctx context.Context, locations []domain.Location, hours int) ([]domain.WeatherForecast, error)
}

// BaselineSource fetches the monitored AQHI reading.
type BaselineSource interface {
	FetchBaseline(ctx context.Context) (*domain.AirQualityBaseline, error)
}

// ArtifactStore renders a dataset into static files.
type ArtifactStore interface {
	WriteDataset(ds *domain.Dataset, communities []domain.Community) ([]string, error)
}

// DatasetPublisher pushes a dataset to a downstream transport. Optional;
// a nil publisher disables publication.
type DatasetPublisher interface {
	PublishDataset(ctx context.Context, ds *domain.Dataset) error
}

// CycleResult summarizes one ingestion cycle for logging and /status.
type CycleResult struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	DurationMs  int64     `json:"duration_ms"`
	RawRecords  int       `json:"raw_records"`
	Fires       int       `json:"fires"`
	Rejected    int       `json:"rejected"`
	Forecasts   int       `json:"forecasts"`
	Predictions int       `json:"predictions"`
	Baseline    int       `json:"baseline_aqhi"`
	Monitored   bool      `json:"baseline_monitored"`
	Files       []string  `json:"files"`
	Warnings    []string  `json:"warnings,omitempty"`
}

// Ingestor runs the cycle on a fixed interval.
type Ingestor struct {
	fires      FireSource
	weather    WeatherSource
	baseline   BaselineSource
	artifacts  ArtifactStore
	publisher  DatasetPublisher
	normalizer *domain.Normalizer
	predictor  *domain.Predictor

	cfg         *config.Config
	communities []domain.Community
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock

	mu   sync.RWMutex
	last *CycleResult
}

// New creates an Ingestor. publisher may be nil when Kafka publication is
// disabled.
func New(
	fires FireSource,
	weather WeatherSource,
	baseline BaselineSource,
	artifacts ArtifactStore,
	publisher DatasetPublisher,
	communities []domain.Community,
	cfg *config.Config,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Ingestor {
	return &Ingestor{
		fires:      fires,
		weather:    weather,
		baseline:   baseline,
		artifacts:  artifacts,
		publisher:  publisher,
		normalizer: domain.NewNormalizer(cfg.Bounds, cfg.AgencyFilter),
		predictor: domain.NewPredictor(domain.PredictorConfig{
			BackgroundPM25:    cfg.BackgroundPM25,
			MaxFirePM25:       cfg.MaxFirePM25,
			InfluenceRadiusKm: cfg.InfluenceRadiusKm,
			SaturationHa:      cfg.FireSaturationHa,
			DefaultBaseline:   cfg.DefaultBaseline,
		}),
		cfg:         cfg,
		communities: communities,
		logger:      logger,
		metrics:     metrics,
		clock:       clockwork.NewRealClock(),
	}
}

// SetClock replaces the wall clock. Tests only.
func (in *Ingestor) SetClock(clock clockwork.Clock) {
	in.clock = clock
}

// CheckReadiness returns nil once at least one cycle has completed.
func (in *Ingestor) CheckReadiness(_ context.Context) error {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if in.last == nil {
		return errors.New("no ingestion cycle has completed yet")
	}
	return nil
}

// LastCycle returns the most recent cycle summary for /status. ok is false
// until the first cycle completes.
func (in *Ingestor) LastCycle() (any, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if in.last == nil {
		return nil, false
	}
	return *in.last, true
}

// Run executes cycles on the configured interval until the context is
// cancelled. The first cycle starts immediately.
func (in *Ingestor) Run(ctx context.Context) error {
	in.logger.Info("ingestor started", "interval", in.cfg.IngestInterval)

	for {
		if _, err := in.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				in.logger.Info("ingestor stopping", "reason", ctx.Err())
				return nil
			}
			in.logger.Error("ingestion cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			in.logger.Info("ingestor stopping", "reason", ctx.Err())
			return nil
		case <-in.clock.After(in.cfg.IngestInterval):
		}
	}
}

// RunCycle executes one complete cycle. Per-stage degradation (unreachable
// feed, partial weather, stale baseline) downgrades to warnings; only
// artifact or context failures abort the cycle.
func (in *Ingestor) RunCycle(ctx context.Context) (*CycleResult, error) {
	start := in.clock.Now().UTC()
	in.metrics.CycleRunning.Set(1)
	defer in.metrics.CycleRunning.Set(0)

	result := &CycleResult{
		RunID:     uuid.NewString(),
		StartedAt: start,
	}
	logger := in.logger.With("run_id", result.RunID)

	fires := in.fetchFires(ctx, logger, result)
	if ctx.Err() != nil {
		in.metrics.CyclesFailed.Inc()
		return nil, ctx.Err()
	}

	forecasts := in.fetchWeather(ctx, logger, fires, result)
	baseline := in.fetchBaseline(ctx, logger, result)

	predictions := in.predictor.Predict(fires, baseline, in.communities, in.cfg.ForecastHorizon)
	in.metrics.PredictionsGenerated.Add(float64(len(predictions)))
	result.Predictions = len(predictions)

	ds := &domain.Dataset{
		Timestamp:   start,
		RunID:       result.RunID,
		Fires:       fires,
		Weather:     forecasts,
		Predictions: predictions,
		Bounds:      in.cfg.Bounds,
	}

	files, err := in.artifacts.WriteDataset(ds, in.communities)
	if err != nil {
		in.metrics.CyclesFailed.Inc()
		return nil, fmt.Errorf("write artifacts: %w", err)
	}
	result.Files = files

	if in.publisher != nil {
		if err := in.publisher.PublishDataset(ctx, ds); err != nil {
			// Artifacts are already on disk; a transport failure is a
			// warning, not a lost cycle.
			logger.Warn("dataset publication failed", "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("publish: %v", err))
		} else {
			in.metrics.DatasetsPublished.Inc()
		}
	}

	result.DurationMs = in.clock.Now().UTC().Sub(start).Milliseconds()
	in.metrics.CyclesCompleted.Inc()
	in.metrics.CycleDuration.Observe(float64(result.DurationMs) / 1000)

	in.mu.Lock()
	in.last = result
	in.mu.Unlock()

	logger.Info("ingestion cycle completed",
		"duration_ms", result.DurationMs,
		"fires", result.Fires,
		"rejected", result.Rejected,
		"predictions", result.Predictions,
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// fetchFires acquires, normalizes, and dedupes the fire set. An unreachable
// source yields an empty set and a warning.
func (in *Ingestor) fetchFires(ctx context.Context, logger *slog.Logger, result *CycleResult) []domain.Fire {
	raws, err := in.fires.FetchActiveFires(ctx)
	if err != nil {
		logger.Warn("fire source unavailable, proceeding with empty set", "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("fires: %v", err))
		return []domain.Fire{}
	}
	result.RawRecords = len(raws)
	in.metrics.FiresFetched.Add(float64(len(raws)))

	fires := make([]domain.Fire, 0, len(raws))
	for _, raw := range raws {
		fire, err := in.normalizer.Normalize(raw)
		if err != nil {
			in.metrics.RecordsRejected.WithLabelValues(domain.RejectReason(err)).Inc()
			result.Rejected++
			logger.Warn("record rejected", "error", err, "format", raw.Format)
			continue
		}
		fires = append(fires, fire)
	}

	fires = dedupeFires(fires, in.cfg.DedupeThresholdKm)
	in.metrics.FiresNormalized.Add(float64(len(fires)))
	result.Fires = len(fires)
	return fires
}

// fetchWeather gathers forecasts at deduped fire locations, capped. Weather
// is advisory; failures never abort a cycle.
func (in *Ingestor) fetchWeather(ctx context.Context, logger *slog.Logger, fires []domain.Fire, result *CycleResult) []domain.WeatherForecast {
	if len(fires) == 0 {
		return []domain.WeatherForecast{}
	}

	locations := make([]domain.Location, 0, len(fires))
	for _, f := range fires {
		locations = append(locations, domain.Location{Lat: f.Latitude, Lon: f.Longitude})
	}
	locations = domain.DedupeLocations(locations, in.cfg.DedupeThresholdKm)
	if len(locations) > weatherLocationCap {
		locations = locations[:weatherLocationCap]
	}

	forecasts, err := in.weather.FetchBulk(ctx, locations, in.cfg.ForecastHorizon)
	if err != nil {
		in.metrics.WeatherFetchErrors.Inc()
		logger.Warn("weather fetch failed, proceeding without forecasts", "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("weather: %v", err))
		return []domain.WeatherForecast{}
	}
	if len(forecasts) < len(locations) {
		in.metrics.WeatherFetchErrors.Add(float64(len(locations) - len(forecasts)))
	}
	result.Forecasts = len(forecasts)
	return forecasts
}

// fetchBaseline reads the monitored AQHI, dropping stale or failed readings
// in favor of the configured default (applied inside the predictor).
func (in *Ingestor) fetchBaseline(ctx context.Context, logger *slog.Logger, result *CycleResult) *domain.AirQualityBaseline {
	baseline, err := in.baseline.FetchBaseline(ctx)
	if err != nil {
		logger.Warn("baseline fetch failed, using default", "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("baseline: %v", err))
		baseline = nil
	} else if !baseline.Fresh(in.cfg.BaselineMaxAge) {
		logger.Warn("baseline reading is stale, using default",
			"observed_at", baseline.ObservedAt, "max_age", in.cfg.BaselineMaxAge)
		result.Warnings = append(result.Warnings, "baseline: stale reading discarded")
		baseline = nil
	}

	if baseline != nil && baseline.Monitored {
		in.metrics.BaselineMonitored.Set(1)
		result.Baseline = baseline.Value
		result.Monitored = true
	} else {
		in.metrics.BaselineMonitored.Set(0)
		result.Baseline = in.cfg.DefaultBaseline
	}
	return baseline
}

// dedupeFires collapses fires reported within thresholdKm of an earlier
// record. First seen wins, preserving feed order.
func dedupeFires(fires []domain.Fire, thresholdKm float64) []domain.Fire {
	kept := make([]domain.Fire, 0, len(fires))
	for _, f := range fires {
		dup := false
		for _, k := range kept {
			if domain.DistanceKm(f.Latitude, f.Longitude, k.Latitude, k.Longitude) < thresholdKm {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, f)
		}
	}
	return kept
}
