//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/borealsmoke/smoke-data-etl/internal/adapter/artifact"
	"github.com/borealsmoke/smoke-data-etl/internal/adapter/cwfis"
	kafkaadapter "github.com/borealsmoke/smoke-data-etl/internal/adapter/kafka"
	"github.com/borealsmoke/smoke-data-etl/internal/config"
	"github.com/borealsmoke/smoke-data-etl/internal/domain"
	"github.com/borealsmoke/smoke-data-etl/internal/observability"
	"github.com/borealsmoke/smoke-data-etl/internal/pipeline"
)

const testSinkTopic = "test-smoke-datasets"

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// startKafka launches a single-node Kafka container and returns its broker
// address. The container is torn down with the test.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-smoke-etl"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic on the controller broker.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "resolve controller")

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// publishedDataset holds a deserialized message read from the sink topic.
type publishedDataset struct {
	Dataset domain.Dataset
	Key     string
	Headers map[string]string
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedDataset {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var ds domain.Dataset
	require.NoError(t, json.Unmarshal(msg.Value, &ds), "unmarshal sink message")

	return publishedDataset{Dataset: ds, Key: string(msg.Key), Headers: headers}
}

func newSinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// stubWeather returns one forecast per requested location without any HTTP.
type stubWeather struct{}

func (stubWeather) FetchBulk(_ context.Context, locations []domain.Location, hours int) ([]domain.WeatherForecast, error) {
	now := time.Now().UTC().Truncate(time.Hour)
	forecasts := make([]domain.WeatherForecast, 0, len(locations))
	for _, loc := range locations {
		points := make([]domain.WeatherObservation, 0, hours+1)
		for h := 0; h <= hours; h++ {
			points = append(points, domain.WeatherObservation{
				Timestamp:    now.Add(time.Duration(h) * time.Hour),
				Latitude:     loc.Lat,
				Longitude:    loc.Lon,
				WindSpeedKmh: 15,
				TemperatureC: 18,
				Humidity:     60,
				PressureKPa:  101.3,
			})
		}
		forecasts = append(forecasts, domain.WeatherForecast{
			Latitude: loc.Lat, Longitude: loc.Lon, ForecastTime: now, Hours: points,
		})
	}
	return forecasts, nil
}

type stubBaseline struct{ value int }

func (s stubBaseline) FetchBaseline(context.Context) (*domain.AirQualityBaseline, error) {
	return &domain.AirQualityBaseline{
		Value:      s.value,
		Latitude:   47.5615,
		Longitude:  -52.7126,
		ObservedAt: time.Now().UTC(),
		Monitored:  true,
		Source:     "Environment Canada",
	}, nil
}

// TestPublishDatasetRoundTrip verifies the adapter layer: kafka.Writer
// publishes a dataset that a plain consumer can read back intact.
func TestPublishDatasetRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}

	ts := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	dataset := &domain.Dataset{
		Timestamp: ts,
		RunID:     "run-integration-1",
		Fires: []domain.Fire{{
			ID: "nl-014-2025", Latitude: 47.8, Longitude: -53.2,
			SizeHa: 512.5, Status: domain.StatusOutOfControl,
			StartDate: ts.Add(-26 * time.Hour), LastUpdated: ts.Add(-2 * time.Hour),
			Agency: "nl",
		}},
		Predictions: []domain.AQHIPrediction{{
			Timestamp: ts, Community: "St. John's",
			Latitude: 47.5615, Longitude: -52.7126,
			AQHI: 5, PM25: 24.3, SourceFireIDs: []string{"nl-014-2025"}, Confidence: 0.75,
		}},
		Bounds: domain.Bounds{MinLat: 46.5, MaxLat: 60.5, MinLon: -67.5, MaxLon: -52.5},
	}

	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.PublishDataset(ctx, dataset))

	consumer := newSinkConsumer(t, broker)
	pub := readPublished(ctx, t, consumer)

	assert.Equal(t, "2025-06-15T12:00:00Z", pub.Key)
	assert.Equal(t, "run-integration-1", pub.Headers["run_id"])
	assert.Equal(t, "1", pub.Headers["fire_count"])
	assert.Equal(t, "1", pub.Headers["prediction_count"])

	if diff := cmp.Diff(*dataset, pub.Dataset); diff != "" {
		t.Errorf("published dataset mismatch (-want +got):\n%s", diff)
	}
}

// TestCyclePublishesToKafka runs a full ingestion cycle against a stub fire
// feed and real Kafka, then verifies the published dataset matches what the
// cycle wrote to disk.
func TestCyclePublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	const feed = "agency,fire_id,lat,lon,hectares,stage_of_control,startdate\n" +
		"nl,NL-014-2025,47.8000,-53.2000,512.5,Out of Control,2025/06/14 09:30:00\n" +
		"nl,NL-016-2025,53.3000,-60.3300,1500.0,Being Held,2025/06/13 18:00:00\n"

	fireServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/downloads/activefires/activefires.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(feed))
	}))
	t.Cleanup(fireServer.Close)

	cfg := &config.Config{
		IngestInterval:     30 * time.Minute,
		CWFISBaseURL:       fireServer.URL,
		FetchTimeout:       5 * time.Second,
		RetryMinWait:       time.Millisecond,
		RetryMaxWait:       5 * time.Millisecond,
		Bounds:             domain.Bounds{MinLat: 46.5, MaxLat: 60.5, MinLon: -67.5, MaxLon: -52.5},
		DedupeThresholdKm:  10,
		ForecastHorizon:    12,
		InfluenceRadiusKm:  200,
		FireSaturationHa:   1000,
		BackgroundPM25:     8,
		MaxFirePM25:        50,
		DefaultBaseline:    2,
		BaselineMaxAge:     3 * time.Hour,
		WeatherConcurrency: 2,
		ArtifactDir:        t.TempDir(),
		KafkaEnabled:       true,
		KafkaBrokers:       []string{broker},
		KafkaSinkTopic:     testSinkTopic,
	}

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()

	fires := cwfis.NewFetcher(
		cwfis.NewClient(cfg.CWFISBaseURL, cfg.FetchTimeout, cfg.RetryMinWait, cfg.RetryMaxWait, logger),
		logger, metrics)
	artifacts := artifact.NewWriter(cfg.ArtifactDir, cfg.IngestInterval, logger)

	publisher := kafkaadapter.NewWriter(cfg, logger)
	t.Cleanup(func() { _ = publisher.Close() })

	ingestor := pipeline.New(fires, stubWeather{}, stubBaseline{value: 3}, artifacts, publisher,
		domain.DefaultCommunities, cfg, logger, metrics)

	result, err := ingestor.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Fires)
	assert.Empty(t, result.Warnings)

	consumer := newSinkConsumer(t, broker)
	pub := readPublished(ctx, t, consumer)

	assert.Equal(t, result.RunID, pub.Headers["run_id"])
	assert.Equal(t, "2", pub.Headers["fire_count"])
	assert.Equal(t, strconv.Itoa(result.Predictions), pub.Headers["prediction_count"])

	require.Len(t, pub.Dataset.Fires, 2)
	byID := map[string]domain.Fire{}
	for _, f := range pub.Dataset.Fires {
		byID[f.ID] = f
	}
	require.Contains(t, byID, "NL-014-2025")
	assert.Equal(t, domain.StatusOutOfControl, byID["NL-014-2025"].Status)
	assert.Equal(t, 512.5, byID["NL-014-2025"].SizeHa)
	require.Contains(t, byID, "NL-016-2025")
	assert.Equal(t, domain.StatusBeingHeld, byID["NL-016-2025"].Status)

	// Predictions cover every community for the full horizon.
	assert.Equal(t, len(domain.DefaultCommunities)*cfg.ForecastHorizon, len(pub.Dataset.Predictions))
	for _, p := range pub.Dataset.Predictions {
		assert.GreaterOrEqual(t, p.AQHI, 1)
		assert.NotEmpty(t, p.Community)
	}
}
