package pipeline_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borealsmoke/smoke-data-etl/internal/adapter/cwfis"
	"github.com/borealsmoke/smoke-data-etl/internal/domain"
	"github.com/borealsmoke/smoke-data-etl/internal/observability"
	"github.com/borealsmoke/smoke-data-etl/internal/pipeline"
)

// Format-equivalence check over the committed mock feeds: the same fires,
// served via CSV, GeoJSON, or KML, must normalize to the same canonical set.
// Fixtures are generated by cmd/genmock.
func TestRunCycle_WithMockFeeds(t *testing.T) {
	expected := readExpectedFires(t)

	cases := []struct {
		name    string
		fixture string
		path    string
	}{
		{"csv", "activefires.csv", "/downloads/activefires/activefires.csv"},
		{"geojson", "activefires.json", "/datamart/activefire/activefires.json"},
		{"kml", "activefires.kml", "/datamart/activefire/activefires.kml"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := readMockFile(t, tc.fixture)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != tc.path {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				w.Write(payload)
			}))
			defer srv.Close()

			fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
			domain.SetClock(fake)
			t.Cleanup(func() { domain.SetClock(nil) })

			logger := slog.Default()
			metrics := observability.NewMetricsForTesting()
			client := cwfis.NewClient(srv.URL, 2*time.Second, time.Millisecond, 5*time.Millisecond, logger)
			fetcher := cwfis.NewFetcher(client, logger, metrics)

			artifacts := &mockArtifactStore{}
			ing := pipeline.New(
				fetcher, &mockWeatherSource{}, &mockBaselineSource{
					baseline: &domain.AirQualityBaseline{
						Value: 3, Monitored: true, ObservedAt: fake.Now().UTC(),
					},
				},
				artifacts, nil,
				testCommunities(), testConfig(), logger, metrics,
			)
			ing.SetClock(fake)

			result, err := ing.RunCycle(context.Background())
			require.NoError(t, err)

			assert.Equal(t, 4, result.RawRecords)
			assert.Equal(t, 3, result.Fires)
			assert.Equal(t, 1, result.Rejected)

			if diff := cmp.Diff(expected, artifacts.dataset.Fires); diff != "" {
				t.Fatalf("normalized fires differ from fixture (-want +got):\n%s", diff)
			}
		})
	}
}

func readMockFile(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "data", "mock", name))
	require.NoError(t, err)
	return data
}

func readExpectedFires(t *testing.T) []domain.Fire {
	t.Helper()
	var fires []domain.Fire
	require.NoError(t, json.Unmarshal(readMockFile(t, "fires_normalized.json"), &fires))
	return fires
}
