// Command validate performs integrity checks over a published static
// artifact set: the main dataset, the per-community slices, and the
// metadata manifest. It verifies geographic bounds, prediction invariants,
// cross-file consistency, and manifest completeness.
//
// Usage:
//
//	go run ./cmd/validate -dir ./static-data
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/borealsmoke/smoke-data-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "./static-data", "artifact directory to validate")
	flag.Parse()

	if code := run(*dir); code != 0 {
		os.Exit(code)
	}
}

func run(dir string) int {
	fmt.Println("=== Smoke Dataset Integrity Validation ===")
	fmt.Println()

	ds, err := loadJSONFile[domain.Dataset](filepath.Join(dir, "data.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load data.json: %v\n", err)
		return 1
	}

	meta, err := loadJSONFile[metadataFile](filepath.Join(dir, "metadata.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load metadata.json: %v\n", err)
		return 1
	}

	communityFiles, err := loadCommunityFiles(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load community files: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateFires(&ds),
		validatePredictions(&ds),
		validateCommunityFiles(&ds, communityFiles),
		validateMetadata(&meta, &ds, dir),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d fires, %d forecasts, %d predictions, %d community files\n",
		len(ds.Fires), len(ds.Weather), len(ds.Predictions), len(communityFiles))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── File shapes (mirroring the artifact writer's output) ──

type communityFile struct {
	Community   string                  `json:"community"`
	Coordinates domain.Location         `json:"coordinates"`
	Timestamp   time.Time               `json:"timestamp"`
	CurrentAQHI int                     `json:"current_aqhi"`
	Predictions []domain.AQHIPrediction `json:"predictions"`
}

type metadataFile struct {
	LastUpdated time.Time `json:"last_updated"`
	NextUpdate  time.Time `json:"next_update"`
	RunID       string    `json:"run_id"`
	Files       []string  `json:"files"`
	Version     string    `json:"version"`
	DataSources []string  `json:"data_sources"`
}

func loadJSONFile[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}

func loadCommunityFiles(dir string) (map[string]communityFile, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "community-*.json"))
	if err != nil {
		return nil, err
	}
	files := make(map[string]communityFile, len(matches))
	for _, path := range matches {
		cf, err := loadJSONFile[communityFile](path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		files[filepath.Base(path)] = cf
	}
	return files, nil
}

// ── Phase 1: Fire records ──

var validStatuses = map[domain.FireStatus]bool{
	domain.StatusOutOfControl: true,
	domain.StatusBeingHeld:    true,
	domain.StatusUnderControl: true,
	domain.StatusOut:          true,
	domain.StatusUnknown:      true,
}

func validateFires(ds *domain.Dataset) *phase {
	p := &phase{name: "Phase 1: Fire records"}

	if !ds.Bounds.Valid() {
		p.errorf("dataset bounds are invalid: %+v", ds.Bounds)
	}
	if ds.Timestamp.IsZero() {
		p.errorf("dataset timestamp is zero")
	}
	if ds.RunID == "" {
		p.errorf("dataset run_id is empty")
	}

	seen := map[string]int{}
	for i, f := range ds.Fires {
		if f.ID == "" {
			p.errorf("fire %d: empty fire_id", i)
		} else {
			seen[f.ID]++
		}
		if !ds.Bounds.Contains(f.Latitude, f.Longitude) {
			p.errorf("fire %s: coordinates (%.4f, %.4f) outside dataset bounds", f.ID, f.Latitude, f.Longitude)
		}
		if !validStatuses[f.Status] {
			p.errorf("fire %s: invalid status %q", f.ID, f.Status)
		}
		if f.SizeHa < 0 {
			p.errorf("fire %s: negative size %g", f.ID, f.SizeHa)
		}
		if f.StartDate.IsZero() {
			p.errorf("fire %s: zero start_date", f.ID)
		}
	}
	for id, n := range seen {
		if n > 1 {
			p.errorf("fire_id %q appears %d times", id, n)
		}
	}
	return p
}

// ── Phase 2: Prediction invariants ──

func validatePredictions(ds *domain.Dataset) *phase {
	p := &phase{name: "Phase 2: Prediction invariants"}

	fireIDs := map[string]bool{}
	for _, f := range ds.Fires {
		fireIDs[f.ID] = true
	}

	perCommunity := map[string]int{}
	for i, pred := range ds.Predictions {
		if pred.Community == "" {
			p.errorf("prediction %d: empty community", i)
		}
		perCommunity[pred.Community]++

		if pred.AQHI < 1 {
			p.errorf("prediction %d (%s): aqhi_value %d below floor", i, pred.Community, pred.AQHI)
		}
		if pred.PM25 <= 0 {
			p.errorf("prediction %d (%s): non-positive pm25 %g", i, pred.Community, pred.PM25)
		}
		if pred.Confidence <= 0 || pred.Confidence > 1 {
			p.errorf("prediction %d (%s): confidence %g outside (0, 1]", i, pred.Community, pred.Confidence)
		}
		if pred.Timestamp.IsZero() {
			p.errorf("prediction %d (%s): zero timestamp", i, pred.Community)
		}
		for _, id := range pred.SourceFireIDs {
			if !fireIDs[id] {
				p.errorf("prediction %d (%s): source fire %q not in dataset", i, pred.Community, id)
			}
		}
	}

	// Every community must carry the same number of hourly predictions.
	want := -1
	for community, n := range perCommunity {
		if want == -1 {
			want = n
			continue
		}
		if n != want {
			p.errorf("community %q has %d predictions, others have %d", community, n, want)
		}
	}
	return p
}

// ── Phase 3: Community file consistency ──

func validateCommunityFiles(ds *domain.Dataset, files map[string]communityFile) *phase {
	p := &phase{name: "Phase 3: Community files"}

	if len(files) == 0 {
		p.errorf("no community-*.json files found")
	}

	for name, cf := range files {
		wantName := "community-" + cf.Community + ".json"
		if name != wantName {
			p.errorf("%s: community slug %q does not match filename", name, cf.Community)
		}
		if cf.CurrentAQHI < 1 {
			p.errorf("%s: current_aqhi %d below floor", name, cf.CurrentAQHI)
		}
		if len(cf.Predictions) > 12 {
			p.errorf("%s: %d predictions, expected at most 12", name, len(cf.Predictions))
		}
		if !cf.Timestamp.Equal(ds.Timestamp) {
			p.errorf("%s: timestamp %s differs from dataset %s",
				name, cf.Timestamp.Format(time.RFC3339), ds.Timestamp.Format(time.RFC3339))
		}
		if len(cf.Predictions) > 0 && cf.Predictions[0].AQHI != cf.CurrentAQHI {
			p.errorf("%s: current_aqhi %d does not match first prediction %d",
				name, cf.CurrentAQHI, cf.Predictions[0].AQHI)
		}
		for i, pred := range cf.Predictions {
			if slugify(pred.Community) != cf.Community {
				p.errorf("%s: prediction %d belongs to %q", name, i, pred.Community)
			}
		}
	}
	return p
}

// ── Phase 4: Metadata manifest ──

func validateMetadata(meta *metadataFile, ds *domain.Dataset, dir string) *phase {
	p := &phase{name: "Phase 4: Metadata manifest"}

	if meta.LastUpdated.IsZero() {
		p.errorf("last_updated is zero")
	}
	if !meta.NextUpdate.After(meta.LastUpdated) {
		p.errorf("next_update %s is not after last_updated %s",
			meta.NextUpdate.Format(time.RFC3339), meta.LastUpdated.Format(time.RFC3339))
	}
	if meta.RunID != ds.RunID {
		p.errorf("run_id %q does not match dataset run_id %q", meta.RunID, ds.RunID)
	}
	if meta.Version == "" {
		p.errorf("version is empty")
	}
	if len(meta.DataSources) == 0 {
		p.errorf("data_sources is empty")
	}
	for _, name := range meta.Files {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			p.errorf("listed file %q is missing: %v", name, err)
		}
	}
	return p
}

// slugify mirrors domain.Community.Slug for prediction community names.
func slugify(name string) string {
	return domain.Community{Name: name}.Slug()
}
