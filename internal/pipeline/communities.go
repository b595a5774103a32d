package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/borealsmoke/smoke-data-etl/internal/domain"
)

// LoadCommunities reads the tracked community list from a JSON file. An
// empty path selects the built-in Avalon defaults.
func LoadCommunities(path string) ([]domain.Community, error) {
	if path == "" {
		return domain.DefaultCommunities, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read communities file: %w", err)
	}

	var communities []domain.Community
	if err := json.Unmarshal(data, &communities); err != nil {
		return nil, fmt.Errorf("parse communities file: %w", err)
	}
	if len(communities) == 0 {
		return nil, fmt.Errorf("communities file %s is empty", path)
	}

	for i, c := range communities {
		if c.Name == "" {
			return nil, fmt.Errorf("community %d has no name", i)
		}
		if c.Latitude == 0 && c.Longitude == 0 {
			return nil, fmt.Errorf("community %q has no coordinates", c.Name)
		}
	}
	return communities, nil
}
