package geomet

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/borealsmoke/smoke-data-etl/internal/domain"
)

// stationCache holds recent station observations so a bulk fetch over many
// fire locations hits each reporting station at most once per TTL window.
// The station set is tiny; expiry does the bounding, not eviction.
type stationCache struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[string]cachedObservation
}

type cachedObservation struct {
	obs       domain.WeatherObservation
	fetchedAt time.Time
}

func newStationCache(ttl time.Duration, clock clockwork.Clock) *stationCache {
	return &stationCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]cachedObservation),
	}
}

func (c *stationCache) get(stationID string) (domain.WeatherObservation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[stationID]
	if !ok {
		return domain.WeatherObservation{}, false
	}
	if c.clock.Now().Sub(e.fetchedAt) > c.ttl {
		delete(c.entries, stationID)
		return domain.WeatherObservation{}, false
	}
	return e.obs, true
}

func (c *stationCache) put(stationID string, obs domain.WeatherObservation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[stationID] = cachedObservation{obs: obs, fetchedAt: c.clock.Now()}
}
