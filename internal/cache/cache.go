// Package cache provides the TTL-keyed response cache that lets slow-moving
// sources (static soil properties, monthly climatology) skip the network.
// Entries are independently reconstructible from their key, so concurrent
// writers need no coordination: a lost update is just a later cache miss.
package cache

import (
	"fmt"
	"strings"
	"time"
)

// Key derives the cache key for a source and coordinate pair. Coordinates
// are rounded to two decimals (~1km) so nearby probes share an entry.
func Key(source string, lat, lon float64) string {
	k := fmt.Sprintf("%s_%.2f_%.2f", source, lat, lon)
	return strings.ReplaceAll(k, "/", "_")
}

// entry is the stored envelope: payload plus write time.
type entry struct {
	CachedAt time.Time `json:"cached_at"`
	Payload  []byte    `json:"payload"`
}

func (e entry) fresh(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(e.CachedAt) < ttl
}
