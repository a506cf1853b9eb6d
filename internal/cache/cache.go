// Package cache provides the bounded, recency-ordered store for fetched
// weather observations. The cache knows nothing about freshness: entries
// carry their fetch time and the service layer decides whether an entry is
// still usable. The default in-process implementation is LRU.
package cache

import (
	"time"

	"github.com/meteo-labs/weather-gateway/providers"
)

// Entry is one cached observation together with the request that produced it
// and the instant it was stored. The request is retained so the background
// refresher can re-fetch faithfully; the cache key alone is not guaranteed to
// round-trip back into coordinates, casing, or language.
type Entry struct {
	Request     providers.Request
	Observation providers.Observation
	FetchedAt   time.Time
}

// Cache defines the interface for observation caching. Implementations must
// be safe for concurrent use, must treat both reads and writes as recency
// touches, and must hand out entries by value.
type Cache interface {
	Get(key string) (Entry, bool)
	Put(key string, entry Entry)
	Keys() []string
	Len() int
	Clear()
}
