package weathergw

import (
	"context"
	"sync"
	"time"

	"github.com/meteo-labs/weather-gateway/internal/cache"
	"github.com/meteo-labs/weather-gateway/internal/logging"
	"github.com/meteo-labs/weather-gateway/internal/metrics"
	"github.com/meteo-labs/weather-gateway/providers"
)

// startPolling launches the background refresher goroutine. The context only
// cancels the schedule; a refresh cycle already underway runs to completion.
func (s *Service) startPolling() {
	ctx, cancel := context.WithCancel(context.Background())
	s.pollCancel = cancel

	go func() {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		logging.Logger.Info("background refresher started",
			"fetcher", s.fetcher.Name(),
			"interval", s.pollInterval.String(),
		)
		for {
			select {
			case <-ctx.Done():
				logging.Logger.Info("background refresher stopped", "fetcher", s.fetcher.Name())
				return
			case <-ticker.C:
				s.refreshAll()
			}
		}
	}()
}

// refreshAll re-fetches every cached key using the request that originally
// populated it, concurrently, and waits for the cycle to finish. A failed
// refresh logs and leaves the existing (stale) entry in place; other keys
// are unaffected. Keys evicted between the snapshot and the store are
// re-inserted, which is acceptable: the data is fresh either way.
func (s *Service) refreshAll() {
	keys := s.cache.Keys()
	if len(keys) == 0 {
		return
	}

	start := time.Now()
	var wg sync.WaitGroup
	for _, key := range keys {
		entry, ok := s.cache.Get(key)
		if !ok {
			continue // evicted since the snapshot
		}
		wg.Add(1)
		go func(key string, req providers.Request) {
			defer wg.Done()
			// Deliberately not tied to the poll context: teardown stops
			// future cycles, not fetches already in flight.
			obs, err := s.fetcher.Fetch(context.Background(), req)
			if err != nil {
				metrics.RefreshesTotal.WithLabelValues(s.fetcher.Name(), "error").Inc()
				logging.Logger.Warn("background refresh failed",
					"key", key,
					"fetcher", s.fetcher.Name(),
					"error", err.Error(),
				)
				return
			}
			s.cache.Put(key, cache.Entry{Request: req, Observation: *obs, FetchedAt: time.Now()})
			metrics.RefreshesTotal.WithLabelValues(s.fetcher.Name(), "success").Inc()
		}(key, entry.Request)
	}
	wg.Wait()

	metrics.CacheEntries.WithLabelValues(s.fetcher.Name()).Set(float64(s.cache.Len()))
	logging.Logger.Debug("refresh cycle complete",
		"fetcher", s.fetcher.Name(),
		"keys", len(keys),
		"took_ms", time.Since(start).Milliseconds(),
	)
}
