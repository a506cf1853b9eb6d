// Package weathergw provides a caching gateway for current-weather lookups
// against providers such as OpenWeatherMap.
//
// The Registry type is the main entry point: create one with NewRegistry,
// resolve a per-credential Service with Resolve, and look up weather with
// CurrentWeather or CurrentWeatherAsync. Each Service owns a bounded LRU
// cache of observations and, in polling mode, a background refresher that
// keeps every cached entry fresh.
//
// Configuration is a plain value type ([Config]) which can be loaded from a
// YAML or JSON file using [LoadConfig].
package weathergw

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/meteo-labs/weather-gateway/internal/cache"
	"github.com/meteo-labs/weather-gateway/internal/circuitbreaker"
	"github.com/meteo-labs/weather-gateway/internal/logging"
	"github.com/meteo-labs/weather-gateway/internal/metrics"
	"github.com/meteo-labs/weather-gateway/providers"
)

// ErrServiceClosed is returned by lookups issued after the Service has been
// destroyed.
var ErrServiceClosed = errors.New("weather service is closed")

// Result carries the outcome of an asynchronous lookup. Exactly one of
// Observation and Err is set.
type Result struct {
	Observation *providers.Observation
	Err         error
}

// LookupEvent describes one completed lookup, successful or not. It is
// passed to the Config.OnLookup hook, e.g. to feed an audit log.
type LookupEvent struct {
	Place    string // city name or "lat,lon"
	Fetcher  string
	Source   string // "cache" or "upstream"
	Units    string
	Language string
	Err      error
}

// place returns the human-readable place a request names.
func place(req providers.Request) string {
	if req.City != "" {
		return req.City
	}
	if req.Latitude != nil && req.Longitude != nil {
		return fmt.Sprintf("%v,%v", *req.Latitude, *req.Longitude)
	}
	return ""
}

// Service coordinates lookups for one API credential: it consults the cache,
// falls back to the fetcher, and (in polling mode) keeps cached entries
// fresh in the background. Obtain instances through Registry.Resolve; a
// Service must not be used after Registry.Destroy.
type Service struct {
	apiKey       string
	mode         Mode
	ttl          time.Duration
	pollInterval time.Duration
	fetcher      providers.Fetcher
	cache        cache.Cache
	sem          chan struct{} // bounds concurrent async lookups
	pollCancel   context.CancelFunc
	units        providers.Units
	language     string
	onLookup     func(context.Context, LookupEvent)

	mu     sync.Mutex
	closed bool
}

// newService builds a Service from cfg, applying defaults and starting the
// background refresher in polling mode. Construction fails fast on invalid
// configuration; no resources are held on error.
func newService(apiKey string, cfg Config) (*Service, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	mode := cfg.Mode
	if mode == "" {
		mode = ModeOnDemand
	}
	capacity := cfg.CacheCapacity
	if capacity == 0 {
		capacity = DefaultCacheCapacity
	}
	ttl := time.Duration(cfg.TTL)
	if ttl == 0 {
		ttl = DefaultTTL
	}
	pollInterval := time.Duration(cfg.PollInterval)
	if pollInterval == 0 {
		pollInterval = DefaultPollInterval
	}
	workers := cfg.AsyncWorkers
	if workers == 0 {
		workers = DefaultAsyncWorkers
	}

	fetcher := cfg.Fetcher
	if fetcher == nil {
		ow, err := providers.NewOpenWeather(apiKey, "")
		if err != nil {
			return nil, err
		}
		fetcher = ow
	}
	if cfg.CircuitBreaker != nil {
		cb := circuitbreaker.New(
			cfg.CircuitBreaker.FailureThreshold,
			cfg.CircuitBreaker.SuccessThreshold,
			time.Duration(cfg.CircuitBreaker.Timeout),
		)
		fetcher = &breakerFetcher{Fetcher: fetcher, cb: cb, name: fetcher.Name()}
	}

	c, err := cache.NewLRU(capacity)
	if err != nil {
		return nil, err
	}

	s := &Service{
		apiKey:       apiKey,
		mode:         mode,
		ttl:          ttl,
		pollInterval: pollInterval,
		fetcher:      fetcher,
		cache:        c,
		sem:          make(chan struct{}, workers),
		units:        cfg.Units,
		language:     cfg.Language,
		onLookup:     cfg.OnLookup,
	}
	if mode == ModePolling {
		s.startPolling()
	}
	return s, nil
}

// Mode returns the Service's operating mode.
func (s *Service) Mode() Mode { return s.mode }

// FetcherName returns the name of the configured fetcher.
func (s *Service) FetcherName() string { return s.fetcher.Name() }

// CurrentWeather returns the current weather for req. A cache entry younger
// than the TTL is returned without any upstream call; otherwise the fetcher
// is invoked, the cache updated, and the fresh observation returned. Fetch
// failures propagate unchanged and leave any previous (stale) entry in place
// for the next attempt.
func (s *Service) CurrentWeather(ctx context.Context, req providers.Request) (*providers.Observation, error) {
	start := time.Now()
	log := logging.FromContext(ctx)

	if req.Units == "" {
		req.Units = s.units
	}
	if req.Language == "" {
		req.Language = s.language
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key := req.CacheKey()

	if entry, ok := s.cache.Get(key); ok && time.Since(entry.FetchedAt) < s.ttl {
		metrics.LookupsTotal.WithLabelValues(s.fetcher.Name(), "cache", "success").Inc()
		metrics.LookupDuration.WithLabelValues(s.fetcher.Name(), "cache").Observe(time.Since(start).Seconds())
		log.Debug("cache hit", "key", key, "age_ms", time.Since(entry.FetchedAt).Milliseconds())
		s.notify(ctx, req, "cache", nil)
		obs := entry.Observation
		return &obs, nil
	}

	obs, err := s.fetcher.Fetch(ctx, req)
	if err != nil {
		metrics.LookupsTotal.WithLabelValues(s.fetcher.Name(), "upstream", "error").Inc()
		metrics.UpstreamErrors.WithLabelValues(s.fetcher.Name(), "upstream_error").Inc()
		log.Error("weather fetch failed",
			"key", key,
			"fetcher", s.fetcher.Name(),
			"latency_ms", time.Since(start).Milliseconds(),
			"error", err.Error(),
		)
		s.notify(ctx, req, "upstream", err)
		return nil, err
	}

	s.cache.Put(key, cache.Entry{Request: req, Observation: *obs, FetchedAt: time.Now()})
	metrics.CacheEntries.WithLabelValues(s.fetcher.Name()).Set(float64(s.cache.Len()))
	metrics.LookupsTotal.WithLabelValues(s.fetcher.Name(), "upstream", "success").Inc()
	metrics.LookupDuration.WithLabelValues(s.fetcher.Name(), "upstream").Observe(time.Since(start).Seconds())
	log.Info("weather fetched",
		"key", key,
		"fetcher", s.fetcher.Name(),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	s.notify(ctx, req, "upstream", nil)
	return obs, nil
}

// notify invokes the configured lookup hook, if any.
func (s *Service) notify(ctx context.Context, req providers.Request, source string, err error) {
	if s.onLookup == nil {
		return
	}
	s.onLookup(ctx, LookupEvent{
		Place:    place(req),
		Fetcher:  s.fetcher.Name(),
		Source:   source,
		Units:    string(req.EffectiveUnits()),
		Language: req.EffectiveLanguage(),
		Err:      err,
	})
}

// CurrentWeatherAsync runs the same lookup as CurrentWeather on the worker
// pool without blocking the caller. The returned channel is buffered and
// settles exactly once — with the identical error kind the synchronous path
// would produce — even if the Service is destroyed while the lookup is in
// flight.
func (s *Service) CurrentWeatherAsync(ctx context.Context, req providers.Request) <-chan Result {
	out := make(chan Result, 1)

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		out <- Result{Err: ErrServiceClosed}
		close(out)
		return out
	}

	go func() {
		defer close(out)
		s.sem <- struct{}{}
		defer func() { <-s.sem }()
		obs, err := s.CurrentWeather(ctx, req)
		out <- Result{Observation: obs, Err: err}
	}()
	return out
}

// CurrentWeatherByCity is a convenience wrapper that looks up a city using
// the Service's default units and language and returns the wire Document.
func (s *Service) CurrentWeatherByCity(ctx context.Context, city string) (providers.Document, error) {
	obs, err := s.CurrentWeather(ctx, providers.Request{City: city})
	if err != nil {
		return providers.Document{}, err
	}
	return providers.ToDocument(*obs), nil
}

// Close stops the background refresher and clears the cache. It never waits
// for in-flight work: fetches already started (async lookups or refreshes)
// settle on their own. Close is idempotent.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.pollCancel != nil {
		s.pollCancel()
	}
	s.cache.Clear()
	metrics.CacheEntries.WithLabelValues(s.fetcher.Name()).Set(0)
}

// breakerFetcher wraps a Fetcher with a circuit breaker.
type breakerFetcher struct {
	providers.Fetcher
	cb   *circuitbreaker.CircuitBreaker
	name string
}

func (f *breakerFetcher) Fetch(ctx context.Context, req providers.Request) (*providers.Observation, error) {
	if !f.cb.Allow() {
		metrics.CircuitBreakerState.WithLabelValues(f.name).Set(1) // open
		metrics.UpstreamErrors.WithLabelValues(f.name, "circuit_open").Inc()
		return nil, fmt.Errorf("%w: %v", providers.ErrUpstream, circuitbreaker.ErrCircuitOpen)
	}
	obs, err := f.Fetcher.Fetch(ctx, req)
	if err != nil {
		f.cb.RecordFailure()
		metrics.CircuitBreakerState.WithLabelValues(f.name).Set(float64(f.cb.State()))
		return nil, err
	}
	f.cb.RecordSuccess()
	metrics.CircuitBreakerState.WithLabelValues(f.name).Set(0) // closed
	return obs, nil
}
