package weathergw

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meteo-labs/weather-gateway/providers"
)

// Mode selects how cached observations are kept fresh.
type Mode string

// Operating modes.
const (
	// ModeOnDemand refreshes lazily: a read that finds no fresh cache entry
	// fetches from upstream and caches the result.
	ModeOnDemand Mode = "on_demand"
	// ModePolling additionally runs a background task that re-fetches every
	// cached key at a fixed interval, so reads are served from cache with
	// zero upstream latency.
	ModePolling Mode = "polling"
)

// Defaults applied when the corresponding Config field is left zero.
const (
	DefaultCacheCapacity = 10
	DefaultTTL           = 10 * time.Minute
	DefaultPollInterval  = 10 * time.Minute
	DefaultAsyncWorkers  = 8
)

// Duration is a time.Duration that unmarshals from YAML/JSON strings such as
// "10m" or "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"10m\": %w", err)
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"10m\": %w", err)
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// BreakerConfig configures the optional circuit breaker wrapped around the
// fetcher. Zero values fall back to the breaker package defaults.
type BreakerConfig struct {
	FailureThreshold int      `json:"failure_threshold" yaml:"failure_threshold"`
	SuccessThreshold int      `json:"success_threshold" yaml:"success_threshold"`
	Timeout          Duration `json:"timeout" yaml:"timeout"`
}

// Config holds the per-credential configuration consumed when a Service is
// created. The registry ignores it for credentials that already have a live
// Service; changing a Service's configuration requires Destroy + Resolve.
type Config struct {
	// Mode selects on_demand (default) or polling refresh behaviour.
	Mode Mode `json:"mode" yaml:"mode"`
	// CacheCapacity is the maximum number of cached observations. Zero means
	// DefaultCacheCapacity; values above the hard maximum of 10 are clamped;
	// negative values are rejected.
	CacheCapacity int `json:"cache_capacity,omitempty" yaml:"cache_capacity,omitempty"`
	// TTL bounds how long a cached observation is served without re-fetching.
	TTL Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	// PollInterval is the background refresh period in polling mode. It is
	// independent of TTL; operators may set it shorter to keep the cache
	// perpetually fresh.
	PollInterval Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
	// AsyncWorkers bounds the worker pool used for asynchronous lookups.
	AsyncWorkers int `json:"async_workers,omitempty" yaml:"async_workers,omitempty"`
	// Units and Language are applied to requests that leave them unset.
	Units    providers.Units `json:"units,omitempty" yaml:"units,omitempty"`
	Language string          `json:"lang,omitempty" yaml:"lang,omitempty"`
	// CircuitBreaker, when set, guards the fetcher against a failing upstream.
	CircuitBreaker *BreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
	// Fetcher overrides the default OpenWeather fetcher. Not loadable from
	// config files; wire it programmatically.
	Fetcher providers.Fetcher `json:"-" yaml:"-"`
	// OnLookup, when set, is called synchronously after every lookup with its
	// outcome. Hooks that do I/O should offload to their own goroutine.
	OnLookup func(ctx context.Context, e LookupEvent) `json:"-" yaml:"-"`
}
