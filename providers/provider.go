// Package providers defines the Fetcher interface and shared data types
// used across all weather data source implementations.
//
// The Fetcher interface must be implemented by any upstream that integrates
// with the gateway. The default implementation is OpenWeather; OpenMeteo is
// a key-less alternative, and Fallback chains several fetchers together.
//
// Core types: Request, Observation, Document.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors surfaced by fetchers and the service layer. Check with
// errors.Is; the original failure detail is carried in the wrapped message.
var (
	// ErrUpstream marks any failure to reach or understand the upstream
	// weather API: network errors, non-2xx statuses, malformed payloads.
	ErrUpstream = errors.New("upstream weather request failed")

	// ErrConfiguration marks invalid construction-time input: bad cache
	// capacity, missing API credential, or a request that identifies no place.
	ErrConfiguration = errors.New("invalid configuration")
)

// Fetcher retrieves a current-weather observation for a request.
// Implementations may perform network I/O and must honour ctx cancellation.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, req Request) (*Observation, error)
}

// Units enumerates the measurement systems supported by the upstream APIs.
type Units string

// Supported unit systems. Standard reports Kelvin and m/s, Metric reports
// Celsius and m/s, Imperial reports Fahrenheit and mph.
const (
	UnitsStandard Units = "standard"
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// Request identifies a place to query, plus unit system and language tag.
// Either City or a Latitude/Longitude pair must be set. The zero values of
// Units and Language mean metric and "en".
type Request struct {
	City      string   `json:"city,omitempty" yaml:"city,omitempty"`
	Latitude  *float64 `json:"lat,omitempty" yaml:"lat,omitempty"`
	Longitude *float64 `json:"lon,omitempty" yaml:"lon,omitempty"`
	Units     Units    `json:"units,omitempty" yaml:"units,omitempty"`
	Language  string   `json:"lang,omitempty" yaml:"lang,omitempty"`
}

// Validate returns an error if the request identifies no place or names an
// unknown unit system.
func (r Request) Validate() error {
	if strings.TrimSpace(r.City) == "" && (r.Latitude == nil || r.Longitude == nil) {
		return fmt.Errorf("%w: either city or coordinates must be provided", ErrConfiguration)
	}
	switch r.Units {
	case "", UnitsStandard, UnitsMetric, UnitsImperial:
	default:
		return fmt.Errorf("%w: unknown units %q", ErrConfiguration, r.Units)
	}
	return nil
}

// EffectiveUnits returns the unit system, defaulting to metric.
func (r Request) EffectiveUnits() Units {
	if r.Units == "" {
		return UnitsMetric
	}
	return r.Units
}

// EffectiveLanguage returns the language tag, defaulting to "en".
func (r Request) EffectiveLanguage() string {
	if r.Language == "" {
		return "en"
	}
	return r.Language
}

// CacheKey derives the canonical cache key for the request: the lower-cased
// city name (or the coordinate pair), the unit system, and the language.
// Two requests that normalize to the same key name the same cached resource.
// Derivation is pure: it never fails and never consults the clock.
func (r Request) CacheKey() string {
	var sb strings.Builder
	if city := strings.TrimSpace(r.City); city != "" {
		sb.WriteString(strings.ToLower(city))
	} else if r.Latitude != nil && r.Longitude != nil {
		sb.WriteString(strconv.FormatFloat(*r.Latitude, 'f', -1, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(*r.Longitude, 'f', -1, 64))
	}
	sb.WriteByte('|')
	sb.WriteString(string(r.EffectiveUnits()))
	sb.WriteByte('|')
	sb.WriteString(r.EffectiveLanguage())
	return sb.String()
}

// Observation is the simplified current-weather record returned by fetchers.
// Only the fields exposed through the wire Document are retained; everything
// else from the upstream payload is dropped at parse time.
type Observation struct {
	Main           string  // broad category, e.g. "Clouds"
	Description    string  // detailed text, e.g. "scattered clouds"
	Temp           float64 // in the request's unit system
	FeelsLike      float64
	Visibility     int // metres
	WindSpeed      float64
	ObservedAt     int64 // unix seconds of the measurement
	Sunrise        int64 // unix seconds
	Sunset         int64 // unix seconds
	TimezoneOffset int   // seconds east of UTC
	City           string
}
