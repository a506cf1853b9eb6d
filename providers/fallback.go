package providers

import (
	"context"
	"fmt"
)

// Fallback is a Fetcher that tries each of its fetchers in order and returns
// the first successful observation. The last failure is returned when every
// fetcher fails, preserving its error kind.
type Fallback struct {
	fetchers []Fetcher
}

// NewFallback creates a fallback chain over the given fetchers.
func NewFallback(fetchers ...Fetcher) (*Fallback, error) {
	if len(fetchers) == 0 {
		return nil, fmt.Errorf("%w: fallback requires at least one fetcher", ErrConfiguration)
	}
	return &Fallback{fetchers: fetchers}, nil
}

// Name returns "fallback".
func (f *Fallback) Name() string { return "fallback" }

// Fetch tries each fetcher in order until one succeeds.
func (f *Fallback) Fetch(ctx context.Context, req Request) (*Observation, error) {
	var lastErr error
	for _, fetcher := range f.fetchers {
		obs, err := fetcher.Fetch(ctx, req)
		if err == nil {
			return obs, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}
