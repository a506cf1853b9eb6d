package weathergw

import (
	"fmt"
	"sync"

	"github.com/meteo-labs/weather-gateway/internal/logging"
	"github.com/meteo-labs/weather-gateway/providers"
)

// Registry hands out at most one Service per API credential. Resolve and
// Destroy are safe for concurrent use; a credential destroyed mid-Resolve
// observes one or the other in full, never a half-built Service.
type Registry struct {
	mu       sync.Mutex
	services map[string]*Service
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]*Service)}
}

// Resolve returns the Service for apiKey, creating it from cfg on first use.
// A later Resolve with a different cfg returns the existing Service
// unchanged; reconfiguring a credential requires Destroy first.
func (r *Registry) Resolve(apiKey string, cfg Config) (*Service, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: api key is required", providers.ErrConfiguration)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.services[apiKey]; ok {
		return s, nil
	}

	s, err := newService(apiKey, cfg)
	if err != nil {
		return nil, err
	}
	r.services[apiKey] = s
	logging.Logger.Info("weather service created",
		"fetcher", s.FetcherName(),
		"mode", string(s.Mode()),
	)
	return s, nil
}

// Destroy tears down the Service for apiKey: it is removed from the registry,
// its refresher stops, and its cache is cleared. Destroying an unknown
// credential is a no-op. The credential may be Resolved again afterwards,
// yielding a fresh Service.
func (r *Registry) Destroy(apiKey string) {
	r.mu.Lock()
	s, ok := r.services[apiKey]
	if ok {
		delete(r.services, apiKey)
	}
	r.mu.Unlock()

	if ok {
		s.Close()
		logging.Logger.Info("weather service destroyed", "fetcher", s.FetcherName())
	}
}

// Len returns the number of live Services.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.services)
}

// Close destroys every live Service. Intended for process shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	services := make([]*Service, 0, len(r.services))
	for _, s := range r.services {
		services = append(services, s)
	}
	r.services = make(map[string]*Service)
	r.mu.Unlock()

	for _, s := range services {
		s.Close()
	}
}
