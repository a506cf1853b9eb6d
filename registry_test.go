package weathergw

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meteo-labs/weather-gateway/providers"
)

func TestRegistry_ResolveCreatesOnce(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	first, err := r.Resolve("key-a", Config{Fetcher: newFakeFetcher()})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	second, err := r.Resolve("key-a", Config{Fetcher: newFakeFetcher()})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if first != second {
		t.Error("Resolve must return the same Service for the same credential")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_ResolveIgnoresLaterConfig(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	first, err := r.Resolve("key-a", Config{Fetcher: newFakeFetcher(), Mode: ModeOnDemand})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	// A different config for the same credential does not reconfigure.
	second, err := r.Resolve("key-a", Config{Fetcher: newFakeFetcher(), Mode: ModePolling})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if first != second {
		t.Fatal("expected the existing Service")
	}
	if second.Mode() != ModeOnDemand {
		t.Errorf("Mode() = %q, want on_demand", second.Mode())
	}
}

func TestRegistry_ResolveDistinctCredentials(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	a, _ := r.Resolve("key-a", Config{Fetcher: newFakeFetcher()})
	b, _ := r.Resolve("key-b", Config{Fetcher: newFakeFetcher()})
	if a == b {
		t.Error("distinct credentials must get distinct Services")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistry_ResolveRequiresCredential(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("", Config{Fetcher: newFakeFetcher()})
	if !errors.Is(err, providers.ErrConfiguration) {
		t.Errorf("error = %v, want ErrConfiguration", err)
	}
}

func TestRegistry_ResolvePropagatesBadConfig(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("key-a", Config{Fetcher: newFakeFetcher(), CacheCapacity: -5})
	if !errors.Is(err, providers.ErrConfiguration) {
		t.Errorf("error = %v, want ErrConfiguration", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after failed Resolve", r.Len())
	}
}

func TestRegistry_DestroyTearsDown(t *testing.T) {
	r := NewRegistry()
	fetcher := newFakeFetcher()
	s, err := r.Resolve("key-a", Config{
		Fetcher:      fetcher,
		Mode:         ModePolling,
		PollInterval: Duration(20 * time.Millisecond),
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	ctx := context.Background()
	if _, err := s.CurrentWeather(ctx, providers.Request{City: "London"}); err != nil {
		t.Fatalf("CurrentWeather() error: %v", err)
	}

	r.Destroy("key-a")
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}

	// Cache cleared, poller stopped.
	if s.cache.Len() != 0 {
		t.Errorf("cache Len() = %d after Destroy, want 0", s.cache.Len())
	}
	calls := fetcher.callCount("London")
	time.Sleep(80 * time.Millisecond)
	if fetcher.callCount("London") != calls {
		t.Error("poller still running after Destroy")
	}
}

func TestRegistry_DestroyUnknownIsNoop(_ *testing.T) {
	r := NewRegistry()
	r.Destroy("never-resolved")
}

func TestRegistry_ResolveAfterDestroyIsFresh(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	first, _ := r.Resolve("key-a", Config{Fetcher: newFakeFetcher()})
	r.Destroy("key-a")
	second, err := r.Resolve("key-a", Config{Fetcher: newFakeFetcher()})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if first == second {
		t.Error("expected a fresh Service after Destroy")
	}

	// The new instance works; the old one refuses async lookups.
	if _, err := second.CurrentWeather(context.Background(), providers.Request{City: "London"}); err != nil {
		t.Errorf("fresh Service lookup failed: %v", err)
	}
	res := <-first.CurrentWeatherAsync(context.Background(), providers.Request{City: "London"})
	if !errors.Is(res.Err, ErrServiceClosed) {
		t.Errorf("old Service Err = %v, want ErrServiceClosed", res.Err)
	}
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Resolve("key-a", Config{Fetcher: newFakeFetcher()})
	b, _ := r.Resolve("key-b", Config{Fetcher: newFakeFetcher()})

	r.Close()
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	for _, s := range []*Service{a, b} {
		res := <-s.CurrentWeatherAsync(context.Background(), providers.Request{City: "London"})
		if !errors.Is(res.Err, ErrServiceClosed) {
			t.Errorf("Err = %v, want ErrServiceClosed", res.Err)
		}
	}
}

func TestRegistry_ConcurrentResolve(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	results := make(chan *Service, 10)
	for i := 0; i < 10; i++ {
		go func() {
			s, err := r.Resolve("key-a", Config{Fetcher: newFakeFetcher()})
			if err != nil {
				t.Errorf("Resolve() error: %v", err)
			}
			results <- s
		}()
	}

	first := <-results
	for i := 1; i < 10; i++ {
		if s := <-results; s != first {
			t.Error("concurrent Resolve produced distinct Services")
		}
	}
}
