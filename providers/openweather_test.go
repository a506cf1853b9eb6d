package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

const owPayload = `{
	"weather": [{"main": "Clouds", "description": "scattered clouds"}],
	"main": {"temp": 12.3, "feels_like": 11.1},
	"visibility": 10000,
	"wind": {"speed": 4.2},
	"dt": 1756000000,
	"sys": {"sunrise": 1755980000, "sunset": 1756030000},
	"timezone": 3600,
	"name": "London"
}`

func TestNewOpenWeather(t *testing.T) {
	p, err := NewOpenWeather("test-key", "")
	if err != nil {
		t.Fatalf("NewOpenWeather() error: %v", err)
	}
	if p.Name() != "openweather" {
		t.Errorf("Name() = %q, want openweather", p.Name())
	}
}

func TestNewOpenWeather_RequiresKey(t *testing.T) {
	_, err := NewOpenWeather("", "")
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("error = %v, want ErrConfiguration", err)
	}
}

func TestOpenWeather_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/weather" {
			t.Errorf("path = %q, want /data/2.5/weather", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "London" {
			t.Errorf("q = %q, want London", q.Get("q"))
		}
		if q.Get("appid") != "test-key" {
			t.Errorf("appid = %q, want test-key", q.Get("appid"))
		}
		if q.Get("units") != "metric" {
			t.Errorf("units = %q, want metric", q.Get("units"))
		}
		if q.Get("lang") != "en" {
			t.Errorf("lang = %q, want en", q.Get("lang"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(owPayload))
	}))
	defer srv.Close()

	p, _ := NewOpenWeather("test-key", srv.URL)
	obs, err := p.Fetch(context.Background(), Request{City: "London"})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	if obs.Main != "Clouds" {
		t.Errorf("Main = %q, want Clouds", obs.Main)
	}
	if obs.Description != "scattered clouds" {
		t.Errorf("Description = %q, want scattered clouds", obs.Description)
	}
	if obs.Temp != 12.3 {
		t.Errorf("Temp = %v, want 12.3", obs.Temp)
	}
	if obs.Visibility != 10000 {
		t.Errorf("Visibility = %v, want 10000", obs.Visibility)
	}
	if obs.Sunrise != 1755980000 || obs.Sunset != 1756030000 {
		t.Errorf("Sunrise/Sunset = %v/%v", obs.Sunrise, obs.Sunset)
	}
	if obs.City != "London" {
		t.Errorf("City = %q, want London", obs.City)
	}
}

func TestOpenWeather_Fetch_Coordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("lat") != "51.5" || q.Get("lon") != "-0.12" {
			t.Errorf("lat/lon = %q/%q", q.Get("lat"), q.Get("lon"))
		}
		if q.Has("q") {
			t.Error("q must be absent for coordinate requests")
		}
		_, _ = w.Write([]byte(owPayload))
	}))
	defer srv.Close()

	p, _ := NewOpenWeather("test-key", srv.URL)
	_, err := p.Fetch(context.Background(), Request{Latitude: fptr(51.5), Longitude: fptr(-0.12)})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
}

func TestOpenWeather_Fetch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod": 401, "message": "Invalid API key"}`))
	}))
	defer srv.Close()

	p, _ := NewOpenWeather("bad-key", srv.URL)
	_, err := p.Fetch(context.Background(), Request{City: "London"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
	if !strings.Contains(err.Error(), "Invalid API key") {
		t.Errorf("error %q should carry the upstream message", err)
	}
}

func TestOpenWeather_Fetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	p, _ := NewOpenWeather("test-key", srv.URL)
	_, err := p.Fetch(context.Background(), Request{City: "London"})
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream", err)
	}
}

func TestOpenWeather_Fetch_NoPlace(t *testing.T) {
	p, _ := NewOpenWeather("test-key", "")
	_, err := p.Fetch(context.Background(), Request{})
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("error = %v, want ErrConfiguration", err)
	}
}

func TestOpenWeather_Fetch_Integration(t *testing.T) {
	apiKey := os.Getenv("OPENWEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping: OPENWEATHER_API_KEY not set")
	}

	p, _ := NewOpenWeather(apiKey, "")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	obs, err := p.Fetch(ctx, Request{City: "London"})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if obs.City == "" {
		t.Error("expected a city name in the response")
	}
}
