package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	weathergw "github.com/meteo-labs/weather-gateway"
	"github.com/meteo-labs/weather-gateway/internal/logging"
	"github.com/meteo-labs/weather-gateway/internal/lookuplog"
	"github.com/meteo-labs/weather-gateway/internal/version"
	"github.com/meteo-labs/weather-gateway/providers"
)

func main() {
	apiKey := os.Getenv("OPENWEATHER_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENWEATHER_API_KEY is required")
	}

	// Load and validate config if WEATHER_CONFIG is set.
	cfg := weathergw.Config{}
	if cfgPath := os.Getenv("WEATHER_CONFIG"); cfgPath != "" {
		loaded, err := weathergw.LoadConfig(cfgPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if err := weathergw.ValidateConfig(*loaded); err != nil {
			log.Fatalf("Invalid config: %v", err)
		}
		cfg = *loaded
		log.Printf("Config loaded: mode=%s, cache_capacity=%d", cfg.Mode, cfg.CacheCapacity)
	}

	// Optional OpenMeteo fallback for coordinate lookups.
	if os.Getenv("OPENMETEO_FALLBACK") == "true" {
		ow, err := providers.NewOpenWeather(apiKey, "")
		if err != nil {
			log.Fatalf("OpenWeather fetcher: %v", err)
		}
		om, err := providers.NewOpenMeteo("")
		if err != nil {
			log.Fatalf("OpenMeteo fetcher: %v", err)
		}
		fb, err := providers.NewFallback(ow, om)
		if err != nil {
			log.Fatalf("Fallback fetcher: %v", err)
		}
		cfg.Fetcher = fb
		log.Println("Fetcher chain: openweather -> openmeteo")
	}

	// Optional lookup audit log, SQLite or Postgres.
	lookups := wireLookupLog()
	if _, ok := lookups.(*lookuplog.SQLWriter); ok {
		cfg.OnLookup = func(ctx context.Context, e weathergw.LookupEvent) {
			entry := lookuplog.Entry{
				RequestID: logging.RequestIDFromContext(ctx),
				Place:     e.Place,
				Fetcher:   e.Fetcher,
				Source:    e.Source,
				Units:     e.Units,
				Language:  e.Language,
			}
			if e.Err != nil {
				entry.ErrorMessage = e.Err.Error()
			}
			go func() {
				if err := lookups.Write(context.Background(), entry); err != nil {
					logging.Logger.Warn("lookup log write failed", "error", err.Error())
				}
			}()
		}
	}

	registry := weathergw.NewRegistry()
	svc, err := registry.Resolve(apiKey, cfg)
	if err != nil {
		log.Fatalf("Failed to create weather service: %v", err)
	}

	r := newRouter(svc, lookups)

	addr := ":8080"
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Println("Shutting down gracefully…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
		registry.Close()
		if closer, ok := lookups.(*lookuplog.SQLWriter); ok {
			_ = closer.Close()
		}
	}()

	log.Printf("weather-gateway %s listening on %s (mode=%s)", version.Short(), addr, svc.Mode())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		log.Fatalf("Server error: %v", err) //nolint:gocritic
	}
	log.Println("Server stopped.")
}

// wireLookupLog opens the audit log selected by environment, defaulting to a
// no-op writer. LOOKUPLOG_RETENTION (a Go duration) prunes old rows at boot.
func wireLookupLog() lookuplog.Writer {
	var (
		w   *lookuplog.SQLWriter
		err error
	)
	switch {
	case os.Getenv("LOOKUPLOG_POSTGRES_DSN") != "":
		w, err = lookuplog.NewPostgresWriter(os.Getenv("LOOKUPLOG_POSTGRES_DSN"))
	case os.Getenv("LOOKUPLOG_SQLITE_DSN") != "":
		w, err = lookuplog.NewSQLiteWriter(os.Getenv("LOOKUPLOG_SQLITE_DSN"))
	default:
		return lookuplog.NoopWriter{}
	}
	if err != nil {
		log.Fatalf("Failed to open lookup log: %v", err)
	}

	if retention := os.Getenv("LOOKUPLOG_RETENTION"); retention != "" {
		d, err := time.ParseDuration(retention)
		if err != nil {
			log.Fatalf("Invalid LOOKUPLOG_RETENTION: %v", err)
		}
		n, err := w.DeleteBefore(context.Background(), time.Now().Add(-d))
		if err != nil {
			log.Printf("Lookup log retention sweep failed: %v", err)
		} else if n > 0 {
			log.Printf("Lookup log retention: pruned %d row(s)", n)
		}
	}
	return w
}

// newRouter builds the HTTP router.
func newRouter(svc *weathergw.Service, lookups lookuplog.Writer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/v1/weather", func(w http.ResponseWriter, r *http.Request) {
		req, err := parseWeatherQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		obs, err := svc.CurrentWeather(r.Context(), req)
		if err != nil {
			switch {
			case errors.Is(err, providers.ErrConfiguration):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, weathergw.ErrServiceClosed):
				writeError(w, http.StatusServiceUnavailable, err.Error())
			default:
				writeError(w, http.StatusBadGateway, err.Error())
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(providers.ToDocument(*obs))
	})

	// Audit log pages, newest first. Only available with a SQL-backed log.
	r.Get("/v1/lookups", func(w http.ResponseWriter, r *http.Request) {
		sw, ok := lookups.(*lookuplog.SQLWriter)
		if !ok {
			writeError(w, http.StatusNotFound, "lookup log not configured")
			return
		}
		q := lookuplog.Query{
			Source:  r.URL.Query().Get("source"),
			Fetcher: r.URL.Query().Get("fetcher"),
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			q.Limit, _ = strconv.Atoi(v)
		}
		if v := r.URL.Query().Get("offset"); v != "" {
			q.Offset, _ = strconv.Atoi(v)
		}
		result, err := sw.List(r.Context(), q)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"total": result.Total,
			"data":  result.Data,
		})
	})

	return r
}

// parseWeatherQuery maps query parameters onto a providers.Request.
func parseWeatherQuery(r *http.Request) (providers.Request, error) {
	q := r.URL.Query()
	req := providers.Request{
		City:     q.Get("city"),
		Units:    providers.Units(q.Get("units")),
		Language: q.Get("lang"),
	}
	if latStr, lonStr := q.Get("lat"), q.Get("lon"); latStr != "" || lonStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return providers.Request{}, errors.New("lat must be a number")
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return providers.Request{}, errors.New("lon must be a number")
		}
		req.Latitude, req.Longitude = &lat, &lon
	}
	return req, req.Validate()
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{"message": message},
	})
}
