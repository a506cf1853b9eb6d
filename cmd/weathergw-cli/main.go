// Package main provides the weathergw-cli command-line tool for the weather gateway.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	weathergw "github.com/meteo-labs/weather-gateway"
	"github.com/meteo-labs/weather-gateway/internal/version"
	"github.com/meteo-labs/weather-gateway/providers"
)

const usage = `weathergw-cli — weather gateway command line tool

Usage:
  weathergw-cli <command> [arguments]

Commands:
  validate <config-file>    Validate a gateway configuration file (JSON/YAML)
  lookup <city> [units]     Fetch current weather for a city (needs OPENWEATHER_API_KEY)
  version                   Print version info
  help                      Show this help
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "validate":
		cmdValidate()
	case "lookup":
		cmdLookup()
	case "version":
		cmdVersion()
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		fmt.Print(usage)
		os.Exit(1)
	}
}

func cmdValidate() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: weathergw-cli validate <config-file>")
		os.Exit(1)
	}
	path := os.Args[2]

	cfg, err := weathergw.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := weathergw.ValidateConfig(*cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(1)
	}

	mode := cfg.Mode
	if mode == "" {
		mode = weathergw.ModeOnDemand
	}
	fmt.Printf("✓ Config is valid\n")
	fmt.Printf("  Mode:           %s\n", mode)
	fmt.Printf("  Cache capacity: %d\n", cfg.CacheCapacity)
	if cfg.TTL != 0 {
		fmt.Printf("  TTL:            %s\n", time.Duration(cfg.TTL))
	}
	if mode == weathergw.ModePolling && cfg.PollInterval != 0 {
		fmt.Printf("  Poll interval:  %s\n", time.Duration(cfg.PollInterval))
	}
	if cfg.CircuitBreaker != nil {
		fmt.Printf("  Circuit breaker: failures=%d successes=%d timeout=%s\n",
			cfg.CircuitBreaker.FailureThreshold,
			cfg.CircuitBreaker.SuccessThreshold,
			time.Duration(cfg.CircuitBreaker.Timeout))
	}
}

func cmdLookup() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: weathergw-cli lookup <city> [units]")
		os.Exit(1)
	}
	apiKey := os.Getenv("OPENWEATHER_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "OPENWEATHER_API_KEY is required")
		os.Exit(1)
	}

	req := providers.Request{City: os.Args[2]}
	if len(os.Args) > 3 {
		req.Units = providers.Units(strings.ToLower(os.Args[3]))
	}

	registry := weathergw.NewRegistry()
	defer registry.Close()
	svc, err := registry.Resolve(apiKey, weathergw.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	obs, err := svc.CurrentWeather(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(providers.ToDocument(*obs), "", "  ")
	fmt.Println(string(out))
}

func cmdVersion() {
	fmt.Printf("weathergw-cli %s\n", version.String())
}
