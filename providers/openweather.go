package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// OpenWeather implements the Fetcher interface for the OpenWeatherMap
// current weather API.
type OpenWeather struct {
	Base
	httpClient *http.Client
}

// NewOpenWeather creates a new OpenWeatherMap fetcher. The optional baseURL
// parameter allows overriding the API endpoint (pass "" for the default).
func NewOpenWeather(apiKey string, baseURL string) (*OpenWeather, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenWeather API key is required", ErrConfiguration)
	}
	if baseURL == "" {
		baseURL = "https://api.openweathermap.org"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return &OpenWeather{
		Base:       Base{name: "openweather", apiKey: apiKey, baseURL: baseURL},
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}, nil
}

// owResponse mirrors the subset of the OpenWeatherMap payload the gateway uses.
type owResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
	} `json:"main"`
	Visibility int `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Dt  int64 `json:"dt"`
	Sys struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
	Timezone int    `json:"timezone"`
	Name     string `json:"name"`
}

type owErrorResponse struct {
	Cod     json.RawMessage `json:"cod"` // number or string depending on endpoint
	Message string          `json:"message"`
}

// Fetch requests the current weather for req and parses it into an Observation.
func (p *OpenWeather) Fetch(ctx context.Context, req Request) (*Observation, error) {
	q := url.Values{}
	if city := strings.TrimSpace(req.City); city != "" {
		q.Set("q", city)
	} else if req.Latitude != nil && req.Longitude != nil {
		q.Set("lat", strconv.FormatFloat(*req.Latitude, 'f', -1, 64))
		q.Set("lon", strconv.FormatFloat(*req.Longitude, 'f', -1, 64))
	} else {
		return nil, fmt.Errorf("%w: either city or coordinates must be provided", ErrConfiguration)
	}
	q.Set("appid", p.apiKey)
	q.Set("units", string(req.EffectiveUnits()))
	q.Set("lang", req.EffectiveLanguage())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		var errResp owErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Message != "" {
			return nil, fmt.Errorf("%w: openweathermap (%d): %s", ErrUpstream, httpResp.StatusCode, errResp.Message)
		}
		return nil, fmt.Errorf("%w: openweathermap: HTTP %d", ErrUpstream, httpResp.StatusCode)
	}

	var owResp owResponse
	if err := json.Unmarshal(respBody, &owResp); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrUpstream, err)
	}

	obs := &Observation{
		Temp:           owResp.Main.Temp,
		FeelsLike:      owResp.Main.FeelsLike,
		Visibility:     owResp.Visibility,
		WindSpeed:      owResp.Wind.Speed,
		ObservedAt:     owResp.Dt,
		Sunrise:        owResp.Sys.Sunrise,
		Sunset:         owResp.Sys.Sunset,
		TimezoneOffset: owResp.Timezone,
		City:           owResp.Name,
	}
	if len(owResp.Weather) > 0 {
		obs.Main = owResp.Weather[0].Main
		obs.Description = owResp.Weather[0].Description
	}
	return obs, nil
}
