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

// OpenMeteo implements the Fetcher interface for the Open-Meteo forecast API.
// Open-Meteo needs no API key but only accepts coordinates, so it is mostly
// useful as a fallback behind a geocoding-capable fetcher.
type OpenMeteo struct {
	Base
	httpClient *http.Client
}

// NewOpenMeteo creates a new Open-Meteo fetcher. The optional baseURL
// parameter allows overriding the API endpoint (pass "" for the default).
func NewOpenMeteo(baseURL string) (*OpenMeteo, error) {
	if baseURL == "" {
		baseURL = "https://api.open-meteo.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return &OpenMeteo{
		Base:       Base{name: "open-meteo", baseURL: baseURL},
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}, nil
}

type omResponse struct {
	UTCOffsetSeconds int `json:"utc_offset_seconds"`
	Current          struct {
		Time                int64   `json:"time"`
		Temperature2m       float64 `json:"temperature_2m"`
		ApparentTemperature float64 `json:"apparent_temperature"`
		WeatherCode         int     `json:"weather_code"`
		WindSpeed10m        float64 `json:"wind_speed_10m"`
		Visibility          float64 `json:"visibility"`
	} `json:"current"`
	Daily struct {
		Sunrise []int64 `json:"sunrise"`
		Sunset  []int64 `json:"sunset"`
	} `json:"daily"`
}

type omErrorResponse struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Fetch requests the current weather for req. City-only requests fail with
// an upstream error so that a Fallback chain can move on to the next fetcher.
func (p *OpenMeteo) Fetch(ctx context.Context, req Request) (*Observation, error) {
	if req.Latitude == nil || req.Longitude == nil {
		return nil, fmt.Errorf("%w: open-meteo requires coordinates", ErrUpstream)
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(*req.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(*req.Longitude, 'f', -1, 64))
	q.Set("current", "temperature_2m,apparent_temperature,weather_code,wind_speed_10m,visibility")
	q.Set("daily", "sunrise,sunset")
	q.Set("timeformat", "unixtime")
	q.Set("forecast_days", "1")
	switch req.EffectiveUnits() {
	case UnitsImperial:
		q.Set("temperature_unit", "fahrenheit")
		q.Set("wind_speed_unit", "mph")
	default:
		// standard (Kelvin) is converted locally; the API only speaks C/F.
		q.Set("temperature_unit", "celsius")
		q.Set("wind_speed_unit", "ms")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/forecast?"+q.Encode(), nil)
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
		var errResp omErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Reason != "" {
			return nil, fmt.Errorf("%w: open-meteo (%d): %s", ErrUpstream, httpResp.StatusCode, errResp.Reason)
		}
		return nil, fmt.Errorf("%w: open-meteo: HTTP %d", ErrUpstream, httpResp.StatusCode)
	}

	var omResp omResponse
	if err := json.Unmarshal(respBody, &omResp); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrUpstream, err)
	}

	temp := omResp.Current.Temperature2m
	feels := omResp.Current.ApparentTemperature
	if req.EffectiveUnits() == UnitsStandard {
		temp += 273.15
		feels += 273.15
	}

	main, description := weatherCodeText(omResp.Current.WeatherCode)
	obs := &Observation{
		Main:           main,
		Description:    description,
		Temp:           temp,
		FeelsLike:      feels,
		Visibility:     int(omResp.Current.Visibility),
		WindSpeed:      omResp.Current.WindSpeed10m,
		ObservedAt:     omResp.Current.Time,
		TimezoneOffset: omResp.UTCOffsetSeconds,
	}
	if len(omResp.Daily.Sunrise) > 0 {
		obs.Sunrise = omResp.Daily.Sunrise[0]
	}
	if len(omResp.Daily.Sunset) > 0 {
		obs.Sunset = omResp.Daily.Sunset[0]
	}
	return obs, nil
}

// weatherCodeText maps a WMO 4677 weather code to the category/description
// vocabulary used by OpenWeatherMap so downstream consumers see one schema.
func weatherCodeText(code int) (main, description string) {
	switch {
	case code == 0:
		return "Clear", "clear sky"
	case code <= 2:
		return "Clouds", "partly cloudy"
	case code == 3:
		return "Clouds", "overcast"
	case code == 45 || code == 48:
		return "Fog", "fog"
	case code >= 51 && code <= 57:
		return "Drizzle", "drizzle"
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return "Rain", "rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "Snow", "snow"
	case code >= 95:
		return "Thunderstorm", "thunderstorm"
	default:
		return "Unknown", "unknown conditions"
	}
}
