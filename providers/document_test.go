package providers

import (
	"encoding/json"
	"testing"
)

func TestToDocument_WireShape(t *testing.T) {
	obs := Observation{
		Main:           "Clouds",
		Description:    "scattered clouds",
		Temp:           12.3,
		FeelsLike:      11.1,
		Visibility:     10000,
		WindSpeed:      4.2,
		ObservedAt:     1756000000,
		Sunrise:        1755980000,
		Sunset:         1756030000,
		TimezoneOffset: 3600,
		City:           "London",
	}

	raw, err := json.Marshal(ToDocument(obs))
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	weather, ok := m["weather"].(map[string]interface{})
	if !ok {
		t.Fatal("weather must be a nested object")
	}
	if weather["main"] != "Clouds" || weather["description"] != "scattered clouds" {
		t.Errorf("weather = %v", weather)
	}

	temperature, ok := m["temperature"].(map[string]interface{})
	if !ok {
		t.Fatal("temperature must be a nested object")
	}
	if temperature["temp"] != 12.3 || temperature["feels_like"] != 11.1 {
		t.Errorf("temperature = %v", temperature)
	}

	if m["visibility"] != float64(10000) {
		t.Errorf("visibility = %v", m["visibility"])
	}
	if m["datetime"] != float64(1756000000) {
		t.Errorf("datetime = %v", m["datetime"])
	}
	sys, _ := m["sys"].(map[string]interface{})
	if sys["sunrise"] != float64(1755980000) || sys["sunset"] != float64(1756030000) {
		t.Errorf("sys = %v", sys)
	}
	if m["timezone"] != float64(3600) {
		t.Errorf("timezone = %v", m["timezone"])
	}
	if m["name"] != "London" {
		t.Errorf("name = %v", m["name"])
	}
}
