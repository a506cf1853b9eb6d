package providers

// Document is the wire representation of an Observation. Its JSON shape is
// fixed: weather.main, weather.description, temperature.temp,
// temperature.feels_like, visibility, wind.speed, datetime, sys.sunrise,
// sys.sunset, timezone, name.
type Document struct {
	Weather     DocumentWeather     `json:"weather"`
	Temperature DocumentTemperature `json:"temperature"`
	Visibility  int                 `json:"visibility"`
	Wind        DocumentWind        `json:"wind"`
	Datetime    int64               `json:"datetime"`
	Sys         DocumentSys         `json:"sys"`
	Timezone    int                 `json:"timezone"`
	Name        string              `json:"name"`
}

// DocumentWeather carries the weather category and its description.
type DocumentWeather struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

// DocumentTemperature carries the measured and perceived temperatures.
type DocumentTemperature struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
}

// DocumentWind carries the wind speed.
type DocumentWind struct {
	Speed float64 `json:"speed"`
}

// DocumentSys carries sunrise and sunset as unix timestamps.
type DocumentSys struct {
	Sunrise int64 `json:"sunrise"`
	Sunset  int64 `json:"sunset"`
}

// ToDocument converts an Observation into its wire Document.
func ToDocument(o Observation) Document {
	return Document{
		Weather: DocumentWeather{
			Main:        o.Main,
			Description: o.Description,
		},
		Temperature: DocumentTemperature{
			Temp:      o.Temp,
			FeelsLike: o.FeelsLike,
		},
		Visibility: o.Visibility,
		Wind:       DocumentWind{Speed: o.WindSpeed},
		Datetime:   o.ObservedAt,
		Sys: DocumentSys{
			Sunrise: o.Sunrise,
			Sunset:  o.Sunset,
		},
		Timezone: o.TimezoneOffset,
		Name:     o.City,
	}
}
