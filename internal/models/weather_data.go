package models

// WeatherSnapshot is the current conditions for one city, fetched fresh per dispatch cycle.
type WeatherSnapshot struct {
	MaxTemperature float64 `json:"maxTemperature"`
	MinTemperature float64 `json:"minTemperature"`
	Temperature    float64 `json:"temperature"`
	WeatherIcon    string  `json:"weatherIcon"`
	WeatherName    string  `json:"weatherName"`
	WindSpeed      float64 `json:"windSpeed"`
}
