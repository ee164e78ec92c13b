package weather

import (
	"github.com/kelly-eugenia/weather-forecast/internal/common"
	"github.com/kelly-eugenia/weather-forecast/internal/forecast"
)

// HourlyTemperature is a day's forecast extremes with its hourly profile.
type HourlyTemperature struct {
	Date               common.Date            `json:"date"`
	PredictedMinTemp   float64                `json:"predicted_mintemp"`
	PredictedMaxTemp   float64                `json:"predicted_maxtemp"`
	HourlyTemperatures []forecast.HourlyPoint `json:"hourly_temperatures"`
}

// TemperatureDay is the forecast minimum and maximum for one requested date.
type TemperatureDay struct {
	Date             common.Date `json:"date"`
	PredictedMinTemp float64     `json:"predicted_mintemp"`
	PredictedMaxTemp float64     `json:"predicted_maxtemp"`
}

// TemperatureSummary holds one entry per requested date, in request order.
type TemperatureSummary struct {
	TempData []TemperatureDay `json:"temp_data"`
}

// RainDay is the daily rainfall forecast for a date together with the total
// for its calendar month, both in millimetres.
type RainDay struct {
	Date               common.Date `json:"date"`
	PredictedRain      float64     `json:"predicted_rain"`
	PredictedTotalRain float64     `json:"predicted_totalrain"`
}

// RainSummary holds one entry per requested date, in request order.
type RainSummary struct {
	RainData []RainDay `json:"rain_data"`
}

// WeatherCounts is the number of forecast days per weather-type label.
type WeatherCounts struct {
	Counts map[string]int `json:"weather_counts"`
}
