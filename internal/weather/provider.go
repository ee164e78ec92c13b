package weather

import (
	"context"
	"time"

	"github.com/kelly-eugenia/weather-forecast/internal/forecast"
)

// TemperaturePredictor forecasts daily and hourly temperatures.
type TemperaturePredictor interface {
	Predict(ctx context.Context, date time.Time) (forecast.DailyTemperature, error)
	HourlyForecast(ctx context.Context, date time.Time) (forecast.DailyTemperature, []forecast.HourlyPoint, error)
}

// PrecipitationPredictor forecasts daily and monthly rainfall.
type PrecipitationPredictor interface {
	Predict(ctx context.Context, date time.Time) (float64, error)
	TotalForMonth(ctx context.Context, date time.Time) (float64, error)
}

// WeatherTypePredictor labels each day of an inclusive date range.
type WeatherTypePredictor interface {
	Predict(ctx context.Context, start, end time.Time) ([]string, error)
}
