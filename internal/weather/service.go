package weather

import (
	"context"
	"time"

	"github.com/kelly-eugenia/weather-forecast/internal/common"
	"github.com/kelly-eugenia/weather-forecast/internal/forecast"
	"github.com/kelly-eugenia/weather-forecast/internal/logger"
)

// Service shapes forecaster output into the API's response documents.
type Service struct {
	temperature   TemperaturePredictor
	precipitation PrecipitationPredictor
	weatherTypes  WeatherTypePredictor
	log           logger.Logger
	workers       int
}

// NewService creates a new Service. workers bounds the per-date fan-out of
// batch requests; zero means unbounded.
func NewService(temperature TemperaturePredictor, precipitation PrecipitationPredictor, weatherTypes WeatherTypePredictor, log logger.Logger, workers int) *Service {
	return &Service{
		temperature:   temperature,
		precipitation: precipitation,
		weatherTypes:  weatherTypes,
		log:           logger.WithComponent(log, "weather"),
		workers:       workers,
	}
}

// Hourly forecasts date's extremes and hourly profile.
func (s *Service) Hourly(ctx context.Context, date time.Time) (HourlyTemperature, error) {
	date = common.Day(date)
	today, points, err := s.temperature.HourlyForecast(ctx, date)
	if err != nil {
		return HourlyTemperature{}, err
	}

	s.log.WithFields(map[string]interface{}{
		"date": date.Format(common.DateLayout),
		"min":  today.Min,
		"max":  today.Max,
	}).Info("hourly temperature forecast")

	return HourlyTemperature{
		Date:               common.Date{Time: date},
		PredictedMinTemp:   round1(today.Min),
		PredictedMaxTemp:   round1(today.Max),
		HourlyTemperatures: points,
	}, nil
}

// Temperatures forecasts the minimum and maximum for each date.
func (s *Service) Temperatures(ctx context.Context, dates []time.Time) (TemperatureSummary, error) {
	days, err := forecast.ForEachDay(ctx, s.workers, normalise(dates), func(ctx context.Context, d time.Time) (TemperatureDay, error) {
		t, err := s.temperature.Predict(ctx, d)
		if err != nil {
			return TemperatureDay{}, err
		}
		return TemperatureDay{Date: common.Date{Time: d}, PredictedMinTemp: round1(t.Min), PredictedMaxTemp: round1(t.Max)}, nil
	})
	if err != nil {
		return TemperatureSummary{}, err
	}
	return TemperatureSummary{TempData: days}, nil
}

// Rainfall forecasts each date's rainfall and the total for its month.
func (s *Service) Rainfall(ctx context.Context, dates []time.Time) (RainSummary, error) {
	days, err := forecast.ForEachDay(ctx, s.workers, normalise(dates), func(ctx context.Context, d time.Time) (RainDay, error) {
		daily, err := s.precipitation.Predict(ctx, d)
		if err != nil {
			return RainDay{}, err
		}
		total, err := s.precipitation.TotalForMonth(ctx, d)
		if err != nil {
			return RainDay{}, err
		}
		return RainDay{Date: common.Date{Time: d}, PredictedRain: round1(daily), PredictedTotalRain: round1(total)}, nil
	})
	if err != nil {
		return RainSummary{}, err
	}
	return RainSummary{RainData: days}, nil
}

// WeatherTypes counts the forecast weather-type labels from start to end
// inclusive.
func (s *Service) WeatherTypes(ctx context.Context, start, end time.Time) (WeatherCounts, error) {
	labels, err := s.weatherTypes.Predict(ctx, common.Day(start), common.Day(end))
	if err != nil {
		return WeatherCounts{}, err
	}
	counts := CountWeatherTypes(labels)

	s.log.WithFields(map[string]interface{}{
		"start":    start.Format(common.DateLayout),
		"end":      end.Format(common.DateLayout),
		"days":     len(labels),
		"dominant": Dominant(counts),
	}).Info("weather type forecast")

	return WeatherCounts{Counts: counts}, nil
}

func normalise(dates []time.Time) []time.Time {
	out := make([]time.Time, len(dates))
	for i, d := range dates {
		out[i] = common.Day(d)
	}
	return out
}
