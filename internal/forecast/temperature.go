package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/interp"

	"github.com/kelly-eugenia/weather-forecast/internal/history"
	"github.com/kelly-eugenia/weather-forecast/internal/learn"
	"github.com/kelly-eugenia/weather-forecast/internal/logger"
)

// HoursPerProfile is the number of hourly samples, midnight to midnight inclusive.
const HoursPerProfile = 25

var temperatureModel = regressionModel{
	regressionKey: KeyTemperatureRegression,
	expansionKey:  KeyTemperatureExpansion,
	degree:        2,
	features: []string{
		history.Day, history.Month,
		history.MaxTempAvg, history.MinTempAvg, history.WindAvg,
		history.WeekDayMax, history.WeekDayMin,
	},
	targets:      []string{history.MinTemp, history.Temp9am, history.Temp3pm, history.MaxTemp},
	testFraction: 0.2,
}

// DailyTemperature is the four-point temperature forecast for one day.
type DailyTemperature struct {
	Min     float64
	Temp9am float64
	Temp3pm float64
	Max     float64
}

// HourlyPoint is one sample of an hourly temperature profile.
type HourlyPoint struct {
	Hour        int     `json:"hour"`
	Temperature float64 `json:"temperature"`
}

// TemperatureForecaster predicts daily temperatures and interpolates hourly
// profiles from them.
type TemperatureForecaster struct {
	deps Deps
}

func NewTemperatureForecaster(deps Deps) *TemperatureForecaster {
	deps.Log = logger.WithComponent(deps.Log, "temperature")
	return &TemperatureForecaster{deps: deps}
}

// Train fits the temperature model on the current snapshot and saves it.
func (f *TemperatureForecaster) Train(ctx context.Context) (learn.RegressionReport, error) {
	return temperatureModel.train(ctx, f.deps)
}

// Predict forecasts the four daily temperatures for date.
func (f *TemperatureForecaster) Predict(ctx context.Context, date time.Time) (DailyTemperature, error) {
	y, err := temperatureModel.predict(ctx, f.deps, date)
	if err != nil {
		return DailyTemperature{}, err
	}
	if len(y) != len(temperatureModel.targets) {
		return DailyTemperature{}, fmt.Errorf("%s: %w: got %d outputs", KeyTemperatureRegression, learn.ErrDimension, len(y))
	}
	return DailyTemperature{Min: y[0], Temp9am: y[1], Temp3pm: y[2], Max: y[3]}, nil
}

// HourlyForecast predicts date and its neighbours and returns date's
// temperatures with its hourly profile. The neighbouring minima anchor the
// two midnights.
func (f *TemperatureForecaster) HourlyForecast(ctx context.Context, date time.Time) (DailyTemperature, []HourlyPoint, error) {
	days, err := ForEachDay(ctx, f.deps.Workers, []time.Time{date.AddDate(0, 0, -1), date, date.AddDate(0, 0, 1)}, f.Predict)
	if err != nil {
		return DailyTemperature{}, nil, err
	}
	prev, today, next := days[0], days[1], days[2]

	points, err := PredictHourly(today.Min, today.Temp9am, today.Temp3pm, today.Max, prev.Min, next.Min)
	if err != nil {
		return DailyTemperature{}, nil, err
	}
	return today, points, nil
}

// PredictHourly fits a natural cubic spline through the daily anchor points
// and samples it at every hour from 0 to 24. Midnight is anchored by the
// previous day's minimum and the following midnight (hour 25 on the anchor
// axis) by the next day's minimum. Values are rounded to one decimal.
func PredictHourly(minTemp, temp9am, temp3pm, maxTemp, minPrev, minNext float64) ([]HourlyPoint, error) {
	xs := []float64{0, 6, 9, 15, 18, 25}
	ys := []float64{minPrev, minTemp, temp9am, temp3pm, maxTemp, minNext}

	var spline interp.NaturalCubic
	if err := spline.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fit hourly spline: %w", err)
	}

	points := make([]HourlyPoint, HoursPerProfile)
	for h := range points {
		points[h] = HourlyPoint{Hour: h, Temperature: round1(spline.Predict(float64(h)))}
	}
	return points, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
