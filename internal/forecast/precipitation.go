package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kelly-eugenia/weather-forecast/internal/common"
	"github.com/kelly-eugenia/weather-forecast/internal/history"
	"github.com/kelly-eugenia/weather-forecast/internal/learn"
	"github.com/kelly-eugenia/weather-forecast/internal/logger"
)

var precipitationModel = regressionModel{
	regressionKey: KeyPrecipitationRegression,
	expansionKey:  KeyPrecipitationExpansion,
	degree:        2,
	features: []string{
		history.Day, history.Month,
		history.MinTemp, history.MaxTemp,
		history.HumidityAvg, history.CloudAvg,
		history.PrevDayPrecip, history.PrevDayHumidity,
	},
	targets:      []string{history.Precipitation},
	testFraction: 0.3,
}

// PrecipitationForecaster predicts daily rainfall in millimetres.
type PrecipitationForecaster struct {
	deps Deps
}

func NewPrecipitationForecaster(deps Deps) *PrecipitationForecaster {
	deps.Log = logger.WithComponent(deps.Log, "precipitation")
	return &PrecipitationForecaster{deps: deps}
}

// Train fits the precipitation model on the current snapshot and saves it.
func (f *PrecipitationForecaster) Train(ctx context.Context) (learn.RegressionReport, error) {
	return precipitationModel.train(ctx, f.deps)
}

// Predict forecasts rainfall for date. Negative model output is reported as
// zero.
func (f *PrecipitationForecaster) Predict(ctx context.Context, date time.Time) (float64, error) {
	y, err := precipitationModel.predict(ctx, f.deps, date)
	if err != nil {
		return 0, err
	}
	if len(y) != 1 {
		return 0, fmt.Errorf("%s: %w: got %d outputs", KeyPrecipitationRegression, learn.ErrDimension, len(y))
	}
	return math.Max(0, y[0]), nil
}

// TotalForMonth sums the daily forecasts over the calendar month containing
// date.
func (f *PrecipitationForecaster) TotalForMonth(ctx context.Context, date time.Time) (float64, error) {
	first, last := common.MonthBounds(date)
	daily, err := ForEachDay(ctx, f.deps.Workers, common.DaysBetween(first, last), f.Predict)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, mm := range daily {
		total += mm
	}
	return total, nil
}
