// Package training runs the offline batch that fits and publishes every
// forecasting model from one history snapshot.
package training

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kelly-eugenia/weather-forecast/internal/forecast"
	"github.com/kelly-eugenia/weather-forecast/internal/learn"
	"github.com/kelly-eugenia/weather-forecast/internal/logger"
	"github.com/kelly-eugenia/weather-forecast/internal/report"
)

// Runner trains all models against shared dependencies.
type Runner struct {
	deps   forecast.Deps
	source string
	now    func() time.Time
	log    logger.Logger
}

// NewRunner creates a Runner. source names where the snapshot in deps was
// loaded from and is recorded in the summary.
func NewRunner(deps forecast.Deps, source string) *Runner {
	return &Runner{
		deps:   deps,
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
		log:    logger.WithComponent(deps.Log, "training"),
	}
}

// Run fits the temperature, precipitation, weather-feature and weather-type
// models in turn. Every artifact saved by one Run carries the same run ID.
// The first failure stops the run; artifacts saved before it remain.
func (r *Runner) Run(ctx context.Context) (report.TrainingSummary, error) {
	runID := uuid.NewString()
	ctx = forecast.WithRunID(ctx, runID)

	summary := report.TrainingSummary{
		RunID:     runID,
		TrainedAt: r.now(),
		Source:    r.source,
		Rows:      len(r.deps.Store.Rows()),
	}
	r.log.WithFields(map[string]interface{}{
		"run_id": runID,
		"rows":   summary.Rows,
	}).Info("training started")

	classifier := forecast.NewWeatherTypeClassifier(r.deps)
	regressions := []struct {
		model string
		train func(context.Context) (learn.RegressionReport, error)
	}{
		{forecast.KeyTemperatureRegression, forecast.NewTemperatureForecaster(r.deps).Train},
		{forecast.KeyPrecipitationRegression, forecast.NewPrecipitationForecaster(r.deps).Train},
		{forecast.KeyWeatherTypeFeatures, classifier.TrainFeatures},
	}
	for _, m := range regressions {
		rep, err := m.train(ctx)
		if err != nil {
			return summary, fmt.Errorf("train %s: %w", m.model, err)
		}
		summary.Regressions = append(summary.Regressions, report.RegressionResult{Model: m.model, Report: rep})
	}

	cls, err := classifier.TrainClassifier(ctx)
	if err != nil {
		return summary, fmt.Errorf("train %s: %w", forecast.KeyWeatherTypeClassifier, err)
	}
	summary.Classifier = &cls

	r.log.WithFields(map[string]interface{}{
		"run_id":   runID,
		"accuracy": cls.Accuracy,
	}).Info("training finished")
	return summary, nil
}
