// Package forecast turns the historical feature store and trained artifacts
// into point forecasts: daily and hourly temperature, daily and monthly
// precipitation, and per-day weather-type labels.
//
// Every prediction follows the same shape: take the latest feature row
// strictly before the target date, assemble the input vector in the order the
// artifact was trained on, and evaluate the model. Training reads the full
// snapshot, fits on a seeded holdout split and saves a new artifact version.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kelly-eugenia/weather-forecast/internal/common"
	"github.com/kelly-eugenia/weather-forecast/internal/history"
	"github.com/kelly-eugenia/weather-forecast/internal/learn"
	"github.com/kelly-eugenia/weather-forecast/internal/logger"
	"github.com/kelly-eugenia/weather-forecast/internal/registry"
)

// ErrInvalidDateRange is returned for a range whose end precedes its start,
// or one outside the allowed forecast window.
var ErrInvalidDateRange = errors.New("invalid date range")

// Artifact keys.
const (
	KeyTemperatureRegression   = "temperature_regression"
	KeyTemperatureExpansion    = "temperature_expansion"
	KeyPrecipitationRegression = "precipitation_regression"
	KeyPrecipitationExpansion  = "precipitation_expansion"
	KeyWeatherTypeFeatures     = "weather_type_features"
	KeyWeatherTypeClassifier   = "weather_type_classifier"
)

// AllKeys lists every artifact a fully trained deployment serves.
var AllKeys = []string{
	KeyTemperatureRegression,
	KeyTemperatureExpansion,
	KeyPrecipitationRegression,
	KeyPrecipitationExpansion,
	KeyWeatherTypeFeatures,
	KeyWeatherTypeClassifier,
}

// FeatureStore is the read side of the historical feature snapshot.
type FeatureStore interface {
	LatestBefore(date time.Time) (history.FeatureRow, error)
	Rows() []history.FeatureRow
}

// Deps are the collaborators shared by every forecaster.
type Deps struct {
	Store    FeatureStore
	Registry *registry.Registry
	Log      logger.Logger
	// Workers bounds the per-day fan-out. Zero means unbounded.
	Workers int
}

type runIDKey struct{}

// WithRunID tags every artifact trained under ctx with id, so models fitted
// in one batch share a run.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the training run ID carried by ctx, minting a new one when
// none is set.
func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// regressionModel describes one polynomial ridge model.
type regressionModel struct {
	regressionKey string
	expansionKey  string // empty when the model uses raw features
	degree        int
	features      []string
	targets       []string
	testFraction  float64
	// latestAs maps a lag feature to the column of the latest row that holds
	// its value for the day after that row.
	latestAs map[string]string
}

// train fits the model on the stored rows and saves its artifacts.
func (s regressionModel) train(ctx context.Context, deps Deps) (learn.RegressionReport, error) {
	rows := deps.Store.Rows()
	if len(rows) < 2 {
		return learn.RegressionReport{}, fmt.Errorf("%s: %w", s.regressionKey, learn.ErrEmptyTrainingSet)
	}

	X, err := matrix(rows, s.features)
	if err != nil {
		return learn.RegressionReport{}, err
	}
	Y, err := matrix(rows, s.targets)
	if err != nil {
		return learn.RegressionReport{}, err
	}

	var expansion *learn.PolynomialExpansion
	if s.expansionKey != "" {
		exp := learn.NewPolynomialExpansion(s.degree, len(s.features))
		expansion = &exp
		if X, err = exp.TransformAll(X); err != nil {
			return learn.RegressionReport{}, err
		}
	}

	trainIdx, testIdx := learn.TrainTestSplit(len(rows), s.testFraction, learn.DefaultSeed)
	model, err := learn.FitRidge(learn.Take(X, trainIdx), learn.Take(Y, trainIdx), learn.DefaultRidgeAlpha)
	if err != nil {
		return learn.RegressionReport{}, fmt.Errorf("fit %s: %w", s.regressionKey, err)
	}

	pred, err := model.PredictAll(learn.Take(X, testIdx))
	if err != nil {
		return learn.RegressionReport{}, err
	}
	report := learn.EvaluateRegression(learn.Take(Y, testIdx), pred)

	meta := registry.Meta{RunID: RunID(ctx), Features: s.features, Targets: s.targets}
	if _, err := deps.Registry.Save(ctx, s.regressionKey, meta, model); err != nil {
		return report, err
	}
	if expansion != nil {
		if _, err := deps.Registry.Save(ctx, s.expansionKey, meta, expansion); err != nil {
			return report, err
		}
	}

	deps.Log.WithFields(map[string]interface{}{
		"model":   s.regressionKey,
		"samples": len(trainIdx),
		"mse":     report.MSE,
		"r2":      report.R2,
	}).Info("trained regression")
	return report, nil
}

// predict evaluates the model for date from the latest row before it.
func (s regressionModel) predict(ctx context.Context, deps Deps, date time.Time) ([]float64, error) {
	model, art, err := registry.LoadAs[learn.Ridge](ctx, deps.Registry, s.regressionKey)
	if err != nil {
		return nil, err
	}

	var expansion *learn.PolynomialExpansion
	if s.expansionKey != "" {
		if expansion, _, err = registry.LoadAs[learn.PolynomialExpansion](ctx, deps.Registry, s.expansionKey); err != nil {
			return nil, err
		}
	}

	row, err := deps.Store.LatestBefore(date)
	if err != nil {
		return nil, err
	}

	x, err := row.VectorFor(common.Day(date), s.inputNames(art.Features))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.regressionKey, err)
	}
	if expansion != nil {
		if x, err = expansion.Transform(x); err != nil {
			return nil, fmt.Errorf("%s: %w", s.expansionKey, err)
		}
	}
	return model.Predict(x)
}

// inputNames resolves the artifact's feature names to the columns read from
// the latest row at prediction time.
func (s regressionModel) inputNames(features []string) []string {
	if len(s.latestAs) == 0 {
		return features
	}
	out := make([]string, len(features))
	for i, name := range features {
		if src, ok := s.latestAs[name]; ok {
			name = src
		}
		out[i] = name
	}
	return out
}

func matrix(rows []history.FeatureRow, names []string) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i := range rows {
		v, err := rows[i].Vector(names)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ForEachDay runs fn for every day concurrently, at most workers at a time,
// and returns the results in day order. The first failure cancels the
// remaining days.
func ForEachDay[T any](ctx context.Context, workers int, days []time.Time, fn func(context.Context, time.Time) (T, error)) ([]T, error) {
	out := make([]T, len(days))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, d := range days {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := fn(ctx, d)
			if err != nil {
				return fmt.Errorf("%s: %w", d.Format(common.DateLayout), err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
