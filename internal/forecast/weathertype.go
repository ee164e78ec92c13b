package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/kelly-eugenia/weather-forecast/internal/common"
	"github.com/kelly-eugenia/weather-forecast/internal/history"
	"github.com/kelly-eugenia/weather-forecast/internal/learn"
	"github.com/kelly-eugenia/weather-forecast/internal/logger"
	"github.com/kelly-eugenia/weather-forecast/internal/registry"
)

// Pipeline stage names.
const (
	StageForecastFeatures = "forecast_features"
	StageClassify         = "classify"
)

// ClassifierInputs are the same-day observations the weather-type label is
// predicted from. The feature stage forecasts them in this order.
var ClassifierInputs = []string{
	history.MaxTemp, history.MinTemp, history.Precipitation,
	history.MaxWindSpeed, history.Cloud9am, history.Humidity3pm, history.Sunshine,
}

var weatherFeatureModel = regressionModel{
	regressionKey: KeyWeatherTypeFeatures,
	features: []string{
		history.Day, history.Month,
		history.MaxTempAvg, history.MinTempAvg, history.WindAvg,
		history.CloudAvg, history.HumidityAvg,
		history.PrevDayWind, history.PrevDayPrecip, history.PrevDayHumidity,
		history.PrevDayCloud, history.PrevDaySunshine,
	},
	targets:      ClassifierInputs,
	testFraction: 0.2,
	// The latest row is the day before the target, so its same-day values
	// are the target's previous-day values.
	latestAs: map[string]string{
		history.PrevDayWind:     history.MaxWindSpeed,
		history.PrevDayPrecip:   history.Precipitation,
		history.PrevDayCloud:    history.CloudAvg,
		history.PrevDaySunshine: history.Sunshine,
		history.PrevDayHumidity: history.HumidityAvg,
	},
}

const classifierTestFraction = 0.2

// FeatureStage forecasts the classifier inputs for a date.
type FeatureStage interface {
	ForecastFeatures(ctx context.Context, date time.Time) ([]float64, error)
}

// ClassifyStage maps forecast features to a weather-type label.
type ClassifyStage interface {
	Classify(ctx context.Context, features []float64) (string, error)
}

// Pipeline chains the two stages. Either may be swapped independently.
type Pipeline struct {
	Features   FeatureStage
	Classifier ClassifyStage
}

// Run forecasts features for date and classifies them.
func (p Pipeline) Run(ctx context.Context, date time.Time) (string, error) {
	x, err := p.Features.ForecastFeatures(ctx, date)
	if err != nil {
		return "", fmt.Errorf("%s: %w", StageForecastFeatures, err)
	}
	label, err := p.Classifier.Classify(ctx, x)
	if err != nil {
		return "", fmt.Errorf("%s: %w", StageClassify, err)
	}
	return label, nil
}

// RegressionFeatureStage forecasts features with the stored ridge model.
type RegressionFeatureStage struct {
	deps Deps
}

func (s RegressionFeatureStage) ForecastFeatures(ctx context.Context, date time.Time) ([]float64, error) {
	y, err := weatherFeatureModel.predict(ctx, s.deps, date)
	if err != nil {
		return nil, err
	}
	if len(y) != len(ClassifierInputs) {
		return nil, fmt.Errorf("%s: %w: got %d outputs", KeyWeatherTypeFeatures, learn.ErrDimension, len(y))
	}
	return y, nil
}

// ForestClassifyStage labels features with the stored random forest.
type ForestClassifyStage struct {
	deps Deps
}

func (s ForestClassifyStage) Classify(ctx context.Context, features []float64) (string, error) {
	forest, _, err := registry.LoadAs[learn.Forest](ctx, s.deps.Registry, KeyWeatherTypeClassifier)
	if err != nil {
		return "", err
	}
	return forest.Predict(features)
}

// WeatherTypeClassifier predicts a weather-type label per day.
type WeatherTypeClassifier struct {
	deps     Deps
	pipeline Pipeline
}

// NewWeatherTypeClassifier wires the registry-backed stages.
func NewWeatherTypeClassifier(deps Deps) *WeatherTypeClassifier {
	deps.Log = logger.WithComponent(deps.Log, "weather_type")
	return &WeatherTypeClassifier{
		deps: deps,
		pipeline: Pipeline{
			Features:   RegressionFeatureStage{deps: deps},
			Classifier: ForestClassifyStage{deps: deps},
		},
	}
}

// WithPipeline returns a copy of c that runs p instead.
func (c *WeatherTypeClassifier) WithPipeline(p Pipeline) *WeatherTypeClassifier {
	return &WeatherTypeClassifier{deps: c.deps, pipeline: p}
}

// TrainFeatures fits the feature stage on the current snapshot and saves it.
func (c *WeatherTypeClassifier) TrainFeatures(ctx context.Context) (learn.RegressionReport, error) {
	return weatherFeatureModel.train(ctx, c.deps)
}

// TrainClassifier fits the random forest on observed features and labels,
// evaluates it on a seeded holdout and saves it.
func (c *WeatherTypeClassifier) TrainClassifier(ctx context.Context) (learn.ClassificationReport, error) {
	rows := c.deps.Store.Rows()
	if len(rows) < 2 {
		return learn.ClassificationReport{}, fmt.Errorf("%s: %w", KeyWeatherTypeClassifier, learn.ErrEmptyTrainingSet)
	}

	X, err := matrix(rows, ClassifierInputs)
	if err != nil {
		return learn.ClassificationReport{}, err
	}
	y := make([]string, len(rows))
	for i := range rows {
		y[i] = rows[i].WeatherType
	}

	trainIdx, testIdx := learn.TrainTestSplit(len(rows), classifierTestFraction, learn.DefaultSeed)
	forest, err := learn.FitForest(learn.Take(X, trainIdx), learn.Take(y, trainIdx), learn.DefaultForestConfig())
	if err != nil {
		return learn.ClassificationReport{}, fmt.Errorf("fit %s: %w", KeyWeatherTypeClassifier, err)
	}

	testX, testY := learn.Take(X, testIdx), learn.Take(y, testIdx)
	pred := make([]string, len(testX))
	for i, x := range testX {
		if pred[i], err = forest.Predict(x); err != nil {
			return learn.ClassificationReport{}, err
		}
	}
	report := learn.EvaluateClassifier(testY, pred)

	meta := registry.Meta{RunID: RunID(ctx), Features: ClassifierInputs, Targets: []string{"weather_type"}}
	if _, err := c.deps.Registry.Save(ctx, KeyWeatherTypeClassifier, meta, forest); err != nil {
		return report, err
	}

	c.deps.Log.WithFields(map[string]interface{}{
		"model":    KeyWeatherTypeClassifier,
		"samples":  len(trainIdx),
		"classes":  len(forest.Classes),
		"accuracy": report.Accuracy,
	}).Info("trained classifier")
	return report, nil
}

// PredictFeatures forecasts the classifier inputs for date.
func (c *WeatherTypeClassifier) PredictFeatures(ctx context.Context, date time.Time) ([]float64, error) {
	return c.pipeline.Features.ForecastFeatures(ctx, date)
}

// Predict returns one label per day from start to end inclusive, in calendar
// order. Each day is classified on its own.
func (c *WeatherTypeClassifier) Predict(ctx context.Context, start, end time.Time) ([]string, error) {
	days := common.DaysBetween(start, end)
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: %s is before %s", ErrInvalidDateRange,
			end.Format(common.DateLayout), start.Format(common.DateLayout))
	}
	return ForEachDay(ctx, c.deps.Workers, days, c.pipeline.Run)
}
