package forecast

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelly-eugenia/weather-forecast/internal/common"
	"github.com/kelly-eugenia/weather-forecast/internal/history"
	"github.com/kelly-eugenia/weather-forecast/internal/learn"
	"github.com/kelly-eugenia/weather-forecast/internal/logger"
	"github.com/kelly-eugenia/weather-forecast/internal/registry"
	"github.com/kelly-eugenia/weather-forecast/internal/store"
)

var historyStart = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

// sinusoidRecords builds n days of smooth seasonal weather starting at
// historyStart.
func sinusoidRecords(n int) []history.Record {
	out := make([]history.Record, n)
	for i := range out {
		season := math.Sin(2 * math.Pi * float64(i) / 365)
		minT := 15 + 5*season
		maxT := 25 + 5*season
		rain := math.Max(0, 4*math.Sin(2*math.Pi*float64(i)/30))
		label := "Sunny"
		if rain > 0 {
			label = "Rainy"
		}
		out[i] = history.Record{
			Date:          historyStart.AddDate(0, 0, i),
			MinTemp:       minT,
			MaxTemp:       maxT,
			Temp9am:       minT + 3,
			Temp3pm:       maxT - 2,
			Precipitation: rain,
			MaxWindSpeed:  30 + 5*math.Cos(2*math.Pi*float64(i)/365),
			Cloud9am:      4 + rain/2,
			Cloud3pm:      5 + rain/2,
			Humidity9am:   70 + 2*rain,
			Humidity3pm:   55 + 2*rain,
			Sunshine:      8 - rain,
			WeatherType:   label,
		}
	}
	return out
}

type fixture struct {
	store    *store.MemoryStore
	registry *registry.Registry
	deps     Deps
}

func newFixture(t *testing.T, records []history.Record) fixture {
	t.Helper()
	st := store.NewMemoryStore(history.Derive(records))
	reg := registry.New(registry.NewFileBackend(t.TempDir()), logger.Discard())
	return fixture{
		store:    st,
		registry: reg,
		deps:     Deps{Store: st, Registry: reg, Log: logger.Discard(), Workers: 4},
	}
}

// savePrecipitationModel stores a hand-built precipitation model that
// predicts intercept + dayCoef*day.
func savePrecipitationModel(t *testing.T, reg *registry.Registry, intercept, dayCoef float64) {
	t.Helper()
	ctx := context.Background()
	exp := learn.NewPolynomialExpansion(2, len(precipitationModel.features))
	coef := make([]float64, exp.OutputSize())
	coef[1] = dayCoef // first input after the bias term is day
	model := learn.Ridge{Alpha: 1, Coef: [][]float64{coef}, Intercept: []float64{intercept}}

	meta := registry.Meta{Features: precipitationModel.features, Targets: precipitationModel.targets}
	_, err := reg.Save(ctx, KeyPrecipitationRegression, meta, model)
	require.NoError(t, err)
	_, err = reg.Save(ctx, KeyPrecipitationExpansion, meta, exp)
	require.NoError(t, err)
}

func TestTemperature_TrainedOnSinusoidTracksTruth(t *testing.T) {
	records := sinusoidRecords(725)
	fx := newFixture(t, records)
	f := NewTemperatureForecaster(fx.deps)
	ctx := context.Background()

	report, err := f.Train(ctx)
	require.NoError(t, err)
	assert.Greater(t, report.R2, 0.9)

	// Mid-month dates, the last being the first day past the end of history.
	for _, offset := range []int{195, 410, 560, 725} {
		date := historyStart.AddDate(0, 0, offset)
		season := math.Sin(2 * math.Pi * float64(offset) / 365)

		got, err := f.Predict(ctx, date)
		require.NoError(t, err)
		assert.InDelta(t, 15+5*season, got.Min, 1.0, "min on %s", date.Format(common.DateLayout))
		assert.InDelta(t, 25+5*season, got.Max, 1.0, "max on %s", date.Format(common.DateLayout))
	}
}

func TestTemperature_ArtifactsCarryRunID(t *testing.T) {
	fx := newFixture(t, sinusoidRecords(120))
	ctx := WithRunID(context.Background(), "run-abc")

	_, err := NewTemperatureForecaster(fx.deps).Train(ctx)
	require.NoError(t, err)

	for _, key := range []string{KeyTemperatureRegression, KeyTemperatureExpansion} {
		art, err := fx.registry.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "run-abc", art.RunID)
		assert.Equal(t, temperatureModel.features, art.Features)
	}
}

func TestTemperature_ModelNotFoundBeforeTraining(t *testing.T) {
	fx := newFixture(t, sinusoidRecords(60))

	_, err := NewTemperatureForecaster(fx.deps).Predict(context.Background(), historyStart.AddDate(0, 0, 30))
	assert.ErrorIs(t, err, registry.ErrModelNotFound)
}

func TestTemperature_HourlyForecastUsesNeighbourMinima(t *testing.T) {
	fx := newFixture(t, sinusoidRecords(200))
	f := NewTemperatureForecaster(fx.deps)
	ctx := context.Background()
	_, err := f.Train(ctx)
	require.NoError(t, err)

	date := historyStart.AddDate(0, 0, 150)
	today, points, err := f.HourlyForecast(ctx, date)
	require.NoError(t, err)
	require.Len(t, points, HoursPerProfile)

	prev, err := f.Predict(ctx, date.AddDate(0, 0, -1))
	require.NoError(t, err)
	expected, err := f.Predict(ctx, date)
	require.NoError(t, err)

	assert.Equal(t, expected, today)
	assert.InDelta(t, round1(prev.Min), points[0].Temperature, 1e-9)
	assert.InDelta(t, round1(today.Min), points[6].Temperature, 1e-9)
	assert.InDelta(t, round1(today.Max), points[18].Temperature, 1e-9)
}

func TestPredictHourly_ReproducesAnchors(t *testing.T) {
	points, err := PredictHourly(12.3, 15.8, 24.1, 26.4, 11.7, 13.2)
	require.NoError(t, err)
	require.Len(t, points, 25)

	for h, p := range points {
		assert.Equal(t, h, p.Hour)
		assert.Equal(t, round1(p.Temperature), p.Temperature)
	}
	assert.InDelta(t, 11.7, points[0].Temperature, 1e-9)
	assert.InDelta(t, 12.3, points[6].Temperature, 1e-9)
	assert.InDelta(t, 15.8, points[9].Temperature, 1e-9)
	assert.InDelta(t, 24.1, points[15].Temperature, 1e-9)
	assert.InDelta(t, 26.4, points[18].Temperature, 1e-9)
}

func TestPredictHourly_ConstantDayIsFlat(t *testing.T) {
	points, err := PredictHourly(20, 20, 20, 20, 20, 20)
	require.NoError(t, err)
	for _, p := range points {
		assert.InDelta(t, 20.0, p.Temperature, 1e-9)
	}
}

func TestPrecipitation_ClampsNegativeOutput(t *testing.T) {
	fx := newFixture(t, sinusoidRecords(60))
	savePrecipitationModel(t, fx.registry, -5, 0)
	f := NewPrecipitationForecaster(fx.deps)

	for _, offset := range []int{20, 40, 59, 60} {
		mm, err := f.Predict(context.Background(), historyStart.AddDate(0, 0, offset))
		require.NoError(t, err)
		assert.Equal(t, 0.0, mm)
	}
}

func TestPrecipitation_TotalForMonthIsSumOfDays(t *testing.T) {
	fx := newFixture(t, sinusoidRecords(120))
	savePrecipitationModel(t, fx.registry, -1, 0.25)
	f := NewPrecipitationForecaster(fx.deps)
	ctx := context.Background()

	date := time.Date(2022, 4, 17, 0, 0, 0, 0, time.UTC)
	total, err := f.TotalForMonth(ctx, date)
	require.NoError(t, err)

	var want float64
	first, last := common.MonthBounds(date)
	for _, d := range common.DaysBetween(first, last) {
		mm, err := f.Predict(ctx, d)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, mm, 0.0)
		want += mm
	}
	assert.Equal(t, want, total)
	// Days 1-4 clamp to zero, the rest contribute 0.25*day - 1.
	assert.InDelta(t, 0.25*(465-10)-26, total, 1e-9)
}

func TestPrecipitation_AllZeroHistoryTotalsZero(t *testing.T) {
	records := sinusoidRecords(200)
	for i := range records {
		records[i].Precipitation = 0
	}
	fx := newFixture(t, records)
	f := NewPrecipitationForecaster(fx.deps)
	ctx := context.Background()

	_, err := f.Train(ctx)
	require.NoError(t, err)

	total, err := f.TotalForMonth(ctx, time.Date(2022, 6, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.InDelta(t, 0, total, 1e-6)
}

func TestPrecipitation_TrainedPredictionsNeverNegative(t *testing.T) {
	fx := newFixture(t, sinusoidRecords(300))
	f := NewPrecipitationForecaster(fx.deps)
	ctx := context.Background()

	_, err := f.Train(ctx)
	require.NoError(t, err)

	for offset := 10; offset <= 300; offset += 7 {
		mm, err := f.Predict(ctx, historyStart.AddDate(0, 0, offset))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, mm, 0.0)
	}
}

func TestPrecipitation_EarliestDateHasNoHistory(t *testing.T) {
	fx := newFixture(t, sinusoidRecords(60))
	savePrecipitationModel(t, fx.registry, 1, 0)
	first, _, ok := fx.store.Span()
	require.True(t, ok)

	_, err := NewPrecipitationForecaster(fx.deps).Predict(context.Background(), first)
	assert.ErrorIs(t, err, store.ErrNoHistory)
}

func TestPrecipitation_MonthFailsWhenAnyDayFails(t *testing.T) {
	fx := newFixture(t, sinusoidRecords(60))
	savePrecipitationModel(t, fx.registry, 1, 0)
	first, _, ok := fx.store.Span()
	require.True(t, ok)

	_, err := NewPrecipitationForecaster(fx.deps).TotalForMonth(context.Background(), first)
	assert.ErrorIs(t, err, store.ErrNoHistory)
}

func TestForEachDay_PreservesOrderAndStopsOnError(t *testing.T) {
	days := common.DaysBetween(historyStart, historyStart.AddDate(0, 0, 19))

	got, err := ForEachDay(context.Background(), 3, days, func(_ context.Context, d time.Time) (int, error) {
		return d.Day(), nil
	})
	require.NoError(t, err)
	for i, v := range got {
		assert.Equal(t, i+1, v)
	}

	boom := errors.New("boom")
	var calls atomic.Int32
	_, err = ForEachDay(context.Background(), 1, days, func(ctx context.Context, d time.Time) (int, error) {
		calls.Add(1)
		if d.Day() == 2 {
			return 0, boom
		}
		return 0, nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Less(t, int(calls.Load()), len(days))
}
