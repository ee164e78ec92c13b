package training

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelly-eugenia/weather-forecast/internal/forecast"
	"github.com/kelly-eugenia/weather-forecast/internal/history"
	"github.com/kelly-eugenia/weather-forecast/internal/logger"
	"github.com/kelly-eugenia/weather-forecast/internal/registry"
	"github.com/kelly-eugenia/weather-forecast/internal/store"
)

func seasonalRecords(n int) []history.Record {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]history.Record, n)
	for i := range out {
		s := math.Sin(2 * math.Pi * float64(i) / 365)
		rain := math.Max(0, 3*math.Cos(2*math.Pi*float64(i)/11))
		label := "Sunny"
		if rain > 1 {
			label = "Rainy"
		}
		out[i] = history.Record{
			Date:          start.AddDate(0, 0, i),
			MinTemp:       12 + 4*s,
			MaxTemp:       22 + 4*s,
			Temp9am:       15 + 4*s,
			Temp3pm:       20 + 4*s,
			Precipitation: rain,
			MaxWindSpeed:  25 + float64(i%6),
			Cloud9am:      3 + rain,
			Cloud3pm:      4 + rain,
			Humidity9am:   65 + 3*rain,
			Humidity3pm:   50 + 3*rain,
			Sunshine:      9 - rain,
			WeatherType:   label,
		}
	}
	return out
}

func TestRunner_PublishesEveryArtifactUnderOneRun(t *testing.T) {
	st := store.NewMemoryStore(history.Derive(seasonalRecords(200)))
	reg := registry.New(registry.NewFileBackend(t.TempDir()), logger.Discard())
	deps := forecast.Deps{Store: st, Registry: reg, Log: logger.Discard(), Workers: 4}
	ctx := context.Background()

	summary, err := NewRunner(deps, "seasonal.csv").Run(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "seasonal.csv", summary.Source)
	assert.Equal(t, st.Len(), summary.Rows)
	require.Len(t, summary.Regressions, 3)
	assert.Equal(t, forecast.KeyTemperatureRegression, summary.Regressions[0].Model)
	require.NotNil(t, summary.Classifier)
	assert.Greater(t, summary.Classifier.Accuracy, 0.5)

	missing, err := reg.Missing(ctx, forecast.AllKeys...)
	require.NoError(t, err)
	assert.Empty(t, missing)

	for _, key := range forecast.AllKeys {
		art, err := reg.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, summary.RunID, art.RunID, key)
	}
}

func TestRunner_FailsOnEmptyHistory(t *testing.T) {
	reg := registry.New(registry.NewFileBackend(t.TempDir()), logger.Discard())
	deps := forecast.Deps{Store: store.NewMemoryStore(nil), Registry: reg, Log: logger.Discard()}

	_, err := NewRunner(deps, "empty.csv").Run(context.Background())
	assert.Error(t, err)

	missing, err := reg.Missing(context.Background(), forecast.AllKeys...)
	require.NoError(t, err)
	assert.Equal(t, forecast.AllKeys, missing)
}
