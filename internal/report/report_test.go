package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kelly-eugenia/weather-forecast/internal/learn"
)

func TestGenerate_WritesAllSheets(t *testing.T) {
	cls := learn.EvaluateClassifier(
		[]string{"Rainy", "Sunny", "Sunny", "Cloudy"},
		[]string{"Rainy", "Sunny", "Rainy", "Cloudy"},
	)
	data, err := Generate(TrainingSummary{
		RunID:     "run-1",
		TrainedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Source:    "history.csv",
		Rows:      365,
		Regressions: []RegressionResult{
			{Model: "temperature_regression", Report: learn.RegressionReport{Samples: 73, MSE: 1.5, R2: 0.93}},
			{Model: "precipitation_regression", Report: learn.RegressionReport{Samples: 110, MSE: 4.25, R2: 0.41}},
		},
		Classifier: &cls,
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{SheetSummary, SheetRegression, SheetClassification, SheetConfusion}, f.GetSheetList())

	v, err := f.GetCellValue(SheetSummary, "B1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", v)
	v, err = f.GetCellValue(SheetSummary, "B5")
	require.NoError(t, err)
	assert.Equal(t, "3", v)

	v, err = f.GetCellValue(SheetRegression, "A3")
	require.NoError(t, err)
	assert.Equal(t, "precipitation_regression", v)
	v, err = f.GetCellValue(SheetRegression, "C3")
	require.NoError(t, err)
	assert.Equal(t, "4.25", v)

	// Labels are sorted: Cloudy, Rainy, Sunny. One Sunny day was predicted Rainy.
	v, err = f.GetCellValue(SheetConfusion, "C4")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	v, err = f.GetCellValue(SheetConfusion, "D1")
	require.NoError(t, err)
	assert.Equal(t, "Sunny", v)

	v, err = f.GetCellValue(SheetClassification, "B6")
	require.NoError(t, err)
	assert.Equal(t, "0.75", v)
}

func TestGenerate_WithoutClassifier(t *testing.T) {
	data, err := Generate(TrainingSummary{RunID: "run-2", TrainedAt: time.Now()})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{SheetSummary, SheetRegression}, f.GetSheetList())
}
