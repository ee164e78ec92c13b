// Package report renders training evaluations as an Excel workbook.
package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kelly-eugenia/weather-forecast/internal/learn"
)

// Sheet names.
const (
	SheetSummary        = "Summary"
	SheetRegression     = "Regression"
	SheetClassification = "Classification"
	SheetConfusion      = "Confusion Matrix"
)

// RegressionResult is the holdout evaluation of one regression model.
type RegressionResult struct {
	Model  string
	Report learn.RegressionReport
}

// TrainingSummary collects everything produced by one training run.
type TrainingSummary struct {
	RunID       string
	TrainedAt   time.Time
	Source      string
	Rows        int
	Regressions []RegressionResult
	Classifier  *learn.ClassificationReport
}

// Generate builds the workbook and returns it as xlsx bytes.
func Generate(s TrainingSummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetDocProps(&excelize.DocProperties{
		Title:       "Weather Forecast Training Report",
		Subject:     "Model Evaluation",
		Creator:     "weather-train",
		Description: fmt.Sprintf("Training run %s", s.RunID),
		Created:     s.TrainedAt.Format(time.RFC3339),
	})

	if err := summarySheet(f, s); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := regressionSheet(f, s.Regressions); err != nil {
		return nil, fmt.Errorf("failed to create regression sheet: %w", err)
	}
	if s.Classifier != nil {
		if err := classificationSheet(f, *s.Classifier); err != nil {
			return nil, fmt.Errorf("failed to create classification sheet: %w", err)
		}
		if err := confusionSheet(f, *s.Classifier); err != nil {
			return nil, fmt.Errorf("failed to create confusion sheet: %w", err)
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel to buffer: %w", err)
	}
	return buf.Bytes(), nil
}

func summarySheet(f *excelize.File, s TrainingSummary) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"Run ID", s.RunID},
		{"Trained At", s.TrainedAt.UTC().Format(time.RFC3339)},
		{"History Source", s.Source},
		{"Feature Rows", s.Rows},
		{"Models", len(s.Regressions) + boolToInt(s.Classifier != nil)},
	}
	if err := writeRows(f, SheetSummary, 1, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetSummary, "A", "B", 28)
}

func regressionSheet(f *excelize.File, results []RegressionResult) error {
	if _, err := f.NewSheet(SheetRegression); err != nil {
		return err
	}
	rows := [][]interface{}{{"Model", "Holdout Samples", "MSE", "R²"}}
	for _, r := range results {
		rows = append(rows, []interface{}{r.Model, r.Report.Samples, r.Report.MSE, r.Report.R2})
	}
	if err := writeRows(f, SheetRegression, 1, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetRegression, "A", "D", 26)
}

func classificationSheet(f *excelize.File, r learn.ClassificationReport) error {
	if _, err := f.NewSheet(SheetClassification); err != nil {
		return err
	}
	rows := [][]interface{}{{"Label", "Precision", "Recall", "F1", "Support"}}
	for _, c := range r.Classes {
		rows = append(rows, []interface{}{c.Label, c.Precision, c.Recall, c.F1, c.Support})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Accuracy", r.Accuracy})
	if err := writeRows(f, SheetClassification, 1, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetClassification, "A", "E", 16)
}

// confusionSheet lays out true labels down column A and predicted labels
// across row 1.
func confusionSheet(f *excelize.File, r learn.ClassificationReport) error {
	if _, err := f.NewSheet(SheetConfusion); err != nil {
		return err
	}
	header := []interface{}{"True \\ Predicted"}
	for _, l := range r.Labels {
		header = append(header, l)
	}
	rows := [][]interface{}{header}
	for i, l := range r.Labels {
		row := []interface{}{l}
		for _, n := range r.Confusion[i] {
			row = append(row, n)
		}
		rows = append(rows, row)
	}
	if err := writeRows(f, SheetConfusion, 1, rows); err != nil {
		return err
	}
	last, err := excelize.ColumnNumberToName(len(r.Labels) + 1)
	if err != nil {
		return err
	}
	return f.SetColWidth(SheetConfusion, "A", last, 16)
}

func writeRows(f *excelize.File, sheet string, firstRow int, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, firstRow+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
