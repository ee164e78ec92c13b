package learn

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// RegressionReport is a holdout evaluation of a regression model.
type RegressionReport struct {
	Samples int     `json:"samples"`
	MSE     float64 `json:"mse"`
	R2      float64 `json:"r2"`
}

// EvaluateRegression averages MSE and R² uniformly over the outputs.
func EvaluateRegression(yTrue, yPred [][]float64) RegressionReport {
	rep := RegressionReport{Samples: len(yTrue)}
	if len(yTrue) == 0 {
		return rep
	}

	q := len(yTrue[0])
	var mse, r2 float64
	for k := 0; k < q; k++ {
		truth := make([]float64, len(yTrue))
		est := make([]float64, len(yTrue))
		var sse float64
		for i := range yTrue {
			truth[i] = yTrue[i][k]
			est[i] = yPred[i][k]
			d := truth[i] - est[i]
			sse += d * d
		}
		mse += sse / float64(len(truth))
		r2 += rSquared(est, truth, sse)
	}
	rep.MSE = mse / float64(q)
	rep.R2 = r2 / float64(q)
	return rep
}

func rSquared(est, truth []float64, sse float64) float64 {
	if len(truth) < 2 || stat.Variance(truth, nil) == 0 {
		if sse == 0 {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(est, truth, nil)
}

// ClassMetrics is one row of a classification report.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// ClassificationReport is a holdout evaluation of a classifier.
type ClassificationReport struct {
	Accuracy  float64         `json:"accuracy"`
	Classes   []ClassMetrics  `json:"classes"`
	Labels    []string        `json:"labels"`
	Confusion ConfusionMatrix `json:"confusion"`
}

// ConfusionMatrix counts true labels (rows) against predicted labels (columns)
// in Labels order.
type ConfusionMatrix [][]int

// EvaluateClassifier builds accuracy, per-class metrics and a confusion
// matrix. Labels are the sorted union of the true and predicted labels.
func EvaluateClassifier(yTrue, yPred []string) ClassificationReport {
	seen := map[string]bool{}
	for _, l := range yTrue {
		seen[l] = true
	}
	for _, l := range yPred {
		seen[l] = true
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	pos := make(map[string]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}

	cm := make(ConfusionMatrix, len(labels))
	for i := range cm {
		cm[i] = make([]int, len(labels))
	}
	correct := 0
	for i := range yTrue {
		cm[pos[yTrue[i]]][pos[yPred[i]]]++
		if yTrue[i] == yPred[i] {
			correct++
		}
	}

	rep := ClassificationReport{Labels: labels, Confusion: cm}
	if len(yTrue) > 0 {
		rep.Accuracy = float64(correct) / float64(len(yTrue))
	}

	for i, l := range labels {
		var predicted, actual int
		for j := range labels {
			predicted += cm[j][i]
			actual += cm[i][j]
		}
		tp := cm[i][i]
		m := ClassMetrics{Label: l, Support: actual}
		if predicted > 0 {
			m.Precision = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			m.Recall = float64(tp) / float64(actual)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		rep.Classes = append(rep.Classes, m)
	}
	return rep
}

// String renders the report as a fixed-width table.
func (r ClassificationReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-14s %9s %9s %9s %9s\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%-14s %9.2f %9.2f %9.2f %9d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	fmt.Fprintf(&b, "%-14s %9s %9s %9.2f\n", "accuracy", "", "", r.Accuracy)
	b.WriteString("confusion matrix:\n")
	for _, row := range r.Confusion {
		b.WriteString(fmt.Sprint(row))
		b.WriteByte('\n')
	}
	return b.String()
}
