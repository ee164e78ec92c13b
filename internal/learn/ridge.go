package learn

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrEmptyTrainingSet is returned when a model is fitted on no samples.
var ErrEmptyTrainingSet = errors.New("empty training set")

// DefaultRidgeAlpha is the L2 penalty used by the forecasters.
const DefaultRidgeAlpha = 1.0

// Ridge is a multi-output linear model fitted with an L2 penalty on the
// coefficients. The intercept is not penalised.
type Ridge struct {
	Alpha     float64     `json:"alpha"`
	Coef      [][]float64 `json:"coef"` // one row per output
	Intercept []float64   `json:"intercept"`
}

// FitRidge solves (XcᵀXc + αI)β = XcᵀYc on mean-centred data.
func FitRidge(X, Y [][]float64, alpha float64) (*Ridge, error) {
	n := len(X)
	if n == 0 || len(Y) != n {
		return nil, ErrEmptyTrainingSet
	}
	p, q := len(X[0]), len(Y[0])

	xMean := columnMeans(X, p)
	yMean := columnMeans(Y, q)

	xc := mat.NewDense(n, p, nil)
	yc := mat.NewDense(n, q, nil)
	for i := 0; i < n; i++ {
		if len(X[i]) != p || len(Y[i]) != q {
			return nil, fmt.Errorf("%w: ragged row %d", ErrDimension, i)
		}
		for j := 0; j < p; j++ {
			xc.Set(i, j, X[i][j]-xMean[j])
		}
		for k := 0; k < q; k++ {
			yc.Set(i, k, Y[i][k]-yMean[k])
		}
	}

	var gram mat.Dense
	gram.Mul(xc.T(), xc)
	sym := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := gram.At(i, j)
			if i == j {
				v += alpha
			}
			sym.SetSym(i, j, v)
		}
	}

	var rhs mat.Dense
	rhs.Mul(xc.T(), yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, errors.New("ridge: normal equations are not positive definite")
	}
	var beta mat.Dense
	if err := chol.SolveTo(&beta, &rhs); err != nil {
		// An ill-conditioned system still yields the penalised solution.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("ridge: %w", err)
		}
	}

	m := &Ridge{
		Alpha:     alpha,
		Coef:      make([][]float64, q),
		Intercept: make([]float64, q),
	}
	for k := 0; k < q; k++ {
		m.Coef[k] = make([]float64, p)
		icpt := yMean[k]
		for j := 0; j < p; j++ {
			b := beta.At(j, k)
			m.Coef[k][j] = b
			icpt -= b * xMean[j]
		}
		m.Intercept[k] = icpt
	}
	return m, nil
}

// Predict evaluates every output for x.
func (m *Ridge) Predict(x []float64) ([]float64, error) {
	out := make([]float64, len(m.Coef))
	for k, coef := range m.Coef {
		if len(coef) != len(x) {
			return nil, fmt.Errorf("%w: model expects %d features, got %d", ErrDimension, len(coef), len(x))
		}
		v := m.Intercept[k]
		for j, c := range coef {
			v += c * x[j]
		}
		out[k] = v
	}
	return out, nil
}

// PredictAll evaluates every row of X.
func (m *Ridge) PredictAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, x := range X {
		y, err := m.Predict(x)
		if err != nil {
			return nil, err
		}
		out[i] = y
	}
	return out, nil
}

func columnMeans(rows [][]float64, width int) []float64 {
	means := make([]float64, width)
	for _, r := range rows {
		for j := 0; j < width && j < len(r); j++ {
			means[j] += r[j]
		}
	}
	for j := range means {
		means[j] /= float64(len(rows))
	}
	return means
}
