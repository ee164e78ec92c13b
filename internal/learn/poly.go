// Package learn holds the small numeric toolkit the forecasters are built on:
// polynomial feature expansion, ridge regression, a random-forest classifier,
// holdout splits and evaluation metrics. Every fitted type is a plain struct
// that round-trips through encoding/json so it can be stored as an artifact.
package learn

import (
	"errors"
	"fmt"
)

// ErrDimension is returned when an input vector has the wrong length.
var ErrDimension = errors.New("dimension mismatch")

// PolynomialExpansion maps an input vector to all monomials of its entries up
// to Degree, bias term first, in graded lexicographic order:
// 1, x0, x1, ..., x0², x0·x1, ..., x1², ...
type PolynomialExpansion struct {
	Degree int `json:"degree"`
	Inputs int `json:"inputs"`
}

// NewPolynomialExpansion returns an expansion for vectors of length inputs.
func NewPolynomialExpansion(degree, inputs int) PolynomialExpansion {
	return PolynomialExpansion{Degree: degree, Inputs: inputs}
}

// Terms returns the input indices multiplied together for each output column.
// The bias term is the empty product.
func (p PolynomialExpansion) Terms() [][]int {
	terms := [][]int{{}}
	prev := [][]int{{}}
	for d := 1; d <= p.Degree; d++ {
		var next [][]int
		for _, t := range prev {
			start := 0
			if len(t) > 0 {
				start = t[len(t)-1]
			}
			for i := start; i < p.Inputs; i++ {
				term := make([]int, len(t)+1)
				copy(term, t)
				term[len(t)] = i
				next = append(next, term)
			}
		}
		terms = append(terms, next...)
		prev = next
	}
	return terms
}

// OutputSize returns the number of expanded columns.
func (p PolynomialExpansion) OutputSize() int {
	return len(p.Terms())
}

// Transform expands a single vector.
func (p PolynomialExpansion) Transform(x []float64) ([]float64, error) {
	if len(x) != p.Inputs {
		return nil, fmt.Errorf("%w: expansion expects %d inputs, got %d", ErrDimension, p.Inputs, len(x))
	}
	terms := p.Terms()
	out := make([]float64, len(terms))
	for i, term := range terms {
		v := 1.0
		for _, idx := range term {
			v *= x[idx]
		}
		out[i] = v
	}
	return out, nil
}

// TransformAll expands every row of X.
func (p PolynomialExpansion) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, x := range X {
		row, err := p.Transform(x)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = row
	}
	return out, nil
}
