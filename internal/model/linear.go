package model

import (
	"gonum.org/v1/gonum/mat"
)

// Linear is an ordinary linear regression: intercept + coefficients·x
type Linear struct {
	Intercept    float64
	Coefficients *mat.VecDense
}

// NewLinear creates a linear predictor
func NewLinear(intercept float64, coefficients []float64) *Linear {
	c := make([]float64, len(coefficients))
	copy(c, coefficients)
	return &Linear{
		Intercept:    intercept,
		Coefficients: mat.NewVecDense(len(c), c),
	}
}

// Predict implements Predictor
func (l *Linear) Predict(x *mat.Dense) []float64 {
	rows, _ := x.Dims()
	if rows == 0 {
		return []float64{}
	}

	var y mat.VecDense
	y.MulVec(x, l.Coefficients)

	out := make([]float64, rows)
	for i := range out {
		out[i] = y.AtVec(i) + l.Intercept
	}
	return out
}
