package model

import (
	"github.com/chrissnell/pvforecast/internal/types"
	"gonum.org/v1/gonum/mat"
)

// Bundle is a fitted predictor together with the column order it was trained on
type Bundle struct {
	Name         string
	Kind         Kind
	FeatureOrder []string
	Predictor    Predictor
}

// Matrix projects feature vectors onto the bundle's feature order. Columns a
// vector cannot supply and missing values are written as zero.
func (b *Bundle) Matrix(features []types.FeatureVector) *mat.Dense {
	cols := len(b.FeatureOrder)
	if len(features) == 0 || cols == 0 {
		return &mat.Dense{}
	}
	data := make([]float64, len(features)*cols)
	for i, fv := range features {
		row := data[i*cols : (i+1)*cols]
		for j, name := range b.FeatureOrder {
			v, ok := fv.Value(name)
			if !ok || types.Missing(v) {
				v = 0
			}
			row[j] = v
		}
	}
	return mat.NewDense(len(features), cols, data)
}

// Predict returns one value per feature vector, in W per kWp. Predictions are
// returned unclamped.
func (b *Bundle) Predict(features []types.FeatureVector) []float64 {
	if len(features) == 0 {
		return []float64{}
	}
	return b.Predictor.Predict(b.Matrix(features))
}

// Importances returns the predictor's feature importances, if it has any
func (b *Bundle) Importances() (map[string]float64, bool) {
	r, ok := b.Predictor.(ImportanceReporter)
	if !ok {
		return nil, false
	}
	return r.FeatureImportances(), true
}

// NeedsSite reports whether the bundle uses site-aware columns
func (b *Bundle) NeedsSite() bool {
	for _, c := range b.FeatureOrder {
		if c == types.ColumnSolarElevation || c == types.ColumnClearSkyGHI {
			return true
		}
	}
	return false
}
