// Package model loads fitted regression models and evaluates them on feature
// vectors. Training happens elsewhere; bundles are read-only once loaded.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Predictor evaluates a fitted model. x has one row per sample and one column
// per entry of the owning bundle's feature order. The result holds one value
// per row, in W per kWp.
type Predictor interface {
	Predict(x *mat.Dense) []float64
}

// ImportanceReporter is implemented by predictors that can rank their inputs
type ImportanceReporter interface {
	FeatureImportances() map[string]float64
}

// Kind names a predictor family in a bundle manifest
type Kind string

const (
	KindGBTree Kind = "gbtree"
	KindForest Kind = "forest"
	KindLinear Kind = "linear"
)
