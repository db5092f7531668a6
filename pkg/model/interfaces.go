package model

import "github.com/chimerahq/chimera/pkg/api"

// Vector is a dense vector of real-valued parameters: weights, bias, or
// gradients.
type Vector = []float64

// Regressor produces scalar predictions. Used by ensemble workers.
type Regressor interface {
	Fit(X, y api.Frame) error
	Predict(X api.Frame) ([]float64, error)
}

// Classifier produces class-probability vectors, one per row. Used by
// ensemble workers.
type Classifier interface {
	Fit(X, y api.Frame) error
	PredictProba(X api.Frame) ([][]float64, error)
}

// LinearLearner is the subset of Predictor capability the parameter
// server drives: incremental partial_fit plus direct, mutable access to
// the learned parameters so the master can snapshot and overwrite them
// between fan-out rounds.
type LinearLearner interface {
	PartialFit(X, y api.Frame) error
	Coef() Vector
	SetCoef(Vector)
	Intercept() Vector
	SetIntercept(Vector)
	MaxIter() int
	Predict(X api.Frame) ([]float64, error)
}
