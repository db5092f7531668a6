package model

import (
	"github.com/chimerahq/chimera/pkg/api"
)

// LeastSquaresRegressor is a minimal full-batch linear regressor fit by
// batch gradient descent, satisfying Regressor.
type LeastSquaresRegressor struct {
	Eta      float64
	Epochs   int
	coef     []float64
	intercept float64
}

// NewLeastSquaresRegressor creates a regressor with the given learning
// rate and epoch count.
func NewLeastSquaresRegressor(eta float64, epochs int) *LeastSquaresRegressor {
	if eta <= 0 {
		eta = 0.01
	}
	if epochs <= 0 {
		epochs = 200
	}
	return &LeastSquaresRegressor{Eta: eta, Epochs: epochs}
}

// Fit trains the regressor by batch gradient descent over Epochs passes.
func (r *LeastSquaresRegressor) Fit(X, y api.Frame) error {
	xs, err := toMatrix(X)
	if err != nil {
		return err
	}
	ys, err := toVector(y)
	if err != nil {
		return err
	}
	if len(xs) == 0 {
		return api.NewValidationError("cannot fit on an empty training set")
	}

	dim := len(xs[0])
	r.coef = zeros(dim)
	r.intercept = 0

	for epoch := 0; epoch < r.Epochs; epoch++ {
		r.coef, r.intercept = gradientStep(xs, ys, r.coef, r.intercept, r.Eta, identity)
	}
	return nil
}

// Predict returns the regressor's scalar prediction for each row of X.
func (r *LeastSquaresRegressor) Predict(X api.Frame) ([]float64, error) {
	xs, err := toMatrix(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(xs))
	for i, row := range xs {
		out[i] = dot(r.coef, row) + r.intercept
	}
	return out, nil
}

// LogisticClassifier is a minimal full-batch binary logistic-regression
// classifier fit by batch gradient descent, satisfying Classifier.
type LogisticClassifier struct {
	Eta      float64
	Epochs   int
	coef     []float64
	intercept float64
}

// NewLogisticClassifier creates a classifier with the given learning rate
// and epoch count.
func NewLogisticClassifier(eta float64, epochs int) *LogisticClassifier {
	if eta <= 0 {
		eta = 0.1
	}
	if epochs <= 0 {
		epochs = 200
	}
	return &LogisticClassifier{Eta: eta, Epochs: epochs}
}

// Fit trains the classifier by batch gradient descent over Epochs passes.
func (c *LogisticClassifier) Fit(X, y api.Frame) error {
	xs, err := toMatrix(X)
	if err != nil {
		return err
	}
	ys, err := toVector(y)
	if err != nil {
		return err
	}
	if len(xs) == 0 {
		return api.NewValidationError("cannot fit on an empty training set")
	}

	dim := len(xs[0])
	c.coef = zeros(dim)
	c.intercept = 0

	for epoch := 0; epoch < c.Epochs; epoch++ {
		c.coef, c.intercept = gradientStep(xs, ys, c.coef, c.intercept, c.Eta, sigmoid)
	}
	return nil
}

// PredictProba returns a two-class probability vector [P(y=0), P(y=1)]
// for each row of X.
func (c *LogisticClassifier) PredictProba(X api.Frame) ([][]float64, error) {
	xs, err := toMatrix(X)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(xs))
	for i, row := range xs {
		p1 := sigmoid(dot(c.coef, row) + c.intercept)
		out[i] = []float64{1 - p1, p1}
	}
	return out, nil
}

// sgdLearner is the shared state/behavior of SGDRegressor and
// SGDClassifier: both are LinearLearners whose PartialFit runs one
// worker-local gradient descent epoch at Eta0 (the parameter server
// forces this to near-zero on its own copy per spec.md §4.6, making its
// own PartialFit a shape initializer rather than a trainer).
type sgdLearner struct {
	Eta0      float64
	maxIter   int
	coef      []float64
	intercept []float64
	act       func(float64) float64
}

// PartialFit runs one epoch of gradient descent against X, y, advancing
// the learner by one worker-local step at its own Eta0. Coefficient shape
// is sized from X on the first call.
func (s *sgdLearner) PartialFit(X, y api.Frame) error {
	xs, err := toMatrix(X)
	if err != nil {
		return err
	}
	ys, err := toVector(y)
	if err != nil {
		return err
	}
	if len(xs) == 0 {
		return api.NewValidationError("cannot partial_fit on an empty shard")
	}

	if s.coef == nil {
		s.coef = zeros(len(xs[0]))
		s.intercept = zeros(1)
	}

	newCoef, newIntercept := gradientStep(xs, ys, s.coef, s.intercept[0], s.Eta0, s.act)
	s.coef = newCoef
	s.intercept = []float64{newIntercept}
	return nil
}

func (s *sgdLearner) Coef() Vector           { return append(Vector(nil), s.coef...) }
func (s *sgdLearner) SetCoef(v Vector)       { s.coef = append([]float64(nil), v...) }
func (s *sgdLearner) Intercept() Vector      { return append(Vector(nil), s.intercept...) }
func (s *sgdLearner) SetIntercept(v Vector)  { s.intercept = append([]float64(nil), v...) }
func (s *sgdLearner) MaxIter() int           { return s.maxIter }

func (s *sgdLearner) predict(X api.Frame, act func(float64) float64) ([]float64, error) {
	xs, err := toMatrix(X)
	if err != nil {
		return nil, err
	}
	var bias float64
	if len(s.intercept) > 0 {
		bias = s.intercept[0]
	}
	out := make([]float64, len(xs))
	for i, row := range xs {
		out[i] = act(dot(s.coef, row) + bias)
	}
	return out, nil
}

// SGDRegressor is the LinearLearner the parameter server drives for
// regression: PartialFit plus a readable/writable coef_/intercept_.
type SGDRegressor struct{ sgdLearner }

// NewSGDRegressor creates a regressor with its own eta0 and max_iter.
func NewSGDRegressor(eta0 float64, maxIter int) *SGDRegressor {
	return &SGDRegressor{sgdLearner{Eta0: eta0, maxIter: maxIter, act: identity}}
}

// Predict returns the regressor's scalar prediction for each row of X.
func (r *SGDRegressor) Predict(X api.Frame) ([]float64, error) { return r.predict(X, identity) }

// SGDClassifier is the LinearLearner the parameter server drives for
// binary classification.
type SGDClassifier struct{ sgdLearner }

// NewSGDClassifier creates a classifier with its own eta0 and max_iter.
func NewSGDClassifier(eta0 float64, maxIter int) *SGDClassifier {
	return &SGDClassifier{sgdLearner{Eta0: eta0, maxIter: maxIter, act: sigmoid}}
}

// Predict returns the thresholded class prediction (0 or 1) for each row
// of X, matching the parameter server's single PredictOutput vector
// contract.
func (c *SGDClassifier) Predict(X api.Frame) ([]float64, error) {
	probs, err := c.predict(X, sigmoid)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}
