package model

import "github.com/chimerahq/chimera/pkg/api"

// NewLinearLearner constructs the LinearLearner variant named by kind
// ("regressor" or "classifier"), mirroring the original MODELS_MAP/
// MODEL_TYPE constructor-map shape as a small Go factory function.
func NewLinearLearner(kind string, eta0 float64, maxIter int) (LinearLearner, error) {
	switch kind {
	case "regressor":
		return NewSGDRegressor(eta0, maxIter), nil
	case "classifier":
		return NewSGDClassifier(eta0, maxIter), nil
	default:
		return nil, api.NewConfigError("unknown learner kind: " + kind)
	}
}
