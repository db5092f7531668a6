/*
Package model defines the capability interfaces every worker or master
trains and predicts through, plus minimal reference implementations that
satisfy them.

Regressor and Classifier are the two Predictor variants used by ensemble
workers: full-batch Fit plus either Predict (scalars) or PredictProba
(class-probability vectors). LinearLearner is the separate, smaller
capability set the parameter server needs: PartialFit plus a
read/write Coef and Intercept and a MaxIter bound.

These are tagged unions plus capability interfaces, not a class
hierarchy: a type can satisfy Regressor without knowing LinearLearner
exists, and vice versa. Model quality is explicitly not the point of this
package; LeastSquaresRegressor, LogisticClassifier, SGDRegressor, and
SGDClassifier exist so the coordination fabric is runnable end to end,
and any other type satisfying these interfaces drops in unchanged.
*/
package model
