/*
Package worker implements the two node kinds a Chimera fleet runs:
PredictionWorker, which backs the ensemble-aggregation path with
fit/predict over a local Predictor, and SGDWorker, which backs the
parameter-server path by computing one gradient delta per fit_step call
against a local LinearLearner.

Both register their domain routes plus the ambient /healthz and /metrics
endpoints on a shared http.ServeMux via NewMux.
*/
package worker
