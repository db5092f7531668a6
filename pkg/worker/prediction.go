package worker

import (
	"fmt"
	"net/http"

	"github.com/chimerahq/chimera/pkg/api"
	"github.com/chimerahq/chimera/pkg/bootstrap"
	"github.com/chimerahq/chimera/pkg/csvdata"
	"github.com/chimerahq/chimera/pkg/log"
	"github.com/chimerahq/chimera/pkg/metrics"
	"github.com/chimerahq/chimera/pkg/model"
)

// PredictionWorker owns one Predictor (a Regressor or a Classifier) and
// serves POST /node/fit and POST /node/predict, per spec.md §4.2.
//
// Exactly one of Regressor/Classifier is set; Kind selects which. Fit is
// expected to be idempotent and is NOT safe for concurrent callers, per
// spec.md §4.2 - predict before fit surfaces an IOError/ValidationError
// as a 500, not a panic.
type PredictionWorker struct {
	Kind       string // "regressor" or "classifier"
	Regressor  model.Regressor
	Classifier model.Classifier

	Bootstrap    bool
	Bootstrapper *bootstrap.Bootstrapper

	XTrainPath string
	YTrainPath string

	Host string
	Port int

	fitted bool
}

// NewPredictionWorker constructs a PredictionWorker for the given
// Predictor kind.
func NewPredictionWorker(kind string, xTrainPath, yTrainPath, host string, port int, doBootstrap bool) *PredictionWorker {
	return &PredictionWorker{
		Kind:         kind,
		Bootstrap:    doBootstrap,
		Bootstrapper: bootstrap.NewDefault(),
		XTrainPath:   xTrainPath,
		YTrainPath:   yTrainPath,
		Host:         host,
		Port:         port,
	}
}

// Mux registers this worker's routes (plus the ambient /healthz and
// /metrics endpoints) on a fresh http.ServeMux.
func (w *PredictionWorker) Mux() *http.ServeMux {
	mux := NewMux()
	mux.HandleFunc("/node/fit", w.handleFit)
	mux.HandleFunc("/node/predict", w.handlePredict)
	return mux
}

// Serve blocks serving this worker's HTTP surface at Host:Port.
func (w *PredictionWorker) Serve() error {
	logger := log.WithComponent("prediction-worker")
	logger.Info().Int("port", w.Port).Str("kind", w.Kind).Msg("serving prediction worker")
	return http.ListenAndServe(fmt.Sprintf("%s:%d", w.Host, w.Port), w.Mux())
}

func (w *PredictionWorker) handleFit(rw http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.FitDuration)

	if err := w.fit(); err != nil {
		metrics.FitRequestsTotal.WithLabelValues("worker", "error").Inc()
		log.WithComponent("prediction-worker").Error().Err(err).Msg("fit failed")
		api.WriteError(rw, err)
		return
	}
	metrics.FitRequestsTotal.WithLabelValues("worker", "ok").Inc()
	api.WriteJSON(rw, http.StatusOK, api.OK())
}

func (w *PredictionWorker) fit() error {
	fitInput, err := csvdata.LoadFitInput(w.XTrainPath, w.YTrainPath)
	if err != nil {
		return err
	}
	fitInput.Normalize()
	if err := fitInput.Validate(); err != nil {
		return err
	}

	x, y := fitInput.X(), fitInput.Y()
	if w.Bootstrap {
		x, y, err = w.Bootstrapper.Run(x, y)
		if err != nil {
			return err
		}
	}

	switch w.Kind {
	case "regressor":
		if err := w.Regressor.Fit(x, y); err != nil {
			return err
		}
	case "classifier":
		if err := w.Classifier.Fit(x, y); err != nil {
			return err
		}
	default:
		return api.NewConfigError("unknown predictor kind: " + w.Kind)
	}
	w.fitted = true
	return nil
}

func (w *PredictionWorker) handlePredict(rw http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PredictDuration)

	var input api.PredictInput
	if err := api.DecodeJSON(r, &input); err != nil {
		metrics.PredictRequestsTotal.WithLabelValues("worker", "error").Inc()
		api.WriteError(rw, err)
		return
	}
	input.Normalize()

	output, err := w.predict(input)
	if err != nil {
		metrics.PredictRequestsTotal.WithLabelValues("worker", "error").Inc()
		log.WithComponent("prediction-worker").Error().Err(err).Msg("predict failed")
		api.WriteError(rw, err)
		return
	}
	metrics.PredictRequestsTotal.WithLabelValues("worker", "ok").Inc()
	api.WriteJSON(rw, http.StatusOK, output)
}

func (w *PredictionWorker) predict(input api.PredictInput) (api.PredictOutput, error) {
	if !w.fitted {
		return api.PredictOutput{}, api.NewValidationError("predict called before the model was fitted")
	}
	x := input.X()
	switch w.Kind {
	case "regressor":
		preds, err := w.Regressor.Predict(x)
		if err != nil {
			return api.PredictOutput{}, err
		}
		rows := make([]any, len(preds))
		for i, p := range preds {
			rows[i] = p
		}
		return api.PredictOutput{YPredRows: rows}, nil
	case "classifier":
		probs, err := w.Classifier.PredictProba(x)
		if err != nil {
			return api.PredictOutput{}, err
		}
		rows := make([]any, len(probs))
		for i, p := range probs {
			rows[i] = p
		}
		return api.PredictOutput{YPredRows: rows}, nil
	default:
		return api.PredictOutput{}, api.NewConfigError("unknown predictor kind: " + w.Kind)
	}
}
