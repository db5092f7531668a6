package worker

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/chimerahq/chimera/pkg/api"
	"github.com/chimerahq/chimera/pkg/csvdata"
	"github.com/chimerahq/chimera/pkg/log"
	"github.com/chimerahq/chimera/pkg/metrics"
	"github.com/chimerahq/chimera/pkg/model"
)

// SGDWorker supports the parameter-server path (spec.md §4.4): it holds a
// LinearLearner and a partiallyFitted flag, exposing GET
// /sgd/fit_request_data_sample and POST /sgd/fit_step.
type SGDWorker struct {
	Learner model.LinearLearner

	XTrainPath string
	YTrainPath string

	Host string
	Port int

	mu              sync.Mutex
	partiallyFitted bool
}

// NewSGDWorker constructs an SGDWorker around the given learner.
func NewSGDWorker(learner model.LinearLearner, xTrainPath, yTrainPath, host string, port int) *SGDWorker {
	return &SGDWorker{
		Learner:    learner,
		XTrainPath: xTrainPath,
		YTrainPath: yTrainPath,
		Host:       host,
		Port:       port,
	}
}

// Mux registers this worker's routes (plus the ambient /healthz and
// /metrics endpoints) on a fresh http.ServeMux.
func (w *SGDWorker) Mux() *http.ServeMux {
	mux := NewMux()
	mux.HandleFunc("/sgd/fit_request_data_sample", w.handleDataSample)
	mux.HandleFunc("/sgd/fit_step", w.handleFitStep)
	return mux
}

// Serve blocks serving this worker's HTTP surface at Host:Port.
func (w *SGDWorker) Serve() error {
	logger := log.WithComponent("sgd-worker")
	logger.Info().Int("port", w.Port).Msg("serving SGD worker")
	return http.ListenAndServe(fmt.Sprintf("%s:%d", w.Host, w.Port), w.Mux())
}

func (w *SGDWorker) handleDataSample(rw http.ResponseWriter, r *http.Request) {
	sample, err := csvdata.LoadSampleProgressive(w.XTrainPath, w.YTrainPath)
	if err != nil {
		log.WithComponent("sgd-worker").Error().Err(err).Msg("fit_request_data_sample failed")
		api.WriteError(rw, err)
		return
	}
	api.WriteJSON(rw, http.StatusOK, sample)
}

func (w *SGDWorker) handleFitStep(rw http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PSFitStepDuration)

	var input api.FitStepInput
	if err := api.DecodeJSON(r, &input); err != nil {
		api.WriteError(rw, err)
		return
	}

	output, err := w.fitStep(input)
	if err != nil {
		metrics.WorkerFitStepFailuresTotal.WithLabelValues(fmt.Sprintf("%d", w.Port)).Inc()
		log.WithComponent("sgd-worker").Error().Err(err).Msg("fit_step failed")
		api.WriteError(rw, err)
		return
	}
	api.WriteJSON(rw, http.StatusOK, output)
}

// fitStep implements spec.md §4.4's priming/overwrite/delta sequence.
//
// On the first call (partiallyFitted == false) the incoming weights/bias
// are ignored; a data sample primes the learner's coefficient shape
// instead. Every subsequent call overwrites coef_/intercept_ from the
// request before advancing one local step.
func (w *SGDWorker) fitStep(input api.FitStepInput) (api.FitStepOutput, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.partiallyFitted {
		sample, err := csvdata.LoadSampleProgressive(w.XTrainPath, w.YTrainPath)
		if err != nil {
			return api.FitStepOutput{}, err
		}
		seedInput := sample.AsFitInput()
		if err := w.Learner.PartialFit(seedInput.X(), seedInput.Y()); err != nil {
			return api.FitStepOutput{}, err
		}
		w.partiallyFitted = true
	} else {
		w.Learner.SetCoef(input.Weights)
		w.Learner.SetIntercept(input.Bias)
	}

	fitInput, err := csvdata.LoadFitInput(w.XTrainPath, w.YTrainPath)
	if err != nil {
		return api.FitStepOutput{}, err
	}

	weightsBefore := append(model.Vector(nil), w.Learner.Coef()...)
	biasBefore := append(model.Vector(nil), w.Learner.Intercept()...)

	if err := w.Learner.PartialFit(fitInput.X(), fitInput.Y()); err != nil {
		return api.FitStepOutput{}, err
	}

	weightsAfter := w.Learner.Coef()
	biasAfter := w.Learner.Intercept()

	return api.FitStepOutput{
		WeightsGradients: subtract(weightsBefore, weightsAfter),
		BiasGradient:     subtract(biasBefore, biasAfter),
	}, nil
}

func subtract(before, after []float64) []float64 {
	n := len(before)
	if len(after) < n {
		n = len(after)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = before[i] - after[i]
	}
	return out
}
