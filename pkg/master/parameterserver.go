package master

import (
	"context"
	"math"
	"net/http"
	"sync"

	"github.com/chimerahq/chimera/pkg/api"
	"github.com/chimerahq/chimera/pkg/config"
	"github.com/chimerahq/chimera/pkg/log"
	"github.com/chimerahq/chimera/pkg/metrics"
	"github.com/chimerahq/chimera/pkg/model"
	"github.com/google/uuid"
)

// seedEta0 is forced onto the master's own learner so its PartialFit call
// in seed() only shapes coef_/intercept_ from the seed sample's
// dimensionality; it must never actually move the master's weights, since
// those change only by subtracting the workers' averaged fit_step deltas.
const seedEta0 = 1e-20

// DefaultEpsilon is the default convergence threshold: iteration stops once every
// component of the mean gradient falls at or below this in absolute value.
const DefaultEpsilon = 1e-4

// ParameterServerMaster drives synchronous SGD training across the
// worker fleet via the S0-S6 sequence in spec.md §4.4-§4.6: seed the
// learner's shape from one worker's data sample, then repeatedly fan
// fit_step out to every worker, mean the returned gradients, and subtract
// the mean gradient from the master's own coefficients until either the
// gradient falls under Epsilon or MaxIter rounds have run.
type ParameterServerMaster struct {
	Topology config.Topology
	Policy   config.EndpointPolicy
	Learner  model.LinearLearner
	Epsilon  float64

	mu        sync.RWMutex
	seeded    bool
	iteration int
	converged bool
}

// NewParameterServerMaster constructs a ParameterServerMaster for the
// given learner kind ("regressor" or "classifier").
func NewParameterServerMaster(topology config.Topology, policy config.EndpointPolicy, kind string, eta0 float64, maxIter int) (*ParameterServerMaster, error) {
	learner, err := model.NewLinearLearner(kind, seedEta0, maxIter)
	if err != nil {
		return nil, err
	}
	return &ParameterServerMaster{
		Topology: topology,
		Policy:   policy,
		Learner:  learner,
		Epsilon:  DefaultEpsilon,
	}, nil
}

// Mux registers this master's routes on a fresh http.ServeMux.
func (m *ParameterServerMaster) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/healthz", metrics.HealthHandler())
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ps/fit", m.handleFit)
	mux.HandleFunc("/ps/predict", m.handlePredict)
	return mux
}

// Serve blocks serving this master's HTTP surface at addr.
func (m *ParameterServerMaster) Serve(ctx context.Context, addr string) error {
	log.WithComponent("ps-master").Info().Str("addr", addr).Msg("serving parameter-server master")

	collector := metrics.NewFleetCollector(fleetWorkerURLs(m.Topology), 0)
	collector.Start()
	defer collector.Stop()

	server := &http.Server{Addr: addr, Handler: m.Mux()}
	go func() {
		<-ctx.Done()
		server.Close()
	}()
	return server.ListenAndServe()
}

func (m *ParameterServerMaster) handleFit(rw http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PSFitStepDuration)

	requestID := uuid.NewString()
	logger := log.WithRequestID(requestID)

	if err := m.Train(r.Context()); err != nil {
		metrics.FitRequestsTotal.WithLabelValues("ps-master", "error").Inc()
		logger.Error().Err(err).Msg("parameter server training failed")
		api.WriteError(rw, err)
		return
	}

	metrics.FitRequestsTotal.WithLabelValues("ps-master", "ok").Inc()
	api.WriteJSON(rw, http.StatusOK, api.OK())
}

func (m *ParameterServerMaster) handlePredict(rw http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PredictDuration)

	var input api.PredictInput
	if err := api.DecodeJSON(r, &input); err != nil {
		api.WriteError(rw, err)
		return
	}
	input.Normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	preds, err := m.Learner.Predict(input.X())
	if err != nil {
		metrics.PredictRequestsTotal.WithLabelValues("ps-master", "error").Inc()
		api.WriteError(rw, err)
		return
	}
	rows := make([]any, len(preds))
	for i, p := range preds {
		rows[i] = p
	}
	metrics.PredictRequestsTotal.WithLabelValues("ps-master", "ok").Inc()
	api.WriteJSON(rw, http.StatusOK, api.PredictOutput{YPredRows: rows})
}

// Train runs the S0-S6 state machine to completion: seed (S0-S1), then one
// fit_step fan-out before the loop condition check and one more per
// iteration until MaxIter rounds have run or the mean gradient converges
// (S2-S6) - mirroring the original implementation's "fetch, then check
// current_iter < max_iter and not converged before applying" ordering
// exactly: the round fetched to evaluate a failing loop condition is
// discarded, never applied.
func (m *ParameterServerMaster) Train(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.seeded {
		if err := m.seed(ctx); err != nil {
			return err
		}
		m.seeded = true
	}

	m.iteration = 0
	m.converged = false
	metrics.PSIteration.Set(0)
	metrics.PSConverged.Set(0)

	gradW, gradB, err := m.fitStepRound(ctx)
	if err != nil {
		return err
	}

	for m.iteration < m.Learner.MaxIter() && !converged(gradW, gradB, m.Epsilon) {
		m.applyGradient(gradW, gradB)
		m.iteration++
		metrics.PSIteration.Set(float64(m.iteration))

		gradW, gradB, err = m.fitStepRound(ctx)
		if err != nil {
			return err
		}
	}

	if converged(gradW, gradB, m.Epsilon) {
		m.converged = true
		metrics.PSConverged.Set(1)
	}
	return nil
}

// seed picks the first responsive worker's data sample and runs one
// PartialFit against it to size coef_/intercept_. The master's own Eta0
// was forced to seedEta0 at construction so this call cannot meaningfully
// move the weights it initializes.
func (m *ParameterServerMaster) seed(ctx context.Context) error {
	if len(m.Topology.NodeNames) == 0 {
		return api.NewConfigError("parameter server requires at least one worker")
	}

	var lastErr error
	for _, name := range m.Topology.NodeNames {
		var sample api.FitRequestDataSampleOutput
		client := newWorkerClient(name, m.Topology.WorkerPort, m.Policy)
		if err := client.get(ctx, "/sgd/fit_request_data_sample", &sample); err != nil {
			lastErr = err
			continue
		}

		fitInput := sample.AsFitInput()
		return m.Learner.PartialFit(fitInput.X(), fitInput.Y())
	}
	return lastErr
}

// fitStepRound fans the master's current weights/bias out to every
// worker and collects each worker's gradient. Per-worker failures are
// logged and excluded from the mean rather than aborting the round; only
// when every worker in the round fails does this return an error
// (spec.md §4.6 S3, §7: "only if every worker fails in an iteration does
// the master abort the request").
func (m *ParameterServerMaster) fitStepRound(ctx context.Context) ([]float64, []float64, error) {
	n := len(m.Topology.NodeNames)
	outputs := make([]api.FitStepOutput, n)
	errs := make([]error, n)

	input := api.FitStepInput{
		Weights: m.Learner.Coef(),
		Bias:    m.Learner.Intercept(),
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client := newWorkerClient(m.Topology.NodeNames[i], m.Topology.WorkerPort, m.Policy)
			errs[i] = client.post(ctx, "/sgd/fit_step", &input, &outputs[i])
		}(i)
	}
	wg.Wait()

	succeeded := make([]api.FitStepOutput, 0, n)
	for i, err := range errs {
		if err != nil {
			metrics.WorkerFitStepFailuresTotal.WithLabelValues(m.Topology.NodeNames[i]).Inc()
			log.WithComponent("ps-master").Error().Err(err).Str("worker", m.Topology.NodeNames[i]).Msg("fit_step failed")
			continue
		}
		succeeded = append(succeeded, outputs[i])
	}

	return meanGradient(succeeded)
}

func meanGradient(outputs []api.FitStepOutput) ([]float64, []float64, error) {
	if len(outputs) == 0 {
		return nil, nil, api.NewWorkerError("no worker fit_step responses to average")
	}

	wDim := len(outputs[0].WeightsGradients)
	bDim := len(outputs[0].BiasGradient)
	meanW := make([]float64, wDim)
	meanB := make([]float64, bDim)

	for _, o := range outputs {
		for i := 0; i < wDim && i < len(o.WeightsGradients); i++ {
			meanW[i] += o.WeightsGradients[i]
		}
		for i := 0; i < bDim && i < len(o.BiasGradient); i++ {
			meanB[i] += o.BiasGradient[i]
		}
	}
	n := float64(len(outputs))
	for i := range meanW {
		meanW[i] /= n
	}
	for i := range meanB {
		meanB[i] /= n
	}
	return meanW, meanB, nil
}

// converged reports whether every component of the mean gradient has an
// absolute value at or below epsilon - the element-wise convergence test
// spec.md §8 adopts over the signed one-sided alternative.
func converged(gradW, gradB []float64, epsilon float64) bool {
	for _, g := range gradW {
		if math.Abs(g) > epsilon {
			return false
		}
	}
	for _, g := range gradB {
		if math.Abs(g) > epsilon {
			return false
		}
	}
	return true
}

// applyGradient updates the master's coefficients and intercept by
// subtracting the mean gradient, per spec.md §4.6's coef_ -= mean_gradient
// variant (no external learning-rate scaling - the workers' own Eta0
// already scaled each local step).
func (m *ParameterServerMaster) applyGradient(gradW, gradB []float64) {
	coef := m.Learner.Coef()
	for i := 0; i < len(coef) && i < len(gradW); i++ {
		coef[i] -= gradW[i]
	}
	m.Learner.SetCoef(coef)

	intercept := m.Learner.Intercept()
	for i := 0; i < len(intercept) && i < len(gradB); i++ {
		intercept[i] -= gradB[i]
	}
	m.Learner.SetIntercept(intercept)

	metrics.PSGradientNorm.Set(maxAbs(gradW, gradB))
}

func maxAbs(a, b []float64) float64 {
	var max float64
	for _, v := range a {
		if abs := math.Abs(v); abs > max {
			max = abs
		}
	}
	for _, v := range b {
		if abs := math.Abs(v); abs > max {
			max = abs
		}
	}
	return max
}
