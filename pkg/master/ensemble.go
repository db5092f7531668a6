package master

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/chimerahq/chimera/pkg/api"
	"github.com/chimerahq/chimera/pkg/config"
	"github.com/chimerahq/chimera/pkg/log"
	"github.com/chimerahq/chimera/pkg/metrics"
	"github.com/google/uuid"
)

// EnsembleMaster fans /ensemble/fit and /ensemble/predict out to every
// worker in the fleet and aggregates their responses, per spec.md §4.3.
// Fit forwards the request's FitInput body to every worker's /node/fit;
// each worker trains on its own local CSV files (bootstrapping them if so
// configured) and does not read that body. Predict mean-aggregates per-row
// predictions across workers.
type EnsembleMaster struct {
	Topology config.Topology
	Policy   config.EndpointPolicy
}

// NewEnsembleMaster constructs an EnsembleMaster over the given topology.
func NewEnsembleMaster(topology config.Topology, policy config.EndpointPolicy) *EnsembleMaster {
	return &EnsembleMaster{Topology: topology, Policy: policy}
}

// Mux registers this master's routes on a fresh http.ServeMux.
func (m *EnsembleMaster) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/healthz", metrics.HealthHandler())
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ensemble/fit", m.handleFit)
	mux.HandleFunc("/ensemble/predict", m.handlePredict)
	return mux
}

// Serve blocks serving this master's HTTP surface at addr.
func (m *EnsembleMaster) Serve(ctx context.Context, addr string) error {
	log.WithComponent("ensemble-master").Info().Str("addr", addr).Msg("serving ensemble master")

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

func (m *EnsembleMaster) handleFit(rw http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.EnsembleFanoutDuration)

	var input api.FitInput
	if err := api.DecodeJSON(r, &input); err != nil {
		api.WriteError(rw, err)
		return
	}
	input.Sorted = false
	input.Normalize()
	if err := input.Validate(); err != nil {
		api.WriteError(rw, err)
		return
	}

	requestID := uuid.NewString()
	logger := log.WithRequestID(requestID)

	if err := m.fanOut(r.Context(), func(ctx context.Context, c *httpClient) error {
		return c.post(ctx, "/node/fit", &input, nil)
	}); err != nil {
		metrics.FitRequestsTotal.WithLabelValues("ensemble-master", "error").Inc()
		logger.Error().Err(err).Msg("ensemble fit failed")
		api.WriteError(rw, err)
		return
	}

	metrics.FitRequestsTotal.WithLabelValues("ensemble-master", "ok").Inc()
	api.WriteJSON(rw, http.StatusOK, api.OK())
}

func (m *EnsembleMaster) handlePredict(rw http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.EnsembleFanoutDuration)

	var input api.PredictInput
	if err := api.DecodeJSON(r, &input); err != nil {
		api.WriteError(rw, err)
		return
	}
	input.Normalize()

	n := len(m.Topology.NodeNames)
	results := make([]api.PredictOutput, n)

	err := m.fanOutIndexed(r.Context(), func(ctx context.Context, i int, c *httpClient) error {
		return c.post(ctx, "/node/predict", &input, &results[i])
	})
	if err != nil {
		metrics.PredictRequestsTotal.WithLabelValues("ensemble-master", "error").Inc()
		log.WithComponent("ensemble-master").Error().Err(err).Msg("ensemble predict failed")
		api.WriteError(rw, err)
		return
	}

	aggregated, err := aggregate(results)
	if err != nil {
		metrics.PredictRequestsTotal.WithLabelValues("ensemble-master", "error").Inc()
		api.WriteError(rw, err)
		return
	}

	metrics.PredictRequestsTotal.WithLabelValues("ensemble-master", "ok").Inc()
	api.WriteJSON(rw, http.StatusOK, api.PredictOutput{YPredRows: aggregated})
}

// aggregate mean-aggregates each worker's per-row prediction. Regressor
// rows are float64; classifier rows are []float64 class-probability
// vectors. The first worker's row shape governs what shape is expected
// from the rest.
func aggregate(results []api.PredictOutput) ([]any, error) {
	if len(results) == 0 {
		return nil, api.NewWorkerError("no worker responses to aggregate")
	}
	rows := len(results[0].YPredRows)
	for _, r := range results {
		if len(r.YPredRows) != rows {
			return nil, api.NewWorkerError("workers returned mismatched prediction row counts")
		}
	}

	out := make([]any, rows)
	for row := 0; row < rows; row++ {
		switch results[0].YPredRows[row].(type) {
		case []any:
			out[row] = aggregateProbaRow(results, row)
		default:
			out[row] = aggregateScalarRow(results, row)
		}
	}
	return out, nil
}

func aggregateScalarRow(results []api.PredictOutput, row int) float64 {
	var sum float64
	for _, r := range results {
		sum += toFloat(r.YPredRows[row])
	}
	return sum / float64(len(results))
}

func aggregateProbaRow(results []api.PredictOutput, row int) []float64 {
	first, _ := results[0].YPredRows[row].([]any)
	classes := len(first)
	sums := make([]float64, classes)
	for _, r := range results {
		probs, _ := r.YPredRows[row].([]any)
		for k := 0; k < classes && k < len(probs); k++ {
			sums[k] += toFloat(probs[k])
		}
	}
	for k := range sums {
		sums[k] /= float64(len(results))
	}
	return sums
}

func toFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

// fanOut runs call against every worker concurrently, returning the first
// error encountered (if any), per spec.md §4.3's first-failure-wins
// semantics.
func (m *EnsembleMaster) fanOut(ctx context.Context, call func(context.Context, *httpClient) error) error {
	return m.fanOutIndexed(ctx, func(ctx context.Context, _ int, c *httpClient) error {
		return call(ctx, c)
	})
}

func (m *EnsembleMaster) fanOutIndexed(ctx context.Context, call func(context.Context, int, *httpClient) error) error {
	n := len(m.Topology.NodeNames)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client := newWorkerClient(m.Topology.NodeNames[i], m.Topology.WorkerPort, m.Policy)
			errs[i] = call(ctx, i, client)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return api.NewWorkerError(fmt.Sprintf("worker %s: %v", m.Topology.NodeNames[i], err))
		}
	}
	return nil
}
