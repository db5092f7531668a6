package master

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/chimerahq/chimera/pkg/api"
	"github.com/chimerahq/chimera/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startStubWorkersOnSharedPort binds len(muxes) stub workers to distinct
// loopback addresses that all share one port number, mirroring a real
// fleet where every worker listens on the same topology.WorkerPort but
// has its own IP on the bridge network. Needed wherever a test must give
// different workers different behavior, since newWorkerClient always
// dials NodeNames[i]:topology.WorkerPort.
func startStubWorkersOnSharedPort(t *testing.T, muxes ...*http.ServeMux) ([]string, int) {
	t.Helper()

	first, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := first.Addr().(*net.TCPAddr).Port

	listeners := make([]net.Listener, len(muxes))
	hosts := make([]string, len(muxes))
	listeners[0], hosts[0] = first, "127.0.0.1"
	for i := 1; i < len(muxes); i++ {
		addr := fmt.Sprintf("127.0.0.%d:%d", i+1, port)
		l, err := net.Listen("tcp", addr)
		require.NoError(t, err)
		listeners[i], hosts[i] = l, fmt.Sprintf("127.0.0.%d", i+1)
	}

	for i, mux := range muxes {
		srv := &http.Server{Handler: mux}
		go srv.Serve(listeners[i])
		t.Cleanup(func() { srv.Close() })
	}
	return hosts, port
}

// newStubSGDWorker serves a deterministic fit_request_data_sample and a
// fit_step that always reports a gradient already under epsilon, so
// Train() converges on its very first round without a second fan-out.
func newStubSGDWorkerConvergesImmediately(t *testing.T) (string, int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sgd/fit_request_data_sample", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, api.FitRequestDataSampleOutput{
			XTrainSampleColumns: []string{"x"},
			XTrainSampleRows:    [][]any{{1.0}, {2.0}},
			YTrainSampleColumns: []string{"y"},
			YTrainSampleRows:    [][]any{{2.0}, {4.0}},
		})
	})
	mux.HandleFunc("/sgd/fit_step", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, api.FitStepOutput{
			WeightsGradients: []float64{0},
			BiasGradient:     []float64{0},
		})
	})
	return startStubWorker(t, mux)
}

func TestParameterServerTrainConvergesImmediatelyRunsOneFanout(t *testing.T) {
	var fitStepCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/sgd/fit_request_data_sample", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, api.FitRequestDataSampleOutput{
			XTrainSampleColumns: []string{"x"},
			XTrainSampleRows:    [][]any{{1.0}, {2.0}},
			YTrainSampleColumns: []string{"y"},
			YTrainSampleRows:    [][]any{{2.0}, {4.0}},
		})
	})
	mux.HandleFunc("/sgd/fit_step", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fitStepCalls, 1)
		api.WriteJSON(w, http.StatusOK, api.FitStepOutput{
			WeightsGradients: []float64{0},
			BiasGradient:     []float64{0},
		})
	})
	host, port := startStubWorker(t, mux)

	topo := config.Topology{
		NodeNames:   []string{host},
		CPUShares:   []int{2},
		MappedPorts: []int{port},
		WorkerHost:  "0.0.0.0",
		WorkerPort:  port,
	}
	m, err := NewParameterServerMaster(topo, config.DefaultEndpointPolicy(), "regressor", 0.01, 5)
	require.NoError(t, err)

	require.NoError(t, m.Train(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&fitStepCalls))
	assert.True(t, m.converged)
}

func TestParameterServerTrainHitsMaxIterBoundWithExactlySixFanouts(t *testing.T) {
	var fitStepCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/sgd/fit_request_data_sample", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, api.FitRequestDataSampleOutput{
			XTrainSampleColumns: []string{"x"},
			XTrainSampleRows:    [][]any{{1.0}, {2.0}},
			YTrainSampleColumns: []string{"y"},
			YTrainSampleRows:    [][]any{{2.0}, {4.0}},
		})
	})
	mux.HandleFunc("/sgd/fit_step", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fitStepCalls, 1)
		// Never converges: gradient is always well above epsilon.
		api.WriteJSON(w, http.StatusOK, api.FitStepOutput{
			WeightsGradients: []float64{1.0},
			BiasGradient:     []float64{1.0},
		})
	})
	host, port := startStubWorker(t, mux)

	topo := config.Topology{
		NodeNames:   []string{host},
		CPUShares:   []int{2},
		MappedPorts: []int{port},
		WorkerHost:  "0.0.0.0",
		WorkerPort:  port,
	}
	m, err := NewParameterServerMaster(topo, config.DefaultEndpointPolicy(), "regressor", 0.01, 5)
	require.NoError(t, err)

	require.NoError(t, m.Train(context.Background()))
	assert.Equal(t, int32(6), atomic.LoadInt32(&fitStepCalls))
	assert.False(t, m.converged)
}

func TestParameterServerPredictUsesMasterLearner(t *testing.T) {
	host, port := newStubSGDWorkerConvergesImmediately(t)
	topo := config.Topology{
		NodeNames:   []string{host},
		CPUShares:   []int{2},
		MappedPorts: []int{port},
		WorkerHost:  "0.0.0.0",
		WorkerPort:  port,
	}
	m, err := NewParameterServerMaster(topo, config.DefaultEndpointPolicy(), "regressor", 0.01, 5)
	require.NoError(t, err)
	require.NoError(t, m.Train(context.Background()))

	server := httptest.NewServer(m.Mux())
	defer server.Close()

	body := `{"X_pred_columns":["x"],"X_pred_rows":[[3.0]]}`
	resp, err := http.Post(server.URL+"/ps/predict", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestParameterServerSeedOnlyRunsOnce(t *testing.T) {
	var sampleCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/sgd/fit_request_data_sample", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&sampleCalls, 1)
		api.WriteJSON(w, http.StatusOK, api.FitRequestDataSampleOutput{
			XTrainSampleColumns: []string{"x"},
			XTrainSampleRows:    [][]any{{1.0}, {2.0}},
			YTrainSampleColumns: []string{"y"},
			YTrainSampleRows:    [][]any{{2.0}, {4.0}},
		})
	})
	mux.HandleFunc("/sgd/fit_step", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, api.FitStepOutput{
			WeightsGradients: []float64{0},
			BiasGradient:     []float64{0},
		})
	})
	host, port := startStubWorker(t, mux)

	topo := config.Topology{
		NodeNames:   []string{host},
		CPUShares:   []int{2},
		MappedPorts: []int{port},
		WorkerHost:  "0.0.0.0",
		WorkerPort:  port,
	}
	m, err := NewParameterServerMaster(topo, config.DefaultEndpointPolicy(), "regressor", 0.01, 5)
	require.NoError(t, err)

	require.NoError(t, m.Train(context.Background()))
	require.NoError(t, m.Train(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&sampleCalls))
}

func TestMeanGradientAveragesAcrossWorkers(t *testing.T) {
	outputs := []api.FitStepOutput{
		{WeightsGradients: []float64{1, 2}, BiasGradient: []float64{1}},
		{WeightsGradients: []float64{3, 4}, BiasGradient: []float64{3}},
	}
	w, b, err := meanGradient(outputs)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, w)
	assert.Equal(t, []float64{2}, b)
}

func TestConvergedElementWiseAbsoluteTest(t *testing.T) {
	assert.True(t, converged([]float64{0.00001}, []float64{0.00001}, 1e-4))
	assert.False(t, converged([]float64{0.01}, []float64{0}, 1e-4))
	assert.False(t, converged([]float64{-1}, []float64{0}, 1e-4))
}

// TestParameterServerTrainAppliesExactlyMaxIterGradients is spec.md §8
// scenario E5: two workers return g_w=[0.1], g_b=[0.0] every round, with
// max_iter=3 and epsilon=1e-6 (so the gradient never converges). The
// final round fetched solely to evaluate the failing loop condition must
// be discarded, so exactly 3 gradients (not 4) get applied.
func TestParameterServerTrainAppliesExactlyMaxIterGradients(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sgd/fit_request_data_sample", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, api.FitRequestDataSampleOutput{
			XTrainSampleColumns: []string{"x"},
			XTrainSampleRows:    [][]any{{1.0}, {2.0}},
			YTrainSampleColumns: []string{"y"},
			YTrainSampleRows:    [][]any{{2.0}, {4.0}},
		})
	})
	mux.HandleFunc("/sgd/fit_step", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, api.FitStepOutput{
			WeightsGradients: []float64{0.1},
			BiasGradient:     []float64{0},
		})
	})
	hosts, port := startStubWorkersOnSharedPort(t, mux, mux)

	topo := config.Topology{
		NodeNames:   hosts,
		CPUShares:   []int{2, 2},
		MappedPorts: []int{port, port + 1},
		WorkerHost:  "0.0.0.0",
		WorkerPort:  port,
	}
	m, err := NewParameterServerMaster(topo, config.DefaultEndpointPolicy(), "regressor", 0.01, 3)
	require.NoError(t, err)
	m.Epsilon = 1e-6

	require.NoError(t, m.seed(context.Background()))
	seedCoef := append([]float64(nil), m.Learner.Coef()...)
	m.seeded = true // Train must not seed a second time on top of this one

	require.NoError(t, m.Train(context.Background()))
	assert.False(t, m.converged)

	coef := m.Learner.Coef()
	require.Len(t, coef, len(seedCoef))
	for i := range coef {
		assert.InDelta(t, seedCoef[i]-0.3, coef[i], 1e-9)
	}
}

// TestParameterServerFitStepRoundToleratesPartialWorkerFailure is
// property 10's counterpart for a multi-worker fleet: one worker always
// fails, the other always succeeds. The round must mean only the
// successful gradients and must not abort, since spec.md §7 aborts a
// fit_step round only when *every* worker fails.
func TestParameterServerFitStepRoundToleratesPartialWorkerFailure(t *testing.T) {
	failing := http.NewServeMux()
	failing.HandleFunc("/sgd/fit_step", func(w http.ResponseWriter, r *http.Request) {
		api.WriteError(w, api.NewWorkerError("boom"))
	})

	succeeding := http.NewServeMux()
	succeeding.HandleFunc("/sgd/fit_step", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, api.FitStepOutput{
			WeightsGradients: []float64{2.0},
			BiasGradient:     []float64{1.0},
		})
	})

	hosts, port := startStubWorkersOnSharedPort(t, failing, succeeding)

	topo := config.Topology{
		NodeNames:   hosts,
		CPUShares:   []int{2, 2},
		MappedPorts: []int{port, port + 1},
		WorkerHost:  "0.0.0.0",
		WorkerPort:  port,
	}
	m, err := NewParameterServerMaster(topo, config.DefaultEndpointPolicy(), "regressor", 0.01, 1)
	require.NoError(t, err)

	gradW, gradB, err := m.fitStepRound(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{2.0}, gradW)
	assert.Equal(t, []float64{1.0}, gradB)
}

// TestParameterServerAllWorkersFailingAbortsTheRound is property 10 ("if
// every /fit_step returns 500, the master's /fit returns 500") exercised
// against a genuinely multi-worker fleet, not the single-worker topology
// that cannot distinguish "abort on any failure" from "abort only when
// all fail."
func TestParameterServerAllWorkersFailingAbortsTheRound(t *testing.T) {
	failing := http.NewServeMux()
	failing.HandleFunc("/sgd/fit_request_data_sample", func(w http.ResponseWriter, r *http.Request) {
		api.WriteJSON(w, http.StatusOK, api.FitRequestDataSampleOutput{
			XTrainSampleColumns: []string{"x"},
			XTrainSampleRows:    [][]any{{1.0}, {2.0}},
			YTrainSampleColumns: []string{"y"},
			YTrainSampleRows:    [][]any{{2.0}, {4.0}},
		})
	})
	failing.HandleFunc("/sgd/fit_step", func(w http.ResponseWriter, r *http.Request) {
		api.WriteError(w, api.NewWorkerError("boom"))
	})
	hosts, port := startStubWorkersOnSharedPort(t, failing, failing)

	topo := config.Topology{
		NodeNames:   hosts,
		CPUShares:   []int{2, 2},
		MappedPorts: []int{port, port + 1},
		WorkerHost:  "0.0.0.0",
		WorkerPort:  port,
	}
	m, err := NewParameterServerMaster(topo, config.DefaultEndpointPolicy(), "regressor", 0.01, 3)
	require.NoError(t, err)

	err = m.Train(context.Background())
	assert.Error(t, err)
}
