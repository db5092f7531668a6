package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API metrics, shared by master and worker HTTP servers.
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chimera_api_requests_total",
			Help: "Total number of API requests by route and status",
		},
		[]string{"route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chimera_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Fit/predict counters, recorded by workers and masters alike.
	FitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chimera_fit_requests_total",
			Help: "Total number of fit requests by node role and outcome",
		},
		[]string{"role", "outcome"},
	)

	PredictRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chimera_predict_requests_total",
			Help: "Total number of predict requests by node role and outcome",
		},
		[]string{"role", "outcome"},
	)

	FitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chimera_fit_duration_seconds",
			Help:    "Time taken to fit a worker on its training partition",
			Buckets: prometheus.DefBuckets,
		},
	)

	PredictDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chimera_predict_duration_seconds",
			Help:    "Time taken to serve a predict request",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Ensemble master metrics.
	EnsembleFanoutDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chimera_ensemble_fanout_duration_seconds",
			Help:    "Time taken to fan a request out to every ensemble worker and aggregate the responses",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Parameter-server master metrics.
	PSIteration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chimera_ps_iteration",
			Help: "Current parameter-server training iteration",
		},
	)

	PSConverged = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chimera_ps_converged",
			Help: "Whether the parameter server has converged (1) or is still iterating (0)",
		},
	)

	PSGradientNorm = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chimera_ps_gradient_norm",
			Help: "Max absolute gradient component observed in the last fit step",
		},
	)

	PSFitStepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chimera_ps_fit_step_duration_seconds",
			Help:    "Time taken for one synchronous fit-step round across all SGD workers",
			Buckets: prometheus.DefBuckets,
		},
	)

	WorkerFitStepFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chimera_worker_fit_step_failures_total",
			Help: "Total number of fit-step calls to a worker that failed",
		},
		[]string{"worker"},
	)

	// Fleet orchestration metrics.
	ContainersRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chimera_containers_running",
			Help: "Number of worker containers currently running in the fleet",
		},
	)

	ContainerStartDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chimera_container_start_duration_seconds",
			Help:    "Time taken to build and start a single worker container",
			Buckets: prometheus.DefBuckets,
		},
	)

	WorkerHealthyTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chimera_worker_healthy",
			Help: "Whether a fleet worker last reported healthy (1) or not (0)",
		},
		[]string{"worker"},
	)
)

func init() {
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(FitRequestsTotal)
	prometheus.MustRegister(PredictRequestsTotal)
	prometheus.MustRegister(FitDuration)
	prometheus.MustRegister(PredictDuration)
	prometheus.MustRegister(EnsembleFanoutDuration)
	prometheus.MustRegister(PSIteration)
	prometheus.MustRegister(PSConverged)
	prometheus.MustRegister(PSGradientNorm)
	prometheus.MustRegister(PSFitStepDuration)
	prometheus.MustRegister(WorkerFitStepFailuresTotal)
	prometheus.MustRegister(ContainersRunning)
	prometheus.MustRegister(ContainerStartDuration)
	prometheus.MustRegister(WorkerHealthyTotal)
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer started at the current instant.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
