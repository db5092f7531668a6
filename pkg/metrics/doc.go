/*
Package metrics provides Prometheus metrics, a /healthz handler, and a
background fleet-health poller shared by chimera masters and workers.

# Metrics

Counters and histograms are registered at package init time and exposed via
Handler() on /metrics. They cover the three places load actually flows
through a running fleet:

  - API: request count and latency by route. These are registered and
    exposed, but no handler in this repository records them yet.
  - Fit/predict: request outcome counters and duration histograms, recorded
    by worker and master handlers around the model call.
  - Parameter server: current iteration, convergence flag, last gradient
    norm, and per-round fit-step duration, recorded by the PS master's
    training loop.

# Health

HealthChecker aggregates named ComponentHealth entries (e.g. "orchestrator",
"model") into a single HealthStatus served by HealthHandler at /healthz.
A process with no unhealthy components reports "healthy"; any unhealthy
component flips the aggregate and the handler's status code.

# Fleet collection

FleetCollector is the one piece of the fleet that isn't a handler: a
background ticker that polls every worker's /healthz and reflects the
results into chimera_worker_healthy and chimera_containers_running, so a
master's /metrics endpoint stays current on fleet state between requests
rather than only on demand.
*/
package metrics
