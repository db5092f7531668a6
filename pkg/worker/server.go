package worker

import (
	"net/http"

	"github.com/chimerahq/chimera/pkg/metrics"
)

// NewMux creates an http.ServeMux pre-registered with the ambient
// /healthz and /metrics endpoints every node in the fleet carries
// regardless of its domain role (spec.md §6.1).
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/healthz", metrics.HealthHandler())
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
