package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFleetCollector_MarksHealthyAndUnhealthy(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unhealthy.Close()

	c := NewFleetCollector(map[string]string{
		"worker-0": healthy.URL,
		"worker-1": unhealthy.URL,
	}, time.Hour)

	c.collect()

	if got := testutil.ToFloat64(WorkerHealthyTotal.WithLabelValues("worker-0")); got != 1 {
		t.Errorf("worker-0 healthy gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(WorkerHealthyTotal.WithLabelValues("worker-1")); got != 0 {
		t.Errorf("worker-1 healthy gauge = %v, want 0", got)
	}
}

func TestSplitWorkerPair(t *testing.T) {
	cases := []struct {
		pair     string
		wantName string
		wantURL  string
	}{
		{"worker-0=http://172.28.0.2:9000", "worker-0", "http://172.28.0.2:9000"},
		{"noequals", "noequals", ""},
	}
	for _, tc := range cases {
		name, url := splitWorkerPair(tc.pair)
		if name != tc.wantName || url != tc.wantURL {
			t.Errorf("splitWorkerPair(%q) = (%q, %q), want (%q, %q)", tc.pair, name, url, tc.wantName, tc.wantURL)
		}
	}
}
