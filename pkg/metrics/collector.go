package metrics

import (
	"net/http"
	"sync"
	"time"
)

// FleetCollector periodically polls every worker's /healthz endpoint and
// reflects the results into the chimera_worker_healthy and
// chimera_containers_running gauges. It never touches model state; it only
// observes what the orchestrator already started.
type FleetCollector struct {
	workers []string // "name=baseURL" pairs, e.g. "worker-0=http://172.28.0.2:9000"
	client  *http.Client
	period  time.Duration
	stopCh  chan struct{}
}

// NewFleetCollector creates a collector for the given worker base URLs,
// keyed by worker name.
func NewFleetCollector(workers map[string]string, period time.Duration) *FleetCollector {
	pairs := make([]string, 0, len(workers))
	for name, url := range workers {
		pairs = append(pairs, name+"="+url)
	}
	if period <= 0 {
		period = 15 * time.Second
	}
	return &FleetCollector{
		workers: pairs,
		client:  &http.Client{Timeout: 5 * time.Second},
		period:  period,
		stopCh:  make(chan struct{}),
	}
}

// Start begins polling in the background until Stop is called.
func (c *FleetCollector) Start() {
	ticker := time.NewTicker(c.period)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the background poll loop.
func (c *FleetCollector) Stop() {
	close(c.stopCh)
}

func (c *FleetCollector) collect() {
	var wg sync.WaitGroup
	var mu sync.Mutex
	running := 0

	for _, pair := range c.workers {
		name, baseURL := splitWorkerPair(pair)
		wg.Add(1)
		go func(name, baseURL string) {
			defer wg.Done()
			healthy := c.probe(baseURL)
			if healthy {
				WorkerHealthyTotal.WithLabelValues(name).Set(1)
				mu.Lock()
				running++
				mu.Unlock()
			} else {
				WorkerHealthyTotal.WithLabelValues(name).Set(0)
			}
		}(name, baseURL)
	}

	wg.Wait()
	ContainersRunning.Set(float64(running))
}

func (c *FleetCollector) probe(baseURL string) bool {
	resp, err := c.client.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func splitWorkerPair(pair string) (name, url string) {
	for i := 0; i < len(pair); i++ {
		if pair[i] == '=' {
			return pair[:i], pair[i+1:]
		}
	}
	return pair, ""
}
