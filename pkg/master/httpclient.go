package master

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/chimerahq/chimera/pkg/api"
	"github.com/chimerahq/chimera/pkg/config"
)

// httpClient drives one worker's HTTP surface, applying an
// EndpointPolicy's retry/timeout budget to every call. Retries are plain
// re-sends with no backoff, matching the bounded, synchronous nature of a
// BSP round: a worker that is merely slow should still be retried within
// the round rather than failing it outright.
type httpClient struct {
	base   string
	policy config.EndpointPolicy
	client *http.Client
}

// newWorkerClient builds an httpClient addressing host:port.
func newWorkerClient(host string, port int, policy config.EndpointPolicy) *httpClient {
	return &httpClient{
		base:   fmt.Sprintf("http://%s:%d", host, port),
		policy: policy,
		client: &http.Client{Timeout: policy.Timeout},
	}
}

// get performs a GET against path, decoding a 200 response body into out.
// A non-200 response is rewrapped as a WorkerError carrying the worker's
// own error envelope message.
func (c *httpClient) get(ctx context.Context, path string, out any) error {
	return c.retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
		if err != nil {
			return err
		}
		return c.do(req, out)
	})
}

// post performs a POST of body (JSON-encoded) against path, decoding a 200
// response body into out.
func (c *httpClient) post(ctx context.Context, path string, body, out any) error {
	return c.retry(func() error {
		var buf bytes.Buffer
		if body != nil {
			if err := json.NewEncoder(&buf).Encode(body); err != nil {
				return err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, &buf)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		return c.do(req, out)
	})
}

func (c *httpClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var envelope api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		if envelope.Message == "" {
			envelope.Message = fmt.Sprintf("worker %s returned status %d", c.base, resp.StatusCode)
		}
		return api.NewWorkerError(envelope.Message)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// retry runs call up to policy.MaxRetries+1 times, returning the last
// error if every attempt fails.
func (c *httpClient) retry(call func() error) error {
	var lastErr error
	attempts := c.policy.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if err := call(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
