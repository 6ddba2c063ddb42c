// Package health provides liveness and readiness checks over the agent's
// backends (Slack, the board, GitHub, the completion API).
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Status is the health of one dependency.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

const checkTimeout = 5 * time.Second

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) Status

// Checker runs named dependency checks and remembers the last results.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
	last   map[string]Status
	logger zerolog.Logger
}

// NewChecker creates an empty checker.
func NewChecker(logger zerolog.Logger) *Checker {
	return &Checker{
		checks: make(map[string]CheckFunc),
		last:   make(map[string]Status),
		logger: logger.With().Str("component", "health").Logger(),
	}
}

// Register adds a named check. Registering the same name twice replaces the
// earlier check.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// RunAll executes every check concurrently and returns the results.
func (c *Checker) RunAll(ctx context.Context) map[string]Status {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.RUnlock()

	results := make(map[string]Status, len(checks))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, fn := range checks {
		wg.Add(1)
		go func(name string, fn CheckFunc) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			status := fn(checkCtx)
			mu.Lock()
			results[name] = status
			mu.Unlock()
		}(name, fn)
	}
	wg.Wait()

	c.mu.Lock()
	c.last = results
	c.mu.Unlock()

	return results
}

// Snapshot returns the results of the most recent RunAll without probing.
func (c *Checker) Snapshot() map[string]Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Status, len(c.last))
	for name, status := range c.last {
		out[name] = status
	}
	return out
}

// IsReady reports whether no dependency is down. Degraded still counts as
// ready; the agent keeps answering with the capabilities it has.
func (c *Checker) IsReady(ctx context.Context) bool {
	for _, status := range c.RunAll(ctx) {
		if status == StatusDown {
			return false
		}
	}
	return true
}

// PingURL builds a check that GETs url and maps the response to a status.
// Transport failures are down; HTTP errors are degraded, the endpoint is at
// least reachable.
func PingURL(client *http.Client, url string) CheckFunc {
	if client == nil {
		client = &http.Client{Timeout: checkTimeout}
	}
	return func(ctx context.Context) Status {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return StatusDown
		}
		resp, err := client.Do(req)
		if err != nil {
			return StatusDown
		}
		resp.Body.Close()
		if resp.StatusCode >= 500 {
			return StatusDegraded
		}
		return StatusOK
	}
}

// LivenessHandler returns the /healthz handler. Liveness never consults the
// backends; a wedged dependency must not get the process restarted.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// ReadinessHandler returns the /readyz handler.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := c.RunAll(r.Context())

		ready := true
		for _, status := range results {
			if status == StatusDown {
				ready = false
				break
			}
		}

		resp := map[string]interface{}{"checks": results}
		w.Header().Set("Content-Type", "application/json")
		if ready {
			resp["status"] = "ready"
		} else {
			resp["status"] = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}
