// Package health provides Kubernetes-style liveness and readiness probes.
//
// Registered checks run periodically from a single background goroutine. A
// check flips to unhealthy only after three consecutive failures, so a lone
// timeout does not bounce the pod.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

const failureThreshold = 3

type kind int

const (
	liveness kind = iota
	readiness
)

// probe holds one check plus its rolling state. State is guarded by the
// owning Health's mutex; the runner and the HTTP handlers share it.
type probe struct {
	name    string
	kind    kind
	timeout time.Duration
	check   CheckFunc

	fails   int
	healthy bool
	lastErr error
}

// Health manages the probe set for a service.
type Health struct {
	mu     sync.Mutex
	probes []*probe
	ready  bool
	cancel context.CancelFunc
}

// New creates a Health in the not-ready state; call SetReady(true) once
// initialization completes.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that decides whether the process is
// alive at all, such as a goroutine count ceiling.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.add(&probe{name: name, kind: liveness, timeout: timeout, check: check, healthy: true})
}

// AddReadinessCheck registers a check that decides whether the service may
// receive traffic, such as database connectivity.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.add(&probe{name: name, kind: readiness, timeout: timeout, check: check, healthy: true})
}

func (h *Health) add(p *probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes = append(h.probes, p)
}

// Start launches the background runner executing every probe at the given
// interval. Register all checks before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		h.runAll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.runAll(ctx)
			}
		}
	}()
}

func (h *Health) runAll(ctx context.Context) {
	h.mu.Lock()
	probes := make([]*probe, len(h.probes))
	copy(probes, h.probes)
	h.mu.Unlock()

	for _, p := range probes {
		checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.check(checkCtx)
		cancel()

		h.mu.Lock()
		p.lastErr = err
		if err != nil {
			p.fails++
			if p.fails >= failureThreshold {
				p.healthy = false
			}
		} else {
			p.fails = 0
			p.healthy = true
		}
		h.mu.Unlock()
	}
}

// Stop cancels the background runner. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate: true after initialization,
// false at the start of graceful shutdown to drain traffic.
func (h *Health) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady reports whether the service is marked ready and every readiness
// probe is passing.
func (h *Health) IsReady() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.ready {
		return false
	}
	for _, p := range h.probes {
		if p.kind == readiness && !p.healthy {
			return false
		}
	}
	return true
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while every liveness probe passes,
// 503 with failure details otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, h.failures(liveness))
}

// ReadyEndpoint serves /readyz: 200 only when the service is marked ready
// and every readiness probe passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.failures(readiness)

	h.mu.Lock()
	ready := h.ready
	h.mu.Unlock()
	if !ready {
		failures["_readiness"] = "service is not ready"
	}

	writeStatus(w, failures)
}

func (h *Health) failures(k kind) map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]string)
	for _, p := range h.probes {
		if p.kind != k || p.healthy {
			continue
		}
		if p.lastErr != nil {
			out[p.name] = p.lastErr.Error()
		} else {
			out[p.name] = "check is unhealthy"
		}
	}
	return out
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
