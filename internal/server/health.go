package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusUnconfigured = "no backend"
)

// HealthChecker serves the liveness and readiness endpoints.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time
	version       string
}

// NewHealthChecker starts in the ready state. sc may be nil.
func NewHealthChecker(sc *ServerContext, version string) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
		version:       version,
	}
	h.ready.Store(true)
	return h
}

func (h *HealthChecker) SetReady(ready bool) { h.ready.Store(ready) }
func (h *HealthChecker) IsReady() bool       { return h.ready.Load() }

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type DetailedHealthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Version  string `json:"version,omitempty"`
	Backend  string `json:"backend,omitempty"`
	ReadOnly bool   `json:"read_only"`
}

// checks reports each readiness condition and whether all passed.
func (h *HealthChecker) checks() (map[string]string, bool) {
	out := map[string]string{"ready": healthStatusOK, "shutdown": healthStatusOK, "backend": healthStatusOK}
	ok := true
	if !h.IsReady() {
		out["ready"] = healthStatusNotReady
		ok = false
	}
	sc := h.serverContext
	if sc != nil && sc.IsShutdown() {
		out["shutdown"] = healthStatusShuttingDown
		ok = false
	}
	if sc == nil || sc.BackendName() == "" {
		out["backend"] = healthStatusUnconfigured
		ok = false
	}
	return out, ok
}

// LivenessHandler answers 200 while the process runs.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler answers 503 until a backend is configured, and again
// once shutdown begins.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks, ok := h.checks()
		resp := HealthResponse{Status: healthStatusOK, Checks: checks}
		code := http.StatusOK
		if !ok {
			resp.Status = healthStatusNotReady
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	})
}

func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := DetailedHealthResponse{
			Status:  healthStatusOK,
			Uptime:  time.Since(h.startTime).Truncate(time.Second).String(),
			Version: h.version,
		}
		if sc := h.serverContext; sc != nil {
			resp.Backend = sc.BackendName()
			resp.ReadOnly = sc.ReadOnly()
		}
		code := http.StatusOK
		switch {
		case !h.IsReady():
			resp.Status = healthStatusNotReady
			code = http.StatusServiceUnavailable
		case h.serverContext != nil && h.serverContext.IsShutdown():
			resp.Status = healthStatusShuttingDown
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	})
}

func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
