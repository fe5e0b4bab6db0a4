package http

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDegraded  = "degraded"
)

// HealthChecker defines the interface for health check dependencies
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// CollabStats exposes the live state of the editing coordinator.
type CollabStats interface {
	Count() int
	GroupCount() int
}

// QueueStats exposes the backlog of the ingress pipeline.
type QueueStats interface {
	Pending() int
	Accepting() bool
}

// HealthHandler serves the liveness, readiness and detailed health probes.
type HealthHandler struct {
	db        HealthChecker
	sessions  CollabStats
	queue     QueueStats
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db HealthChecker, sessions CollabStats, queue QueueStats, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		sessions:  sessions,
		queue:     queue,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Version   string           `json:"version,omitempty"`
	Uptime    string           `json:"uptime,omitempty"`
	Checks    map[string]Check `json:"checks,omitempty"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// EditingStats summarizes the collaborative editing load.
type EditingStats struct {
	Sessions      int  `json:"sessions"`
	Pictures      int  `json:"pictures"`
	PendingEvents int  `json:"pending_events"`
	Accepting     bool `json:"accepting"`
}

// MemoryStats is the subset of runtime memory statistics worth exposing.
type MemoryStats struct {
	Alloc      uint64 `json:"alloc_bytes"`
	TotalAlloc uint64 `json:"total_alloc_bytes"`
	Sys        uint64 `json:"sys_bytes"`
	NumGC      uint32 `json:"num_gc"`
}

// DetailedHealthResponse is served by /health.
type DetailedHealthResponse struct {
	HealthResponse
	Memory     MemoryStats  `json:"memory"`
	Goroutines int          `json:"goroutines"`
	Editing    EditingStats `json:"editing"`
}

// HandleLiveness answers as long as the process serves HTTP.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    statusHealthy,
		Timestamp: timestamp(),
	})
}

// HandleReadiness fails when the database is unreachable or when the ingress
// pipeline no longer accepts events, so a draining instance stops receiving
// new editing connections.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	resp := h.evaluate(r.Context(), statusUnhealthy)

	statusCode := http.StatusOK
	if resp.Status != statusHealthy {
		statusCode = http.StatusServiceUnavailable
	}
	WriteJSON(w, statusCode, resp)
}

// HandleHealth reports the checks together with runtime and editing statistics.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := DetailedHealthResponse{
		HealthResponse: h.evaluate(r.Context(), statusDegraded),
		Memory: MemoryStats{
			Alloc:      mem.Alloc,
			TotalAlloc: mem.TotalAlloc,
			Sys:        mem.Sys,
			NumGC:      mem.NumGC,
		},
		Goroutines: runtime.NumGoroutine(),
		Editing:    h.editingStats(),
	}

	statusCode := http.StatusOK
	if resp.Status != statusHealthy {
		statusCode = http.StatusServiceUnavailable
	}
	WriteJSON(w, statusCode, resp)
}

// evaluate runs the checks; failureStatus is reported when any of them fails.
func (h *HealthHandler) evaluate(ctx context.Context, failureStatus string) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	checks := map[string]Check{
		"database": h.checkDatabase(ctx),
		"ingress":  h.checkIngress(),
	}

	status := statusHealthy
	for _, c := range checks {
		if c.Status != statusHealthy {
			status = failureStatus
		}
	}

	return HealthResponse{
		Status:    status,
		Timestamp: timestamp(),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    checks,
	}
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	if h.db == nil {
		return Check{Status: statusUnhealthy, Message: "Database not configured"}
	}

	start := time.Now()
	err := h.db.Ping(ctx)
	latency := time.Since(start).String()

	if err != nil {
		return Check{Status: statusUnhealthy, Message: err.Error(), Latency: latency}
	}
	return Check{Status: statusHealthy, Latency: latency}
}

func (h *HealthHandler) checkIngress() Check {
	if h.queue == nil || h.queue.Accepting() {
		return Check{Status: statusHealthy}
	}
	return Check{Status: statusUnhealthy, Message: "event pipeline is shutting down"}
}

func (h *HealthHandler) editingStats() EditingStats {
	stats := EditingStats{Accepting: true}
	if h.sessions != nil {
		stats.Sessions = h.sessions.Count()
		stats.Pictures = h.sessions.GroupCount()
	}
	if h.queue != nil {
		stats.PendingEvents = h.queue.Pending()
		stats.Accepting = h.queue.Accepting()
	}
	return stats
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}
