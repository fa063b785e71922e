package http

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/baccarun/internal/persistence"
	"github.com/sawpanic/baccarun/internal/session"
)

// Version is reported by /health and the CLI
var Version = "dev"

// HealthHandler provides system health status endpoint
type HealthHandler struct {
	manager   *session.Manager
	hub       *Hub
	startTime time.Time
	version   string

	mu     sync.RWMutex
	checks map[string]persistence.RepositoryHealth
}

// NewHealthHandler creates a new health handler; hub may be nil
func NewHealthHandler(manager *session.Manager, hub *Hub, version string) *HealthHandler {
	return &HealthHandler{
		manager:   manager,
		hub:       hub,
		startTime: time.Now(),
		version:   version,
		checks:    map[string]persistence.RepositoryHealth{},
	}
}

// AddCheck registers a dependency probed on every request
func (h *HealthHandler) AddCheck(name string, check persistence.RepositoryHealth) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy", "degraded"
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
	Version   string    `json:"version"`

	System    SystemInfo `json:"system"`
	Sessions  int        `json:"sessions"`
	WSClients int        `json:"ws_clients"`

	Checks map[string]CheckResult `json:"checks"`
}

// SystemInfo provides system-level information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	MemAlloc      uint64 `json:"mem_alloc_bytes"`
	MemSys        uint64 `json:"mem_sys_bytes"`
	NumGC         uint32 `json:"num_gc"`
}

// CheckResult represents individual health check results
type CheckResult struct {
	Status    string        `json:"status"` // "pass", "warn", "fail"
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// ServeHTTP implements the health check endpoint
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := h.gatherHealthInfo(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	// dependency failures degrade the service but play continues
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode health response")
	}
}

func (h *HealthHandler) gatherHealthInfo(ctx context.Context) HealthResponse {
	response := HealthResponse{
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		System:    h.getSystemInfo(),
		Checks:    make(map[string]CheckResult),
	}
	if h.manager != nil {
		response.Sessions = len(h.manager.IDs())
	}
	if h.hub != nil {
		response.WSClients = h.hub.ClientCount()
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	for _, name := range names {
		h.mu.RLock()
		check := h.checks[name]
		h.mu.RUnlock()

		hc := check.Health(ctx)
		result := CheckResult{
			Status:    "pass",
			Message:   "ok",
			Duration:  time.Duration(hc.ResponseTimeMS) * time.Millisecond,
			Timestamp: hc.LastCheck,
		}
		if !hc.Healthy {
			result.Status = "warn"
			result.Message = strings.Join(hc.Errors, "; ")
		}
		response.Checks[name] = result
	}

	response.Status = overallStatus(response.Checks)
	return response
}

func (h *HealthHandler) getSystemInfo() SystemInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		MemAlloc:      memStats.Alloc,
		MemSys:        memStats.Sys,
		NumGC:         memStats.NumGC,
	}
}

func overallStatus(checks map[string]CheckResult) string {
	for _, c := range checks {
		if c.Status != "pass" {
			return "degraded"
		}
	}
	return "healthy"
}
