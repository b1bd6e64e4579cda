package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/portfolio-manager/internal/database"
	"github.com/aristath/portfolio-manager/internal/scheduler"
)

const healthCheckTimeout = 5 * time.Second

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Databases map[string]string `json:"databases"`
	Status    string            `json:"status"` // "healthy" or "unhealthy"
	Service   string            `json:"service"`
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Databases     map[string]*database.Stats `json:"databases"`
	Status        string                     `json:"status"`
	Uptime        string                     `json:"uptime"`
	Jobs          []string                   `json:"jobs"`
	JobRuns       []scheduler.JobStatus      `json:"job_runs"`
	CPUPercent    float64                    `json:"cpu_percent"`
	MemoryPercent float64                    `json:"memory_percent"`
	Goroutines    int                        `json:"goroutines"`
}

// handleHealth checks every database and reports 503 when one fails
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Service:   "portfolio-manager",
		Databases: make(map[string]string),
	}
	for name, db := range s.container.Databases() {
		if err := db.HealthCheck(ctx); err != nil {
			s.log.Error().Err(err).Str("database", name).Msg("Database health check failed")
			response.Databases[name] = err.Error()
			response.Status = "unhealthy"
			continue
		}
		response.Databases[name] = "ok"
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, response)
}

// handleSystemStatus reports host load, database sizes and scheduled jobs
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := s.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		Uptime:        time.Since(s.startupTime).Round(time.Second).String(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		Databases:     make(map[string]*database.Stats),
		Jobs:          []string{},
		JobRuns:       []scheduler.JobStatus{},
	}

	for name, db := range s.container.Databases() {
		stats, err := db.Stats(r.Context())
		if err != nil {
			s.log.Warn().Err(err).Str("database", name).Msg("Failed to get database stats")
			response.Status = "degraded"
			continue
		}
		response.Databases[name] = stats
	}

	if s.container.Scheduler != nil {
		response.Jobs = s.container.Scheduler.Jobs()
		sort.Strings(response.Jobs)
		response.JobRuns = s.container.Scheduler.Status()
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleRunJob runs a scheduled job immediately and reports its outcome
func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if s.container.Scheduler == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "scheduler not running"})
		return
	}

	err := s.container.Scheduler.Trigger(name)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job: " + name})
	case err != nil:
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		s.writeJSON(w, http.StatusOK, map[string]string{"job": name, "status": "completed"})
	}
}

// getSystemStats samples CPU over 100ms and reads memory usage
func (s *Server) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
