package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/maggyy666/Z-Alpha-Risk-Management-sub000/internal/scheduler"
)

// handleHealth handles health check requests. A failing history database
// reports 503 so orchestrators stop routing to the instance.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "risk-engine",
	}

	status := http.StatusOK
	if err := s.container.HistoryDB.QuickCheck(r.Context()); err != nil {
		s.log.Warn().Err(err).Msg("History database unreachable")
		response["status"] = "unhealthy"
		response["error"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, response)
}

// handleSystemStatus handles GET /api/system/status
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := s.getSystemStats()
	data := map[string]interface{}{
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"host": map[string]interface{}{
			"cpu_percent": cpuPercent,
			"ram_percent": ramPercent,
		},
		"cache": map[string]interface{}{
			"entries":     s.container.Cache.Len(),
			"ttl_seconds": int(s.container.Cache.TTL().Seconds()),
		},
	}
	if s.cfg != nil {
		data["config"] = map[string]interface{}{
			"reference_symbol": s.cfg.ReferenceSymbol,
			"vol_model":        s.cfg.VolModel,
			"confidence":       s.cfg.Confidence,
			"factor_window":    s.cfg.FactorWindow,
			"regime_window":    s.cfg.RegimeWindow,
			"forecast_workers": s.container.Forecaster.Concurrency(),
		}
	}
	if s.container.StressEngine != nil {
		names := make([]string, 0)
		for _, sc := range s.container.StressEngine.Scenarios() {
			names = append(names, sc.Name)
		}
		data["stress_scenarios"] = names
	}
	if stats, err := s.container.HistoryDB.GetStats(r.Context()); err == nil {
		data["history_db"] = stats
	} else {
		s.log.Warn().Err(err).Msg("Failed to read history database stats")
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// getSystemStats samples host CPU over 100ms and reads RAM usage. Failures
// report zero rather than failing the status call.
func (s *Server) getSystemStats() (float64, float64) {
	cpuAvg := 0.0
	if percents, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(percents) > 0 {
		cpuAvg = percents[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuAvg, 0
	}
	return cpuAvg, memStat.UsedPercent
}

// handleRunJob handles POST /api/system/jobs/{name}
func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var job scheduler.Job
	if s.jobs != nil {
		switch name {
		case "cache_sweep":
			job = s.jobs.CacheSweep
		case "health_check":
			job = s.jobs.HealthCheck
		}
	}
	if job == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "unknown job " + name})
		return
	}

	if err := s.container.Scheduler.RunNow(job); err != nil {
		s.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		s.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"job": name, "status": "completed"},
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
