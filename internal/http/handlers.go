package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"complaints/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady loads a snapshot to verify the data source is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.reader == nil {
		checks["data_source"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if snap, err := s.reader.ReadSnapshot(ctx); err != nil {
		log.FromContext(ctx).Warn("Readiness check failed", log.FieldError, err, log.FieldBackend, s.backend)
		checks["data_source"] = map[string]interface{}{
			"status":  "failed",
			"backend": s.backend,
			"error":   err.Error(),
		}
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["data_source"] = map[string]interface{}{
			"status":      "ok",
			"backend":     s.backend,
			"snapshot_id": snap.ID,
			"records":     snap.Len(),
		}
	}

	checks["refresh"] = "disabled"
	if s.refresher != nil {
		checks["refresh"] = "amqp"
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
