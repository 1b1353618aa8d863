// health.go — health endpoints для Kubernetes probes.
package handlers

import (
	"net/http"

	"github.com/bigkaa/rentstore/internal/config"
)

// HealthLive обрабатывает GET /health/live.
// Liveness: процесс жив и отвечает.
func (h *APIHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

// HealthReady обрабатывает GET /health/ready.
// Readiness: все зависимости доступны.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	for _, checker := range h.ready {
		if err := checker.CheckReady(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}
