package handlers

import "net/http"

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Is the server ready to provision sessions?
type HealthHandler struct {
	pair *PairHandler
}

// NewHealthHandler creates a new health handler.
//
// The pair parameter may be nil, in which case the readiness check returns
// unhealthy status.
func NewHealthHandler(pair *PairHandler) *HealthHandler {
	return &HealthHandler{pair: pair}
}

// Liveness handles GET /health - simple liveness probe.
//
// Returns 200 OK if the server process is running.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "pairgate",
	}))
}

// Readiness handles GET /health/ready - readiness probe.
//
// Returns 200 OK if the provisioning pipeline has its credential store and
// protocol dialer wired, 503 Service Unavailable otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.pair == nil || !h.pair.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("provisioning pipeline not initialized"))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "pairgate",
	}))
}
