package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// writeJSON writes a bare JSON body with the given status code. The
// provisioning endpoints use this directly: their bodies are a fixed
// contract and carry no envelope.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error","error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// envelope mirrors api.Response for the health endpoints, duplicated here
// to keep handlers free of an import cycle with the api package.
type envelope struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

func healthyResponse(data interface{}) envelope {
	return envelope{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func unhealthyResponse(errMsg string) envelope {
	return envelope{
		Status:    "unhealthy",
		Timestamp: time.Now().UTC(),
		Error:     errMsg,
	}
}
