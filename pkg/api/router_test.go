package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherx/pairgate/pkg/api/handlers"
	"github.com/cypherx/pairgate/pkg/session"
)

func TestRouter_HealthRoute(t *testing.T) {
	router := NewRouter(handlers.NewPairHandler(nil, nil, session.Config{}))

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RootRedirectsToHealth(t *testing.T) {
	router := NewRouter(handlers.NewPairHandler(nil, nil, session.Config{}))

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/health", w.Header().Get("Location"))
}

func TestRouter_PairValidationThroughMiddleware(t *testing.T) {
	router := NewRouter(handlers.NewPairHandler(nil, nil, session.Config{}))

	req := httptest.NewRequest("GET", "/pair", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body session.CodeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, session.MsgNumberRequired, body.Code)
}

func TestAPIConfig_Defaults(t *testing.T) {
	var cfg APIConfig
	cfg.applyDefaults()

	assert.Equal(t, 8080, cfg.Port)
	assert.NotZero(t, cfg.ReadTimeout)
	assert.NotZero(t, cfg.IdleTimeout)
	assert.NotZero(t, cfg.ShutdownTimeout)
	// No write timeout: provisioning requests stay open until answered.
	assert.Zero(t, cfg.WriteTimeout)
}
