package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credfs "github.com/cypherx/pairgate/pkg/credstore/fs"
	"github.com/cypherx/pairgate/pkg/protocol/loopback"
	"github.com/cypherx/pairgate/pkg/session"
)

func decodeCode(t *testing.T, w *httptest.ResponseRecorder) session.CodeResponse {
	t.Helper()
	var body session.CodeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestPair_MissingNumber(t *testing.T) {
	// Validation must answer before the store or dialer are touched; a
	// handler with neither wired proves it.
	handler := NewPairHandler(nil, nil, session.Config{})

	req := httptest.NewRequest("GET", "/pair", nil)
	w := httptest.NewRecorder()

	handler.Pair(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, session.MsgNumberRequired, decodeCode(t, w).Code)
}

func TestPair_InvalidNumber(t *testing.T) {
	handler := NewPairHandler(nil, nil, session.Config{})

	req := httptest.NewRequest("GET", "/pair?number=not-a-number", nil)
	w := httptest.NewRecorder()

	handler.Pair(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, session.MsgInvalidNumber, decodeCode(t, w).Code)
}

func TestPair_IssuesPairingCode(t *testing.T) {
	store, err := credfs.NewStore(t.TempDir())
	require.NoError(t, err)

	dialer := loopback.NewDialer(loopback.Config{
		PairingCode: "ABCDEFGH",
		OpenDelay:   time.Millisecond,
		AcceptDelay: 5 * time.Millisecond,
		AutoPair:    true,
	})

	handler := NewPairHandler(store, dialer, session.Config{
		PairSettleDelay: time.Millisecond,
		CleanupDelay:    time.Millisecond,
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      2 * time.Millisecond,
		MaxReconnects:   3,
	})

	req := httptest.NewRequest("GET", "/pair?number=%2B14155550100", nil)
	w := httptest.NewRecorder()

	handler.Pair(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ABCD-EFGH", decodeCode(t, w).Code)

	// The controller keeps running detached after the response; wait for it
	// to purge the credential directory before the test tears down.
	require.Eventually(t, func() bool {
		return !store.Exists("14155550100")
	}, time.Second, 5*time.Millisecond)
}

func TestPair_NormalizesNumberBeforeDialing(t *testing.T) {
	store, err := credfs.NewStore(t.TempDir())
	require.NoError(t, err)

	dialer := loopback.NewDialer(loopback.Config{
		PairingCode: "WXYZABCD",
		OpenDelay:   time.Millisecond,
		AcceptDelay: 5 * time.Millisecond,
		AutoPair:    true,
	})

	handler := NewPairHandler(store, dialer, session.Config{
		PairSettleDelay: time.Millisecond,
		CleanupDelay:    time.Millisecond,
	})

	// Formatted input normalizes to the same E.164 digits.
	req := httptest.NewRequest("GET", "/pair?number=%2B1+(415)+555-0100", nil)
	w := httptest.NewRecorder()

	handler.Pair(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "WXYZ-ABCD", decodeCode(t, w).Code)

	require.Eventually(t, func() bool {
		return !store.Exists("14155550100")
	}, time.Second, 5*time.Millisecond)
}

func TestReady(t *testing.T) {
	assert.False(t, NewPairHandler(nil, nil, session.Config{}).Ready())

	store, err := credfs.NewStore(t.TempDir())
	require.NoError(t, err)
	dialer := loopback.NewDialer(loopback.Config{})

	assert.True(t, NewPairHandler(store, dialer, session.Config{}).Ready())
}
