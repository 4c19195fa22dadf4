package handlers

import (
	"context"
	"net/http"

	"github.com/cypherx/pairgate/pkg/credstore"
	"github.com/cypherx/pairgate/pkg/phone"
	"github.com/cypherx/pairgate/pkg/protocol"
	"github.com/cypherx/pairgate/pkg/session"
)

// PairHandler handles GET /pair, the session provisioning endpoint.
//
// The handler validates the requested phone number, then hands the request
// off to a session controller and blocks until the controller produces the
// single response for this request: a pairing code, a session token, or a
// failure. Validation failures are answered immediately without touching
// the credential store or the protocol dialer.
type PairHandler struct {
	store  credstore.Store
	dialer protocol.Dialer
	cfg    session.Config
}

// NewPairHandler creates a pair handler backed by the given store and
// dialer. cfg tunes each provisioning run.
func NewPairHandler(store credstore.Store, dialer protocol.Dialer, cfg session.Config) *PairHandler {
	return &PairHandler{store: store, dialer: dialer, cfg: cfg}
}

// Ready reports whether the handler has its dependencies wired.
func (h *PairHandler) Ready() bool {
	return h.store != nil && h.dialer != nil
}

// Pair handles GET /pair?number=<phone>.
//
// Responses:
//   - 400 {"code": "Number is required"} - missing number parameter
//   - 400 {"code": "Invalid phone number"} - number fails validation
//   - 200 {"code": "XXXX-YYYY"} - pairing code issued, enter it on the device
//   - 200 {"session": "CYPHER-X:~..."} - session token (direct/chunked schemes)
//   - 200 {} - token delivered out of band (message scheme)
//   - 503 {"code": "Service Unavailable"} - connection lifecycle failed
//   - 500 {"code": "Failed to generate session"} - credential extraction failed
func (h *PairHandler) Pair(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("number")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, session.CodeResponse{Code: session.MsgNumberRequired})
		return
	}

	number, err := phone.Normalize(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, session.CodeResponse{Code: session.MsgInvalidNumber})
		return
	}

	gate := session.NewGate(func(status int, body any) {
		writeJSON(w, status, body)
	})
	defer gate.Abandon()

	ctrl := session.NewController(number, h.store, h.dialer, gate, h.cfg)

	// The controller outlives this request on purpose: token extraction and
	// cleanup must finish even if the caller disconnects, so it runs on a
	// background context rather than the request context.
	go ctrl.Run(context.Background())

	select {
	case <-gate.Done():
	case <-r.Context().Done():
		// Caller went away. The deferred Abandon turns any late response
		// into a no-op; the provisioning run continues detached.
	}
}
