package session

import "sync"

// Response payloads delivered through the gate. Field names are part of
// the public HTTP contract.
type (
	// CodeResponse carries a pairing code or a failure code string.
	CodeResponse struct {
		Code string `json:"code"`
	}

	// SessionResponse carries an encoded session token.
	SessionResponse struct {
		Session string `json:"session"`
	}

	// EmptyResponse is the body for out-of-band token delivery.
	EmptyResponse struct{}
)

// Failure code strings surfaced to callers.
const (
	MsgNumberRequired     = "Number is required"
	MsgInvalidNumber      = "Invalid phone number"
	MsgServiceUnavailable = "Service Unavailable"
	MsgSessionFailed      = "Failed to generate session"
)

// Gate is the exclusive-use respond capability for one provisioning
// request.
//
// Multiple asynchronous lifecycle branches (pairing coordinator, open
// handler, close handler, connect failure) race to answer the same HTTP
// request; the gate guarantees exactly one of them wins. Once the owning
// handler returns it abandons the gate, turning any late send into a
// recorded no-op instead of a write to a dead ResponseWriter.
type Gate struct {
	mu        sync.Mutex
	send      func(status int, body any)
	consumed  bool
	abandoned bool
	done      chan struct{}
}

// NewGate wraps send, which performs the actual response write. send is
// invoked at most once, under the gate's lock.
func NewGate(send func(status int, body any)) *Gate {
	return &Gate{send: send, done: make(chan struct{})}
}

// Send attempts to deliver the response. Returns true if this call won the
// gate; false if a response was already sent or the gate was abandoned.
func (g *Gate) Send(status int, body any) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.consumed || g.abandoned {
		return false
	}
	g.consumed = true
	g.send(status, body)
	close(g.done)
	return true
}

// Sent reports whether a response has been delivered.
func (g *Gate) Sent() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.consumed
}

// Abandon marks the gate unusable without sending. Called by the HTTP
// handler on return so background work can never touch the response
// writer afterwards.
func (g *Gate) Abandon() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.consumed || g.abandoned {
		return
	}
	g.abandoned = true
	close(g.done)
}

// Done returns a channel closed once the gate is consumed or abandoned.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}
