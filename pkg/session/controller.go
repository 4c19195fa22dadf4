// Package session implements the session-establishment core: the
// connection lifecycle controller, the pairing coordinator, the session
// token encoding schemes, and the respond-once gate.
//
// One Controller instance owns one provisioning request end to end. It
// drives a protocol client through connect → (register or reuse) →
// open/closed transitions, persists credential updates as they arrive,
// and runs the credential-extraction pipeline exactly once on the first
// open event. Transient closes re-enter the connect loop under a bounded
// exponential-backoff policy; an explicit logout close is terminal.
package session

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cypherx/pairgate/internal/logger"
	"github.com/cypherx/pairgate/pkg/credstore"
	"github.com/cypherx/pairgate/pkg/phone"
	"github.com/cypherx/pairgate/pkg/protocol"
)

// Informational messages accompanying out-of-band token delivery.
// Delivery order is fixed: session text, then guide, then warning.
const (
	guideImageURL = "https://cypherx.dev/assets/pairgate-guide.png"
	guideCaption  = "Session generated. The message above restores this session on any device; store it somewhere safe."
	warningText   = "Do not share your session with anyone. Whoever holds it has full control of your account."
)

// Config tunes one provisioning controller.
type Config struct {
	// Scheme selects the token encoding and delivery strategy.
	Scheme Scheme

	// ClientName is the device name announced to the messaging service.
	ClientName string

	// PairSettleDelay is how long to let the connection settle before
	// requesting a pairing code.
	PairSettleDelay time.Duration

	// CleanupDelay separates token delivery from credential directory
	// deletion, leaving persistence callbacks time to drain.
	CleanupDelay time.Duration

	// MaxReconnects caps reconnect attempts after transient closes.
	// Zero means unbounded.
	MaxReconnects int

	// InitialBackoff is the first reconnect delay; it doubles per attempt
	// up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Metrics receives lifecycle observations. Nil disables.
	Metrics Metrics
}

func (c *Config) applyDefaults() {
	if c.Scheme == "" {
		c.Scheme = SchemeDirect
	}
	if c.ClientName == "" {
		c.ClientName = "Chrome (Windows)"
	}
	if c.PairSettleDelay == 0 {
		c.PairSettleDelay = 3 * time.Second
	}
	if c.CleanupDelay == 0 {
		c.CleanupDelay = 5 * time.Second
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 2 * time.Second
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = time.Minute
	}
	if c.Metrics == nil {
		c.Metrics = nopMetrics{}
	}
}

// Controller provisions one session for one phone number.
type Controller struct {
	number phone.Number
	store  credstore.Store
	dialer protocol.Dialer
	gate   *Gate
	cfg    Config
	log    *slog.Logger

	extracted     atomic.Bool
	extractionErr atomic.Bool
}

// outcome is the terminal classification of one connection attempt.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeLoggedOut
	outcomeRetry
	outcomeFatal
)

// NewController creates a controller for an already validated number. The
// gate is the exclusive respond capability for the originating request.
func NewController(number phone.Number, store credstore.Store, dialer protocol.Dialer, gate *Gate, cfg Config) *Controller {
	cfg.applyDefaults()
	return &Controller{
		number: number,
		store:  store,
		dialer: dialer,
		gate:   gate,
		cfg:    cfg,
		log:    logger.With("session_key", number.String()),
	}
}

// Run drives the provisioning state machine to a terminal outcome. It
// guarantees a response is attempted on every exit path and that no
// credential state for the key survives on disk.
func (c *Controller) Run(ctx context.Context) {
	key := c.number.String()
	c.cfg.Metrics.SessionStarted()

	// Stale-state guard: a previous request for the same number must not
	// leak credentials into this one.
	if err := c.store.Delete(ctx, key); err != nil {
		c.log.Warn("failed to wipe stale credential directory", "error", err)
	}

	dir, err := c.store.Open(ctx, key)
	if err != nil {
		c.log.Error("failed to open credential directory", "error", err)
		c.failUnavailable(ctx, key, "store_open")
		return
	}

	version, err := c.dialer.LatestVersion(ctx)
	if err != nil {
		c.log.Error("failed to discover protocol version", "error", err)
		c.failUnavailable(ctx, key, "version_discovery")
		return
	}
	c.log.Debug("protocol version discovered", "version", version.String())

	retry := newRetryPolicy(c.cfg)
	for {
		result := c.attempt(ctx, dir, version)
		switch result {
		case outcomeSuccess:
			// Extraction already responded; failure inside the pipeline
			// was reported there. Either way the state is terminal.
			if !c.extractionErr.Load() {
				c.cfg.Metrics.SessionProvisioned(c.cfg.Scheme)
			}
			c.cleanupAfter(ctx, key, c.cfg.CleanupDelay)
			return

		case outcomeLoggedOut:
			c.log.Info("session logged out, stopping")
			c.cfg.Metrics.ProvisioningFailed("logged_out")
			c.gate.Send(http.StatusServiceUnavailable, CodeResponse{Code: MsgServiceUnavailable})
			c.cleanupAfter(ctx, key, 0)
			return

		case outcomeRetry:
			c.cfg.Metrics.ReconnectAttempted()
			if retry.Next() {
				c.log.Info("connection closed, reconnecting", "attempt", retry.attempts)
				continue
			}
			c.log.Error("reconnect budget exhausted", "attempts", retry.attempts)
			c.failUnavailable(ctx, key, "retries_exhausted")
			return

		case outcomeFatal:
			c.failUnavailable(ctx, key, "connect_failure")
			return
		}
	}
}

// attempt runs one connection attempt to a terminal event.
func (c *Controller) attempt(ctx context.Context, dir credstore.Directory, version protocol.Version) outcome {
	client, err := c.dialer.Dial(ctx, protocol.DialOptions{
		Version:    version,
		Creds:      dir.Creds(),
		ClientName: c.cfg.ClientName,
		MarkOnline: false,
	})
	if err != nil {
		if protocol.IsTransient(err) {
			c.log.Warn("transient dial failure", "error", err)
			return outcomeRetry
		}
		c.log.Warn("dial failed", "error", err)
		return outcomeFatal
	}
	defer client.Disconnect()

	// Persist every credential rotation immediately. At-least-once
	// semantics: failures are logged, never escalated.
	client.OnCredsUpdate(func(creds *credstore.Creds) {
		if err := dir.Save(context.Background(), creds); err != nil {
			c.log.Warn("failed to persist credential update", "error", err)
		}
	})
	client.OnKeyUpdate(func(name string, data []byte) {
		if err := dir.PutKey(context.Background(), name, data); err != nil {
			c.log.Warn("failed to persist key record", "record", name, "error", err)
		}
	})

	// Pairing is re-entered on every unregistered attempt: a transient
	// close during the pairing window must not strand the reconnected
	// attempt with no way to register. The gate dedupes what the caller
	// sees.
	if !client.Registered() {
		go c.requestPairing(ctx, client)
	}

	for ev := range client.Events() {
		switch ev.State {
		case protocol.StateConnecting:
			c.log.Debug("connecting")

		case protocol.StateOpen:
			c.handleOpen(ctx, client, dir)
			return outcomeSuccess

		case protocol.StateClosed:
			if ev.LoggedOut() {
				return outcomeLoggedOut
			}
			return outcomeRetry
		}
	}

	// Event stream ended without a terminal event; treat as a transient
	// close with no reason code.
	return outcomeRetry
}

// requestPairing is the pairing coordinator: it waits for the connection
// to settle, requests a human-enterable code, and answers the HTTP request
// with it. Runs concurrently with the lifecycle loop, once per unregistered
// connection attempt; the gate keeps the caller's response single.
func (c *Controller) requestPairing(ctx context.Context, client protocol.Client) {
	if !sleepOrDone(ctx, c.cfg.PairSettleDelay) {
		return
	}

	code, err := client.RequestPairingCode(ctx, c.number.String())
	if err != nil {
		c.log.Warn("pairing code request failed", "error", err)
		c.cfg.Metrics.ProvisioningFailed("pairing_failure")
		c.gate.Send(http.StatusServiceUnavailable, CodeResponse{Code: MsgServiceUnavailable})
		return
	}

	formatted := FormatPairingCode(code)
	if c.gate.Send(http.StatusOK, CodeResponse{Code: formatted}) {
		c.cfg.Metrics.PairingCodeIssued()
		c.log.Info("pairing code issued")
	}
}

// handleOpen runs the extraction pipeline: serialize credentials, encode
// per the configured scheme, deliver. Guarded against duplicate open
// events by a single-use flag.
func (c *Controller) handleOpen(ctx context.Context, client protocol.Client, dir credstore.Directory) {
	if !c.extracted.CompareAndSwap(false, true) {
		c.log.Debug("duplicate open event ignored")
		return
	}

	raw, err := dir.Serialize(ctx)
	if err != nil {
		c.log.Error("failed to read credential record", "error", err)
		c.extractionErr.Store(true)
		c.cfg.Metrics.ProvisioningFailed("extraction_failure")
		c.gate.Send(http.StatusInternalServerError, CodeResponse{Code: MsgSessionFailed})
		return
	}

	switch c.cfg.Scheme {
	case SchemeMessage:
		c.deliverByMessage(ctx, client, dir, raw)
	case SchemeChunked:
		c.gate.Send(http.StatusOK, SessionResponse{Session: EncodeChunked(raw)})
	default:
		c.gate.Send(http.StatusOK, SessionResponse{Session: EncodeDirect(raw)})
	}
	c.log.Info("session token delivered", "scheme", string(c.cfg.Scheme))
}

// deliverByMessage sends the token and its companion messages to the
// requester's own address. Ordering matters: session text first, then the
// guide, then the warning. The HTTP response is independent of delivery
// success.
func (c *Controller) deliverByMessage(ctx context.Context, client protocol.Client, dir credstore.Directory, raw []byte) {
	to := dir.Creds().Me
	if to == "" {
		to = c.number.String() + "@s.whatsapp.net"
	}

	if err := client.SendText(ctx, to, EncodeMessage(raw)); err != nil {
		c.log.Warn("failed to deliver session message", "error", err)
	}
	if err := client.SendImage(ctx, to, guideImageURL, guideCaption); err != nil {
		c.log.Warn("failed to deliver guide message", "error", err)
	}
	if err := client.SendText(ctx, to, warningText); err != nil {
		c.log.Warn("failed to deliver warning message", "error", err)
	}

	c.gate.Send(http.StatusOK, EmptyResponse{})
}

// failUnavailable reports a setup failure (if the caller has not been
// answered yet) and removes any credential state immediately.
func (c *Controller) failUnavailable(ctx context.Context, key, reason string) {
	c.cfg.Metrics.ProvisioningFailed(reason)
	c.gate.Send(http.StatusServiceUnavailable, CodeResponse{Code: MsgServiceUnavailable})
	c.cleanupAfter(ctx, key, 0)
}

// cleanupAfter deletes the credential directory after the given delay.
// Cancellation shortens the delay but never skips the delete: credential
// state must not outlive the run. Deletion failures are logged, not
// escalated.
func (c *Controller) cleanupAfter(ctx context.Context, key string, delay time.Duration) {
	if delay > 0 {
		sleepOrDone(ctx, delay)
	}
	if err := c.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		c.log.Warn("failed to delete credential directory", "error", err)
	}
}

// sleepOrDone waits d, returning false when the context ends first.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
