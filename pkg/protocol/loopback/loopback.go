// Package loopback provides an in-process protocol transport.
//
// The loopback dialer never touches the network. It simulates the remote
// messaging service's connection lifecycle: unregistered credentials go
// through a pairing-code exchange that auto-accepts after a short delay,
// registered credentials open directly. It backs the development server
// mode and the package tests; production deployments plug a real transport
// into the protocol.Dialer seam.
package loopback

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cypherx/pairgate/pkg/credstore"
	"github.com/cypherx/pairgate/pkg/protocol"
)

// Config tunes the simulated service.
type Config struct {
	// Version is the protocol revision reported by LatestVersion.
	Version protocol.Version

	// PairingCode is returned for every pairing request. Empty means a
	// random 8-character code per request.
	PairingCode string

	// OpenDelay is how long after registration (or after dial, for
	// registered credentials) the connection reports open.
	OpenDelay time.Duration

	// AcceptDelay simulates the user entering the pairing code on the
	// companion device.
	AcceptDelay time.Duration

	// AutoPair controls whether a requested pairing code is accepted
	// automatically. When false the connection never opens for
	// unregistered credentials.
	AutoPair bool
}

func (c *Config) applyDefaults() {
	if c.Version == (protocol.Version{}) {
		c.Version = protocol.Version{Major: 2, Minor: 3000, Patch: 0}
	}
	if c.OpenDelay == 0 {
		c.OpenDelay = 50 * time.Millisecond
	}
	if c.AcceptDelay == 0 {
		c.AcceptDelay = 100 * time.Millisecond
	}
}

// Dialer is an in-process protocol.Dialer.
type Dialer struct {
	cfg Config
}

// NewDialer creates a loopback dialer. AutoPair defaults to on.
func NewDialer(cfg Config) *Dialer {
	cfg.applyDefaults()
	return &Dialer{cfg: cfg}
}

// LatestVersion returns the configured protocol revision.
func (d *Dialer) LatestVersion(ctx context.Context) (protocol.Version, error) {
	if err := ctx.Err(); err != nil {
		return protocol.Version{}, err
	}
	return d.cfg.Version, nil
}

// Dial opens a simulated connection bound to the credential snapshot.
func (d *Dialer) Dial(ctx context.Context, opts protocol.DialOptions) (protocol.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Creds == nil {
		return nil, protocol.Fatal("dial", fmt.Errorf("credentials are required"))
	}

	creds := *opts.Creds
	c := &client{
		cfg:    d.cfg,
		creds:  &creds,
		events: make(chan protocol.LifecycleEvent, 8),
		done:   make(chan struct{}),
	}
	c.events <- protocol.LifecycleEvent{State: protocol.StateConnecting}

	if c.creds.Registered {
		go c.openLater()
	}
	return c, nil
}

// Message is one outbound delivery recorded by the loopback transport.
type Message struct {
	To       string
	Text     string
	ImageURL string
	Caption  string
}

type client struct {
	cfg   Config
	creds *credstore.Creds

	mu      sync.Mutex
	onCreds func(*credstore.Creds)
	onKeys  func(string, []byte)
	sent    []Message
	paired  bool
	closed  bool
	events  chan protocol.LifecycleEvent
	done    chan struct{}
}

func (c *client) Registered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.Registered
}

func (c *client) Events() <-chan protocol.LifecycleEvent {
	return c.events
}

func (c *client) OnCredsUpdate(fn func(*credstore.Creds)) {
	c.mu.Lock()
	c.onCreds = fn
	c.mu.Unlock()
}

func (c *client) OnKeyUpdate(fn func(name string, data []byte)) {
	c.mu.Lock()
	c.onKeys = fn
	c.mu.Unlock()
}

func (c *client) RequestPairingCode(ctx context.Context, number string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	select {
	case <-c.done:
		return "", protocol.Transient("pairing-code", fmt.Errorf("connection closed"))
	default:
	}

	c.mu.Lock()
	if c.creds.Registered {
		c.mu.Unlock()
		return "", protocol.Fatal("pairing-code", fmt.Errorf("credentials already registered"))
	}
	alreadyPaired := c.paired
	c.paired = true
	c.mu.Unlock()

	code := c.cfg.PairingCode
	if code == "" {
		var err error
		code, err = randomCode(8)
		if err != nil {
			return "", protocol.Fatal("pairing-code", err)
		}
	}

	if c.cfg.AutoPair && !alreadyPaired {
		go c.acceptLater(number)
	}
	return code, nil
}

func (c *client) SendText(ctx context.Context, to, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, Message{To: to, Text: text})
	return nil
}

func (c *client) SendImage(ctx context.Context, to, imageURL, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, Message{To: to, ImageURL: imageURL, Caption: caption})
	return nil
}

func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	close(c.events)
}

// Sent returns a copy of all recorded outbound messages.
func (c *client) Sent() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.sent))
	copy(out, c.sent)
	return out
}

// acceptLater simulates the companion device accepting the pairing code:
// the credentials become registered, the update callback fires, and the
// connection opens.
func (c *client) acceptLater(number string) {
	select {
	case <-time.After(c.cfg.AcceptDelay):
	case <-c.done:
		return
	}

	c.mu.Lock()
	c.creds.Registered = true
	c.creds.Me = number + "@s.whatsapp.net"
	if c.creds.DeviceID == "" {
		c.creds.DeviceID = uuid.NewString()
	}
	snapshot := *c.creds
	fn := c.onCreds
	keys := c.onKeys
	c.mu.Unlock()

	if fn != nil {
		fn(&snapshot)
	}
	if keys != nil {
		if record, err := preKeyRecord(); err == nil {
			keys("pre-key-1", record)
		}
	}
	c.openLater()
}

// preKeyRecord fabricates the kind of auxiliary key record a real
// transport hands down during registration.
func preKeyRecord() ([]byte, error) {
	private := make([]byte, 32)
	if _, err := rand.Read(private); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{"key_id": 1, "private": private})
}

func (c *client) openLater() {
	select {
	case <-time.After(c.cfg.OpenDelay):
	case <-c.done:
		return
	}
	c.emit(protocol.LifecycleEvent{State: protocol.StateOpen})
}

// emit delivers an event unless the connection has been torn down. The
// send happens under the mutex so it can never race a Disconnect closing
// the channel.
func (c *client) emit(ev protocol.LifecycleEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		// Event buffer full; a stalled consumer drops transitions rather
		// than wedging the simulated service.
	}
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
