// Package protocol defines the boundary to the messaging-protocol client.
//
// pairgate does not implement the messaging wire protocol. It drives a
// pre-built client through its connection lifecycle and consumes the
// credential material the client produces. Everything the lifecycle
// controller needs from a transport is captured by the Dialer and Client
// interfaces; the loopback subpackage provides an in-process transport for
// development and tests.
package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/cypherx/pairgate/pkg/credstore"
)

// State is a connection lifecycle state reported by a client.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StatusLoggedOut is the close code the remote service sends when the
// session has been explicitly logged out. A close carrying it is terminal;
// every other close is a transient disconnect.
const StatusLoggedOut = 401

// LifecycleEvent is one connection-state transition emitted by a client.
type LifecycleEvent struct {
	State State

	// Code is the close reason for StateClosed events. Nil when the
	// transport reported no reason (treated as transient).
	Code *int
}

// LoggedOut reports whether the event is a close carrying the explicit
// logout status.
func (e LifecycleEvent) LoggedOut() bool {
	return e.State == StateClosed && e.Code != nil && *e.Code == StatusLoggedOut
}

// Version identifies the protocol revision to dial with. It is discovered
// at request time through Dialer.LatestVersion.
type Version struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// DialOptions configures one connection attempt.
type DialOptions struct {
	// Version is the protocol revision to announce.
	Version Version

	// Creds is the credential snapshot the connection authenticates with.
	Creds *credstore.Creds

	// ClientName is the device name shown to the paired account.
	ClientName string

	// MarkOnline controls whether the connection announces presence.
	// Provisioning connections keep this off.
	MarkOnline bool
}

// Client is one live connection to the messaging service.
//
// A client is bound to the credential snapshot it was dialed with and is
// good for exactly one connection: after a close event the controller
// discards it and dials a fresh one.
type Client interface {
	// Registered reports whether the dialed credentials are already
	// registered with the remote service.
	Registered() bool

	// Events returns the lifecycle event stream. The channel is closed
	// when the connection is torn down.
	Events() <-chan LifecycleEvent

	// OnCredsUpdate registers a callback invoked whenever the remote
	// service rotates credential material. Must be set before the
	// connection produces events.
	OnCredsUpdate(fn func(*credstore.Creds))

	// OnKeyUpdate registers a callback invoked when the remote service
	// hands down a named auxiliary key record (pre-keys, session keys).
	// Must be set before the connection produces events.
	OnKeyUpdate(fn func(name string, data []byte))

	// RequestPairingCode asks the service for a human-enterable pairing
	// code for the given E.164 number (digits only, no plus).
	RequestPairingCode(ctx context.Context, number string) (string, error)

	// SendText delivers a text message to the given address.
	SendText(ctx context.Context, to, text string) error

	// SendImage delivers an image by URL with a caption.
	SendImage(ctx context.Context, to, imageURL, caption string) error

	// Disconnect tears the connection down and unsubscribes all
	// listeners. Safe to call more than once.
	Disconnect()
}

// Dialer constructs clients against the messaging service.
type Dialer interface {
	// LatestVersion fetches the protocol revision to dial with.
	LatestVersion(ctx context.Context) (Version, error)

	// Dial opens an authenticated connection.
	Dial(ctx context.Context, opts DialOptions) (Client, error)
}

// ErrorKind classifies protocol errors at their point of origin, replacing
// after-the-fact message matching.
type ErrorKind int

const (
	// KindTransient marks recoverable transport conditions: stream
	// errors, timeouts, connection replaced/closed. Never surfaced to
	// the caller; the controller reconnects instead.
	KindTransient ErrorKind = iota

	// KindUnauthorized marks explicit rejection by the service.
	KindUnauthorized

	// KindFatal marks everything else.
	KindFatal
)

// Error is a classified protocol failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("protocol: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a recoverable transport failure.
func Transient(op string, err error) error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// Unauthorized wraps err as an explicit rejection.
func Unauthorized(op string, err error) error {
	return &Error{Kind: KindUnauthorized, Op: op, Err: err}
}

// Fatal wraps err as a non-recoverable failure.
func Fatal(op string, err error) error {
	return &Error{Kind: KindFatal, Op: op, Err: err}
}

// IsTransient reports whether err is a classified transient failure.
func IsTransient(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == KindTransient
}

// IsUnauthorized reports whether err is a classified rejection.
func IsUnauthorized(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == KindUnauthorized
}
