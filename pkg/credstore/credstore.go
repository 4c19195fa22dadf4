// Package credstore defines the credential directory abstraction used to
// hold the evolving authentication state of one messaging-protocol session.
//
// A directory is a per-key namespace containing a primary credential record
// plus any number of named key records written by the protocol client while
// a connection is live. Directories are owned by exactly one in-flight
// provisioning request; concurrent requests for the same key race and the
// last writer wins (a documented property of the system, not remediated
// here).
//
// Two backends implement Store: a filesystem store (one directory of JSON
// files per key, the default) and a BadgerDB store.
package credstore

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested directory or record does not exist.
var ErrNotFound = errors.New("credential directory not found")

// KeyPair holds one asymmetric key pair belonging to the session identity.
type KeyPair struct {
	Public  []byte `json:"public"`
	Private []byte `json:"private"`
}

// Creds is the primary credential record of a session directory.
//
// Its serialized form is the payload every session-token encoding scheme
// operates on, so field layout changes are wire-visible to token consumers.
type Creds struct {
	RegistrationID uint32  `json:"registration_id"`
	NoiseKey       KeyPair `json:"noise_key"`
	IdentityKey    KeyPair `json:"identity_key"`
	AdvSecret      []byte  `json:"adv_secret"`
	DeviceID       string  `json:"device_id"`
	Me             string  `json:"me,omitempty"`
	Registered     bool    `json:"registered"`
}

// Directory is a handle on one per-key credential namespace.
//
// Save, PutKey, Serialize and the owning store's Delete for the same key
// are serialized against each other by the store, so a delete never
// interleaves with an in-flight persistence write.
type Directory interface {
	// Key returns the directory key (the normalized phone number).
	Key() string

	// Creds returns the current primary credential record. The returned
	// value is a snapshot; mutations must go through Save.
	Creds() *Creds

	// Save persists the primary credential record.
	Save(ctx context.Context, creds *Creds) error

	// PutKey persists a named auxiliary key record (session keys, pre-keys).
	PutKey(ctx context.Context, name string, data []byte) error

	// Serialize returns the raw serialized bytes of the primary credential
	// record as most recently persisted.
	Serialize(ctx context.Context) ([]byte, error)
}

// Store manages credential directories keyed by normalized phone number.
type Store interface {
	// Open loads the directory for key, creating a fresh one with newly
	// generated credentials when none exists.
	Open(ctx context.Context, key string) (Directory, error)

	// Delete recursively removes all state for key. Deleting a missing
	// key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether any state is stored under key.
	Exists(key string) bool

	// Close releases backend resources.
	Close() error
}

// NewCreds generates a fresh unregistered credential record.
func NewCreds() (*Creds, error) {
	noise, err := newKeyPair()
	if err != nil {
		return nil, err
	}
	identity, err := newKeyPair()
	if err != nil {
		return nil, err
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}

	var regID [4]byte
	if _, err := rand.Read(regID[:]); err != nil {
		return nil, err
	}

	return &Creds{
		// Registration ids are 14-bit on the wire.
		RegistrationID: binary.BigEndian.Uint32(regID[:]) & 0x3FFF,
		NoiseKey:       noise,
		IdentityKey:    identity,
		AdvSecret:      secret,
		DeviceID:       uuid.NewString(),
	}, nil
}

func newKeyPair() (KeyPair, error) {
	private := make([]byte, 32)
	if _, err := rand.Read(private); err != nil {
		return KeyPair{}, err
	}
	public := make([]byte, 32)
	if _, err := rand.Read(public); err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Public: public, Private: private}, nil
}
