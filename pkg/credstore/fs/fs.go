// Package fs implements the filesystem credential store.
//
// Each directory key maps to one subdirectory of the store root containing
// creds.json (the primary credential record) plus one file per auxiliary
// key record. This mirrors the multi-file layout the messaging protocol's
// reference tooling produces, so a serialized creds.json is portable.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cypherx/pairgate/pkg/credstore"
)

const credsFile = "creds.json"

// Store is a filesystem-backed credstore.Store.
//
// All mutation and deletion for one key is funneled through a per-key
// mutex, so Delete never interleaves with an in-flight Save or PutKey for
// the same directory.
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("fs store: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("fs store: create root: %w", err)
	}
	return &Store{
		root:  dir,
		locks: map[string]*sync.Mutex{},
	}, nil
}

// Open loads the directory for key, creating fresh credentials when absent.
func (s *Store) Open(ctx context.Context, key string) (credstore.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	path := s.keyPath(key)
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("fs store: create directory %q: %w", key, err)
	}

	creds, err := readCreds(filepath.Join(path, credsFile))
	if os.IsNotExist(err) {
		creds, err = credstore.NewCreds()
		if err != nil {
			return nil, fmt.Errorf("fs store: generate credentials: %w", err)
		}
		if err := writeCreds(filepath.Join(path, credsFile), creds); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	return &directory{store: s, key: key, path: path, creds: creds}, nil
}

// Delete recursively removes all state for key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(s.keyPath(key)); err != nil {
		return fmt.Errorf("fs store: delete %q: %w", key, err)
	}
	return nil
}

// Exists reports whether any state is stored under key.
func (s *Store) Exists(key string) bool {
	_, err := os.Stat(s.keyPath(key))
	return err == nil
}

// Close is a no-op for the filesystem backend.
func (s *Store) Close() error { return nil }

func (s *Store) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

func (s *Store) keyPath(key string) string {
	// Keys are normalized digit strings; sanitize defensively anyway so a
	// malformed key can never escape the store root.
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
	return filepath.Join(s.root, safe)
}

// directory implements credstore.Directory over one key subdirectory.
type directory struct {
	store *Store
	key   string
	path  string

	mu    sync.RWMutex
	creds *credstore.Creds
}

func (d *directory) Key() string { return d.key }

func (d *directory) Creds() *credstore.Creds {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snapshot := *d.creds
	return &snapshot
}

func (d *directory) Save(ctx context.Context, creds *credstore.Creds) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := d.store.keyLock(d.key)
	lock.Lock()
	defer lock.Unlock()

	if err := writeCreds(filepath.Join(d.path, credsFile), creds); err != nil {
		return err
	}

	d.mu.Lock()
	snapshot := *creds
	d.creds = &snapshot
	d.mu.Unlock()
	return nil
}

func (d *directory) PutKey(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := d.store.keyLock(d.key)
	lock.Lock()
	defer lock.Unlock()

	name = sanitizeRecordName(name)
	if err := os.WriteFile(filepath.Join(d.path, name+".json"), data, 0o600); err != nil {
		return fmt.Errorf("fs store: write key record %q: %w", name, err)
	}
	return nil
}

func (d *directory) Serialize(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lock := d.store.keyLock(d.key)
	lock.Lock()
	defer lock.Unlock()

	data, err := os.ReadFile(filepath.Join(d.path, credsFile))
	if os.IsNotExist(err) {
		return nil, credstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fs store: read %s: %w", credsFile, err)
	}
	return data, nil
}

func readCreds(path string) (*credstore.Creds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var creds credstore.Creds
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("fs store: decode %s: %w", credsFile, err)
	}
	return &creds, nil
}

func writeCreds(path string, creds *credstore.Creds) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("fs store: encode %s: %w", credsFile, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("fs store: write %s: %w", credsFile, err)
	}
	return nil
}

func sanitizeRecordName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
