// Package badger implements the BadgerDB credential store.
//
// State for one directory key lives under the key prefix "dir/<key>/":
// "dir/<key>/creds" holds the primary credential record and
// "dir/<key>/rec/<name>" holds auxiliary key records. Deletion is a prefix
// scan inside a single transaction, so a directory disappears atomically.
package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/cypherx/pairgate/pkg/credstore"
)

// Store is a BadgerDB-backed credstore.Store.
type Store struct {
	db       *badger.DB
	external bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore opens (or creates) a Badger database at path.
func NewStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger store: open %q: %w", path, err)
	}
	return &Store{
		db:    db,
		locks: map[string]*sync.Mutex{},
	}, nil
}

// NewStoreWithDB wraps an already open database. The caller keeps ownership
// of the database lifecycle; Close becomes a no-op.
func NewStoreWithDB(db *badger.DB) *Store {
	return &Store{db: db, locks: map[string]*sync.Mutex{}, external: true}
}

// Open loads the directory for key, creating fresh credentials when absent.
func (s *Store) Open(ctx context.Context, key string) (credstore.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	var creds *credstore.Creds
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyCreds(key))
		if err == nil {
			return item.Value(func(val []byte) error {
				creds = &credstore.Creds{}
				return json.Unmarshal(val, creds)
			})
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		creds, err = credstore.NewCreds()
		if err != nil {
			return err
		}
		data, err := json.Marshal(creds)
		if err != nil {
			return err
		}
		return txn.Set(keyCreds(key), data)
	})
	if err != nil {
		return nil, fmt.Errorf("badger store: open %q: %w", key, err)
	}

	return &directory{store: s, key: key, creds: creds}, nil
}

// Delete removes every record stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := keyPrefix(key)
		var doomed [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			doomed = append(doomed, it.Item().KeyCopy(nil))
		}
		for _, k := range doomed {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger store: delete %q: %w", key, err)
	}
	return nil
}

// Exists reports whether a primary credential record is stored under key.
func (s *Store) Exists(key string) bool {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(keyCreds(key))
		return err
	})
	return err == nil
}

// Close closes the underlying database unless it was supplied externally.
func (s *Store) Close() error {
	if s.external {
		return nil
	}
	return s.db.Close()
}

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

func keyPrefix(key string) []byte {
	return []byte("dir/" + key + "/")
}

func keyCreds(key string) []byte {
	return []byte("dir/" + key + "/creds")
}

func keyRecord(key, name string) []byte {
	return []byte("dir/" + key + "/rec/" + name)
}

// directory implements credstore.Directory over one key prefix.
type directory struct {
	store *Store
	key   string

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

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("badger store: encode creds: %w", err)
	}
	err = d.store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyCreds(d.key), data)
	})
	if err != nil {
		return fmt.Errorf("badger store: save %q: %w", d.key, err)
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

	err := d.store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyRecord(d.key, name), data)
	})
	if err != nil {
		return fmt.Errorf("badger store: put key record %q: %w", name, err)
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

	var data []byte
	err := d.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyCreds(d.key))
		if err == badger.ErrKeyNotFound {
			return credstore.ErrNotFound
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
