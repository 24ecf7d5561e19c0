// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/tochemey/vactor/address"
)

const (
	boltFileMode   os.FileMode = 0o600
	boltBucketName             = "actor_states"
)

var defaultBoltOptions = &bbolt.Options{Timeout: 5 * time.Second, NoGrowSync: true}

// BoltOption configures a BoltStore
type BoltOption func(*BoltStore)

// WithCompression compresses state blobs before writing them
func WithCompression(compression Compression) BoltOption {
	return func(s *BoltStore) {
		s.compression = compression
	}
}

// BoltStore implements StateStore on a local bbolt database.
//
// bbolt provides single-writer/multi-reader semantics; the store only guards
// its closed state. Blobs are written with a one byte compression header.
type BoltStore struct {
	db          *bbolt.DB
	bucket      []byte
	path        string
	compression Compression
	codec       *codec
	closed      atomic.Bool
}

var (
	_ StateStore = (*BoltStore)(nil)
	_ Lister     = (*BoltStore)(nil)
)

// NewBoltStore opens (or creates) the database file at path. Parent
// directories are created when missing.
func NewBoltStore(path string, opts ...BoltOption) (*BoltStore, error) {
	store := &BoltStore{
		bucket: []byte(boltBucketName),
		path:   path,
	}
	for _, opt := range opts {
		opt(store)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("persistence: creating boltdb directory: %w", err)
	}

	optionsCopy := *defaultBoltOptions
	db, err := bbolt.Open(path, boltFileMode, &optionsCopy)
	if err != nil {
		return nil, fmt.Errorf("persistence: opening boltdb: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(store.bucket)
		return e
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("persistence: initializing boltdb bucket: %w", err)
	}

	codec, err := newCodec(store.compression)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	store.db = db
	store.codec = codec
	return store, nil
}

// Path returns the database file path
func (s *BoltStore) Path() string {
	return s.path
}

// Load returns the saved state of the address
func (s *BoltStore) Load(ctx context.Context, addr address.Address) ([]byte, bool, error) {
	if err := s.ensureOpen(ctx); err != nil {
		return nil, false, err
	}

	var (
		state []byte
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(s.bucket).Get([]byte(addr.String()))
		if raw == nil {
			return nil
		}
		decoded, err := s.codec.decode(raw)
		if err != nil {
			return fmt.Errorf("persistence: decoding state of %s: %w", addr, err)
		}
		state, found = decoded, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return state, found, nil
}

// Save replaces the state of the address
func (s *BoltStore) Save(ctx context.Context, addr address.Address, state []byte) error {
	if err := s.ensureOpen(ctx); err != nil {
		return err
	}

	blob, err := s.codec.encode(state)
	if err != nil {
		return fmt.Errorf("persistence: encoding state of %s: %w", addr, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(addr.String()), blob)
	})
}

// Delete removes the state of the address
func (s *BoltStore) Delete(ctx context.Context, addr address.Address) error {
	if err := s.ensureOpen(ctx); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(addr.String()))
	})
}

// Addresses lists the stored addresses of the given actor type
func (s *BoltStore) Addresses(ctx context.Context, actorType string) ([]address.Address, error) {
	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}

	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(s.bucket).Cursor()
		if actorType == "" {
			for k, _ := cursor.First(); k != nil; k, _ = cursor.Next() {
				keys = append(keys, string(k))
			}
			return nil
		}
		prefix := []byte(actorType + ":")
		for k, _ := cursor.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = cursor.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parseKeys(keys, actorType), nil
}

// Close releases the database handle. The file is kept.
func (s *BoltStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	codecErr := s.codec.close()
	if err := s.db.Close(); err != nil {
		return err
	}
	return codecErr
}

func (s *BoltStore) ensureOpen(ctx context.Context) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	return contextErr(ctx)
}

func hasPrefix(key, prefix []byte) bool {
	return len(key) >= len(prefix) && string(key[:len(prefix)]) == string(prefix)
}
