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

package claim

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tochemey/vactor/address"
	gerrors "github.com/tochemey/vactor/errors"
)

const defaultNATSBucket = "vactor_claims"

// NATSStore implements Store on a JetStream KeyValue bucket.
//
// The bucket TTL is the claim TTL: every Create or Update resets the age of a
// key, so the ttl argument of Acquire and Renew is ignored. Ownership changes
// use the KV revision for optimistic concurrency.
type NATSStore struct {
	conn  *nats.Conn
	kv    nats.KeyValue
	owned bool
}

var _ Store = (*NATSStore)(nil)

// NewNATSStore connects to url and ensures the bucket exists with the given TTL
func NewNATSStore(url, bucket string, ttl time.Duration) (*NATSStore, error) {
	conn, err := nats.Connect(url, nats.Name("vactor-claims"))
	if err != nil {
		return nil, fmt.Errorf("claim/nats: connect: %w", err)
	}
	store, err := NewNATSStoreFromConn(conn, bucket, ttl)
	if err != nil {
		conn.Close()
		return nil, err
	}
	store.owned = true
	return store, nil
}

// NewNATSStoreFromConn creates the store on an existing connection.
// Close does not close a connection it did not create.
func NewNATSStoreFromConn(conn *nats.Conn, bucket string, ttl time.Duration) (*NATSStore, error) {
	if bucket == "" {
		bucket = defaultNATSBucket
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("claim/nats: jetstream: %w", err)
	}

	kv, err := js.KeyValue(bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket: bucket,
			TTL:    ttl,
		})
		if err != nil {
			// another node may have created the bucket concurrently
			if errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
				kv, err = js.KeyValue(bucket)
			}
			if err != nil {
				return nil, fmt.Errorf("claim/nats: create bucket: %w", err)
			}
		}
	}

	return &NATSStore{conn: conn, kv: kv}, nil
}

// Acquire creates the claim or refreshes it when owned by nodeID
func (s *NATSStore) Acquire(_ context.Context, addr address.Address, nodeID string, _ time.Duration) error {
	key := claimKey(addr)
	if _, err := s.kv.Create(key, []byte(nodeID)); err == nil {
		return nil
	} else if !isRevisionConflict(err) {
		return fmt.Errorf("claim/nats: create: %w", err)
	}

	entry, err := s.kv.Get(key)
	if err != nil {
		if isKeyMissing(err) {
			// expired between Create and Get
			return gerrors.ErrAlreadyActiveElsewhere
		}
		return fmt.Errorf("claim/nats: get: %w", err)
	}
	if string(entry.Value()) != nodeID {
		return gerrors.ErrAlreadyActiveElsewhere
	}
	if _, err := s.kv.Update(key, []byte(nodeID), entry.Revision()); err != nil {
		if isRevisionConflict(err) {
			return gerrors.ErrAlreadyActiveElsewhere
		}
		return fmt.Errorf("claim/nats: update: %w", err)
	}
	return nil
}

// Renew resets the age of a claim owned by nodeID
func (s *NATSStore) Renew(_ context.Context, addr address.Address, nodeID string, _ time.Duration) error {
	key := claimKey(addr)
	entry, err := s.kv.Get(key)
	if err != nil {
		if isKeyMissing(err) {
			return gerrors.ErrClaimLost
		}
		return fmt.Errorf("claim/nats: get: %w", err)
	}
	if string(entry.Value()) != nodeID {
		return gerrors.ErrClaimLost
	}
	if _, err := s.kv.Update(key, []byte(nodeID), entry.Revision()); err != nil {
		if isRevisionConflict(err) {
			return gerrors.ErrClaimLost
		}
		return fmt.Errorf("claim/nats: update: %w", err)
	}
	return nil
}

// Release deletes a claim owned by nodeID
func (s *NATSStore) Release(_ context.Context, addr address.Address, nodeID string) error {
	key := claimKey(addr)
	entry, err := s.kv.Get(key)
	if err != nil {
		if isKeyMissing(err) {
			return nil
		}
		return fmt.Errorf("claim/nats: get: %w", err)
	}
	if string(entry.Value()) != nodeID {
		return nil
	}
	if err := s.kv.Delete(key, nats.LastRevision(entry.Revision())); err != nil {
		if isRevisionConflict(err) || isKeyMissing(err) {
			return nil
		}
		return fmt.Errorf("claim/nats: delete: %w", err)
	}
	return nil
}

// Owner returns the live owner of the claim
func (s *NATSStore) Owner(_ context.Context, addr address.Address) (string, bool, error) {
	entry, err := s.kv.Get(claimKey(addr))
	if err != nil {
		if isKeyMissing(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("claim/nats: get: %w", err)
	}
	return string(entry.Value()), true, nil
}

// Close releases the connection when the store created it. Close is idempotent.
func (s *NATSStore) Close() error {
	if s.owned && s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	return nil
}

// claimKey encodes the address into the KV key alphabet
func claimKey(addr address.Address) string {
	return "claim." + base64.RawURLEncoding.EncodeToString([]byte(addr.String()))
}

func isKeyMissing(err error) bool {
	return errors.Is(err, nats.ErrKeyNotFound) || errors.Is(err, nats.ErrKeyDeleted)
}

func isRevisionConflict(err error) bool {
	if errors.Is(err, nats.ErrKeyExists) {
		return true
	}
	var apiErr *nats.APIError
	if errors.As(err, &apiErr) && apiErr != nil && apiErr.ErrorCode == nats.JSErrCodeStreamWrongLastSequence {
		return true
	}
	return false
}
