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
	"errors"
	"fmt"
	"math"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/namespace"

	"github.com/tochemey/vactor/address"
	gerrors "github.com/tochemey/vactor/errors"
)

const defaultEtcdNamespace = "/vactor/claims/"

// EtcdStore implements Store with one etcd lease per claim. The claim key is
// written in a transaction guarded by CreateRevision == 0, renewals keep the
// lease alive and releases revoke it.
type EtcdStore struct {
	client *clientv3.Client
	kv     clientv3.KV
	lease  clientv3.Lease
	owned  bool
}

var _ Store = (*EtcdStore)(nil)

// NewEtcdStore connects to the given endpoints
func NewEtcdStore(ctx context.Context, endpoints []string, dialTimeout time.Duration) (*EtcdStore, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("claim/etcd: endpoints are required")
	}
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
		Context:     ctx,
	})
	if err != nil {
		return nil, fmt.Errorf("claim/etcd: connect: %w", err)
	}

	statusCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if _, err := client.Status(statusCtx, endpoints[0]); err != nil {
		if cerr := client.Close(); cerr != nil {
			return nil, errors.Join(err, fmt.Errorf("failed to close etcd client: %w", cerr))
		}
		return nil, fmt.Errorf("claim/etcd: failed to connect to etcd: %w", err)
	}

	store := NewEtcdStoreFromClient(client)
	store.owned = true
	return store, nil
}

// NewEtcdStoreFromClient creates the store on an existing client
func NewEtcdStoreFromClient(client *clientv3.Client) *EtcdStore {
	return &EtcdStore{
		client: client,
		kv:     namespace.NewKV(client.KV, defaultEtcdNamespace),
		lease:  namespace.NewLease(client.Lease, defaultEtcdNamespace),
	}
}

// Acquire writes the claim under a fresh lease when the key is absent
func (s *EtcdStore) Acquire(ctx context.Context, addr address.Address, nodeID string, ttl time.Duration) error {
	grant, err := s.lease.Grant(ctx, ttlSeconds(ttl))
	if err != nil {
		return fmt.Errorf("claim/etcd: failed to create lease: %w", err)
	}

	key := addr.String()
	txn, err := s.kv.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, nodeID, clientv3.WithLease(grant.ID))).
		Else(clientv3.OpGet(key)).
		Commit()
	if err != nil {
		_, _ = s.lease.Revoke(ctx, grant.ID)
		return fmt.Errorf("claim/etcd: failed to acquire claim: %w", err)
	}
	if txn.Succeeded {
		return nil
	}

	_, _ = s.lease.Revoke(ctx, grant.ID)
	kvs := txn.Responses[0].GetResponseRange().GetKvs()
	if len(kvs) == 0 || string(kvs[0].Value) != nodeID {
		return gerrors.ErrAlreadyActiveElsewhere
	}
	if _, err := s.lease.KeepAliveOnce(ctx, clientv3.LeaseID(kvs[0].Lease)); err != nil {
		return gerrors.ErrAlreadyActiveElsewhere
	}
	return nil
}

// Renew keeps the claim lease alive when owned by nodeID
func (s *EtcdStore) Renew(ctx context.Context, addr address.Address, nodeID string, _ time.Duration) error {
	resp, err := s.kv.Get(ctx, addr.String())
	if err != nil {
		return fmt.Errorf("claim/etcd: get: %w", err)
	}
	if len(resp.Kvs) == 0 || string(resp.Kvs[0].Value) != nodeID {
		return gerrors.ErrClaimLost
	}
	if _, err := s.lease.KeepAliveOnce(ctx, clientv3.LeaseID(resp.Kvs[0].Lease)); err != nil {
		return errors.Join(gerrors.ErrClaimLost, err)
	}
	return nil
}

// Release revokes the claim lease when owned by nodeID
func (s *EtcdStore) Release(ctx context.Context, addr address.Address, nodeID string) error {
	key := addr.String()
	resp, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("claim/etcd: get: %w", err)
	}
	if len(resp.Kvs) == 0 || string(resp.Kvs[0].Value) != nodeID {
		return nil
	}

	current := resp.Kvs[0]
	if _, err := s.kv.Txn(ctx).
		If(clientv3.Compare(clientv3.ModRevision(key), "=", current.ModRevision)).
		Then(clientv3.OpDelete(key)).
		Commit(); err != nil {
		return fmt.Errorf("claim/etcd: delete: %w", err)
	}
	_, _ = s.lease.Revoke(ctx, clientv3.LeaseID(current.Lease))
	return nil
}

// Owner returns the live owner of the claim
func (s *EtcdStore) Owner(ctx context.Context, addr address.Address) (string, bool, error) {
	resp, err := s.kv.Get(ctx, addr.String())
	if err != nil {
		return "", false, fmt.Errorf("claim/etcd: get: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return "", false, nil
	}
	return string(resp.Kvs[0].Value), true, nil
}

// Close closes the client when the store created it
func (s *EtcdStore) Close() error {
	if !s.owned || s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

// ttlSeconds rounds up to whole seconds since etcd leases have second granularity
func ttlSeconds(ttl time.Duration) int64 {
	seconds := int64(math.Ceil(ttl.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
