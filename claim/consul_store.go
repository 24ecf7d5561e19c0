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
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/consul/api"

	"github.com/tochemey/vactor/address"
	gerrors "github.com/tochemey/vactor/errors"
)

const defaultConsulPrefix = "vactor/claims/"

type consulClaim struct {
	Owner     string `json:"owner"`
	ExpiresAt int64  `json:"expiresAt"`
}

// ConsulStore implements Store on the consul KV with check-and-set writes.
// Expiry is stored in the value and compared against the local clock, so
// node clocks are expected to be roughly in sync.
type ConsulStore struct {
	kv     *api.KV
	prefix string
	now    func() time.Time
}

var _ Store = (*ConsulStore)(nil)

// NewConsulStore creates a ConsulStore talking to the agent at addr
func NewConsulStore(addr string) (*ConsulStore, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = addr

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("claim/consul: failed to create consul client: %w", err)
	}
	return NewConsulStoreFromClient(client), nil
}

// NewConsulStoreFromClient creates the store on an existing client
func NewConsulStoreFromClient(client *api.Client) *ConsulStore {
	return &ConsulStore{kv: client.KV(), prefix: defaultConsulPrefix, now: time.Now}
}

// Acquire writes the claim when absent, expired or owned by nodeID
func (s *ConsulStore) Acquire(ctx context.Context, addr address.Address, nodeID string, ttl time.Duration) error {
	pair, current, err := s.get(ctx, addr)
	if err != nil {
		return err
	}

	var index uint64
	if pair != nil {
		if current.Owner != nodeID && s.now().UnixMilli() < current.ExpiresAt {
			return gerrors.ErrAlreadyActiveElsewhere
		}
		index = pair.ModifyIndex
	}

	ok, err := s.cas(ctx, addr, nodeID, ttl, index)
	if err != nil {
		return err
	}
	if !ok {
		return gerrors.ErrAlreadyActiveElsewhere
	}
	return nil
}

// Renew extends a claim owned by nodeID
func (s *ConsulStore) Renew(ctx context.Context, addr address.Address, nodeID string, ttl time.Duration) error {
	pair, current, err := s.get(ctx, addr)
	if err != nil {
		return err
	}
	if pair == nil || current.Owner != nodeID {
		return gerrors.ErrClaimLost
	}

	ok, err := s.cas(ctx, addr, nodeID, ttl, pair.ModifyIndex)
	if err != nil {
		return err
	}
	if !ok {
		return gerrors.ErrClaimLost
	}
	return nil
}

// Release deletes a claim owned by nodeID
func (s *ConsulStore) Release(ctx context.Context, addr address.Address, nodeID string) error {
	pair, current, err := s.get(ctx, addr)
	if err != nil {
		return err
	}
	if pair == nil || current.Owner != nodeID {
		return nil
	}
	if _, _, err := s.kv.DeleteCAS(pair, (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return fmt.Errorf("claim/consul: delete: %w", err)
	}
	return nil
}

// Owner returns the live owner of the claim
func (s *ConsulStore) Owner(ctx context.Context, addr address.Address) (string, bool, error) {
	pair, current, err := s.get(ctx, addr)
	if err != nil {
		return "", false, err
	}
	if pair == nil || s.now().UnixMilli() >= current.ExpiresAt {
		return "", false, nil
	}
	return current.Owner, true, nil
}

// Close is a no-op since the consul client holds no connection
func (s *ConsulStore) Close() error {
	return nil
}

func (s *ConsulStore) get(ctx context.Context, addr address.Address) (*api.KVPair, consulClaim, error) {
	var current consulClaim
	pair, _, err := s.kv.Get(s.prefix+addr.String(), (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, current, fmt.Errorf("claim/consul: get: %w", err)
	}
	if pair == nil {
		return nil, current, nil
	}
	if err := json.Unmarshal(pair.Value, &current); err != nil {
		return nil, current, fmt.Errorf("claim/consul: decode: %w", err)
	}
	return pair, current, nil
}

func (s *ConsulStore) cas(ctx context.Context, addr address.Address, nodeID string, ttl time.Duration, index uint64) (bool, error) {
	value, err := json.Marshal(consulClaim{Owner: nodeID, ExpiresAt: s.now().Add(ttl).UnixMilli()})
	if err != nil {
		return false, err
	}
	ok, _, err := s.kv.CAS(&api.KVPair{
		Key:         s.prefix + addr.String(),
		Value:       value,
		ModifyIndex: index,
	}, (&api.WriteOptions{}).WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("claim/consul: cas: %w", err)
	}
	return ok, nil
}
