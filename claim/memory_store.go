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
	"sync"
	"time"

	"github.com/tochemey/vactor/address"
	gerrors "github.com/tochemey/vactor/errors"
)

type memoryClaim struct {
	owner     string
	expiresAt time.Time
}

// MemoryStore is an in-process Store. Several nodes of one process (tests,
// single binary deployments) share it to contend for the same addresses.
type MemoryStore struct {
	mu     sync.Mutex
	claims map[string]memoryClaim
	now    func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an instance of MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		claims: make(map[string]memoryClaim),
		now:    time.Now,
	}
}

// Acquire takes the claim when it is free, expired or already owned by nodeID
func (s *MemoryStore) Acquire(_ context.Context, addr address.Address, nodeID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	key := addr.String()
	if current, ok := s.claims[key]; ok && current.owner != nodeID && now.Before(current.expiresAt) {
		return gerrors.ErrAlreadyActiveElsewhere
	}
	s.claims[key] = memoryClaim{owner: nodeID, expiresAt: now.Add(ttl)}
	return nil
}

// Renew extends a claim owned by nodeID
func (s *MemoryStore) Renew(_ context.Context, addr address.Address, nodeID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	key := addr.String()
	current, ok := s.claims[key]
	if !ok || current.owner != nodeID || !now.Before(current.expiresAt) {
		return gerrors.ErrClaimLost
	}
	s.claims[key] = memoryClaim{owner: nodeID, expiresAt: now.Add(ttl)}
	return nil
}

// Release drops a claim owned by nodeID
func (s *MemoryStore) Release(_ context.Context, addr address.Address, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := addr.String()
	if current, ok := s.claims[key]; ok && current.owner == nodeID {
		delete(s.claims, key)
	}
	return nil
}

// Owner returns the live owner of the claim
func (s *MemoryStore) Owner(_ context.Context, addr address.Address) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.claims[addr.String()]
	if !ok || !s.now().Before(current.expiresAt) {
		return "", false, nil
	}
	return current.owner, true, nil
}

// Close clears the store
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.claims = make(map[string]memoryClaim)
	s.mu.Unlock()
	return nil
}
