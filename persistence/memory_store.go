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
	"slices"
	"sync"

	"github.com/tochemey/vactor/address"
)

// MemoryStore keeps state in process memory. It is meant for tests and
// single process deployments; state does not survive a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
	closed bool
}

var (
	_ StateStore = (*MemoryStore)(nil)
	_ Lister     = (*MemoryStore)(nil)
)

// NewMemoryStore creates a new instance of MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string][]byte)}
}

// Load returns the saved state of the address
func (s *MemoryStore) Load(ctx context.Context, addr address.Address) ([]byte, bool, error) {
	if err := contextErr(ctx); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrStoreClosed
	}
	state, ok := s.states[addr.String()]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(state), true, nil
}

// Save replaces the state of the address
func (s *MemoryStore) Save(ctx context.Context, addr address.Address, state []byte) error {
	if err := contextErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.states[addr.String()] = slices.Clone(state)
	return nil
}

// Delete removes the state of the address
func (s *MemoryStore) Delete(ctx context.Context, addr address.Address) error {
	if err := contextErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	delete(s.states, addr.String())
	return nil
}

// Addresses lists the stored addresses of the given actor type
func (s *MemoryStore) Addresses(ctx context.Context, actorType string) ([]address.Address, error) {
	if err := contextErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	keys := make([]string, 0, len(s.states))
	for key := range s.states {
		keys = append(keys, key)
	}
	s.mu.RUnlock()
	return parseKeys(keys, actorType), nil
}

// Close clears the store
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.states = make(map[string][]byte)
	s.mu.Unlock()
	return nil
}

// parseKeys converts raw keys into sorted addresses, skipping keys that are
// not addresses or do not match the actor type.
func parseKeys(keys []string, actorType string) []address.Address {
	slices.Sort(keys)
	out := make([]address.Address, 0, len(keys))
	for _, key := range keys {
		addr, err := address.Parse(key)
		if err != nil {
			continue
		}
		if actorType != "" && addr.Type() != actorType {
			continue
		}
		out = append(out, addr)
	}
	return out
}
