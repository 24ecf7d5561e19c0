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

package placement

import (
	"context"
	"sync"

	"github.com/tochemey/vactor/address"
)

// Store persists placement state for the Service
type Store interface {
	PutNode(ctx context.Context, node *NodeInfo) error
	DeleteNode(ctx context.Context, nodeID string) error
	PutRecord(ctx context.Context, record *Record) error
	DeleteRecord(ctx context.Context, addr address.Address) error
	// Load returns every persisted node and record
	Load(ctx context.Context) ([]*NodeInfo, []*Record, error)
	Close() error
}

// MemoryStore keeps placement state in memory
type MemoryStore struct {
	mu      sync.Mutex
	nodes   map[string]NodeInfo
	records map[string]Record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an instance of MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:   make(map[string]NodeInfo),
		records: make(map[string]Record),
	}
}

func (s *MemoryStore) PutNode(_ context.Context, node *NodeInfo) error {
	s.mu.Lock()
	s.nodes[node.NodeID] = *node
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DeleteNode(_ context.Context, nodeID string) error {
	s.mu.Lock()
	delete(s.nodes, nodeID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) PutRecord(_ context.Context, record *Record) error {
	s.mu.Lock()
	s.records[record.Address.String()] = *record
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DeleteRecord(_ context.Context, addr address.Address) error {
	s.mu.Lock()
	delete(s.records, addr.String())
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(context.Context) ([]*NodeInfo, []*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := make([]*NodeInfo, 0, len(s.nodes))
	for _, node := range s.nodes {
		nodes = append(nodes, &node)
	}
	records := make([]*Record, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, &record)
	}
	return nodes, records, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
