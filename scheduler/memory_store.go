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

package scheduler

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/tochemey/vactor/address"
	gerrors "github.com/tochemey/vactor/errors"
)

// MemoryStore keeps schedule records in memory
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an instance of MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Put(_ context.Context, record *Record) error {
	s.mu.Lock()
	s.records[record.ID] = *record
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) PutIfAbsent(_ context.Context, record *Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; ok {
		return false, nil
	}
	s.records[record.ID] = *record
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, gerrors.ErrScheduleNotFound
	}
	return &record, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Due(_ context.Context, now time.Time, limit int) ([]*Record, error) {
	s.mu.Lock()
	due := make([]*Record, 0)
	for _, record := range s.records {
		if !record.NextFireAt.After(now) {
			due = append(due, &record)
		}
	}
	s.mu.Unlock()

	sortByFireTime(due)
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryStore) List(_ context.Context, addr address.Address) ([]*Record, error) {
	s.mu.Lock()
	out := make([]*Record, 0)
	for _, record := range s.records {
		if record.Address.Equals(addr) {
			out = append(out, &record)
		}
	}
	s.mu.Unlock()
	sortByFireTime(out)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func sortByFireTime(records []*Record) {
	slices.SortFunc(records, func(a, b *Record) int {
		if c := a.NextFireAt.Compare(b.NextFireAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
