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
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/atomic"

	"github.com/tochemey/vactor/address"
	"github.com/tochemey/vactor/config"
	gerrors "github.com/tochemey/vactor/errors"
	"github.com/tochemey/vactor/internal/validation"
	"github.com/tochemey/vactor/log"
	"github.com/tochemey/vactor/telemetry"
)

// Service is the in-process placement service.
//
// A single mutex guards the node and record maps: placement calls carry
// routing metadata only and are expected to be short. When a Store is set,
// every mutation is persisted before it becomes visible.
type Service struct {
	mu      sync.Mutex
	nodes   map[string]*NodeInfo
	records map[string]*Record
	// record keys per owning node
	owned map[string]mapset.Set[string]

	store   Store
	logger  log.Logger
	metrics *telemetry.Metrics

	gracePeriod   time.Duration
	sweepInterval time.Duration
	removeAfter   time.Duration
	now           func() time.Time

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

var _ Directory = (*Service)(nil)

// NewService creates a placement Service
func NewService(opts ...Option) *Service {
	service := &Service{
		nodes:         make(map[string]*NodeInfo),
		records:       make(map[string]*Record),
		owned:         make(map[string]mapset.Set[string]),
		logger:        log.DiscardLogger,
		gracePeriod:   config.DefaultHeartbeatGracePeriod,
		sweepInterval: config.DefaultSweepInterval,
		removeAfter:   config.DefaultUnhealthyRemovalWindow,
		now:           time.Now,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt.Apply(service)
	}
	return service
}

// Start restores the persisted nodes and records, then starts the heartbeat
// sweeper. Restored nodes get a fresh heartbeat deadline.
func (s *Service) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	if err := s.restore(ctx); err != nil {
		s.started.Store(false)
		return err
	}

	go s.sweepLoop()
	s.logger.Infof("placement service started (grace=%s, sweep=%s)", s.gracePeriod, s.sweepInterval)
	return nil
}

// Stop stops the sweeper. Placement state is kept.
func (s *Service) Stop(context.Context) error {
	if !s.started.Load() {
		return nil
	}
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	s.logger.Info("placement service stopped")
	return nil
}

// Resolve returns the record of addr or assigns the healthy node with the
// lowest activeCount/capacity ratio. Ties go to the smallest node id.
func (s *Service) Resolve(ctx context.Context, addr address.Address) (*Record, error) {
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	key := addr.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.records[key]; ok {
		s.metrics.RecordResolve(ctx, "existing")
		return cloneRecord(record), nil
	}

	node := s.selectNodeLocked()
	if node == nil {
		s.metrics.RecordResolve(ctx, "no_capacity")
		return nil, gerrors.ErrNoCapacity
	}

	record := &Record{
		Address:    addr,
		NodeID:     node.NodeID,
		Endpoint:   node.Endpoint,
		AssignedAt: s.now().UTC(),
	}

	updated := *node
	updated.ActiveCount++
	if err := s.persistRecord(ctx, record, &updated); err != nil {
		return nil, err
	}

	s.records[key] = record
	node.ActiveCount++
	s.ownedLocked(node.NodeID).Add(key)
	s.metrics.RecordResolve(ctx, "assigned")
	s.logger.Debugf("actor=(%s) placed on node=(%s)", key, node.NodeID)
	return cloneRecord(record), nil
}

// Lookup returns the record of addr without assigning one
func (s *Service) Lookup(_ context.Context, addr address.Address) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[addr.String()]
	if !ok {
		return nil, false, nil
	}
	return cloneRecord(record), true, nil
}

// Release removes the record of addr when it is still owned by nodeID.
// Releases from stale owners are ignored so they never evict the new owner.
func (s *Service) Release(ctx context.Context, addr address.Address, nodeID string) error {
	key := addr.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok || record.NodeID != nodeID {
		return nil
	}

	if s.store != nil {
		if err := s.store.DeleteRecord(ctx, addr); err != nil {
			return fmt.Errorf("placement: releasing %s: %w", key, err)
		}
	}

	s.dropRecordLocked(key, record)
	if node, ok := s.nodes[nodeID]; ok {
		s.persistNode(ctx, node)
	}
	return nil
}

// RegisterNode adds a node or refreshes a known one, marking it healthy
func (s *Service) RegisterNode(ctx context.Context, info *NodeInfo) error {
	if info == nil {
		return gerrors.NewErrInvalidConfig(fmt.Errorf("node info is required"))
	}
	if err := validation.New(validation.AllErrors()).
		AddValidator(validation.NewEmptyStringValidator("node_id", info.NodeID)).
		AddValidator(validation.NewEmptyStringValidator("endpoint", info.Endpoint)).
		AddAssertion(info.Capacity > 0, "the [capacity] must be greater than zero").
		Validate(); err != nil {
		return gerrors.NewErrInvalidConfig(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	node, ok := s.nodes[info.NodeID]
	if !ok {
		node = &NodeInfo{NodeID: info.NodeID, RegisteredAt: now}
	}

	updated := *node
	updated.Endpoint = info.Endpoint
	updated.Capacity = info.Capacity
	updated.Healthy = true
	updated.LastHeartbeat = now
	updated.ActiveCount = s.ownedLocked(info.NodeID).Cardinality()

	if s.store != nil {
		if err := s.store.PutNode(ctx, &updated); err != nil {
			return fmt.Errorf("placement: registering node %s: %w", info.NodeID, err)
		}
	}

	*node = updated
	s.nodes[info.NodeID] = node
	s.logger.Infof("node=(%s) registered at endpoint=(%s) with capacity=%d", node.NodeID, node.Endpoint, node.Capacity)
	return nil
}

// DeregisterNode removes a node and every record it owns
func (s *Service) DeregisterNode(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[nodeID]; !ok {
		return nil
	}

	dropped := s.invalidateLocked(ctx, nodeID)
	delete(s.nodes, nodeID)
	delete(s.owned, nodeID)
	if s.store != nil {
		if err := s.store.DeleteNode(ctx, nodeID); err != nil {
			s.logger.Errorf("failed to delete node=(%s) from the placement store: %v", nodeID, err)
		}
	}
	s.logger.Infof("node=(%s) deregistered, %d placements released", nodeID, dropped)
	return nil
}

// Heartbeat refreshes the heartbeat of a healthy node. Unknown or unhealthy
// nodes are rejected so that they fence themselves and register again.
func (s *Service) Heartbeat(_ context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[nodeID]
	if !ok || !node.Healthy {
		return fmt.Errorf("node=(%s) %w", nodeID, gerrors.ErrNodeNotRegistered)
	}
	node.LastHeartbeat = s.now().UTC()
	return nil
}

// Nodes returns every known node ordered by id
func (s *Service) Nodes(context.Context) ([]*NodeInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := make([]*NodeInfo, 0, len(s.nodes))
	for _, node := range s.nodes {
		clone := *node
		nodes = append(nodes, &clone)
	}
	slices.SortFunc(nodes, func(a, b *NodeInfo) int { return cmp.Compare(a.NodeID, b.NodeID) })
	return nodes, nil
}

// Records returns the records matching filter in address order
func (s *Service) Records(_ context.Context, filter RecordFilter) ([]*Record, string, error) {
	s.mu.Lock()
	keys := make([]string, 0, len(s.records))
	for key, record := range s.records {
		if filter.ActorType != "" && record.Address.Type() != filter.ActorType {
			continue
		}
		if filter.Cursor != "" && key <= filter.Cursor {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)

	next := ""
	if filter.Limit > 0 && len(keys) > filter.Limit {
		keys = keys[:filter.Limit]
		next = keys[len(keys)-1]
	}

	records := make([]*Record, 0, len(keys))
	for _, key := range keys {
		records = append(records, cloneRecord(s.records[key]))
	}
	s.mu.Unlock()
	return records, next, nil
}

// sweep marks silent nodes unhealthy, invalidating their records, and removes
// nodes that stayed unhealthy for the removal window.
func (s *Service) sweep(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for nodeID, node := range s.nodes {
		silence := now.Sub(node.LastHeartbeat)
		switch {
		case node.Healthy && silence > s.gracePeriod:
			node.Healthy = false
			dropped := s.invalidateLocked(ctx, nodeID)
			s.persistNode(ctx, node)
			s.metrics.RecordUnreachable(ctx, nodeID)
			s.logger.Warnf("node=(%s) is unreachable: no heartbeat for %s, %d placements invalidated",
				nodeID, silence.Round(time.Millisecond), dropped)
		case !node.Healthy && silence > s.gracePeriod+s.removeAfter:
			delete(s.nodes, nodeID)
			delete(s.owned, nodeID)
			if s.store != nil {
				if err := s.store.DeleteNode(ctx, nodeID); err != nil {
					s.logger.Errorf("failed to delete node=(%s) from the placement store: %v", nodeID, err)
				}
			}
			s.logger.Infof("unhealthy node=(%s) removed", nodeID)
		}
	}
}

func (s *Service) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer func() {
		ticker.Stop()
		close(s.done)
	}()

	for {
		select {
		case <-ticker.C:
			s.sweep(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *Service) restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	nodes, records, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("placement: restoring state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	for _, node := range nodes {
		node.LastHeartbeat = now
		node.Healthy = true
		node.ActiveCount = 0
		s.nodes[node.NodeID] = node
	}

	for _, record := range records {
		key := record.Address.String()
		node, ok := s.nodes[record.NodeID]
		if !ok {
			if err := s.store.DeleteRecord(ctx, record.Address); err != nil {
				s.logger.Warnf("failed to delete orphan record of actor=(%s): %v", key, err)
			}
			continue
		}
		s.records[key] = record
		s.ownedLocked(record.NodeID).Add(key)
		node.ActiveCount++
	}

	s.logger.Infof("placement state restored: %d nodes, %d records", len(s.nodes), len(s.records))
	return nil
}

// selectNodeLocked compares activeCount/capacity ratios by cross
// multiplication to stay in integers
func (s *Service) selectNodeLocked() *NodeInfo {
	var best *NodeInfo
	for _, node := range s.nodes {
		if !node.Healthy || node.ActiveCount >= node.Capacity {
			continue
		}
		if best == nil {
			best = node
			continue
		}
		lhs := node.ActiveCount * best.Capacity
		rhs := best.ActiveCount * node.Capacity
		if lhs < rhs || (lhs == rhs && strings.Compare(node.NodeID, best.NodeID) < 0) {
			best = node
		}
	}
	return best
}

func (s *Service) invalidateLocked(ctx context.Context, nodeID string) int {
	keys := s.ownedLocked(nodeID).ToSlice()
	for _, key := range keys {
		record, ok := s.records[key]
		if !ok {
			continue
		}
		if s.store != nil {
			if err := s.store.DeleteRecord(ctx, record.Address); err != nil {
				s.logger.Errorf("failed to delete record of actor=(%s): %v", key, err)
			}
		}
		s.dropRecordLocked(key, record)
	}
	return len(keys)
}

func (s *Service) dropRecordLocked(key string, record *Record) {
	delete(s.records, key)
	s.ownedLocked(record.NodeID).Remove(key)
	if node, ok := s.nodes[record.NodeID]; ok && node.ActiveCount > 0 {
		node.ActiveCount--
	}
}

func (s *Service) ownedLocked(nodeID string) mapset.Set[string] {
	set, ok := s.owned[nodeID]
	if !ok {
		set = mapset.NewThreadUnsafeSet[string]()
		s.owned[nodeID] = set
	}
	return set
}

func (s *Service) persistRecord(ctx context.Context, record *Record, node *NodeInfo) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.PutRecord(ctx, record); err != nil {
		return fmt.Errorf("placement: persisting record of %s: %w", record.Address, err)
	}
	if err := s.store.PutNode(ctx, node); err != nil {
		return fmt.Errorf("placement: persisting node %s: %w", node.NodeID, err)
	}
	return nil
}

// persistNode is best effort: node counters are rebuilt from records on restore
func (s *Service) persistNode(ctx context.Context, node *NodeInfo) {
	if s.store == nil {
		return
	}
	if err := s.store.PutNode(ctx, node); err != nil {
		s.logger.Errorf("failed to persist node=(%s): %v", node.NodeID, err)
	}
}

func cloneRecord(record *Record) *Record {
	clone := *record
	return &clone
}
