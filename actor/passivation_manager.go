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

package actor

import (
	cheaps "container/heap"
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/tochemey/vactor/log"
	"github.com/tochemey/vactor/passivation"
)

// passivationManager deactivates idle instances of a node.
// Instances with a time-based strategy are kept in a min-heap ordered by
// deadline (last activity + idle timeout) and a single goroutine sleeps until
// the earliest one expires. Message-count strategies are checked by the
// instance loop itself.
type passivationManager struct {
	logger log.Logger

	mu      sync.Mutex
	entries map[string]*passivationEntry
	queue   passivationHeap

	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool

	// passivateFn starts the deactivation of an idle instance. It returns
	// false when the instance is busy and must be rescheduled.
	passivateFn func(*instance) bool
}

type passivationEntry struct {
	instance *instance
	key      string
	timeout  time.Duration
	deadline time.Time
	// position in the heap, -1 when absent
	index int
}

func newPassivationManager(logger log.Logger, passivateFn func(*instance) bool) *passivationManager {
	return &passivationManager{
		logger:      logger,
		entries:     make(map[string]*passivationEntry),
		wake:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		passivateFn: passivateFn,
	}
}

func (m *passivationManager) Start(context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go m.run()
}

func (m *passivationManager) Stop(context.Context) {
	if !m.started.Load() {
		return
	}
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}

// Register tracks an instance whose strategy is time based. Other
// strategies are ignored.
func (m *passivationManager) Register(inst *instance, strategy passivation.Strategy) {
	timed, ok := strategy.(*passivation.TimeBasedStrategy)
	if !ok || timed.Timeout() <= 0 || !m.started.Load() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[inst.key]; ok && existing.index >= 0 {
		cheaps.Remove(&m.queue, existing.index)
	}

	entry := &passivationEntry{instance: inst, key: inst.key, timeout: timed.Timeout(), index: -1}
	entry.refreshDeadline()
	m.entries[inst.key] = entry
	cheaps.Push(&m.queue, entry)
	m.notifyLocked()
}

// Unregister stops tracking the instance
func (m *passivationManager) Unregister(inst *instance) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[inst.key]
	if !ok || entry.instance != inst {
		return
	}
	if entry.index >= 0 {
		cheaps.Remove(&m.queue, entry.index)
	}
	delete(m.entries, inst.key)
}

// Touch moves the deadline of the instance after a processed message
func (m *passivationManager) Touch(inst *instance) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[inst.key]
	if !ok || entry.instance != inst || entry.index < 0 {
		return
	}
	entry.refreshDeadline()
	cheaps.Fix(&m.queue, entry.index)
	m.notifyLocked()
}

// Len returns the number of tracked instances
func (m *passivationManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *passivationManager) run() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer func() {
		timer.Stop()
		close(m.done)
	}()

	for {
		entry, wait := m.next()
		if entry == nil {
			select {
			case <-m.wake:
				continue
			case <-m.stop:
				return
			}
		}

		if wait <= 0 {
			m.trigger(entry)
			continue
		}

		timer.Reset(wait)
		select {
		case <-timer.C:
			m.trigger(entry)
		case <-m.wake:
			timer.Stop()
		case <-m.stop:
			return
		}
	}
}

func (m *passivationManager) next() (*passivationEntry, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil, 0
	}
	entry := m.queue[0]
	return entry, max(time.Until(entry.deadline), 0)
}

func (m *passivationManager) trigger(expected *passivationEntry) {
	m.mu.Lock()
	if len(m.queue) == 0 || m.queue[0] != expected || expected.deadline.After(time.Now()) {
		m.mu.Unlock()
		return
	}
	cheaps.Pop(&m.queue)
	m.mu.Unlock()

	passivated := m.passivateFn(expected.instance)

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.entries[expected.key]
	if !ok || current != expected {
		return
	}
	if passivated {
		delete(m.entries, expected.key)
		return
	}

	// busy: retry a full period from now unless a message moves it earlier
	expected.deadline = time.Now().Add(expected.timeout)
	cheaps.Push(&m.queue, expected)
	m.notifyLocked()
}

func (m *passivationManager) notifyLocked() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (entry *passivationEntry) refreshDeadline() {
	last := entry.instance.lastActivity.Load()
	if last.IsZero() {
		last = time.Now()
	}
	entry.deadline = last.Add(entry.timeout)
}

type passivationHeap []*passivationEntry

func (h passivationHeap) Len() int { return len(h) }

func (h passivationHeap) Less(i, j int) bool {
	return h[i].deadline.Before(h[j].deadline)
}

func (h passivationHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *passivationHeap) Push(x any) {
	entry := x.(*passivationEntry)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *passivationHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*h = old[:n-1]
	return entry
}
