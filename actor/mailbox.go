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
	"context"
	"sync"
	"time"

	gods "github.com/Workiva/go-datastructures/queue"

	gerrors "github.com/tochemey/vactor/errors"
)

// mailbox is the bounded FIFO queue of one instance.
//
// The ring buffer rounds its size up to a power of two, so capacity is
// enforced here. A mutex serializes producers with the single consumer;
// notEmpty wakes the consumer and space is closed and replaced every time a
// slot frees up so that blocked senders can retry.
type mailbox struct {
	mu           sync.Mutex
	buffer       *gods.RingBuffer
	capacity     int
	policy       OverflowPolicy
	blockTimeout time.Duration
	closed       bool

	notEmpty chan struct{}
	space    chan struct{}

	onDrop func(envelope *Envelope)
}

func newMailbox(capacity int, policy OverflowPolicy, blockTimeout time.Duration, onDrop func(*Envelope)) *mailbox {
	if onDrop == nil {
		onDrop = func(*Envelope) {}
	}
	return &mailbox{
		buffer:       gods.NewRingBuffer(uint64(capacity)),
		capacity:     capacity,
		policy:       policy,
		blockTimeout: blockTimeout,
		notEmpty:     make(chan struct{}, 1),
		space:        make(chan struct{}),
		onDrop:       onDrop,
	}
}

// Enqueue appends the envelope. It returns false without error when the
// drop-newest policy rejected it. Under the block policy it waits up to the
// block timeout for a free slot and then fails with ErrMailboxFull.
func (m *mailbox) Enqueue(ctx context.Context, envelope *Envelope) (bool, error) {
	var deadline <-chan time.Time

	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return false, gerrors.ErrMailboxClosed
		}

		if int(m.buffer.Len()) < m.capacity {
			err := m.offerLocked(envelope)
			m.mu.Unlock()
			return err == nil, err
		}

		switch m.policy {
		case DropNewest:
			m.mu.Unlock()
			m.onDrop(envelope)
			return false, nil

		case DropOldest:
			oldest := m.pollLocked()
			err := m.offerLocked(envelope)
			m.mu.Unlock()
			if oldest != nil {
				m.onDrop(oldest)
			}
			return err == nil, err

		default:
			space := m.space
			m.mu.Unlock()

			if deadline == nil {
				timer := time.NewTimer(m.blockTimeout)
				defer timer.Stop()
				deadline = timer.C
			}

			select {
			case <-space:
			case <-deadline:
				return false, gerrors.ErrMailboxFull
			case <-ctx.Done():
				return false, gerrors.ErrMailboxFull
			}
		}
	}
}

// Dequeue returns the head entry, waiting for one. It returns false once the
// mailbox is closed and empty.
func (m *mailbox) Dequeue() (*Envelope, bool) {
	for {
		m.mu.Lock()
		if envelope := m.pollLocked(); envelope != nil {
			m.mu.Unlock()
			return envelope, true
		}
		if m.closed {
			m.mu.Unlock()
			return nil, false
		}
		notEmpty := m.notEmpty
		m.mu.Unlock()
		<-notEmpty
	}
}

// Close stops accepting entries and returns the number still queued. The
// queued entries remain available to Dequeue.
func (m *mailbox) Close() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		m.signalLocked()
		close(m.space)
		m.space = make(chan struct{})
	}
	return int(m.buffer.Len())
}

// Reject removes every queued entry and returns them
func (m *mailbox) Reject() []*Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	rejected := make([]*Envelope, 0, m.buffer.Len())
	for envelope := m.pollLocked(); envelope != nil; envelope = m.pollLocked() {
		rejected = append(rejected, envelope)
	}
	return rejected
}

// Len returns the number of queued entries
func (m *mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.buffer.Len())
}

// Dispose releases the ring buffer. The mailbox must not be used afterwards.
func (m *mailbox) Dispose() {
	m.buffer.Dispose()
}

func (m *mailbox) offerLocked(envelope *Envelope) error {
	if ok, err := m.buffer.Offer(envelope); err != nil || !ok {
		return gerrors.ErrMailboxFull
	}
	m.signalLocked()
	return nil
}

// pollLocked only reads when the buffer holds entries so that Get never blocks
func (m *mailbox) pollLocked() *Envelope {
	if m.buffer.Len() == 0 {
		return nil
	}
	item, err := m.buffer.Get()
	if err != nil {
		return nil
	}
	close(m.space)
	m.space = make(chan struct{})
	envelope, _ := item.(*Envelope)
	return envelope
}

func (m *mailbox) signalLocked() {
	select {
	case m.notEmpty <- struct{}{}:
	default:
	}
}
