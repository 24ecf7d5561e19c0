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

package messaging

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryBroker dispatches messages synchronously within the process.
// Publish returns once every subscriber handler has returned.
type MemoryBroker struct {
	mu     sync.RWMutex
	topics map[string]map[string]*memorySubscription
	closed bool
}

var _ Broker = (*MemoryBroker)(nil)

// NewMemoryBroker creates an instance of MemoryBroker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: make(map[string]map[string]*memorySubscription)}
}

// Publish delivers msg to every subscriber of topic
func (b *MemoryBroker) Publish(ctx context.Context, topic string, msg *Message) error {
	if err := ValidateTopic(topic); err != nil {
		return err
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBrokerClosed
	}
	subscribers := make([]*memorySubscription, 0, len(b.topics[topic]))
	for _, sub := range b.topics[topic] {
		subscribers = append(subscribers, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subscribers {
		delivered := *msg
		delivered.Topic = topic
		sub.handler(ctx, &delivered)
	}
	return nil
}

// Subscribe registers handler on topic
func (b *MemoryBroker) Subscribe(topic string, handler Handler) (Subscription, error) {
	if err := ValidateTopic(topic); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}

	sub := &memorySubscription{
		id:      uuid.NewString(),
		topic:   topic,
		handler: handler,
		broker:  b,
	}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[string]*memorySubscription)
	}
	b.topics[topic][sub.id] = sub
	return sub, nil
}

// Subscribers returns the number of subscriptions of topic
func (b *MemoryBroker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Close drops every subscription
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	b.closed = true
	b.topics = make(map[string]map[string]*memorySubscription)
	b.mu.Unlock()
	return nil
}

type memorySubscription struct {
	id      string
	topic   string
	handler Handler
	broker  *MemoryBroker
}

func (s *memorySubscription) Topic() string {
	return s.topic
}

func (s *memorySubscription) Unsubscribe() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	if subs, ok := s.broker.topics[s.topic]; ok {
		delete(subs, s.id)
		if len(subs) == 0 {
			delete(s.broker.topics, s.topic)
		}
	}
	return nil
}
