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
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"github.com/tochemey/vactor/log"
)

// NATSBroker implements Broker with NATS core pub/sub. Topics are mapped to
// the subjects "{prefix}.topic.{topic}" and messages are JSON encoded.
type NATSBroker struct {
	conn   *nats.Conn
	prefix string
	logger log.Logger
	owned  bool

	mu   sync.Mutex
	subs map[*nats.Subscription]struct{}

	closed atomic.Bool
}

var _ Broker = (*NATSBroker)(nil)

// NewNATSBroker connects to url
func NewNATSBroker(url, prefix string, logger log.Logger) (*NATSBroker, error) {
	conn, err := nats.Connect(url, nats.Name("vactor-broker"))
	if err != nil {
		return nil, fmt.Errorf("messaging/nats: connect: %w", err)
	}
	broker := NewNATSBrokerFromConn(conn, prefix, logger)
	broker.owned = true
	return broker, nil
}

// NewNATSBrokerFromConn creates a broker on an existing connection.
// Close does not close a connection it did not create.
func NewNATSBrokerFromConn(conn *nats.Conn, prefix string, logger log.Logger) *NATSBroker {
	if prefix == "" {
		prefix = "vactor"
	}
	if logger == nil {
		logger = log.DiscardLogger
	}
	return &NATSBroker{
		conn:   conn,
		prefix: prefix,
		logger: logger,
		subs:   make(map[*nats.Subscription]struct{}),
	}
}

// Publish sends msg to the topic subject
func (b *NATSBroker) Publish(_ context.Context, topic string, msg *Message) error {
	if b.closed.Load() {
		return ErrBrokerClosed
	}
	if err := ValidateTopic(topic); err != nil {
		return err
	}

	frame := *msg
	frame.Topic = topic
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("messaging/nats: encode message: %w", err)
	}
	if err := b.conn.Publish(b.subject(topic), payload); err != nil {
		return fmt.Errorf("messaging/nats: publish: %w", err)
	}
	return nil
}

// Subscribe registers handler on the topic subject. Handlers of a
// subscription run one at a time on the NATS dispatch goroutine.
func (b *NATSBroker) Subscribe(topic string, handler Handler) (Subscription, error) {
	if b.closed.Load() {
		return nil, ErrBrokerClosed
	}
	if err := ValidateTopic(topic); err != nil {
		return nil, err
	}

	sub, err := b.conn.Subscribe(b.subject(topic), func(natsMsg *nats.Msg) {
		msg := new(Message)
		if err := json.Unmarshal(natsMsg.Data, msg); err != nil {
			b.logger.Errorf("failed to decode message on topic=(%s): %v", topic, err)
			return
		}
		handler(context.Background(), msg)
	})
	if err != nil {
		return nil, fmt.Errorf("messaging/nats: subscribe: %w", err)
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return &natsSubscription{sub: sub, topic: topic, broker: b}, nil
}

// Flush waits until the server has processed every published message
func (b *NATSBroker) Flush() error {
	return b.conn.Flush()
}

// Close unsubscribes everything and closes the connection when owned
func (b *NATSBroker) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.mu.Lock()
	for sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = make(map[*nats.Subscription]struct{})
	b.mu.Unlock()
	if b.owned {
		b.conn.Close()
	}
	return nil
}

func (b *NATSBroker) subject(topic string) string {
	return b.prefix + ".topic." + topic
}

type natsSubscription struct {
	sub    *nats.Subscription
	topic  string
	broker *NATSBroker
}

func (s *natsSubscription) Topic() string {
	return s.topic
}

func (s *natsSubscription) Unsubscribe() error {
	s.broker.mu.Lock()
	_, ok := s.broker.subs[s.sub]
	delete(s.broker.subs, s.sub)
	s.broker.mu.Unlock()
	if !ok {
		return nil
	}
	return s.sub.Unsubscribe()
}
