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

// Package messaging is the pub/sub adapter of the runtime. Actors receive
// messages published on the topics their type declares and on their personal
// topic while they are active.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tochemey/vactor/address"
)

const personalTopicPrefix = "actor.personal"

var (
	// ErrBrokerClosed is returned when using a broker after Close
	ErrBrokerClosed = errors.New("messaging: broker is closed")
	// ErrInvalidTopic is returned for empty topics or topics with wildcards or spaces
	ErrInvalidTopic = errors.New("messaging: invalid topic")
)

// Message is a published message. Type selects the handler of the receiving
// actor type; Payload is opaque.
type Message struct {
	Topic   string `json:"topic"`
	Type    string `json:"type"`
	Payload []byte `json:"payload,omitempty"`
}

// Handler consumes messages of a subscription
type Handler func(ctx context.Context, msg *Message)

// Subscription is an active topic subscription
type Subscription interface {
	Topic() string
	Unsubscribe() error
}

// Broker publishes messages and dispatches them to subscribers.
// Delivery is at-most-once.
type Broker interface {
	Publish(ctx context.Context, topic string, msg *Message) error
	Subscribe(topic string, handler Handler) (Subscription, error)
	Close() error
}

// PersonalTopic returns the topic through which a single actor can be
// reached: actor.personal.{type}.{id}
func PersonalTopic(addr address.Address) string {
	return personalTopicPrefix + "." + addr.Type() + "." + addr.ID()
}

// ValidateTopic checks that topic can be used with every broker
func ValidateTopic(topic string) error {
	if strings.TrimSpace(topic) == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidTopic)
	}
	if strings.ContainsAny(topic, " \t\r\n*>") {
		return fmt.Errorf("%w: topic=(%s) must not contain wildcards or spaces", ErrInvalidTopic, topic)
	}
	if strings.HasPrefix(topic, ".") || strings.HasSuffix(topic, ".") || strings.Contains(topic, "..") {
		return fmt.Errorf("%w: topic=(%s) has an empty token", ErrInvalidTopic, topic)
	}
	return nil
}
