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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/vactor/address"
	"github.com/tochemey/vactor/internal/testutil"
	"github.com/tochemey/vactor/log"
)

type collector struct {
	mu       sync.Mutex
	messages []*Message
}

func (c *collector) handle(_ context.Context, msg *Message) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
}

func (c *collector) received() []*Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Message(nil), c.messages...)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "actor.personal.counter.a1", PersonalTopic(address.New("counter", "a1")))
	require.NoError(t, ValidateTopic("orders.created"))
	require.NoError(t, ValidateTopic(PersonalTopic(address.New("counter", "a.1"))))
	for _, topic := range []string{"", " ", "orders.*", "orders.>", "orders created", ".orders", "orders.", "orders..created"} {
		require.ErrorIs(t, ValidateTopic(topic), ErrInvalidTopic, topic)
	}
}

func TestMemoryBroker(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()

	first, second := new(collector), new(collector)
	sub1, err := broker.Subscribe("orders", first.handle)
	require.NoError(t, err)
	assert.Equal(t, "orders", sub1.Topic())
	_, err = broker.Subscribe("orders", second.handle)
	require.NoError(t, err)
	assert.Equal(t, 2, broker.Subscribers("orders"))

	require.NoError(t, broker.Publish(ctx, "orders", &Message{Type: "created", Payload: []byte("1")}))
	require.Len(t, first.received(), 1)
	require.Len(t, second.received(), 1)
	assert.Equal(t, "orders", first.received()[0].Topic)
	assert.Equal(t, "created", first.received()[0].Type)

	require.NoError(t, sub1.Unsubscribe())
	require.NoError(t, broker.Publish(ctx, "orders", &Message{Type: "created"}))
	assert.Len(t, first.received(), 1)
	assert.Len(t, second.received(), 2)

	require.NoError(t, broker.Publish(ctx, "nobody", &Message{Type: "created"}))
	require.Error(t, broker.Publish(ctx, "bad topic", &Message{}))
	_, err = broker.Subscribe("", first.handle)
	require.Error(t, err)

	require.NoError(t, broker.Close())
	require.ErrorIs(t, broker.Publish(ctx, "orders", &Message{}), ErrBrokerClosed)
	_, err = broker.Subscribe("orders", first.handle)
	require.ErrorIs(t, err, ErrBrokerClosed)
}

func TestNATSBroker(t *testing.T) {
	srv := testutil.StartNATS(t)
	ctx := context.Background()

	broker, err := NewNATSBroker(srv.ClientURL(), "test", log.DiscardLogger)
	require.NoError(t, err)

	received := new(collector)
	sub, err := broker.Subscribe("orders", received.handle)
	require.NoError(t, err)
	assert.Equal(t, "orders", sub.Topic())
	require.NoError(t, broker.Flush())

	require.NoError(t, broker.Publish(ctx, "orders", &Message{Type: "created", Payload: []byte(`{"id":1}`)}))
	require.Eventually(t, func() bool { return len(received.received()) == 1 }, 2*time.Second, 10*time.Millisecond)

	msg := received.received()[0]
	assert.Equal(t, "orders", msg.Topic)
	assert.Equal(t, "created", msg.Type)
	assert.JSONEq(t, `{"id":1}`, string(msg.Payload))

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, broker.Publish(ctx, "orders", &Message{Type: "ignored"}))
	require.NoError(t, broker.Flush())
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, received.received(), 1)

	require.NoError(t, broker.Close())
	require.NoError(t, broker.Close())
	require.ErrorIs(t, broker.Publish(ctx, "orders", &Message{}), ErrBrokerClosed)
}
