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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/vactor/errors"
)

func envelopes(types ...string) []*Envelope {
	result := make([]*Envelope, 0, len(types))
	for _, messageType := range types {
		result = append(result, newEnvelope(messageType, nil, SourceDirect))
	}
	return result
}

func drain(m *mailbox) []string {
	var types []string
	for m.Len() > 0 {
		envelope, ok := m.Dequeue()
		if !ok {
			break
		}
		types = append(types, envelope.MessageType)
	}
	return types
}

func TestMailbox(t *testing.T) {
	ctx := context.Background()

	t.Run("With FIFO order", func(t *testing.T) {
		m := newMailbox(8, DropOldest, time.Second, nil)
		for _, envelope := range envelopes("a", "b", "c") {
			accepted, err := m.Enqueue(ctx, envelope)
			require.NoError(t, err)
			require.True(t, accepted)
		}
		assert.Equal(t, []string{"a", "b", "c"}, drain(m))
	})

	t.Run("With capacity not rounded up", func(t *testing.T) {
		m := newMailbox(3, DropNewest, time.Second, nil)
		for _, envelope := range envelopes("a", "b", "c", "d") {
			_, err := m.Enqueue(ctx, envelope)
			require.NoError(t, err)
		}
		assert.Equal(t, 3, m.Len())
	})

	t.Run("With drop oldest policy", func(t *testing.T) {
		var dropped []string
		m := newMailbox(2, DropOldest, time.Second, func(e *Envelope) { dropped = append(dropped, e.MessageType) })
		for _, envelope := range envelopes("a", "b", "c") {
			accepted, err := m.Enqueue(ctx, envelope)
			require.NoError(t, err)
			require.True(t, accepted)
		}
		assert.Equal(t, []string{"a"}, dropped)
		assert.Equal(t, []string{"b", "c"}, drain(m))
	})

	t.Run("With drop newest policy", func(t *testing.T) {
		var dropped []string
		m := newMailbox(2, DropNewest, time.Second, func(e *Envelope) { dropped = append(dropped, e.MessageType) })
		var accepted []bool
		for _, envelope := range envelopes("a", "b", "c") {
			ok, err := m.Enqueue(ctx, envelope)
			require.NoError(t, err)
			accepted = append(accepted, ok)
		}
		assert.Equal(t, []bool{true, true, false}, accepted)
		assert.Equal(t, []string{"c"}, dropped)
		assert.Equal(t, []string{"a", "b"}, drain(m))
	})

	t.Run("With block policy timing out", func(t *testing.T) {
		m := newMailbox(1, Block, 50*time.Millisecond, nil)
		_, err := m.Enqueue(ctx, newEnvelope("a", nil, SourceDirect))
		require.NoError(t, err)

		start := time.Now()
		accepted, err := m.Enqueue(ctx, newEnvelope("b", nil, SourceDirect))
		require.ErrorIs(t, err, gerrors.ErrMailboxFull)
		assert.False(t, accepted)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("With block policy waiting for space", func(t *testing.T) {
		m := newMailbox(1, Block, 5*time.Second, nil)
		_, err := m.Enqueue(ctx, newEnvelope("a", nil, SourceDirect))
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(50 * time.Millisecond)
			envelope, ok := m.Dequeue()
			assert.True(t, ok)
			assert.Equal(t, "a", envelope.MessageType)
		}()

		accepted, err := m.Enqueue(ctx, newEnvelope("b", nil, SourceDirect))
		require.NoError(t, err)
		assert.True(t, accepted)
		wg.Wait()
		assert.Equal(t, []string{"b"}, drain(m))
	})

	t.Run("With close", func(t *testing.T) {
		m := newMailbox(4, DropOldest, time.Second, nil)
		for _, envelope := range envelopes("a", "b") {
			_, err := m.Enqueue(ctx, envelope)
			require.NoError(t, err)
		}
		assert.Equal(t, 2, m.Close())

		_, err := m.Enqueue(ctx, newEnvelope("c", nil, SourceDirect))
		require.ErrorIs(t, err, gerrors.ErrMailboxClosed)

		// queued entries survive the close
		assert.Equal(t, []string{"a", "b"}, drain(m))
		_, ok := m.Dequeue()
		assert.False(t, ok)
	})

	t.Run("With reject", func(t *testing.T) {
		m := newMailbox(4, DropOldest, time.Second, nil)
		for _, envelope := range envelopes("a", "b") {
			_, err := m.Enqueue(ctx, envelope)
			require.NoError(t, err)
		}
		m.Close()
		assert.Len(t, m.Reject(), 2)
		assert.Zero(t, m.Len())
	})

	t.Run("With dequeue waiting", func(t *testing.T) {
		m := newMailbox(4, DropOldest, time.Second, nil)
		received := make(chan string, 1)
		go func() {
			envelope, ok := m.Dequeue()
			if ok {
				received <- envelope.MessageType
			}
			close(received)
		}()

		time.Sleep(20 * time.Millisecond)
		_, err := m.Enqueue(ctx, newEnvelope("a", nil, SourceDirect))
		require.NoError(t, err)
		assert.Equal(t, "a", <-received)
	})
}

func TestEnvelopeRespond(t *testing.T) {
	envelope := newRequestEnvelope("get", nil)
	envelope.respond([]byte("1"), nil)
	// a second reply is discarded
	envelope.respond([]byte("2"), nil)

	reply := <-envelope.reply
	assert.Equal(t, []byte("1"), reply.payload)
	assert.NoError(t, reply.err)

	// fire-and-forget envelopes have nobody to answer
	newEnvelope("incr", nil, SourceDirect).respond(nil, gerrors.ErrMailboxFull)
}
