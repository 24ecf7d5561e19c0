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

package claim

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/vactor/address"
	"github.com/tochemey/vactor/internal/testutil"
)

func TestNATSStore(t *testing.T) {
	srv := testutil.StartNATS(t)

	store, err := NewNATSStore(srv.ClientURL(), "", 10*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	testClaimStore(t, store)

	t.Run("With bucket shared by a second connection", func(t *testing.T) {
		conn, err := nats.Connect(srv.ClientURL())
		require.NoError(t, err)
		defer conn.Close()

		other, err := NewNATSStoreFromConn(conn, "", 10*time.Second)
		require.NoError(t, err)

		ctx := context.Background()
		addr := address.New("counter", "shared")
		require.NoError(t, store.Acquire(ctx, addr, "node-1", time.Second))
		require.Error(t, other.Acquire(ctx, addr, "node-2", time.Second))

		owner, found, err := other.Owner(ctx, addr)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "node-1", owner)
		require.NoError(t, other.Close())
	})
	t.Run("With expiry", func(t *testing.T) {
		short, err := NewNATSStore(srv.ClientURL(), "short_claims", time.Second)
		require.NoError(t, err)
		defer func() { _ = short.Close() }()

		ctx := context.Background()
		addr := address.New("counter", "expiry")
		require.NoError(t, short.Acquire(ctx, addr, "node-1", time.Second))
		require.Eventually(t, func() bool {
			return short.Acquire(ctx, addr, "node-2", time.Second) == nil
		}, 5*time.Second, 100*time.Millisecond)
	})
	t.Run("With key encoding", func(t *testing.T) {
		key := claimKey(address.New("order_book", "eu.west-1"))
		assert.NotContains(t, key, ":")
		assert.Regexp(t, `^[-/_=\.a-zA-Z0-9]+$`, key)
	})
}
