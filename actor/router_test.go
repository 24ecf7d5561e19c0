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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/vactor/address"
	"github.com/tochemey/vactor/api"
	gerrors "github.com/tochemey/vactor/errors"
	"github.com/tochemey/vactor/log"
)

func TestRouter(t *testing.T) {
	ctx := context.Background()
	echo := &Descriptor{
		Type: "echo",
		Handlers: map[string]Handler{
			"ping": func(_ *Context, payload []byte) ([]byte, error) { return payload, nil },
		},
	}
	cluster := newTestCluster(t, 2, []*Descriptor{counterDescriptor(0), echo})
	node := cluster.nodes[0]

	for _, id := range []string{"a", "b", "c"} {
		_, err := node.Send(ctx, &api.SendRequest{Address: address.New("counter", id), MessageType: "incr"})
		require.NoError(t, err)
	}
	_, err := node.Activate(ctx, &api.ActivateRequest{Address: address.New("echo", "e")})
	require.NoError(t, err)

	t.Run("With status", func(t *testing.T) {
		addr := address.New("counter", "a")
		require.Equal(t, 1, invokeValue(t, node, addr))
		for _, n := range cluster.nodes {
			status, err := n.Status(ctx, &api.StatusRequest{Address: addr})
			require.NoError(t, err)
			assert.True(t, status.Active)
			assert.Equal(t, cluster.owners(addr)[0], status.NodeID)
			assert.False(t, status.ActivatedAt.IsZero())
		}

		status, err := node.Status(ctx, &api.StatusRequest{Address: address.New("counter", "virtual")})
		require.NoError(t, err)
		assert.False(t, status.Active)
		assert.Empty(t, status.NodeID)
	})

	t.Run("With active pages", func(t *testing.T) {
		page, err := node.List(ctx, &api.ListRequest{ActorType: "counter", ActiveOnly: true, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page.Actors, 2)
		assert.Equal(t, "counter:a", page.Actors[0].Address.String())
		assert.Equal(t, "counter:b", page.Actors[1].Address.String())
		require.NotEmpty(t, page.NextCursor)

		page, err = node.List(ctx, &api.ListRequest{ActorType: "counter", ActiveOnly: true, Limit: 2, Cursor: page.NextCursor})
		require.NoError(t, err)
		require.Len(t, page.Actors, 1)
		assert.Equal(t, "counter:c", page.Actors[0].Address.String())
		assert.Empty(t, page.NextCursor)

		all, err := node.List(ctx, &api.ListRequest{ActiveOnly: true})
		require.NoError(t, err)
		assert.Len(t, all.Actors, 4)
	})

	t.Run("With virtual actors", func(t *testing.T) {
		resp, err := node.Deactivate(ctx, &api.DeactivateRequest{Address: address.New("counter", "b")})
		require.NoError(t, err)
		require.True(t, resp.WasActive)

		page, err := node.List(ctx, &api.ListRequest{ActorType: "counter"})
		require.NoError(t, err)
		require.Len(t, page.Actors, 3)
		assert.True(t, page.Actors[0].Active)
		assert.Equal(t, "counter:b", page.Actors[1].Address.String())
		assert.False(t, page.Actors[1].Active)
		assert.True(t, page.Actors[2].Active)

		page, err = node.List(ctx, &api.ListRequest{ActorType: "counter", Limit: 1, Cursor: "counter:a"})
		require.NoError(t, err)
		require.Len(t, page.Actors, 1)
		assert.Equal(t, "counter:b", page.Actors[0].Address.String())
		assert.Equal(t, "counter:b", page.NextCursor)
	})

	t.Run("With pool status", func(t *testing.T) {
		pool, err := node.PoolStatus(ctx)
		require.NoError(t, err)
		require.Len(t, pool.Nodes, 2)

		total := 0
		for _, status := range pool.Nodes {
			assert.True(t, status.Healthy)
			assert.Equal(t, api.Utilization(status.ActiveCount, status.Capacity), status.Utilization)
			total += status.ActiveCount
		}
		assert.Equal(t, 3, total)
	})

	t.Run("With a client router", func(t *testing.T) {
		router := NewRouter(cluster.service, cluster.peers, 3, time.Second, log.DiscardLogger)
		resp, err := router.Invoke(ctx, &api.InvokeRequest{Address: address.New("echo", "e"), MessageType: "ping", Payload: []byte("pong")})
		require.NoError(t, err)
		assert.Equal(t, []byte("pong"), resp.Payload)
		assert.NotEmpty(t, resp.NodeID)
	})

	t.Run("With unreachable owner", func(t *testing.T) {
		addr := address.New("echo", "e")
		owner := cluster.owners(addr)[0]
		cluster.peers.Remove(owner)
		t.Cleanup(func() { cluster.peers.Add(cluster.node(owner)) })

		router := NewRouter(cluster.service, cluster.peers, 2, time.Second, log.DiscardLogger)
		_, err := router.Invoke(ctx, &api.InvokeRequest{Address: addr, MessageType: "ping"})
		require.ErrorIs(t, err, gerrors.ErrNodeUnreachable)
	})
}
