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

	"github.com/tochemey/vactor/address"
	"github.com/tochemey/vactor/api"
	"github.com/tochemey/vactor/config"
	gerrors "github.com/tochemey/vactor/errors"
)

func TestActivation(t *testing.T) {
	ctx := context.Background()

	t.Run("With reactivation while the previous instance deactivates", func(t *testing.T) {
		entered := make(chan struct{}, 1)
		release := make(chan struct{})
		descriptor := counterDescriptor(0)
		descriptor.OnDeactivate = func(*Context) error {
			select {
			case entered <- struct{}{}:
				<-release
			default:
			}
			return nil
		}

		cluster := newTestCluster(t, 2, []*Descriptor{descriptor})
		addr := address.New("counter", "handover")

		resp, err := cluster.nodes[0].Activate(ctx, &api.ActivateRequest{Address: addr})
		require.NoError(t, err)
		owner := cluster.node(resp.NodeID)

		deactivated := make(chan error, 1)
		go func() {
			_, err := owner.Deactivate(ctx, &api.DeactivateRequest{Address: addr})
			deactivated <- err
		}()
		<-entered

		// the record still names the owner, so the send waits for the
		// departing instance on that node
		sent := make(chan error, 1)
		go func() {
			_, err := owner.Send(ctx, &api.SendRequest{Address: addr, MessageType: "incr"})
			sent <- err
		}()
		time.Sleep(50 * time.Millisecond)
		close(release)

		require.NoError(t, <-deactivated)
		require.NoError(t, <-sent)

		var owners []string
		require.Eventually(t, func() bool {
			owners = cluster.owners(addr)
			return len(owners) == 1
		}, 2*time.Second, 10*time.Millisecond)

		record, found, err := cluster.service.Lookup(ctx, addr)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, owners[0], record.NodeID)

		for _, node := range cluster.nodes {
			status, err := node.Status(ctx, &api.StatusRequest{Address: addr})
			require.NoError(t, err)
			assert.True(t, status.Active)
			assert.Equal(t, owners[0], status.NodeID)
			assert.Equal(t, 1, invokeValue(t, node, addr))
		}
	})

	t.Run("With activation placed on another node", func(t *testing.T) {
		cluster := newTestCluster(t, 2, []*Descriptor{counterDescriptor(0)})
		addr := address.New("counter", "elsewhere")

		record, err := cluster.service.Resolve(ctx, addr)
		require.NoError(t, err)
		other := cluster.nodes[0]
		if other.nodeID == record.NodeID {
			other = cluster.nodes[1]
		}

		_, err = other.Local().Activate(ctx, &api.ActivateRequest{Address: addr})
		require.ErrorIs(t, err, gerrors.ErrAlreadyActiveElsewhere)
		assert.Empty(t, cluster.owners(addr))

		owner, _, err := cluster.claims.Owner(ctx, addr)
		require.NoError(t, err)
		assert.Empty(t, owner)

		// routing follows the record
		resp, err := other.Activate(ctx, &api.ActivateRequest{Address: addr})
		require.NoError(t, err)
		assert.Equal(t, record.NodeID, resp.NodeID)
	})

	t.Run("With self message while draining", func(t *testing.T) {
		g := newGate()
		selfErr := make(chan error, 1)
		descriptor := gatedDescriptor("gated", g, 16, DropOldest)
		descriptor.Handlers["self"] = func(c *Context, _ []byte) ([]byte, error) {
			err := c.Send(c.Address(), "incr", nil)
			selfErr <- err
			return nil, nil
		}

		cluster := newTestCluster(t, 1, []*Descriptor{descriptor})
		node := cluster.nodes[0]
		addr := address.New("gated", "loop")

		_, err := node.Send(ctx, &api.SendRequest{Address: addr, MessageType: "block"})
		require.NoError(t, err)
		<-g.entered
		_, err = node.Send(ctx, &api.SendRequest{Address: addr, MessageType: "self"})
		require.NoError(t, err)
		waitMailbox(t, node, addr, 1)

		inst, ok := node.instances.Load(addr.String())
		require.True(t, ok)

		deactivated := make(chan error, 1)
		go func() {
			_, err := node.Deactivate(ctx, &api.DeactivateRequest{Address: addr})
			deactivated <- err
		}()
		require.Eventually(t, inst.mailbox.isClosed, time.Second, 5*time.Millisecond)
		close(g.release)

		select {
		case err := <-deactivated:
			require.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatalf("deactivation blocked in state %s", inst.State())
		}
		require.ErrorIs(t, <-selfErr, gerrors.ErrMailboxClosed)
		assert.Equal(t, NotActive, inst.State())
	})

	t.Run("With self message while active", func(t *testing.T) {
		descriptor := counterDescriptor(0)
		descriptor.Handlers["self"] = func(c *Context, _ []byte) ([]byte, error) {
			return nil, c.Send(c.Address(), "incr", nil)
		}
		cluster := newTestCluster(t, 1, []*Descriptor{descriptor})
		node := cluster.nodes[0]
		addr := address.New("counter", "self")

		_, err := node.Invoke(ctx, &api.InvokeRequest{Address: addr, MessageType: "self"})
		require.NoError(t, err)
		assert.Equal(t, 1, invokeValue(t, node, addr))
	})

	t.Run("With a caller giving up during activation", func(t *testing.T) {
		started := make(chan struct{}, 1)
		descriptor := counterDescriptor(0)
		descriptor.OnActivate = func(*Context) error {
			started <- struct{}{}
			time.Sleep(200 * time.Millisecond)
			return nil
		}
		cluster := newTestCluster(t, 1, []*Descriptor{descriptor})
		node := cluster.nodes[0]
		addr := address.New("counter", "slow")

		short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		patient := make(chan error, 1)
		go func() {
			<-started
			_, err := node.Send(ctx, &api.SendRequest{Address: addr, MessageType: "incr"})
			patient <- err
		}()

		_, err := node.Send(short, &api.SendRequest{Address: addr, MessageType: "incr"})
		require.Error(t, err)

		// the shared activation outlives the impatient caller
		require.NoError(t, <-patient)
		assert.Equal(t, []string{node.nodeID}, cluster.owners(addr))
		assert.GreaterOrEqual(t, invokeValue(t, node, addr), 1)
	})

	t.Run("With concurrent slot reservations", func(t *testing.T) {
		node, err := NewNode(testConfig("node-1", config.WithMaxActors(3)))
		require.NoError(t, err)

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			reserved int
		)
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if node.reserveSlot() {
					mu.Lock()
					reserved++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 3, reserved)
		assert.EqualValues(t, 3, node.slots.Load())
	})

	t.Run("With slots returned on deactivation", func(t *testing.T) {
		cluster := newTestCluster(t, 1, []*Descriptor{counterDescriptor(0)}, config.WithMaxActors(2))
		node := cluster.nodes[0]

		for _, id := range []string{"a", "b"} {
			_, err := node.Activate(ctx, &api.ActivateRequest{Address: address.New("counter", id)})
			require.NoError(t, err)
		}
		assert.EqualValues(t, 2, node.slots.Load())

		_, err := node.Deactivate(ctx, &api.DeactivateRequest{Address: address.New("counter", "a")})
		require.NoError(t, err)
		assert.EqualValues(t, 1, node.slots.Load())

		_, err = node.Activate(ctx, &api.ActivateRequest{Address: address.New("counter", "c")})
		require.NoError(t, err)
		assert.EqualValues(t, 2, node.slots.Load())
	})
}
