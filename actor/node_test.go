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
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tochemey/vactor/address"
	"github.com/tochemey/vactor/api"
	"github.com/tochemey/vactor/claim"
	"github.com/tochemey/vactor/config"
	gerrors "github.com/tochemey/vactor/errors"
	"github.com/tochemey/vactor/log"
	"github.com/tochemey/vactor/messaging"
	"github.com/tochemey/vactor/persistence"
	"github.com/tochemey/vactor/placement"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testCluster wires nodes in process around one placement service and
// shared claim, state and messaging stores
type testCluster struct {
	service *placement.Service
	claims  *claim.MemoryStore
	states  *persistence.MemoryStore
	broker  *messaging.MemoryBroker
	peers   *LocalPeers
	nodes   []*Node
}

func testConfig(nodeID string, opts ...config.Option) *config.Config {
	base := []config.Option{
		config.WithNodeID(nodeID),
		config.WithLogger(log.DiscardLogger),
		config.WithHeartbeat(50*time.Millisecond, 300*time.Millisecond),
		config.WithClaim(time.Second, 100*time.Millisecond),
		config.WithSweepInterval(50 * time.Millisecond),
		config.WithRequestTimeout(2 * time.Second),
		config.WithShutdownTimeout(5 * time.Second),
	}
	return config.New(append(base, opts...)...)
}

func newTestCluster(t *testing.T, size int, descriptors []*Descriptor, opts ...config.Option) *testCluster {
	t.Helper()
	ctx := context.Background()

	cluster := &testCluster{
		service: placement.NewService(
			placement.WithGracePeriod(300*time.Millisecond),
			placement.WithSweepInterval(50*time.Millisecond)),
		claims: claim.NewMemoryStore(),
		states: persistence.NewMemoryStore(),
		broker: messaging.NewMemoryBroker(),
		peers:  NewLocalPeers(),
	}
	require.NoError(t, cluster.service.Start(ctx))

	for i := range size {
		node, err := NewNode(testConfig(fmt.Sprintf("node-%d", i), opts...),
			WithDirectory(cluster.service),
			WithClaimStore(cluster.claims),
			WithStateStore(cluster.states),
			WithBroker(cluster.broker),
			WithPeers(cluster.peers))
		require.NoError(t, err)
		require.NoError(t, node.Register(descriptors...))
		require.NoError(t, node.Start(ctx))
		cluster.peers.Add(node)
		cluster.nodes = append(cluster.nodes, node)
	}

	t.Cleanup(func() {
		for _, node := range cluster.nodes {
			assert.NoError(t, node.Stop(ctx))
		}
		assert.NoError(t, cluster.service.Stop(ctx))
	})
	return cluster
}

// owners returns the nodes holding an active instance of addr
func (c *testCluster) owners(addr address.Address) []string {
	var owners []string
	for _, node := range c.nodes {
		if inst, ok := node.instances.Load(addr.String()); ok && inst.State() == Active {
			owners = append(owners, node.nodeID)
		}
	}
	return owners
}

func (c *testCluster) node(nodeID string) *Node {
	for _, node := range c.nodes {
		if node.nodeID == nodeID {
			return node
		}
	}
	return nil
}

func counterValue(state []byte) int {
	value, _ := strconv.Atoi(string(state))
	return value
}

func counterDescriptor(idle time.Duration) *Descriptor {
	return &Descriptor{
		Type:        "counter",
		IdleTimeout: idle,
		Handlers: map[string]Handler{
			"incr": func(ctx *Context, _ []byte) ([]byte, error) {
				ctx.SetState([]byte(strconv.Itoa(counterValue(ctx.State()) + 1)))
				return nil, nil
			},
			"incr-persist": func(ctx *Context, _ []byte) ([]byte, error) {
				ctx.SetState([]byte(strconv.Itoa(counterValue(ctx.State()) + 1)))
				return nil, ctx.Persist()
			},
			"get": func(ctx *Context, _ []byte) ([]byte, error) {
				return json.Marshal(map[string]int{"value": counterValue(ctx.State())})
			},
		},
	}
}

func invokeValue(t *testing.T, service api.Service, addr address.Address) int {
	t.Helper()
	resp, err := service.Invoke(context.Background(), &api.InvokeRequest{Address: addr, MessageType: "get"})
	require.NoError(t, err)
	var body map[string]int
	require.NoError(t, json.Unmarshal(resp.Payload, &body))
	return body["value"]
}

func TestNodeLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("With invalid configuration", func(t *testing.T) {
		cfg := testConfig("node.1")
		_, err := NewNode(cfg)
		require.ErrorIs(t, err, gerrors.ErrInvalidConfig)
	})

	t.Run("With invalid descriptor", func(t *testing.T) {
		node, err := NewNode(testConfig("node-1"))
		require.NoError(t, err)
		err = node.Register(&Descriptor{Type: "counter"})
		require.ErrorIs(t, err, gerrors.ErrInvalidConfig)
		require.Error(t, node.Register(nil))
	})

	t.Run("With duplicate actor type", func(t *testing.T) {
		node, err := NewNode(testConfig("node-1"))
		require.NoError(t, err)
		require.NoError(t, node.Register(counterDescriptor(0)))
		require.ErrorIs(t, node.Register(counterDescriptor(0)), gerrors.ErrActorTypeAlreadyRegistered)
	})

	t.Run("With requests before start", func(t *testing.T) {
		node, err := NewNode(testConfig("node-1"))
		require.NoError(t, err)
		_, err = node.Send(ctx, &api.SendRequest{Address: address.New("counter", "a"), MessageType: "incr"})
		require.ErrorIs(t, err, gerrors.ErrNodeNotStarted)
		_, err = node.PoolStatus(ctx)
		require.ErrorIs(t, err, gerrors.ErrNodeNotStarted)
	})

	t.Run("With standalone node", func(t *testing.T) {
		node, err := NewNode(testConfig("node-1"))
		require.NoError(t, err)
		require.NoError(t, node.Register(counterDescriptor(0)))
		require.NoError(t, node.Start(ctx))
		require.ErrorIs(t, node.Start(ctx), gerrors.ErrNodeAlreadyStarted)
		require.ErrorIs(t, node.Register(counterDescriptor(0)), gerrors.ErrNodeAlreadyStarted)

		addr := address.New("counter", "a")
		resp, err := node.Send(ctx, &api.SendRequest{Address: addr, MessageType: "incr"})
		require.NoError(t, err)
		assert.True(t, resp.Accepted)
		assert.Equal(t, "node-1", resp.NodeID)
		assert.Equal(t, 1, invokeValue(t, node, addr))

		pool, err := node.PoolStatus(ctx)
		require.NoError(t, err)
		require.Len(t, pool.Nodes, 1)
		assert.Equal(t, 1, pool.Nodes[0].ActiveCount)

		require.NoError(t, node.Stop(ctx))
		require.NoError(t, node.Stop(ctx))

		// shutdown saved the state
		state, found, err := node.states.Load(ctx, addr)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 1, counterValue(state))
	})

	t.Run("With unknown actor type", func(t *testing.T) {
		cluster := newTestCluster(t, 1, []*Descriptor{counterDescriptor(0)})
		_, err := cluster.nodes[0].Send(ctx, &api.SendRequest{Address: address.New("unknown", "a"), MessageType: "incr"})
		require.ErrorIs(t, err, gerrors.ErrActorTypeNotRegistered)

		records, _, err := cluster.service.Records(ctx, placement.RecordFilter{})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("With invalid requests", func(t *testing.T) {
		cluster := newTestCluster(t, 1, []*Descriptor{counterDescriptor(0)})
		node := cluster.nodes[0]
		_, err := node.Send(ctx, &api.SendRequest{Address: address.New("counter", ""), MessageType: "incr"})
		require.ErrorIs(t, err, gerrors.ErrInvalidAddress)
		_, err = node.Invoke(ctx, &api.InvokeRequest{Address: address.New("counter", "a"), MessageType: "get", Timeout: -time.Second})
		require.ErrorIs(t, err, gerrors.ErrInvalidTimeout)
	})
}

func TestCounterScenario(t *testing.T) {
	ctx := context.Background()
	cluster := newTestCluster(t, 2, []*Descriptor{counterDescriptor(200 * time.Millisecond)})
	node := cluster.nodes[0]
	addr := address.New("counter", "a1")

	for range 3 {
		_, err := node.Send(ctx, &api.SendRequest{Address: addr, MessageType: "incr", Payload: []byte("{}")})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		status, err := node.Status(ctx, &api.StatusRequest{Address: addr})
		return err == nil && status.Active && status.MessagesProcessed == 3
	}, time.Second, 10*time.Millisecond)

	// idle eviction returns the actor to the virtual state
	require.Eventually(t, func() bool {
		status, err := node.Status(ctx, &api.StatusRequest{Address: addr})
		return err == nil && !status.Active
	}, 2*time.Second, 20*time.Millisecond)
	assert.Empty(t, cluster.owners(addr))

	// the state survived the deactivation
	assert.Equal(t, 3, invokeValue(t, node, addr))
}

// sequenceDescriptor records the order in which numbered messages are handled
func sequenceDescriptor() *Descriptor {
	return &Descriptor{
		Type: "sequence",
		Handlers: map[string]Handler{
			"append": func(ctx *Context, payload []byte) ([]byte, error) {
				var seen []int
				if state := ctx.State(); state != nil {
					if err := json.Unmarshal(state, &seen); err != nil {
						return nil, err
					}
				}
				number, err := strconv.Atoi(string(payload))
				if err != nil {
					return nil, err
				}
				state, err := json.Marshal(append(seen, number))
				if err != nil {
					return nil, err
				}
				ctx.SetState(state)
				return nil, nil
			},
			"get": func(ctx *Context, _ []byte) ([]byte, error) {
				return ctx.State(), nil
			},
		},
	}
}

func TestMessageOrdering(t *testing.T) {
	ctx := context.Background()
	cluster := newTestCluster(t, 2, []*Descriptor{sequenceDescriptor()})
	addr := address.New("sequence", "ordered")

	resp, err := cluster.nodes[0].Activate(ctx, &api.ActivateRequest{Address: addr})
	require.NoError(t, err)
	owner := cluster.node(resp.NodeID)
	var other *Node
	for _, node := range cluster.nodes {
		if node != owner {
			other = node
		}
	}
	require.NotNil(t, other)

	const total = 100
	expected := make([]int, 0, total)
	for i := range total {
		// alternate between the owner and a node routing to it
		sender := owner
		if i%2 == 1 {
			sender = other
		}
		_, err := sender.Send(ctx, &api.SendRequest{Address: addr, MessageType: "append", Payload: []byte(strconv.Itoa(i))})
		require.NoError(t, err)
		expected = append(expected, i)
	}

	reply, err := other.Invoke(ctx, &api.InvokeRequest{Address: addr, MessageType: "get"})
	require.NoError(t, err)
	var seen []int
	require.NoError(t, json.Unmarshal(reply.Payload, &seen))
	assert.Equal(t, expected, seen)
	assert.Equal(t, owner.nodeID, reply.NodeID)
}

func TestSingleActivation(t *testing.T) {
	ctx := context.Background()
	cluster := newTestCluster(t, 3, []*Descriptor{counterDescriptor(0)})
	addr := address.New("counter", "shared")

	t.Run("With concurrent local activations", func(t *testing.T) {
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			contended int
		)
		for _, node := range cluster.nodes {
			for range 10 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := node.localActivate(ctx, &api.ActivateRequest{Address: addr})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						succeeded++
					case assert.ErrorIs(t, err, gerrors.ErrAlreadyActiveElsewhere):
						contended++
					}
				}()
			}
		}
		wg.Wait()

		require.Len(t, cluster.owners(addr), 1)
		assert.Equal(t, 30, succeeded+contended)
		assert.GreaterOrEqual(t, succeeded, 1)

		_, err := cluster.node(cluster.owners(addr)[0]).localDeactivate(ctx, &api.DeactivateRequest{Address: addr})
		require.NoError(t, err)
		require.Empty(t, cluster.owners(addr))
	})

	t.Run("With concurrent routed sends", func(t *testing.T) {
		var wg sync.WaitGroup
		for _, node := range cluster.nodes {
			for range 20 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := node.Send(ctx, &api.SendRequest{Address: addr, MessageType: "incr"})
					assert.NoError(t, err)
				}()
			}
		}
		wg.Wait()

		require.Len(t, cluster.owners(addr), 1)
		for _, node := range cluster.nodes {
			assert.Equal(t, 60, invokeValue(t, node, addr))
		}
	})
}

func TestNodeFailureRecovery(t *testing.T) {
	ctx := context.Background()
	cluster := newTestCluster(t, 2, []*Descriptor{counterDescriptor(0)},
		config.WithActivationRetries(10))
	addr := address.New("counter", "durable")

	for range 5 {
		_, err := cluster.nodes[0].Invoke(ctx, &api.InvokeRequest{Address: addr, MessageType: "incr-persist"})
		require.NoError(t, err)
	}

	owners := cluster.owners(addr)
	require.Len(t, owners, 1)
	failed := cluster.node(owners[0])
	failed.halt()

	var survivor *Node
	for _, node := range cluster.nodes {
		if node != failed {
			survivor = node
		}
	}

	// the record is invalidated after the grace period and the claim expires
	// after its ttl, then the actor is activated on the survivor
	require.Eventually(t, func() bool {
		resp, err := survivor.Invoke(ctx, &api.InvokeRequest{Address: addr, MessageType: "get"})
		if err != nil {
			return false
		}
		var body map[string]int
		return json.Unmarshal(resp.Payload, &body) == nil && body["value"] == 5 && resp.NodeID == survivor.nodeID
	}, 8*time.Second, 100*time.Millisecond)

	pool, err := survivor.PoolStatus(ctx)
	require.NoError(t, err)
	for _, status := range pool.Nodes {
		if status.NodeID == failed.nodeID {
			assert.False(t, status.Healthy)
		}
	}
}
