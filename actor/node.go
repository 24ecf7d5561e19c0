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

// Package actor implements the node runtime: it hosts actor instances,
// activates them on demand under a cluster-wide claim, runs one processing
// loop per instance and deactivates idle ones.
package actor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tochemey/vactor/claim"
	"github.com/tochemey/vactor/config"
	gerrors "github.com/tochemey/vactor/errors"
	"github.com/tochemey/vactor/internal/shardmap"
	"github.com/tochemey/vactor/log"
	"github.com/tochemey/vactor/messaging"
	"github.com/tochemey/vactor/persistence"
	"github.com/tochemey/vactor/placement"
	"github.com/tochemey/vactor/scheduler"
	"github.com/tochemey/vactor/telemetry"
)

// Node is the runtime of one cluster member. It implements api.Service:
// requests are routed through the placement directory to the owning node
// and served locally when this node owns the actor.
type Node struct {
	config *config.Config
	nodeID string
	logger log.Logger

	directory placement.Directory
	claims    claim.Store
	states    persistence.StateStore
	broker    messaging.Broker
	schedules scheduler.Store
	peers     Peers
	metrics   *telemetry.Metrics

	// placement service run by the node when no directory is given
	ownService *placement.Service

	descriptors map[string]*Descriptor
	instances   *shardmap.Map[*instance]
	// instances being deactivated; reactivation waits for the channel
	departing   *shardmap.Map[chan struct{}]
	activations singleflight.Group
	passivator  *passivationManager
	// slots counts activating and active instances against MaxActors
	slots       atomic.Int64

	mu           sync.Mutex
	started      atomic.Bool
	stop         chan struct{}
	wg           sync.WaitGroup
	registration metric.Registration
	local        *localPeer
	router       *Router
}

// NewNode creates a node runtime. A nil config uses config.New.
func NewNode(cfg *config.Config, opts ...Option) (*Node, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	node := &Node{
		config:      cfg,
		nodeID:      cfg.NodeID,
		logger:      cfg.Logger().With("node", cfg.NodeID),
		descriptors: make(map[string]*Descriptor),
		instances:   shardmap.New[*instance](0),
		departing:   shardmap.New[chan struct{}](0),
		peers:       NewLocalPeers(),
	}
	node.local = &localPeer{node: node}

	for _, opt := range opts {
		opt.Apply(node)
	}

	if node.directory == nil {
		node.ownService = placement.NewService(
			placement.WithGracePeriod(cfg.HeartbeatGracePeriod),
			placement.WithSweepInterval(cfg.SweepInterval),
			placement.WithRemoveAfter(cfg.UnhealthyRemovalWindow),
			placement.WithLogger(node.logger),
			placement.WithMetrics(node.metrics))
		node.directory = node.ownService
	}
	if node.claims == nil {
		node.claims = claim.NewMemoryStore()
	}
	if node.states == nil {
		node.states = persistence.NewMemoryStore()
	}
	if node.broker == nil {
		node.broker = messaging.NewMemoryBroker()
	}

	node.router = NewRouter(node.directory, node.peers, cfg.ActivationRetries, cfg.RequestTimeout, node.logger)
	node.router.selfID = node.nodeID
	node.router.self = node.local
	if lister, ok := node.states.(persistence.Lister); ok {
		node.router.lister = lister
	}
	return node, nil
}

// ID returns the node id
func (n *Node) ID() string {
	return n.nodeID
}

// Local returns the node-local surface used by peers and transports
func (n *Node) Local() Peer {
	return n.local
}

// Register adds an actor type. Types are registered before Start.
func (n *Node) Register(descriptors ...*Descriptor) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.started.Load() {
		return gerrors.ErrNodeAlreadyStarted
	}

	for _, descriptor := range descriptors {
		if descriptor == nil {
			return gerrors.NewErrInvalidConfig(fmt.Errorf("actor descriptor is nil"))
		}
		if err := descriptor.Validate(); err != nil {
			return err
		}
		if _, ok := n.descriptors[descriptor.Type]; ok {
			return fmt.Errorf("actor type=(%s) %w", descriptor.Type, gerrors.ErrActorTypeAlreadyRegistered)
		}
		n.descriptors[descriptor.Type] = descriptor.withDefaults(n.config)
	}
	return nil
}

// Start registers the node with the placement directory and starts the
// heartbeat, claim renewal and passivation loops
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.started.Load() {
		return gerrors.ErrNodeAlreadyStarted
	}

	n.logger.Infof("starting node=(%s) at endpoint=(%s)...", n.nodeID, n.config.Endpoint)

	if n.ownService != nil {
		if err := n.ownService.Start(ctx); err != nil {
			return err
		}
	}

	if err := n.register(ctx); err != nil {
		return err
	}

	registration, err := n.metrics.ObserveActiveActors(n.nodeID, func() int64 { return int64(n.instances.Len()) })
	if err != nil {
		n.logger.Warnf("failed to observe active actors: %v", err)
	}
	n.registration = registration

	n.passivator = newPassivationManager(n.logger, n.passivate)
	n.passivator.Start(ctx)

	n.stop = make(chan struct{})
	n.wg.Add(2)
	go n.heartbeatLoop()
	go n.claimRenewalLoop()

	n.started.Store(true)
	n.logger.Infof("node=(%s) started with %d actor types", n.nodeID, len(n.descriptors))
	return nil
}

// Stop drains and deactivates every local instance, then leaves the cluster
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.started.Swap(false) {
		return nil
	}

	n.logger.Infof("stopping node=(%s)...", n.nodeID)
	ctx, cancel := context.WithTimeout(ctx, n.config.ShutdownTimeout)
	defer cancel()

	n.passivator.Stop(ctx)
	err := n.deactivateAll(ctx, stopOptions{save: true, reason: "shutdown"})

	close(n.stop)
	n.wg.Wait()

	if e := n.directory.DeregisterNode(ctx, n.nodeID); e != nil {
		err = multierr.Append(err, fmt.Errorf("deregistering node: %w", e))
	}

	if n.ownService != nil {
		err = multierr.Append(err, n.ownService.Stop(ctx))
	}

	if n.registration != nil {
		err = multierr.Append(err, n.registration.Unregister())
	}

	if err != nil {
		n.logger.Errorf("node=(%s) stopped with errors: %v", n.nodeID, err)
		return err
	}
	n.logger.Infof("node=(%s) stopped", n.nodeID)
	return nil
}

// halt stops the node the way a crash would: loops and instances stop
// without saving state, releasing claims or leaving the cluster.
func (n *Node) halt() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.started.Swap(false) {
		return
	}

	n.passivator.Stop(context.Background())
	close(n.stop)
	n.wg.Wait()

	for _, inst := range n.instances.Values() {
		inst.lifecycle.Store(int32(NotActive))
		inst.mailbox.Close()
		for _, envelope := range inst.mailbox.Reject() {
			envelope.respond(nil, gerrors.NewErrNodeUnreachable(n.nodeID, nil))
		}
		inst.cancel()
		_ = inst.unsubscribe()
	}
	n.instances.Reset()
	n.slots.Store(0)

	if n.registration != nil {
		_ = n.registration.Unregister()
	}
	if n.ownService != nil {
		_ = n.ownService.Stop(context.Background())
	}
	n.logger.Warnf("node=(%s) halted", n.nodeID)
}

func (n *Node) register(ctx context.Context) error {
	return n.directory.RegisterNode(ctx, &placement.NodeInfo{
		NodeID:   n.nodeID,
		Endpoint: n.config.Endpoint,
		Capacity: n.config.MaxActors,
	})
}

// heartbeatLoop keeps the node registered. A rejected heartbeat means the
// placement service declared the node dead and reassigned its actors: every
// local instance is deactivated before the node registers again.
func (n *Node) heartbeatLoop() {
	defer n.wg.Done()
	ticker := time.NewTicker(n.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), n.config.RequestTimeout)
			err := n.directory.Heartbeat(ctx, n.nodeID)
			switch {
			case err == nil:
			case errors.Is(err, gerrors.ErrNodeNotRegistered):
				n.logger.Warnf("node=(%s) fenced by the placement service, deactivating %d actors", n.nodeID, n.instances.Len())
				if e := n.deactivateAll(ctx, stopOptions{save: true, reason: "fenced"}); e != nil {
					n.logger.Error(e)
				}
				if e := n.register(ctx); e != nil {
					n.logger.Errorf("failed to register node=(%s) again: %v", n.nodeID, e)
				}
			default:
				n.logger.Warnf("heartbeat of node=(%s) failed: %v", n.nodeID, err)
			}
			cancel()
		}
	}
}

// claimRenewalLoop renews the claims of every local instance. An instance
// whose claim is lost is stopped without saving: another node may own it.
func (n *Node) claimRenewalLoop() {
	defer n.wg.Done()
	ticker := time.NewTicker(n.config.ClaimRenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), n.config.ClaimRenewInterval)
			for _, inst := range n.instances.Values() {
				err := n.claims.Renew(ctx, inst.addr, n.nodeID, n.config.ClaimTTL)
				switch {
				case err == nil:
				case errors.Is(err, gerrors.ErrClaimLost):
					inst.logger.Warn("activation claim lost, stopping instance")
					n.stopAsync(inst, stopOptions{force: true, reason: "claim_lost"})
				default:
					inst.logger.Warnf("failed to renew activation claim: %v", err)
				}
			}
			cancel()
		}
	}
}

func (n *Node) deactivateAll(ctx context.Context, opts stopOptions) error {
	var (
		mu  sync.Mutex
		err error
	)

	group := new(errgroup.Group)
	group.SetLimit(32)
	for _, inst := range n.instances.Values() {
		group.Go(func() error {
			if _, e := n.deactivate(ctx, inst, opts); e != nil {
				mu.Lock()
				err = multierr.Append(err, e)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()
	return err
}
