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
	"github.com/tochemey/vactor/claim"
	"github.com/tochemey/vactor/messaging"
	"github.com/tochemey/vactor/persistence"
	"github.com/tochemey/vactor/placement"
	"github.com/tochemey/vactor/scheduler"
	"github.com/tochemey/vactor/telemetry"
)

// Option configures a Node
type Option interface {
	Apply(*Node)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Node)

// Apply applies the option
func (f OptionFunc) Apply(n *Node) {
	f(n)
}

// WithDirectory sets the placement directory. Without one the node runs its
// own in-process placement service and forms a single node cluster.
func WithDirectory(directory placement.Directory) Option {
	return OptionFunc(func(n *Node) {
		n.directory = directory
	})
}

// WithClaimStore sets the shared claim store. It defaults to an in-memory
// store, which only protects a single process.
func WithClaimStore(store claim.Store) Option {
	return OptionFunc(func(n *Node) {
		n.claims = store
	})
}

// WithStateStore sets the state store. It defaults to an in-memory store.
func WithStateStore(store persistence.StateStore) Option {
	return OptionFunc(func(n *Node) {
		n.states = store
	})
}

// WithBroker sets the messaging broker. It defaults to an in-memory broker.
func WithBroker(broker messaging.Broker) Option {
	return OptionFunc(func(n *Node) {
		n.broker = broker
	})
}

// WithScheduleStore sets the store receiving declared recurring schedules
// and ScheduleOnce records
func WithScheduleStore(store scheduler.Store) Option {
	return OptionFunc(func(n *Node) {
		n.schedules = store
	})
}

// WithPeers sets how the node reaches the other nodes of the cluster
func WithPeers(peers Peers) Option {
	return OptionFunc(func(n *Node) {
		n.peers = peers
	})
}

// WithMetrics sets the metric instruments
func WithMetrics(metrics *telemetry.Metrics) Option {
	return OptionFunc(func(n *Node) {
		n.metrics = metrics
	})
}
