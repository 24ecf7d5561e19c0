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

	"github.com/tochemey/vactor/api"
	gerrors "github.com/tochemey/vactor/errors"
)

// Peer is the node-local surface of a node: requests sent to a peer are
// served by that node without resolving the placement again.
type Peer interface {
	Send(ctx context.Context, req *api.SendRequest) (*api.SendResponse, error)
	Invoke(ctx context.Context, req *api.InvokeRequest) (*api.InvokeResponse, error)
	Activate(ctx context.Context, req *api.ActivateRequest) (*api.ActivateResponse, error)
	Deactivate(ctx context.Context, req *api.DeactivateRequest) (*api.DeactivateResponse, error)
	Status(ctx context.Context, req *api.StatusRequest) (*api.ActorStatus, error)
}

// Peers locates the other nodes of the cluster
type Peers interface {
	// Peer returns the peer of a node. It fails with errors.ErrNodeUnreachable
	// when the node cannot be contacted.
	Peer(nodeID, endpoint string) (Peer, error)
}

// LocalPeers connects nodes running in the same process
type LocalPeers struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

var _ Peers = (*LocalPeers)(nil)

// NewLocalPeers creates an instance of LocalPeers
func NewLocalPeers() *LocalPeers {
	return &LocalPeers{nodes: make(map[string]*Node)}
}

// Add makes the node reachable
func (p *LocalPeers) Add(nodes ...*Node) {
	p.mu.Lock()
	for _, node := range nodes {
		p.nodes[node.nodeID] = node
	}
	p.mu.Unlock()
}

// Remove makes the node unreachable
func (p *LocalPeers) Remove(nodeID string) {
	p.mu.Lock()
	delete(p.nodes, nodeID)
	p.mu.Unlock()
}

func (p *LocalPeers) Peer(nodeID, _ string) (Peer, error) {
	p.mu.RLock()
	node, ok := p.nodes[nodeID]
	p.mu.RUnlock()
	if !ok {
		return nil, gerrors.NewErrNodeUnreachable(nodeID, nil)
	}
	return node.Local(), nil
}

// localPeer serves requests on its node. A node that is not running is
// reported unreachable, the way a remote transport would.
type localPeer struct {
	node *Node
}

var _ Peer = (*localPeer)(nil)

func (p *localPeer) Send(ctx context.Context, req *api.SendRequest) (*api.SendResponse, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	return p.node.localSend(ctx, req)
}

func (p *localPeer) Invoke(ctx context.Context, req *api.InvokeRequest) (*api.InvokeResponse, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	return p.node.localInvoke(ctx, req)
}

func (p *localPeer) Activate(ctx context.Context, req *api.ActivateRequest) (*api.ActivateResponse, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	return p.node.localActivate(ctx, req)
}

func (p *localPeer) Deactivate(ctx context.Context, req *api.DeactivateRequest) (*api.DeactivateResponse, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	return p.node.localDeactivate(ctx, req)
}

func (p *localPeer) Status(_ context.Context, req *api.StatusRequest) (*api.ActorStatus, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	return p.node.localStatus(req.Address), nil
}

func (p *localPeer) ready() error {
	if !p.node.started.Load() {
		return gerrors.NewErrNodeUnreachable(p.node.nodeID, nil)
	}
	return nil
}
