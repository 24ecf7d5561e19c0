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

package remote

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/tochemey/vactor/actor"
	"github.com/tochemey/vactor/api"
)

// Peers reaches the nodes of a cluster over NATS
type Peers struct {
	conn *nats.Conn
	opts *options
}

var _ actor.Peers = (*Peers)(nil)

// NewPeers creates an instance of Peers
func NewPeers(conn *nats.Conn, opts ...Option) *Peers {
	return &Peers{conn: conn, opts: newOptions(opts)}
}

// Peer returns the client of a node. Nodes are addressed by id; the endpoint
// is informational on this transport.
func (p *Peers) Peer(nodeID, _ string) (actor.Peer, error) {
	return &nodeClient{conn: p.conn, nodeID: nodeID, opts: p.opts}, nil
}

type nodeClient struct {
	conn   *nats.Conn
	nodeID string
	opts   *options
}

var _ actor.Peer = (*nodeClient)(nil)

func (c *nodeClient) Send(ctx context.Context, req *api.SendRequest) (*api.SendResponse, error) {
	return request[api.SendResponse](ctx, c.conn, c.nodeID, c.subject(opSend), req, c.opts.requestTimeout)
}

func (c *nodeClient) Invoke(ctx context.Context, req *api.InvokeRequest) (*api.InvokeResponse, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.opts.requestTimeout
	}
	return request[api.InvokeResponse](ctx, c.conn, c.nodeID, c.subject(opInvoke), req, timeout)
}

func (c *nodeClient) Activate(ctx context.Context, req *api.ActivateRequest) (*api.ActivateResponse, error) {
	return request[api.ActivateResponse](ctx, c.conn, c.nodeID, c.subject(opActivate), req, c.opts.requestTimeout)
}

func (c *nodeClient) Deactivate(ctx context.Context, req *api.DeactivateRequest) (*api.DeactivateResponse, error) {
	return request[api.DeactivateResponse](ctx, c.conn, c.nodeID, c.subject(opDeactivate), req, c.opts.requestTimeout)
}

func (c *nodeClient) Status(ctx context.Context, req *api.StatusRequest) (*api.ActorStatus, error) {
	return request[api.ActorStatus](ctx, c.conn, c.nodeID, c.subject(opStatus), req, c.opts.requestTimeout)
}

func (c *nodeClient) subject(op string) string {
	return nodeSubject(c.opts.prefix, c.nodeID, op)
}
