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
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/tochemey/vactor/actor"
	"github.com/tochemey/vactor/api"
)

// NodeServer exposes the local surface of a node to its peers and clients
type NodeServer struct {
	*server
	nodeID string
	peer   actor.Peer
	opts   *options
}

// NewNodeServer creates a server answering on behalf of nodeID. peer is
// usually the Local surface of the node.
func NewNodeServer(conn *nats.Conn, nodeID string, peer actor.Peer, opts ...Option) *NodeServer {
	o := newOptions(opts)
	ns := &NodeServer{nodeID: nodeID, peer: peer, opts: o}
	ns.server = newServer(conn, nodeSubject(o.prefix, nodeID, "*"), o.logger.With("node", nodeID), ns.serve)
	return ns
}

// Start subscribes the node subjects
func (ns *NodeServer) Start(context.Context) error {
	return ns.start()
}

// Stop unsubscribes and waits for the requests in flight
func (ns *NodeServer) Stop(ctx context.Context) error {
	return ns.stop(ctx)
}

func (ns *NodeServer) serve(ctx context.Context, op string, data []byte) (any, error) {
	switch op {
	case opSend:
		req, err := decodeRequest[api.SendRequest](data)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(ctx, ns.opts.requestTimeout)
		defer cancel()
		return ns.peer.Send(ctx, req)

	case opInvoke:
		req, err := decodeRequest[api.InvokeRequest](data)
		if err != nil {
			return nil, err
		}
		timeout := req.Timeout
		if timeout <= 0 {
			timeout = ns.opts.requestTimeout
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return ns.peer.Invoke(ctx, req)

	case opActivate:
		req, err := decodeRequest[api.ActivateRequest](data)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(ctx, ns.opts.requestTimeout)
		defer cancel()
		return ns.peer.Activate(ctx, req)

	case opDeactivate:
		req, err := decodeRequest[api.DeactivateRequest](data)
		if err != nil {
			return nil, err
		}
		// deactivation bounds its own teardown
		return ns.peer.Deactivate(ctx, req)

	case opStatus:
		req, err := decodeRequest[api.StatusRequest](data)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(ctx, ns.opts.requestTimeout)
		defer cancel()
		return ns.peer.Status(ctx, req)

	default:
		return nil, fmt.Errorf("remote: unknown node operation %q", op)
	}
}
