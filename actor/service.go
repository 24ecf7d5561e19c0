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
	"errors"

	"github.com/tochemey/vactor/address"
	"github.com/tochemey/vactor/api"
	gerrors "github.com/tochemey/vactor/errors"
)

var _ api.Service = (*Node)(nil)

// Send delivers a fire-and-forget message, activating the actor when needed.
// A message rejected by the drop-newest policy is reported with Accepted false.
func (n *Node) Send(ctx context.Context, req *api.SendRequest) (*api.SendResponse, error) {
	if err := n.ready(); err != nil {
		return nil, err
	}
	return n.router.Send(ctx, req)
}

// Invoke sends a request to the actor and waits for its reply
func (n *Node) Invoke(ctx context.Context, req *api.InvokeRequest) (*api.InvokeResponse, error) {
	if err := n.ready(); err != nil {
		return nil, err
	}
	return n.router.Invoke(ctx, req)
}

// Activate activates the actor without sending it a message
func (n *Node) Activate(ctx context.Context, req *api.ActivateRequest) (*api.ActivateResponse, error) {
	if err := n.ready(); err != nil {
		return nil, err
	}
	return n.router.Activate(ctx, req)
}

// Deactivate drains and deactivates the actor, or rejects its queue and
// cancels the running handler when Force is set
func (n *Node) Deactivate(ctx context.Context, req *api.DeactivateRequest) (*api.DeactivateResponse, error) {
	if err := n.ready(); err != nil {
		return nil, err
	}
	return n.router.Deactivate(ctx, req)
}

func (n *Node) Status(ctx context.Context, req *api.StatusRequest) (*api.ActorStatus, error) {
	if err := n.ready(); err != nil {
		return nil, err
	}
	return n.router.Status(ctx, req)
}

func (n *Node) List(ctx context.Context, req *api.ListRequest) (*api.ListResponse, error) {
	if err := n.ready(); err != nil {
		return nil, err
	}
	return n.router.List(ctx, req)
}

func (n *Node) PoolStatus(ctx context.Context) (*api.PoolStatus, error) {
	if err := n.ready(); err != nil {
		return nil, err
	}
	return n.router.PoolStatus(ctx)
}

func (n *Node) ready() error {
	if !n.started.Load() {
		return gerrors.ErrNodeNotStarted
	}
	return nil
}

func (n *Node) localSend(ctx context.Context, req *api.SendRequest) (*api.SendResponse, error) {
	accepted, err := n.deliver(ctx, req.Address, newEnvelope(req.MessageType, req.Payload, SourceDirect))
	if err != nil {
		return nil, err
	}
	return &api.SendResponse{Accepted: accepted, NodeID: n.nodeID}, nil
}

func (n *Node) localInvoke(ctx context.Context, req *api.InvokeRequest) (*api.InvokeResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	envelope := newRequestEnvelope(req.MessageType, req.Payload)
	accepted, err := n.deliver(ctx, req.Address, envelope)
	if err != nil {
		return nil, timeoutErr(err)
	}
	if !accepted {
		return nil, gerrors.ErrMailboxFull
	}

	select {
	case reply := <-envelope.reply:
		if reply.err != nil {
			return nil, reply.err
		}
		return &api.InvokeResponse{Payload: reply.payload, NodeID: n.nodeID}, nil
	case <-ctx.Done():
		return nil, timeoutErr(ctx.Err())
	}
}

func (n *Node) localActivate(ctx context.Context, req *api.ActivateRequest) (*api.ActivateResponse, error) {
	if inst, ok := n.instances.Load(req.Address.String()); ok && inst.State() == Active {
		return &api.ActivateResponse{NodeID: n.nodeID, AlreadyActive: true}, nil
	}
	if _, err := n.ensureActive(ctx, req.Address); err != nil {
		return nil, err
	}
	return &api.ActivateResponse{NodeID: n.nodeID}, nil
}

func (n *Node) localDeactivate(ctx context.Context, req *api.DeactivateRequest) (*api.DeactivateResponse, error) {
	inst, ok := n.instances.Load(req.Address.String())
	if !ok {
		// a record without an instance is stale
		n.releasePlacement(ctx, req.Address)
		return &api.DeactivateResponse{}, nil
	}

	opts := stopOptions{save: true, reason: "explicit"}
	if req.Force {
		opts.force = true
		opts.reason = "forced"
	}

	drained, err := n.deactivate(ctx, inst, opts)
	if err != nil {
		return nil, err
	}
	return &api.DeactivateResponse{WasActive: true, MessagesDrained: drained}, nil
}

func (n *Node) localStatus(addr address.Address) *api.ActorStatus {
	if inst, ok := n.instances.Load(addr.String()); ok {
		return inst.status()
	}
	return &api.ActorStatus{Address: addr}
}

func timeoutErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return gerrors.ErrRequestTimeout
	}
	return err
}
