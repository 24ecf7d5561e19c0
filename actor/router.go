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
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/flowchartsman/retry"

	"github.com/tochemey/vactor/address"
	"github.com/tochemey/vactor/api"
	gerrors "github.com/tochemey/vactor/errors"
	"github.com/tochemey/vactor/log"
	"github.com/tochemey/vactor/persistence"
	"github.com/tochemey/vactor/placement"
)

const (
	routeRetryDelay    = 20 * time.Millisecond
	routeRetryMaxDelay = time.Second
)

// Router serves the primary API by resolving the owner of an address through
// the placement directory and forwarding the request to it. Nodes route
// through their own Router; clients that host no actors use one directly.
type Router struct {
	directory      placement.Directory
	peers          Peers
	logger         log.Logger
	attempts       int
	requestTimeout time.Duration

	// set when the router belongs to a node
	selfID string
	self   Peer
	lister persistence.Lister
}

// NewRouter creates a router. attempts bounds the retries of a request whose
// owner is unreachable or changed while routing.
func NewRouter(directory placement.Directory, peers Peers, attempts int, requestTimeout time.Duration, logger log.Logger) *Router {
	if logger == nil {
		logger = log.DiscardLogger
	}
	return &Router{
		directory:      directory,
		peers:          peers,
		logger:         logger,
		attempts:       max(attempts, 1),
		requestTimeout: requestTimeout,
	}
}

var _ api.Service = (*Router)(nil)

// Send delivers a fire-and-forget message
func (r *Router) Send(ctx context.Context, req *api.SendRequest) (*api.SendResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var resp *api.SendResponse
	err := r.route(ctx, req.Address, func(ctx context.Context, peer Peer) (err error) {
		resp, err = peer.Send(ctx, req)
		return err
	})
	return resp, err
}

// Invoke sends a request and waits for the reply. The timeout is caller-side:
// the handler may still complete after ErrRequestTimeout is returned.
func (r *Router) Invoke(ctx context.Context, req *api.InvokeRequest) (*api.InvokeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = r.requestTimeout
	}
	forward := *req
	forward.Timeout = timeout

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var resp *api.InvokeResponse
	err := r.route(ctx, req.Address, func(ctx context.Context, peer Peer) (err error) {
		resp, err = peer.Invoke(ctx, &forward)
		return err
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, gerrors.ErrRequestTimeout
	}
	return resp, err
}

// Activate activates the actor without sending it a message
func (r *Router) Activate(ctx context.Context, req *api.ActivateRequest) (*api.ActivateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var resp *api.ActivateResponse
	err := r.route(ctx, req.Address, func(ctx context.Context, peer Peer) (err error) {
		resp, err = peer.Activate(ctx, req)
		return err
	})
	return resp, err
}

// Deactivate deactivates the actor when it is active. A virtual actor is
// reported with WasActive false.
func (r *Router) Deactivate(ctx context.Context, req *api.DeactivateRequest) (*api.DeactivateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	record, found, err := r.directory.Lookup(ctx, req.Address)
	if err != nil {
		return nil, err
	}
	if !found {
		return &api.DeactivateResponse{}, nil
	}

	peer, err := r.peerFor(record)
	if err != nil {
		return nil, err
	}
	return peer.Deactivate(ctx, req)
}

// Status reports the actor status. Virtual actors are reported inactive.
func (r *Router) Status(ctx context.Context, req *api.StatusRequest) (*api.ActorStatus, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	record, found, err := r.directory.Lookup(ctx, req.Address)
	if err != nil {
		return nil, err
	}
	if !found {
		return &api.ActorStatus{Address: req.Address}, nil
	}

	peer, err := r.peerFor(record)
	if err != nil {
		return nil, err
	}
	return peer.Status(ctx, req)
}

// List pages through actors in address order. Active actors come from the
// placement directory; virtual ones are added from the state store when it
// can enumerate its addresses and ActiveOnly is not set.
func (r *Router) List(ctx context.Context, req *api.ListRequest) (*api.ListResponse, error) {
	limit := req.PageSize()

	if req.ActiveOnly || r.lister == nil {
		records, next, err := r.directory.Records(ctx, placement.RecordFilter{
			ActorType: req.ActorType,
			Cursor:    req.Cursor,
			Limit:     limit,
		})
		if err != nil {
			return nil, err
		}
		actors := make([]*api.ActorStatus, 0, len(records))
		for _, record := range records {
			actors = append(actors, r.recordStatus(ctx, record))
		}
		return &api.ListResponse{Actors: actors, NextCursor: next}, nil
	}

	records, _, err := r.directory.Records(ctx, placement.RecordFilter{ActorType: req.ActorType})
	if err != nil {
		return nil, err
	}
	stored, err := r.lister.Addresses(ctx, req.ActorType)
	if err != nil {
		return nil, err
	}

	active := make(map[string]*placement.Record, len(records))
	keys := mapset.NewThreadUnsafeSet[string]()
	for _, record := range records {
		key := record.Address.String()
		active[key] = record
		keys.Add(key)
	}
	virtual := make(map[string]address.Address, len(stored))
	for _, addr := range stored {
		key := addr.String()
		if keys.Add(key) {
			virtual[key] = addr
		}
	}

	sorted := keys.ToSlice()
	slices.Sort(sorted)
	if req.Cursor != "" {
		index, _ := slices.BinarySearch(sorted, req.Cursor)
		if index < len(sorted) && sorted[index] == req.Cursor {
			index++
		}
		sorted = sorted[index:]
	}

	next := ""
	if len(sorted) > limit {
		sorted = sorted[:limit]
		next = sorted[len(sorted)-1]
	}

	actors := make([]*api.ActorStatus, 0, len(sorted))
	for _, key := range sorted {
		if record, ok := active[key]; ok {
			actors = append(actors, r.recordStatus(ctx, record))
			continue
		}
		actors = append(actors, &api.ActorStatus{Address: virtual[key]})
	}
	return &api.ListResponse{Actors: actors, NextCursor: next}, nil
}

// PoolStatus reports every registered node
func (r *Router) PoolStatus(ctx context.Context) (*api.PoolStatus, error) {
	nodes, err := r.directory.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	status := &api.PoolStatus{Nodes: make([]api.NodeStatus, 0, len(nodes))}
	for _, node := range nodes {
		status.Nodes = append(status.Nodes, api.NodeStatus{
			NodeID:        node.NodeID,
			Endpoint:      node.Endpoint,
			Healthy:       node.Healthy,
			ActiveCount:   node.ActiveCount,
			Capacity:      node.Capacity,
			Utilization:   api.Utilization(node.ActiveCount, node.Capacity),
			LastHeartbeat: node.LastHeartbeat,
		})
	}
	return status, nil
}

// route resolves the owner of addr and calls fn with its peer. Contention and
// unreachable owners are retried with backoff; any other error ends routing.
func (r *Router) route(ctx context.Context, addr address.Address, fn func(ctx context.Context, peer Peer) error) error {
	var lastErr, final error

	retrier := retry.NewRetrier(r.attempts, routeRetryDelay, routeRetryMaxDelay)
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		err := r.forward(ctx, addr, fn)
		switch {
		case err == nil:
			final = nil
			return nil
		case errors.Is(err, gerrors.ErrAlreadyActiveElsewhere), errors.Is(err, gerrors.ErrNodeUnreachable):
			r.logger.Debugf("routing actor (%s) failed, retrying: %v", addr, err)
			lastErr = err
			return err
		default:
			final = err
			return nil
		}
	})

	switch {
	case final != nil:
		return final
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case lastErr != nil:
		return lastErr
	}
	return err
}

func (r *Router) forward(ctx context.Context, addr address.Address, fn func(ctx context.Context, peer Peer) error) error {
	record, err := r.directory.Resolve(ctx, addr)
	if err != nil {
		return err
	}
	peer, err := r.peerFor(record)
	if err != nil {
		return err
	}
	return fn(ctx, peer)
}

func (r *Router) peerFor(record *placement.Record) (Peer, error) {
	if r.self != nil && record.NodeID == r.selfID {
		return r.self, nil
	}
	return r.peers.Peer(record.NodeID, record.Endpoint)
}

func (r *Router) recordStatus(ctx context.Context, record *placement.Record) *api.ActorStatus {
	fallback := &api.ActorStatus{Address: record.Address, Active: true, NodeID: record.NodeID}
	peer, err := r.peerFor(record)
	if err != nil {
		return fallback
	}
	status, err := peer.Status(ctx, &api.StatusRequest{Address: record.Address})
	if err != nil {
		r.logger.Debugf("status of actor (%s) on node=(%s) failed: %v", record.Address, record.NodeID, err)
		return fallback
	}
	return status
}
