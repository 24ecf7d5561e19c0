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

// Package placement is the single source of truth mapping actor addresses to
// the nodes hosting them. One logical Service runs per cluster, usually on a
// control node; nodes reach it through the Directory interface.
package placement

import (
	"context"
	"time"

	"github.com/tochemey/vactor/address"
)

// Record maps an active actor to its owning node. At most one record exists
// per address; absence means the actor is virtual.
type Record struct {
	Address    address.Address `json:"address"`
	NodeID     string          `json:"nodeId"`
	Endpoint   string          `json:"endpoint"`
	AssignedAt time.Time       `json:"assignedAt"`
}

// NodeInfo describes a registered node
type NodeInfo struct {
	NodeID        string    `json:"nodeId"`
	Endpoint      string    `json:"endpoint"`
	Capacity      int       `json:"capacity"`
	ActiveCount   int       `json:"activeCount"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
	Healthy       bool      `json:"healthy"`
	RegisteredAt  time.Time `json:"registeredAt"`
}

// RecordFilter pages through placement records in address order
type RecordFilter struct {
	ActorType string
	// Cursor is exclusive: records after it are returned
	Cursor string
	// Limit of zero returns every matching record
	Limit int
}

// Directory is the placement surface consumed by node runtimes and clients.
// Service implements it in process; the remote package implements it over NATS.
type Directory interface {
	// Resolve returns the record of addr, assigning the least loaded healthy
	// node when the actor is virtual. It fails with errors.ErrNoCapacity when
	// no healthy node has room.
	Resolve(ctx context.Context, addr address.Address) (*Record, error)
	// Lookup returns the record of addr without assigning one
	Lookup(ctx context.Context, addr address.Address) (*Record, bool, error)
	// Release removes the record of addr when nodeID still owns it
	Release(ctx context.Context, addr address.Address, nodeID string) error
	RegisterNode(ctx context.Context, node *NodeInfo) error
	DeregisterNode(ctx context.Context, nodeID string) error
	// Heartbeat fails with errors.ErrNodeNotRegistered for unknown or unhealthy nodes
	Heartbeat(ctx context.Context, nodeID string) error
	Nodes(ctx context.Context) ([]*NodeInfo, error)
	// Records returns a page of records and the cursor of the next page
	Records(ctx context.Context, filter RecordFilter) ([]*Record, string, error)
}
