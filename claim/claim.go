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

// Package claim provides the short-lived, cluster-wide activation claims that
// guarantee a single active instance per actor address.
//
// A claim is an atomic "set if absent with expiry" entry keyed by address and
// owned by a node. The owner keeps it alive by renewing it before the TTL
// elapses; an expired claim may be taken by any node.
package claim

import (
	"context"
	"time"

	"github.com/tochemey/vactor/address"
)

// Store is the shared claim store.
//
// Acquire fails with errors.ErrAlreadyActiveElsewhere when another node holds
// a live claim on the address; acquiring a claim the node already holds
// refreshes it. Renew fails with errors.ErrClaimLost when the node no longer
// holds the claim. Release is a no-op when the node does not hold the claim.
type Store interface {
	Acquire(ctx context.Context, addr address.Address, nodeID string, ttl time.Duration) error
	Renew(ctx context.Context, addr address.Address, nodeID string, ttl time.Duration) error
	Release(ctx context.Context, addr address.Address, nodeID string) error
	// Owner returns the node holding a live claim on the address
	Owner(ctx context.Context, addr address.Address) (nodeID string, found bool, err error)
	Close() error
}
