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

// Package persistence defines the state adapter used by the node runtime to
// load and save actor state, together with in-memory, bbolt and redis
// implementations.
//
// State is an opaque byte slice owned by the actor type. The runtime keys it
// by the canonical address string and never interprets it.
package persistence

import (
	"context"
	"errors"

	"github.com/tochemey/vactor/address"
)

// ErrStoreClosed is returned when using a store after Close
var ErrStoreClosed = errors.New("persistence: store is closed")

// StateStore persists actor state between activations.
//
// Implementations must be safe for concurrent use. The runtime guarantees
// that at most one instance of an address reads or writes its state at a
// time.
type StateStore interface {
	// Load returns the saved state of the address. found is false when
	// nothing was saved yet, which is not an error.
	Load(ctx context.Context, addr address.Address) (state []byte, found bool, err error)
	// Save inserts or replaces the state of the address
	Save(ctx context.Context, addr address.Address, state []byte) error
	// Delete removes the state of the address. Deleting a missing key is a no-op.
	Delete(ctx context.Context, addr address.Address) error
	// Close releases the store resources
	Close() error
}

// Lister is implemented by stores that can enumerate the addresses they hold.
// The list operation uses it to report virtual actors.
type Lister interface {
	// Addresses returns the stored addresses of the given actor type sorted by
	// their canonical string. An empty actor type lists every address.
	Addresses(ctx context.Context, actorType string) ([]address.Address, error)
}

func contextErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
