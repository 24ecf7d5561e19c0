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

// Package api defines the primary request/response surface of the runtime.
// Nodes and cluster clients implement Service; the remote transport carries
// these types as JSON.
package api

import (
	"context"
	"time"

	"github.com/tochemey/vactor/address"
	"github.com/tochemey/vactor/errors"
)

// DefaultListLimit is the page size used when a list request does not set one
const DefaultListLimit = 100

// Service is the primary API of the runtime
type Service interface {
	// Send enqueues a message without waiting for it to be processed
	Send(ctx context.Context, req *SendRequest) (*SendResponse, error)
	// Invoke enqueues a message and waits for the handler reply
	Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResponse, error)
	// Activate warms an actor up without sending it a message
	Activate(ctx context.Context, req *ActivateRequest) (*ActivateResponse, error)
	// Deactivate returns an actor to the virtual state
	Deactivate(ctx context.Context, req *DeactivateRequest) (*DeactivateResponse, error)
	Status(ctx context.Context, req *StatusRequest) (*ActorStatus, error)
	List(ctx context.Context, req *ListRequest) (*ListResponse, error)
	PoolStatus(ctx context.Context) (*PoolStatus, error)
}

type SendRequest struct {
	Address     address.Address `json:"address"`
	MessageType string          `json:"messageType"`
	Payload     []byte          `json:"payload,omitempty"`
}

// Validate checks the request
func (r *SendRequest) Validate() error {
	return validateMessage(r.Address, r.MessageType)
}

// SendResponse reports whether the owning node accepted the message.
// Accepted is false when a drop-newest mailbox discarded it.
type SendResponse struct {
	Accepted bool   `json:"accepted"`
	NodeID   string `json:"nodeId"`
}

type InvokeRequest struct {
	Address     address.Address `json:"address"`
	MessageType string          `json:"messageType"`
	Payload     []byte          `json:"payload,omitempty"`
	// Timeout bounds the wait for the reply; zero uses the node default
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Validate checks the request
func (r *InvokeRequest) Validate() error {
	if r.Timeout < 0 {
		return errors.ErrInvalidTimeout
	}
	return validateMessage(r.Address, r.MessageType)
}

type InvokeResponse struct {
	Payload []byte `json:"payload,omitempty"`
	NodeID  string `json:"nodeId"`
}

type ActivateRequest struct {
	Address address.Address `json:"address"`
}

// Validate checks the request
func (r *ActivateRequest) Validate() error {
	return r.Address.Validate()
}

type ActivateResponse struct {
	NodeID        string `json:"nodeId"`
	AlreadyActive bool   `json:"alreadyActive"`
}

type DeactivateRequest struct {
	Address address.Address `json:"address"`
	// Force cancels the in-flight handler and rejects queued messages
	// instead of draining them
	Force bool `json:"force,omitempty"`
}

// Validate checks the request
func (r *DeactivateRequest) Validate() error {
	return r.Address.Validate()
}

type DeactivateResponse struct {
	WasActive       bool `json:"wasActive"`
	MessagesDrained int  `json:"messagesDrained"`
}

type StatusRequest struct {
	Address address.Address `json:"address"`
}

// Validate checks the request
func (r *StatusRequest) Validate() error {
	return r.Address.Validate()
}

// ActorStatus describes an actor. NodeID is empty for virtual actors.
type ActorStatus struct {
	Address           address.Address `json:"address"`
	Active            bool            `json:"active"`
	NodeID            string          `json:"nodeId,omitempty"`
	ActivatedAt       time.Time       `json:"activatedAt,omitzero"`
	MailboxSize       int             `json:"mailboxSize"`
	MessagesProcessed int64           `json:"messagesProcessed"`
}

type ListRequest struct {
	// ActorType restricts the listing to one actor type when set
	ActorType  string `json:"actorType,omitempty"`
	ActiveOnly bool   `json:"activeOnly,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	// Cursor is the NextCursor of the previous page
	Cursor string `json:"cursor,omitempty"`
}

// PageSize returns the effective page size
func (r *ListRequest) PageSize() int {
	if r.Limit <= 0 {
		return DefaultListLimit
	}
	return r.Limit
}

type ListResponse struct {
	Actors []*ActorStatus `json:"actors"`
	// NextCursor is empty on the last page
	NextCursor string `json:"nextCursor,omitempty"`
}

type NodeStatus struct {
	NodeID        string    `json:"nodeId"`
	Endpoint      string    `json:"endpoint"`
	Healthy       bool      `json:"healthy"`
	ActiveCount   int       `json:"activeCount"`
	Capacity      int       `json:"capacity"`
	Utilization   float64   `json:"utilization"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
}

type PoolStatus struct {
	Nodes []NodeStatus `json:"nodes"`
}

// Utilization returns activeCount/capacity, zero for nodes without capacity
func Utilization(activeCount, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(activeCount) / float64(capacity)
}

func validateMessage(addr address.Address, messageType string) error {
	if err := addr.Validate(); err != nil {
		return err
	}
	if messageType == "" {
		return errors.NewErrUnhandledMessage(addr.Type(), messageType)
	}
	return nil
}
