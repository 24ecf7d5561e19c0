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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyActiveElsewhere is returned when the activation claim for an address is held by another node.
	// It is transient: resolving the address again routes the request to the owner.
	ErrAlreadyActiveElsewhere = errors.New("actor is already active elsewhere")

	// ErrNoCapacity is returned when no healthy node has room for another actor.
	ErrNoCapacity = errors.New("no node has spare capacity")

	// ErrHandlerFailure indicates that an actor handler returned an error or panicked.
	ErrHandlerFailure = errors.New("actor handler failed")

	// ErrNodeUnreachable indicates that a node stopped heartbeating or cannot be contacted.
	ErrNodeUnreachable = errors.New("node is unreachable")

	// ErrMailboxFull is returned when a blocking mailbox did not free a slot in time.
	ErrMailboxFull = errors.New("mailbox is full")

	// ErrMailboxClosed is returned when enqueueing into a mailbox of an instance that is deactivating.
	ErrMailboxClosed = errors.New("mailbox is closed")

	// ErrInvalidAddress is returned when an actor address cannot be parsed or validated.
	ErrInvalidAddress = errors.New("invalid actor address")

	// ErrActorTypeNotRegistered is returned when no descriptor is registered for an actor type.
	ErrActorTypeNotRegistered = errors.New("actor type is not registered")

	// ErrActorTypeAlreadyRegistered is returned when a descriptor is registered twice.
	ErrActorTypeAlreadyRegistered = errors.New("actor type is already registered")

	// ErrUnhandledMessage is returned when an actor type has no handler for a message type.
	ErrUnhandledMessage = errors.New("unhandled message")

	// ErrRequestTimeout indicates that an invoke did not receive a reply in time.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrNodeNotRegistered is returned by the placement service for heartbeats from unknown or fenced nodes.
	ErrNodeNotRegistered = errors.New("node is not registered")

	// ErrNodeNotStarted is returned when calling a node runtime that is not running.
	ErrNodeNotStarted = errors.New("node is not started")

	// ErrNodeAlreadyStarted is returned when starting a node runtime twice.
	ErrNodeAlreadyStarted = errors.New("node has already started")

	// ErrActorNotActive is returned when an operation requires a locally active instance.
	ErrActorNotActive = errors.New("actor is not active")

	// ErrActivationFailure indicates that activating an actor failed.
	ErrActivationFailure = errors.New("actor activation failed")

	// ErrDeactivationFailure indicates that deactivating an actor failed.
	ErrDeactivationFailure = errors.New("actor deactivation failed")

	// ErrClaimLost indicates that the node could not renew the activation claim of an instance.
	ErrClaimLost = errors.New("activation claim lost")

	// ErrPlacementNotFound is returned when an address has no placement record.
	ErrPlacementNotFound = errors.New("placement not found")

	// ErrScheduleNotFound is returned when a schedule record does not exist.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrSchedulerNotStarted is returned when using a scheduler that is not running.
	ErrSchedulerNotStarted = errors.New("scheduler has not started")

	// ErrInvalidConfig is returned when a configuration fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidTimeout is returned when a timeout is not strictly positive.
	ErrInvalidTimeout = errors.New("invalid timeout")
)

// NewErrInvalidAddress wraps a base error with ErrInvalidAddress
func NewErrInvalidAddress(err error) error {
	return errors.Join(ErrInvalidAddress, err)
}

// NewErrActivationFailure wraps a base error with ErrActivationFailure
func NewErrActivationFailure(err error) error {
	return errors.Join(ErrActivationFailure, err)
}

// NewErrDeactivationFailure wraps a base error with ErrDeactivationFailure
func NewErrDeactivationFailure(err error) error {
	return errors.Join(ErrDeactivationFailure, err)
}

// NewErrInvalidConfig wraps a validation error with ErrInvalidConfig
func NewErrInvalidConfig(err error) error {
	return errors.Join(ErrInvalidConfig, err)
}

// NewErrActorTypeNotRegistered formats an ErrActorTypeNotRegistered for the given actor type.
func NewErrActorTypeNotRegistered(actorType string) error {
	return fmt.Errorf("actor type=(%s) %w", actorType, ErrActorTypeNotRegistered)
}

// NewErrUnhandledMessage formats an ErrUnhandledMessage for the given actor type and message type.
func NewErrUnhandledMessage(actorType, messageType string) error {
	return fmt.Errorf("actor type=(%s) message type=(%s) %w", actorType, messageType, ErrUnhandledMessage)
}

// NewErrNodeUnreachable formats an ErrNodeUnreachable for the given node.
func NewErrNodeUnreachable(nodeID string, err error) error {
	if err == nil {
		return fmt.Errorf("node=(%s) %w", nodeID, ErrNodeUnreachable)
	}
	return fmt.Errorf("node=(%s) %w: %w", nodeID, ErrNodeUnreachable, err)
}

// HandlerError is the HandlerFailure of a single message. It carries the address and
// message type so that failures can be logged and reported without extra bookkeeping.
type HandlerError struct {
	Address     string
	MessageType string
	err         error
}

// enforce compilation error
var _ error = (*HandlerError)(nil)

// NewHandlerError creates an instance of HandlerError
func NewHandlerError(address, messageType string, err error) *HandlerError {
	return &HandlerError{Address: address, MessageType: messageType, err: err}
}

// Error implements the standard error interface
func (e *HandlerError) Error() string {
	return fmt.Sprintf("actor=(%s) message=(%s) %s: %v", e.Address, e.MessageType, ErrHandlerFailure.Error(), e.err)
}

// Is makes errors.Is(err, ErrHandlerFailure) hold for every HandlerError.
func (e *HandlerError) Is(target error) bool {
	return target == ErrHandlerFailure
}

func (e *HandlerError) Unwrap() error {
	return e.err
}

// PanicError defines the panic error
// wrapping the underlying error
type PanicError struct {
	err error
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *PanicError) Unwrap() error {
	return e.err
}
