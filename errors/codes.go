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
)

// Code is the stable wire identifier of a runtime error.
type Code string

const (
	CodeUnknown                  Code = "unknown"
	CodeAlreadyActiveElsewhere   Code = "already_active_elsewhere"
	CodeNoCapacity               Code = "no_capacity"
	CodeHandlerFailure           Code = "handler_failure"
	CodeNodeUnreachable          Code = "node_unreachable"
	CodeMailboxFull              Code = "mailbox_full"
	CodeMailboxClosed            Code = "mailbox_closed"
	CodeInvalidAddress           Code = "invalid_address"
	CodeActorTypeNotRegistered   Code = "actor_type_not_registered"
	CodeUnhandledMessage         Code = "unhandled_message"
	CodeRequestTimeout           Code = "request_timeout"
	CodeNodeNotRegistered        Code = "node_not_registered"
	CodeNodeNotStarted           Code = "node_not_started"
	CodeActorNotActive           Code = "actor_not_active"
	CodeActivationFailure        Code = "activation_failure"
	CodePlacementNotFound        Code = "placement_not_found"
	CodeScheduleNotFound         Code = "schedule_not_found"
	CodeInvalidTimeout           Code = "invalid_timeout"
	CodeDeactivationFailure      Code = "deactivation_failure"
	CodeClaimLost                Code = "claim_lost"
	CodeActorTypeAlreadyExisting Code = "actor_type_already_registered"
)

// ordered so that the most specific sentinel wins when an error wraps several
var codes = []struct {
	code Code
	err  error
}{
	{CodeAlreadyActiveElsewhere, ErrAlreadyActiveElsewhere},
	{CodeNoCapacity, ErrNoCapacity},
	{CodeMailboxFull, ErrMailboxFull},
	{CodeMailboxClosed, ErrMailboxClosed},
	{CodeInvalidAddress, ErrInvalidAddress},
	{CodeActorTypeNotRegistered, ErrActorTypeNotRegistered},
	{CodeActorTypeAlreadyExisting, ErrActorTypeAlreadyRegistered},
	{CodeUnhandledMessage, ErrUnhandledMessage},
	{CodeRequestTimeout, ErrRequestTimeout},
	{CodeNodeNotRegistered, ErrNodeNotRegistered},
	{CodeNodeNotStarted, ErrNodeNotStarted},
	{CodeActorNotActive, ErrActorNotActive},
	{CodeClaimLost, ErrClaimLost},
	{CodePlacementNotFound, ErrPlacementNotFound},
	{CodeScheduleNotFound, ErrScheduleNotFound},
	{CodeInvalidTimeout, ErrInvalidTimeout},
	{CodeActivationFailure, ErrActivationFailure},
	{CodeDeactivationFailure, ErrDeactivationFailure},
	{CodeHandlerFailure, ErrHandlerFailure},
	{CodeNodeUnreachable, ErrNodeUnreachable},
}

// CodeOf returns the wire code of err. Nil errors have no code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	for _, entry := range codes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return CodeUnknown
}

// FromCode rebuilds an error received over the wire so that errors.Is keeps working
// on the caller side. The original message is preserved.
func FromCode(code Code, message string) error {
	if code == "" {
		return nil
	}
	for _, entry := range codes {
		if entry.code == code {
			if message == "" || message == entry.err.Error() {
				return entry.err
			}
			return &remoteError{sentinel: entry.err, message: message}
		}
	}
	return errors.New(message)
}

type remoteError struct {
	sentinel error
	message  string
}

func (e *remoteError) Error() string { return e.message }
func (e *remoteError) Unwrap() error { return e.sentinel }
