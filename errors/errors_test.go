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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	t.Run("With wrappers", func(t *testing.T) {
		err := errors.New("something went wrong")
		activationErr := NewErrActivationFailure(err)
		require.ErrorIs(t, activationErr, ErrActivationFailure)
		require.ErrorIs(t, activationErr, err)

		deactivationErr := NewErrDeactivationFailure(err)
		require.ErrorIs(t, deactivationErr, ErrDeactivationFailure)

		addrErr := NewErrInvalidAddress(err)
		require.ErrorIs(t, addrErr, ErrInvalidAddress)

		cfgErr := NewErrInvalidConfig(err)
		require.ErrorIs(t, cfgErr, ErrInvalidConfig)
	})
	t.Run("With formatted errors", func(t *testing.T) {
		err := NewErrActorTypeNotRegistered("counter")
		require.EqualError(t, err, "actor type=(counter) actor type is not registered")
		require.ErrorIs(t, err, ErrActorTypeNotRegistered)

		err = NewErrUnhandledMessage("counter", "reset")
		require.ErrorIs(t, err, ErrUnhandledMessage)
		assert.Contains(t, err.Error(), "message type=(reset)")

		err = NewErrNodeUnreachable("node-1", nil)
		require.EqualError(t, err, "node=(node-1) node is unreachable")

		cause := errors.New("connection refused")
		err = NewErrNodeUnreachable("node-1", cause)
		require.ErrorIs(t, err, ErrNodeUnreachable)
		require.ErrorIs(t, err, cause)
	})
	t.Run("With HandlerError", func(t *testing.T) {
		cause := errors.New("division by zero")
		err := NewHandlerError("counter:a1", "increment", cause)
		require.EqualError(t, err, "actor=(counter:a1) message=(increment) actor handler failed: division by zero")
		require.ErrorIs(t, err, ErrHandlerFailure)
		require.ErrorIs(t, err, cause)

		wrapped := fmt.Errorf("invoke: %w", err)
		var handlerErr *HandlerError
		require.ErrorAs(t, wrapped, &handlerErr)
		assert.Equal(t, "counter:a1", handlerErr.Address)
		assert.Equal(t, "increment", handlerErr.MessageType)
	})
	t.Run("With PanicError", func(t *testing.T) {
		cause := errors.New("nil map")
		err := NewPanicError(cause)
		require.EqualError(t, err, "panic: nil map")
		assert.ErrorIs(t, err.Unwrap(), cause)
	})
}

func TestCodes(t *testing.T) {
	t.Run("With nil error", func(t *testing.T) {
		assert.Empty(t, CodeOf(nil))
		assert.NoError(t, FromCode("", "ignored"))
	})
	t.Run("With sentinel round trip", func(t *testing.T) {
		for _, sentinel := range []error{
			ErrAlreadyActiveElsewhere,
			ErrNoCapacity,
			ErrMailboxFull,
			ErrNodeUnreachable,
			ErrRequestTimeout,
			ErrNodeNotRegistered,
		} {
			code := CodeOf(sentinel)
			require.NotEqual(t, CodeUnknown, code)
			require.ErrorIs(t, FromCode(code, sentinel.Error()), sentinel)
		}
	})
	t.Run("With wrapped errors keeping the message", func(t *testing.T) {
		err := NewHandlerError("counter:a1", "increment", errors.New("boom"))
		code := CodeOf(err)
		require.Equal(t, CodeHandlerFailure, code)

		decoded := FromCode(code, err.Error())
		require.ErrorIs(t, decoded, ErrHandlerFailure)
		require.EqualError(t, decoded, err.Error())
	})
	t.Run("With the most specific sentinel", func(t *testing.T) {
		err := NewErrActivationFailure(ErrAlreadyActiveElsewhere)
		assert.Equal(t, CodeAlreadyActiveElsewhere, CodeOf(err))
	})
	t.Run("With unknown errors", func(t *testing.T) {
		assert.Equal(t, CodeUnknown, CodeOf(errors.New("oops")))
		err := FromCode(CodeUnknown, "oops")
		require.EqualError(t, err, "oops")
	})
}
