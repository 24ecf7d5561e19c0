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

package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/vactor/address"
	"github.com/tochemey/vactor/errors"
)

func TestValidate(t *testing.T) {
	valid := address.New("counter", "a1")
	invalid := address.New("counter", "")

	t.Run("With send request", func(t *testing.T) {
		require.NoError(t, (&SendRequest{Address: valid, MessageType: "incr"}).Validate())
		require.ErrorIs(t, (&SendRequest{Address: invalid, MessageType: "incr"}).Validate(), errors.ErrInvalidAddress)
		require.ErrorIs(t, (&SendRequest{Address: valid}).Validate(), errors.ErrUnhandledMessage)
	})
	t.Run("With invoke request", func(t *testing.T) {
		require.NoError(t, (&InvokeRequest{Address: valid, MessageType: "get"}).Validate())
		require.ErrorIs(t, (&InvokeRequest{Address: valid, MessageType: "get", Timeout: -time.Second}).Validate(), errors.ErrInvalidTimeout)
	})
	t.Run("With address only requests", func(t *testing.T) {
		require.NoError(t, (&ActivateRequest{Address: valid}).Validate())
		require.NoError(t, (&DeactivateRequest{Address: valid}).Validate())
		require.NoError(t, (&StatusRequest{Address: valid}).Validate())
		require.Error(t, (&ActivateRequest{Address: invalid}).Validate())
		require.Error(t, (&DeactivateRequest{Address: invalid}).Validate())
		require.Error(t, (&StatusRequest{Address: invalid}).Validate())
	})
}

func TestWireFormat(t *testing.T) {
	req := &InvokeRequest{
		Address:     address.New("counter", "a1"),
		MessageType: "get",
		Payload:     []byte(`{}`),
		Timeout:     time.Second,
	}
	bytea, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(bytea), `"address":"counter:a1"`)

	actual := new(InvokeRequest)
	require.NoError(t, json.Unmarshal(bytea, actual))
	assert.True(t, req.Address.Equals(actual.Address))
	assert.Equal(t, req.Timeout, actual.Timeout)

	status, err := json.Marshal(&ActorStatus{Address: address.New("counter", "a1")})
	require.NoError(t, err)
	assert.NotContains(t, string(status), "activatedAt")
}

func TestListAndUtilization(t *testing.T) {
	assert.Equal(t, DefaultListLimit, (&ListRequest{}).PageSize())
	assert.Equal(t, 5, (&ListRequest{Limit: 5}).PageSize())
	assert.InDelta(t, 0.25, Utilization(1, 4), 1e-9)
	assert.Zero(t, Utilization(3, 0))
}
