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

package address

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/vactor/errors"
)

func TestAddress(t *testing.T) {
	t.Run("With New", func(t *testing.T) {
		addr := New("counter", "a1")
		assert.Equal(t, "counter", addr.Type())
		assert.Equal(t, "a1", addr.ID())
		assert.Equal(t, "counter:a1", addr.String())
		assert.False(t, addr.IsZero())
		assert.True(t, Address{}.IsZero())
		require.NoError(t, addr.Validate())
	})
	t.Run("With Equals", func(t *testing.T) {
		assert.True(t, New("counter", "a1").Equals(New("counter", "a1")))
		assert.False(t, New("counter", "a1").Equals(New("counter", "a2")))
		assert.False(t, New("counter", "a1").Equals(New("timer", "a1")))
		assert.Equal(t, New("counter", "a1"), MustParse("counter:a1"))
	})
	t.Run("With Parse", func(t *testing.T) {
		addr, err := Parse("order_book:eu-west.2")
		require.NoError(t, err)
		assert.Equal(t, "order_book", addr.Type())
		assert.Equal(t, "eu-west.2", addr.ID())
	})
	t.Run("With invalid addresses", func(t *testing.T) {
		invalid := []string{
			"",
			"   ",
			"counter",
			":a1",
			"counter:",
			"-counter:a1",
			"coun.ter:a1",
			"counter:.a1",
			"counter:a1:b2",
			"counter:a 1",
			strings.Repeat("a", 256) + ":a1",
			"counter:" + strings.Repeat("a", 256),
		}
		for _, raw := range invalid {
			_, err := Parse(raw)
			require.Error(t, err, raw)
			assert.ErrorIs(t, err, gerrors.ErrInvalidAddress, raw)
		}
	})
	t.Run("With maximum lengths", func(t *testing.T) {
		_, err := Parse(strings.Repeat("a", 255) + ":" + strings.Repeat("b", 255))
		require.NoError(t, err)
	})
	t.Run("With MustParse panic", func(t *testing.T) {
		assert.Panics(t, func() { MustParse("invalid") })
	})
	t.Run("With JSON", func(t *testing.T) {
		type payload struct {
			Address Address `json:"address"`
		}
		bytea, err := json.Marshal(payload{Address: New("counter", "a1")})
		require.NoError(t, err)
		assert.JSONEq(t, `{"address":"counter:a1"}`, string(bytea))

		var actual payload
		require.NoError(t, json.Unmarshal(bytea, &actual))
		assert.True(t, actual.Address.Equals(New("counter", "a1")))

		require.Error(t, json.Unmarshal([]byte(`{"address":"nope"}`), &actual))
	})
}
