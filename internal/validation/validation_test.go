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

package validation

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain(t *testing.T) {
	t.Run("With options", func(t *testing.T) {
		assert.False(t, New().failFast)
		assert.True(t, New(FailFast()).failFast)
		assert.False(t, New(FailFast(), AllErrors()).failFast)
	})
	t.Run("With single validator", func(t *testing.T) {
		chain := New().AddValidator(NewEmptyStringValidator("field", ""))
		require.Len(t, chain.validators, 1)
		err := chain.Validate()
		require.EqualError(t, err, "the [field] is required")
	})
	t.Run("With FailFast", func(t *testing.T) {
		chain := New(FailFast()).
			AddValidator(NewEmptyStringValidator("field", " ")).
			AddAssertion(false, "this is false")
		err := chain.Validate()
		require.EqualError(t, err, "the [field] is required")
		assert.NoError(t, chain.violations)
	})
	t.Run("With AllErrors", func(t *testing.T) {
		chain := New(AllErrors()).
			AddValidator(NewEmptyStringValidator("field", "")).
			AddAssertion(false, "this is false")
		err := chain.Validate()
		require.EqualError(t, err, "the [field] is required; this is false")
	})
	t.Run("With no violation", func(t *testing.T) {
		err := New().
			AddValidator(NewEmptyStringValidator("field", "value")).
			AddAssertion(true, "never").
			Validate()
		require.NoError(t, err)
	})
}

func TestValidators(t *testing.T) {
	t.Run("With pattern", func(t *testing.T) {
		expr := regexp.MustCompile(`^[a-z]+$`)
		require.NoError(t, NewPatternValidator("name", expr, "counter", nil).Validate())
		err := NewPatternValidator("name", expr, "Counter1", nil).Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "[name]")

		custom := errors.New("custom")
		require.ErrorIs(t, NewPatternValidator("name", expr, "$", custom).Validate(), custom)
	})
	t.Run("With max length", func(t *testing.T) {
		require.NoError(t, NewMaxLengthValidator("id", "abc", 3).Validate())
		require.EqualError(t, NewMaxLengthValidator("id", strings.Repeat("a", 4), 3).Validate(),
			"the [id] must not exceed 3 characters")
	})
	t.Run("With positive duration", func(t *testing.T) {
		require.NoError(t, NewPositiveDurationValidator("ttl", time.Second).Validate())
		require.Error(t, NewPositiveDurationValidator("ttl", 0).Validate())
		require.Error(t, NewPositiveDurationValidator("ttl", -time.Second).Validate())
	})
	t.Run("With TCP address", func(t *testing.T) {
		require.NoError(t, NewTCPAddressValidator("127.0.0.1:6379").Validate())
		require.NoError(t, NewTCPAddressValidator("redis:6379").Validate())
		require.Error(t, NewTCPAddressValidator("127.0.0.1").Validate())
		require.Error(t, NewTCPAddressValidator(":6379").Validate())
		require.Error(t, NewTCPAddressValidator("127.0.0.1:port").Validate())
		require.Error(t, NewTCPAddressValidator("127.0.0.1:70000").Validate())
	})
}
