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

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZap(t *testing.T) {
	t.Run("With Debug level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(DebugLevel, buffer)
		require.Equal(t, DebugLevel, logger.LogLevel())

		logger.Debug("test debug")
		entry := decodeEntry(t, buffer)
		assert.Equal(t, "test debug", entry["msg"])
		assert.Equal(t, "debug", entry["level"])
	})
	t.Run("With Info level drops debug entries", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.Debug("hidden")
		require.Zero(t, buffer.Len())

		logger.Infof("actor %s activated", "counter:a1")
		entry := decodeEntry(t, buffer)
		assert.Equal(t, "actor counter:a1 activated", entry["msg"])
		assert.Equal(t, "info", entry["level"])
	})
	t.Run("With Warn level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(WarningLevel, buffer)
		require.Equal(t, WarningLevel, logger.LogLevel())
		logger.Info("hidden")
		require.Zero(t, buffer.Len())
		logger.Warnf("mailbox of %s is full", "counter:a1")
		entry := decodeEntry(t, buffer)
		assert.Equal(t, "warn", entry["level"])
	})
	t.Run("With Error level", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(ErrorLevel, buffer)
		logger.Warn("hidden")
		require.Zero(t, buffer.Len())
		logger.Error("boom")
		entry := decodeEntry(t, buffer)
		assert.Equal(t, "error", entry["level"])
		assert.Equal(t, "boom", entry["msg"])
	})
	t.Run("With structured fields", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.With("node", "node-1", "active", 3, "err", errors.New("oops"), "orphan").Info("heartbeat")
		entry := decodeEntry(t, buffer)
		assert.Equal(t, "node-1", entry["node"])
		assert.EqualValues(t, 3, entry["active"])
		assert.Equal(t, "oops", entry["err"])
		assert.Equal(t, "orphan", entry["_"])
	})
	t.Run("With no fields returns the same logger", func(t *testing.T) {
		logger := NewZap(InfoLevel, new(bytes.Buffer))
		assert.Same(t, logger, logger.With())
		assert.Same(t, logger, logger.With(1, 2))
	})
	t.Run("With Flush", func(t *testing.T) {
		file, err := os.CreateTemp(t.TempDir(), "log")
		require.NoError(t, err)
		defer file.Close()

		logger := NewZap(InfoLevel, file, os.Stderr, new(bytes.Buffer))
		logger.Info("synced")
		require.NoError(t, logger.Flush())

		content, err := os.ReadFile(file.Name())
		require.NoError(t, err)
		assert.Contains(t, string(content), "synced")
	})
}

func TestDiscardLogger(t *testing.T) {
	DiscardLogger.Debug("discarded")
	DiscardLogger.Infof("discarded %s", "msg")
	DiscardLogger.Warn("discarded")
	DiscardLogger.Errorf("discarded %s", "msg")

	assert.Equal(t, InfoLevel, DiscardLogger.LogLevel())
	assert.Equal(t, DiscardLogger, DiscardLogger.With("k", "v"))
	require.NoError(t, DiscardLogger.Flush())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
	assert.Equal(t, WarningLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, InvalidLevel, ParseLevel("verbose"))
	assert.Equal(t, "warn", WarningLevel.String())
	assert.Equal(t, "invalid", Level(42).String())
}

func decodeEntry(t *testing.T, buffer *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &entry))
	buffer.Reset()
	return entry
}
