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

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestMetrics(t *testing.T) {
	t.Run("With noop meter", func(t *testing.T) {
		metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
		require.NoError(t, err)
		require.NotNil(t, metrics)

		ctx := context.Background()
		metrics.RecordActivation(ctx, "counter")
		metrics.RecordDeactivation(ctx, "counter", "idle")
		metrics.RecordMessage(ctx, "counter", time.Millisecond, true)
		metrics.RecordDropped(ctx, "counter", "drop-oldest")
		metrics.RecordResolve(ctx, "assigned")
		metrics.RecordUnreachable(ctx, "node-1")
		metrics.RecordDelivery(ctx, false)

		registration, err := metrics.ObserveActiveActors("node-1", func() int64 { return 3 })
		require.NoError(t, err)
		require.NotNil(t, registration)
		require.NoError(t, registration.Unregister())
	})
	t.Run("With global meter", func(t *testing.T) {
		metrics, err := NewMetrics(DefaultMeter())
		require.NoError(t, err)
		assert.NotNil(t, metrics)
	})
	t.Run("With nil metrics", func(t *testing.T) {
		var metrics *Metrics
		ctx := context.Background()
		assert.NotPanics(t, func() {
			metrics.RecordActivation(ctx, "counter")
			metrics.RecordDeactivation(ctx, "counter", "idle")
			metrics.RecordMessage(ctx, "counter", time.Millisecond, false)
			metrics.RecordDropped(ctx, "counter", "drop-newest")
			metrics.RecordResolve(ctx, "existing")
			metrics.RecordUnreachable(ctx, "node-1")
			metrics.RecordDelivery(ctx, true)
		})
		registration, err := metrics.ObserveActiveActors("node-1", func() int64 { return 0 })
		require.NoError(t, err)
		assert.Nil(t, registration)
	})
}
