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

// Package telemetry defines the OpenTelemetry instruments recorded by the
// node runtime, the placement service and the scheduler.
//
// Instruments are created from the global MeterProvider unless a Meter is
// supplied. A nil *Metrics is valid and records nothing.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/tochemey/vactor"

var (
	actorTypeKey = attribute.Key("actor.type")
	reasonKey    = attribute.Key("reason")
	policyKey    = attribute.Key("overflow.policy")
	outcomeKey   = attribute.Key("outcome")
	nodeKey      = attribute.Key("node.id")
)

// Metrics groups the instruments of the runtime.
//
// Instruments:
//   - vactor.actor.activations          (Int64Counter)
//   - vactor.actor.deactivations        (Int64Counter)
//   - vactor.actor.messages.processed   (Int64Counter)
//   - vactor.actor.handler.failures     (Int64Counter)
//   - vactor.actor.messages.dropped     (Int64Counter)
//   - vactor.actor.message.duration     (Float64Histogram, unit: ms)
//   - vactor.node.actors.active         (Int64ObservableGauge)
//   - vactor.placement.resolves         (Int64Counter)
//   - vactor.placement.nodes.unreachable (Int64Counter)
//   - vactor.scheduler.deliveries       (Int64Counter)
type Metrics struct {
	meter         metric.Meter
	activations   metric.Int64Counter
	deactivations metric.Int64Counter
	processed     metric.Int64Counter
	failures      metric.Int64Counter
	dropped       metric.Int64Counter
	duration      metric.Float64Histogram
	activeActors  metric.Int64ObservableGauge
	resolves      metric.Int64Counter
	unreachable   metric.Int64Counter
	deliveries    metric.Int64Counter
}

// DefaultMeter returns the vactor meter of the global MeterProvider
func DefaultMeter() metric.Meter {
	return otel.GetMeterProvider().Meter(instrumentationName)
}

// NewMetrics creates the instruments using the provided Meter.
// It returns an error if any instrument cannot be created.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	metrics := &Metrics{meter: meter}
	var err error

	if metrics.activations, err = meter.Int64Counter(
		"vactor.actor.activations",
		metric.WithDescription("The total number of actor activations"),
	); err != nil {
		return nil, err
	}

	if metrics.deactivations, err = meter.Int64Counter(
		"vactor.actor.deactivations",
		metric.WithDescription("The total number of actor deactivations"),
	); err != nil {
		return nil, err
	}

	if metrics.processed, err = meter.Int64Counter(
		"vactor.actor.messages.processed",
		metric.WithDescription("The total number of messages processed by actors"),
	); err != nil {
		return nil, err
	}

	if metrics.failures, err = meter.Int64Counter(
		"vactor.actor.handler.failures",
		metric.WithDescription("The total number of handler failures and panics"),
	); err != nil {
		return nil, err
	}

	if metrics.dropped, err = meter.Int64Counter(
		"vactor.actor.messages.dropped",
		metric.WithDescription("The total number of messages discarded by mailbox overflow"),
	); err != nil {
		return nil, err
	}

	if metrics.duration, err = meter.Float64Histogram(
		"vactor.actor.message.duration",
		metric.WithDescription("The latency of message handling in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if metrics.activeActors, err = meter.Int64ObservableGauge(
		"vactor.node.actors.active",
		metric.WithDescription("The number of active actor instances on the node"),
	); err != nil {
		return nil, err
	}

	if metrics.resolves, err = meter.Int64Counter(
		"vactor.placement.resolves",
		metric.WithDescription("The total number of placement resolutions"),
	); err != nil {
		return nil, err
	}

	if metrics.unreachable, err = meter.Int64Counter(
		"vactor.placement.nodes.unreachable",
		metric.WithDescription("The total number of nodes marked unreachable"),
	); err != nil {
		return nil, err
	}

	if metrics.deliveries, err = meter.Int64Counter(
		"vactor.scheduler.deliveries",
		metric.WithDescription("The total number of scheduled deliveries"),
	); err != nil {
		return nil, err
	}

	return metrics, nil
}

// ObserveActiveActors registers a callback reporting the number of active
// instances of a node. The registration must be unregistered on shutdown.
func (x *Metrics) ObserveActiveActors(nodeID string, count func() int64) (metric.Registration, error) {
	if x == nil {
		return nil, nil
	}
	return x.meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(x.activeActors, count(), metric.WithAttributes(nodeKey.String(nodeID)))
		return nil
	}, x.activeActors)
}

// RecordActivation counts an activation
func (x *Metrics) RecordActivation(ctx context.Context, actorType string) {
	if x == nil {
		return
	}
	x.activations.Add(ctx, 1, metric.WithAttributes(actorTypeKey.String(actorType)))
}

// RecordDeactivation counts a deactivation with its reason (passivation, explicit, forced, shutdown, fenced, claim_lost)
func (x *Metrics) RecordDeactivation(ctx context.Context, actorType, reason string) {
	if x == nil {
		return
	}
	x.deactivations.Add(ctx, 1, metric.WithAttributes(actorTypeKey.String(actorType), reasonKey.String(reason)))
}

// RecordMessage records a handled message and its latency
func (x *Metrics) RecordMessage(ctx context.Context, actorType string, latency time.Duration, failed bool) {
	if x == nil {
		return
	}
	attrs := metric.WithAttributes(actorTypeKey.String(actorType))
	x.processed.Add(ctx, 1, attrs)
	x.duration.Record(ctx, float64(latency)/float64(time.Millisecond), attrs)
	if failed {
		x.failures.Add(ctx, 1, attrs)
	}
}

// RecordDropped counts a message discarded by an overflow policy
func (x *Metrics) RecordDropped(ctx context.Context, actorType, policy string) {
	if x == nil {
		return
	}
	x.dropped.Add(ctx, 1, metric.WithAttributes(actorTypeKey.String(actorType), policyKey.String(policy)))
}

// RecordResolve counts a placement resolution with its outcome (existing, assigned, no_capacity)
func (x *Metrics) RecordResolve(ctx context.Context, outcome string) {
	if x == nil {
		return
	}
	x.resolves.Add(ctx, 1, metric.WithAttributes(outcomeKey.String(outcome)))
}

// RecordUnreachable counts a node marked unreachable by the sweeper
func (x *Metrics) RecordUnreachable(ctx context.Context, nodeID string) {
	if x == nil {
		return
	}
	x.unreachable.Add(ctx, 1, metric.WithAttributes(nodeKey.String(nodeID)))
}

// RecordDelivery counts a scheduled delivery attempt
func (x *Metrics) RecordDelivery(ctx context.Context, ok bool) {
	if x == nil {
		return
	}
	outcome := "delivered"
	if !ok {
		outcome = "failed"
	}
	x.deliveries.Add(ctx, 1, metric.WithAttributes(outcomeKey.String(outcome)))
}
