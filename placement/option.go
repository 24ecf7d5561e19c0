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

package placement

import (
	"time"

	"github.com/tochemey/vactor/log"
	"github.com/tochemey/vactor/telemetry"
)

// Option configures the Service
type Option interface {
	Apply(*Service)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Service)

// Apply applies the option
func (f OptionFunc) Apply(s *Service) {
	f(s)
}

// WithGracePeriod sets how long a node may stay silent before it is marked unhealthy
func WithGracePeriod(grace time.Duration) Option {
	return OptionFunc(func(s *Service) {
		s.gracePeriod = grace
	})
}

// WithSweepInterval sets how often heartbeats are checked
func WithSweepInterval(interval time.Duration) Option {
	return OptionFunc(func(s *Service) {
		s.sweepInterval = interval
	})
}

// WithRemoveAfter sets how long an unhealthy node is kept before removal
func WithRemoveAfter(window time.Duration) Option {
	return OptionFunc(func(s *Service) {
		s.removeAfter = window
	})
}

// WithStore persists nodes and records so a restarted service recovers them
func WithStore(store Store) Option {
	return OptionFunc(func(s *Service) {
		s.store = store
	})
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(s *Service) {
		s.logger = logger
	})
}

// WithMetrics sets the metric instruments
func WithMetrics(metrics *telemetry.Metrics) Option {
	return OptionFunc(func(s *Service) {
		s.metrics = metrics
	})
}
