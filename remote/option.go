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

package remote

import (
	"time"

	"github.com/tochemey/vactor/config"
	"github.com/tochemey/vactor/log"
)

type options struct {
	prefix         string
	logger         log.Logger
	requestTimeout time.Duration
}

func defaultOptions() *options {
	return &options{
		prefix:         config.DefaultSubjectPrefix,
		logger:         log.DiscardLogger,
		requestTimeout: config.DefaultRequestTimeout,
	}
}

// Option configures servers and clients of the remote package
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*options)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*options)

// Apply applies the options
func (f OptionFunc) Apply(o *options) {
	f(o)
}

// WithSubjectPrefix sets the subject prefix shared by the cluster
func WithSubjectPrefix(prefix string) Option {
	return OptionFunc(func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	})
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	})
}

// WithRequestTimeout bounds requests whose context carries no deadline
func WithRequestTimeout(timeout time.Duration) Option {
	return OptionFunc(func(o *options) {
		if timeout > 0 {
			o.requestTimeout = timeout
		}
	})
}

func newOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt.Apply(o)
	}
	return o
}
