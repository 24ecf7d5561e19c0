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

package config

import (
	"time"

	"github.com/tochemey/vactor/log"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(config *Config)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(config *Config)

// Apply applies the option
func (f OptionFunc) Apply(c *Config) {
	f(c)
}

// WithNodeID sets the node identity
func WithNodeID(nodeID string) Option {
	return OptionFunc(func(c *Config) {
		c.NodeID = nodeID
	})
}

// WithEndpoint sets the node endpoint
func WithEndpoint(endpoint string) Option {
	return OptionFunc(func(c *Config) {
		c.Endpoint = endpoint
	})
}

// WithMaxActors sets the maximum number of active instances on the node
func WithMaxActors(max int) Option {
	return OptionFunc(func(c *Config) {
		c.MaxActors = max
	})
}

// WithDefaultIdleTimeout sets the idle timeout of actor types that do not define one
func WithDefaultIdleTimeout(timeout time.Duration) Option {
	return OptionFunc(func(c *Config) {
		c.DefaultIdleTimeout = timeout
	})
}

// WithDefaultMailboxCapacity sets the mailbox capacity of actor types that do not define one
func WithDefaultMailboxCapacity(capacity int) Option {
	return OptionFunc(func(c *Config) {
		c.DefaultMailboxCapacity = capacity
	})
}

// WithDefaultBlockTimeout sets how long senders wait on a full blocking mailbox
func WithDefaultBlockTimeout(timeout time.Duration) Option {
	return OptionFunc(func(c *Config) {
		c.DefaultBlockTimeout = timeout
	})
}

// WithActivationRetries sets the number of attempts of the post-activation hook
func WithActivationRetries(retries int) Option {
	return OptionFunc(func(c *Config) {
		c.ActivationRetries = retries
	})
}

// WithClaim sets the claim TTL and renewal interval
func WithClaim(ttl, renewInterval time.Duration) Option {
	return OptionFunc(func(c *Config) {
		c.ClaimTTL = ttl
		c.ClaimRenewInterval = renewInterval
	})
}

// WithHeartbeat sets the heartbeat interval and the grace period after which a silent node is unhealthy
func WithHeartbeat(interval, gracePeriod time.Duration) Option {
	return OptionFunc(func(c *Config) {
		c.HeartbeatInterval = interval
		c.HeartbeatGracePeriod = gracePeriod
	})
}

// WithSweepInterval sets how often the placement service checks heartbeats
func WithSweepInterval(interval time.Duration) Option {
	return OptionFunc(func(c *Config) {
		c.SweepInterval = interval
	})
}

// WithUnhealthyRemovalWindow sets how long unhealthy nodes are kept
func WithUnhealthyRemovalWindow(window time.Duration) Option {
	return OptionFunc(func(c *Config) {
		c.UnhealthyRemovalWindow = window
	})
}

// WithScheduleScanInterval sets how often the scheduler scans due records
func WithScheduleScanInterval(interval time.Duration) Option {
	return OptionFunc(func(c *Config) {
		c.ScheduleScanInterval = interval
	})
}

// WithRequestTimeout sets the default request timeout
func WithRequestTimeout(timeout time.Duration) Option {
	return OptionFunc(func(c *Config) {
		c.RequestTimeout = timeout
	})
}

// WithShutdownTimeout sets the graceful shutdown timeout
func WithShutdownTimeout(timeout time.Duration) Option {
	return OptionFunc(func(c *Config) {
		c.ShutdownTimeout = timeout
	})
}

// WithNATS sets the NATS server URL and the subject prefix
func WithNATS(url, subjectPrefix string) Option {
	return OptionFunc(func(c *Config) {
		c.NATSURL = url
		if subjectPrefix != "" {
			c.SubjectPrefix = subjectPrefix
		}
	})
}

// WithRedisAddr sets the redis address
func WithRedisAddr(addr string) Option {
	return OptionFunc(func(c *Config) {
		c.RedisAddr = addr
	})
}

// WithDataDir sets the directory of the bbolt stores
func WithDataDir(dir string) Option {
	return OptionFunc(func(c *Config) {
		c.DataDir = dir
	})
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(c *Config) {
		c.logger = logger
		c.LogLevel = logger.LogLevel().String()
	})
}
