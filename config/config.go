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

// Package config holds the configuration of a vactor node and of the
// placement control node.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	gerrors "github.com/tochemey/vactor/errors"
	"github.com/tochemey/vactor/internal/validation"
	"github.com/tochemey/vactor/log"
)

const (
	DefaultMaxActors              = 10_000
	DefaultIdleTimeout            = 5 * time.Minute
	DefaultMailboxCapacity        = 1_024
	DefaultBlockTimeout           = time.Second
	DefaultClaimTTL               = 15 * time.Second
	DefaultClaimRenewInterval     = 5 * time.Second
	DefaultHeartbeatInterval      = 2 * time.Second
	DefaultHeartbeatGracePeriod   = 10 * time.Second
	DefaultSweepInterval          = time.Second
	DefaultScheduleScanInterval   = time.Second
	DefaultRequestTimeout         = 5 * time.Second
	DefaultShutdownTimeout        = 30 * time.Second
	DefaultSubjectPrefix          = "vactor"
	DefaultActivationRetries      = 3
	DefaultUnhealthyRemovalWindow = time.Minute
)

// Config represents the node configuration
type Config struct {
	// NodeID is the unique identity of the node in the cluster.
	// It defaults to a random identifier.
	NodeID string `koanf:"node_id"`
	// Endpoint is where peers reach the node. With the NATS transport it is
	// the node id itself. Defaults to NodeID.
	Endpoint string `koanf:"endpoint"`
	// MaxActors caps the number of active instances hosted by the node
	MaxActors int `koanf:"max_actors"`
	// DefaultIdleTimeout applies to actor types that do not set one
	DefaultIdleTimeout time.Duration `koanf:"default_idle_timeout"`
	// DefaultMailboxCapacity applies to actor types that do not set one
	DefaultMailboxCapacity int `koanf:"default_mailbox_capacity"`
	// DefaultBlockTimeout bounds how long a sender waits on a full blocking mailbox
	DefaultBlockTimeout time.Duration `koanf:"default_block_timeout"`
	// ActivationRetries is the number of attempts of the post-activation hook
	ActivationRetries int `koanf:"activation_retries"`
	// ClaimTTL is the lifetime of an activation claim between renewals
	ClaimTTL time.Duration `koanf:"claim_ttl"`
	// ClaimRenewInterval must be shorter than ClaimTTL
	ClaimRenewInterval time.Duration `koanf:"claim_renew_interval"`
	// HeartbeatInterval is how often the node heartbeats the placement service
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`
	// HeartbeatGracePeriod is how long the placement service waits before
	// marking a silent node unhealthy
	HeartbeatGracePeriod time.Duration `koanf:"heartbeat_grace_period"`
	// UnhealthyRemovalWindow is how long an unhealthy node is kept before removal
	UnhealthyRemovalWindow time.Duration `koanf:"unhealthy_removal_window"`
	// SweepInterval is how often the placement service checks heartbeats
	SweepInterval time.Duration `koanf:"sweep_interval"`
	// ScheduleScanInterval is how often the scheduler scans due records
	ScheduleScanInterval time.Duration `koanf:"schedule_scan_interval"`
	// RequestTimeout is the default invoke and transport timeout
	RequestTimeout time.Duration `koanf:"request_timeout"`
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// NATSURL is the NATS server used by the transport, the broker and the claim store
	NATSURL string `koanf:"nats_url"`
	// RedisAddr, when set, selects the redis state and claim stores
	RedisAddr string `koanf:"redis_addr"`
	// DataDir, when set, selects the bbolt stores
	DataDir string `koanf:"data_dir"`
	// SubjectPrefix namespaces the NATS subjects
	SubjectPrefix string `koanf:"subject_prefix"`
	// LogLevel is one of debug, info, warn, error
	LogLevel string `koanf:"log_level"`

	logger log.Logger
}

// New creates an instance of Config with the defaults and applies the given options
func New(opts ...Option) *Config {
	config := Default()
	for _, opt := range opts {
		opt.Apply(config)
	}
	if config.Endpoint == "" {
		config.Endpoint = config.NodeID
	}
	return config
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		NodeID:                 defaultNodeID(),
		MaxActors:              DefaultMaxActors,
		DefaultIdleTimeout:     DefaultIdleTimeout,
		DefaultMailboxCapacity: DefaultMailboxCapacity,
		DefaultBlockTimeout:    DefaultBlockTimeout,
		ActivationRetries:      DefaultActivationRetries,
		ClaimTTL:               DefaultClaimTTL,
		ClaimRenewInterval:     DefaultClaimRenewInterval,
		HeartbeatInterval:      DefaultHeartbeatInterval,
		HeartbeatGracePeriod:   DefaultHeartbeatGracePeriod,
		UnhealthyRemovalWindow: DefaultUnhealthyRemovalWindow,
		SweepInterval:          DefaultSweepInterval,
		ScheduleScanInterval:   DefaultScheduleScanInterval,
		RequestTimeout:         DefaultRequestTimeout,
		ShutdownTimeout:        DefaultShutdownTimeout,
		SubjectPrefix:          DefaultSubjectPrefix,
		LogLevel:               log.InfoLevel.String(),
	}
}

// Logger returns the configured logger. When none was set a zap logger at
// LogLevel writing to stderr is created once.
func (c *Config) Logger() log.Logger {
	if c.logger == nil {
		level := log.ParseLevel(c.LogLevel)
		if level == log.InvalidLevel {
			level = log.InfoLevel
		}
		c.logger = log.NewZap(level, os.Stderr)
	}
	return c.logger
}

// Validate checks the configuration and returns every violation wrapped in
// errors.ErrInvalidConfig
func (c *Config) Validate() error {
	chain := validation.New(validation.AllErrors()).
		AddValidator(validation.NewEmptyStringValidator("node_id", c.NodeID)).
		AddValidator(validation.NewEmptyStringValidator("endpoint", c.Endpoint)).
		AddValidator(validation.NewEmptyStringValidator("subject_prefix", c.SubjectPrefix)).
		AddAssertion(!strings.ContainsAny(c.NodeID, ". *>"), "the [node_id] must not contain '.', '*', '>' or spaces").
		AddAssertion(c.MaxActors > 0, "the [max_actors] must be greater than zero").
		AddAssertion(c.DefaultMailboxCapacity > 0, "the [default_mailbox_capacity] must be greater than zero").
		AddAssertion(c.ActivationRetries > 0, "the [activation_retries] must be greater than zero").
		AddValidator(validation.NewPositiveDurationValidator("default_block_timeout", c.DefaultBlockTimeout)).
		AddValidator(validation.NewPositiveDurationValidator("claim_ttl", c.ClaimTTL)).
		AddValidator(validation.NewPositiveDurationValidator("claim_renew_interval", c.ClaimRenewInterval)).
		AddValidator(validation.NewPositiveDurationValidator("heartbeat_interval", c.HeartbeatInterval)).
		AddValidator(validation.NewPositiveDurationValidator("heartbeat_grace_period", c.HeartbeatGracePeriod)).
		AddValidator(validation.NewPositiveDurationValidator("sweep_interval", c.SweepInterval)).
		AddValidator(validation.NewPositiveDurationValidator("schedule_scan_interval", c.ScheduleScanInterval)).
		AddValidator(validation.NewPositiveDurationValidator("request_timeout", c.RequestTimeout)).
		AddValidator(validation.NewPositiveDurationValidator("shutdown_timeout", c.ShutdownTimeout)).
		AddAssertion(c.ClaimRenewInterval < c.ClaimTTL, "the [claim_renew_interval] must be shorter than the [claim_ttl]").
		AddAssertion(c.HeartbeatInterval < c.HeartbeatGracePeriod, "the [heartbeat_interval] must be shorter than the [heartbeat_grace_period]").
		AddAssertion(log.ParseLevel(c.LogLevel) != log.InvalidLevel, "the [log_level] is invalid")

	if c.RedisAddr != "" {
		chain.AddValidator(validation.NewTCPAddressValidator(c.RedisAddr))
	}

	if err := chain.Validate(); err != nil {
		return gerrors.NewErrInvalidConfig(err)
	}
	return nil
}

func defaultNodeID() string {
	return "node-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
