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

// Package client is a cluster client that routes the primary API to the
// owning nodes without hosting actors itself.
package client

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tochemey/vactor/actor"
	"github.com/tochemey/vactor/api"
	"github.com/tochemey/vactor/config"
	"github.com/tochemey/vactor/log"
	"github.com/tochemey/vactor/placement"
	"github.com/tochemey/vactor/remote"
)

// Client implements api.Service by resolving owners through the placement
// directory and forwarding requests to them
type Client struct {
	router *actor.Router
	conn   *nats.Conn
	logger log.Logger
}

var _ api.Service = (*Client)(nil)

// settings collected before the router is built
type settings struct {
	logger         log.Logger
	prefix         string
	requestTimeout time.Duration
	retries        int
	tlsConfig      *tls.Config
}

// Option configures how a Client connects
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*settings)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*settings)

// Apply applies the option
func (f OptionFunc) Apply(s *settings) {
	f(s)
}

// WithLogger sets the client logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(s *settings) { s.logger = logger })
}

// WithSubjectPrefix sets the subject prefix of the cluster
func WithSubjectPrefix(prefix string) Option {
	return OptionFunc(func(s *settings) { s.prefix = prefix })
}

// WithRequestTimeout sets the default invoke timeout
func WithRequestTimeout(timeout time.Duration) Option {
	return OptionFunc(func(s *settings) { s.requestTimeout = timeout })
}

// WithRetries bounds routing attempts of a request
func WithRetries(retries int) Option {
	return OptionFunc(func(s *settings) { s.retries = retries })
}

// WithTLS enables TLS on the NATS connection
func WithTLS(tlsConfig *tls.Config) Option {
	return OptionFunc(func(s *settings) { s.tlsConfig = tlsConfig })
}

func newSettings(opts []Option) *settings {
	s := &settings{
		logger:         log.DiscardLogger,
		prefix:         config.DefaultSubjectPrefix,
		requestTimeout: config.DefaultRequestTimeout,
		retries:        config.DefaultActivationRetries,
	}
	for _, opt := range opts {
		opt.Apply(s)
	}
	return s
}

// Connect creates a client reaching the cluster through the NATS server at url
func Connect(url string, opts ...Option) (*Client, error) {
	s := newSettings(opts)
	conn, err := remote.Connect(url, "vactor-client", s.tlsConfig)
	if err != nil {
		return nil, err
	}

	remoteOpts := []remote.Option{
		remote.WithSubjectPrefix(s.prefix),
		remote.WithRequestTimeout(s.requestTimeout),
		remote.WithLogger(s.logger),
	}
	c := New(remote.NewDirectory(conn, remoteOpts...), remote.NewPeers(conn, remoteOpts...), opts...)
	c.conn = conn
	return c, nil
}

// New creates a client on an existing directory and peer transport
func New(directory placement.Directory, peers actor.Peers, opts ...Option) *Client {
	s := newSettings(opts)
	return &Client{
		router: actor.NewRouter(directory, peers, s.retries, s.requestTimeout, s.logger),
		logger: s.logger,
	}
}

func (c *Client) Send(ctx context.Context, req *api.SendRequest) (*api.SendResponse, error) {
	return c.router.Send(ctx, req)
}

func (c *Client) Invoke(ctx context.Context, req *api.InvokeRequest) (*api.InvokeResponse, error) {
	return c.router.Invoke(ctx, req)
}

func (c *Client) Activate(ctx context.Context, req *api.ActivateRequest) (*api.ActivateResponse, error) {
	return c.router.Activate(ctx, req)
}

func (c *Client) Deactivate(ctx context.Context, req *api.DeactivateRequest) (*api.DeactivateResponse, error) {
	return c.router.Deactivate(ctx, req)
}

func (c *Client) Status(ctx context.Context, req *api.StatusRequest) (*api.ActorStatus, error) {
	return c.router.Status(ctx, req)
}

// List pages through the active actors of the cluster
func (c *Client) List(ctx context.Context, req *api.ListRequest) (*api.ListResponse, error) {
	return c.router.List(ctx, req)
}

func (c *Client) PoolStatus(ctx context.Context) (*api.PoolStatus, error) {
	return c.router.PoolStatus(ctx)
}

// Close closes the NATS connection opened by Connect
func (c *Client) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}
