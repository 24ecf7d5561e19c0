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

// Package testutil starts the backing services used by package tests: an
// embedded NATS server with JetStream and, through testcontainers, redis,
// etcd and consul. Container helpers skip the test when no container
// runtime is available.
package testutil

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/consul"
	"github.com/testcontainers/testcontainers-go/modules/etcd"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/travisjeffery/go-dynaport"
)

// StartNATS starts an embedded NATS server with JetStream enabled and
// shuts it down when the test ends.
func StartNATS(t *testing.T) *natsserver.Server {
	t.Helper()
	return StartNATSWithOptions(t, &natsserver.Options{})
}

// StartNATSWithOptions starts an embedded NATS server using the given options.
// Host, Port, JetStream and StoreDir are always set by the helper.
func StartNATSWithOptions(t *testing.T, opts *natsserver.Options) *natsserver.Server {
	t.Helper()

	opts.Host = "127.0.0.1"
	opts.Port = dynaport.Get(1)[0]
	opts.JetStream = true
	opts.StoreDir = t.TempDir()

	serv, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	ready := make(chan bool)
	go func() {
		ready <- true
		serv.Start()
	}()
	<-ready

	if !serv.ReadyForConnections(2 * time.Second) {
		t.Fatalf("nats-io server failed to start")
	}

	t.Cleanup(func() {
		serv.Shutdown()
		serv.WaitForShutdown()
	})
	return serv
}

// StartRedis starts a redis container and returns its host:port address.
func StartRedis(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.Run(
		ctx, "redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

// StartEtcd starts a single node etcd container and returns its client endpoints.
func StartEtcd(t *testing.T) []string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := etcd.Run(ctx, "gcr.io/etcd-development/etcd:v3.5.14")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	endpoints, err := container.ClientEndpoints(ctx)
	require.NoError(t, err)
	return endpoints
}

// StartConsul starts a consul agent container and returns its HTTP API address.
func StartConsul(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := consul.Run(ctx, "hashicorp/consul:1.15")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	endpoint, err := container.ApiEndpoint(ctx)
	require.NoError(t, err)
	return endpoint
}
