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

package main

import (
	"context"
	"io"
	"path/filepath"

	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"github.com/tochemey/vactor/actor"
	"github.com/tochemey/vactor/claim"
	"github.com/tochemey/vactor/config"
	"github.com/tochemey/vactor/examples/counter"
	"github.com/tochemey/vactor/messaging"
	"github.com/tochemey/vactor/persistence"
	"github.com/tochemey/vactor/remote"
	"github.com/tochemey/vactor/scheduler"
	"github.com/tochemey/vactor/telemetry"
)

const claimBucket = "vactor_claims"

func nodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "node",
		Usage: "run a cluster node hosting the counter actor type",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path of the YAML configuration file", Sources: cli.EnvVars("VACTOR_CONFIG")},
			&cli.StringFlag{Name: "id", Usage: "node id, overrides the configuration"},
			&cli.BoolFlag{Name: "scheduler", Usage: "run the schedule scanner in this node"},
		},
		Action: runNode,
	}
}

// closers collects resources released in reverse order on shutdown
type closers []io.Closer

func (c closers) Close() error {
	var err error
	for i := len(c) - 1; i >= 0; i-- {
		err = multierr.Append(err, c[i].Close())
	}
	return err
}

func runNode(ctx context.Context, cmd *cli.Command) (err error) {
	var cfgOpts []config.Option
	if id := cmd.String("id"); id != "" {
		cfgOpts = append(cfgOpts, config.WithNodeID(id), config.WithEndpoint(id))
	}
	if cmd.IsSet(natsFlag) || cmd.IsSet(prefixFlag) {
		cfgOpts = append(cfgOpts, config.WithNATS(cmd.String(natsFlag), cmd.String(prefixFlag)))
	}

	cfg, err := config.Load(cmd.String("config"), cfgOpts...)
	if err != nil {
		return err
	}
	if cfg.NATSURL == "" {
		cfg.NATSURL = cmd.String(natsFlag)
	}
	logger := cfg.Logger()
	defer func() { err = multierr.Append(err, logger.Flush()) }()

	var resources closers
	defer func() { err = multierr.Append(err, resources.Close()) }()

	conn, err := remote.Connect(cfg.NATSURL, "vactor-node-"+cfg.NodeID, nil)
	if err != nil {
		return err
	}
	resources = append(resources, closerFunc(func() error { conn.Close(); return nil }))

	claims, err := newClaimStore(ctx, cfg, conn)
	if err != nil {
		return err
	}
	resources = append(resources, claims)

	states, err := newStateStore(ctx, cfg)
	if err != nil {
		return err
	}
	resources = append(resources, states)

	metrics, err := telemetry.NewMetrics(telemetry.DefaultMeter())
	if err != nil {
		return err
	}

	remoteOpts := []remote.Option{
		remote.WithSubjectPrefix(cfg.SubjectPrefix),
		remote.WithRequestTimeout(cfg.RequestTimeout),
		remote.WithLogger(logger),
	}

	broker := messaging.NewNATSBrokerFromConn(conn, cfg.SubjectPrefix, logger)
	resources = append(resources, broker)

	nodeOpts := []actor.Option{
		actor.WithDirectory(remote.NewDirectory(conn, remoteOpts...)),
		actor.WithPeers(remote.NewPeers(conn, remoteOpts...)),
		actor.WithClaimStore(claims),
		actor.WithStateStore(states),
		actor.WithBroker(broker),
		actor.WithMetrics(metrics),
	}

	var schedules scheduler.Store
	if cmd.Bool("scheduler") {
		schedules, err = newScheduleStore(cfg)
		if err != nil {
			return err
		}
		resources = append(resources, schedules)
		nodeOpts = append(nodeOpts, actor.WithScheduleStore(schedules))
	}

	node, err := actor.NewNode(cfg, nodeOpts...)
	if err != nil {
		return err
	}
	if err := node.Register(counter.Descriptor(0)); err != nil {
		return err
	}

	server := remote.NewNodeServer(conn, node.ID(), node.Local(), remoteOpts...)
	if err := server.Start(ctx); err != nil {
		return err
	}
	if err := node.Start(ctx); err != nil {
		return multierr.Append(err, server.Stop(context.WithoutCancel(ctx)))
	}

	var scanner *scheduler.Scheduler
	if schedules != nil {
		scanner, err = scheduler.New(schedules, node,
			scheduler.WithScanInterval(cfg.ScheduleScanInterval),
			scheduler.WithLogger(logger),
			scheduler.WithMetrics(metrics))
		if err == nil {
			err = scanner.Start(ctx)
		}
		if err != nil {
			shutdown := context.WithoutCancel(ctx)
			return multierr.Combine(err, node.Stop(shutdown), server.Stop(shutdown))
		}
	}

	logger.Infof("node=(%s) ready", node.ID())
	<-ctx.Done()

	shutdown := context.WithoutCancel(ctx)
	if scanner != nil {
		err = multierr.Append(err, scanner.Stop(shutdown))
	}
	err = multierr.Append(err, node.Stop(shutdown))
	return multierr.Append(err, server.Stop(shutdown))
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newClaimStore(ctx context.Context, cfg *config.Config, conn *nats.Conn) (claim.Store, error) {
	if cfg.RedisAddr != "" {
		store, err := claim.NewRedisStore(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := claim.NewNATSStoreFromConn(conn, claimBucket, cfg.ClaimTTL)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newStateStore(ctx context.Context, cfg *config.Config) (persistence.StateStore, error) {
	switch {
	case cfg.RedisAddr != "":
		store, err := persistence.NewRedisStore(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		return store, nil
	case cfg.DataDir != "":
		store, err := persistence.NewBoltStore(filepath.Join(cfg.DataDir, cfg.NodeID+"-state.db"),
			persistence.WithCompression(persistence.ZstdCompression))
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return persistence.NewMemoryStore(), nil
	}
}

func newScheduleStore(cfg *config.Config) (scheduler.Store, error) {
	if cfg.DataDir == "" {
		return scheduler.NewMemoryStore(), nil
	}
	store, err := scheduler.NewBoltStore(filepath.Join(cfg.DataDir, "schedules.db"))
	if err != nil {
		return nil, err
	}
	return store, nil
}
