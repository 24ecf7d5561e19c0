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
	"path/filepath"

	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"github.com/tochemey/vactor/config"
	"github.com/tochemey/vactor/log"
	"github.com/tochemey/vactor/placement"
	"github.com/tochemey/vactor/remote"
	"github.com/tochemey/vactor/telemetry"
)

func placementCommand() *cli.Command {
	return &cli.Command{
		Name:  "placement",
		Usage: "run the placement control node",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data-dir", Usage: "directory of the placement database, in memory when empty"},
			&cli.DurationFlag{Name: "grace", Value: config.DefaultHeartbeatGracePeriod, Usage: "heartbeat grace period"},
			&cli.DurationFlag{Name: "sweep", Value: config.DefaultSweepInterval, Usage: "sweep interval"},
			&cli.DurationFlag{Name: "remove-after", Value: config.DefaultUnhealthyRemovalWindow, Usage: "removal window of unhealthy nodes"},
			&cli.StringFlag{Name: "log-level", Value: log.InfoLevel.String(), Usage: "log level"},
		},
		Action: runPlacement,
	}
}

func runPlacement(ctx context.Context, cmd *cli.Command) (err error) {
	logger := log.NewZap(log.ParseLevel(cmd.String("log-level")))
	defer func() { err = multierr.Append(err, logger.Flush()) }()

	metrics, err := telemetry.NewMetrics(telemetry.DefaultMeter())
	if err != nil {
		return err
	}

	opts := []placement.Option{
		placement.WithGracePeriod(cmd.Duration("grace")),
		placement.WithSweepInterval(cmd.Duration("sweep")),
		placement.WithRemoveAfter(cmd.Duration("remove-after")),
		placement.WithLogger(logger),
		placement.WithMetrics(metrics),
	}

	if dir := cmd.String("data-dir"); dir != "" {
		store, err := placement.NewBoltStore(filepath.Join(dir, "placement.db"))
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, store.Close()) }()
		opts = append(opts, placement.WithStore(store))
	}

	conn, err := remote.Connect(cmd.String(natsFlag), "vactor-placement", nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	service := placement.NewService(opts...)
	if err := service.Start(ctx); err != nil {
		return err
	}

	server := remote.NewPlacementServer(conn, service,
		remote.WithSubjectPrefix(cmd.String(prefixFlag)),
		remote.WithRequestTimeout(cmd.Duration(timeoutFlag)),
		remote.WithLogger(logger))
	if err := server.Start(ctx); err != nil {
		return multierr.Append(err, service.Stop(ctx))
	}

	logger.Infof("placement service listening on %s", conn.ConnectedUrlRedacted())
	<-ctx.Done()

	shutdown := context.WithoutCancel(ctx)
	return multierr.Combine(server.Stop(shutdown), service.Stop(shutdown))
}
