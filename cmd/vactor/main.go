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

// Command vactor runs the placement control node and cluster nodes, and
// talks to a running cluster.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"

	"github.com/tochemey/vactor/config"
)

const (
	natsFlag    = "nats"
	prefixFlag  = "prefix"
	timeoutFlag = "timeout"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "vactor",
		Usage: "distributed virtual actor runtime",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    natsFlag,
				Value:   nats.DefaultURL,
				Usage:   "NATS server url",
				Sources: cli.EnvVars("VACTOR_NATS_URL"),
			},
			&cli.StringFlag{
				Name:    prefixFlag,
				Value:   config.DefaultSubjectPrefix,
				Usage:   "subject prefix of the cluster",
				Sources: cli.EnvVars("VACTOR_SUBJECT_PREFIX"),
			},
			&cli.DurationFlag{
				Name:  timeoutFlag,
				Value: config.DefaultRequestTimeout,
				Usage: "request timeout",
			},
		},
		Commands: []*cli.Command{
			placementCommand(),
			nodeCommand(),
			statusCommand(),
			listCommand(),
			poolCommand(),
			sendCommand(),
			invokeCommand(),
			activateCommand(),
			deactivateCommand(),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
