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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"github.com/tochemey/vactor/address"
	"github.com/tochemey/vactor/api"
	"github.com/tochemey/vactor/client"
	gerrors "github.com/tochemey/vactor/errors"
)

// withClient connects to the cluster, runs fn and closes the client
func withClient(ctx context.Context, cmd *cli.Command, fn func(context.Context, *client.Client) (any, error)) (err error) {
	c, err := client.Connect(cmd.String(natsFlag),
		client.WithSubjectPrefix(cmd.String(prefixFlag)),
		client.WithRequestTimeout(cmd.Duration(timeoutFlag)))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, c.Close()) }()

	out, err := fn(ctx, c)
	if err != nil {
		return err
	}
	writer := cmd.Root().Writer
	if writer == nil {
		writer = os.Stdout
	}
	return printJSON(writer, out)
}

func printJSON(w io.Writer, v any) error {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(bytes))
	return err
}

// addressArg parses the positional argument at index i
func addressArg(cmd *cli.Command, i int) (address.Address, error) {
	if cmd.Args().Len() <= i {
		return address.Address{}, gerrors.NewErrInvalidAddress(errors.New("missing address argument"))
	}
	return address.Parse(cmd.Args().Get(i))
}

// payloadArg returns the optional JSON payload at index i
func payloadArg(cmd *cli.Command, i int) ([]byte, error) {
	raw := cmd.Args().Get(i)
	if raw == "" {
		return nil, nil
	}
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("payload is not valid JSON: %s", raw)
	}
	return []byte(raw), nil
}

// invokeOutput renders the reply payload as JSON rather than base64
type invokeOutput struct {
	NodeID  string          `json:"nodeId"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func newInvokeOutput(resp *api.InvokeResponse) *invokeOutput {
	out := &invokeOutput{NodeID: resp.NodeID}
	switch {
	case len(resp.Payload) == 0:
	case json.Valid(resp.Payload):
		out.Payload = resp.Payload
	default:
		out.Payload, _ = json.Marshal(string(resp.Payload))
	}
	return out
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "show the status of an actor",
		ArgsUsage: "<type:id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			addr, err := addressArg(cmd, 0)
			if err != nil {
				return err
			}
			return withClient(ctx, cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.Status(ctx, &api.StatusRequest{Address: addr})
			})
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list actors",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "restrict to one actor type"},
			&cli.BoolFlag{Name: "active", Usage: "only list active actors"},
			&cli.IntFlag{Name: "limit", Value: api.DefaultListLimit, Usage: "page size"},
			&cli.StringFlag{Name: "cursor", Usage: "cursor of the previous page"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			req := &api.ListRequest{
				ActorType:  cmd.String("type"),
				ActiveOnly: cmd.Bool("active"),
				Limit:      int(cmd.Int("limit")),
				Cursor:     cmd.String("cursor"),
			}
			return withClient(ctx, cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.List(ctx, req)
			})
		},
	}
}

func poolCommand() *cli.Command {
	return &cli.Command{
		Name:  "pool",
		Usage: "show the cluster nodes and their utilization",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withClient(ctx, cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.PoolStatus(ctx)
			})
		},
	}
}

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "send a fire-and-forget message",
		ArgsUsage: "<type:id> <message-type> [json-payload]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			req, err := messageArgs(cmd)
			if err != nil {
				return err
			}
			return withClient(ctx, cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.Send(ctx, &api.SendRequest{Address: req.Address, MessageType: req.MessageType, Payload: req.Payload})
			})
		},
	}
}

func invokeCommand() *cli.Command {
	return &cli.Command{
		Name:      "invoke",
		Usage:     "send a message and wait for the reply",
		ArgsUsage: "<type:id> <message-type> [json-payload]",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "wait", Usage: "reply timeout, the node default when zero"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			req, err := messageArgs(cmd)
			if err != nil {
				return err
			}
			req.Timeout = cmd.Duration("wait")
			return withClient(ctx, cmd, func(ctx context.Context, c *client.Client) (any, error) {
				resp, err := c.Invoke(ctx, req)
				if err != nil {
					return nil, err
				}
				return newInvokeOutput(resp), nil
			})
		},
	}
}

func messageArgs(cmd *cli.Command) (*api.InvokeRequest, error) {
	addr, err := addressArg(cmd, 0)
	if err != nil {
		return nil, err
	}
	payload, err := payloadArg(cmd, 2)
	if err != nil {
		return nil, err
	}
	req := &api.InvokeRequest{Address: addr, MessageType: cmd.Args().Get(1), Payload: payload}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func activateCommand() *cli.Command {
	return &cli.Command{
		Name:      "activate",
		Usage:     "activate an actor without sending it a message",
		ArgsUsage: "<type:id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			addr, err := addressArg(cmd, 0)
			if err != nil {
				return err
			}
			return withClient(ctx, cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.Activate(ctx, &api.ActivateRequest{Address: addr})
			})
		},
	}
}

func deactivateCommand() *cli.Command {
	return &cli.Command{
		Name:      "deactivate",
		Usage:     "deactivate an actor",
		ArgsUsage: "<type:id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "cancel the running handler and reject queued messages"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			addr, err := addressArg(cmd, 0)
			if err != nil {
				return err
			}
			return withClient(ctx, cmd, func(ctx context.Context, c *client.Client) (any, error) {
				return c.Deactivate(ctx, &api.DeactivateRequest{Address: addr, Force: cmd.Bool("force")})
			})
		},
	}
}
