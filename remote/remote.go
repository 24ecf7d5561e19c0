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

// Package remote connects nodes, clients and the placement service over NATS
// request/reply.
//
// A node serves its actors on the subjects "{prefix}.node.{nodeID}.{op}" and
// the placement service serves on "{prefix}.placement.{op}". Requests and
// responses are JSON frames. Errors travel as a stable code next to their
// message so that errors.Is keeps working on the caller side.
package remote

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	gerrors "github.com/tochemey/vactor/errors"
)

const (
	opSend       = "send"
	opInvoke     = "invoke"
	opActivate   = "activate"
	opDeactivate = "deactivate"
	opStatus     = "status"

	opResolve    = "resolve"
	opLookup     = "lookup"
	opRelease    = "release"
	opRegister   = "register"
	opDeregister = "deregister"
	opHeartbeat  = "heartbeat"
	opNodes      = "nodes"
	opRecords    = "records"
)

// frame is the envelope of every response
type frame struct {
	Data json.RawMessage `json:"data,omitempty"`
	Err  string          `json:"err,omitempty"`
	Code gerrors.Code    `json:"code,omitempty"`
}

// Connect opens a NATS connection. A non-nil tlsConfig enables TLS.
func Connect(url, name string, tlsConfig *tls.Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500 * time.Millisecond),
	}
	if tlsConfig != nil {
		opts = append(opts, nats.Secure(tlsConfig))
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("remote: connect to %s: %w", url, err)
	}
	return conn, nil
}

func nodeSubject(prefix, nodeID, op string) string {
	return prefix + ".node." + nodeID + "." + op
}

func placementSubject(prefix, op string) string {
	return prefix + ".placement." + op
}

// operation returns the last token of a subject
func operation(subject string) string {
	return subject[strings.LastIndexByte(subject, '.')+1:]
}

func encodeFrame(data any, err error) []byte {
	var reply frame
	if err != nil {
		reply.Err = err.Error()
		reply.Code = gerrors.CodeOf(err)
	} else if data != nil {
		payload, e := json.Marshal(data)
		if e != nil {
			reply.Err = fmt.Sprintf("remote: encode response: %v", e)
			reply.Code = gerrors.CodeUnknown
		} else {
			reply.Data = payload
		}
	}
	// a frame of a string, raw message and code always encodes
	bytes, _ := json.Marshal(reply)
	return bytes
}

func decodeFrame[T any](bytes []byte) (*T, error) {
	var reply frame
	if err := json.Unmarshal(bytes, &reply); err != nil {
		return nil, fmt.Errorf("remote: decode frame: %w", err)
	}
	if reply.Code != "" {
		return nil, gerrors.FromCode(reply.Code, reply.Err)
	}
	result := new(T)
	if len(reply.Data) > 0 {
		if err := json.Unmarshal(reply.Data, result); err != nil {
			return nil, fmt.Errorf("remote: decode response: %w", err)
		}
	}
	return result, nil
}

func decodeRequest[T any](bytes []byte) (*T, error) {
	request := new(T)
	if err := json.Unmarshal(bytes, request); err != nil {
		return nil, fmt.Errorf("remote: decode request: %w", err)
	}
	return request, nil
}

// request sends req on subject and decodes the reply of target. The context
// bounds the call; without a deadline the default timeout applies.
func request[T any](ctx context.Context, conn *nats.Conn, target, subject string, req any, timeout time.Duration) (*T, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("remote: encode request: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	msg, err := conn.RequestWithContext(ctx, subject, payload)
	if err != nil {
		return nil, transportErr(target, err)
	}
	return decodeFrame[T](msg.Data)
}

// transportErr maps NATS failures to runtime errors
func transportErr(target string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, nats.ErrNoResponders), errors.Is(err, nats.ErrConnectionClosed):
		return gerrors.NewErrNodeUnreachable(target, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, nats.ErrTimeout):
		return gerrors.ErrRequestTimeout
	default:
		return err
	}
}
