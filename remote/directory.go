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
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/tochemey/vactor/address"
	"github.com/tochemey/vactor/placement"
)

const placementTarget = "placement"

type addressRequest struct {
	Address address.Address `json:"address"`
}

type releaseRequest struct {
	Address address.Address `json:"address"`
	NodeID  string          `json:"nodeId"`
}

type nodeRequest struct {
	NodeID string `json:"nodeId"`
}

type lookupResponse struct {
	Record *placement.Record `json:"record,omitempty"`
	Found  bool              `json:"found"`
}

type nodesResponse struct {
	Nodes []*placement.NodeInfo `json:"nodes"`
}

type recordsRequest struct {
	ActorType string `json:"actorType,omitempty"`
	Cursor    string `json:"cursor,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type recordsResponse struct {
	Records []*placement.Record `json:"records"`
	Next    string              `json:"next,omitempty"`
}

type empty struct{}

// Directory is the placement directory of a cluster reached over NATS
type Directory struct {
	conn *nats.Conn
	opts *options
}

var _ placement.Directory = (*Directory)(nil)

// NewDirectory creates an instance of Directory
func NewDirectory(conn *nats.Conn, opts ...Option) *Directory {
	return &Directory{conn: conn, opts: newOptions(opts)}
}

func (d *Directory) Resolve(ctx context.Context, addr address.Address) (*placement.Record, error) {
	return request[placement.Record](ctx, d.conn, placementTarget, d.subject(opResolve), addressRequest{Address: addr}, d.opts.requestTimeout)
}

func (d *Directory) Lookup(ctx context.Context, addr address.Address) (*placement.Record, bool, error) {
	resp, err := request[lookupResponse](ctx, d.conn, placementTarget, d.subject(opLookup), addressRequest{Address: addr}, d.opts.requestTimeout)
	if err != nil {
		return nil, false, err
	}
	return resp.Record, resp.Found, nil
}

func (d *Directory) Release(ctx context.Context, addr address.Address, nodeID string) error {
	_, err := request[empty](ctx, d.conn, placementTarget, d.subject(opRelease), releaseRequest{Address: addr, NodeID: nodeID}, d.opts.requestTimeout)
	return err
}

func (d *Directory) RegisterNode(ctx context.Context, node *placement.NodeInfo) error {
	_, err := request[empty](ctx, d.conn, placementTarget, d.subject(opRegister), node, d.opts.requestTimeout)
	return err
}

func (d *Directory) DeregisterNode(ctx context.Context, nodeID string) error {
	_, err := request[empty](ctx, d.conn, placementTarget, d.subject(opDeregister), nodeRequest{NodeID: nodeID}, d.opts.requestTimeout)
	return err
}

func (d *Directory) Heartbeat(ctx context.Context, nodeID string) error {
	_, err := request[empty](ctx, d.conn, placementTarget, d.subject(opHeartbeat), nodeRequest{NodeID: nodeID}, d.opts.requestTimeout)
	return err
}

func (d *Directory) Nodes(ctx context.Context) ([]*placement.NodeInfo, error) {
	resp, err := request[nodesResponse](ctx, d.conn, placementTarget, d.subject(opNodes), empty{}, d.opts.requestTimeout)
	if err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

func (d *Directory) Records(ctx context.Context, filter placement.RecordFilter) ([]*placement.Record, string, error) {
	req := recordsRequest{ActorType: filter.ActorType, Cursor: filter.Cursor, Limit: filter.Limit}
	resp, err := request[recordsResponse](ctx, d.conn, placementTarget, d.subject(opRecords), req, d.opts.requestTimeout)
	if err != nil {
		return nil, "", err
	}
	return resp.Records, resp.Next, nil
}

func (d *Directory) subject(op string) string {
	return placementSubject(d.opts.prefix, op)
}

// PlacementServer exposes a placement directory, usually a *placement.Service
type PlacementServer struct {
	*server
	directory placement.Directory
	opts      *options
}

// NewPlacementServer creates an instance of PlacementServer
func NewPlacementServer(conn *nats.Conn, directory placement.Directory, opts ...Option) *PlacementServer {
	o := newOptions(opts)
	ps := &PlacementServer{directory: directory, opts: o}
	ps.server = newServer(conn, placementSubject(o.prefix, "*"), o.logger.With("component", "placement"), ps.serve)
	return ps
}

// Start subscribes the placement subjects
func (ps *PlacementServer) Start(context.Context) error {
	return ps.start()
}

// Stop unsubscribes and waits for the requests in flight
func (ps *PlacementServer) Stop(ctx context.Context) error {
	return ps.stop(ctx)
}

func (ps *PlacementServer) serve(ctx context.Context, op string, data []byte) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, ps.opts.requestTimeout)
	defer cancel()

	switch op {
	case opResolve:
		req, err := decodeRequest[addressRequest](data)
		if err != nil {
			return nil, err
		}
		return ps.directory.Resolve(ctx, req.Address)

	case opLookup:
		req, err := decodeRequest[addressRequest](data)
		if err != nil {
			return nil, err
		}
		record, found, err := ps.directory.Lookup(ctx, req.Address)
		if err != nil {
			return nil, err
		}
		return lookupResponse{Record: record, Found: found}, nil

	case opRelease:
		req, err := decodeRequest[releaseRequest](data)
		if err != nil {
			return nil, err
		}
		return empty{}, ps.directory.Release(ctx, req.Address, req.NodeID)

	case opRegister:
		req, err := decodeRequest[placement.NodeInfo](data)
		if err != nil {
			return nil, err
		}
		return empty{}, ps.directory.RegisterNode(ctx, req)

	case opDeregister:
		req, err := decodeRequest[nodeRequest](data)
		if err != nil {
			return nil, err
		}
		return empty{}, ps.directory.DeregisterNode(ctx, req.NodeID)

	case opHeartbeat:
		req, err := decodeRequest[nodeRequest](data)
		if err != nil {
			return nil, err
		}
		return empty{}, ps.directory.Heartbeat(ctx, req.NodeID)

	case opNodes:
		nodes, err := ps.directory.Nodes(ctx)
		if err != nil {
			return nil, err
		}
		return nodesResponse{Nodes: nodes}, nil

	case opRecords:
		req, err := decodeRequest[recordsRequest](data)
		if err != nil {
			return nil, err
		}
		records, next, err := ps.directory.Records(ctx, placement.RecordFilter{
			ActorType: req.ActorType,
			Cursor:    req.Cursor,
			Limit:     req.Limit,
		})
		if err != nil {
			return nil, err
		}
		return recordsResponse{Records: records, Next: next}, nil

	default:
		return nil, fmt.Errorf("remote: unknown placement operation %q", op)
	}
}
