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

package placement

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/tochemey/vactor/address"
)

var (
	nodesBucket   = []byte("placement_nodes")
	recordsBucket = []byte("placement_records")
)

// BoltStore persists placement state in a local bbolt database
type BoltStore struct {
	db *bbolt.DB
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore opens (or creates) the database file at path
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("placement: creating boltdb directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second, NoGrowSync: true})
	if err != nil {
		return nil, fmt.Errorf("placement: opening boltdb: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{nodesBucket, recordsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("placement: initializing boltdb buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) PutNode(_ context.Context, node *NodeInfo) error {
	return s.put(nodesBucket, node.NodeID, node)
}

func (s *BoltStore) DeleteNode(_ context.Context, nodeID string) error {
	return s.delete(nodesBucket, nodeID)
}

func (s *BoltStore) PutRecord(_ context.Context, record *Record) error {
	return s.put(recordsBucket, record.Address.String(), record)
}

func (s *BoltStore) DeleteRecord(_ context.Context, addr address.Address) error {
	return s.delete(recordsBucket, addr.String())
}

func (s *BoltStore) Load(context.Context) ([]*NodeInfo, []*Record, error) {
	var (
		nodes   []*NodeInfo
		records []*Record
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(nodesBucket).ForEach(func(_, value []byte) error {
			node := new(NodeInfo)
			if err := json.Unmarshal(value, node); err != nil {
				return err
			}
			nodes = append(nodes, node)
			return nil
		}); err != nil {
			return err
		}
		return tx.Bucket(recordsBucket).ForEach(func(_, value []byte) error {
			record := new(Record)
			if err := json.Unmarshal(value, record); err != nil {
				return err
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, nil, fmt.Errorf("placement: loading boltdb state: %w", err)
	}
	return nodes, records, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) put(bucket []byte, key string, value any) error {
	bytea, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), bytea)
	})
}

func (s *BoltStore) delete(bucket []byte, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
}
