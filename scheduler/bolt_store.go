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

package scheduler

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/tochemey/vactor/address"
	gerrors "github.com/tochemey/vactor/errors"
)

var (
	schedulesBucket = []byte("schedules")
	// due index: 8 byte big endian fire time in unix nanoseconds followed by the id
	dueBucket = []byte("schedules_due")
)

// BoltStore persists schedule records in a local bbolt database. A secondary
// bucket indexes records by fire time so that Due is a range scan.
type BoltStore struct {
	db *bbolt.DB
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore opens (or creates) the database file at path
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("scheduler: creating boltdb directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second, NoGrowSync: true})
	if err != nil {
		return nil, fmt.Errorf("scheduler: opening boltdb: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{schedulesBucket, dueBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("scheduler: initializing boltdb buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Put(_ context.Context, record *Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, record)
	})
}

func (s *BoltStore) PutIfAbsent(_ context.Context, record *Record) (bool, error) {
	inserted := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(schedulesBucket).Get([]byte(record.ID)) != nil {
			return nil
		}
		inserted = true
		return put(tx, record)
	})
	return inserted, err
}

func (s *BoltStore) Get(_ context.Context, id string) (*Record, error) {
	var record *Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		record, err = get(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, gerrors.ErrScheduleNotFound
	}
	return record, nil
}

func (s *BoltStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		existing, err := get(tx, id)
		if err != nil || existing == nil {
			return err
		}
		if err := tx.Bucket(dueBucket).Delete(dueKey(existing)); err != nil {
			return err
		}
		return tx.Bucket(schedulesBucket).Delete([]byte(id))
	})
}

func (s *BoltStore) Due(_ context.Context, now time.Time, limit int) ([]*Record, error) {
	var due []*Record
	upper := timeKey(now)
	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(dueBucket).Cursor()
		for key, id := cursor.First(); key != nil; key, id = cursor.Next() {
			if bytes.Compare(key[:8], upper) > 0 {
				break
			}
			record, err := get(tx, string(id))
			if err != nil {
				return err
			}
			if record != nil {
				due = append(due, record)
			}
			if limit > 0 && len(due) >= limit {
				break
			}
		}
		return nil
	})
	return due, err
}

func (s *BoltStore) List(_ context.Context, addr address.Address) ([]*Record, error) {
	var out []*Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(schedulesBucket).ForEach(func(_, value []byte) error {
			record := new(Record)
			if err := json.Unmarshal(value, record); err != nil {
				return err
			}
			if record.Address.Equals(addr) {
				out = append(out, record)
			}
			return nil
		})
	})
	sortByFireTime(out)
	return out, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func put(tx *bbolt.Tx, record *Record) error {
	existing, err := get(tx, record.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		if err := tx.Bucket(dueBucket).Delete(dueKey(existing)); err != nil {
			return err
		}
	}

	bytea, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := tx.Bucket(schedulesBucket).Put([]byte(record.ID), bytea); err != nil {
		return err
	}
	return tx.Bucket(dueBucket).Put(dueKey(record), []byte(record.ID))
}

func get(tx *bbolt.Tx, id string) (*Record, error) {
	raw := tx.Bucket(schedulesBucket).Get([]byte(id))
	if raw == nil {
		return nil, nil
	}
	record := new(Record)
	if err := json.Unmarshal(raw, record); err != nil {
		return nil, fmt.Errorf("scheduler: decoding record %s: %w", id, err)
	}
	return record, nil
}

func timeKey(t time.Time) []byte {
	key := make([]byte, 8)
	nanos := t.UnixNano()
	if nanos < 0 {
		nanos = 0
	}
	binary.BigEndian.PutUint64(key, uint64(nanos))
	return key
}

func dueKey(record *Record) []byte {
	return append(timeKey(record.NextFireAt), record.ID...)
}
