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

// Package scheduler delivers one-shot and recurring messages to actors from
// persisted schedule records. Nothing is held in in-memory timers: a
// restarted scheduler picks every due record up on its next scan.
package scheduler

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/tochemey/vactor/address"
)

// Record is a persisted schedule. Interval is zero for one-shot records.
type Record struct {
	ID          string          `json:"id"`
	Address     address.Address `json:"address"`
	MessageType string          `json:"messageType"`
	Payload     []byte          `json:"payload,omitempty"`
	NextFireAt  time.Time       `json:"nextFireAt"`
	Interval    time.Duration   `json:"interval,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Recurring reports whether the record fires more than once
func (r *Record) Recurring() bool {
	return r.Interval > 0
}

// NewOnce creates a one-shot record firing at fireAt
func NewOnce(addr address.Address, messageType string, payload []byte, fireAt time.Time) *Record {
	return &Record{
		ID:          uuid.NewString(),
		Address:     addr,
		MessageType: messageType,
		Payload:     slices.Clone(payload),
		NextFireAt:  fireAt.UTC(),
		CreatedAt:   time.Now().UTC(),
	}
}

// NewRecurring creates a recurring record whose first slot is now+interval.
// Its id is derived from the address and message type so that registering
// the same declared schedule twice keeps a single record.
func NewRecurring(addr address.Address, messageType string, payload []byte, interval time.Duration, now time.Time) *Record {
	return &Record{
		ID:          RecurringID(addr, messageType),
		Address:     addr,
		MessageType: messageType,
		Payload:     slices.Clone(payload),
		NextFireAt:  now.Add(interval).UTC(),
		Interval:    interval,
		CreatedAt:   now.UTC(),
	}
}

// RecurringID returns the id of the recurring record of an actor message type
func RecurringID(addr address.Address, messageType string) string {
	return addr.String() + "/" + messageType
}

// Store persists schedule records
type Store interface {
	// Put inserts or replaces a record
	Put(ctx context.Context, record *Record) error
	// PutIfAbsent inserts the record unless one with the same id exists
	PutIfAbsent(ctx context.Context, record *Record) (bool, error)
	// Get fails with errors.ErrScheduleNotFound for unknown ids
	Get(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	// Due returns up to limit records with NextFireAt <= now, earliest first
	Due(ctx context.Context, now time.Time, limit int) ([]*Record, error)
	// List returns the records targeting addr
	List(ctx context.Context, addr address.Address) ([]*Record, error)
	Close() error
}

// nextSlot returns the first slot of the record strictly after now. Slots
// missed while no scan ran are skipped, not replayed.
func nextSlot(fired time.Time, interval time.Duration, now time.Time) time.Time {
	if fired.After(now) {
		return fired
	}
	missed := now.Sub(fired) / interval
	return fired.Add((missed + 1) * interval)
}
