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
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/reugn/go-quartz/job"
	quartzlogger "github.com/reugn/go-quartz/logger"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/atomic"

	"github.com/tochemey/vactor/address"
	"github.com/tochemey/vactor/api"
	"github.com/tochemey/vactor/config"
	gerrors "github.com/tochemey/vactor/errors"
	"github.com/tochemey/vactor/log"
	"github.com/tochemey/vactor/telemetry"
)

const (
	scanJobKey       = "vactor-schedule-scan"
	defaultBatchSize = 256
)

// Deliverer hands scheduled messages to the runtime. Node runtimes and
// cluster clients implement it; delivering to a virtual actor activates it.
type Deliverer interface {
	Send(ctx context.Context, req *api.SendRequest) (*api.SendResponse, error)
}

// Scheduler scans the Store on a go-quartz simple trigger and delivers every
// due record. Recurring records move to their next future slot, one-shot
// records are deleted. Failed deliveries stay due and are retried on the
// next scan. Scans never overlap.
type Scheduler struct {
	mu sync.Mutex

	store     Store
	deliverer Deliverer
	logger    log.Logger
	metrics   *telemetry.Metrics
	interval  time.Duration
	batchSize int
	now       func() time.Time

	quartzScheduler quartz.Scheduler
	started         atomic.Bool
	scanning        atomic.Bool
}

// Option configures the Scheduler
type Option func(*Scheduler)

// WithScanInterval sets how often due records are scanned
func WithScanInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		s.interval = interval
	}
}

// WithBatchSize bounds the number of records delivered per scan
func WithBatchSize(size int) Option {
	return func(s *Scheduler) {
		s.batchSize = size
	}
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithMetrics sets the metric instruments
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = metrics
	}
}

// New creates a Scheduler
func New(store Store, deliverer Deliverer, opts ...Option) (*Scheduler, error) {
	// quartz logging stays off: scans are logged here
	quartzScheduler, err := quartz.NewStdScheduler(quartz.WithLogger(quartzlogger.NewSimpleLogger(nil, quartzlogger.LevelOff)))
	if err != nil {
		return nil, fmt.Errorf("scheduler: creating quartz scheduler: %w", err)
	}

	scheduler := &Scheduler{
		store:           store,
		deliverer:       deliverer,
		logger:          log.DiscardLogger,
		interval:        config.DefaultScheduleScanInterval,
		batchSize:       defaultBatchSize,
		now:             time.Now,
		quartzScheduler: quartzScheduler,
	}
	for _, opt := range opts {
		opt(scheduler)
	}
	return scheduler, nil
}

// Start starts the scan trigger
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started.Load() {
		return nil
	}

	s.logger.Info("starting schedule scanner...")
	s.quartzScheduler.Start(ctx)

	scan := job.NewFunctionJob[int](func(ctx context.Context) (int, error) {
		return s.Scan(ctx)
	})
	detail := quartz.NewJobDetail(scan, quartz.NewJobKey(scanJobKey))
	if err := s.quartzScheduler.ScheduleJob(detail, quartz.NewSimpleTrigger(s.interval)); err != nil {
		s.quartzScheduler.Stop()
		return fmt.Errorf("scheduler: scheduling scan job: %w", err)
	}

	s.started.Store(s.quartzScheduler.IsStarted())
	s.logger.Infof("schedule scanner started (interval=%s)", s.interval)
	return nil
}

// Stop stops the scan trigger and waits for a running scan to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started.Load() {
		return nil
	}

	s.logger.Info("stopping schedule scanner...")
	_ = s.quartzScheduler.Clear()
	s.quartzScheduler.Stop()
	s.started.Store(false)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	s.quartzScheduler.Wait(ctx)
	s.logger.Info("schedule scanner stopped")
	return nil
}

// ScheduleOnce persists a one-shot delivery after delay and returns its id
func (s *Scheduler) ScheduleOnce(ctx context.Context, addr address.Address, messageType string, payload []byte, delay time.Duration) (string, error) {
	if err := validateTarget(addr, messageType); err != nil {
		return "", err
	}
	record := NewOnce(addr, messageType, payload, s.now().Add(delay))
	if err := s.store.Put(ctx, record); err != nil {
		return "", fmt.Errorf("scheduler: persisting record: %w", err)
	}
	return record.ID, nil
}

// ScheduleRecurring persists a recurring delivery every interval and returns
// its id. Scheduling the same message type twice for an address replaces the
// interval and payload of the existing record.
func (s *Scheduler) ScheduleRecurring(ctx context.Context, addr address.Address, messageType string, payload []byte, interval time.Duration) (string, error) {
	if err := validateTarget(addr, messageType); err != nil {
		return "", err
	}
	if interval <= 0 {
		return "", gerrors.ErrInvalidTimeout
	}
	record := NewRecurring(addr, messageType, payload, interval, s.now())
	if err := s.store.Put(ctx, record); err != nil {
		return "", fmt.Errorf("scheduler: persisting record: %w", err)
	}
	return record.ID, nil
}

// Cancel deletes a schedule record
func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// Scan delivers every due record once and returns the number of successful
// deliveries. A scan started while another one runs returns immediately.
func (s *Scheduler) Scan(ctx context.Context) (int, error) {
	if !s.scanning.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer s.scanning.Store(false)

	now := s.now()
	due, err := s.store.Due(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Errorf("failed to scan due schedules: %v", err)
		return 0, err
	}

	delivered := 0
	for _, record := range due {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}

		_, err := s.deliverer.Send(ctx, &api.SendRequest{
			Address:     record.Address,
			MessageType: record.MessageType,
			Payload:     record.Payload,
		})
		s.metrics.RecordDelivery(ctx, err == nil)
		if err != nil {
			s.logger.Warnf("failed to deliver schedule=(%s) to actor=(%s): %v", record.ID, record.Address, err)
			continue
		}
		delivered++

		if !record.Recurring() {
			if err := s.store.Delete(ctx, record.ID); err != nil {
				s.logger.Errorf("failed to delete fired schedule=(%s): %v", record.ID, err)
			}
			continue
		}

		record.NextFireAt = nextSlot(record.NextFireAt, record.Interval, now).UTC()
		if err := s.store.Put(ctx, record); err != nil {
			s.logger.Errorf("failed to reschedule schedule=(%s): %v", record.ID, err)
		}
	}

	if len(due) > 0 {
		s.logger.Debugf("schedule scan delivered %d/%d due records", delivered, len(due))
	}
	return delivered, nil
}

func validateTarget(addr address.Address, messageType string) error {
	if err := addr.Validate(); err != nil {
		return err
	}
	if messageType == "" {
		return gerrors.NewErrUnhandledMessage(addr.Type(), messageType)
	}
	return nil
}
