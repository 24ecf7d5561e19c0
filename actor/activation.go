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

package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowchartsman/retry"
	"go.uber.org/multierr"

	"github.com/tochemey/vactor/address"
	gerrors "github.com/tochemey/vactor/errors"
	"github.com/tochemey/vactor/scheduler"
)

const (
	hookRetryDelay    = 10 * time.Millisecond
	hookRetryMaxDelay = 500 * time.Millisecond
	// attempts to enqueue while racing with a deactivation
	enqueueAttempts = 3
)

type stopOptions struct {
	// force cancels the in-flight handler and rejects queued entries
	force bool
	save  bool
	// reason is reported in logs and metrics
	reason string
}

// ensureActive returns the active instance of addr, activating it once even
// when many callers race. A departing instance of the same address is waited
// for first.
//
// The shared activation runs detached from the callers, bounded by the
// request timeout; each caller only stops waiting when its own context ends.
// An instance messaging its own address while it is not routable fails with
// ErrMailboxClosed instead of waiting on itself.
func (n *Node) ensureActive(ctx context.Context, addr address.Address) (*instance, error) {
	key := addr.String()
	if inst, ok := n.instances.Load(key); ok {
		return inst, nil
	}
	if sender := senderOf(ctx); sender != nil && sender.node == n && sender.key == key {
		return nil, gerrors.ErrMailboxClosed
	}

	results := n.activations.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.config.RequestTimeout)
		defer cancel()

		if inst, ok := n.instances.Load(key); ok {
			return inst, nil
		}
		if departed, ok := n.departing.Load(key); ok {
			select {
			case <-departed:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return n.activate(ctx, addr)
	})

	select {
	case result := <-results:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*instance), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// activate turns a virtual actor into an active instance: claim, load state,
// subscribe, persist declared schedules, run OnActivate, start the loop.
// Any failure unwinds what was done and releases the placement record.
func (n *Node) activate(ctx context.Context, addr address.Address) (*instance, error) {
	if !n.started.Load() {
		return nil, gerrors.ErrNodeNotStarted
	}

	key := addr.String()
	desc, ok := n.descriptors[addr.Type()]
	if !ok {
		n.releasePlacement(ctx, addr)
		return nil, gerrors.NewErrActorTypeNotRegistered(addr.Type())
	}

	if !n.reserveSlot() {
		n.releasePlacement(ctx, addr)
		return nil, gerrors.ErrNoCapacity
	}

	n.logger.Infof("Activating actor (%s)...", key)

	if err := n.claims.Acquire(ctx, addr, n.nodeID, n.config.ClaimTTL); err != nil {
		n.slots.Dec()
		n.releasePlacement(ctx, addr)
		if errors.Is(err, gerrors.ErrAlreadyActiveElsewhere) {
			n.logger.Debugf("actor (%s) is already active elsewhere", key)
			return nil, err
		}
		return nil, gerrors.NewErrActivationFailure(fmt.Errorf("acquiring claim: %w", err))
	}

	// the record may have been released by a previous instance while this
	// activation waited for it, or never created for a direct activation
	record, err := n.directory.Resolve(ctx, addr)
	if err != nil {
		n.unwindActivation(ctx, nil, addr)
		return nil, gerrors.NewErrActivationFailure(fmt.Errorf("resolving placement: %w", err))
	}
	if record.NodeID != n.nodeID {
		n.unwindActivation(ctx, nil, addr)
		n.logger.Debugf("actor (%s) is placed on node=(%s)", key, record.NodeID)
		return nil, gerrors.ErrAlreadyActiveElsewhere
	}

	state, _, err := n.states.Load(ctx, addr)
	if err != nil {
		n.unwindActivation(ctx, nil, addr)
		return nil, gerrors.NewErrActivationFailure(fmt.Errorf("loading state: %w", err))
	}

	inst := newInstance(n, addr, desc, state)

	if err := inst.subscribe(); err != nil {
		n.unwindActivation(ctx, inst, addr)
		return nil, gerrors.NewErrActivationFailure(err)
	}

	if err := n.persistSchedules(ctx, inst); err != nil {
		n.unwindActivation(ctx, inst, addr)
		return nil, gerrors.NewErrActivationFailure(err)
	}

	if desc.OnActivate != nil {
		retrier := retry.NewRetrier(desc.ActivationRetries, hookRetryDelay, hookRetryMaxDelay)
		if err := retrier.RunContext(ctx, func(ctx context.Context) error {
			return inst.runHook(ctx, desc.OnActivate)
		}); err != nil {
			n.unwindActivation(ctx, inst, addr)
			n.logger.Errorf("Actor (%s) activation failed.", key)
			return nil, gerrors.NewErrActivationFailure(err)
		}
	}

	inst.lifecycle.Store(int32(Active))
	n.instances.Store(key, inst)
	go inst.run()
	n.passivator.Register(inst, desc.Passivation)
	n.metrics.RecordActivation(ctx, desc.Type)

	n.logger.Infof("Actor (%s) successfully activated, passivation: %s.", key, desc.Passivation)
	return inst, nil
}

func (n *Node) persistSchedules(ctx context.Context, inst *instance) error {
	if n.schedules == nil || len(inst.desc.Schedules) == 0 {
		return nil
	}
	now := time.Now()
	for _, schedule := range inst.desc.Schedules {
		record := scheduler.NewRecurring(inst.addr, schedule.MessageType, schedule.Payload, schedule.Interval, now)
		if _, err := n.schedules.PutIfAbsent(ctx, record); err != nil {
			return fmt.Errorf("persisting schedule of message=(%s): %w", schedule.MessageType, err)
		}
	}
	return nil
}

// reserveSlot takes one of the MaxActors slots, released when the
// activation unwinds or the instance is deactivated
func (n *Node) reserveSlot() bool {
	if n.slots.Inc() > int64(n.config.MaxActors) {
		n.slots.Dec()
		return false
	}
	return true
}

func (n *Node) unwindActivation(ctx context.Context, inst *instance, addr address.Address) {
	n.slots.Dec()
	if inst != nil {
		if err := inst.unsubscribe(); err != nil {
			n.logger.Warn(err)
		}
		inst.cancel()
		inst.lifecycle.Store(int32(NotActive))
	}
	if err := n.claims.Release(ctx, addr, n.nodeID); err != nil {
		n.logger.Warnf("failed to release claim of actor (%s): %v", addr, err)
	}
	n.releasePlacement(ctx, addr)
}

func (n *Node) releasePlacement(ctx context.Context, addr address.Address) {
	if err := n.directory.Release(ctx, addr, n.nodeID); err != nil {
		n.logger.Warnf("failed to release placement of actor (%s): %v", addr, err)
	}
}

// deactivate returns the instance to the virtual state and reports how many
// queued entries were processed after the mailbox closed.
//
// The instance leaves the routing table first so that later messages start
// a new activation, which waits on the departing entry until this one is done.
func (n *Node) deactivate(ctx context.Context, inst *instance, opts stopOptions) (int, error) {
	if !inst.lifecycle.CompareAndSwap(int32(Active), int32(Deactivating)) {
		select {
		case <-inst.stopped:
		case <-ctx.Done():
		}
		return 0, nil
	}

	key := inst.key
	n.logger.Infof("Deactivating actor (%s) (%s)...", key, opts.reason)

	// departing is visible before the instance leaves the table so that no
	// caller can miss both and activate a second copy
	n.departing.Store(key, inst.stopped)
	n.instances.CompareAndDelete(key, func(current *instance) bool { return current == inst })
	n.passivator.Unregister(inst)

	pending := inst.mailbox.Close()
	drained := pending
	if opts.force {
		rejected := inst.mailbox.Reject()
		inst.cancel()
		for _, envelope := range rejected {
			envelope.respond(nil, gerrors.ErrMailboxClosed)
		}
		drained = max(pending-len(rejected), 0)
	}
	n.awaitLoop(inst)

	// teardown outlives a cancelled caller
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.config.ShutdownTimeout)
	defer cancel()

	err := inst.unsubscribe()

	if hook := inst.desc.OnDeactivate; hook != nil {
		if e := inst.runHook(ctx, hook); e != nil {
			err = multierr.Append(err, fmt.Errorf("running OnDeactivate: %w", e))
		}
	}

	if opts.save {
		if e := n.states.Save(ctx, inst.addr, inst.state); e != nil {
			err = multierr.Append(err, fmt.Errorf("saving state: %w", e))
		}
	}

	if e := n.claims.Release(ctx, inst.addr, n.nodeID); e != nil {
		err = multierr.Append(err, fmt.Errorf("releasing claim: %w", e))
	}

	if e := n.directory.Release(ctx, inst.addr, n.nodeID); e != nil {
		err = multierr.Append(err, fmt.Errorf("releasing placement: %w", e))
	}

	inst.cancel()
	inst.mailbox.Dispose()
	inst.lifecycle.Store(int32(NotActive))
	n.slots.Dec()
	n.departing.CompareAndDelete(key, func(current chan struct{}) bool { return current == inst.stopped })
	close(inst.stopped)
	n.metrics.RecordDeactivation(ctx, inst.desc.Type, opts.reason)

	if err != nil {
		n.logger.Errorf("Actor (%s) deactivation failed: %v", key, err)
		return drained, gerrors.NewErrDeactivationFailure(err)
	}
	n.logger.Infof("Actor (%s) successfully deactivated, %d messages drained.", key, drained)
	return drained, nil
}

// awaitLoop waits for the processing loop to finish. Past the shutdown
// timeout the handler context is cancelled and the wait goes on until the
// handler returns.
func (n *Node) awaitLoop(inst *instance) {
	timer := time.NewTimer(n.config.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-inst.loopDone:
	case <-timer.C:
		inst.logger.Warnf("processing loop still running after %s, cancelling the handler", n.config.ShutdownTimeout)
		inst.cancel()
		<-inst.loopDone
	}
}

// stopAsync deactivates the instance in the background
func (n *Node) stopAsync(inst *instance, opts stopOptions) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if _, err := n.deactivate(context.Background(), inst, opts); err != nil {
			n.logger.Error(err)
		}
	}()
}

// passivate is called by the passivation manager for idle instances
func (n *Node) passivate(inst *instance) bool {
	if inst.State() != Active {
		return true
	}
	if inst.busy() {
		return false
	}
	n.stopAsync(inst, stopOptions{save: true, reason: "passivation"})
	return true
}

// deliver enqueues the envelope on the active instance of addr. An enqueue
// racing with a deactivation is retried on the next instance.
func (n *Node) deliver(ctx context.Context, addr address.Address, envelope *Envelope) (bool, error) {
	for range enqueueAttempts {
		inst, err := n.ensureActive(ctx, addr)
		if err != nil {
			return false, err
		}
		accepted, err := inst.mailbox.Enqueue(ctx, envelope)
		if errors.Is(err, gerrors.ErrMailboxClosed) {
			continue
		}
		return accepted, err
	}
	return false, gerrors.ErrMailboxClosed
}
