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

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/tochemey/vactor/address"
	"github.com/tochemey/vactor/api"
	gerrors "github.com/tochemey/vactor/errors"
	"github.com/tochemey/vactor/log"
	"github.com/tochemey/vactor/messaging"
	"github.com/tochemey/vactor/passivation"
)

// ActivationState is the lifecycle state of an actor on a node
type ActivationState int32

const (
	NotActive ActivationState = iota
	Activating
	Active
	Deactivating
)

// String returns the state name
func (s ActivationState) String() string {
	switch s {
	case Activating:
		return "Activating"
	case Active:
		return "Active"
	case Deactivating:
		return "Deactivating"
	default:
		return "NotActive"
	}
}

// instance is the single live copy of an actor on this node. Its state is
// only touched by the processing loop, and by activation and deactivation
// while the loop is not running.
type instance struct {
	node   *Node
	addr   address.Address
	key    string
	desc   *Descriptor
	logger log.Logger

	mailbox *mailbox
	state   []byte

	activatedAt  time.Time
	lastActivity atomic.Time
	processed    atomic.Int64
	lifecycle    atomic.Int32
	inflight     atomic.Bool

	subscriptions []messaging.Subscription

	// ctx is the handler context, cancelled on forced deactivation
	ctx    context.Context
	cancel context.CancelFunc

	loopDone chan struct{}
	stopped  chan struct{}
}

func newInstance(node *Node, addr address.Address, desc *Descriptor, state []byte) *instance {
	ctx, cancel := context.WithCancel(context.Background())
	inst := &instance{
		node:        node,
		addr:        addr,
		key:         addr.String(),
		desc:        desc,
		logger:      node.logger.With("actor", addr.String()),
		state:       state,
		activatedAt: time.Now().UTC(),
		ctx:         ctx,
		cancel:      cancel,
		loopDone:    make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	inst.mailbox = newMailbox(desc.MailboxCapacity, desc.Overflow, desc.BlockTimeout, inst.dropped)
	inst.lifecycle.Store(int32(Activating))
	inst.lastActivity.Store(time.Now())
	return inst
}

func (x *instance) State() ActivationState {
	return ActivationState(x.lifecycle.Load())
}

func (x *instance) status() *api.ActorStatus {
	return &api.ActorStatus{
		Address:           x.addr,
		Active:            x.State() == Active,
		NodeID:            x.node.nodeID,
		ActivatedAt:       x.activatedAt,
		MailboxSize:       x.mailbox.Len(),
		MessagesProcessed: x.processed.Load(),
	}
}

// busy reports whether the instance has queued or in-flight work
func (x *instance) busy() bool {
	return x.inflight.Load() || x.mailbox.Len() > 0
}

// run is the single consumer loop: one envelope at a time, in FIFO order,
// until the mailbox is closed and empty.
func (x *instance) run() {
	defer close(x.loopDone)
	for {
		envelope, ok := x.mailbox.Dequeue()
		if !ok {
			return
		}
		x.process(envelope)
	}
}

func (x *instance) process(envelope *Envelope) {
	x.inflight.Store(true)
	start := time.Now()

	payload, err := x.handle(envelope)
	if err != nil {
		if errors.Is(err, gerrors.ErrUnhandledMessage) {
			x.logger.Warnf("no handler for message=(%s)", envelope.MessageType)
		} else {
			x.logger.Error(err)
		}
	}
	envelope.respond(payload, err)

	x.processed.Inc()
	x.lastActivity.Store(time.Now())
	x.inflight.Store(false)
	x.node.metrics.RecordMessage(x.ctx, x.desc.Type, time.Since(start), err != nil)
	x.node.passivator.Touch(x)

	if counted, ok := x.desc.Passivation.(*passivation.MessagesCountBasedStrategy); ok &&
		x.processed.Load() >= int64(counted.MaxMessages()) {
		x.node.stopAsync(x, stopOptions{save: true, reason: "passivation"})
	}
}

// handle runs the handler, turning errors and panics into HandlerError
func (x *instance) handle(envelope *Envelope) (payload []byte, err error) {
	handler, ok := x.desc.Handlers[envelope.MessageType]
	if !ok {
		return nil, gerrors.NewErrUnhandledMessage(x.desc.Type, envelope.MessageType)
	}

	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			payload = nil
			err = gerrors.NewHandlerError(x.key, envelope.MessageType, gerrors.NewPanicError(cause))
		}
	}()

	payload, err = handler(newContext(x.ctx, x, envelope), envelope.Payload)
	if err != nil {
		return nil, gerrors.NewHandlerError(x.key, envelope.MessageType, err)
	}
	return payload, nil
}

// runHook runs an activation or deactivation hook with panic recovery
func (x *instance) runHook(ctx context.Context, hook Hook) (err error) {
	if hook == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			err = gerrors.NewPanicError(cause)
		}
	}()
	return hook(newContext(ctx, x, nil))
}

// subscribe subscribes the declared topics and the personal topic
func (x *instance) subscribe() error {
	broker := x.node.broker
	for _, topic := range x.desc.Topics {
		sub, err := broker.Subscribe(topic, x.deliverFrom(SourceTopic))
		if err != nil {
			return fmt.Errorf("subscribing to topic=(%s): %w", topic, err)
		}
		x.subscriptions = append(x.subscriptions, sub)
	}

	sub, err := broker.Subscribe(messaging.PersonalTopic(x.addr), x.deliverFrom(SourcePersonal))
	if err != nil {
		return fmt.Errorf("subscribing to the personal topic: %w", err)
	}
	x.subscriptions = append(x.subscriptions, sub)
	return nil
}

func (x *instance) unsubscribe() error {
	var err error
	for _, sub := range x.subscriptions {
		if e := sub.Unsubscribe(); e != nil {
			err = multierr.Append(err, fmt.Errorf("unsubscribing from topic=(%s): %w", sub.Topic(), e))
		}
	}
	x.subscriptions = nil
	return err
}

func (x *instance) deliverFrom(source Source) messaging.Handler {
	return func(ctx context.Context, msg *messaging.Message) {
		if _, err := x.mailbox.Enqueue(ctx, newEnvelope(msg.Type, msg.Payload, source)); err != nil {
			x.logger.Warnf("dropped %s message=(%s) from topic=(%s): %v", source, msg.Type, msg.Topic, err)
		}
	}
}

// dropped is called by the mailbox for entries discarded by an overflow policy
func (x *instance) dropped(envelope *Envelope) {
	envelope.respond(nil, gerrors.ErrMailboxFull)
	x.node.metrics.RecordDropped(x.ctx, x.desc.Type, x.desc.Overflow.String())
	x.logger.Debugf("mailbox full: dropped message=(%s) under %s policy", envelope.MessageType, x.desc.Overflow)
}
