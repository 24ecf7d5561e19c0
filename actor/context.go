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
	"slices"
	"time"

	"github.com/tochemey/vactor/address"
	"github.com/tochemey/vactor/api"
	gerrors "github.com/tochemey/vactor/errors"
	"github.com/tochemey/vactor/log"
	"github.com/tochemey/vactor/messaging"
	"github.com/tochemey/vactor/scheduler"
)

type senderKey struct{}

// withSender marks ctx as issued by the given instance
func withSender(ctx context.Context, inst *instance) context.Context {
	return context.WithValue(ctx, senderKey{}, inst)
}

// senderOf returns the instance whose handler or hook issued ctx
func senderOf(ctx context.Context) *instance {
	inst, _ := ctx.Value(senderKey{}).(*instance)
	return inst
}

// Context is handed to handlers and hooks. It is only valid during the call
// it was created for and must not be retained.
type Context struct {
	ctx         context.Context
	instance    *instance
	messageType string
	source      Source
}

func newContext(ctx context.Context, instance *instance, envelope *Envelope) *Context {
	c := &Context{ctx: withSender(ctx, instance), instance: instance}
	if envelope != nil {
		c.messageType = envelope.MessageType
		c.source = envelope.Source
	}
	return c
}

// Context returns the context of the call. It is cancelled when the instance
// is force deactivated.
func (c *Context) Context() context.Context {
	return c.ctx
}

// Address returns the address of the actor
func (c *Context) Address() address.Address {
	return c.instance.addr
}

// NodeID returns the id of the hosting node
func (c *Context) NodeID() string {
	return c.instance.node.nodeID
}

// MessageType returns the type of the message being handled. It is empty in hooks.
func (c *Context) MessageType() string {
	return c.messageType
}

// Source returns how the message reached the mailbox
func (c *Context) Source() Source {
	return c.source
}

// State returns the in-memory state of the actor. Nil means the actor has
// never saved any state.
func (c *Context) State() []byte {
	return c.instance.state
}

// SetState replaces the in-memory state. It is persisted on deactivation or
// by calling Persist.
func (c *Context) SetState(state []byte) {
	c.instance.state = slices.Clone(state)
}

// Persist saves the current state now. Until then a node failure loses the
// changes made since the last save.
func (c *Context) Persist() error {
	return c.instance.node.states.Save(c.ctx, c.instance.addr, c.instance.state)
}

// Publish publishes a message on a topic
func (c *Context) Publish(topic, messageType string, payload []byte) error {
	return c.instance.node.broker.Publish(c.ctx, topic, &messaging.Message{
		Type:    messageType,
		Payload: payload,
	})
}

// Send sends a message to another actor, activating it when needed
func (c *Context) Send(to address.Address, messageType string, payload []byte) error {
	_, err := c.instance.node.Send(c.ctx, &api.SendRequest{
		Address:     to,
		MessageType: messageType,
		Payload:     payload,
	})
	return err
}

// ScheduleOnce persists a message to this actor delivered after delay and
// returns the schedule id
func (c *Context) ScheduleOnce(delay time.Duration, messageType string, payload []byte) (string, error) {
	store := c.instance.node.schedules
	if store == nil {
		return "", gerrors.ErrSchedulerNotStarted
	}
	record := scheduler.NewOnce(c.instance.addr, messageType, payload, time.Now().Add(delay))
	if err := store.Put(c.ctx, record); err != nil {
		return "", err
	}
	return record.ID, nil
}

// Logger returns a logger tagged with the actor address
func (c *Context) Logger() log.Logger {
	return c.instance.logger
}
