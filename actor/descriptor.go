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
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/tochemey/vactor/address"
	"github.com/tochemey/vactor/config"
	gerrors "github.com/tochemey/vactor/errors"
	"github.com/tochemey/vactor/internal/validation"
	"github.com/tochemey/vactor/messaging"
	"github.com/tochemey/vactor/passivation"
)

// OverflowPolicy governs enqueues into a full mailbox
type OverflowPolicy int

const (
	// DropOldest discards the head entry to make room for the incoming one
	DropOldest OverflowPolicy = iota
	// DropNewest rejects the incoming entry
	DropNewest
	// Block makes the sender wait for a free slot, bounded by the block timeout
	Block
)

// String returns the policy name
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	case Block:
		return "block"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

// ParseOverflowPolicy parses drop-oldest, drop-newest or block
func ParseOverflowPolicy(name string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "drop-oldest":
		return DropOldest, nil
	case "drop-newest":
		return DropNewest, nil
	case "block":
		return Block, nil
	default:
		return DropOldest, fmt.Errorf("unknown overflow policy %q", name)
	}
}

// Handler processes one message of an actor. The returned bytes are the
// reply of invoke calls and are ignored for plain sends.
type Handler func(ctx *Context, payload []byte) ([]byte, error)

// Hook runs at activation or deactivation of an instance
type Hook func(ctx *Context) error

// RecurringSchedule is a recurring message declared by an actor type. It is
// persisted on first activation and keeps firing while the actor is virtual.
type RecurringSchedule struct {
	MessageType string
	Interval    time.Duration
	Payload     []byte
}

// Descriptor is the static definition of an actor type. It is registered
// once on a node before it starts and never mutated afterwards.
type Descriptor struct {
	Type string
	// IdleTimeout of zero uses the node default; negative never expires
	IdleTimeout time.Duration
	// Passivation overrides IdleTimeout when set
	Passivation passivation.Strategy
	// MailboxCapacity of zero uses the node default
	MailboxCapacity int
	Overflow        OverflowPolicy
	// BlockTimeout of zero uses the node default
	BlockTimeout time.Duration
	Topics       []string
	Schedules    []RecurringSchedule
	Handlers     map[string]Handler
	OnActivate   Hook
	OnDeactivate Hook
	// ActivationRetries bounds OnActivate attempts; zero uses the node default
	ActivationRetries int
}

// Validate checks the descriptor
func (d *Descriptor) Validate() error {
	chain := validation.New(validation.AllErrors()).
		AddValidator(validation.NewEmptyStringValidator("type", d.Type)).
		AddValidator(address.ValidateType(d.Type)).
		AddValidator(validation.NewMaxLengthValidator("type", d.Type, address.MaxPartLength)).
		AddAssertion(len(d.Handlers) > 0, "the [handlers] are required").
		AddAssertion(d.MailboxCapacity >= 0, "the [mailbox_capacity] must not be negative").
		AddAssertion(d.BlockTimeout >= 0, "the [block_timeout] must not be negative").
		AddAssertion(d.ActivationRetries >= 0, "the [activation_retries] must not be negative").
		AddAssertion(d.Overflow >= DropOldest && d.Overflow <= Block, "the [overflow] policy is unknown")

	for messageType, handler := range d.Handlers {
		chain.AddAssertion(messageType != "", "the [handlers] must not contain an empty message type").
			AddAssertion(handler != nil, fmt.Sprintf("the handler of [%s] is nil", messageType))
	}

	for _, topic := range d.Topics {
		chain.AddValidator(validation.NewBooleanValidator(messaging.ValidateTopic(topic) == nil,
			fmt.Sprintf("the topic [%s] is invalid", topic)))
	}

	for _, schedule := range d.Schedules {
		_, handled := d.Handlers[schedule.MessageType]
		chain.AddAssertion(schedule.Interval > 0, fmt.Sprintf("the schedule of [%s] needs a positive interval", schedule.MessageType)).
			AddAssertion(handled, fmt.Sprintf("the schedule of [%s] has no handler", schedule.MessageType))
	}

	if err := chain.Validate(); err != nil {
		return gerrors.NewErrInvalidConfig(fmt.Errorf("actor type=(%s): %w", d.Type, err))
	}
	return nil
}

// withDefaults returns a copy of the descriptor with node defaults applied
func (d *Descriptor) withDefaults(cfg *config.Config) *Descriptor {
	clone := *d
	clone.Handlers = maps.Clone(d.Handlers)
	clone.Topics = slices.Clone(d.Topics)
	clone.Schedules = slices.Clone(d.Schedules)

	if clone.MailboxCapacity == 0 {
		clone.MailboxCapacity = cfg.DefaultMailboxCapacity
	}
	if clone.BlockTimeout == 0 {
		clone.BlockTimeout = cfg.DefaultBlockTimeout
	}
	if clone.ActivationRetries == 0 {
		clone.ActivationRetries = cfg.ActivationRetries
	}
	if clone.Passivation == nil {
		clone.Passivation = passivation.FromIdleTimeout(clone.IdleTimeout, cfg.DefaultIdleTimeout)
	}
	return &clone
}
