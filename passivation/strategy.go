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

// Package passivation decides when an idle actor instance goes back to the
// virtual state.
package passivation

import (
	"fmt"
	"time"

	"github.com/tochemey/vactor/internal/duration"
)

// Strategy is the passivation policy attached to an actor type.
// The String form is what the runtime logs on activation.
type Strategy interface {
	fmt.Stringer
}

// TimeBasedStrategy deactivates an instance after timeout without a message.
type TimeBasedStrategy struct {
	timeout time.Duration
}

var _ Strategy = (*TimeBasedStrategy)(nil)

// NewTimeBasedStrategy creates a TimeBasedStrategy
func NewTimeBasedStrategy(timeout time.Duration) *TimeBasedStrategy {
	return &TimeBasedStrategy{timeout: timeout}
}

// Timeout returns the idle timeout
func (t *TimeBasedStrategy) Timeout() time.Duration {
	return t.timeout
}

func (t *TimeBasedStrategy) String() string {
	return fmt.Sprintf("idle after %s", duration.Format(t.timeout))
}

// MessagesCountBasedStrategy deactivates an instance once it has handled
// maxMessages messages in the current activation.
type MessagesCountBasedStrategy struct {
	maxMessages int
}

var _ Strategy = (*MessagesCountBasedStrategy)(nil)

// NewMessageCountBasedStrategy creates a MessagesCountBasedStrategy
func NewMessageCountBasedStrategy(maxMessages int) *MessagesCountBasedStrategy {
	return &MessagesCountBasedStrategy{maxMessages: maxMessages}
}

// MaxMessages returns the per-activation message limit
func (m *MessagesCountBasedStrategy) MaxMessages() int {
	return m.maxMessages
}

func (m *MessagesCountBasedStrategy) String() string {
	return fmt.Sprintf("after %d messages", m.maxMessages)
}

// LongLivedStrategy never passivates. Only explicit deactivation, node
// shutdown or claim loss end the activation.
type LongLivedStrategy struct{}

var _ Strategy = (*LongLivedStrategy)(nil)

// NewLongLivedStrategy creates a LongLivedStrategy
func NewLongLivedStrategy() *LongLivedStrategy {
	return &LongLivedStrategy{}
}

func (*LongLivedStrategy) String() string {
	return "never"
}

// FromIdleTimeout maps an actor type idle timeout to a strategy: a negative
// timeout never expires, zero falls back to defaultTimeout.
func FromIdleTimeout(timeout, defaultTimeout time.Duration) Strategy {
	switch {
	case timeout < 0:
		return NewLongLivedStrategy()
	case timeout == 0:
		if defaultTimeout <= 0 {
			return NewLongLivedStrategy()
		}
		return NewTimeBasedStrategy(defaultTimeout)
	default:
		return NewTimeBasedStrategy(timeout)
	}
}
