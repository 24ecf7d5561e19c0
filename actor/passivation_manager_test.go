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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/vactor/log"
	"github.com/tochemey/vactor/passivation"
)

type passivationRecorder struct {
	mu     sync.Mutex
	called map[string]int
	accept bool
}

func (r *passivationRecorder) passivate(inst *instance) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.called[inst.key]++
	return r.accept
}

func (r *passivationRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.called[key]
}

func testInstance(key string) *instance {
	return &instance{key: key, mailbox: newMailbox(4, DropOldest, time.Second, nil)}
}

func TestPassivationManager(t *testing.T) {
	ctx := context.Background()

	t.Run("With idle instance passivated", func(t *testing.T) {
		recorder := &passivationRecorder{called: make(map[string]int), accept: true}
		manager := newPassivationManager(log.DiscardLogger, recorder.passivate)
		manager.Start(ctx)
		t.Cleanup(func() { manager.Stop(ctx) })

		inst := testInstance("counter:a")
		manager.Register(inst, passivation.NewTimeBasedStrategy(50*time.Millisecond))
		require.Equal(t, 1, manager.Len())

		require.Eventually(t, func() bool { return recorder.count("counter:a") == 1 }, time.Second, 10*time.Millisecond)
		require.Eventually(t, func() bool { return manager.Len() == 0 }, time.Second, 10*time.Millisecond)
	})

	t.Run("With touch postponing passivation", func(t *testing.T) {
		recorder := &passivationRecorder{called: make(map[string]int), accept: true}
		manager := newPassivationManager(log.DiscardLogger, recorder.passivate)
		manager.Start(ctx)
		t.Cleanup(func() { manager.Stop(ctx) })

		inst := testInstance("counter:b")
		manager.Register(inst, passivation.NewTimeBasedStrategy(150*time.Millisecond))
		for range 5 {
			time.Sleep(50 * time.Millisecond)
			manager.Touch(inst)
		}
		assert.Zero(t, recorder.count("counter:b"))
		require.Eventually(t, func() bool { return recorder.count("counter:b") == 1 }, time.Second, 10*time.Millisecond)
	})

	t.Run("With busy instance rescheduled", func(t *testing.T) {
		recorder := &passivationRecorder{called: make(map[string]int), accept: false}
		manager := newPassivationManager(log.DiscardLogger, recorder.passivate)
		manager.Start(ctx)
		t.Cleanup(func() { manager.Stop(ctx) })

		inst := testInstance("counter:c")
		manager.Register(inst, passivation.NewTimeBasedStrategy(30*time.Millisecond))
		require.Eventually(t, func() bool { return recorder.count("counter:c") >= 2 }, time.Second, 10*time.Millisecond)
		assert.Equal(t, 1, manager.Len())
	})

	t.Run("With unregister", func(t *testing.T) {
		recorder := &passivationRecorder{called: make(map[string]int), accept: true}
		manager := newPassivationManager(log.DiscardLogger, recorder.passivate)
		manager.Start(ctx)
		t.Cleanup(func() { manager.Stop(ctx) })

		inst := testInstance("counter:d")
		manager.Register(inst, passivation.NewTimeBasedStrategy(50*time.Millisecond))
		manager.Unregister(inst)
		assert.Zero(t, manager.Len())

		time.Sleep(100 * time.Millisecond)
		assert.Zero(t, recorder.count("counter:d"))
	})

	t.Run("With non time based strategies ignored", func(t *testing.T) {
		recorder := &passivationRecorder{called: make(map[string]int), accept: true}
		manager := newPassivationManager(log.DiscardLogger, recorder.passivate)
		manager.Start(ctx)
		t.Cleanup(func() { manager.Stop(ctx) })

		manager.Register(testInstance("counter:e"), passivation.NewLongLivedStrategy())
		manager.Register(testInstance("counter:f"), passivation.NewMessageCountBasedStrategy(10))
		assert.Zero(t, manager.Len())
	})
}
