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

package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/tochemey/vactor/log"
)

type handleFunc func(ctx context.Context, op string, data []byte) (any, error)

// server answers requests on a wildcard subject. Every request runs on its
// own goroutine so that a slow invoke never holds the others.
type server struct {
	conn    *nats.Conn
	subject string
	logger  log.Logger
	handle  handleFunc

	mu      sync.Mutex
	sub     *nats.Subscription
	closed  bool
	pending sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func newServer(conn *nats.Conn, subject string, logger log.Logger, handle handleFunc) *server {
	ctx, cancel := context.WithCancel(context.Background())
	return &server{
		conn:    conn,
		subject: subject,
		logger:  logger,
		handle:  handle,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *server) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		return nil
	}

	sub, err := s.conn.Subscribe(s.subject, s.dispatch)
	if err != nil {
		return fmt.Errorf("remote: subscribe to %s: %w", s.subject, err)
	}
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("remote: flush subscription of %s: %w", s.subject, err)
	}
	s.sub = sub
	s.logger.Infof("serving requests on %s", s.subject)
	return nil
}

func (s *server) dispatch(msg *nats.Msg) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.pending.Done()
		op := operation(msg.Subject)
		data, err := s.handle(s.ctx, op, msg.Data)
		if err != nil {
			s.logger.Debugf("request %s failed: %v", msg.Subject, err)
		}
		if msg.Reply == "" {
			return
		}
		if err := msg.Respond(encodeFrame(data, err)); err != nil {
			s.logger.Warnf("failed to respond to %s: %v", msg.Subject, err)
		}
	}()
}

// stop unsubscribes and waits for the requests in flight
func (s *server) stop(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sub := s.sub
	s.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Unsubscribe()
	}

	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.cancel()
		<-done
	}
	s.cancel()
	return err
}
