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
	"time"
)

// Source tells how an envelope reached the mailbox
type Source int

const (
	// SourceDirect is a send, invoke or scheduled delivery
	SourceDirect Source = iota
	// SourceTopic is a message published on a declared topic
	SourceTopic
	// SourcePersonal is a message published on the personal topic of the actor
	SourcePersonal
)

// String returns the source name
func (s Source) String() string {
	switch s {
	case SourceTopic:
		return "topic"
	case SourcePersonal:
		return "personal"
	default:
		return "direct"
	}
}

// Envelope is a mailbox entry
type Envelope struct {
	MessageType string
	Payload     []byte
	EnqueuedAt  time.Time
	Source      Source
	// reply is set for invoke calls only
	reply chan reply
}

type reply struct {
	payload []byte
	err     error
}

func newEnvelope(messageType string, payload []byte, source Source) *Envelope {
	return &Envelope{
		MessageType: messageType,
		Payload:     payload,
		EnqueuedAt:  time.Now(),
		Source:      source,
	}
}

func newRequestEnvelope(messageType string, payload []byte) *Envelope {
	envelope := newEnvelope(messageType, payload, SourceDirect)
	envelope.reply = make(chan reply, 1)
	return envelope
}

// respond completes an invoke call. It never blocks: the channel holds one
// reply and an envelope is answered at most once.
func (e *Envelope) respond(payload []byte, err error) {
	if e.reply == nil {
		return
	}
	select {
	case e.reply <- reply{payload: payload, err: err}:
	default:
	}
}
