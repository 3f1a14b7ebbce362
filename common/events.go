// Copyright © 2017 Microsoft <wastore@microsoft.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package common

import (
	"reflect"
	"sync"

	"github.com/JeffreyRichter/enum/enum"
)

var EEventName = EventName(0)

// EventName is the closed set of event names the bus will carry. Unlike a
// string-keyed emitter, an unknown name can't be constructed by a caller
// outside this package.
type EventName uint32

func (EventName) Chunks() EventName       { return EventName(0) }
func (EventName) WholeHash() EventName    { return EventName(1) }
func (EventName) Drain() EventName        { return EventName(2) }
func (EventName) QueueDrained() EventName { return EventName(3) }
func (EventName) QueueAborted() EventName { return EventName(4) }
func (EventName) Progress() EventName     { return EventName(5) }
func (EventName) End() EventName          { return EventName(6) }
func (EventName) Error() EventName        { return EventName(7) }

func (e EventName) String() string {
	return enum.StringInt(e, reflect.TypeOf(e))
}

// Handler receives whatever payload was published for its event; callers
// type-assert to the payload shape documented for each EventName.
type Handler func(payload interface{})

// Bus is a small typed publish/subscribe utility. Handlers run
// synchronously on Publish, in subscription order. A Publish call made
// from inside a handler (a re-entrant publish) is queued and runs after the
// outer Publish's handlers have all returned, so no handler ever recurses
// into another dispatch.
type Bus struct {
	mu          sync.Mutex
	subscribers map[EventName][]Handler
	pending     []func()
	dispatching bool
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[EventName][]Handler)}
}

// On subscribes h to events named name. Subscriptions are not removable;
// the bus lives exactly as long as the component (Controller, Hash Pipeline
// or Upload Queue) that owns it.
func (b *Bus) On(name EventName, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[name] = append(b.subscribers[name], h)
}

// Publish invokes every handler subscribed to name with payload.
func (b *Bus) Publish(name EventName, payload interface{}) {
	b.mu.Lock()
	if b.dispatching {
		b.pending = append(b.pending, func() { b.dispatchOne(name, payload) })
		b.mu.Unlock()
		return
	}
	b.dispatching = true
	b.mu.Unlock()

	b.dispatchOne(name, payload)
	b.drainPending()
}

func (b *Bus) drainPending() {
	for {
		b.mu.Lock()
		if len(b.pending) == 0 {
			b.dispatching = false
			b.mu.Unlock()
			return
		}
		next := b.pending[0]
		b.pending = b.pending[1:]
		b.mu.Unlock()
		next()
	}
}

func (b *Bus) dispatchOne(name EventName, payload interface{}) {
	b.mu.Lock()
	handlers := make([]Handler, len(b.subscribers[name]))
	copy(handlers, b.subscribers[name])
	b.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
}
