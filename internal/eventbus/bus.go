// Package eventbus implements the in-process pub/sub described in §4.5:
// handlers keyed by session id plus a global fallback, bounded replay
// history, and a dispatch path safe to call from any goroutine.
package eventbus

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

const historyLimit = 100

// Handler receives one Event. A Handler must not block indefinitely:
// Publish waits for every handler to return before returning itself.
type Handler func(entities.Event)

// UnsubscribeFunc removes a previously registered handler.
type UnsubscribeFunc func()

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is the session-keyed pub/sub core. The zero value is not usable; use
// New.
type Bus struct {
	mu         sync.RWMutex
	bySession  map[string][]subscription
	global     []subscription
	history    map[string][]entities.Event
	nextSubID  uint64
	logger     *zap.Logger
}

// New constructs an empty Bus.
func New(logger *zap.Logger) *Bus {
	return &Bus{
		bySession: make(map[string][]subscription),
		history:   make(map[string][]entities.Event),
		logger:    logger,
	}
}

// Subscribe registers handler for events on one session id and returns a
// disposer that removes it.
func (b *Bus) Subscribe(sessionID string, handler Handler) UnsubscribeFunc {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSubID
	b.nextSubID++
	b.bySession[sessionID] = append(b.bySession[sessionID], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.bySession[sessionID] = removeSub(b.bySession[sessionID], id)
	}
}

// SubscribeGlobal registers handler for every session's events.
func (b *Bus) SubscribeGlobal(handler Handler) UnsubscribeFunc {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSubID
	b.nextSubID++
	b.global = append(b.global, subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.global = removeSub(b.global, id)
	}
}

// Publish dispatches event to the union of per-session and global
// handlers concurrently. A handler panic is recovered and logged; it never
// reaches another handler or the caller. Publish returns once every
// handler invoked for this event has returned, which gives callers a
// natural backpressure point without needing a separate async bridge.
func (b *Bus) Publish(event entities.Event) {
	b.recordHistory(event)

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.bySession[event.SessionID])+len(b.global))
	for _, s := range b.bySession[event.SessionID] {
		handlers = append(handlers, s.handler)
	}
	for _, s := range b.global {
		handlers = append(handlers, s.handler)
	}
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(handlers))
	for _, h := range handlers {
		go func(h Handler) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked", zap.Any("panic", r), zap.String("event_type", string(event.Type)))
				}
			}()
			h(event)
		}(h)
	}
	wg.Wait()
}

// History returns up to the last 100 events published for session, in
// publish order, optionally filtered to those at or after since.
func (b *Bus) History(sessionID string, since *time.Time) []entities.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	all := b.history[sessionID]
	if since == nil {
		out := make([]entities.Event, len(all))
		copy(out, all)
		return out
	}

	var out []entities.Event
	for _, e := range all {
		if !e.Timestamp.Before(*since) {
			out = append(out, e)
		}
	}
	return out
}

func (b *Bus) recordHistory(event entities.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := append(b.history[event.SessionID], event)
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	b.history[event.SessionID] = h
}

func removeSub(subs []subscription, id uint64) []subscription {
	out := subs[:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
