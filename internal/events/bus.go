// Package events is the in-process domain event bus. It is constructed once
// in main and injected where needed; listeners are registered explicitly at
// startup, never through import side effects.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// UserRegistered is announced after a registration transaction commits.
const UserRegistered = "user.registered"

// Event carries a domain announcement. Payload is owned by the publisher and
// must not be mutated by handlers.
type Event struct {
	ID        uuid.UUID
	Name      string
	Timestamp time.Time
	Payload   any
}

// Handler reacts to a single event. Handlers run after the triggering
// transaction has committed; their outcome never affects the request.
type Handler func(ctx context.Context, event Event)

// Bus fans events out to subscribed handlers, each on its own goroutine.
// Publish never blocks and never fails.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	inflight sync.WaitGroup
	logger   *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// New constructs an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[string][]Handler),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for an event name. Call during startup only;
// there is no unsubscribe.
func (b *Bus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

// Publish announces an event. Handlers run concurrently on detached
// goroutines; the caller's context deadline does not apply to them since the
// triggering transaction has already committed.
func (b *Bus) Publish(name string, payload any) {
	event := Event{
		ID:        uuid.New(),
		Name:      name,
		Timestamp: time.Now(),
		Payload:   payload,
	}

	b.mu.RLock()
	handlers := b.handlers[name]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("event published with no listeners", "event", name)
		return
	}

	for _, handler := range handlers {
		b.inflight.Add(1)
		go func(h Handler) {
			defer b.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked", "event", name, "panic", r)
				}
			}()
			h(context.Background(), event)
		}(handler)
	}
}

// Wait blocks until all in-flight handlers finish. Used by tests and by
// shutdown to drain pending notifications.
func (b *Bus) Wait() {
	b.inflight.Wait()
}
