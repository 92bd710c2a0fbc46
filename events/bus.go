package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type Handler func(ctx context.Context, e Event) error

// Bus is a synchronous in-process publisher. Handler errors and panics are
// logged and never reach the publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	all      []Handler
	log      *slog.Logger
}

func NewBus(log *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers h for events with the given name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// SubscribeAll registers h for every event.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// On registers a handler typed to a concrete event.
func On[T Event](b *Bus, h func(ctx context.Context, e T) error) {
	var zero T
	b.Subscribe(zero.Name(), func(ctx context.Context, e Event) error {
		typed, ok := e.(T)
		if !ok {
			return fmt.Errorf("event %s: unexpected type %T", e.Name(), e)
		}
		return h(ctx, typed)
	})
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[e.Name()])+len(b.all))
	handlers = append(handlers, b.handlers[e.Name()]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(ctx, h, e)
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked", "event", e.Name(), "key", e.Key(), "panic", r)
		}
	}()
	if err := h(ctx, e); err != nil {
		b.log.Error("event handler failed", "event", e.Name(), "key", e.Key(), "error", err)
	}
}
