// Package notify carries cache-invalidation events between evaluator
// processes. Administrative mutations (license upload, settings change)
// publish; every process subscribes and drops its cached reads.
package notify

import (
	"context"
	"sync"
)

type EventKind string

const (
	EventLicenseChanged  EventKind = "license.changed"
	EventSettingsChanged EventKind = "settings.changed"
	EventCatalogRefresh  EventKind = "catalog.refresh"
)

// Event identifies what was invalidated. Key is a namespace ID for settings
// events and empty for instance-wide ones.
type Event struct {
	Kind EventKind `json:"kind"`
	Key  string    `json:"key,omitempty"`
}

type Handler func(Event)

type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(handler Handler) (unsubscribe func())
}

// MemoryBus fans events out in-process. Used when redis is not configured and
// in tests; a single-process deployment needs nothing more.
type MemoryBus struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]Handler
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[int]Handler)}
}

func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	_ = ctx
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

func (b *MemoryBus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}
