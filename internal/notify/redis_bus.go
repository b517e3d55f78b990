package notify

import (
	"context"
	"encoding/json"
	"sync"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const invalidationChannel = "gatekeeper:invalidations"

// RedisBus broadcasts invalidation events through redis pub/sub so every
// evaluator process observes administrative mutations, not just the local one.
type RedisBus struct {
	client *redis.Client
	log    *zap.Logger

	mu       sync.Mutex
	nextID   int
	handlers map[int]Handler

	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisBus(client *redis.Client, log *zap.Logger) *RedisBus {
	return &RedisBus{
		client:   client,
		log:      log.Named("notify.redis"),
		handlers: make(map[int]Handler),
	}
}

func (b *RedisBus) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, invalidationChannel, payload).Err()
}

func (b *RedisBus) Subscribe(handler Handler) func() {
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

// Start opens the pub/sub connection and begins dispatching.
func (b *RedisBus) Start(ctx context.Context) error {
	b.pubsub = b.client.Subscribe(ctx, invalidationChannel)
	if _, err := b.pubsub.Receive(ctx); err != nil {
		return err
	}
	b.done = make(chan struct{})

	go func() {
		defer close(b.done)
		for msg := range b.pubsub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn("malformed invalidation event", zap.Error(err))
				continue
			}
			b.dispatch(event)
		}
	}()
	return nil
}

// Stop closes the subscription and waits for the receive loop to drain.
func (b *RedisBus) Stop(ctx context.Context) error {
	if b.pubsub == nil {
		return nil
	}
	err := b.pubsub.Close()
	select {
	case <-b.done:
	case <-ctx.Done():
	}
	return err
}

func (b *RedisBus) dispatch(event Event) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}
