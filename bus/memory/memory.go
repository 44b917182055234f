// Package memory is an in-process bus. Every publish is delivered to all
// matching subscribers before Publish returns, and all subscribers observe
// publishes in the same order.
package memory

import (
	"context"
	"sync"

	"github.com/Raytar/labhelp/bus"
)

type subscription struct {
	id      uint64
	pattern string
	handler bus.Handler
}

// Bus represents an in-memory broker
type Bus struct {
	mu     sync.Mutex
	subs   []subscription
	nextID uint64
	closed bool
}

// New creates new Bus instance
func New() *Bus {
	return &Bus{}
}

// Publish delivers payload to every subscriber whose pattern matches topic.
// Each subscriber gets its own copy of the payload.
func (b *Bus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return bus.ErrClosed
	}
	for _, s := range b.subs {
		if bus.Match(s.pattern, topic) {
			msg := make([]byte, len(payload))
			copy(msg, payload)
			s.handler(topic, msg)
		}
	}
	return nil
}

// Subscribe registers h for pattern until ctx is done or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, pattern string, h bus.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return bus.ErrClosed
	}
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, pattern: pattern, handler: h})
	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			b.unsubscribe(id)
		}()
	}
	return nil
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = nil
	return nil
}
