// Package bus is the publish/subscribe transport the lab session runs on.
//
// Topics are slash separated. Subscription patterns may use the MQTT
// wildcards "+" (exactly one level) and "#" (any number of trailing levels).
package bus

import (
	"context"
	"errors"
	"strings"
)

var ErrClosed = errors.New("bus closed")

// Handler receives one delivered message. Handlers are called from the
// transport's delivery goroutine and must not block.
type Handler func(topic string, payload []byte)

// Bus publishes messages to topics and delivers messages to subscribers.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, pattern string, h Handler) error
	Close() error
}

// Match reports whether topic matches the subscription pattern.
func Match(pattern, topic string) bool {
	p := strings.Split(pattern, "/")
	t := strings.Split(topic, "/")
	for i, level := range p {
		switch {
		case level == "#":
			return i == len(p)-1
		case i >= len(t):
			return false
		case level != "+" && level != t[i]:
			return false
		}
	}
	return len(p) == len(t)
}
