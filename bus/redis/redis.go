// Package redis runs the bus on Redis PUBLISH/PSUBSCRIBE.
//
// Topics are used as channel names unchanged. Subscription patterns are
// widened to Redis globs and every delivery is filtered again with bus.Match,
// since a glob "*" also crosses "/" boundaries. Redis pub/sub is at-most-once:
// a subscriber that is not connected when a message is published never sees it.
package redis

import (
	"context"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Raytar/labhelp/bus"
)

type subscription struct {
	pattern string
	handler bus.Handler
}

// Broker represents a Redis pub/sub broker
type Broker struct {
	rclient redis.UniversalClient
	pubsub  *redis.PubSub
	log     *logrus.Entry

	mu     sync.RWMutex
	subs   map[string][]subscription // keyed by glob
	closed bool

	consumingWG sync.WaitGroup
}

// splitPassword strips the password from the first address. addrs itself is
// left untouched.
func splitPassword(addrs []string) (password string, out []string) {
	out = append([]string(nil), addrs...)
	parts := strings.Split(out[0], "@")
	if len(parts) >= 2 {
		password = strings.Join(parts[:len(parts)-1], "@")
		out[0] = parts[len(parts)-1]
	}
	return password, out
}

// New connects to the Redis server(s) at addrs.
// An address of the form "password@host:port" carries a password.
func New(ctx context.Context, addrs []string, db int, log *logrus.Logger) (*Broker, error) {
	if len(addrs) == 0 {
		return nil, errors.New("no Redis address")
	}
	password, addrs := splitPassword(addrs)

	rclient := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    addrs,
		DB:       db,
		Password: password,
	})
	// Ping the server to make sure connection is live
	if err := rclient.Ping(ctx).Err(); err != nil {
		_ = rclient.Close()
		return nil, errors.Wrap(err, "Redis ping error")
	}

	b := &Broker{
		rclient: rclient,
		pubsub:  rclient.PSubscribe(ctx),
		log:     log.WithField("bus", "redis"),
		subs:    make(map[string][]subscription),
	}
	b.consumingWG.Add(1)
	go b.consume(b.pubsub.Channel())
	return b, nil
}

// Glob converts a subscription pattern to a Redis glob that matches at least
// every topic the pattern matches.
func Glob(pattern string) string {
	if pattern == "#" {
		return "*"
	}
	if strings.HasSuffix(pattern, "/#") {
		// "a/#" also matches "a" itself
		pattern = strings.TrimSuffix(pattern, "/#") + "*"
	}
	levels := strings.Split(pattern, "/")
	for i, level := range levels {
		if level == "+" {
			levels[i] = "*"
		}
	}
	return strings.Join(levels, "/")
}

func (b *Broker) consume(msgs <-chan *redis.Message) {
	defer b.consumingWG.Done()
	for msg := range msgs {
		b.mu.RLock()
		subs := b.subs[msg.Pattern]
		b.mu.RUnlock()
		for _, s := range subs {
			if bus.Match(s.pattern, msg.Channel) {
				s.handler(msg.Channel, []byte(msg.Payload))
			}
		}
	}
}

// Subscribe registers h for pattern until the broker is closed.
func (b *Broker) Subscribe(ctx context.Context, pattern string, h bus.Handler) error {
	glob := Glob(pattern)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return bus.ErrClosed
	}
	_, known := b.subs[glob]
	b.subs[glob] = append(b.subs[glob], subscription{pattern: pattern, handler: h})
	b.mu.Unlock()

	if known {
		return nil
	}
	if err := b.pubsub.PSubscribe(ctx, glob); err != nil {
		return errors.Wrapf(err, "PSubscribe error for %s", pattern)
	}
	return nil
}

// Publish sends payload to the channel named topic.
func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return bus.ErrClosed
	}
	if err := b.rclient.Publish(ctx, topic, payload).Err(); err != nil {
		return errors.Wrapf(err, "Failed to publish to %s", topic)
	}
	return nil
}

// Close unsubscribes and closes the client.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if err := b.pubsub.Close(); err != nil {
		b.log.Errorln("Failed to close subscription:", err)
	}
	b.consumingWG.Wait()
	if err := b.rclient.Close(); err != nil {
		return errors.Wrap(err, "Close client error")
	}
	return nil
}
