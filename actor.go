package labhelp

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Raytar/labhelp/bus"
	"github.com/Raytar/labhelp/protocol"
	"github.com/Raytar/labhelp/timer"
)

// actor runs closures one at a time on its own goroutine. Bus deliveries,
// timer expirations and API calls are all posted to the same mailbox, so the
// state they touch needs no locking. The mailbox is unbounded: posting never
// blocks, even from the actor's own loop.
type actor struct {
	slug   string
	role   string
	log    *logrus.Entry
	bus    bus.Bus
	topics protocol.Topics
	timers timer.Service

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	mailbox []func()
	closed  bool
	signal  chan struct{}
	stopped chan struct{}

	processed atomic.Int64
}

func newActor(cfg Config, slug, role string) *actor {
	ctx, cancel := context.WithCancel(context.Background())
	return &actor{
		slug:    slug,
		role:    role,
		log:     cfg.Log.WithFields(logrus.Fields{"actor": slug, "role": role}),
		bus:     cfg.Bus,
		topics:  cfg.Topics,
		timers:  cfg.Timers,
		ctx:     ctx,
		cancel:  cancel,
		signal:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

func (a *actor) run() {
	defer close(a.stopped)
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.signal:
		}
		for {
			fn, ok := a.next()
			if !ok {
				break
			}
			a.processed.Add(1)
			fn()
		}
	}
}

func (a *actor) next() (func(), bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.mailbox) == 0 || a.closed {
		return nil, false
	}
	fn := a.mailbox[0]
	a.mailbox[0] = nil
	a.mailbox = a.mailbox[1:]
	return fn, true
}

// post queues fn and reports whether the actor accepted it.
func (a *actor) post(fn func()) bool {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false
	}
	a.mailbox = append(a.mailbox, fn)
	a.mu.Unlock()

	select {
	case a.signal <- struct{}{}:
	default:
	}
	return true
}

// call runs fn on the actor and waits for its result.
func (a *actor) call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if !a.post(func() { result <- fn() }) {
		return ErrClosed
	}
	select {
	case err := <-result:
		return err
	case <-a.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pending is the number of closures waiting in the mailbox.
func (a *actor) pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.mailbox)
}

// subscribe routes deliveries on pattern through the mailbox.
func (a *actor) subscribe(pattern string, h bus.Handler) error {
	return a.bus.Subscribe(a.ctx, pattern, func(topic string, payload []byte) {
		a.post(func() { h(topic, payload) })
	})
}

// publish sends an envelope with the actor's slug as header. Failures are
// logged; nothing is retried.
func (a *actor) publish(topic string, cmd protocol.Command, body any) {
	payload, err := protocol.Encode(cmd, a.slug, body)
	if err != nil {
		a.log.Errorln("Failed to encode message:", err)
		return
	}
	a.log.Debugf("Publishing %s on %s", cmd, topic)
	if err := a.bus.Publish(a.ctx, topic, payload); err != nil {
		a.log.Errorf("Failed to publish %s on %s: %v", cmd, topic, err)
	}
}

// schedule runs fn on the actor after delay. Timer names are local to the actor.
func (a *actor) schedule(name string, delay time.Duration, fn func()) {
	a.timers.Schedule(a.timerID(name), delay, func() { a.post(fn) })
}

func (a *actor) cancelTimer(name string) {
	a.timers.Cancel(a.timerID(name))
}

func (a *actor) timerID(name string) string {
	return a.role + "/" + a.slug + "/" + name
}

func (a *actor) close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mailbox = nil
	a.mu.Unlock()
	a.cancel()
	<-a.stopped
}
