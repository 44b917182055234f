// Package amqp runs the bus on a RabbitMQ topic exchange.
//
// Every process declares one exclusive, auto-deleted queue and binds it to
// the exchange once per subscription pattern. Topics become routing keys by
// replacing "/" with "." and "+" with "*"; the original topic travels in the
// "topic" message header.
package amqp

import (
	"context"
	"crypto/tls"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/Raytar/labhelp/bus"
)

const (
	DefaultExchange = "labhelp"
	topicHeader     = "topic"
	confirmBuffer   = 16
)

// Config wraps RabbitMQ related configuration
type Config struct {
	URL       string
	Exchange  string
	TLSConfig *tls.Config
}

type subscription struct {
	pattern string
	handler bus.Handler
}

// Broker represents an AMQP broker
type Broker struct {
	cfg Config
	log *logrus.Entry

	conn     *amqp.Connection
	pub      *amqp.Channel
	pubMu    sync.Mutex
	confirms <-chan amqp.Confirmation

	sub   *amqp.Channel
	queue amqp.Queue

	subsMu sync.RWMutex
	subs   []subscription

	consumingWG sync.WaitGroup
}

// New connects to the broker, declares the exchange and the process queue,
// and starts consuming.
func New(cfg Config, log *logrus.Logger) (*Broker, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	b := &Broker{cfg: cfg, log: log.WithField("bus", "amqp")}

	// From amqp docs: DialTLS will use the provided tls.Config when it encounters an amqps:// scheme
	// and will dial a plain connection when it encounters an amqp:// scheme.
	conn, err := amqp.DialTLS(cfg.URL, cfg.TLSConfig)
	if err != nil {
		return nil, errors.Wrap(err, "Dial error")
	}
	b.conn = conn

	if err := b.openPublisher(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	deliveries, err := b.openConsumer()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if err, ok := <-closed; ok && err != nil {
			b.log.Errorln("Connection closed:", err)
		}
	}()

	b.consumingWG.Add(1)
	go b.consume(deliveries)
	return b, nil
}

func (b *Broker) openPublisher() (err error) {
	b.pub, err = b.conn.Channel()
	if err != nil {
		return errors.Wrap(err, "Open channel error")
	}
	if err = b.pub.ExchangeDeclare(
		b.cfg.Exchange, // name of the exchange
		"topic",        // type
		true,           // durable
		false,          // delete when complete
		false,          // internal
		false,          // noWait
		nil,            // arguments
	); err != nil {
		return errors.Wrap(err, "Exchange declare error")
	}
	// Enable publish confirmations
	if err = b.pub.Confirm(false); err != nil {
		return errors.Wrap(err, "Channel could not be put into confirm mode")
	}
	b.confirms = b.pub.NotifyPublish(make(chan amqp.Confirmation, confirmBuffer))
	return nil
}

func (b *Broker) openConsumer() (<-chan amqp.Delivery, error) {
	var err error
	b.sub, err = b.conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "Open channel error")
	}
	b.queue, err = b.sub.QueueDeclare(
		"labhelp."+uuid.NewString(), // name
		false,                       // durable
		true,                        // delete when unused
		true,                        // exclusive
		false,                       // no-wait
		nil,                         // arguments
	)
	if err != nil {
		return nil, errors.Wrap(err, "Queue declare error")
	}
	deliveries, err := b.sub.Consume(
		b.queue.Name,     // queue
		uuid.NewString(), // consumer tag
		false,            // auto-ack
		true,             // exclusive
		false,            // no-local
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		return nil, errors.Wrap(err, "Queue consume error")
	}
	return deliveries, nil
}

// RoutingKey converts a topic or subscription pattern to an AMQP routing key.
func RoutingKey(topic string) string {
	levels := strings.Split(topic, "/")
	for i, level := range levels {
		if level == "+" {
			levels[i] = "*"
		}
	}
	return strings.Join(levels, ".")
}

func topicOf(d amqp.Delivery) string {
	if t, ok := d.Headers[topicHeader].(string); ok {
		return t
	}
	return strings.ReplaceAll(d.RoutingKey, ".", "/")
}

func (b *Broker) consume(deliveries <-chan amqp.Delivery) {
	defer b.consumingWG.Done()
	for d := range deliveries {
		topic := topicOf(d)
		b.subsMu.RLock()
		for _, s := range b.subs {
			if bus.Match(s.pattern, topic) {
				s.handler(topic, d.Body)
			}
		}
		b.subsMu.RUnlock()
		if err := d.Ack(false); err != nil {
			b.log.Errorln("Failed to ack delivery:", err)
		}
	}
}

// Subscribe binds the process queue to pattern and registers h.
func (b *Broker) Subscribe(ctx context.Context, pattern string, h bus.Handler) error {
	if err := b.sub.QueueBind(
		b.queue.Name,        // name of the queue
		RoutingKey(pattern), // binding key
		b.cfg.Exchange,      // source exchange
		false,               // noWait
		nil,                 // arguments
	); err != nil {
		return errors.Wrapf(err, "Queue bind error for %s", pattern)
	}
	b.subsMu.Lock()
	b.subs = append(b.subs, subscription{pattern: pattern, handler: h})
	b.subsMu.Unlock()
	return nil
}

// Publish sends payload to topic and waits for the broker's confirmation.
func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) error {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	tag := b.pub.GetNextPublishSeqNo()
	if err := b.pub.PublishWithContext(ctx,
		b.cfg.Exchange,    // exchange name
		RoutingKey(topic), // routing key
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			Headers:      amqp.Table{topicHeader: topic},
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Transient,
		},
	); err != nil {
		return errors.Wrapf(err, "Failed to publish to %s", topic)
	}
	return awaitConfirm(ctx, b.confirms, tag)
}

// awaitConfirm waits for the confirmation of delivery tag. Confirmations of
// earlier publishes that gave up waiting are skipped.
func awaitConfirm(ctx context.Context, confirms <-chan amqp.Confirmation, tag uint64) error {
	for {
		select {
		case confirmed, ok := <-confirms:
			if !ok {
				return bus.ErrClosed
			}
			if confirmed.DeliveryTag < tag {
				continue
			}
			if !confirmed.Ack {
				return errors.Errorf("Failed delivery of delivery tag: %v", confirmed.DeliveryTag)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close closes both channels and the connection.
func (b *Broker) Close() error {
	if err := b.sub.Close(); err != nil {
		b.log.Errorln("Failed to close consumer channel:", err)
	}
	if err := b.pub.Close(); err != nil {
		b.log.Errorln("Failed to close publisher channel:", err)
	}
	err := b.conn.Close()
	b.consumingWG.Wait()
	if err != nil {
		return errors.Wrap(err, "Close connection error")
	}
	return nil
}
