package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultExchange is the topic exchange events are published to.
const DefaultExchange = "hotel.events"

// handshakeTimeout caps the TCP connect and AMQP handshake when the caller's
// context has no earlier deadline.
const handshakeTimeout = 10 * time.Second

// Publisher sends events to a durable topic exchange. Each publish opens its
// own connection so a broker outage never poisons a long-lived channel; the
// caller gets the error and decides whether it matters.
type Publisher struct {
	url      string
	exchange string
	log      *zap.Logger
}

func NewPublisher(url, exchange string, log *zap.Logger) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, exchange: exchange, log: log}
}

// Emit wraps detail in an Envelope and publishes it with a routing key
// derived from detailType. It returns once the broker has the message.
func (p *Publisher) Emit(ctx context.Context, detailType, source string, detail interface{}) error {
	env, err := NewEnvelope(detailType, source, detail)
	if err != nil {
		return err
	}
	return p.Publish(ctx, env)
}

func (p *Publisher) Publish(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	conn, err := dial(ctx, p.url)
	if err != nil {
		p.log.Warn("rabbitmq dial failed", zap.Error(err))
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()
	// channel open and exchange declare have no ctx of their own
	release := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer release()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareExchange(ch, p.exchange); err != nil {
		return err
	}

	key := RoutingKey(env.DetailType)
	err = ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Type:         env.DetailType,
		AppId:        env.Source,
		Timestamp:    env.Time,
		Body:         body,
	})
	if err != nil {
		p.log.Warn("rabbitmq publish failed", zap.String("routing_key", key), zap.Error(err))
		return fmt.Errorf("publish %s: %w", key, err)
	}
	p.log.Debug("event published", zap.String("id", env.ID), zap.String("routing_key", key))
	return nil
}

// dial opens a connection whose connect and handshake end no later than ctx.
// amqp clears the socket deadline once the handshake completes.
func dial(ctx context.Context, url string) (*amqp.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		mu   sync.Mutex
		sock net.Conn
	)
	stop := context.AfterFunc(ctx, func() {
		// unblock a handshake stuck on a silent broker
		mu.Lock()
		defer mu.Unlock()
		if sock != nil {
			_ = sock.SetDeadline(time.Now())
		}
	})
	defer stop()

	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			deadline := time.Now().Add(handshakeTimeout)
			if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
				deadline = d
			}
			d := net.Dialer{Deadline: deadline}
			c, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if err := c.SetDeadline(deadline); err != nil {
				_ = c.Close()
				return nil, err
			}
			mu.Lock()
			sock = c
			if ctx.Err() != nil { // cancelled before sock was visible to AfterFunc
				_ = c.SetDeadline(time.Now())
			}
			mu.Unlock()
			return c, nil
		},
	})
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, fmt.Errorf("%w: %v", cerr, err)
		}
		// the socket deadline can fire a moment before ctx's own timer
		if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
			return nil, fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return nil, err
	}
	return conn, nil
}

func declareExchange(ch *amqp.Channel, name string) error {
	if err := ch.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	return nil
}
