package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one decoded event. A returned error rejects the message
// without requeueing it.
type Handler func(ctx context.Context, env Envelope) error

// Consumer binds a durable queue to the event exchange and feeds every
// delivery to a Handler.
type Consumer struct {
	URL      string      // amqp:// connection string
	Exchange string      // topic exchange, declared if missing
	Queue    string      // durable queue owned by this consumer
	Keys     []string    // routing keys bound to Queue
	Prefetch int         // unacked deliveries in flight; 50 when zero
	Handle   Handler     // called once per delivery
	Log      *zap.Logger // nil means no logging
}

// Run connects and consumes until ctx is cancelled, reconnecting with
// exponential backoff capped at 30s whenever the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	if c.Handle == nil {
		return errors.New("consumer has no handler")
	}
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	backoff := time.Second // doubled after each failed dial
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A shutdown signal also interrupts a stalled handshake.
		conn, err := dial(ctx, c.URL)
		if err != nil {
			log.Warn("consumer dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // connected: reset

		// consume blocks until the channel dies or ctx ends.
		err = c.consume(ctx, conn, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	prefetch := c.Prefetch
	if prefetch <= 0 {
		prefetch = 50
	}
	// Bound the number of unacked messages pushed to us.
	if err := ch.Qos(prefetch, 0, false); err != nil {
		log.Warn("set qos failed", zap.Error(err))
	}
	if err := declareExchange(ch, c.Exchange); err != nil {
		return err
	}
	// durable, not auto-deleted, not exclusive: survives worker restarts
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, key := range c.Keys {
		if err := ch.QueueBind(c.Queue, key, c.Exchange, false, nil); err != nil {
			return fmt.Errorf("queue bind %s: %w", key, err)
		}
	}

	// Manual acks: a message is only gone once Handle succeeded.
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Info("consuming", zap.String("queue", c.Queue), zap.Strings("keys", c.Keys))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed") // broker went away
			}
			if err := c.deliver(ctx, d.Body); err != nil {
				log.Error("handle message failed", zap.String("message_id", d.MessageId), zap.Error(err))
				// Do not requeue: a poison message would loop forever.
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// deliver decodes the envelope and runs the handler.
func (c *Consumer) deliver(ctx context.Context, body []byte) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return c.Handle(ctx, env)
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
