package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oz-workspace/api/internal/pkg/apperr"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// HandlerFunc processes one message body.
type HandlerFunc func(ctx context.Context, body []byte) error

type ConsumerConfig struct {
	Queue      string
	Prefetch   int
	RetryDelay time.Duration
}

// Consumer delivers messages from a durable queue to a handler with manual acks.
type Consumer struct {
	conn    *amqp.Connection
	cfg     ConsumerConfig
	handler HandlerFunc
	log     *zap.Logger
}

func NewConsumer(conn *amqp.Connection, cfg ConsumerConfig, handler HandlerFunc, log *zap.Logger) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Consumer{conn: conn, cfg: cfg, handler: handler, log: log}
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.cfg.Queue, err)
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}
	c.log.Sugar().Infow("queue consumer started", "queue", c.cfg.Queue, "prefetch", c.cfg.Prefetch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("delivery channel closed")
			}
			err := c.handler(ctx, d.Body)
			if requeue := settle(d, err); requeue {
				c.log.Sugar().Warnw("message requeued", "queue", c.cfg.Queue, "err", err)
				select {
				case <-ctx.Done():
				case <-time.After(c.cfg.RetryDelay):
				}
			} else if err != nil {
				c.log.Sugar().Warnw("message dropped", "queue", c.cfg.Queue, "err", err)
			}
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// settle acks or nacks d depending on err and reports whether it was requeued.
// Only infrastructure failures are retried; rejected input is dropped.
func settle(d acknowledger, err error) bool {
	if err == nil || !Retryable(err) {
		_ = d.Ack(false)
		return false
	}
	_ = d.Nack(false, true)
	return true
}

// Retryable reports whether a handler error may succeed on redelivery.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	e, ok := apperr.As(err)
	return !ok || e.Kind == apperr.KindInfra
}
