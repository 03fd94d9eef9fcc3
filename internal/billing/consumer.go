package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"leadledger_backend/platform/config"
	"leadledger_backend/platform/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DLXName is the dead letter exchange shared by every queue.
	DLXName       = "ex.dlx"
	RoutingKey    = "billing.event"
	deadLetterKey = "billing.dead"
	prefetch      = 10
)

// Handler applies one decoded event.
type Handler interface {
	Dispatch(ctx context.Context, e Event) error
}

// Consumer reads billing events with manual acknowledgement. Malformed and
// permanently failing events go to the dead letter queue; transient failures
// are requeued once.
type Consumer struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	queue   string
	handler Handler
	log     *logger.Logger
}

func NewConsumer(cfg config.BillingConfig, handler Handler, log *logger.Logger) (*Consumer, error) {
	if cfg.GetAMQPURL() == "" {
		return nil, errors.New("amqp url not configured")
	}

	conn, err := amqp.Dial(cfg.GetAMQPURL())
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	if err := SetupTopology(ch, cfg.GetBillingExchange(), cfg.GetBillingQueue()); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Consumer{conn: conn, ch: ch, queue: cfg.GetBillingQueue(), handler: handler, log: log}, nil
}

// DLQName returns the dead letter queue paired with queue.
func DLQName(queue string) string {
	return queue + ".dlq"
}

// SetupTopology declares the billing exchange and queue plus the dead letter
// exchange and queue they route rejected messages to.
func SetupTopology(ch *amqp.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlx: %w", err)
	}
	if _, err := ch.QueueDeclare(DLQName(queue), true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlq: %w", err)
	}
	if err := ch.QueueBind(DLQName(queue), deadLetterKey, DLXName, false, nil); err != nil {
		return fmt.Errorf("bind dlq: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": deadLetterKey,
	}
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, RoutingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Run consumes until ctx is done or the connection drops. A dropped
// connection is returned as an error so the caller can reconnect.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}
	closed := c.conn.NotifyClose(make(chan *amqp.Error, 1))

	c.log.Info("billing consumer waiting for events", "queue", c.queue)
	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr := <-closed:
			if amqpErr == nil {
				return errors.New("rabbitmq connection closed")
			}
			return fmt.Errorf("rabbitmq connection closed: %w", amqpErr)
		case d, ok := <-msgs:
			if !ok {
				return errors.New("billing delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	handleDelivery(ctx, c.handler, c.log, d)
}

func handleDelivery(ctx context.Context, handler Handler, log *logger.Logger, d amqp.Delivery) {
	var e Event
	if err := json.Unmarshal(d.Body, &e); err != nil {
		log.Warn("billing event is not valid json", "error", err, "message_id", d.MessageId)
		_ = d.Nack(false, false)
		return
	}

	err := handler.Dispatch(ctx, e)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrPermanent):
		log.Warn("billing event dead-lettered", "event_id", e.ID, "type", e.Type, "error", err)
		_ = d.Nack(false, false)
	case d.Redelivered:
		log.Error("billing event failed after redelivery", "event_id", e.ID, "type", e.Type, "error", err)
		_ = d.Nack(false, false)
	default:
		log.Warn("billing event failed, requeueing", "event_id", e.ID, "type", e.Type, "error", err)
		_ = d.Nack(false, true)
	}
}
