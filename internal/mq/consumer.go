package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler обрабатывает одно событие. Ошибка — сообщение выбрасывается.
type Handler func(ctx context.Context, msg *Message) error

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	// Declare объявляет очередь и возвращает её имя (см. DeclareTailQueue).
	// Вызывается после каждого переподключения. Обязателен.
	Declare func(ch *amqp.Channel) (string, error)

	Handler Handler

	// Prefetch — сколько сообщений брокер отдаёт без ack (default: 1).
	Prefetch int
}

// Consumer читает события из очереди, которую объявляет сам.
type Consumer struct {
	conn   *Connection
	logger *slog.Logger
	cfg    ConsumerConfig
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	return &Consumer{conn: conn, logger: logger, cfg: cfg}
}

// Start читает сообщения до отмены ctx, переживая переподключения.
func (c *Consumer) Start(ctx context.Context) error {
	if c.cfg.Declare == nil || c.cfg.Handler == nil {
		return errors.New("consumer: Declare and Handler are required")
	}

	for {
		queue, deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to subscribe", "error", err)
		} else {
			c.logger.Info("consumer started", "queue", queue)
			for raw := range c.until(ctx, deliveries) {
				c.ack(raw, c.process(ctx, raw.Body))
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, waiting for reconnect", "queue", queue)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

// subscribe объявляет очередь и начинает потребление.
func (c *Consumer) subscribe() (string, <-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return "", nil, errNoChannel
	}

	queue, err := c.cfg.Declare(ch)
	if err != nil {
		return "", nil, err
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return "", nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return "", nil, fmt.Errorf("consume: %w", err)
	}
	return queue, deliveries, nil
}

// until пересылает доставки, пока не отменён ctx и канал открыт.
func (c *Consumer) until(ctx context.Context, deliveries <-chan amqp.Delivery) <-chan amqp.Delivery {
	out := make(chan amqp.Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// process разбирает тело и вызывает Handler. false — сообщение выбросить.
func (c *Consumer) process(ctx context.Context, body []byte) bool {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message", "error", err, "body", string(body))
		return false
	}

	if err := c.cfg.Handler(ctx, &msg); err != nil {
		c.logger.Error("handler failed", "message_id", msg.ID, "type", msg.Type, "error", err)
		return false
	}
	return true
}

// ack подтверждает сообщение или выбрасывает его без возврата в очередь:
// событие уже произошло, повтор ничего не исправит.
func (c *Consumer) ack(raw amqp.Delivery, ok bool) {
	var err error
	if ok {
		err = raw.Ack(false)
	} else {
		err = raw.Nack(false, false)
	}
	if err != nil {
		c.logger.Warn("failed to ack message", "error", err)
	}
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// После json.Unmarshal в Message payload — map[string]any
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}
	return result, nil
}
