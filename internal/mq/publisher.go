package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/bgjob/internal/domain"
)

// MessageType — тип сообщения.
type MessageType string

// Типы сообщений.
const (
	MessageTypeJobAttempt   MessageType = "job.attempt"
	MessageTypeJobSucceeded MessageType = "job.succeeded"
	MessageTypeJobFailed    MessageType = "job.failed"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// JobEventPayload — payload событий job.
type JobEventPayload struct {
	JobID     uuid.UUID `json:"job_id"`
	Target    string    `json:"target"`
	Operation string    `json:"operation"`
	Args      []any     `json:"args"`

	// Attempt — номер попытки (для job.attempt и job.succeeded).
	Attempt int `json:"attempt,omitempty"`

	// Attempts — сколько попыток сделано (для job.failed).
	Attempts int `json:"attempts,omitempty"`

	Outcome    domain.Outcome `json:"outcome,omitempty"`
	Result     any            `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// AttemptPayload формирует payload из записи о попытке.
func AttemptPayload(rec *domain.AttemptRecord) JobEventPayload {
	return JobEventPayload{
		JobID:      rec.JobID,
		Target:     rec.Target,
		Operation:  rec.Operation,
		Args:       rec.Args,
		Attempt:    rec.Attempt,
		Outcome:    rec.Outcome,
		Result:     rec.Result,
		Error:      rec.Error,
		DurationMs: rec.Duration.Milliseconds(),
	}
}

// FailurePayload формирует payload из записи о финальной неудаче.
func FailurePayload(rec *domain.FailureRecord) JobEventPayload {
	return JobEventPayload{
		JobID:     rec.JobID,
		Target:    rec.Target,
		Operation: rec.Operation,
		Args:      rec.Args,
		Attempts:  rec.Attempts,
		Outcome:   domain.OutcomeFailed,
		Error:     rec.Error,
	}
}
