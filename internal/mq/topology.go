package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// ExchangeJobs — topic exchange событий job.
const ExchangeJobs Exchange = "bgjob.jobs"

// Queues — durable очереди итогов job.
const (
	QueueJobsSucceeded Queue = "jobs.succeeded"
	QueueJobsFailed    Queue = "jobs.failed"
)

// Routing keys.
const (
	RoutingKeyAttemptSucceeded RoutingKey = "job.attempt.succeeded"
	RoutingKeyAttemptFailed    RoutingKey = "job.attempt.failed"
	RoutingKeySucceeded        RoutingKey = "job.succeeded"
	RoutingKeyFailed           RoutingKey = "job.failed"

	// RoutingKeyAll — все события job.
	RoutingKeyAll RoutingKey = "job.#"
)

// maxQueueLength ограничивает durable очереди без потребителя.
const maxQueueLength = 10000

// SetupTopology объявляет exchange, очереди и привязки.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := ch.ExchangeDeclare(
			string(ExchangeJobs), // name
			"topic",              // type
			true,                 // durable
			false,                // auto-deleted
			false,                // internal
			false,                // no-wait
			nil,                  // arguments
		); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeJobs, err)
		}

		return declareQueues(ch)
	})
}

// declareQueues создаёт durable очереди итогов и привязывает их.
func declareQueues(ch *amqp.Channel) error {
	args := amqp.Table{
		"x-max-length": int32(maxQueueLength),
		"x-overflow":   "drop-head",
	}

	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
	}{
		// jobs.succeeded — для потребителей результатов
		{QueueJobsSucceeded, RoutingKeySucceeded},

		// jobs.failed — ручной разбор неудачных job
		{QueueJobsFailed, RoutingKeyFailed},
	}

	for _, b := range bindings {
		if _, err := ch.QueueDeclare(
			string(b.queue), // name
			true,            // durable
			false,           // delete when unused
			false,           // exclusive
			false,           // no-wait
			args,            // arguments
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.queue, err)
		}

		if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(ExchangeJobs), false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, ExchangeJobs, err)
		}
	}

	return nil
}

// DeclareTailQueue объявляет временную очередь, получающую события по pattern.
//
// Очередь эксклюзивна и удаляется вместе с каналом, поэтому
// вызывается заново после каждого переподключения.
func DeclareTailQueue(pattern RoutingKey) func(ch *amqp.Channel) (string, error) {
	if pattern == "" {
		pattern = RoutingKeyAll
	}

	return func(ch *amqp.Channel) (string, error) {
		q, err := ch.QueueDeclare(
			"",    // name (server-generated)
			false, // durable
			true,  // delete when unused
			true,  // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return "", fmt.Errorf("declare tail queue: %w", err)
		}

		if err := ch.QueueBind(q.Name, string(pattern), string(ExchangeJobs), false, nil); err != nil {
			return "", fmt.Errorf("bind tail queue: %w", err)
		}
		return q.Name, nil
	}
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  bgjob RabbitMQ Topology:

    bgjob.jobs (topic)
    ├── jobs.succeeded [routing: job.succeeded]
    ├── jobs.failed    [routing: job.failed]
    │       Manual processing
    └── (tail queue)   [routing: job.#]
            Consumer: bgjob events
  `
}
