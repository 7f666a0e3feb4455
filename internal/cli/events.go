package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/bgjob/internal/mq"
)

// NewEventsCmd создаёт команду events.
//
// Читает события job из RabbitMQ через временную очередь,
// не забирая сообщения из durable очередей.
func NewEventsCmd(env *Env) *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail job events from RabbitMQ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.Config()
			if err != nil {
				return err
			}
			if cfg.RabbitMQURL == "" {
				return errNoRabbitMQ
			}

			logger := env.Logger()
			out := env.Output()

			conn, err := mq.NewConnection(cfg.RabbitMQURL, "events", logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := mq.SetupTopology(cmd.Context(), conn); err != nil {
				return err
			}

			consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
				Declare:  mq.DeclareTailQueue(mq.RoutingKey(pattern)),
				Prefetch: 50,
				Handler: func(_ context.Context, msg *mq.Message) error {
					printEvent(out, msg)
					return nil
				},
			})

			err = consumer.Start(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", string(mq.RoutingKeyAll), "Routing key pattern (e.g. job.failed)")

	return cmd
}

// printEvent выводит одно событие строкой или JSON.
func printEvent(out *Output, msg *mq.Message) {
	if out.IsJSON() {
		out.JSON(msg)
		return
	}

	p, err := mq.ParsePayload[mq.JobEventPayload](msg)
	if err != nil {
		out.Line(fmt.Sprintf("%s  %s  <unreadable payload: %v>", msg.Timestamp.Format(time.RFC3339), msg.Type, err))
		return
	}

	attempt := p.Attempt
	if attempt == 0 {
		attempt = p.Attempts
	}

	line := fmt.Sprintf("%s  %-13s  %s  %s.%s  attempt=%s",
		msg.Timestamp.Local().Format(time.RFC3339), msg.Type, p.JobID, p.Target, p.Operation, strconv.Itoa(attempt))
	if p.Outcome != "" {
		line += "  outcome=" + string(p.Outcome)
	}
	if p.Error != "" {
		line += "  error=" + strconv.Quote(p.Error)
	}
	out.Line(line)
}
