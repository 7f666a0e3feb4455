package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/bgjob/internal/config"
	"github.com/shaiso/bgjob/internal/mq"
	"github.com/shaiso/bgjob/internal/telemetry"
	"github.com/shaiso/bgjob/internal/worker"
)

// pushTimeout ограничивает отправку метрик после завершения job.
const pushTimeout = 5 * time.Second

// NewRunJobCmd создаёт команду run-job.
//
// Выполняет операцию target'а в текущем процессе с повторами по политике
// из конфигурации. Её запускает dispatch, но можно вызвать и вручную.
func NewRunJobCmd(env *Env) *cobra.Command {
	var jobID string

	cmd := &cobra.Command{
		Use:   "run-job TARGET OPERATION [ARGS_JSON]",
		Short: "Execute a job in the current process",
		Long: `Execute OPERATION of TARGET with positional arguments given as a JSON array.
The job is retried on failure according to retries and retry_delay.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.Config()
			if err != nil {
				return err
			}

			id := uuid.New()
			if jobID != "" {
				if id, err = uuid.Parse(jobID); err != nil {
					return fmt.Errorf("invalid --job-id: %w", err)
				}
			}

			rawArgs := ""
			if len(args) == 3 {
				rawArgs = args[2]
			}

			return runJob(cmd.Context(), env, cfg, id, args[0], args[1], rawArgs)
		},
	}

	cmd.Flags().StringVar(&jobID, "job-id", "", "Job ID (assigned by dispatch)")

	return cmd
}

func runJob(ctx context.Context, env *Env, cfg *config.Config, id uuid.UUID, target, operation, rawArgs string) error {
	out := env.Output()
	logger := telemetry.WithJobID(env.Logger(), id.String())

	var in infra
	in.connectDB(ctx, cfg, logger)
	in.connectMQ(ctx, cfg, "run-job", logger)
	defer in.Close()

	metrics := telemetry.NewJobMetrics()

	recorders := worker.MultiRecorder{worker.NewLogRecorder(logger), metrics}
	var store worker.JobStore
	if in.jobs != nil {
		store = in.jobs
		recorders = append(recorders, worker.NewStoreRecorder(in.attempts, logger))
	}
	if in.publisher != nil {
		recorders = append(recorders, mq.NewEventRecorder(in.publisher, logger))
	}

	dispatcher := worker.New(worker.Config{
		Validator: env.Validator(cfg),
		Runner: worker.NewRunner(worker.RunnerConfig{
			Invoker:  worker.NewInvoker(env.Registry),
			Recorder: recorders,
			Logger:   logger,
		}),
		Policy: cfg.RetryPolicy(),
		Store:  store,
		Logger: logger,
	})

	result, runErr := dispatcher.RunWithID(ctx, id, target, operation, rawArgs)

	pushMetrics(cfg, metrics, id, logger)

	if runErr != nil {
		out.Error("Job execution failed: " + runErr.Error())
		return &ExitError{Code: 1, Err: runErr}
	}

	out.Success("Job executed successfully!")
	if out.IsJSON() {
		out.JSON(map[string]any{"job_id": id, "result": result})
	}
	return nil
}

// pushMetrics отправляет метрики в Pushgateway, если он настроен.
// Не использует ctx job: метрики нужны и после отмены.
func pushMetrics(cfg *config.Config, metrics *telemetry.JobMetrics, id uuid.UUID, logger *slog.Logger) {
	if cfg.PushgatewayURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	if err := metrics.Push(ctx, cfg.PushgatewayURL, id.String()); err != nil {
		logger.Warn("failed to push metrics", "error", err)
	}
}
