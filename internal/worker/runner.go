package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/bgjob/internal/domain"
)

// Sleeper ждёт d перед следующей попыткой.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext — Sleeper по умолчанию: ожидание с учётом context.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Runner выполняет job с ограниченным числом повторов.
//
// Попытки строго последовательны: следующая начинается только после
// неудачи предыдущей и паузы RetryDelay.
type Runner struct {
	invoker  Invoker
	recorder Recorder
	sleep    Sleeper
	logger   *slog.Logger
	now      func() time.Time
}

// RunnerConfig — конфигурация Runner.
type RunnerConfig struct {
	// Invoker — обязателен.
	Invoker Invoker

	// Recorder — получатель записей о попытках (если nil — LogRecorder).
	Recorder Recorder

	// Sleeper — ожидание между попытками (если nil — SleepContext).
	Sleeper Sleeper

	// Logger
	Logger *slog.Logger
}

// NewRunner создаёт Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = NewLogRecorder(logger)
	}

	sleep := cfg.Sleeper
	if sleep == nil {
		sleep = SleepContext
	}

	return &Runner{
		invoker:  cfg.Invoker,
		recorder: recorder,
		sleep:    sleep,
		logger:   logger,
		now:      time.Now,
	}
}

// Execute выполняет req согласно policy.
//
// Успех на любой попытке сразу возвращает результат. После исчерпания
// бюджета (попыток больше, чем MaxRetries) возвращается
// *domain.JobError вида KindRetriesExhausted, оборачивающая последнюю ошибку.
// Ошибка с Retryable=false завершает job сразу и возвращается как есть.
func (r *Runner) Execute(ctx context.Context, req *domain.JobRequest, policy domain.RetryPolicy) (any, error) {
	result, _, err := r.execute(ctx, req, policy)
	return result, err
}

// execute — цикл попыток. Возвращает также номер последней попытки.
func (r *Runner) execute(ctx context.Context, req *domain.JobRequest, policy domain.RetryPolicy) (any, int, error) {
	if err := policy.Validate(); err != nil {
		return nil, 0, fmt.Errorf("invalid retry policy: %w", err)
	}

	for attempt := 1; ; attempt++ {
		start := r.now()
		result, err := r.invoker.Invoke(ctx, req.Target, req.Operation, req.Args)

		rec := &domain.AttemptRecord{
			JobID:     req.ID,
			Attempt:   attempt,
			Target:    req.Target,
			Operation: req.Operation,
			Args:      req.Args,
			Duration:  r.now().Sub(start),
			Timestamp: r.now(),
		}

		// Успех
		if err == nil {
			rec.Outcome = domain.OutcomeSucceeded
			rec.Result = result
			r.recorder.RecordAttempt(ctx, rec)
			return result, attempt, nil
		}

		retryable := domain.IsRetryable(err)
		canRetry := retryable && policy.CanRetry(attempt)

		rec.Outcome = domain.OutcomeFailed
		rec.Error = err.Error()
		rec.Retryable = canRetry
		r.recorder.RecordAttempt(ctx, rec)

		if !canRetry {
			r.recordFailure(ctx, req, policy, attempt, err)
			if !retryable {
				return nil, attempt, err
			}
			return nil, attempt, domain.NewExhaustedError(req.Target, req.Operation, attempt, err)
		}

		r.logger.Debug("retrying job",
			"job_id", req.ID,
			"attempt", attempt,
			"next_attempt", attempt+1,
			"max_attempts", policy.TotalAttempts(),
			"delay", policy.RetryDelay,
		)

		// Ждём перед следующей попыткой
		if waitErr := r.sleep(ctx, policy.RetryDelay); waitErr != nil {
			interrupted := fmt.Errorf("job %s.%s interrupted after %d attempts: %w (last error: %v)",
				req.Target, req.Operation, attempt, waitErr, err)
			r.recordFailure(ctx, req, policy, attempt, interrupted)
			return nil, attempt, interrupted
		}
	}
}

// recordFailure отправляет финальную запись о неудаче.
func (r *Runner) recordFailure(ctx context.Context, req *domain.JobRequest, policy domain.RetryPolicy, attempts int, err error) {
	r.recorder.RecordFailure(ctx, &domain.FailureRecord{
		JobID:      req.ID,
		Target:     req.Target,
		Operation:  req.Operation,
		Args:       req.Args,
		Attempts:   attempts,
		MaxRetries: policy.MaxRetries,
		Error:      err.Error(),
		Timestamp:  r.now(),
	})
}
