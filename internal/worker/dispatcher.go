package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shaiso/bgjob/internal/domain"
	"github.com/shaiso/bgjob/internal/registry"
)

// JobStore сохраняет состояние job (см. repo.JobRepo).
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
	Update(ctx context.Context, job *domain.Job) error
}

// Dispatcher — точка входа процесса run-job.
//
// Декодирует аргументы, проверяет запрос и выполняет его через Runner.
// Некорректные аргументы и отказ валидации завершают job без попыток.
type Dispatcher struct {
	validator *registry.Validator
	runner    *Runner
	policy    domain.RetryPolicy
	store     JobStore
	logger    *slog.Logger
}

// Config — конфигурация Dispatcher.
type Config struct {
	// Validator — обязателен.
	Validator *registry.Validator

	// Runner — обязателен.
	Runner *Runner

	// Policy — политика повторов для всех job процесса.
	Policy domain.RetryPolicy

	// Store — хранилище job (опционально; если nil — состояние не сохраняется).
	Store JobStore

	// Logger
	Logger *slog.Logger
}

// New создаёт Dispatcher.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		validator: cfg.Validator,
		runner:    cfg.Runner,
		policy:    cfg.Policy,
		store:     cfg.Store,
		logger:    logger,
	}
}

// Run выполняет операцию target'а с аргументами в виде JSON-массива.
func (d *Dispatcher) Run(ctx context.Context, target, operation, rawArgs string) (any, error) {
	return d.RunWithID(ctx, uuid.Nil, target, operation, rawArgs)
}

// RunWithID — как Run, но с ID job, выданным launcher'ом.
func (d *Dispatcher) RunWithID(ctx context.Context, id uuid.UUID, target, operation, rawArgs string) (any, error) {
	args, err := DecodeArgs(rawArgs)
	if err != nil {
		req := sanitizeRequest(domain.NewJobRequestWithID(id, target, operation, nil))
		jobErr := domain.NewJobError(domain.KindMalformedArguments, req.Target, req.Operation, err)
		d.reject(ctx, req, jobErr)
		return nil, jobErr
	}

	return d.RunRequest(ctx, domain.NewJobRequestWithID(id, target, operation, args))
}

// RunRequest проверяет и выполняет готовый JobRequest.
//
// Идентификаторы очищаются до проверки, и вызывается ровно то,
// что прошло проверку.
func (d *Dispatcher) RunRequest(ctx context.Context, req *domain.JobRequest) (any, error) {
	req = sanitizeRequest(req)

	if err := d.validator.Validate(req.Target, req.Operation); err != nil {
		d.reject(ctx, req, err)
		return nil, err
	}

	job := domain.NewJob(req, d.policy)
	job.MarkRunning()
	d.createJob(ctx, job)

	result, attempts, err := d.runner.execute(ctx, req, d.policy)

	job.MarkAttempt(attempts)
	if err != nil {
		job.MarkFailed(err.Error())
	} else {
		job.MarkSucceeded(result)
	}
	d.updateJob(ctx, job)

	return result, err
}

// reject фиксирует отказ: одна запись в лог и статус REJECTED.
func (d *Dispatcher) reject(ctx context.Context, req *domain.JobRequest, err error) {
	d.logger.Warn("job rejected",
		"job_id", req.ID,
		"target", req.Target,
		"operation", req.Operation,
		"error", err,
	)

	job := domain.NewJob(req, d.policy)
	job.MarkRejected(err.Error())
	d.createJob(ctx, job)
}

func (d *Dispatcher) createJob(ctx context.Context, job *domain.Job) {
	if d.store == nil {
		return
	}
	if err := d.store.Create(ctx, job); err != nil {
		// Не фатально — хранилище только для истории
		d.logger.Warn("failed to save job", "job_id", job.ID, "error", err)
	}
}

func (d *Dispatcher) updateJob(ctx context.Context, job *domain.Job) {
	if d.store == nil {
		return
	}
	if err := d.store.Update(ctx, job); err != nil {
		d.logger.Warn("failed to update job", "job_id", job.ID, "status", job.Status, "error", err)
	}
}

// sanitizeRequest возвращает запрос с очищенными target и operation.
// Исходный запрос не меняется.
func sanitizeRequest(req *domain.JobRequest) *domain.JobRequest {
	target := registry.Sanitize(req.Target)
	operation := registry.Sanitize(req.Operation)
	if target == req.Target && operation == req.Operation {
		return req
	}

	clean := *req
	clean.Target = target
	clean.Operation = operation
	return &clean
}

// DecodeArgs декодирует аргументы из JSON.
//
// Пустая строка и null — вызов без аргументов. Допускается только JSON-массив.
func DecodeArgs(raw string) ([]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []any{}, nil
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}

	switch v := value.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return v, nil
	default:
		return nil, fmt.Errorf("arguments must be a JSON array, got %T", value)
	}
}
