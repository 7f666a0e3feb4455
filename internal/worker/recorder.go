package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/bgjob/internal/domain"
)

// Recorder получает записи о попытках и о финальной неудаче.
//
// Реализации не должны возвращать ошибки в Runner: запись — побочный канал,
// выполнение job от неё не зависит.
type Recorder interface {
	// RecordAttempt вызывается после каждой попытки, успешной или нет.
	RecordAttempt(ctx context.Context, rec *domain.AttemptRecord)

	// RecordFailure вызывается один раз, когда job завершился неудачей.
	RecordFailure(ctx context.Context, rec *domain.FailureRecord)
}

// MultiRecorder передаёт записи всем Recorder'ам по порядку.
type MultiRecorder []Recorder

// RecordAttempt реализует Recorder.
func (m MultiRecorder) RecordAttempt(ctx context.Context, rec *domain.AttemptRecord) {
	for _, r := range m {
		if r != nil {
			r.RecordAttempt(ctx, rec)
		}
	}
}

// RecordFailure реализует Recorder.
func (m MultiRecorder) RecordFailure(ctx context.Context, rec *domain.FailureRecord) {
	for _, r := range m {
		if r != nil {
			r.RecordFailure(ctx, rec)
		}
	}
}

// LogRecorder пишет записи в slog.
//
// Успешная попытка — INFO, неудачная — WARN, финальная неудача — ERROR.
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder создаёт LogRecorder. nil logger — slog.Default().
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRecorder{logger: logger}
}

// RecordAttempt реализует Recorder.
func (l *LogRecorder) RecordAttempt(ctx context.Context, rec *domain.AttemptRecord) {
	if rec.Succeeded() {
		l.logger.InfoContext(ctx, "job executed successfully",
			"job_id", rec.JobID,
			"target", rec.Target,
			"operation", rec.Operation,
			"arguments", rec.Args,
			"attempt", rec.Attempt,
			"duration", rec.Duration,
		)
		return
	}

	l.logger.WarnContext(ctx, fmt.Sprintf("job execution failed on attempt %d", rec.Attempt),
		"job_id", rec.JobID,
		"target", rec.Target,
		"operation", rec.Operation,
		"arguments", rec.Args,
		"attempt", rec.Attempt,
		"error", rec.Error,
	)
}

// RecordFailure реализует Recorder.
func (l *LogRecorder) RecordFailure(ctx context.Context, rec *domain.FailureRecord) {
	l.logger.ErrorContext(ctx, fmt.Sprintf("job failed after %d retries", rec.Attempts-1),
		"job_id", rec.JobID,
		"target", rec.Target,
		"operation", rec.Operation,
		"arguments", rec.Args,
		"attempts", rec.Attempts,
		"max_retries", rec.MaxRetries,
		"error", rec.Error,
	)
}

// AttemptStore сохраняет записи о попытках (см. repo.AttemptRepo).
type AttemptStore interface {
	SaveAttempt(ctx context.Context, rec *domain.AttemptRecord) error
}

// StoreRecorder сохраняет попытки в AttemptStore.
type StoreRecorder struct {
	store  AttemptStore
	logger *slog.Logger
}

// NewStoreRecorder создаёт StoreRecorder.
func NewStoreRecorder(store AttemptStore, logger *slog.Logger) *StoreRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreRecorder{store: store, logger: logger}
}

// RecordAttempt реализует Recorder.
func (s *StoreRecorder) RecordAttempt(ctx context.Context, rec *domain.AttemptRecord) {
	if err := s.store.SaveAttempt(ctx, rec); err != nil {
		// Не фатально — job продолжает выполняться
		s.logger.Warn("failed to save attempt",
			"job_id", rec.JobID,
			"attempt", rec.Attempt,
			"error", err,
		)
	}
}

// RecordFailure реализует Recorder. Итог job сохраняет Dispatcher.
func (s *StoreRecorder) RecordFailure(context.Context, *domain.FailureRecord) {}
