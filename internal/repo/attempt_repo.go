package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/bgjob/internal/domain"
)

// AttemptRepo — репозиторий попыток job.
type AttemptRepo struct {
	pool *pgxpool.Pool
}

// NewAttemptRepo создаёт новый AttemptRepo.
func NewAttemptRepo(pool *pgxpool.Pool) *AttemptRepo {
	return &AttemptRepo{pool: pool}
}

// SaveAttempt сохраняет запись о попытке.
// Повторная запись той же попытки перезаписывает предыдущую.
func (r *AttemptRepo) SaveAttempt(ctx context.Context, rec *domain.AttemptRecord) error {
	resultJSON, err := marshalNullable(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	query := `
		INSERT INTO job_attempts (job_id, attempt, outcome, result, error, retryable, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (job_id, attempt) DO UPDATE
		SET outcome = EXCLUDED.outcome, result = EXCLUDED.result, error = EXCLUDED.error,
		    retryable = EXCLUDED.retryable, duration_ms = EXCLUDED.duration_ms
	`
	_, err = r.pool.Exec(ctx, query,
		rec.JobID,
		rec.Attempt,
		rec.Outcome,
		resultJSON,
		nullString(rec.Error),
		rec.Retryable,
		rec.Duration.Milliseconds(),
		rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// ListByJob возвращает попытки job по порядку.
func (r *AttemptRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.AttemptRecord, error) {
	query := `
		SELECT job_id, attempt, outcome, result, error, retryable, duration_ms, created_at
		FROM job_attempts
		WHERE job_id = $1
		ORDER BY attempt ASC
	`
	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var records []domain.AttemptRecord
	for rows.Next() {
		var rec domain.AttemptRecord
		var resultJSON []byte
		var attemptError *string
		var durationMs int64

		if err := rows.Scan(
			&rec.JobID,
			&rec.Attempt,
			&rec.Outcome,
			&resultJSON,
			&attemptError,
			&rec.Retryable,
			&durationMs,
			&rec.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}

		if resultJSON != nil {
			if err := json.Unmarshal(resultJSON, &rec.Result); err != nil {
				return nil, fmt.Errorf("unmarshal result: %w", err)
			}
		}
		if attemptError != nil {
			rec.Error = *attemptError
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond

		records = append(records, rec)
	}
	return records, rows.Err()
}
