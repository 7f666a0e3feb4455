package domain

import (
	"time"

	"github.com/google/uuid"
)

// Outcome — исход одной попытки.
type Outcome string

const (
	// OutcomeSucceeded — операция вернула результат.
	OutcomeSucceeded Outcome = "succeeded"

	// OutcomeFailed — операция завершилась ошибкой.
	OutcomeFailed Outcome = "failed"
)

// AttemptRecord — запись об одной попытке выполнения.
//
// Создаётся Runner'ом на каждую попытку, передаётся Recorder'ам
// и дальше Runner'ом не хранится.
type AttemptRecord struct {
	JobID uuid.UUID `json:"job_id"`

	// Attempt — номер попытки (начиная с 1).
	Attempt int `json:"attempt"`

	Target    string `json:"target"`
	Operation string `json:"operation"`
	Args      []any  `json:"args"`

	Outcome Outcome `json:"outcome"`

	// Result — результат (только для OutcomeSucceeded).
	Result any `json:"result,omitempty"`

	// Error — текст ошибки (только для OutcomeFailed).
	Error string `json:"error,omitempty"`

	// Retryable — можно ли повторить попытку после этой ошибки.
	Retryable bool `json:"retryable,omitempty"`

	// Duration — длительность вызова.
	Duration time.Duration `json:"duration"`

	Timestamp time.Time `json:"timestamp"`
}

// Succeeded возвращает true для успешной попытки.
func (r *AttemptRecord) Succeeded() bool {
	return r.Outcome == OutcomeSucceeded
}

// FailureRecord — финальная запись о неудачном job.
//
// Отличается от AttemptRecord: создаётся один раз, после последней попытки.
type FailureRecord struct {
	JobID     uuid.UUID `json:"job_id"`
	Target    string    `json:"target"`
	Operation string    `json:"operation"`
	Args      []any     `json:"args"`

	// Attempts — сколько попыток было выполнено.
	Attempts int `json:"attempts"`

	// MaxRetries — бюджет retry.
	MaxRetries int `json:"max_retries"`

	// Error — текст последней ошибки.
	Error string `json:"error"`

	Timestamp time.Time `json:"timestamp"`
}
