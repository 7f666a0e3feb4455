package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobRequest — запрос на выполнение операции target'а в фоне.
//
// Создаётся на границе (CLI, launcher, scheduler) и после создания не меняется.
// Принадлежит одному выполнению и выбрасывается после его завершения.
type JobRequest struct {
	// ID — идентификатор job. Сквозной для launcher'а и процесса run-job.
	ID uuid.UUID `json:"id"`

	// Target — идентификатор target'а (из allow-list).
	Target string `json:"target"`

	// Operation — имя операции target'а.
	Operation string `json:"operation"`

	// Args — позиционные аргументы (JSON-совместимые значения).
	Args []any `json:"args"`

	// CreatedAt — время создания запроса.
	CreatedAt time.Time `json:"created_at"`
}

// NewJobRequest создаёт JobRequest с новым ID.
//
// nil args нормализуется в пустой список — вызов без аргументов допустим.
func NewJobRequest(target, operation string, args []any) *JobRequest {
	return NewJobRequestWithID(uuid.New(), target, operation, args)
}

// NewJobRequestWithID создаёт JobRequest с заданным ID.
// Используется процессом run-job, которому launcher передаёт ID.
func NewJobRequestWithID(id uuid.UUID, target, operation string, args []any) *JobRequest {
	if id == uuid.Nil {
		id = uuid.New()
	}
	if args == nil {
		args = []any{}
	}

	// Копируем, чтобы вызывающий не мог изменить запрос после создания
	copied := make([]any, len(args))
	copy(copied, args)

	return &JobRequest{
		ID:        id,
		Target:    target,
		Operation: operation,
		Args:      copied,
		CreatedAt: time.Now(),
	}
}

// Job — сохранённое состояние одного выполнения job.
//
// Job создаётся Dispatcher'ом при старте run-job и обновляется после
// каждой попытки и в финальном статусе.
type Job struct {
	// ID — совпадает с JobRequest.ID.
	ID uuid.UUID `json:"id"`

	Target    string `json:"target"`
	Operation string `json:"operation"`
	Args      []any  `json:"args"`

	// Status — текущий статус job.
	Status JobStatus `json:"status"`

	// Attempts — количество выполненных попыток.
	Attempts int `json:"attempts"`

	// MaxRetries — бюджет retry, с которым запускался job.
	MaxRetries int `json:"max_retries"`

	// Result — результат успешной операции.
	Result any `json:"result,omitempty"`

	// Error — текст ошибки при неудаче или отказе.
	Error string `json:"error,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewJob создаёт Job из запроса.
func NewJob(req *JobRequest, policy RetryPolicy) *Job {
	return &Job{
		ID:         req.ID,
		Target:     req.Target,
		Operation:  req.Operation,
		Args:       req.Args,
		Status:     JobStatusRunning,
		MaxRetries: policy.MaxRetries,
		CreatedAt:  req.CreatedAt,
	}
}

// Duration возвращает продолжительность выполнения.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// MarkRunning переводит job в статус RUNNING.
func (j *Job) MarkRunning() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

// MarkAttempt фиксирует номер последней попытки.
func (j *Job) MarkAttempt(attempt int) {
	j.Attempts = attempt
}

// MarkSucceeded переводит job в статус SUCCEEDED.
func (j *Job) MarkSucceeded(result any) {
	now := time.Now()
	j.Status = JobStatusSucceeded
	j.FinishedAt = &now
	j.Result = result
	j.Error = ""
}

// MarkFailed переводит job в статус FAILED.
func (j *Job) MarkFailed(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.FinishedAt = &now
	j.Error = err
}

// MarkRejected переводит job в статус REJECTED (валидация или некорректные аргументы).
func (j *Job) MarkRejected(err string) {
	now := time.Now()
	j.Status = JobStatusRejected
	j.FinishedAt = &now
	j.Error = err
}
