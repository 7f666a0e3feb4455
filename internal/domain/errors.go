package domain

import (
	"errors"
	"fmt"
)

// ErrorKind — вид ошибки job.
//
// Вид определяет, будет ли Runner повторять попытку (см. Retryable).
type ErrorKind int

const (
	// KindUnknown — ошибка не классифицирована.
	KindUnknown ErrorKind = iota

	// KindUnauthorizedTarget — target отсутствует в allow-list.
	KindUnauthorizedTarget

	// KindTargetNotFound — target в allow-list, но не зарегистрирован.
	KindTargetNotFound

	// KindForbiddenOperation — операция из списка запрещённых.
	KindForbiddenOperation

	// KindOperationNotFound — у target'а нет такой операции.
	KindOperationNotFound

	// KindInvocationFailed — создание target'а или вызов операции завершились ошибкой.
	KindInvocationFailed

	// KindRetriesExhausted — бюджет retry исчерпан.
	KindRetriesExhausted

	// KindMalformedArguments — аргументы не удалось декодировать.
	KindMalformedArguments
)

// String возвращает описание вида ошибки.
func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorizedTarget:
		return "unauthorized target"
	case KindTargetNotFound:
		return "target does not exist"
	case KindForbiddenOperation:
		return "forbidden operation"
	case KindOperationNotFound:
		return "operation does not exist"
	case KindInvocationFailed:
		return "invocation failed"
	case KindRetriesExhausted:
		return "retries exhausted"
	case KindMalformedArguments:
		return "malformed arguments"
	default:
		return "unknown error"
	}
}

// Retryable возвращает true для ошибок, которые Runner повторяет.
func (k ErrorKind) Retryable() bool {
	return k == KindOperationNotFound || k == KindInvocationFailed
}

// JobError — ошибка выполнения job с видом и признаком retryable.
type JobError struct {
	Kind ErrorKind

	// Retryable — повторять ли попытку. Runner проверяет только это поле.
	Retryable bool

	Target    string
	Operation string

	// Attempts — количество выполненных попыток (для KindRetriesExhausted).
	Attempts int

	// Err — исходная ошибка.
	Err error
}

// Error реализует интерфейс error.
func (e *JobError) Error() string {
	switch e.Kind {
	case KindUnauthorizedTarget, KindTargetNotFound:
		return fmt.Sprintf("%s: %s", e.Kind, e.Target)
	case KindForbiddenOperation:
		return fmt.Sprintf("%s: %s", e.Kind, e.Operation)
	case KindOperationNotFound:
		return fmt.Sprintf("%s: %s.%s", e.Kind, e.Target, e.Operation)
	case KindRetriesExhausted:
		return fmt.Sprintf("job %s.%s failed after %d attempts: %v", e.Target, e.Operation, e.Attempts, e.Err)
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

// Unwrap возвращает исходную ошибку.
func (e *JobError) Unwrap() error {
	return e.Err
}

// NewJobError создаёт JobError; Retryable берётся из вида ошибки.
func NewJobError(kind ErrorKind, target, operation string, err error) *JobError {
	return &JobError{
		Kind:      kind,
		Retryable: kind.Retryable(),
		Target:    target,
		Operation: operation,
		Err:       err,
	}
}

// NewExhaustedError оборачивает последнюю ошибку после исчерпания retry.
func NewExhaustedError(target, operation string, attempts int, last error) *JobError {
	return &JobError{
		Kind:      KindRetriesExhausted,
		Target:    target,
		Operation: operation,
		Attempts:  attempts,
		Err:       last,
	}
}

// KindOf возвращает вид самой внешней JobError в цепочке.
func KindOf(err error) ErrorKind {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Kind
	}
	return KindUnknown
}

// IsRetryable проверяет признак Retryable самой внешней JobError.
// Ошибки без JobError считаются retryable: это сбой вызова.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Retryable
	}
	return true
}

// Permanent помечает ошибку операции как не требующую повторов.
//
// Handler возвращает Permanent(err), когда повтор заведомо не поможет
// (например, некорректные аргументы). Runner завершает job после такой попытки.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &JobError{
		Kind:      KindInvocationFailed,
		Retryable: false,
		Err:       err,
	}
}
