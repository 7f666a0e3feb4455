package domain

import (
	"fmt"
	"time"
)

// Значения RetryPolicy по умолчанию.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 5 * time.Second
)

// RetryPolicy — политика повторных попыток.
//
// Общая для процесса, задаётся конфигурацией и не меняется во время выполнения.
// Всего попыток: MaxRetries + 1 (первая попытка и до MaxRetries повторов).
type RetryPolicy struct {
	// MaxRetries — количество повторов после первой неудачной попытки.
	MaxRetries int `json:"max_retries"`

	// RetryDelay — фиксированная пауза между неудачной попыткой и следующей.
	RetryDelay time.Duration `json:"retry_delay"`
}

// DefaultRetryPolicy возвращает политику по умолчанию: 3 повтора, 5 секунд.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// TotalAttempts возвращает максимальное количество попыток.
func (p RetryPolicy) TotalAttempts() int {
	return p.MaxRetries + 1
}

// CanRetry проверяет, можно ли сделать ещё одну попытку после попытки attempt.
func (p RetryPolicy) CanRetry(attempt int) bool {
	return attempt <= p.MaxRetries
}

// Validate проверяет, что значения политики неотрицательные.
func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("retries must be non-negative, got %d", p.MaxRetries)
	}
	if p.RetryDelay < 0 {
		return fmt.Errorf("retry delay must be non-negative, got %s", p.RetryDelay)
	}
	return nil
}
