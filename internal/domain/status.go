package domain

// JobStatus — статус выполнения job.
//
// Жизненный цикл:
//
//	RUNNING → SUCCEEDED
//	        ↘ FAILED (retry исчерпаны или ошибка не retriable)
//	REJECTED — запрос отклонён до первой попытки (валидация, аргументы)
type JobStatus string

const (
	// JobStatusRunning — job выполняется (идут попытки).
	JobStatusRunning JobStatus = "RUNNING"

	// JobStatusSucceeded — операция вернула результат.
	JobStatusSucceeded JobStatus = "SUCCEEDED"

	// JobStatusFailed — все попытки завершились ошибкой.
	JobStatusFailed JobStatus = "FAILED"

	// JobStatusRejected — запрос не прошёл проверку, попыток не было.
	JobStatusRejected JobStatus = "REJECTED"
)

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusRejected:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// ParseJobStatus парсит строку в JobStatus.
// Неизвестные значения возвращаются как есть и не являются терминальными.
func ParseJobStatus(s string) JobStatus {
	switch s {
	case "RUNNING":
		return JobStatusRunning
	case "SUCCEEDED":
		return JobStatusSucceeded
	case "FAILED":
		return JobStatusFailed
	case "REJECTED":
		return JobStatusRejected
	default:
		return JobStatus(s)
	}
}
