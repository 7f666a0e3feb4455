// Package config загружает конфигурацию bgjob.
//
// Источники по возрастанию приоритета: значения по умолчанию, YAML-файл
// (с подстановкой ${ENV}), переменные окружения. Файл .env загружается
// в окружение до чтения конфигурации, если он есть.
package config

import (
	"time"

	"github.com/shaiso/bgjob/internal/domain"
)

// Config — конфигурация процесса bgjob.
type Config struct {
	// Retries — количество повторов после первой попытки. Default: 3.
	Retries int

	// RetryDelay — пауза между попытками. Default: 5s.
	RetryDelay time.Duration

	// ApprovedTargets — allow-list target'ов.
	ApprovedTargets []string

	// ForbiddenOperations — дополнительные запрещённые операции.
	// Встроенный набор всегда действует.
	ForbiddenOperations []string

	// LogFile — файл для вывода фоновых процессов. Пусто — вывод отбрасывается.
	LogFile string

	// DatabaseURL — PostgreSQL для истории job. Пусто — история не пишется.
	DatabaseURL string

	// RabbitMQURL — брокер для событий job. Пусто — события не публикуются.
	RabbitMQURL string

	// PushgatewayURL — куда run-job отправляет метрики. Пусто — не отправляет.
	PushgatewayURL string

	// MetricsAddr — адрес /healthz и /metrics демона schedule. Default: ":8090".
	MetricsAddr string

	// Schedules — периодические job для демона schedule.
	Schedules []Schedule
}

// Schedule — периодический запуск job.
//
// Задаётся либо Cron (5 полей), либо Interval.
type Schedule struct {
	Name      string        `yaml:"name"`
	Cron      string        `yaml:"cron"`
	Interval  time.Duration `yaml:"interval"`
	Timezone  string        `yaml:"timezone"`
	Target    string        `yaml:"target"`
	Operation string        `yaml:"operation"`
	Args      []any         `yaml:"args"`
	Enabled   *bool         `yaml:"enabled"`
}

// IsEnabled возвращает true, если расписание не выключено явно.
func (s Schedule) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// RetryPolicy возвращает политику повторов из конфигурации.
func (c *Config) RetryPolicy() domain.RetryPolicy {
	return domain.RetryPolicy{
		MaxRetries: c.Retries,
		RetryDelay: c.RetryDelay,
	}
}

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	return &Config{
		Retries:     domain.DefaultMaxRetries,
		RetryDelay:  domain.DefaultRetryDelay,
		MetricsAddr: ":8090",
	}
}
