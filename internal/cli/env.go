package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/shaiso/bgjob/internal/config"
	"github.com/shaiso/bgjob/internal/launcher"
	"github.com/shaiso/bgjob/internal/registry"
	"github.com/shaiso/bgjob/internal/telemetry"
)

// ExitError завершает процесс с кодом Code без дополнительного вывода:
// команда уже сообщила об ошибке сама.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d: %v", e.Code, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Env — общее окружение команд.
type Env struct {
	// ConfigPath — значение --config.
	ConfigPath string

	// JSON — значение --json.
	JSON bool

	// Registry — зарегистрированные target'ы.
	Registry *registry.Registry

	// Starter — запуск фоновых процессов (nil — настоящий запуск).
	Starter launcher.Starter

	// Stdout, Stderr — куда писать вывод. Default: os.Stdout, os.Stderr.
	Stdout io.Writer
	Stderr io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

// Config загружает конфигурацию при первом обращении.
func (e *Env) Config() (*config.Config, error) {
	if e.cfg != nil {
		return e.cfg, nil
	}

	cfg, err := config.Load(e.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	e.cfg = cfg
	return cfg, nil
}

// Logger создаёт логгер при первом обращении.
// Логи идут в stderr, чтобы не смешиваться с выводом данных.
func (e *Env) Logger() *slog.Logger {
	if e.logger == nil {
		e.logger = telemetry.NewLogger(e.stderr(), os.Getenv("LOG_FORMAT"))
	}
	return e.logger
}

// Output создаёт Output по текущему режиму.
func (e *Env) Output() *Output {
	return NewOutput(e.JSON, e.stdout(), e.stderr())
}

// Validator строит валидатор из allow-list конфигурации.
func (e *Env) Validator(cfg *config.Config) *registry.Validator {
	allow := registry.NewAllowList(cfg.ApprovedTargets)
	return registry.NewValidator(allow, e.Registry, cfg.ForbiddenOperations...)
}

func (e *Env) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Env) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}

// formatTime форматирует время для таблиц.
func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Local().Format(time.RFC3339)
}
