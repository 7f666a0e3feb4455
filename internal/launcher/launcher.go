// Package launcher запускает job в отдельном фоновом процессе.
//
// Launcher не ждёт завершения процесса: он формирует команду
// `run-job --job-id <id> <target> <operation> <args>`, запускает её
// отвязанной от терминала и сразу освобождает процесс.
package launcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/shaiso/bgjob/internal/domain"
)

// RunJobCommand — имя CLI-команды, которая выполняет job.
const RunJobCommand = "run-job"

// Starter запускает подготовленную команду. Подменяется в тестах.
type Starter func(cmd *exec.Cmd) error

// Config — конфигурация Launcher.
type Config struct {
	// Executable — путь к бинарнику bgjob. Default: os.Executable().
	Executable string

	// ConfigPath — передаётся дочернему процессу как --config.
	ConfigPath string

	// LogFile — куда писать stdout/stderr процесса. Пусто — null device.
	LogFile string

	// Starter — запуск процесса. Default: startDetached.
	Starter Starter

	// Logger
	Logger *slog.Logger
}

// Launcher запускает job в фоне.
type Launcher struct {
	executable string
	configPath string
	logFile    string
	start      Starter
	logger     *slog.Logger
}

// New создаёт Launcher.
func New(cfg Config) (*Launcher, error) {
	executable := cfg.Executable
	if executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}
		executable = exe
	}

	start := cfg.Starter
	if start == nil {
		start = startDetached
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Launcher{
		executable: executable,
		configPath: cfg.ConfigPath,
		logFile:    cfg.LogFile,
		start:      start,
		logger:     logger,
	}, nil
}

// Dispatch запускает job в фоне и возвращает запрос с выданным ID.
//
// Возвращает управление сразу после старта процесса.
func (l *Launcher) Dispatch(ctx context.Context, target, operation string, args []any) (*domain.JobRequest, error) {
	req := domain.NewJobRequest(target, operation, args)

	encoded, err := json.Marshal(req.Args)
	if err != nil {
		return nil, domain.NewJobError(domain.KindMalformedArguments, target, operation, err)
	}

	if err := l.launch(ctx, req, string(encoded)); err != nil {
		return nil, err
	}
	return req, nil
}

// Args возвращает аргументы командной строки для запуска job.
// Позиционные аргументы идут после "--": target на "-" не станет флагом.
func (l *Launcher) Args(req *domain.JobRequest, rawArgs string) []string {
	args := make([]string, 0, 9)
	if l.configPath != "" {
		args = append(args, "--config", l.configPath)
	}
	return append(args, RunJobCommand, "--job-id", req.ID.String(), "--", req.Target, req.Operation, rawArgs)
}

// ctx не привязывается к процессу: отмена не должна убивать запущенный job.
func (l *Launcher) launch(ctx context.Context, req *domain.JobRequest, rawArgs string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	output, err := l.openOutput()
	if err != nil {
		return err
	}
	defer output.Close()

	cmd := exec.Command(l.executable, l.Args(req, rawArgs)...)
	cmd.Stdin = nil
	cmd.Stdout = output
	cmd.Stderr = output
	cmd.SysProcAttr = detachedAttr()

	if err := l.start(cmd); err != nil {
		return fmt.Errorf("start job %s: %w", req.ID, err)
	}

	pid := 0
	if cmd.Process != nil {
		pid = cmd.Process.Pid
		// Не ждём процесс — он живёт отдельно
		if err := cmd.Process.Release(); err != nil {
			l.logger.Warn("failed to release job process", "job_id", req.ID, "error", err)
		}
	}

	l.logger.Info("job dispatched",
		"job_id", req.ID,
		"target", req.Target,
		"operation", req.Operation,
		"pid", pid,
	)
	return nil
}

// openOutput открывает лог-файл на дозапись или null device.
func (l *Launcher) openOutput() (io.WriteCloser, error) {
	path := l.logFile
	if path == "" {
		path = os.DevNull
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open job output: %w", err)
	}
	return f, nil
}

func startDetached(cmd *exec.Cmd) error {
	return cmd.Start()
}
