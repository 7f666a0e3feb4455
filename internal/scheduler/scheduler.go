package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/bgjob/internal/config"
	"github.com/shaiso/bgjob/internal/domain"
	"github.com/shaiso/bgjob/internal/telemetry"
)

// Launcher запускает job в фоне (см. launcher.Launcher).
type Launcher interface {
	Dispatch(ctx context.Context, target, operation string, args []any) (*domain.JobRequest, error)
}

// Observer получает итог каждого запуска по расписанию (см. telemetry.JobMetrics).
type Observer interface {
	ScheduleDispatched(schedule string, err error)
}

// Scheduler — планировщик, запускающий job по расписаниям из конфигурации.
type Scheduler struct {
	launcher Launcher
	observer Observer
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	entries []*Entry
}

// Config — конфигурация Scheduler.
type Config struct {
	// Schedules — расписания; выключенные пропускаются.
	Schedules []config.Schedule

	// Launcher — обязателен.
	Launcher Launcher

	// Observer — опционально.
	Observer Observer

	Logger *slog.Logger

	// TickInterval — период Run (default: 1s).
	TickInterval time.Duration
}

// New создаёт Scheduler и вычисляет первое время запуска для каждого расписания.
func New(cfg Config, now time.Time) (*Scheduler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.TickInterval
	if interval <= 0 {
		interval = time.Second
	}

	s := &Scheduler{
		launcher: cfg.Launcher,
		observer: cfg.Observer,
		logger:   logger,
		interval: interval,
	}

	for _, sc := range cfg.Schedules {
		if !sc.IsEnabled() {
			logger.Info("schedule disabled, skipping", "schedule", sc.Name)
			continue
		}

		e, err := NewEntry(sc)
		if err != nil {
			return nil, err
		}

		next, err := CalculateNextDue(e, now)
		if err != nil {
			return nil, err
		}
		e.NextDue = next

		s.entries = append(s.entries, e)
	}

	return s, nil
}

// Tick запускает все расписания, время которых наступило.
//
// Каждое расписание запускается не более одного раза за тик, даже если
// пропущено несколько периодов. Ошибки одного расписания не блокируют
// остальные. Возвращает количество успешных запусков.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due, dispatched int
	for _, e := range s.entries {
		if !e.IsDue(now) {
			continue
		}
		due++

		logger := telemetry.WithSchedule(s.logger, e.Name)

		if err := s.dispatch(ctx, e, now, logger); err != nil {
			logger.Error("failed to dispatch scheduled job",
				"target", e.Target,
				"operation", e.Operation,
				"error", err,
			)
		} else {
			dispatched++
		}

		// Следующее время считаем от now: пропущенные периоды не догоняем
		next, err := CalculateNextDue(e, now)
		if err != nil {
			logger.Error("failed to calculate next due, disabling schedule",
				"error", err,
			)
			e.NextDue = time.Time{}
			continue
		}
		e.NextDue = next
	}

	if due > 0 {
		s.logger.Debug("scheduler tick completed", "due", due, "dispatched", dispatched)
	}
	return dispatched
}

// dispatch запускает job одного расписания и фиксирует итог.
func (s *Scheduler) dispatch(ctx context.Context, e *Entry, now time.Time, logger *slog.Logger) error {
	req, err := s.launcher.Dispatch(ctx, e.Target, e.Operation, e.Args)

	e.LastDispatch = now
	if s.observer != nil {
		s.observer.ScheduleDispatched(e.Name, err)
	}

	if err != nil {
		e.LastJobID = ""
		e.LastError = err.Error()
		return fmt.Errorf("dispatch: %w", err)
	}

	e.LastJobID = req.ID.String()
	e.LastError = ""

	logger.Info("scheduled job dispatched",
		"job_id", req.ID,
		"target", e.Target,
		"operation", e.Operation,
	)
	return nil
}

// Run вызывает Tick с периодом TickInterval до отмены ctx.
func (s *Scheduler) Run(ctx context.Context) error {
	tk := time.NewTicker(s.interval)
	defer tk.Stop()

	s.logger.Info("scheduler started", "schedules", len(s.entries))

	for {
		select {
		case t := <-tk.C:
			s.Tick(ctx, t)
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		}
	}
}

// Entries возвращает копию состояния расписаний.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
	}
	return out
}
