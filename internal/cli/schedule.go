package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/bgjob/internal/domain"
	"github.com/shaiso/bgjob/internal/launcher"
	"github.com/shaiso/bgjob/internal/scheduler"
	"github.com/shaiso/bgjob/internal/telemetry"
)

// shutdownTimeout — время на остановку HTTP сервера.
const shutdownTimeout = 10 * time.Second

// scheduleView — состояние расписания для /schedules и --json.
type scheduleView struct {
	Name         string     `json:"name"`
	Cron         string     `json:"cron,omitempty"`
	Interval     string     `json:"interval,omitempty"`
	Target       string     `json:"target"`
	Operation    string     `json:"operation"`
	Args         []any      `json:"args"`
	NextDue      time.Time  `json:"next_due"`
	LastDispatch *time.Time `json:"last_dispatch,omitempty"`
	LastJobID    string     `json:"last_job_id,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

func newScheduleView(e scheduler.Entry) scheduleView {
	v := scheduleView{
		Name:      e.Name,
		Cron:      e.Cron,
		Target:    e.Target,
		Operation: e.Operation,
		Args:      e.Args,
		NextDue:   e.NextDue,
		LastJobID: e.LastJobID,
		LastError: e.LastError,
	}
	if e.Interval > 0 {
		v.Interval = e.Interval.String()
	}
	if !e.LastDispatch.IsZero() {
		t := e.LastDispatch
		v.LastDispatch = &t
	}
	if v.Args == nil {
		v.Args = []any{}
	}
	return v
}

// NewScheduleCmd создаёт группу команд для расписаний.
func NewScheduleCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run jobs on a schedule",
	}

	cmd.AddCommand(
		newScheduleListCmd(env),
		newScheduleRunCmd(env),
	)

	return cmd
}

func newScheduleListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured schedules with their next run time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.Config()
			if err != nil {
				return err
			}

			s, err := scheduler.New(scheduler.Config{
				Schedules: cfg.Schedules,
				Launcher:  noopLauncher{},
				Logger:    env.Logger(),
			}, time.Now())
			if err != nil {
				return err
			}

			entries := s.Entries()
			views := make([]scheduleView, len(entries))
			rows := make([][]string, len(entries))
			for i, e := range entries {
				views[i] = newScheduleView(e)
				spec := e.Cron
				if spec == "" {
					spec = "every " + e.Interval.String()
				}
				rows[i] = []string{e.Name, spec, e.Target, e.Operation, formatTime(&e.NextDue)}
			}

			env.Output().Print([]string{"NAME", "SCHEDULE", "TARGET", "OPERATION", "NEXT RUN"}, rows, views)
			return nil
		},
	}
}

func newScheduleRunCmd(env *Env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Dispatch scheduled jobs until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.Config()
			if err != nil {
				return err
			}
			logger := env.Logger()
			if addr == "" {
				addr = cfg.MetricsAddr
			}

			// Расписание на запрещённую операцию не остановит планировщик:
			// run-job всё равно отклонит его, здесь только предупреждаем.
			validator := env.Validator(cfg)
			for _, sc := range cfg.Schedules {
				if err := validator.Validate(sc.Target, sc.Operation); err != nil {
					logger.Warn("schedule will be rejected", "schedule", sc.Name, "error", err)
				}
			}

			l, err := launcher.New(launcher.Config{
				ConfigPath: env.ConfigPath,
				LogFile:    cfg.LogFile,
				Starter:    env.Starter,
				Logger:     logger,
			})
			if err != nil {
				return err
			}

			metrics := telemetry.NewJobMetrics().WithRuntimeCollectors()

			s, err := scheduler.New(scheduler.Config{
				Schedules: cfg.Schedules,
				Launcher:  l,
				Observer:  metrics,
				Logger:    logger,
			}, time.Now())
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           newScheduleMux(s, metrics, logger),
				ReadHeaderTimeout: 5 * time.Second,
			}

			g, ctx := errgroup.WithContext(cmd.Context())

			g.Go(func() error {
				return s.Run(ctx)
			})

			g.Go(func() error {
				logger.Info("HTTP server starting", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				logger.Info("scheduler shutdown complete")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address for /healthz, /metrics, /schedules (default from config)")

	return cmd
}

// newScheduleMux собирает HTTP обработчики процесса schedule run.
func newScheduleMux(s *scheduler.Scheduler, metrics *telemetry.JobMetrics, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /schedules", func(w http.ResponseWriter, r *http.Request) {
		entries := s.Entries()
		views := make([]scheduleView, len(entries))
		for i, e := range entries {
			views[i] = newScheduleView(e)
		}
		writeJSON(w, http.StatusOK, views)
	})

	return chain(recovery(logger), requestLogging(logger))(mux)
}

// noopLauncher нужен schedule list: расписания только вычисляются.
type noopLauncher struct{}

func (noopLauncher) Dispatch(context.Context, string, string, []any) (*domain.JobRequest, error) {
	return nil, errors.New("dispatch is not available")
}
