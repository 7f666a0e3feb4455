package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/bgjob/internal/domain"
	"github.com/shaiso/bgjob/internal/repo"
)

// NewJobsCmd создаёт группу команд для истории job.
func NewJobsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect job history",
	}

	cmd.AddCommand(
		newJobsListCmd(env),
		newJobsShowCmd(env),
		newJobsMigrateCmd(env),
	)

	return cmd
}

func newJobsListCmd(env *Env) *cobra.Command {
	var status string
	var target string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.Config()
			if err != nil {
				return err
			}
			out := env.Output()

			filter := repo.JobFilter{Target: target, Limit: limit}
			if status != "" {
				filter.Status = domain.ParseJobStatus(strings.ToUpper(status))
				if filter.Status != domain.JobStatusRunning && !filter.Status.IsTerminal() {
					return fmt.Errorf("invalid status %q", status)
				}
			}

			pool, err := requireDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			jobs, err := repo.NewJobRepo(pool).List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			headers := []string{"ID", "TARGET", "OPERATION", "STATUS", "ATTEMPTS", "CREATED"}
			rows := make([][]string, len(jobs))
			for i, j := range jobs {
				rows[i] = []string{
					j.ID.String(), j.Target, j.Operation, string(j.Status),
					strconv.Itoa(j.Attempts), formatTime(&j.CreatedAt),
				}
			}

			out.Print(headers, rows, jobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (RUNNING, SUCCEEDED, FAILED, REJECTED)")
	cmd.Flags().StringVar(&target, "target", "", "Filter by target")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (default 50)")

	return cmd
}

// jobDetails — вывод jobs show в режиме --json.
type jobDetails struct {
	*domain.Job
	AttemptLog []domain.AttemptRecord `json:"attempt_log"`
}

func newJobsShowCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show job details and attempts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id: %w", err)
			}

			cfg, err := env.Config()
			if err != nil {
				return err
			}
			out := env.Output()

			pool, err := requireDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			job, err := repo.NewJobRepo(pool).GetByID(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get job %s: %w", id, err)
			}
			attempts, err := repo.NewAttemptRepo(pool).ListByJob(cmd.Context(), id)
			if err != nil {
				return err
			}

			if out.IsJSON() {
				out.JSON(jobDetails{Job: job, AttemptLog: attempts})
				return nil
			}

			out.Table(
				[]string{"ID", "TARGET", "OPERATION", "ARGS", "STATUS", "ATTEMPTS", "DURATION", "ERROR"},
				[][]string{{
					job.ID.String(), job.Target, job.Operation, compactJSON(job.Args), string(job.Status),
					strconv.Itoa(job.Attempts), job.Duration().String(), job.Error,
				}},
			)

			if len(attempts) > 0 {
				out.Line("")
				rows := make([][]string, len(attempts))
				for i, a := range attempts {
					rows[i] = []string{
						strconv.Itoa(a.Attempt), string(a.Outcome), a.Duration.String(),
						formatTime(&a.Timestamp), a.Error,
					}
				}
				out.Table([]string{"ATTEMPT", "OUTCOME", "DURATION", "AT", "ERROR"}, rows)
			}
			return nil
		},
	}
}

func newJobsMigrateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update job history tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.Config()
			if err != nil {
				return err
			}

			pool, err := requireDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := repo.Migrate(cmd.Context(), pool); err != nil {
				return err
			}

			env.Output().Success("Migrations applied")
			return nil
		},
	}
}

// compactJSON кодирует значение в одну строку для таблиц.
func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
