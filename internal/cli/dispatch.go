package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaiso/bgjob/internal/domain"
	"github.com/shaiso/bgjob/internal/launcher"
	"github.com/shaiso/bgjob/internal/registry"
	"github.com/shaiso/bgjob/internal/worker"
)

// NewDispatchCmd создаёт команду dispatch.
//
// Проверяет запрос локально и запускает run-job отдельным процессом.
// Не ждёт выполнения: результат виден в логе, истории job и событиях.
func NewDispatchCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch TARGET OPERATION [ARGS_JSON]",
		Short: "Run a job in the background",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.Config()
			if err != nil {
				return err
			}
			out := env.Output()

			target := registry.Sanitize(args[0])
			operation := registry.Sanitize(args[1])

			rawArgs := ""
			if len(args) == 3 {
				rawArgs = args[2]
			}

			jobArgs, err := worker.DecodeArgs(rawArgs)
			if err != nil {
				err = domain.NewJobError(domain.KindMalformedArguments, target, operation, err)
				out.Error("Job dispatch failed: " + err.Error())
				return &ExitError{Code: 1, Err: err}
			}

			// Отказ валидации виден сразу, а не только в логе фонового процесса
			if err := env.Validator(cfg).Validate(target, operation); err != nil {
				out.Error("Job dispatch failed: " + err.Error())
				return &ExitError{Code: 1, Err: err}
			}

			l, err := launcher.New(launcher.Config{
				ConfigPath: env.ConfigPath,
				LogFile:    cfg.LogFile,
				Starter:    env.Starter,
				Logger:     env.Logger(),
			})
			if err != nil {
				return err
			}

			req, err := l.Dispatch(cmd.Context(), target, operation, jobArgs)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Job dispatched: %s", req.ID))
			if out.IsJSON() {
				out.JSON(req)
			}
			return nil
		},
	}
}
