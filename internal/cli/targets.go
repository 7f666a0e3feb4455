package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// targetInfo — строка вывода команды targets.
type targetInfo struct {
	Target     string   `json:"target"`
	Approved   bool     `json:"approved"`
	Operations []string `json:"operations"`
	Error      string   `json:"error,omitempty"`
}

// NewTargetsCmd создаёт команду targets.
func NewTargetsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List registered targets and their operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.Config()
			if err != nil {
				return err
			}
			out := env.Output()

			validator := env.Validator(cfg)
			allow := validator.AllowList()

			var infos []targetInfo
			for _, target := range env.Registry.Targets() {
				info := targetInfo{Target: target, Approved: allow.Contains(target)}

				ops, err := env.Registry.Describe(target)
				if err != nil {
					info.Error = err.Error()
				}
				for _, op := range ops {
					if !validator.IsForbidden(op) {
						info.Operations = append(info.Operations, op)
					}
				}
				infos = append(infos, info)
			}

			// Разрешённые, но не зарегистрированные — ошибка конфигурации
			for _, target := range allow.Targets() {
				if !env.Registry.Has(target) {
					infos = append(infos, targetInfo{
						Target:   target,
						Approved: true,
						Error:    "target does not exist",
					})
				}
			}

			headers := []string{"TARGET", "APPROVED", "OPERATIONS", "ERROR"}
			rows := make([][]string, len(infos))
			for i, t := range infos {
				rows[i] = []string{t.Target, yesNo(t.Approved), strings.Join(t.Operations, ", "), t.Error}
			}

			out.Print(headers, rows, infos)
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

