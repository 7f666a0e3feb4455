package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd собирает корневую команду bgjob со всеми подкомандами.
func NewRootCmd(env *Env, version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "bgjob",
		Short:         "bgjob — background job dispatcher",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&env.ConfigPath, "config", "", "Path to YAML config (default $BGJOB_CONFIG)")
	root.PersistentFlags().BoolVar(&env.JSON, "json", false, "Output in JSON format")

	root.AddCommand(
		NewDispatchCmd(env),
		NewRunJobCmd(env),
		NewTargetsCmd(env),
		NewJobsCmd(env),
		NewEventsCmd(env),
		NewScheduleCmd(env),
	)

	return root
}
