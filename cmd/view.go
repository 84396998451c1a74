package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"synthtest.dev/pkg/synthtest/internal/domain"
	m "synthtest.dev/pkg/synthtest/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View the report of a previous generate run",
		Long:  "View the summary of the run report at --report (default: generate.report).",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			wf, err := resolveWorkflow(cmd)
			if err != nil {
				return err
			}

			return wf.View(commandContext(cmd), domain.ViewArgs{Report: m.Path(viper.GetString(generateReportKey))})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
