package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"synthtest.dev/pkg/synthtest/internal/domain"
)

// watchCmd represents the watch command.
var watchCmd = newWatchCmd()

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [files-list]",
		Short: "Regenerate tests whenever a listed source changes",
		Long: `Watch every source in the files list and regenerate its test module each
time it is saved. Stop with Ctrl+C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := resolveWorkflow(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
			defer stop()

			return wf.Watch(ctx, domain.WatchArgs{FilesList: filesListArg(args)})
		},
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
