package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"synthtest.dev/pkg/synthtest/internal/domain"
	m "synthtest.dev/pkg/synthtest/internal/model"
)

var generateParallelFlag int
var generateSchemeFlag string
var generateMaxAttemptsFlag int
var generateInstructionsFlag string
var generateDiffFlag bool
var generateParserFlag string

// generateCmd represents the generate command.
var generateCmd = newGenerateCmd()

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [files-list]",
		Short: "Generate pytest modules for the listed sources",
		Long:  generateLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := resolveWorkflow(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
			defer stop()

			_, err = wf.Generate(ctx, domain.GenerateArgs{
				FilesList: filesListArg(args),
				Parallel:  viper.GetInt(generateParallelKey),
				Report:    m.Path(viper.GetString(generateReportKey)),
			})

			return err
		},
	}

	configureGenerateFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func configureGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&generateParallelFlag, parallelFlagName, "p", viper.GetInt(generateParallelKey), "number of source files processed concurrently")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), generateParallelKey)

	cmd.Flags().StringVar(&generateSchemeFlag, schemeFlagName, viper.GetString(generateSchemeKey), "category scheme: standard or boundary")
	bindFlagToConfig(cmd.Flags().Lookup(schemeFlagName), generateSchemeKey)

	cmd.Flags().IntVar(&generateMaxAttemptsFlag, maxAttemptsFlagName, viper.GetInt(generateMaxAttemptsKey), "generation attempts per source before the fallback stub is written")
	bindFlagToConfig(cmd.Flags().Lookup(maxAttemptsFlagName), generateMaxAttemptsKey)

	cmd.Flags().StringVar(&generateInstructionsFlag, instructionsFlagName, viper.GetString(generateInstructionsKey), "instruction template prepended to every prompt")
	bindFlagToConfig(cmd.Flags().Lookup(instructionsFlagName), generateInstructionsKey)

	cmd.Flags().BoolVar(&generateDiffFlag, diffFlagName, viper.GetBool(generateDiffKey), "show a diff against the previous test module")
	bindFlagToConfig(cmd.Flags().Lookup(diffFlagName), generateDiffKey)

	cmd.Flags().StringVar(&generateParserFlag, parserFlagName, viper.GetString(extractParserKey), "function discovery: regex or treesitter")
	bindFlagToConfig(cmd.Flags().Lookup(parserFlagName), extractParserKey)
}
