package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"synthtest.dev/pkg/synthtest/internal/domain"
	m "synthtest.dev/pkg/synthtest/internal/model"
)

var scanRecursiveFlag bool
var scanExtensionsFlag []string
var scanFilesListFlag string

// scanCmd represents the scan command.
var scanCmd = newScanCmd()

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Write a files list of the sources under a directory",
		Long: `Scan a directory for source files and write them, sorted, to the files list
used by generate. Generated *_test modules are never listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := resolveWorkflow(cmd)
			if err != nil {
				return err
			}

			output := m.Path(viper.GetString(generateFilesListKey))

			paths, err := wf.Scan(commandContext(cmd), domain.ScanArgs{
				Root:       m.Path(args[0]),
				Recursive:  viper.GetBool(scanRecursiveKey),
				Extensions: viper.GetStringSlice(scanExtensionsKey),
				Output:     output,
			})
			if err != nil {
				return err
			}

			cmd.Printf("Listed %d source file(s) in %s\n", len(paths), output)

			return nil
		},
	}

	configureScanFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func configureScanFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&scanRecursiveFlag, recursiveFlagName, "R", viper.GetBool(scanRecursiveKey), "descend into subdirectories")
	bindFlagToConfig(cmd.Flags().Lookup(recursiveFlagName), scanRecursiveKey)

	cmd.Flags().StringArrayVarP(&scanExtensionsFlag, extFlagName, "e", viper.GetStringSlice(scanExtensionsKey), "source file extension (can be repeated)")
	bindFlagToConfig(cmd.Flags().Lookup(extFlagName), scanExtensionsKey)

	cmd.Flags().StringVarP(&scanFilesListFlag, filesListFlagName, "f", viper.GetString(generateFilesListKey), "files list to write")
	bindFlagToConfig(cmd.Flags().Lookup(filesListFlagName), generateFilesListKey)
}
