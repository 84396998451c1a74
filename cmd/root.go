// Package cmd provides the root command and CLI setup for synthtest.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"synthtest.dev/pkg/synthtest/internal/adapter"
	"synthtest.dev/pkg/synthtest/internal/controller"
	"synthtest.dev/pkg/synthtest/internal/domain"
	m "synthtest.dev/pkg/synthtest/internal/model"
)

// workflow is built from configuration on first use. Tests replace it with a mock.
var workflow domain.Workflow

var backendKindFlag string
var backendModelFlag string
var backendEndpointFlag string
var reportFlag string
var verboseFlag bool

const rootLongDescription = `Synthtest writes pytest suites for Python modules with a generative model.

For every function it finds, the generated module holds exactly one test per
category of the selected scheme. Tests the model fails to produce, or produces
malformed, are replaced with deterministic fallbacks, so the output is always
complete and importable.

Configuration is read from synthtest.yaml and SYNTHTEST_* environment variables.`

const generateLongDescription = `Generate a <name>_test.py module for every source listed in the files list
(default: generate.files_list). Missing sources are skipped, failures are
recorded per file and never stop the batch.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func init() {
	configureRootFlags(rootCmd)
}

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "synthtest",
		Short: "LLM-driven pytest generator",
		Long:  rootLongDescription,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&backendKindFlag, backendKindFlagName, "b", viper.GetString(backendKindKey), "generative backend: ollama, openai or gemini")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(backendKindFlagName), backendKindKey)

	cmd.PersistentFlags().StringVarP(&backendModelFlag, backendModelFlagName, "m", viper.GetString(backendModelKey), "model name passed to the backend")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(backendModelFlagName), backendModelKey)

	cmd.PersistentFlags().StringVar(&backendEndpointFlag, backendEndpointFlagName, viper.GetString(backendEndpointKey), "backend base URL (default: the backend's public endpoint)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(backendEndpointFlagName), backendEndpointKey)

	cmd.PersistentFlags().StringVarP(&reportFlag, reportFlagName, "r", viper.GetString(generateReportKey), "run report path (empty disables saving)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(reportFlagName), generateReportKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

func resolveWorkflow(cmd *cobra.Command) (domain.Workflow, error) {
	if workflow != nil {
		return workflow, nil
	}

	wf, err := newWorkflowFromConfig(cmd)
	if err != nil {
		return nil, err
	}

	workflow = wf

	return wf, nil
}

// newWorkflowFromConfig wires adapters and pipeline stages from the current
// viper configuration.
func newWorkflowFromConfig(cmd *cobra.Command) (domain.Workflow, error) {
	backend, err := adapter.NewBackend(commandContext(cmd), adapter.BackendConfig{
		Kind:              viper.GetString(backendKindKey),
		Model:             viper.GetString(backendModelKey),
		Endpoint:          viper.GetString(backendEndpointKey),
		APIKey:            viper.GetString(backendAPIKeyKey),
		Timeout:           time.Duration(viper.GetInt64(backendTimeoutKey)) * time.Second,
		RequestsPerMinute: viper.GetInt(backendRPMKey),
	})
	if err != nil {
		return nil, fmt.Errorf("configure backend: %w", err)
	}

	scheme, err := m.SchemeByName(viper.GetString(generateSchemeKey))
	if err != nil {
		return nil, err
	}

	rules, err := domain.ParseFamilyRules(viper.GetStringSlice(extractFamiliesKey))
	if err != nil {
		return nil, fmt.Errorf("configure %s: %w", extractFamiliesKey, err)
	}

	names, err := domain.NewNameTable(rules)
	if err != nil {
		return nil, fmt.Errorf("configure %s: %w", extractFamiliesKey, err)
	}

	scanner, err := adapter.NewDeclarationScanner(viper.GetString(extractParserKey))
	if err != nil {
		return nil, fmt.Errorf("configure %s: %w", extractParserKey, err)
	}

	client := domain.NewGenerationClient(backend, viper.GetString(backendSystemKey), m.GenerationParams{
		MaxTokens:   viper.GetInt(backendMaxTokensKey),
		Temperature: viper.GetFloat64(backendTemperatureKey),
		TopP:        viper.GetFloat64(backendTopPKey),
		Stop:        viper.GetStringSlice(backendStopKey),
		Stream:      viper.GetBool(backendStreamKey),
	})

	synthesizer := domain.NewSynthesizer(
		client,
		adapter.NewFileTemplateSource(m.Path(viper.GetString(generateInstructionsKey))),
		domain.NewNormalizer(scheme, names),
		domain.SynthesizerOptions{
			MaxAttempts: viper.GetInt(generateMaxAttemptsKey),
			RetryDelay:  time.Duration(viper.GetInt64(generateRetryDelayKey)) * time.Second,
		},
	)

	fs := adapter.NewLocalSourceFSAdapter()

	return domain.NewWorkflow(
		fs,
		adapter.NewYAMLReportStore(),
		adapter.NewFSNotifySourceWatcher(adapter.DefaultWatchDebounce),
		controller.NewUI(cmd, controller.IsTTY(os.Stdout)),
		domain.NewExtractor(scanner, names),
		synthesizer,
		domain.NewMaterializer(fs, viper.GetBool(generateDiffKey)),
		domain.RunDescription{
			Backend: backend.Name(),
			Model:   viper.GetString(backendModelKey),
			Scheme:  scheme.Name,
		},
	), nil
}

func filesListArg(args []string) m.Path {
	if len(args) > 0 {
		return m.Path(args[0])
	}

	return m.Path(viper.GetString(generateFilesListKey))
}
