// Package controller provides output adapters for displaying test synthesis progress.
package controller

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "synthtest.dev/pkg/synthtest/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeGenerate StartMode = iota
	ModeView
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithGenerateMode sets the UI to batch generation mode.
func WithGenerateMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeGenerate
	}
}

// WithViewMode sets the UI to report viewing mode.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

// Mode returns the configured start mode.
func (c StartConfig) Mode() StartMode {
	return c.mode
}

func resolveStartConfig(options []StartOption) StartConfig {
	cfg := StartConfig{mode: ModeGenerate}
	for _, opt := range options {
		opt(&cfg)
	}

	return cfg
}

// RunInfo describes a batch before it starts.
type RunInfo struct {
	Backend  string
	Model    string
	Scheme   string
	Files    int
	Parallel int
}

// UI defines the interface for displaying synthesis progress and reports.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	// Done is closed when the user quits the UI. A nil channel means the UI never quits on its own.
	Done() <-chan struct{}
	DisplayRunInfo(ctx context.Context, info RunInfo)
	DisplayFileStarted(ctx context.Context, path m.Path)
	DisplayFileCompleted(ctx context.Context, result m.FileResult)
	DisplaySummary(ctx context.Context, report m.RunReport) error
}

// NewUI returns the interactive TUI when useTTY is set and SimpleUI otherwise.
func NewUI(cmd *cobra.Command, useTTY bool) UI {
	if useTTY {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
