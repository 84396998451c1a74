package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "synthtest.dev/pkg/synthtest/internal/model"
)

// Status labels shared by the text and terminal UIs.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusSkipped  = "skipped"
	statusFailed   = "failed"
)

// SimpleUI implements UI using cobra Command's output writer.
type SimpleUI struct {
	cmd *cobra.Command
	mu  sync.Mutex
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(_ context.Context) {}

// Done returns nil: plain output has nothing for the user to quit.
func (s *SimpleUI) Done() <-chan struct{} {
	return nil
}

// DisplayRunInfo prints the backend and batch settings.
func (s *SimpleUI) DisplayRunInfo(ctx context.Context, info RunInfo) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Generating tests for %d file(s) with %s (%s), scheme %s, %d worker(s)\n",
		info.Files, info.Backend, info.Model, info.Scheme, info.Parallel)
}

// DisplayFileStarted announces a source file.
func (s *SimpleUI) DisplayFileStarted(ctx context.Context, path m.Path) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Processing %s\n", path)
}

// DisplayFileCompleted prints the outcome of one source file.
func (s *SimpleUI) DisplayFileCompleted(_ context.Context, result m.FileResult) {
	switch status := fileStatus(result); status {
	case statusSkipped:
		s.printf("Skipped %s: %s\n", result.Source, result.Error)
	case statusFailed:
		s.printf("Failed %s: %s\n", result.Source, result.Error)
	default:
		s.printf("Wrote %s (%s, %d attempt(s), %d fallback block(s))\n",
			result.Output, status, result.Attempts, result.Synthesized)
	}

	if result.Diff != "" {
		s.printf("%s", result.Diff)
	}
}

// DisplaySummary prints a table of every file in the report.
func (s *SimpleUI) DisplaySummary(ctx context.Context, report m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderSummaryTable(report))

	outputs := report.Outputs()
	if len(outputs) > 0 {
		s.printf("Generated: %s\n", joinPaths(outputs))
	}

	return nil
}

func renderSummaryTable(report m.RunReport) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Source", "Output", "Functions", "Attempts", "Status"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT,
	})

	for _, f := range report.Files {
		table.Append([]string{
			string(f.Source),
			string(f.Output),
			fmt.Sprintf("%d", len(f.Functions)),
			fmt.Sprintf("%d", f.Attempts),
			fileStatus(f),
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(report.Files)),
		fmt.Sprintf("Generated %d", len(report.Outputs())),
		"",
		"",
		fmt.Sprintf("Failed %d", len(report.Failed())),
	})

	table.Render()

	return tableBuffer.String()
}

func fileStatus(result m.FileResult) string {
	switch {
	case result.Skipped:
		return statusSkipped
	case !result.Succeeded():
		return statusFailed
	case result.Degraded:
		return statusDegraded
	}

	return statusOK
}

func joinPaths(paths []m.Path) string {
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		parts = append(parts, string(p))
	}

	return strings.Join(parts, ", ")
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
