package controller

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "synthtest.dev/pkg/synthtest/internal/model"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	summaryBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type runInfoMsg RunInfo

type fileStartedMsg struct {
	path m.Path
}

type fileCompletedMsg struct {
	result m.FileResult
}

type summaryMsg struct {
	report m.RunReport
}

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	output io.Writer

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the Bubble Tea program in the background.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := resolveStartConfig(options)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program != nil {
		return fmt.Errorf("ui already started")
	}

	t.program = tea.NewProgram(newSynthesisModel(cfg.mode), tea.WithOutput(t.output), tea.WithContext(ctx))
	t.done = make(chan struct{})

	program, done := t.program, t.done

	go func() {
		defer close(done)

		_, _ = program.Run()
	}()

	return nil
}

// Close stops the program and waits for it to restore the terminal.
func (t *TUI) Close(_ context.Context) {
	program, done := t.snapshot()
	if program == nil {
		return
	}

	program.Quit()
	<-done

	t.mu.Lock()
	t.program = nil
	t.mu.Unlock()
}

// Wait blocks until the user quits or the program finishes on its own.
func (t *TUI) Wait(ctx context.Context) {
	_, done := t.snapshot()
	if done == nil {
		return
	}

	select {
	case <-ctx.Done():
	case <-done:
	}
}

// Done is closed once the program exits, whether the user quit or Close ran.
func (t *TUI) Done() <-chan struct{} {
	_, done := t.snapshot()

	return done
}

// DisplayRunInfo shows the batch header.
func (t *TUI) DisplayRunInfo(_ context.Context, info RunInfo) {
	t.send(runInfoMsg(info))
}

// DisplayFileStarted marks a file as in progress.
func (t *TUI) DisplayFileStarted(_ context.Context, path m.Path) {
	t.send(fileStartedMsg{path: path})
}

// DisplayFileCompleted records the outcome of a file.
func (t *TUI) DisplayFileCompleted(_ context.Context, result m.FileResult) {
	t.send(fileCompletedMsg{result: result})
}

// DisplaySummary shows the final report.
func (t *TUI) DisplaySummary(ctx context.Context, report m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.send(summaryMsg{report: report})

	return nil
}

func (t *TUI) snapshot() (*tea.Program, chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.program, t.done
}

func (t *TUI) send(msg tea.Msg) {
	program, _ := t.snapshot()
	if program != nil {
		program.Send(msg)
	}
}

// synthesisModel is the Bubble Tea model behind TUI.
type synthesisModel struct {
	mode      StartMode
	spinner   spinner.Model
	info      RunInfo
	active    []m.Path
	completed []m.FileResult
	report    *m.RunReport
	quitting  bool
}

func newSynthesisModel(mode StartMode) synthesisModel {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return synthesisModel{mode: mode, spinner: s}
}

func (sm synthesisModel) Init() tea.Cmd {
	return sm.spinner.Tick
}

func (sm synthesisModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			sm.quitting = true
			return sm, tea.Quit
		}

	case runInfoMsg:
		sm.info = RunInfo(msg)

	case fileStartedMsg:
		sm.active = append(sm.active, msg.path)

	case fileCompletedMsg:
		sm.active = removePath(sm.active, msg.result.Source)
		sm.completed = append(sm.completed, msg.result)

	case summaryMsg:
		report := msg.report
		sm.report = &report

		if sm.mode == ModeGenerate {
			sm.quitting = true
			return sm, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		sm.spinner, cmd = sm.spinner.Update(msg)

		return sm, cmd
	}

	return sm, nil
}

func (sm synthesisModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("synthtest"))
	b.WriteString("\n")

	if sm.info.Backend != "" {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%s · %s · scheme %s · %d worker(s)",
			sm.info.Backend, sm.info.Model, sm.info.Scheme, sm.info.Parallel)))
		b.WriteString("\n")
	}

	b.WriteString("\n")

	if sm.report != nil {
		b.WriteString(renderReport(*sm.report))

		if sm.mode == ModeView && !sm.quitting {
			b.WriteString(mutedStyle.Render("q: quit"))
			b.WriteString("\n")
		}

		return b.String()
	}

	for _, result := range sm.completed {
		b.WriteString(renderResultLine(result))
		b.WriteString("\n")
	}

	for _, path := range sm.active {
		fmt.Fprintf(&b, "%s %s\n", sm.spinner.View(), path)
	}

	if sm.info.Files > 0 {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%d/%d file(s) done", len(sm.completed), sm.info.Files)))
		b.WriteString("\n")
	}

	return b.String()
}

func renderResultLine(result m.FileResult) string {
	switch status := fileStatus(result); status {
	case statusOK:
		return okStyle.Render("✓") + " " + string(result.Source) + " → " + string(result.Output)
	case statusDegraded:
		return warnStyle.Render("!") + " " + string(result.Source) + " → " + string(result.Output) + mutedStyle.Render(" (fallback stub)")
	case statusSkipped:
		return mutedStyle.Render("- " + string(result.Source) + ": " + result.Error)
	default:
		return errorStyle.Render("✗") + " " + string(result.Source) + ": " + result.Error
	}
}

func renderReport(report m.RunReport) string {
	var b strings.Builder

	for _, result := range report.Files {
		b.WriteString(renderResultLine(result))
		b.WriteString("\n")
	}

	totals := fmt.Sprintf("Files %d · Generated %d · Failed %d",
		len(report.Files), len(report.Outputs()), len(report.Failed()))

	b.WriteString("\n")
	b.WriteString(summaryBorder.Render(totals))
	b.WriteString("\n")

	return b.String()
}

func removePath(paths []m.Path, target m.Path) []m.Path {
	for i, p := range paths {
		if p == target {
			return append(paths[:i:i], paths[i+1:]...)
		}
	}

	return paths
}
