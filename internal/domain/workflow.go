package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"synthtest.dev/pkg/synthtest/internal/adapter"
	"synthtest.dev/pkg/synthtest/internal/controller"
	m "synthtest.dev/pkg/synthtest/internal/model"
)

// GenerateArgs contains the arguments for a batch generation run.
type GenerateArgs struct {
	FilesList m.Path
	Parallel  int
	Report    m.Path // empty disables saving
}

// ViewArgs contains the arguments for displaying a saved report.
type ViewArgs struct {
	Report m.Path
}

// ScanArgs contains the arguments for building a files list from a directory.
type ScanArgs struct {
	Root       m.Path
	Recursive  bool
	Extensions []string
	Output     m.Path // empty only returns the matches
}

// WatchArgs contains the arguments for regenerating tests on source changes.
type WatchArgs struct {
	FilesList m.Path
}

// RunDescription identifies the generation setup recorded in reports.
type RunDescription struct {
	Backend string
	Model   string
	Scheme  string
}

// Workflow defines the batch operations exposed to the CLI.
type Workflow interface {
	Generate(ctx context.Context, args GenerateArgs) (m.RunReport, error)
	ProcessFile(ctx context.Context, path m.Path) m.FileResult
	View(ctx context.Context, args ViewArgs) error
	Scan(ctx context.Context, args ScanArgs) ([]m.Path, error)
	Watch(ctx context.Context, args WatchArgs) error
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.ReportStore
	adapter.SourceWatcher
	controller.UI
	Extractor
	Synthesizer
	Materializer
	run RunDescription
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	reportStore adapter.ReportStore,
	watcher adapter.SourceWatcher,
	ui controller.UI,
	extractor Extractor,
	synthesizer Synthesizer,
	materializer Materializer,
	run RunDescription,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		ReportStore:     reportStore,
		SourceWatcher:   watcher,
		UI:              ui,
		Extractor:       extractor,
		Synthesizer:     synthesizer,
		Materializer:    materializer,
		run:             run,
	}
}

// Generate processes every file named in the files list. Per-file failures are
// recorded in the report and never stop the batch; only an unreadable files
// list or a cancelled context fails the run.
func (w *workflow) Generate(ctx context.Context, args GenerateArgs) (m.RunReport, error) {
	paths, err := w.readFilesList(ctx, args.FilesList)
	if err != nil {
		slog.Error("Failed to read files list", "path", args.FilesList, "error", err)
		return m.RunReport{}, err
	}

	report := m.RunReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Backend:   w.run.Backend,
		Model:     w.run.Model,
		Scheme:    w.run.Scheme,
	}

	parallel := max(args.Parallel, 1)

	if err := w.Start(ctx, controller.WithGenerateMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return m.RunReport{}, err
	}

	w.DisplayRunInfo(ctx, controller.RunInfo{
		Backend:  w.run.Backend,
		Model:    w.run.Model,
		Scheme:   w.run.Scheme,
		Files:    len(paths),
		Parallel: parallel,
	})

	report.Files = w.processAll(ctx, paths, parallel)
	report.FinishedAt = time.Now()

	if err := w.DisplaySummary(ctx, report); err != nil {
		slog.Error("Failed to display summary", "error", err)
	}

	w.Wait(ctx)
	w.Close(ctx)

	if err := ctx.Err(); err != nil {
		return report, err
	}

	if args.Report != "" {
		if err := w.SaveReport(ctx, args.Report, report); err != nil {
			slog.Error("Failed to save report", "path", args.Report, "error", err)
			return report, fmt.Errorf("save report: %w", err)
		}
	}

	return report, nil
}

func (w *workflow) readFilesList(ctx context.Context, list m.Path) ([]m.Path, error) {
	lines, err := w.ReadLines(ctx, list)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFilesList, list, err)
	}

	paths := make([]m.Path, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		paths = append(paths, m.Path(line))
	}

	return paths, nil
}

// processAll keeps results in input order regardless of completion order.
func (w *workflow) processAll(ctx context.Context, paths []m.Path, parallel int) []m.FileResult {
	results := make([]m.FileResult, len(paths))

	var group errgroup.Group

	group.SetLimit(parallel)

	for i, path := range paths {
		group.Go(func() error {
			results[i] = w.processListed(ctx, path)
			return nil
		})
	}

	_ = group.Wait()

	return results
}

func (w *workflow) processListed(ctx context.Context, path m.Path) m.FileResult {
	info, err := w.FileInfo(ctx, path)
	if err != nil || info.IsDir() {
		reason := "file not found"
		if err == nil {
			reason = "is a directory"
		} else if !errors.Is(err, os.ErrNotExist) {
			reason = err.Error()
		}

		slog.Warn("Skipping listed source", "path", path, "reason", reason)

		result := m.FileResult{Source: path, Skipped: true, Error: reason}
		w.DisplayFileCompleted(ctx, result)

		return result
	}

	return w.ProcessFile(ctx, path)
}

// ProcessFile runs extraction, synthesis and materialization for one source.
func (w *workflow) ProcessFile(ctx context.Context, path m.Path) m.FileResult {
	w.DisplayFileStarted(ctx, path)

	result := w.processFile(ctx, path)

	w.DisplayFileCompleted(ctx, result)

	return result
}

func (w *workflow) processFile(ctx context.Context, path m.Path) m.FileResult {
	result := m.FileResult{Source: path}

	fail := func(msg string, err error) m.FileResult {
		slog.Error(msg, "path", path, "error", err)
		result.Error = err.Error()

		return result
	}

	content, err := w.ReadFile(ctx, path)
	if err != nil {
		return fail("Failed to read source", fmt.Errorf("read %s: %w", path, err))
	}

	unit, err := w.Extract(ctx, path, string(content))
	if err != nil {
		return fail("Failed to extract functions", err)
	}

	result.Functions = unit.UniqueFunctions()

	synthesis, err := w.Synthesize(ctx, unit)
	result.Attempts = synthesis.Attempts
	result.Failures = synthesis.Failures

	if err != nil {
		return fail("Failed to synthesize tests", err)
	}

	result.Degraded = synthesis.Degraded
	result.Synthesized = synthesis.Synthesized

	written, err := w.Materialize(ctx, path, synthesis.Text)
	if err != nil {
		return fail("Failed to write test module", err)
	}

	result.Output = written.Output
	result.Diff = written.Diff

	slog.Info("Generated test module", "path", path, "output", written.Output, "attempts", synthesis.Attempts, "degraded", synthesis.Degraded)

	return result
}

// View loads a saved report and displays its summary.
func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	report, err := w.LoadReport(ctx, args.Report)
	if err != nil {
		slog.Error("Failed to load report", "path", args.Report, "error", err)
		return fmt.Errorf("load report: %w", err)
	}

	if err := w.Start(ctx, controller.WithViewMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	if err := w.DisplaySummary(ctx, report); err != nil {
		w.Close(ctx)
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)
	w.Close(ctx)

	return nil
}

// Scan lists source files under root, excluding generated test modules, and
// optionally writes them as a files list.
func (w *workflow) Scan(ctx context.Context, args ScanArgs) ([]m.Path, error) {
	extensions := make(map[string]struct{}, len(args.Extensions))
	for _, ext := range args.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}

		extensions[ext] = struct{}{}
	}

	var paths []m.Path

	err := w.Walk(ctx, args.Root, args.Recursive, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		if _, ok := extensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		base := filepath.Base(path)
		if strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), testSuffix) {
			return nil
		}

		paths = append(paths, m.Path(path))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", args.Root, err)
	}

	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	if args.Output == "" {
		return paths, nil
	}

	var b strings.Builder
	for _, p := range paths {
		b.WriteString(string(p))
		b.WriteString("\n")
	}

	if err := w.WriteFileSync(ctx, args.Output, []byte(b.String()), 0o644); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWrite, args.Output, err)
	}

	slog.Info("Wrote files list", "path", args.Output, "files", len(paths))

	return paths, nil
}

// Watch regenerates the test module of a listed source each time it is
// written, until ctx is done. Listed paths that do not exist are skipped.
func (w *workflow) Watch(ctx context.Context, args WatchArgs) error {
	listed, err := w.readFilesList(ctx, args.FilesList)
	if err != nil {
		slog.Error("Failed to read files list", "path", args.FilesList, "error", err)
		return err
	}

	paths := make([]m.Path, 0, len(listed))

	for _, path := range listed {
		info, err := w.FileInfo(ctx, path)
		if err != nil || info.IsDir() {
			slog.Warn("Not watching listed source", "path", path, "error", err)
			continue
		}

		paths = append(paths, path)
	}

	if len(paths) == 0 {
		return fmt.Errorf("%w: %s lists no existing sources", ErrFilesList, args.FilesList)
	}

	if err := w.Start(ctx, controller.WithGenerateMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	defer w.Close(ctx)

	w.DisplayRunInfo(ctx, controller.RunInfo{
		Backend:  w.run.Backend,
		Model:    w.run.Model,
		Scheme:   w.run.Scheme,
		Files:    len(paths),
		Parallel: 1,
	})

	slog.Info("Watching sources", "files", len(paths))

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-w.Done():
			slog.Info("UI closed, stopping watch")
			cancel()
		case <-watchCtx.Done():
		}
	}()

	err = w.SourceWatcher.Watch(watchCtx, paths, func(ctx context.Context, path m.Path) {
		w.ProcessFile(ctx, path)
	})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	return nil
}
