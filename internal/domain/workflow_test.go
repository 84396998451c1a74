package domain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"synthtest.dev/pkg/synthtest/internal/adapter"
	"synthtest.dev/pkg/synthtest/internal/adapter/mocks"
	"synthtest.dev/pkg/synthtest/internal/controller"
	m "synthtest.dev/pkg/synthtest/internal/model"
)

type recordingUI struct {
	mu        sync.Mutex
	modes     []controller.StartMode
	info      controller.RunInfo
	started   []m.Path
	completed []m.FileResult
	summaries []m.RunReport
	closed    bool
	quit      chan struct{}
}

func (u *recordingUI) Start(_ context.Context, options ...controller.StartOption) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	var cfg controller.StartConfig
	for _, opt := range options {
		opt(&cfg)
	}

	u.modes = append(u.modes, cfg.Mode())

	return nil
}

func (u *recordingUI) Close(context.Context) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closed = true
}

func (u *recordingUI) Wait(context.Context) {}

func (u *recordingUI) Done() <-chan struct{} {
	return u.quit
}

func (u *recordingUI) DisplayRunInfo(_ context.Context, info controller.RunInfo) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.info = info
}

func (u *recordingUI) DisplayFileStarted(_ context.Context, path m.Path) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.started = append(u.started, path)
}

func (u *recordingUI) DisplayFileCompleted(_ context.Context, result m.FileResult) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.completed = append(u.completed, result)
}

func (u *recordingUI) DisplaySummary(_ context.Context, report m.RunReport) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.summaries = append(u.summaries, report)

	return nil
}

// synthesizerFunc adapts a function to Synthesizer.
type synthesizerFunc func(ctx context.Context, unit m.SourceUnit) (m.SynthesisResult, error)

func (f synthesizerFunc) Synthesize(ctx context.Context, unit m.SourceUnit) (m.SynthesisResult, error) {
	return f(ctx, unit)
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func writeFilesList(t *testing.T, dir string, paths ...string) m.Path {
	t.Helper()

	list := filepath.Join(dir, "files.txt")

	var contents string
	for _, p := range paths {
		contents += p + "\n"
	}

	writeFile(t, list, contents)

	return m.Path(list)
}

func newTestWorkflow(store adapter.ReportStore, ui controller.UI, synth Synthesizer) Workflow {
	fs := adapter.NewLocalSourceFSAdapter()

	return NewWorkflow(
		fs,
		store,
		adapter.NewFSNotifySourceWatcher(20*time.Millisecond),
		ui,
		NewExtractor(adapter.NewRegexDeclarationScanner(), DefaultNameTable()),
		synth,
		NewMaterializer(fs, false),
		RunDescription{Backend: "ollama", Model: "starcoder:7b", Scheme: m.SchemeStandard},
	)
}

func TestWorkflow_Generate(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	calc := filepath.Join(dir, "calc.py")
	empty := filepath.Join(dir, "empty.py")
	missing := filepath.Join(dir, "missing.py")
	subdir := filepath.Join(dir, "pkg")

	writeFile(t, calc, calcSource)
	writeFile(t, empty, "")
	require.NoError(t, os.Mkdir(subdir, 0o755))

	list := writeFilesList(t, dir, calc, "", empty, missing, subdir)

	backend := mocks.NewMockBackend(t)
	backend.On("Generate", mock.Anything, mock.Anything).
		Return(mocks.Chunks(wellFormedBlock("add", "basic_1"), wellFormedBlock("divide", "basic_1")), nil).
		Once()

	store := mocks.NewMockReportStore(t)
	store.On("SaveReport", mock.Anything, m.Path("report.yaml"), mock.MatchedBy(func(r m.RunReport) bool {
		return r.ID != "" && len(r.Files) == 4
	})).Return(nil).Once()

	ui := &recordingUI{}
	wf := newTestWorkflow(store, ui, newTestSynthesizer(backend, SynthesizerOptions{}))

	report, err := wf.Generate(context.Background(), GenerateArgs{FilesList: list, Parallel: 2, Report: "report.yaml"})
	require.NoError(t, err)

	require.Len(t, report.Files, 4)
	assert.Equal(t, "ollama", report.Backend)
	assert.Equal(t, m.SchemeStandard, report.Scheme)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	ok := report.Files[0]
	assert.Equal(t, m.Path(calc), ok.Source)
	assert.Equal(t, m.Path(filepath.Join(dir, "calc_test.py")), ok.Output)
	assert.Equal(t, []m.FunctionName{"add", "divide"}, ok.Functions)
	assert.Equal(t, 1, ok.Attempts)
	assert.Equal(t, 10, ok.Synthesized)
	assert.True(t, ok.Succeeded())

	content, err := os.ReadFile(filepath.Join(dir, "calc_test.py"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "from calc import *")
	assert.Len(t, declarations(string(content)), 12)

	noFuncs := report.Files[1]
	assert.Contains(t, noFuncs.Error, ErrNoFunctions.Error())
	assert.Empty(t, noFuncs.Output)
	assert.NoFileExists(t, filepath.Join(dir, "empty_test.py"))

	assert.Equal(t, m.FileResult{Source: m.Path(missing), Skipped: true, Error: "file not found"}, report.Files[2])
	assert.Equal(t, m.FileResult{Source: m.Path(subdir), Skipped: true, Error: "is a directory"}, report.Files[3])

	assert.Equal(t, []m.Path{m.Path(filepath.Join(dir, "calc_test.py"))}, report.Outputs())
	assert.Len(t, report.Failed(), 1)

	assert.Equal(t, []controller.StartMode{controller.ModeGenerate}, ui.modes)
	assert.Equal(t, controller.RunInfo{Backend: "ollama", Model: "starcoder:7b", Scheme: m.SchemeStandard, Files: 4, Parallel: 2}, ui.info)
	assert.ElementsMatch(t, []m.Path{m.Path(calc), m.Path(empty)}, ui.started)
	assert.Len(t, ui.completed, 4)
	assert.Len(t, ui.summaries, 1)
	assert.True(t, ui.closed)
}

func TestWorkflow_Generate_PreservesInputOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()

	var paths []string
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		path := filepath.Join(dir, name+".py")
		writeFile(t, path, "def "+name+"(x):\n    return x\n")
		paths = append(paths, path)
	}

	delays := map[string]time.Duration{"a": 30 * time.Millisecond, "b": 5 * time.Millisecond, "c": 20 * time.Millisecond}

	var (
		mu        sync.Mutex
		inFlight  int
		maxFlight int
	)

	synth := synthesizerFunc(func(_ context.Context, unit m.SourceUnit) (m.SynthesisResult, error) {
		mu.Lock()
		inFlight++
		maxFlight = max(maxFlight, inFlight)
		mu.Unlock()

		time.Sleep(delays[ModuleName(unit.Path)])

		mu.Lock()
		inFlight--
		mu.Unlock()

		return m.SynthesisResult{Text: FailureStub, Attempts: 1}, nil
	})

	wf := newTestWorkflow(mocks.NewMockReportStore(t), &recordingUI{}, synth)

	report, err := wf.Generate(context.Background(), GenerateArgs{FilesList: writeFilesList(t, dir, paths...), Parallel: 3})
	require.NoError(t, err)

	var got []string
	for _, f := range report.Files {
		got = append(got, string(f.Source))
	}

	if diff := cmp.Diff(paths, got); diff != "" {
		t.Errorf("report order mismatch (-want +got):\n%s", diff)
	}

	assert.LessOrEqual(t, maxFlight, 3)
}

func TestWorkflow_Generate_FilesListUnavailable(t *testing.T) {
	ui := &recordingUI{}
	wf := newTestWorkflow(mocks.NewMockReportStore(t), ui, nil)

	_, err := wf.Generate(context.Background(), GenerateArgs{FilesList: m.Path(filepath.Join(t.TempDir(), "nope.txt"))})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFilesList)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, ui.modes)
}

func TestWorkflow_Generate_SaveReportError(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "calc.py")
	writeFile(t, source, calcSource)

	store := mocks.NewMockReportStore(t)
	store.On("SaveReport", mock.Anything, m.Path("out.yaml"), mock.Anything).Return(errors.New("disk full")).Once()

	synth := synthesizerFunc(func(context.Context, m.SourceUnit) (m.SynthesisResult, error) {
		return m.SynthesisResult{Text: FailureStub, Attempts: 3, Degraded: true}, nil
	})

	report, err := newTestWorkflow(store, &recordingUI{}, synth).Generate(context.Background(), GenerateArgs{
		FilesList: writeFilesList(t, dir, source),
		Report:    "out.yaml",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save report")
	require.Len(t, report.Files, 1)
	assert.True(t, report.Files[0].Degraded)
}

func TestWorkflow_Generate_Cancelled(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "calc.py")
	writeFile(t, source, calcSource)

	ctx, cancel := context.WithCancel(context.Background())

	synth := synthesizerFunc(func(ctx context.Context, _ m.SourceUnit) (m.SynthesisResult, error) {
		cancel()
		return m.SynthesisResult{Text: FailureStub, Degraded: true}, ctx.Err()
	})

	// SaveReport has no expectation and must not be called.
	report, err := newTestWorkflow(mocks.NewMockReportStore(t), &recordingUI{}, synth).Generate(ctx, GenerateArgs{
		FilesList: writeFilesList(t, dir, source),
		Report:    "report.yaml",
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, report.Files, 1)
	assert.Empty(t, report.Files[0].Output)
	assert.NoFileExists(t, filepath.Join(dir, "calc_test.py"))
}

func TestWorkflow_View(t *testing.T) {
	saved := m.RunReport{ID: "run-1", Backend: "openai", Files: []m.FileResult{{Source: "calc.py", Output: "calc_test.py"}}}

	store := mocks.NewMockReportStore(t)
	store.On("LoadReport", mock.Anything, m.Path("report.yaml")).Return(saved, nil).Once()

	ui := &recordingUI{}
	require.NoError(t, newTestWorkflow(store, ui, nil).View(context.Background(), ViewArgs{Report: "report.yaml"}))

	assert.Equal(t, []controller.StartMode{controller.ModeView}, ui.modes)
	assert.Equal(t, []m.RunReport{saved}, ui.summaries)
	assert.True(t, ui.closed)
}

func TestWorkflow_View_LoadError(t *testing.T) {
	store := mocks.NewMockReportStore(t)
	store.On("LoadReport", mock.Anything, m.Path("gone.yaml")).Return(nil, os.ErrNotExist).Once()

	ui := &recordingUI{}
	err := newTestWorkflow(store, ui, nil).View(context.Background(), ViewArgs{Report: "gone.yaml"})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, ui.modes)
}

func TestWorkflow_Scan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.PY"), "def b(): pass\n")
	writeFile(t, filepath.Join(dir, "a.py"), "def a(): pass\n")
	writeFile(t, filepath.Join(dir, "a_test.py"), "def test_a(): pass\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "notes\n")
	writeFile(t, filepath.Join(dir, "sub", "c.py"), "def c(): pass\n")

	wf := newTestWorkflow(mocks.NewMockReportStore(t), &recordingUI{}, nil)

	flat, err := wf.Scan(context.Background(), ScanArgs{Root: m.Path(dir), Extensions: []string{"py"}})
	require.NoError(t, err)
	assert.Equal(t, []m.Path{m.Path(filepath.Join(dir, "a.py")), m.Path(filepath.Join(dir, "b.PY"))}, flat)

	output := filepath.Join(dir, "files.txt")

	deep, err := wf.Scan(context.Background(), ScanArgs{Root: m.Path(dir), Recursive: true, Extensions: []string{".py"}, Output: m.Path(output)})
	require.NoError(t, err)
	require.Len(t, deep, 3)
	assert.Equal(t, m.Path(filepath.Join(dir, "sub", "c.py")), deep[2])

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, string(deep[0])+"\n"+string(deep[1])+"\n"+string(deep[2])+"\n", string(content))
}

func TestWorkflow_Scan_KeepsSourcesNamedLikeTests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "unit_testing.py"), "def setup(): pass\n")
	writeFile(t, filepath.Join(dir, "my_test_utils.py"), "def helper(): pass\n")
	writeFile(t, filepath.Join(dir, "calc.py"), calcSource)
	writeFile(t, filepath.Join(dir, "calc_test.py"), "def test_add(): pass\n")
	writeFile(t, filepath.Join(dir, "shout_test.PY"), "def test_shout(): pass\n")

	got, err := newTestWorkflow(mocks.NewMockReportStore(t), &recordingUI{}, nil).Scan(context.Background(), ScanArgs{
		Root:       m.Path(dir),
		Extensions: []string{".py"},
	})
	require.NoError(t, err)

	want := []m.Path{
		m.Path(filepath.Join(dir, "calc.py")),
		m.Path(filepath.Join(dir, "my_test_utils.py")),
		m.Path(filepath.Join(dir, "unit_testing.py")),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Scan() mismatch (-want +got):\n%s", diff)
	}
}

func TestWorkflow_Scan_MissingRoot(t *testing.T) {
	wf := newTestWorkflow(mocks.NewMockReportStore(t), &recordingUI{}, nil)

	_, err := wf.Scan(context.Background(), ScanArgs{Root: m.Path(filepath.Join(t.TempDir(), "absent")), Extensions: []string{".py"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWorkflow_Watch_RegeneratesOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	source := filepath.Join(dir, "calc.py")
	writeFile(t, source, calcSource)

	list := writeFilesList(t, dir, source, filepath.Join(dir, "missing.py"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	synthesized := make(chan m.Path, 8)
	synth := synthesizerFunc(func(_ context.Context, unit m.SourceUnit) (m.SynthesisResult, error) {
		synthesized <- unit.Path
		return m.SynthesisResult{Text: FailureStub, Attempts: 1}, nil
	})

	ui := &recordingUI{}
	done := make(chan error, 1)

	go func() {
		done <- newTestWorkflow(mocks.NewMockReportStore(t), ui, synth).Watch(ctx, WatchArgs{FilesList: list})
	}()

	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

loop:
	for {
		select {
		case got := <-synthesized:
			assert.Equal(t, m.Path(source), got)
			break loop
		case <-ticker.C:
			writeFile(t, source, calcSource+"\n")
		case <-deadline:
			t.Fatal("timed out waiting for regeneration")
		}
	}

	cancel()
	require.NoError(t, <-done)

	assert.FileExists(t, filepath.Join(dir, "calc_test.py"))

	ui.mu.Lock()
	defer ui.mu.Unlock()

	assert.Equal(t, 1, ui.info.Files)
	assert.True(t, ui.closed)
}

func TestWorkflow_Watch_StopsWhenUIQuits(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	source := filepath.Join(dir, "calc.py")
	writeFile(t, source, calcSource)

	list := writeFilesList(t, dir, source)

	ui := &recordingUI{quit: make(chan struct{})}
	done := make(chan error, 1)

	go func() {
		done <- newTestWorkflow(mocks.NewMockReportStore(t), ui, nil).Watch(context.Background(), WatchArgs{FilesList: list})
	}()

	close(ui.quit)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch kept running after the UI quit")
	}

	ui.mu.Lock()
	defer ui.mu.Unlock()

	assert.True(t, ui.closed)
}

func TestWorkflow_Watch_NothingToWatch(t *testing.T) {
	dir := t.TempDir()
	list := writeFilesList(t, dir, filepath.Join(dir, "missing.py"))

	err := newTestWorkflow(mocks.NewMockReportStore(t), &recordingUI{}, nil).Watch(context.Background(), WatchArgs{FilesList: list})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFilesList)
}
