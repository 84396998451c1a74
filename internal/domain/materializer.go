package domain

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"synthtest.dev/pkg/synthtest/internal/adapter"
	m "synthtest.dev/pkg/synthtest/internal/model"
)

const testSuffix = "_test"

// TestPath returns <base>_test<ext> for a source path.
func TestPath(source m.Path) m.Path {
	s := string(source)
	ext := filepath.Ext(s)

	return m.Path(strings.TrimSuffix(s, ext) + testSuffix + ext)
}

// ModuleName returns the importable module name of a source path.
func ModuleName(source m.Path) string {
	base := filepath.Base(string(source))

	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Materialized describes a written test module.
type Materialized struct {
	Output m.Path
	Diff   string // unified diff against the previous output, when requested
}

// Materializer writes synthesized modules next to their sources.
type Materializer interface {
	Materialize(ctx context.Context, source m.Path, text string) (Materialized, error)
}

type materializer struct {
	adapter.SourceFSAdapter
	diff bool
}

// NewMaterializer creates a Materializer. With diff set, the previous content
// of the destination is compared against the new content before it is
// overwritten.
func NewMaterializer(fs adapter.SourceFSAdapter, diff bool) Materializer {
	return &materializer{
		SourceFSAdapter: fs,
		diff:            diff,
	}
}

// Materialize rewrites the self-import, writes the module durably and returns
// the destination path. Write errors are wrapped in ErrWrite.
func (w *materializer) Materialize(ctx context.Context, source m.Path, text string) (Materialized, error) {
	out := TestPath(source)
	content := strings.ReplaceAll(text, selfImport, "from "+ModuleName(source)+" import *")

	var result Materialized

	result.Output = out

	if w.diff {
		if previous, err := w.ReadFile(ctx, out); err == nil {
			diff, err := unifiedDiff(string(out), string(previous), content)
			if err != nil {
				return Materialized{}, fmt.Errorf("diff %s: %w", out, err)
			}

			result.Diff = diff
		}
	}

	if err := w.WriteFileSync(ctx, out, []byte(content), 0o644); err != nil {
		return Materialized{}, fmt.Errorf("%w: %s: %w", ErrWrite, out, err)
	}

	return result, nil
}

func unifiedDiff(name, previous, current string) (string, error) {
	if previous == current {
		return "", nil
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(previous),
		B:        difflib.SplitLines(current),
		FromFile: name + " (previous)",
		ToFile:   name,
		Context:  3,
	})
}
