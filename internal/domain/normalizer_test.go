package domain

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "synthtest.dev/pkg/synthtest/internal/model"
)

var declLine = regexp.MustCompile(`(?m)^def (test_\w+)\(\):$`)

func declarations(text string) []string {
	var names []string
	for _, match := range declLine.FindAllStringSubmatch(text, -1) {
		names = append(names, match[1])
	}

	return names
}

func wellFormedBlock(fn m.FunctionName, category m.TestCategory) string {
	return fmt.Sprintf("def test_%s_%s():\n    # generated\n    assert %s(%d) == %s(%d)\n", fn, category, fn, len(category), fn, len(category))
}

func standardNormalizer() *Normalizer {
	return NewNormalizer(m.StandardScheme(), DefaultNameTable())
}

func TestNormalize_CategoryCompleteness(t *testing.T) {
	inputs := map[string]string{
		"empty":          "",
		"whitespace":     "   \n\n\t",
		"prose only":     "I cannot help with that request.",
		"garbage":        "def test_\nassert\n```\n```python",
		"unknown names":  "def test_other_basic_1():\n    assert other(1) == 1\n",
		"bad categories": "def test_add_smoke_1():\n    assert add(1) == 1\n",
		"duplicates":     wellFormedBlock("add", "basic_1") + wellFormedBlock("add", "basic_1"),
	}

	functions := []m.FunctionName{"add", "divide", "add"}

	for _, scheme := range []m.CategoryScheme{m.StandardScheme(), m.BoundaryScheme()} {
		for name, raw := range inputs {
			t.Run(scheme.Name+"/"+name, func(t *testing.T) {
				n := NewNormalizer(scheme, DefaultNameTable())
				out := n.Normalize(raw, functions)

				var want []string
				for _, fn := range []m.FunctionName{"add", "divide"} {
					for _, c := range scheme.Categories {
						want = append(want, "test_"+string(fn)+"_"+string(c))
					}
				}

				assert.Equal(t, want, declarations(out.Text))
				assert.Len(t, out.Blocks, 2*len(scheme.Categories))
			})
		}
	}
}

func TestNormalize_FullSuccess(t *testing.T) {
	var raw strings.Builder

	// Emit divide before add and categories in reverse to check reordering.
	for _, fn := range []m.FunctionName{"divide", "add"} {
		cats := m.StandardScheme().Categories
		for i := len(cats) - 1; i >= 0; i-- {
			raw.WriteString(wellFormedBlock(fn, cats[i]))
			raw.WriteString("\n")
		}
	}

	out := standardNormalizer().Normalize(raw.String(), []m.FunctionName{"add", "divide"})

	assert.Zero(t, out.Synthesized)
	assert.Equal(t, []string{
		"test_add_basic_1", "test_add_basic_2", "test_add_edge_1", "test_add_edge_2", "test_add_error_1", "test_add_error_2",
		"test_divide_basic_1", "test_divide_basic_2", "test_divide_edge_1", "test_divide_edge_2", "test_divide_error_1", "test_divide_error_2",
	}, declarations(out.Text))

	assert.True(t, strings.HasPrefix(out.Text, "import pytest\nimport sys\nimport math\nfrom test import *\n\ndef test_add_basic_1():\n"))
	assert.True(t, strings.HasSuffix(out.Text, "\n"))
	assert.NotContains(t, out.Text, "# Fallback:")
	assert.NotContains(t, out.Text, "\n\n\n")
}

func TestNormalize_PartialOutput(t *testing.T) {
	raw := wellFormedBlock("square", "basic_1") + wellFormedBlock("square", "edge_1")

	out := standardNormalizer().Normalize(raw, []m.FunctionName{"square"})

	assert.Equal(t, 4, out.Synthesized)

	synthesized := map[m.TestCategory]bool{}
	for _, b := range out.Blocks {
		synthesized[b.Category] = b.Synthesized
	}

	assert.Equal(t, map[m.TestCategory]bool{
		"basic_1": false, "basic_2": true,
		"edge_1": false, "edge_2": true,
		"error_1": true, "error_2": true,
	}, synthesized)

	for _, b := range out.Blocks {
		if b.Synthesized {
			require.NotEmpty(t, b.Body)
			assert.True(t, strings.HasPrefix(strings.TrimSpace(b.Body[0]), "# Fallback:"))
		}
	}

	assert.Equal(t, 4, strings.Count(out.Text, "# Fallback:"))
}

func TestNormalize_ProseContamination(t *testing.T) {
	raw := "Sure! Here are the tests you asked for.\n" +
		"They cover the basic behaviour.\n\n" +
		wellFormedBlock("add", "basic_1") +
		"This test checks addition.\n" +
		"```\n"

	out := standardNormalizer().Normalize(raw, []m.FunctionName{"add"})

	assert.NotContains(t, out.Text, "Sure!")
	assert.NotContains(t, out.Text, "behaviour")
	assert.NotContains(t, out.Text, "checks addition")
	assert.NotContains(t, out.Text, "```")
	assert.Equal(t, 5, out.Synthesized)
}

func TestNormalize_FenceStripping(t *testing.T) {
	content := wellFormedBlock("add", "basic_1") +
		"def test_add_error_1():\n" +
		"    with pytest.raises(TypeError):\n" +
		"        add(None, 1)\n" +
		wellFormedBlock("add", "edge_2")

	wrapped := "Here you go:\n```python\n" + content + "```\nLet me know if you need more.\n```\nassert stray\n```\n"

	n := standardNormalizer()
	functions := []m.FunctionName{"add"}

	if diff := cmp.Diff(n.Normalize(content, functions), n.Normalize(wrapped, functions)); diff != "" {
		t.Errorf("wrapped and unwrapped normalization differ (-unwrapped +wrapped):\n%s", diff)
	}
}

func TestNormalize_PlaceholderRejection(t *testing.T) {
	raw := "def test_add_basic_1():\n    # TODO: write this test\n    pass\n\n" +
		"def test_add_basic_2():\n    # only a comment\n"

	out := standardNormalizer().Normalize(raw, []m.FunctionName{"add"})

	assert.NotContains(t, out.Text, "TODO")
	assert.NotContains(t, out.Text, "only a comment")
	assert.NotContains(t, out.Text, "pass")
	assert.Equal(t, 6, out.Synthesized)
}

func TestNormalize_FirstValidBlockWins(t *testing.T) {
	raw := "def test_add_basic_1():\n    # placeholder\n" +
		"def test_add_basic_1():\n    assert add(1, 1) == 2\n" +
		"def test_add_basic_1():\n    assert add(9, 9) == 18\n"

	out := standardNormalizer().Normalize(raw, []m.FunctionName{"add"})

	require.NotEmpty(t, out.Blocks)
	assert.Equal(t, []string{"    assert add(1, 1) == 2"}, out.Blocks[0].Body)
	assert.NotContains(t, out.Text, "add(9, 9)")
}

func TestNormalize_InlineBody(t *testing.T) {
	out := standardNormalizer().Normalize("def test_add_basic_1(): assert add(1, 2) == 3", []m.FunctionName{"add"})

	require.NotEmpty(t, out.Blocks)
	assert.Equal(t, 5, out.Synthesized)
	assert.Equal(t, m.TestBlock{
		Function: "add",
		Category: "basic_1",
		Body:     []string{"    assert add(1, 2) == 3"},
	}, out.Blocks[0])
	assert.Contains(t, out.Text, "def test_add_basic_1():\n    assert add(1, 2) == 3\n")
}

func TestNormalize_IndentationAndRaises(t *testing.T) {
	raw := "def test_divide_error_1(self) -> None:\n" +
		"  # division by zero\n" +
		"\t\t\twith pytest.raises(ZeroDivisionError):\n" +
		"\t\t\t\t\tdivide(1, 0)\n" +
		"def test_divide_error_2():\n" +
		"    with pytest.raises(ValueError):\n" +
		"def test_divide_edge_1():\n" +
		"    with pytest.raises(ValueError):\n" +
		"    assert divide(0, 1) == 0\n"

	out := standardNormalizer().Normalize(raw, []m.FunctionName{"divide"})

	want := map[m.TestCategory]m.TestBlock{
		"error_1": {
			Function: "divide",
			Category: "error_1",
			Body: []string{
				"    # division by zero",
				"    with pytest.raises(ZeroDivisionError):",
				"        divide(1, 0)",
			},
		},
		"edge_1": {
			Function: "divide",
			Category: "edge_1",
			Body:     []string{"    assert divide(0, 1) == 0"},
		},
	}

	got := map[m.TestCategory]m.TestBlock{}
	for _, b := range out.Blocks {
		if _, ok := want[b.Category]; ok {
			got[b.Category] = b
		}
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}

	// The bodiless raises opener leaves error_2 invalid.
	for _, b := range out.Blocks {
		if b.Category == "error_2" {
			assert.True(t, b.Synthesized)
		}
	}
}

func TestNormalize_FamilyAttribution(t *testing.T) {
	raw := wellFormedBlock("sum_of_squares", "basic_1") + wellFormedBlock("sum_of", "basic_2")

	out := standardNormalizer().Normalize(raw, []m.FunctionName{"sum_of", "sum_of"})

	require.Len(t, out.Blocks, 6)
	assert.False(t, out.Blocks[0].Synthesized)
	assert.False(t, out.Blocks[1].Synthesized)
	assert.Equal(t, m.FunctionName("sum_of"), out.Blocks[0].Function)
	assert.Contains(t, out.Text, "def test_sum_of_basic_1():")
	assert.NotContains(t, out.Text, "sum_of_squares_basic_1")
}

func TestNormalize_NonGreedyAttribution(t *testing.T) {
	// A function whose name embeds a category token still resolves.
	raw := wellFormedBlock("edge_basic_1_helper", "error_2")

	out := standardNormalizer().Normalize(raw, []m.FunctionName{"edge_basic_1_helper"})

	for _, b := range out.Blocks {
		if b.Category == "error_2" {
			assert.False(t, b.Synthesized)
		}
	}
}

func TestNormalize_SchemeIsolation(t *testing.T) {
	raw := wellFormedBlock("add", "null_1") + wellFormedBlock("add", "basic_1")

	out := standardNormalizer().Normalize(raw, []m.FunctionName{"add"})

	assert.NotContains(t, out.Text, "null_1")
	assert.Equal(t, 5, out.Synthesized)
}

func TestFallbackBlock_Shapes(t *testing.T) {
	tests := []struct {
		category m.TestCategory
		contains string
	}{
		{category: "basic_1", contains: "assert f(1) is not None"},
		{category: "edge_2", contains: "assert f(100) == f(100)"},
		{category: "error_1", contains: "with pytest.raises((TypeError, ValueError)):"},
		{category: "null_2", contains: "with pytest.raises(TypeError):"},
		{category: "unusual_1", contains: "assert f(10000) == f(10000)"},
		{category: "edge_7", contains: "assert f(0) == f(0)"},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			block := FallbackBlock("f", tt.category)

			assert.True(t, block.Synthesized)
			assert.Equal(t, tt.category, block.Category)
			assert.Contains(t, strings.Join(block.Body, "\n"), tt.contains)
			assert.True(t, strings.HasPrefix(block.Body[0], "    # Fallback:"))
		})
	}

	first := FallbackBlock("f", "basic_1")
	second := FallbackBlock("f", "basic_2")
	assert.NotEqual(t, first.Body[1:], second.Body[1:])
}
