package domain

import (
	"fmt"

	m "synthtest.dev/pkg/synthtest/internal/model"
)

const (
	bodyIndent   = "    "
	nestedIndent = bodyIndent + bodyIndent

	fallbackMarker = "# Fallback:"
)

// categoryShape describes the generic test for one category. Statements use
// %[1]s for the function name; a raises shape wraps every call in a single
// pytest.raises block.
type categoryShape struct {
	purpose    string
	raises     string
	statements []string
}

var categoryShapes = map[m.TestCategory]categoryShape{
	"basic_1": {purpose: "typical inputs", statements: []string{"assert %[1]s(1) is not None", "assert %[1]s(2) == %[1]s(2)"}},
	"basic_2": {purpose: "different typical inputs", statements: []string{"assert %[1]s(5) is not None", "assert %[1]s(10) == %[1]s(10)"}},
	"edge_1":  {purpose: "minimum values", statements: []string{"assert %[1]s(0) == %[1]s(0)", "assert %[1]s(1) == %[1]s(1)"}},
	"edge_2":  {purpose: "maximum values", statements: []string{"assert %[1]s(100) == %[1]s(100)", "assert %[1]s(-1) == %[1]s(-1)"}},
	"error_1": {purpose: "invalid input raises", raises: "(TypeError, ValueError)", statements: []string{"%[1]s(None)"}},
	"error_2": {purpose: "wrong type raises", raises: "(TypeError, ValueError)", statements: []string{"%[1]s(\"string\")"}},
	"null_1":  {purpose: "empty or None inputs", raises: "TypeError", statements: []string{"%[1]s(None)"}},
	"null_2":  {purpose: "invalid types", raises: "TypeError", statements: []string{"%[1]s(\"string\")"}},
	"unusual_1": {purpose: "very large values", statements: []string{
		"assert %[1]s(10000) == %[1]s(10000)", "assert %[1]s(10**6) == %[1]s(10**6)",
	}},
	"unusual_2": {purpose: "unusual inputs", statements: []string{
		"assert %[1]s(-100) == %[1]s(-100)", "assert %[1]s(0.5) == %[1]s(0.5)",
	}},
}

func shapeFor(category m.TestCategory) categoryShape {
	if shape, ok := categoryShapes[category]; ok {
		return shape
	}

	// Unlisted variants borrow the first variant of their kind.
	if shape, ok := categoryShapes[m.TestCategory(string(category.Kind())+"_1")]; ok {
		return shape
	}

	return categoryShapes["basic_1"]
}

// body renders the indented statements of a shape for fn.
func (s categoryShape) body(fn m.FunctionName) []string {
	lines := make([]string, 0, len(s.statements)+1)

	if s.raises != "" {
		lines = append(lines, bodyIndent+"with pytest.raises("+s.raises+"):")
		for _, stmt := range s.statements {
			lines = append(lines, nestedIndent+fmt.Sprintf(stmt, fn))
		}

		return lines
	}

	for _, stmt := range s.statements {
		lines = append(lines, bodyIndent+fmt.Sprintf(stmt, fn))
	}

	return lines
}

// FallbackBlock builds the deterministic placeholder for a missing
// (function, category) pair.
func FallbackBlock(fn m.FunctionName, category m.TestCategory) m.TestBlock {
	shape := shapeFor(category)

	body := append([]string{bodyIndent + fallbackMarker + " " + shape.purpose}, shape.body(fn)...)

	return m.TestBlock{
		Function:    fn,
		Category:    category,
		Body:        body,
		Synthesized: true,
	}
}

// exampleBlock renders a worked example for the prompt.
func exampleBlock(fn m.FunctionName, category m.TestCategory) string {
	shape := shapeFor(category)
	block := m.TestBlock{
		Function: fn,
		Category: category,
		Body:     append([]string{bodyIndent + "# Test " + shape.purpose}, shape.body(fn)...),
	}

	return renderBlock(block)
}
