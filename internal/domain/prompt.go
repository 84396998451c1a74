package domain

import (
	"fmt"
	"strings"

	m "synthtest.dev/pkg/synthtest/internal/model"
)

const (
	formatDirective = "WRITE ONLY PYTHON TEST FUNCTIONS IN THIS EXACT FORMAT:"
	sourceDirective = "Now generate test cases for this code:"
)

// BuildPrompt assembles the generation prompt. Sections appear in a fixed order
// and the source text always comes last. It performs no I/O.
func BuildPrompt(template string, functions []m.FunctionName, scheme m.CategoryScheme, source string) string {
	unique := m.UniqueFunctions(functions)

	names := make([]string, 0, len(unique))
	for _, fn := range unique {
		names = append(names, string(fn))
	}

	sections := []string{
		template,
		formatDirective,
		"REQUIRED_CATEGORIES (in order): " + strings.Join(scheme.Names(), ", ") + "\n" +
			"FUNCTIONS: " + strings.Join(names, ", "),
	}

	if len(unique) > 0 {
		sections = append(sections, workedExamples(unique[0], scheme))
	}

	sections = append(sections, sourceDirective, source)

	return strings.Join(sections, "\n\n")
}

func workedExamples(fn m.FunctionName, scheme m.CategoryScheme) string {
	examples := make([]string, 0, len(scheme.Categories)+1)
	examples = append(examples, fmt.Sprintf("Here are examples of good test functions for a function named '%s':", fn))

	for _, category := range scheme.Categories {
		examples = append(examples, exampleBlock(fn, category))
	}

	return strings.Join(examples, "\n\n")
}
