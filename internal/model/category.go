package model

import (
	"fmt"
	"strings"
)

// CategoryKind groups categories that share a fallback shape.
type CategoryKind string

const (
	// KindBasic covers typical inputs.
	KindBasic CategoryKind = "basic"
	// KindEdge covers boundary inputs.
	KindEdge CategoryKind = "edge"
	// KindError covers inputs expected to raise.
	KindError CategoryKind = "error"
	// KindNull covers empty, None or wrongly typed inputs expected to raise.
	KindNull CategoryKind = "null"
	// KindUnusual covers very large or otherwise odd inputs.
	KindUnusual CategoryKind = "unusual"
)

// TestCategory is one canonical slot every function receives exactly one test for,
// e.g. "basic_1" or "edge_2".
type TestCategory string

// Kind returns the kind prefix of the category ("edge" for "edge_2").
func (c TestCategory) Kind() CategoryKind {
	kind, _, _ := strings.Cut(string(c), "_")
	return CategoryKind(kind)
}

// Variant returns the numeric suffix of the category ("2" for "edge_2").
func (c TestCategory) Variant() string {
	_, variant, _ := strings.Cut(string(c), "_")
	return variant
}

// CategoryScheme is a named, ordered, fixed set of categories.
// A single run uses exactly one scheme.
type CategoryScheme struct {
	Name       string
	Categories []TestCategory
}

// Contains reports whether the category belongs to the scheme.
func (s CategoryScheme) Contains(category TestCategory) bool {
	for _, c := range s.Categories {
		if c == category {
			return true
		}
	}

	return false
}

// Names returns the category names in canonical order.
func (s CategoryScheme) Names() []string {
	names := make([]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		names = append(names, string(c))
	}

	return names
}

const (
	// SchemeStandard is the basic/edge/error scheme.
	SchemeStandard = "standard"
	// SchemeBoundary is the edge/null/unusual scheme.
	SchemeBoundary = "boundary"
)

// StandardScheme returns {basic_1, basic_2, edge_1, edge_2, error_1, error_2}.
func StandardScheme() CategoryScheme {
	return CategoryScheme{
		Name:       SchemeStandard,
		Categories: []TestCategory{"basic_1", "basic_2", "edge_1", "edge_2", "error_1", "error_2"},
	}
}

// BoundaryScheme returns {edge_1, edge_2, null_1, null_2, unusual_1, unusual_2}.
func BoundaryScheme() CategoryScheme {
	return CategoryScheme{
		Name:       SchemeBoundary,
		Categories: []TestCategory{"edge_1", "edge_2", "null_1", "null_2", "unusual_1", "unusual_2"},
	}
}

// SchemeByName resolves a configured scheme name. An empty name selects the standard scheme.
func SchemeByName(name string) (CategoryScheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SchemeStandard:
		return StandardScheme(), nil
	case SchemeBoundary:
		return BoundaryScheme(), nil
	}

	return CategoryScheme{}, fmt.Errorf("unknown category scheme %q (want %q or %q)", name, SchemeStandard, SchemeBoundary)
}
