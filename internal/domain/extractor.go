// Package domain contains the test synthesis pipeline and batch workflow.
package domain

import (
	"context"
	"fmt"
	"strings"

	"synthtest.dev/pkg/synthtest/internal/adapter"
	m "synthtest.dev/pkg/synthtest/internal/model"
)

// FamilyRule collapses every name starting with Prefix to Canonical.
type FamilyRule struct {
	Prefix    string
	Canonical string
}

// DefaultFamilyRules returns the built-in family collapsing rules.
func DefaultFamilyRules() []FamilyRule {
	return []FamilyRule{
		{Prefix: "sum_of_", Canonical: "sum_of"},
		{Prefix: "average_of_", Canonical: "average_of"},
	}
}

// ParseFamilyRules parses "prefix=canonical" entries.
func ParseFamilyRules(entries []string) ([]FamilyRule, error) {
	rules := make([]FamilyRule, 0, len(entries))

	for _, entry := range entries {
		prefix, canonical, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid family rule %q: want prefix=canonical", entry)
		}

		rules = append(rules, FamilyRule{
			Prefix:    strings.TrimSpace(prefix),
			Canonical: strings.TrimSpace(canonical),
		})
	}

	return rules, nil
}

// NameTable rewrites identifiers to their canonical family name. The first
// matching prefix wins.
type NameTable struct {
	rules []FamilyRule
}

// NewNameTable validates rules and builds a table. A rule whose canonical name
// starts with any prefix in the table is rejected, since collapsing must be a
// fixed point.
func NewNameTable(rules []FamilyRule) (NameTable, error) {
	for _, rule := range rules {
		if rule.Prefix == "" || rule.Canonical == "" {
			return NameTable{}, fmt.Errorf("family rule %q=%q: prefix and canonical name are required", rule.Prefix, rule.Canonical)
		}
	}

	for _, rule := range rules {
		for _, other := range rules {
			if strings.HasPrefix(rule.Canonical, other.Prefix) {
				return NameTable{}, fmt.Errorf("family rule %q=%q: canonical name matches prefix %q", rule.Prefix, rule.Canonical, other.Prefix)
			}
		}
	}

	return NameTable{rules: append([]FamilyRule(nil), rules...)}, nil
}

// DefaultNameTable returns the table built from DefaultFamilyRules.
func DefaultNameTable() NameTable {
	return NameTable{rules: DefaultFamilyRules()}
}

// Canonical returns the family name for name, or name itself.
func (t NameTable) Canonical(name string) m.FunctionName {
	for _, rule := range t.rules {
		if strings.HasPrefix(name, rule.Prefix) {
			return m.FunctionName(rule.Canonical)
		}
	}

	return m.FunctionName(name)
}

// Extractor discovers the functions a test module must cover.
type Extractor interface {
	Extract(ctx context.Context, path m.Path, text string) (m.SourceUnit, error)
}

type extractor struct {
	adapter.DeclarationScanner
	names NameTable
}

// NewExtractor creates an Extractor using scanner to find declarations and
// names to collapse families.
func NewExtractor(scanner adapter.DeclarationScanner, names NameTable) Extractor {
	return &extractor{
		DeclarationScanner: scanner,
		names:              names,
	}
}

// Extract returns the source unit with its normalized function list in
// declaration order. Duplicates are kept.
func (e *extractor) Extract(ctx context.Context, path m.Path, text string) (m.SourceUnit, error) {
	identifiers, err := e.ScanDeclarations(ctx, []byte(text))
	if err != nil {
		return m.SourceUnit{}, fmt.Errorf("scan %s: %w", path, err)
	}

	if len(identifiers) == 0 {
		return m.SourceUnit{}, fmt.Errorf("%w in %s", ErrNoFunctions, path)
	}

	functions := make([]m.FunctionName, 0, len(identifiers))
	for _, identifier := range identifiers {
		functions = append(functions, e.names.Canonical(identifier))
	}

	return m.SourceUnit{
		Path:      path,
		Text:      text,
		Functions: functions,
	}, nil
}
