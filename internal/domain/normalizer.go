package domain

import (
	"regexp"
	"strings"

	m "synthtest.dev/pkg/synthtest/internal/model"
)

// Preamble opens every generated module. The self-import is rewritten by the
// materializer.
var Preamble = []string{
	"import pytest",
	"import sys",
	"import math",
	selfImport,
}

const selfImport = "from test import *"

var declarationIdentPattern = regexp.MustCompile(`^def\s+(test_[A-Za-z0-9_]+)\s*\(`)

// Normalized is the assembled module and the blocks it was built from.
type Normalized struct {
	Text        string
	Blocks      []m.TestBlock
	Synthesized int
}

// Normalizer turns raw backend output into a module with exactly one test per
// (function, category) pair of its scheme.
type Normalizer struct {
	scheme  m.CategoryScheme
	names   NameTable
	pattern *regexp.Regexp
}

// NewNormalizer creates a Normalizer for one category scheme.
func NewNormalizer(scheme m.CategoryScheme, names NameTable) *Normalizer {
	alternation := make([]string, 0, len(scheme.Categories))
	for _, c := range scheme.Categories {
		alternation = append(alternation, regexp.QuoteMeta(string(c)))
	}

	return &Normalizer{
		scheme:  scheme,
		names:   names,
		pattern: regexp.MustCompile(`^test_(.+?)_(` + strings.Join(alternation, "|") + `)$`),
	}
}

// Scheme returns the category scheme the normalizer completes against.
func (n *Normalizer) Scheme() m.CategoryScheme {
	return n.scheme
}

type blockKey struct {
	fn       m.FunctionName
	category m.TestCategory
}

type draft struct {
	key        blockKey
	attributed bool
	body       []string
	valid      bool
}

// Normalize runs fence stripping, line filtering, segmentation, validation,
// completion and assembly over raw.
func (n *Normalizer) Normalize(raw string, functions []m.FunctionName) Normalized {
	unique := m.UniqueFunctions(functions)

	known := make(map[m.FunctionName]struct{}, len(unique))
	for _, fn := range unique {
		known[fn] = struct{}{}
	}

	tokens := filterTokens(stripFences(Lex(raw)))
	drafts := n.segment(tokens, known)

	chosen := make(map[blockKey]m.TestBlock, len(unique)*len(n.scheme.Categories))

	for _, d := range drafts {
		if !d.attributed || !d.valid {
			continue
		}

		if _, ok := chosen[d.key]; ok {
			continue
		}

		chosen[d.key] = m.TestBlock{Function: d.key.fn, Category: d.key.category, Body: d.body}
	}

	result := Normalized{Blocks: make([]m.TestBlock, 0, len(unique)*len(n.scheme.Categories))}

	for _, fn := range unique {
		for _, category := range n.scheme.Categories {
			block, ok := chosen[blockKey{fn: fn, category: category}]
			if !ok {
				block = FallbackBlock(fn, category)
				result.Synthesized++
			}

			result.Blocks = append(result.Blocks, block)
		}
	}

	result.Text = Assemble(result.Blocks)

	return result
}

// Assemble renders the preamble followed by blocks separated by one blank line.
func Assemble(blocks []m.TestBlock) string {
	var b strings.Builder

	b.WriteString(strings.Join(Preamble, "\n"))
	b.WriteString("\n")

	for _, block := range blocks {
		b.WriteString("\n")
		b.WriteString(renderBlock(block))
		b.WriteString("\n")
	}

	return b.String()
}

func renderBlock(block m.TestBlock) string {
	lines := make([]string, 0, len(block.Body)+1)
	lines = append(lines, "def "+block.TestName()+"():")
	lines = append(lines, block.Body...)

	return strings.Join(lines, "\n")
}

// stripFences keeps only the content of the first complete fenced block, if
// any, then drops every remaining fence marker.
func stripFences(tokens []Token) []Token {
	open := -1

	for i, t := range tokens {
		if t.Kind != TokenFence {
			continue
		}

		if open < 0 {
			open = i
			continue
		}

		tokens = tokens[open+1 : i]

		break
	}

	kept := make([]Token, 0, len(tokens))

	for _, t := range tokens {
		if t.Kind != TokenFence {
			kept = append(kept, t)
		}
	}

	return kept
}

func filterTokens(tokens []Token) []Token {
	kept := make([]Token, 0, len(tokens))

	for _, t := range tokens {
		switch t.Kind {
		case TokenDeclaration, TokenAssertion, TokenRaises, TokenRaisesBody, TokenComment:
			kept = append(kept, t)
		}
	}

	return kept
}

func (n *Normalizer) segment(tokens []Token, known map[m.FunctionName]struct{}) []draft {
	var (
		drafts  []draft
		current *draft
	)

	for i, t := range tokens {
		if t.Kind == TokenDeclaration {
			drafts = append(drafts, n.openDraft(t.Text, known))
			current = &drafts[len(drafts)-1]

			continue
		}

		// Lines before the first declaration belong to no block.
		if current == nil {
			continue
		}

		switch t.Kind {
		case TokenAssertion:
			current.body = append(current.body, bodyIndent+t.Text)
			current.valid = true
		case TokenRaises:
			if strings.HasSuffix(t.Text, ":") && (i+1 >= len(tokens) || tokens[i+1].Kind != TokenRaisesBody) {
				continue
			}

			current.body = append(current.body, bodyIndent+t.Text)
			current.valid = true
		case TokenRaisesBody:
			current.body = append(current.body, nestedIndent+t.Text)
		case TokenComment:
			current.body = append(current.body, bodyIndent+t.Text)
		}
	}

	return drafts
}

func (n *Normalizer) openDraft(line string, known map[m.FunctionName]struct{}) draft {
	match := declarationIdentPattern.FindStringSubmatch(line)
	if match == nil {
		return draft{}
	}

	parts := n.pattern.FindStringSubmatch(match[1])
	if parts == nil {
		return draft{}
	}

	fn := n.names.Canonical(parts[1])
	if _, ok := known[fn]; !ok {
		return draft{}
	}

	return draft{
		key:        blockKey{fn: fn, category: m.TestCategory(parts[2])},
		attributed: true,
	}
}
