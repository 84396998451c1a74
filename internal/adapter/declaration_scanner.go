package adapter

import (
	"context"
	"fmt"
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

const (
	// ScannerRegex selects the pattern-based declaration scanner.
	ScannerRegex = "regex"
	// ScannerTreeSitter selects the tree-sitter Python declaration scanner.
	ScannerTreeSitter = "treesitter"
)

// DeclarationScanner locates function declarations in source text and returns
// their identifiers in source order. Names are returned raw: family collapsing
// is a domain concern.
type DeclarationScanner interface {
	ScanDeclarations(ctx context.Context, src []byte) ([]string, error)
}

// NewDeclarationScanner returns the scanner registered under kind.
func NewDeclarationScanner(kind string) (DeclarationScanner, error) {
	switch kind {
	case "", ScannerRegex:
		return NewRegexDeclarationScanner(), nil
	case ScannerTreeSitter:
		return NewTreeSitterDeclarationScanner(), nil
	}

	return nil, fmt.Errorf("unknown declaration scanner %q", kind)
}

var declarationPattern = regexp.MustCompile(`\bdef\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// RegexDeclarationScanner matches the `def` keyword followed by an identifier
// and an opening parameter list.
type RegexDeclarationScanner struct{}

// NewRegexDeclarationScanner constructs a RegexDeclarationScanner.
func NewRegexDeclarationScanner() *RegexDeclarationScanner {
	return &RegexDeclarationScanner{}
}

// ScanDeclarations returns every captured identifier in match order.
func (s *RegexDeclarationScanner) ScanDeclarations(ctx context.Context, src []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches := declarationPattern.FindAllSubmatch(src, -1)
	names := make([]string, 0, len(matches))

	for _, match := range matches {
		names = append(names, string(match[1]))
	}

	return names, nil
}

// TreeSitterDeclarationScanner walks a tree-sitter Python syntax tree and
// collects every function_definition name, including methods and nested functions.
type TreeSitterDeclarationScanner struct{}

// NewTreeSitterDeclarationScanner constructs a TreeSitterDeclarationScanner.
func NewTreeSitterDeclarationScanner() *TreeSitterDeclarationScanner {
	return &TreeSitterDeclarationScanner{}
}

// ScanDeclarations parses src and returns function names in pre-order.
func (s *TreeSitterDeclarationScanner) ScanDeclarations(ctx context.Context, src []byte) ([]string, error) {
	// New parser per call: tree-sitter parsers are not safe for concurrent use.
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, nil
	}

	var names []string

	collectFunctionNames(root, src, &names)

	return names, nil
}

func collectFunctionNames(node *sitter.Node, src []byte, names *[]string) {
	if node.Type() == "function_definition" {
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			*names = append(*names, nameNode.Content(src))
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		collectFunctionNames(node.Child(i), src, names)
	}
}
