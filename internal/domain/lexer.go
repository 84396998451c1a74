package domain

import (
	"regexp"
	"strings"
)

// TokenKind tags one line of backend output.
type TokenKind int

// Token kinds recognised by Lex.
const (
	TokenBlank TokenKind = iota
	TokenDeclaration
	TokenAssertion
	TokenRaises
	TokenRaisesBody
	TokenComment
	TokenFence
	TokenProse
)

var tokenKindNames = map[TokenKind]string{
	TokenBlank:       "blank",
	TokenDeclaration: "declaration",
	TokenAssertion:   "assertion",
	TokenRaises:      "raises",
	TokenRaisesBody:  "raises-body",
	TokenComment:     "comment",
	TokenFence:       "fence",
	TokenProse:       "prose",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}

	return "unknown"
}

// Token is one classified line. Text has surrounding whitespace removed;
// Indent is the width of the leading whitespace with tabs counted as four.
type Token struct {
	Kind   TokenKind
	Text   string
	Indent int
}

const (
	declarationPrefix = "def test_"
	raisesPrefix      = "with pytest.raises("
	fencePrefix       = "```"
)

// inlineDeclarationPattern splits a one-line test such as
// "def test_f_basic_1(): assert f() == 1" into its header and body.
var inlineDeclarationPattern = regexp.MustCompile(`^(def test_\w+\s*\([^)]*\)\s*(?:->\s*[^:]+)?:)\s*(\S.*)$`)

// Lex classifies every line of text. An indented line following a raises
// opener that ends in ':' is tagged TokenRaisesBody until a line at or left
// of the opener's indentation, a declaration or a fence ends the block.
// A declaration with its body on the same line yields two tokens.
func Lex(text string) []Token {
	lines := splitInlineBodies(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"))
	tokens := make([]Token, 0, len(lines))

	raisesIndent := -1

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		indent := indentWidth(line)

		if trimmed == "" {
			tokens = append(tokens, Token{Kind: TokenBlank})
			continue
		}

		kind := classify(trimmed)

		switch {
		case kind == TokenDeclaration || kind == TokenFence:
			raisesIndent = -1
		case raisesIndent >= 0 && indent > raisesIndent:
			kind = TokenRaisesBody
		default:
			raisesIndent = -1
		}

		if kind == TokenRaises && strings.HasSuffix(trimmed, ":") {
			raisesIndent = indent
		}

		tokens = append(tokens, Token{Kind: kind, Text: trimmed, Indent: indent})
	}

	return tokens
}

func splitInlineBodies(lines []string) []string {
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		match := inlineDeclarationPattern.FindStringSubmatch(trimmed)
		if match == nil {
			out = append(out, line)
			continue
		}

		lead := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		out = append(out, lead+match[1], lead+"    "+match[2])
	}

	return out
}

func classify(trimmed string) TokenKind {
	switch {
	case strings.HasPrefix(trimmed, fencePrefix):
		return TokenFence
	case strings.HasPrefix(trimmed, declarationPrefix):
		return TokenDeclaration
	case strings.HasPrefix(trimmed, raisesPrefix):
		return TokenRaises
	case isAssertion(trimmed):
		return TokenAssertion
	case strings.HasPrefix(trimmed, "#"):
		return TokenComment
	}

	return TokenProse
}

func isAssertion(trimmed string) bool {
	rest, ok := strings.CutPrefix(trimmed, "assert")
	if !ok || rest == "" {
		return false
	}

	return rest[0] == ' ' || rest[0] == '\t' || rest[0] == '('
}

func indentWidth(line string) int {
	width := 0

	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}

	return width
}
