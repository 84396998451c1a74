package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLex(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Token
	}{
		{
			name: "block with assertions and comment",
			text: "def test_add_basic_1():\n    # typical\n    assert add(1, 2) == 3\n",
			want: []Token{
				{Kind: TokenDeclaration, Text: "def test_add_basic_1():"},
				{Kind: TokenComment, Text: "# typical", Indent: 4},
				{Kind: TokenAssertion, Text: "assert add(1, 2) == 3", Indent: 4},
				{Kind: TokenBlank},
			},
		},
		{
			name: "prose and fences",
			text: "Here are your tests:\n```python\nassert(x)\n```",
			want: []Token{
				{Kind: TokenProse, Text: "Here are your tests:"},
				{Kind: TokenFence, Text: "```python"},
				{Kind: TokenAssertion, Text: "assert(x)"},
				{Kind: TokenFence, Text: "```"},
			},
		},
		{
			name: "raises body until dedent",
			text: "    with pytest.raises(ZeroDivisionError):\n        divide(1, 0)\n\n        divide(2, 0)\n    assert True\n",
			want: []Token{
				{Kind: TokenRaises, Text: "with pytest.raises(ZeroDivisionError):", Indent: 4},
				{Kind: TokenRaisesBody, Text: "divide(1, 0)", Indent: 8},
				{Kind: TokenBlank},
				{Kind: TokenRaisesBody, Text: "divide(2, 0)", Indent: 8},
				{Kind: TokenAssertion, Text: "assert True", Indent: 4},
				{Kind: TokenBlank},
			},
		},
		{
			name: "single line raises opens no body",
			text: "    with pytest.raises(TypeError): add(None)\n        add(None)",
			want: []Token{
				{Kind: TokenRaises, Text: "with pytest.raises(TypeError): add(None)", Indent: 4},
				{Kind: TokenProse, Text: "add(None)", Indent: 8},
			},
		},
		{
			name: "declaration with inline body",
			text: "def test_add_basic_1(): assert add(1, 2) == 3\ndef test_add_error_1() -> None: with pytest.raises(TypeError): add(None)",
			want: []Token{
				{Kind: TokenDeclaration, Text: "def test_add_basic_1():"},
				{Kind: TokenAssertion, Text: "assert add(1, 2) == 3", Indent: 4},
				{Kind: TokenDeclaration, Text: "def test_add_error_1() -> None:"},
				{Kind: TokenRaises, Text: "with pytest.raises(TypeError): add(None)", Indent: 4},
			},
		},
		{
			name: "assertion lookalikes are prose",
			text: "asserted = True\nself.assertEqual(a, b)\nassert\n",
			want: []Token{
				{Kind: TokenProse, Text: "asserted = True"},
				{Kind: TokenProse, Text: "self.assertEqual(a, b)"},
				{Kind: TokenProse, Text: "assert"},
				{Kind: TokenBlank},
			},
		},
		{
			name: "tabs and crlf",
			text: "def test_f_edge_1():\r\n\tassert f(0) == 0\r\n",
			want: []Token{
				{Kind: TokenDeclaration, Text: "def test_f_edge_1():"},
				{Kind: TokenAssertion, Text: "assert f(0) == 0", Indent: 4},
				{Kind: TokenBlank},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Lex(tt.text)); diff != "" {
				t.Errorf("Lex() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTokenKindString(t *testing.T) {
	if got := TokenRaisesBody.String(); got != "raises-body" {
		t.Errorf("TokenRaisesBody.String() = %q", got)
	}

	if got := TokenKind(99).String(); got != "unknown" {
		t.Errorf("TokenKind(99).String() = %q", got)
	}
}
