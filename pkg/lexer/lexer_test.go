package lexer_test

import (
	"strings"
	"testing"

	"github.com/tumblelang/tumble/pkg/lexer"
)

// tokenTypes runs the lexer and returns the token type sequence without the
// trailing EOF.
func tokenTypes(t *testing.T, src string) []lexer.TokenType {
	t.Helper()
	tokens, err := lexer.Tokenize(src, "test.tum")
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", src, err)
	}
	types := make([]lexer.TokenType, 0, len(tokens)-1)
	for _, tok := range tokens[:len(tokens)-1] {
		types = append(types, tok.Type)
	}
	return types
}

func tokenValues(t *testing.T, src string) []string {
	t.Helper()
	tokens, err := lexer.Tokenize(src, "test.tum")
	if err != nil {
		t.Fatalf("Tokenize(%q): %v", src, err)
	}
	values := make([]string, 0, len(tokens)-1)
	for _, tok := range tokens[:len(tokens)-1] {
		values = append(values, tok.Value)
	}
	return values
}

func expectTypes(t *testing.T, src string, want ...lexer.TokenType) {
	t.Helper()
	got := tokenTypes(t, src)
	if len(got) != len(want) {
		t.Fatalf("Tokenize(%q): got %d tokens, want %d", src, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokenize(%q): token %d is type %d, want %d", src, i, got[i], want[i])
		}
	}
}

func TestDiceOperatorSplitting(t *testing.T) {
	// `d6` is the dice operator and a literal
	expectTypes(t, "d6", lexer.TokDice, lexer.TokIntLit)
	// `3d6` is count, operator, faces
	expectTypes(t, "3d6", lexer.TokIntLit, lexer.TokDice, lexer.TokIntLit)
	// `discard` stays one identifier
	expectTypes(t, "discard", lexer.TokIdent)
	// filters split the same way
	expectTypes(t, "kh3", lexer.TokKeepHigh, lexer.TokIntLit)
	expectTypes(t, "kl2", lexer.TokKeepLow, lexer.TokIntLit)
	expectTypes(t, "rh1", lexer.TokRemoveHigh, lexer.TokIntLit)
	expectTypes(t, "rl1", lexer.TokRemoveLow, lexer.TokIntLit)
	// but `khan` is an identifier
	expectTypes(t, "khan", lexer.TokIdent)
	// spaced form
	expectTypes(t, "4 d 8", lexer.TokIntLit, lexer.TokDice, lexer.TokIntLit)
}

func TestMapDelimiters(t *testing.T) {
	expectTypes(t, "<|a: 1|>", lexer.TokLMap, lexer.TokIdent, lexer.TokColon, lexer.TokIntLit, lexer.TokRMap)
	expectTypes(t, "<||>", lexer.TokLMap, lexer.TokRMap)
	expectTypes(t, "|x| x", lexer.TokPipe, lexer.TokIdent, lexer.TokPipe, lexer.TokIdent)
	expectTypes(t, "||1", lexer.TokPipe, lexer.TokPipe, lexer.TokIntLit)
}

func TestKeywords(t *testing.T) {
	expectTypes(t, "let x = null", lexer.TokLet, lexer.TokIdent, lexer.TokEquals, lexer.TokNull)
	expectTypes(t, "true false", lexer.TokTrue, lexer.TokFalse)
	// keywords embedded in longer words are identifiers
	expectTypes(t, "letter nullable trueish", lexer.TokIdent, lexer.TokIdent, lexer.TokIdent)
}

func TestStringEscapes(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{`"hello"`, "hello"},
		{`"a\nb"`, "a\nb"},
		{`"a\tb"`, "a\tb"},
		{`"a\rb"`, "a\rb"},
		{`"\\"`, `\`},
		{`"\""`, `"`},
		{`"\'"`, `'`},
		{`'\''`, `'`},
		{`"\0"`, "\x00"},
		{`"\x41"`, "A"},
		{`"\u{1F3B2}"`, "\U0001F3B2"},
		{`"\u{e9}"`, "é"},
	}
	for _, tc := range cases {
		tokens, err := lexer.Tokenize(tc.src, "test.tum")
		if err != nil {
			t.Errorf("Tokenize(%s): %v", tc.src, err)
			continue
		}
		if tokens[0].Type != lexer.TokStringLit || tokens[0].Value != tc.want {
			t.Errorf("Tokenize(%s): got %q, want %q", tc.src, tokens[0].Value, tc.want)
		}
	}
}

func TestStringErrors(t *testing.T) {
	cases := []struct {
		src     string
		message string
	}{
		{`"unterminated`, "unterminated string"},
		{`"\q"`, "invalid escape"},
		{`"\x"`, "invalid escape"},
		{`"\x80"`, "above 0x7F"},
		{`"\u{}"`, "invalid escape"},
		{`"\u{D800}"`, "surrogates"},
		{`"\u{1234567}"`, "at most six"},
		{`"\u{110000}"`, "invalid Unicode codepoint"},
	}
	for _, tc := range cases {
		_, err := lexer.Tokenize(tc.src, "test.tum")
		if err == nil {
			t.Errorf("Tokenize(%s): expected error", tc.src)
			continue
		}
		if !strings.Contains(err.Error(), tc.message) {
			t.Errorf("Tokenize(%s): error %q does not mention %q", tc.src, err, tc.message)
		}
	}
}

func TestComments(t *testing.T) {
	expectTypes(t, "1 // the rest vanishes\n2", lexer.TokIntLit, lexer.TokIntLit)
	expectTypes(t, "1 /* gone */ 2", lexer.TokIntLit, lexer.TokIntLit)
	expectTypes(t, "1 /* nested /* comments */ work */ 2", lexer.TokIntLit, lexer.TokIntLit)

	if _, err := lexer.Tokenize("/* open", "test.tum"); err == nil {
		t.Error("expected error for unterminated block comment")
	}
}

func TestTokenizeValueRejectsComments(t *testing.T) {
	if _, err := lexer.TokenizeValue("1 // nope", "v"); err == nil {
		t.Error("TokenizeValue should reject line comments")
	}
	if _, err := lexer.TokenizeValue("/* nope */ 1", "v"); err == nil {
		t.Error("TokenizeValue should reject block comments")
	}
	if _, err := lexer.TokenizeValue("[1, 2]", "v"); err != nil {
		t.Errorf("TokenizeValue on plain value: %v", err)
	}
}

func TestSpans(t *testing.T) {
	tokens, err := lexer.Tokenize("ab + cd", "test.tum")
	if err != nil {
		t.Fatal(err)
	}
	if tokens[0].Span.Start != 0 || tokens[0].Span.End != 2 {
		t.Errorf("first token span = [%d,%d), want [0,2)", tokens[0].Span.Start, tokens[0].Span.End)
	}
	if tokens[2].Span.Start != 5 || tokens[2].Span.Col != 6 {
		t.Errorf("third token start=%d col=%d, want 5 and 6", tokens[2].Span.Start, tokens[2].Span.Col)
	}
}

func TestIntegerThenWord(t *testing.T) {
	got := tokenValues(t, "3d6")
	want := []string{"3", "d", "6"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("3d6 lexed as %v", got)
		}
	}
}
