package lexer_test

import (
	"testing"

	"github.com/tumblelang/tumble/pkg/lexer"
)

func FuzzTokenize(f *testing.F) {
	seeds := []string{
		"3d6 + 4",
		`let name = "value"`,
		"<|a: 1, b: [2, 3]|>",
		"|x, y| x + y",
		"10 ^ d20 kh 3",
		`"\u{1F3B2}" ~ "\x41"`,
		"// comment\n/* block /* nested */ */ 1",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, src string) {
		// must never panic; errors are fine
		tokens, err := lexer.Tokenize(src, "fuzz.tum")
		if err != nil {
			return
		}
		if len(tokens) == 0 {
			t.Error("no tokens returned, expected at least EOF")
		}
		if tokens[len(tokens)-1].Type != lexer.TokEOF {
			t.Error("token stream does not end with EOF")
		}
	})
}
