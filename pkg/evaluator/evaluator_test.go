package evaluator_test

import (
	"context"
	"testing"

	"github.com/tumblelang/tumble/internal/testutil"
	"github.com/tumblelang/tumble/pkg/diagnostics"
	"github.com/tumblelang/tumble/pkg/evaluator"
	"github.com/tumblelang/tumble/pkg/parser"
)

func session(t *testing.T) *evaluator.Session {
	return testutil.NewSession(t, "test-seed")
}

func TestArithmetic(t *testing.T) {
	s := session(t)
	cases := [][2]string{
		{"3 + 4", "7"},
		{"10 - 3", "7"},
		{"6 * 7", "42"},
		{"7 / 2", "3"},
		{"-7 / 2", "-3"},
		{"7 % 2", "1"},
		{"-7 % 2", "-1"},
		{"1 + 2 * 3", "7"},
		{"-(1 + 2)", "-3"},
		{"true + true", "2"},
		{`"20" + 1`, "21"},
		{"[1, 2, 3] + 4", "10"},
		{"[1, 2] * 2", "[2, 4]"},
		{"<|a: 1, b: 2|> * 10", "<|a: 10, b: 20|>"},
		{"+[1, [2, 3], <|x: 4|>]", "10"},
		{"+true", "1"},
		{`+"12"`, "12"},
	}
	for _, tc := range cases {
		testutil.ExpectPrinted(t, s, tc[0], tc[1])
	}
}

func TestArithmeticErrors(t *testing.T) {
	s := session(t)
	testutil.ExpectError(t, s, "1 / 0", diagnostics.EDomain)
	testutil.ExpectError(t, s, "1 % 0", diagnostics.EDomain)
	testutil.ExpectError(t, s, "null + 1", diagnostics.EType)
	testutil.ExpectError(t, s, "+null", diagnostics.EType)
	testutil.ExpectError(t, s, `"gibberish" * 2`, diagnostics.EType)
}

func TestJoinScenarios(t *testing.T) {
	s := session(t)
	// the merge and flatten scenarios
	testutil.ExpectPrinted(t, s, "<|a:1, b:2|> ~ <|b:4, c:3|>", "<|a: 1, b: 4, c: 3|>")
	testutil.ExpectPrinted(t, s, "[1,2,3] ~ <|c:30,a:10,b:20|>", "[1, 2, 3, 10, 20, 30]")
	testutil.ExpectPrinted(t, s, `"ab" ~ "cd"`, `"abcd"`)
	testutil.ExpectPrinted(t, s, "1 ~ 2", "[1, 2]")
}

func TestBlocksAndScoping(t *testing.T) {
	s := session(t)
	testutil.ExpectPrinted(t, s, "{ 1; 2; 3 }", "3")
	testutil.ExpectPrinted(t, s, "let x = 5", "5")
	testutil.ExpectPrinted(t, s, "{ let a = 1; let b = 2; a + b }", "3")
	// let in a block does not leak
	testutil.MustEval(t, s, "{ let hidden = 1; hidden }")
	testutil.ExpectError(t, s, "hidden", diagnostics.EName)
	// assignment reaches the nearest outer binding
	testutil.ExpectPrinted(t, s, "{ let v = 1; { v = 9; null }; v }", "9")
	// assignment without any binding creates a global
	testutil.MustEval(t, s, "{ fresh_global = 11; null }")
	testutil.ExpectPrinted(t, s, "fresh_global", "11")
	// let shadows without clobbering
	testutil.ExpectPrinted(t, s, "{ let w = 1; { let w = 2; w }; w }", "1")
}

func TestIndexAndMember(t *testing.T) {
	s := session(t)
	cases := [][2]string{
		{"[10, 20, 30][0]", "10"},
		{"[10, 20, 30][2]", "30"},
		{"[10, 20, 30][-1]", "30"},
		{"[10, 20, 30].1", "20"},
		{`"hät"[1]`, `"ä"`},
		{`"abc"[-1]`, `"c"`},
		{`<|a: 1|>["a"]`, "1"},
		{"<|a: 1|>.a", "1"},
		{`<|"0": 5|>.0`, "5"},
		{`<|outer: <|inner: 3|>|>.outer.inner`, "3"},
	}
	for _, tc := range cases {
		testutil.ExpectPrinted(t, s, tc[0], tc[1])
	}

	testutil.ExpectError(t, s, "[1][5]", diagnostics.EDomain)
	testutil.ExpectError(t, s, "[1][-2]", diagnostics.EDomain)
	testutil.ExpectError(t, s, `"ab"[2]`, diagnostics.EDomain)
	testutil.ExpectError(t, s, `<|a: 1|>["b"]`, diagnostics.EKey)
	testutil.ExpectError(t, s, "<|a: 1|>.b", diagnostics.EKey)
	testutil.ExpectError(t, s, "[1].name", diagnostics.EType)
	testutil.ExpectError(t, s, "3[0]", diagnostics.EType)
	testutil.ExpectError(t, s, `<|a: 1|>[0]`, diagnostics.EType)
}

func TestClosures(t *testing.T) {
	s := session(t)
	testutil.ExpectPrinted(t, s, "(|x| x * 2)(21)", "42")
	testutil.ExpectPrinted(t, s, "(||7)()", "7")
	testutil.ExpectPrinted(t, s, "{ let add = |a, b| a + b; add(1, 2) }", "3")

	// capture is by value at construction
	testutil.ExpectPrinted(t, s, "{ let x = 1; let f = ||x; x = 99; f() }", "1")

	// parameters shadow captures
	testutil.ExpectPrinted(t, s, "{ let y = 5; let g = |y| y; g(3) }", "3")

	// closures see their captures, not the caller's scope
	testutil.ExpectPrinted(t, s,
		"{ let k = 10; let h = |v| v + k; { let k = 999; h(1) } }", "11")

	// a local let in the body is not a capture
	testutil.ExpectPrinted(t, s, "{ let q = |v| { let local = v; local }; q(4) }", "4")

	// arity mismatch
	testutil.ExpectError(t, s, "(|x| x)(1, 2)", diagnostics.EArity)
	testutil.ExpectError(t, s, "(|x| x)()", diagnostics.EArity)
	// unresolved free names surface when called
	testutil.ExpectError(t, s, "(||missing_everywhere)()", diagnostics.EName)
	// only callables can be called
	testutil.ExpectError(t, s, "3(1)", diagnostics.EType)
}

func TestClosurePrintedForm(t *testing.T) {
	s := session(t)
	testutil.ExpectPrinted(t, s, "|a, b| a + b", "<closure with 2 parameters>")
	testutil.ExpectPrinted(t, s, "{ let c = 1; |x| x + c }", "<closure with 1 parameters (captured 1 values)>")
}

func TestRepeat(t *testing.T) {
	s := session(t)
	testutil.ExpectPrinted(t, s, "7 ^ 3", "[7, 7, 7]")
	testutil.ExpectPrinted(t, s, "1 ^ 0", "[]")
	// assignment in the template mutates shared state across iterations
	testutil.ExpectPrinted(t, s, "{ let i = 0; { i = i + 1; i } ^ 4 }", "[1, 2, 3, 4]")
	testutil.ExpectError(t, s, "1 ^ -1", diagnostics.EDomain)
	testutil.ExpectError(t, s, "1 ^ null", diagnostics.EType)
}

func TestDice(t *testing.T) {
	s := session(t)
	for i := 0; i < 50; i++ {
		v := testutil.MustEval(t, s, "d6")
		num, ok := v.(evaluator.Number)
		if !ok {
			t.Fatalf("d6 returned %T", v)
		}
		r := num.Value.Int64()
		if r < 1 || r > 6 {
			t.Fatalf("d6 rolled %d", r)
		}
	}

	v := testutil.MustEval(t, s, "10d10")
	roll, ok := v.(evaluator.List)
	if !ok || len(roll.Items) != 10 {
		t.Fatalf("10d10 = %s", evaluator.Print(v))
	}
	for _, item := range roll.Items {
		r := item.(evaluator.Number).Value.Int64()
		if r < 1 || r > 10 {
			t.Fatalf("10d10 element %d out of range", r)
		}
	}

	testutil.ExpectPrinted(t, s, "0d6", "[]")
	testutil.ExpectPrinted(t, s, "3d1", "[1, 1, 1]")
	testutil.ExpectPrinted(t, s, "d1", "1")

	testutil.ExpectError(t, s, "d0", diagnostics.EDomain)
	testutil.ExpectError(t, s, "2d0", diagnostics.EDomain)
	testutil.ExpectError(t, s, "(0-1)d6", diagnostics.EDomain)
	testutil.ExpectError(t, s, "d(0-2)", diagnostics.EDomain)

	// `-1d6` negates the roll: NdM binds tighter than unary minus
	neg := testutil.MustEval(t, s, "-1d6")
	first := neg.(evaluator.List).Items[0].(evaluator.Number).Value.Int64()
	if first < -6 || first > -1 {
		t.Errorf("-1d6 = %d", first)
	}
}

func TestSeededDeterminism(t *testing.T) {
	a := testutil.NewSession(t, "fixed")
	b := testutil.NewSession(t, "fixed")
	va := testutil.MustEval(t, a, "20d20 ~ 20d6")
	vb := testutil.MustEval(t, b, "20d20 ~ 20d6")
	if !evaluator.Equal(va, vb) {
		t.Error("equal session seeds must give equal rolls")
	}
}

func TestFiltersEndToEnd(t *testing.T) {
	s := session(t)
	testutil.ExpectPrinted(t, s, "[3, 1, 4, 1, 5] kh 2", "[4, 5]")
	testutil.ExpectPrinted(t, s, "[3, 1, 4, 1, 5] kl 2", "[1, 1]")
	testutil.ExpectPrinted(t, s, "[3, 1, 4, 1, 5] rh 1", "[3, 1, 4, 1]")
	testutil.ExpectPrinted(t, s, "[3, 1, 4, 1, 5] rl 1", "[3, 4, 1, 5]")
	// 4d6 drop lowest: the workhorse
	v := testutil.MustEval(t, s, "+(4d6 rl 1)")
	total := v.(evaluator.Number).Value.Int64()
	if total < 3 || total > 18 {
		t.Errorf("4d6 rl 1 summed to %d", total)
	}
}

func TestCancellation(t *testing.T) {
	s := session(t)
	expr, diags := parser.Parse("{ 1; 2 } ^ 100000", "test.tum")
	if diags != nil {
		t.Fatal("parse failed")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.EvalContext(ctx, expr)
	re, ok := err.(*evaluator.RuntimeError)
	if !ok || re.Code != diagnostics.ECancelled {
		t.Errorf("got %v, want %s", err, diagnostics.ECancelled)
	}

	// dice draws observe cancellation too
	expr, _ = parser.Parse("100000 d 6", "test.tum")
	_, err = s.EvalContext(ctx, expr)
	re, ok = err.(*evaluator.RuntimeError)
	if !ok || re.Code != diagnostics.ECancelled {
		t.Errorf("dice: got %v, want %s", err, diagnostics.ECancelled)
	}
}

func TestNameErrors(t *testing.T) {
	s := session(t)
	testutil.ExpectError(t, s, "nowhere_bound", diagnostics.EName)
}

func TestSessionBindLookup(t *testing.T) {
	s := session(t)
	s.Bind("answer", evaluator.NewNumber(42))
	testutil.ExpectPrinted(t, s, "answer", "42")
	v, ok := s.Lookup("answer")
	if !ok || !evaluator.Equal(v, evaluator.NewNumber(42)) {
		t.Error("Lookup did not return the bound value")
	}
	if _, ok := s.Lookup("never_bound"); ok {
		t.Error("Lookup invented a binding")
	}
}

func TestEvalOrderIsLeftToRight(t *testing.T) {
	s := session(t)
	// the left operand's assignment lands before the right operand reads
	testutil.ExpectPrinted(t, s, "{ let a = 0; (a = 1) + (a * 10) }", "11")
}

func TestClosureCaptureOfRepeatWithLet(t *testing.T) {
	s := session(t)
	// a bare let under ^ makes the capture set ambiguous
	testutil.ExpectError(t, s, "|| ((let z = 1) ^ 2)", diagnostics.EType)
	// wrapped in a block it scopes cleanly
	testutil.MustEval(t, s, "|| ({ let z = 1; z } ^ 2)")
}
