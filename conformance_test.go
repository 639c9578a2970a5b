package conformance_test

import (
	"testing"

	"github.com/tumblelang/tumble/internal/testutil"
	"github.com/tumblelang/tumble/pkg/evaluator"
)

// End-to-end checks of the documented language laws and scenarios, driven
// through parse → eval → print like an embedding host would.

func TestConcreteScenarios(t *testing.T) {
	s := testutil.NewSession(t, "conformance")

	// arithmetic
	testutil.ExpectPrinted(t, s, "3 + 4", "7")

	// a seeded roll reproduces exactly
	first := testutil.MustEval(t, s, "{ seed(1); +3d6 }")
	total := first.(evaluator.Number).Value.Int64()
	if total < 3 || total > 18 {
		t.Fatalf("+3d6 = %d, outside [3, 18]", total)
	}
	second := testutil.MustEval(t, s, "{ seed(1); +3d6 }")
	if !evaluator.Equal(first, second) {
		t.Error("seed(1) did not reproduce +3d6")
	}

	// seeding around a closure call pins its rolls
	testutil.MustEval(t, s, "let f = || d20 + 3")
	a := testutil.MustEval(t, s, "{ seed(7); f() }")
	b := testutil.MustEval(t, s, "{ seed(7); f() }")
	if !evaluator.Equal(a, b) {
		t.Error("seed(7); f() is not reproducible")
	}

	// map merge and mixed join
	testutil.ExpectPrinted(t, s, "<|a:1, b:2|> ~ <|b:4, c:3|>", "<|a: 1, b: 4, c: 3|>")
	testutil.ExpectPrinted(t, s, "[1,2,3] ~ <|c:30,a:10,b:20|>", "[1, 2, 3, 10, 20, 30]")

	// print/parse round trip
	testutil.ExpectPrinted(t, s,
		"parse(to_string(<|c: [2,3,4], answer: 42|>))",
		"<|c: [2, 3, 4], answer: 42|>")
}

func TestRoundTripLaws(t *testing.T) {
	s := testutil.NewSession(t, "conformance")
	// for values in the value grammar, parse(to_string(v)) == v and
	// from_json(to_json(v)) == v
	values := []string{
		"null",
		"true",
		"false",
		"0",
		"-123",
		"99999999999999999999999999999",
		`""`,
		`"text\nwith\tescapes\\"`,
		"[]",
		"[1, [2, [3]], null, true]",
		"<||>",
		`<|k: 1, "spaced key": [2], nested: <|a: null|>|>`,
	}
	for _, src := range values {
		v := testutil.MustEval(t, s, src)
		reparsed, err := evaluator.ParseValue(evaluator.Print(v))
		if err != nil {
			t.Errorf("parse(to_string(%s)): %v", src, err)
		} else if !evaluator.Equal(v, reparsed) {
			t.Errorf("parse(to_string(%s)) != %s", src, src)
		}

		data, err := evaluator.MarshalValue(v)
		if err != nil {
			t.Errorf("to_json(%s): %v", src, err)
			continue
		}
		back, err := evaluator.UnmarshalValue(data)
		if err != nil {
			t.Errorf("from_json(to_json(%s)): %v", src, err)
		} else if !evaluator.Equal(v, back) {
			t.Errorf("from_json(to_json(%s)) != %s", src, src)
		}
	}
}

func TestFoldAndListLaws(t *testing.T) {
	s := testutil.NewSession(t, "conformance")
	testutil.ExpectPrinted(t, s, "join()", "[]")
	testutil.ExpectPrinted(t, s, "sum()", "0")
	testutil.ExpectPrinted(t, s, "mult()", "1")
	// sum equals the flattened numeric content of its arguments
	testutil.ExpectPrinted(t, s, "sum([1, [2, 3]], <|a: 4, b: [5]|>, 6)", "21")
	// to_list is idempotent
	testutil.ExpectPrinted(t, s, "to_list(to_list(<|b: 2, a: 1|>))", "[1, 2]")
	// map flattening is sorted by key
	testutil.ExpectPrinted(t, s, "to_list(<|zebra: 1, apple: 2, mango: 3|>)", "[2, 3, 1]")
}

func TestDiceLaws(t *testing.T) {
	s := testutil.NewSession(t, "conformance")
	for _, nm := range [][2]int64{{0, 1}, {1, 6}, {5, 2}, {40, 20}} {
		n, m := nm[0], nm[1]
		src := evaluator.Print(evaluator.NewNumber(n)) + " d " + evaluator.Print(evaluator.NewNumber(m))
		v := testutil.MustEval(t, s, src)
		roll, ok := v.(evaluator.List)
		if !ok {
			t.Fatalf("%s returned %T", src, v)
		}
		if int64(len(roll.Items)) != n {
			t.Errorf("length(%s) = %d, want %d", src, len(roll.Items), n)
		}
		for _, item := range roll.Items {
			e := item.(evaluator.Number).Value.Int64()
			if e < 1 || e > m {
				t.Errorf("%s produced %d", src, e)
			}
		}
	}
}

func TestFilterLaws(t *testing.T) {
	s := testutil.NewSession(t, "conformance")
	testutil.MustEval(t, s, "let rolls = 10d6")
	for n := 0; n <= 10; n++ {
		nv := evaluator.NewNumber(int64(n))
		kept := testutil.MustEval(t, s, "rolls kh "+evaluator.Print(nv)).(evaluator.List)
		removed := testutil.MustEval(t, s, "rolls rh "+evaluator.Print(nv)).(evaluator.List)
		if len(kept.Items) != n {
			t.Errorf("length(rolls kh %d) = %d", n, len(kept.Items))
		}
		if len(removed.Items) != 10-n {
			t.Errorf("length(rolls rh %d) = %d", n, len(removed.Items))
		}
		// kept ∪ removed must be the original multiset
		counts := map[int64]int{}
		all := testutil.MustEval(t, s, "rolls").(evaluator.List)
		for _, item := range all.Items {
			counts[item.(evaluator.Number).Value.Int64()]++
		}
		for _, item := range append(append([]evaluator.Value{}, kept.Items...), removed.Items...) {
			counts[item.(evaluator.Number).Value.Int64()]--
		}
		for face, c := range counts {
			if c != 0 {
				t.Errorf("kh/rh %d loses face %d (%+d)", n, face, c)
			}
		}
	}
}

func TestClosureLaws(t *testing.T) {
	s := testutil.NewSession(t, "conformance")
	// capture by value
	testutil.ExpectPrinted(t, s, "{ let x = 1; let f = ||x; x = 99; f() }", "1")

	// a closure with no free variables behaves the same from any scope
	testutil.MustEval(t, s, "let double = |v| v * 2")
	testutil.ExpectPrinted(t, s, "double(4)", "8")
	testutil.ExpectPrinted(t, s, "{ let double = double; { let v = 0; double(4) } }", "8")
}

func TestWholeProgramDeterminism(t *testing.T) {
	// same session seed, same program, same answer
	program := `
		// a character roll: six stats, 4d6 drop lowest each
		let stat = || +(4d6 rl 1);
		let stats = stat() ^ 6;
		let snapshot = save();
		let reroll = +(4d6 rl 1);
		restore(snapshot);
		stats ~ [+stats]
	`
	a := testutil.NewSession(t, "hero")
	b := testutil.NewSession(t, "hero")
	va := testutil.MustEval(t, a, program)
	vb := testutil.MustEval(t, b, program)
	if !evaluator.Equal(va, vb) {
		t.Errorf("two sessions diverged:\n  %s\n  %s", evaluator.Print(va), evaluator.Print(vb))
	}
}
