// Package testutil provides shared test helpers for Tumble tests.
package testutil

import (
	"testing"

	"github.com/tumblelang/tumble/pkg/diagnostics"
	"github.com/tumblelang/tumble/pkg/evaluator"
	"github.com/tumblelang/tumble/pkg/parser"
	"github.com/tumblelang/tumble/pkg/stdlib"
)

// NewSession builds a session with the default intrinsics, std, and the
// prelude installed. A non-empty seed makes the RNG deterministic.
func NewSession(t *testing.T, seed string) *evaluator.Session {
	t.Helper()
	opts := evaluator.Options{}
	if seed != "" {
		opts.Seed = []byte(seed)
	}
	sess, _ := stdlib.NewSession(opts)
	return sess
}

// Eval parses source as a program and evaluates it in the session,
// returning the last value. Parse errors fail the test.
func Eval(t *testing.T, sess *evaluator.Session, source string) (evaluator.Value, error) {
	t.Helper()
	exprs, diags := parser.ParseProgram(source, "test.tum")
	if diags != nil {
		t.Fatalf("parse errors: %s", diagnostics.FormatDiagnostics(diags, true))
	}
	var last evaluator.Value = evaluator.Null{}
	for _, expr := range exprs {
		v, err := sess.Eval(expr)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

// MustEval is Eval but fails the test on runtime errors.
func MustEval(t *testing.T, sess *evaluator.Session, source string) evaluator.Value {
	t.Helper()
	v, err := Eval(t, sess, source)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	return v
}

// ExpectPrinted evaluates source and asserts the printed form of its value.
func ExpectPrinted(t *testing.T, sess *evaluator.Session, source, want string) {
	t.Helper()
	got := evaluator.Print(MustEval(t, sess, source))
	if got != want {
		t.Errorf("%s\n  got  %s\n  want %s", source, got, want)
	}
}

// ExpectError evaluates source and asserts it fails with the given
// diagnostic code.
func ExpectError(t *testing.T, sess *evaluator.Session, source, code string) {
	t.Helper()
	_, err := Eval(t, sess, source)
	if err == nil {
		t.Fatalf("%s: expected %s, got no error", source, code)
	}
	re, ok := err.(*evaluator.RuntimeError)
	if !ok {
		t.Fatalf("%s: expected *RuntimeError, got %T (%v)", source, err, err)
	}
	if re.Code != code {
		t.Errorf("%s: got %s (%s), want %s", source, re.Code, re.Message, code)
	}
}
