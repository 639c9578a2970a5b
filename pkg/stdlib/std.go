package stdlib

import (
	"github.com/tumblelang/tumble/pkg/ast"
	"github.com/tumblelang/tumble/pkg/evaluator"
)

// The `std` module: introspection maps over the intrinsic table, the
// prelude, and the component versions.

// preludeNames are the intrinsics auto-bound in global scope, in binding
// order.
var preludeNames = []string{
	"sum", "join", "mult",
	"to_number", "to_list", "to_string", "parse",
	"to_json", "from_json",
	"seed", "save", "restore",
}

// variadicNames mirror the original std layout: the callables that accept
// any number of arguments.
var variadicNames = []string{"call", "sum", "join", "mult"}

var conversionNames = []string{
	"to_number", "to_list", "to_string", "parse", "to_json", "from_json",
}

func intrinsicPairs(names []string) []evaluator.KeyValue {
	pairs := make([]evaluator.KeyValue, len(names))
	for i, name := range names {
		pairs[i] = evaluator.KeyValue{Key: name, Value: evaluator.Intrinsic{Name: name}}
	}
	return pairs
}

func versionValue(v ast.Version) evaluator.Value {
	return evaluator.NewMap([]evaluator.KeyValue{
		{Key: "major", Value: evaluator.NewNumber(int64(v.Major))},
		{Key: "minor", Value: evaluator.NewNumber(int64(v.Minor))},
		{Key: "patch", Value: evaluator.NewNumber(int64(v.Patch))},
	})
}

// Std builds the `std` map over a registry.
func Std(r *Registry) *evaluator.Map {
	return evaluator.NewMap([]evaluator.KeyValue{
		{Key: "intrinsics", Value: evaluator.NewMap(intrinsicPairs(r.Names()))},
		{Key: "variadics", Value: evaluator.NewMap(intrinsicPairs(variadicNames))},
		{Key: "conversions", Value: evaluator.NewMap(intrinsicPairs(conversionNames))},
		{Key: "prelude", Value: evaluator.NewMap(intrinsicPairs(preludeNames))},
		{Key: "versions", Value: evaluator.NewMap([]evaluator.KeyValue{
			{Key: "ast", Value: versionValue(ast.Current)},
			{Key: "engine", Value: versionValue(evaluator.EngineVersion)},
		})},
	})
}

// Install binds `std` and the prelude names into the session's global
// scope.
func Install(s *evaluator.Session, r *Registry) {
	s.Bind("std", Std(r))
	for _, name := range preludeNames {
		s.Bind(name, evaluator.Intrinsic{Name: name})
	}
}

// NewSession builds a ready-to-use session: default intrinsics plus the
// given extra options, with std and the prelude installed.
func NewSession(opts evaluator.Options) (*evaluator.Session, *Registry) {
	reg := NewRegistry()
	RegisterDefaults(reg)
	if opts.Intrinsics == nil {
		opts.Intrinsics = reg.Table()
	}
	sess := evaluator.NewSession(opts)
	Install(sess, reg)
	return sess, reg
}
