package evaluator

import "github.com/tumblelang/tumble/pkg/ast"

// EngineVersion identifies the evaluator, exposed at std.versions.engine.
var EngineVersion = ast.Version{Major: 0, Minor: 9, Patch: 0}
