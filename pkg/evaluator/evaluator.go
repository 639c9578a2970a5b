package evaluator

import (
	"context"
	"strconv"

	"github.com/tumblelang/tumble/pkg/ast"
	"github.com/tumblelang/tumble/pkg/capabilities"
	"github.com/tumblelang/tumble/pkg/diagnostics"
	"github.com/tumblelang/tumble/pkg/rng"
)

// IntrinsicDef defines a built-in callable. The table mapping names to
// definitions is immutable once a session is built and may be shared
// between sessions.
type IntrinsicDef struct {
	Name    string
	Arity   int // exact argument count, or -1 for variadic
	Execute func(s *Session, args []Value) (Value, error)
}

// Options configures a session.
type Options struct {
	// Intrinsics maps intrinsic names to their implementations.
	Intrinsics map[string]*IntrinsicDef
	// FS is the file-system capability used by the file intrinsics.
	// When nil, those intrinsics fail with an I/O error.
	FS capabilities.FileSystem
	// Seed, when non-nil, derives the initial RNG state deterministically.
	// When nil the session seeds from system entropy.
	Seed []byte
}

// Session owns everything one evaluation needs: the global scope, the RNG
// stream, the intrinsic table, and the optional file-system capability.
// A session is single-threaded; hosts multiplexing evaluations give each
// its own session.
type Session struct {
	rng        *rng.Source
	globals    *Env
	intrinsics map[string]*IntrinsicDef
	fs         capabilities.FileSystem
	ctx        context.Context
}

// NewSession creates a session.
func NewSession(opts Options) *Session {
	var src *rng.Source
	if opts.Seed != nil {
		src = rng.NewSeeded(opts.Seed)
	} else {
		src = rng.NewFromEntropy()
	}
	return &Session{
		rng:        src,
		globals:    NewEnv(nil),
		intrinsics: opts.Intrinsics,
		fs:         opts.FS,
	}
}

// Bind sets a variable in the global scope.
func (s *Session) Bind(name string, v Value) {
	s.globals.Set(name, v)
}

// Lookup reads a variable from the global scope.
func (s *Session) Lookup(name string) (Value, bool) {
	return s.globals.Get(name)
}

// RNG exposes the session's random stream, for the RNG intrinsics.
func (s *Session) RNG() *rng.Source {
	return s.rng
}

// FS exposes the session's file-system capability; nil when absent.
func (s *Session) FS() capabilities.FileSystem {
	return s.fs
}

// Eval evaluates an expression in the session's global scope.
func (s *Session) Eval(expr ast.Expr) (Value, error) {
	return s.EvalContext(context.Background(), expr)
}

// EvalContext evaluates with a cancellation context. The context is checked
// at block boundaries and before each dice draw; on cancellation the
// evaluation unwinds with an E_CANCELLED error.
func (s *Session) EvalContext(ctx context.Context, expr ast.Expr) (Value, error) {
	s.ctx = ctx
	defer func() { s.ctx = nil }()
	return s.eval(expr, s.globals)
}

func (s *Session) checkCancel(span ast.Span) error {
	if s.ctx == nil {
		return nil
	}
	if err := s.ctx.Err(); err != nil {
		return &RuntimeError{Code: diagnostics.ECancelled, Message: "evaluation cancelled", Span: &span}
	}
	return nil
}

func (s *Session) eval(e ast.Expr, env *Env) (Value, error) {
	switch n := e.(type) {
	case *ast.NullLit:
		return Null{}, nil
	case *ast.BoolLit:
		return Bool{Value: n.Value}, nil
	case *ast.NumberLit:
		return Number{Value: n.Value}, nil
	case *ast.StringLit:
		return String{Value: n.Value}, nil

	case *ast.ListLit:
		items := make([]Value, len(n.Elements))
		for i, el := range n.Elements {
			v, err := s.eval(el, env)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return List{Items: items}, nil

	case *ast.MapLit:
		pairs := make([]KeyValue, len(n.Pairs))
		for i, p := range n.Pairs {
			v, err := s.eval(p.Value, env)
			if err != nil {
				return nil, err
			}
			pairs[i] = KeyValue{Key: p.Key, Value: v}
		}
		return NewMap(pairs), nil

	case *ast.Ident:
		v, ok := env.Get(n.Name)
		if !ok {
			return nil, at(nameErrf("'%s' is not defined", n.Name), n.Span)
		}
		return v, nil

	case *ast.Let:
		v, err := s.eval(n.Value, env)
		if err != nil {
			return nil, err
		}
		env.Set(n.Name, v)
		return v, nil

	case *ast.Assign:
		v, err := s.eval(n.Value, env)
		if err != nil {
			return nil, err
		}
		if !env.Assign(n.Name, v) {
			// no binding anywhere in the chain: create one in the
			// outermost frame
			env.Root().Set(n.Name, v)
		}
		return v, nil

	case *ast.Block:
		scope := env.Child()
		var last Value = Null{}
		for _, el := range n.Exprs {
			if err := s.checkCancel(el.NodeSpan()); err != nil {
				return nil, err
			}
			v, err := s.eval(el, scope)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil

	case *ast.Call:
		callee, err := s.eval(n.Callee, env)
		if err != nil {
			return nil, err
		}
		args := make([]Value, len(n.Args))
		for i, a := range n.Args {
			v, err := s.eval(a, env)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		v, err := s.CallValue(callee, args)
		if err != nil {
			return nil, at(err, n.Span)
		}
		return v, nil

	case *ast.Index:
		recv, err := s.eval(n.Recv, env)
		if err != nil {
			return nil, err
		}
		key, err := s.eval(n.Key, env)
		if err != nil {
			return nil, err
		}
		v, err := indexValue(recv, key)
		if err != nil {
			return nil, at(err, n.Span)
		}
		return v, nil

	case *ast.Member:
		recv, err := s.eval(n.Recv, env)
		if err != nil {
			return nil, err
		}
		v, err := memberValue(recv, n.Name)
		if err != nil {
			return nil, at(err, n.Span)
		}
		return v, nil

	case *ast.ClosureLit:
		c, err := s.captureClosure(n, env)
		if err != nil {
			return nil, at(err, n.Span)
		}
		return c, nil

	case *ast.Unary:
		operand, err := s.eval(n.Operand, env)
		if err != nil {
			return nil, err
		}
		var v Value
		switch n.Op {
		case ast.OpPlus:
			v, err = Sum(operand)
		case ast.OpNeg:
			v, err = Neg(operand)
		case ast.OpDiceUnary:
			v, err = s.rollOne(operand, n.Span)
		}
		if err != nil {
			return nil, at(err, n.Span)
		}
		return v, nil

	case *ast.Binary:
		return s.evalBinary(n, env)
	}
	return nil, typeErrf("unevaluatable node %s", e.Kind())
}

func (s *Session) evalBinary(n *ast.Binary, env *Env) (Value, error) {
	// `^` re-evaluates its left operand, so it cannot evaluate both sides
	// up front like every other operator.
	if n.Op == ast.OpRepeat {
		return s.evalRepeat(n, env)
	}

	left, err := s.eval(n.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := s.eval(n.Right, env)
	if err != nil {
		return nil, err
	}

	var v Value
	switch n.Op {
	case ast.OpAdd:
		v, err = Add(left, right)
	case ast.OpSub:
		v, err = Sub(left, right)
	case ast.OpMul:
		v, err = Mul(left, right)
	case ast.OpDiv:
		v, err = Div(left, right)
	case ast.OpMod:
		v, err = Rem(left, right)
	case ast.OpJoin:
		v, err = Join(left, right)
	case ast.OpDice:
		v, err = s.rollMany(left, right, n.Span)
	case ast.OpKeepHigh:
		v, err = filter(keepHigh, left, right)
	case ast.OpKeepLow:
		v, err = filter(keepLow, left, right)
	case ast.OpRemoveHigh:
		v, err = filter(removeHigh, left, right)
	case ast.OpRemoveLow:
		v, err = filter(removeLow, left, right)
	default:
		err = typeErrf("unknown binary operator '%s'", n.Op)
	}
	if err != nil {
		return nil, at(err, n.Span)
	}
	return v, nil
}

// evalRepeat implements `^`: the count is evaluated once, then the left
// operand is re-evaluated that many times in the current environment.
func (s *Session) evalRepeat(n *ast.Binary, env *Env) (Value, error) {
	count, err := s.eval(n.Right, env)
	if err != nil {
		return nil, err
	}
	times, err := needCount(count, "repeat count")
	if err != nil {
		return nil, at(err, n.Span)
	}
	items := make([]Value, 0, times)
	for i := int64(0); i < times; i++ {
		if err := s.checkCancel(n.Span); err != nil {
			return nil, err
		}
		v, err := s.eval(n.Left, env)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return List{Items: items}, nil
}

// needCount coerces a non-negative int64, for repeat and dice counts.
func needCount(v Value, what string) (int64, error) {
	n, err := ToNumber(v)
	if err != nil {
		return 0, err
	}
	if n.Value.Sign() < 0 {
		return 0, domainErrf("%s must be non-negative, got %s", what, n.Value)
	}
	if !n.Value.IsInt64() {
		return 0, domainErrf("%s %s is too large", what, n.Value)
	}
	return n.Value.Int64(), nil
}

// needFaces coerces a positive int64 face count.
func needFaces(v Value) (int64, error) {
	n, err := ToNumber(v)
	if err != nil {
		return 0, err
	}
	if n.Value.Sign() <= 0 {
		return 0, domainErrf("dice need a positive number of faces, got %s", n.Value)
	}
	if !n.Value.IsInt64() {
		return 0, domainErrf("face count %s is too large", n.Value)
	}
	return n.Value.Int64(), nil
}

func (s *Session) rollOne(faces Value, span ast.Span) (Value, error) {
	f, err := needFaces(faces)
	if err != nil {
		return nil, err
	}
	if err := s.checkCancel(span); err != nil {
		return nil, err
	}
	return NewNumber(s.rng.Roll(f)), nil
}

func (s *Session) rollMany(count, faces Value, span ast.Span) (Value, error) {
	n, err := needCount(count, "dice count")
	if err != nil {
		return nil, err
	}
	f, err := needFaces(faces)
	if err != nil {
		return nil, err
	}
	items := make([]Value, 0, n)
	for i := int64(0); i < n; i++ {
		if err := s.checkCancel(span); err != nil {
			return nil, err
		}
		items = append(items, NewNumber(s.rng.Roll(f)))
	}
	return List{Items: items}, nil
}

// CallValue applies a closure or intrinsic to already-evaluated arguments.
func (s *Session) CallValue(callee Value, args []Value) (Value, error) {
	switch c := callee.(type) {
	case *Closure:
		if len(args) != len(c.Params) {
			return nil, arityErrf("closure takes %d arguments, got %d", len(c.Params), len(args))
		}
		// The frame chain starts at the captured snapshot, not the
		// caller's scope.
		captured := NewEnv(nil)
		for _, kv := range c.Captures {
			captured.Set(kv.Key, kv.Value)
		}
		frame := captured.Child()
		for i, p := range c.Params {
			frame.Set(p, args[i])
		}
		return s.eval(c.Body, frame)
	case Intrinsic:
		def := s.intrinsics[c.Name]
		if def == nil {
			return nil, nameErrf("unknown intrinsic '%s'", c.Name)
		}
		if def.Arity >= 0 && len(args) != def.Arity {
			return nil, arityErrf("intrinsic '%s' takes %d arguments, got %d", c.Name, def.Arity, len(args))
		}
		return def.Execute(s, args)
	}
	return nil, typeErrf("cannot call %s", variantName(callee))
}

func indexValue(recv, key Value) (Value, error) {
	switch r := recv.(type) {
	case List:
		i, err := needIndex(key, int64(len(r.Items)))
		if err != nil {
			return nil, err
		}
		return r.Items[i], nil
	case String:
		runes := []rune(r.Value)
		i, err := needIndex(key, int64(len(runes)))
		if err != nil {
			return nil, err
		}
		return String{Value: string(runes[i])}, nil
	case *Map:
		k, ok := key.(String)
		if !ok {
			return nil, typeErrf("map keys are strings, got %s", variantName(key))
		}
		v, ok := r.Get(k.Value)
		if !ok {
			return nil, keyErrf("map has no key '%s'", k.Value)
		}
		return v, nil
	}
	return nil, typeErrf("cannot index %s", variantName(recv))
}

// needIndex resolves an index value against a length, counting negative
// indices from the end.
func needIndex(v Value, length int64) (int64, error) {
	n, err := ToNumber(v)
	if err != nil {
		return 0, err
	}
	if !n.Value.IsInt64() {
		return 0, domainErrf("index %s is out of range", n.Value)
	}
	i := n.Value.Int64()
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, domainErrf("index %s is out of range for length %d", n.Value, length)
	}
	return i, nil
}

func memberValue(recv Value, name string) (Value, error) {
	switch r := recv.(type) {
	case *Map:
		v, ok := r.Get(name)
		if !ok {
			return nil, keyErrf("map has no key '%s'", name)
		}
		return v, nil
	case List, String:
		i, err := strconv.ParseInt(name, 10, 64)
		if err != nil || i < 0 {
			return nil, typeErrf("member '%s' needs a map; positional members are non-negative integers", name)
		}
		return indexValue(recv, NewNumber(i))
	}
	return nil, typeErrf("cannot access member '%s' of %s", name, variantName(recv))
}
