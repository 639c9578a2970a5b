package evaluator

import (
	"sort"
	"strings"

	"github.com/tumblelang/tumble/pkg/ast"
)

// Closure construction performs a capture pass: walk the body, collect the
// identifiers it reads without binding them, resolve each one against the
// surrounding environment, and store the value. Closures never reference
// frames, so they survive the scope they were built in.

// captureClosure builds a closure value from a literal.
func (s *Session) captureClosure(n *ast.ClosureLit, env *Env) (*Closure, error) {
	free, err := closureReads(n)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(free))
	for name := range free {
		names = append(names, name)
	}
	sort.Strings(names)

	var captures []KeyValue
	for _, name := range names {
		if v, ok := env.Get(name); ok {
			captures = append(captures, KeyValue{Key: name, Value: v})
		}
	}
	return &Closure{Params: n.Params, Captures: captures, Body: n.Body}, nil
}

// closureReads returns the free identifiers of a closure: the reads of its
// body minus its parameters.
func closureReads(n *ast.ClosureLit) (map[string]bool, error) {
	use, err := varUseOf(n.Body)
	if err != nil {
		return nil, err
	}
	for _, p := range n.Params {
		delete(use.reads, p)
	}
	return use.reads, nil
}

// varUse records how an expression interacts with variables: the names it
// reads before binding them, the names it assigns, and the names it
// introduces with let.
type varUse struct {
	reads map[string]bool
	sets  map[string]bool
	lets  map[string]bool
}

func useNone() varUse {
	return varUse{reads: map[string]bool{}, sets: map[string]bool{}, lets: map[string]bool{}}
}

func useReads(name string) varUse {
	u := useNone()
	u.reads[name] = true
	return u
}

// then sequences two uses: a executes first, b second. Reads and sets of b
// that a already bound or assigned do not escape.
func (a varUse) then(b varUse) varUse {
	out := useNone()
	for name := range a.reads {
		out.reads[name] = true
	}
	for name := range b.reads {
		if !a.sets[name] && !a.lets[name] {
			out.reads[name] = true
		}
	}
	for name := range a.sets {
		out.sets[name] = true
	}
	for name := range b.sets {
		if !a.lets[name] {
			out.sets[name] = true
		}
	}
	for name := range a.lets {
		out.lets[name] = true
	}
	for name := range b.lets {
		out.lets[name] = true
	}
	return out
}

// scoped closes a use into its own frame: lets do not escape.
func (a varUse) scoped() varUse {
	a.lets = map[string]bool{}
	return a
}

func varUseOf(e ast.Expr) (varUse, error) {
	switch n := e.(type) {
	case *ast.NullLit, *ast.BoolLit, *ast.NumberLit, *ast.StringLit:
		return useNone(), nil

	case *ast.Ident:
		return useReads(n.Name), nil

	case *ast.ListLit:
		return varUseSeq(n.Elements)

	case *ast.MapLit:
		acc := useNone()
		for _, p := range n.Pairs {
			u, err := varUseOf(p.Value)
			if err != nil {
				return varUse{}, err
			}
			acc = acc.then(u)
		}
		return acc, nil

	case *ast.Let:
		u, err := varUseOf(n.Value)
		if err != nil {
			return varUse{}, err
		}
		lets := useNone()
		lets.lets[n.Name] = true
		return u.then(lets), nil

	case *ast.Assign:
		u, err := varUseOf(n.Value)
		if err != nil {
			return varUse{}, err
		}
		sets := useNone()
		sets.sets[n.Name] = true
		return u.then(sets), nil

	case *ast.Block:
		u, err := varUseSeq(n.Exprs)
		if err != nil {
			return varUse{}, err
		}
		return u.scoped(), nil

	case *ast.Call:
		acc, err := varUseOf(n.Callee)
		if err != nil {
			return varUse{}, err
		}
		for _, a := range n.Args {
			u, err := varUseOf(a)
			if err != nil {
				return varUse{}, err
			}
			acc = acc.then(u)
		}
		return acc, nil

	case *ast.Index:
		left, err := varUseOf(n.Recv)
		if err != nil {
			return varUse{}, err
		}
		right, err := varUseOf(n.Key)
		if err != nil {
			return varUse{}, err
		}
		return left.then(right), nil

	case *ast.Member:
		return varUseOf(n.Recv)

	case *ast.ClosureLit:
		reads, err := closureReads(n)
		if err != nil {
			return varUse{}, err
		}
		u := useNone()
		u.reads = reads
		return u, nil

	case *ast.Unary:
		return varUseOf(n.Operand)

	case *ast.Binary:
		if n.Op == ast.OpRepeat {
			// A bare `let` under `^` would bind on some iterations only;
			// its capture set is ambiguous and the closure is rejected.
			body, err := varUseOf(n.Left)
			if err != nil {
				return varUse{}, err
			}
			if len(body.lets) > 0 {
				names := make([]string, 0, len(body.lets))
				for name := range body.lets {
					names = append(names, name)
				}
				sort.Strings(names)
				return varUse{}, typeErrf("cannot capture: '%s' is declared only in some paths of a repeat", strings.Join(names, "', '"))
			}
			count, err := varUseOf(n.Right)
			if err != nil {
				return varUse{}, err
			}
			return count.then(body), nil
		}
		left, err := varUseOf(n.Left)
		if err != nil {
			return varUse{}, err
		}
		right, err := varUseOf(n.Right)
		if err != nil {
			return varUse{}, err
		}
		return left.then(right), nil
	}
	return useNone(), nil
}

func varUseSeq(exprs []ast.Expr) (varUse, error) {
	acc := useNone()
	for _, e := range exprs {
		u, err := varUseOf(e)
		if err != nil {
			return varUse{}, err
		}
		acc = acc.then(u)
	}
	return acc, nil
}
