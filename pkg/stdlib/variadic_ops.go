package stdlib

import (
	"github.com/tumblelang/tumble/pkg/evaluator"
)

// The variadic folds and `call`.

func registerVariadics(r *Registry) {
	r.Register(evaluator.IntrinsicDef{
		Name:  "sum",
		Arity: -1,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			acc := evaluator.Value(evaluator.NewNumber(0))
			for _, arg := range args {
				next, err := evaluator.Add(acc, arg)
				if err != nil {
					return nil, err
				}
				acc = next
			}
			return acc, nil
		},
	})

	r.Register(evaluator.IntrinsicDef{
		Name:  "mult",
		Arity: -1,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			acc := evaluator.Value(evaluator.NewNumber(1))
			for _, arg := range args {
				next, err := evaluator.Mul(acc, arg)
				if err != nil {
					return nil, err
				}
				acc = next
			}
			return acc, nil
		},
	})

	r.Register(evaluator.IntrinsicDef{
		Name:  "join",
		Arity: -1,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			acc := evaluator.Value(evaluator.List{})
			for _, arg := range args {
				next, err := evaluator.Join(acc, arg)
				if err != nil {
					return nil, err
				}
				acc = next
			}
			return acc, nil
		},
	})

	// call(f, args): apply a callable to an argument list; args goes
	// through to_list, so a scalar is a single argument.
	r.Register(evaluator.IntrinsicDef{
		Name:  "call",
		Arity: 2,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			params := evaluator.ToList(args[1])
			return s.CallValue(args[0], params.Items)
		},
	})
}
