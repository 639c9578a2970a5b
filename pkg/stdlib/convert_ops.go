package stdlib

import (
	"github.com/tumblelang/tumble/pkg/evaluator"
)

// Conversions between the value variants and their printable forms.

func registerConversions(r *Registry) {
	r.Register(evaluator.IntrinsicDef{
		Name:  "to_number",
		Arity: 1,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			return evaluator.ToNumber(args[0])
		},
	})

	r.Register(evaluator.IntrinsicDef{
		Name:  "to_string",
		Arity: 1,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			return evaluator.String{Value: evaluator.Print(args[0])}, nil
		},
	})

	r.Register(evaluator.IntrinsicDef{
		Name:  "to_list",
		Arity: 1,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			return evaluator.ToList(args[0]), nil
		},
	})

	r.Register(evaluator.IntrinsicDef{
		Name:  "parse",
		Arity: 1,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			str, ok := args[0].(evaluator.String)
			if !ok {
				return nil, evaluator.TypeError("parse takes a string")
			}
			return evaluator.ParseValue(str.Value)
		},
	})
}
