package stdlib

import (
	"github.com/tumblelang/tumble/pkg/evaluator"
)

func registerJSON(r *Registry) {
	r.Register(evaluator.IntrinsicDef{
		Name:  "to_json",
		Arity: 1,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			data, err := evaluator.MarshalValue(args[0])
			if err != nil {
				return nil, err
			}
			return evaluator.String{Value: string(data)}, nil
		},
	})

	r.Register(evaluator.IntrinsicDef{
		Name:  "from_json",
		Arity: 1,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			str, ok := args[0].(evaluator.String)
			if !ok {
				return nil, evaluator.TypeError("from_json takes a string")
			}
			return evaluator.UnmarshalValue([]byte(str.Value))
		},
	})
}
