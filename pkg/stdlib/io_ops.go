package stdlib

import (
	"github.com/tumblelang/tumble/pkg/evaluator"
)

// File intrinsics. All access goes through the session's file-system
// capability; hosts without one get I/O errors instead of file access.

func registerIO(r *Registry) {
	r.Register(evaluator.IntrinsicDef{
		Name:  "file_read",
		Arity: 1,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			path, ok := args[0].(evaluator.String)
			if !ok {
				return nil, evaluator.TypeError("file_read takes a path string")
			}
			fs := s.FS()
			if fs == nil {
				return nil, evaluator.IoError("no file-system capability in this session")
			}
			text, err := fs.ReadFile(path.Value)
			if err != nil {
				return nil, evaluator.IoError("file_read %s: %v", path.Value, err)
			}
			return evaluator.String{Value: text}, nil
		},
	})

	r.Register(evaluator.IntrinsicDef{
		Name:  "file_write",
		Arity: 2,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			path, ok := args[0].(evaluator.String)
			if !ok {
				return nil, evaluator.TypeError("file_write takes a path string")
			}
			text, ok := args[1].(evaluator.String)
			if !ok {
				return nil, evaluator.TypeError("file_write takes the text to write as a string")
			}
			fs := s.FS()
			if fs == nil {
				return nil, evaluator.IoError("no file-system capability in this session")
			}
			if err := fs.WriteFile(path.Value, text.Value); err != nil {
				return nil, evaluator.IoError("file_write %s: %v", path.Value, err)
			}
			return evaluator.Null{}, nil
		},
	})
}
