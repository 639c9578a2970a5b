package evaluator

import (
	"fmt"

	"github.com/tumblelang/tumble/pkg/ast"
	"github.com/tumblelang/tumble/pkg/diagnostics"
)

// RuntimeError represents an error raised during evaluation. Errors are
// fatal to the current evaluation and unwind to the embedding caller.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diag converts the error to a displayable diagnostic.
func (e *RuntimeError) Diag() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
}

func typeErrf(format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: diagnostics.EType, Message: fmt.Sprintf(format, args...)}
}

func arityErrf(format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: diagnostics.EArity, Message: fmt.Sprintf(format, args...)}
}

func domainErrf(format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: diagnostics.EDomain, Message: fmt.Sprintf(format, args...)}
}

func nameErrf(format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: diagnostics.EName, Message: fmt.Sprintf(format, args...)}
}

func keyErrf(format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: diagnostics.EKey, Message: fmt.Sprintf(format, args...)}
}

func rngErrf(format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: diagnostics.ERng, Message: fmt.Sprintf(format, args...)}
}

func ioErrf(format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: diagnostics.EIo, Message: fmt.Sprintf(format, args...)}
}

// at attaches a span to a runtime error that does not carry one yet.
// Non-runtime errors pass through untouched.
func at(err error, span ast.Span) error {
	if re, ok := err.(*RuntimeError); ok && re.Span == nil {
		re.Span = &span
	}
	return err
}

// Public error constructors for intrinsic implementations living outside
// this package.

// TypeError builds an E_TYPE runtime error.
func TypeError(format string, args ...any) error { return typeErrf(format, args...) }

// ArityError builds an E_ARITY runtime error.
func ArityError(format string, args ...any) error { return arityErrf(format, args...) }

// DomainError builds an E_DOMAIN runtime error.
func DomainError(format string, args ...any) error { return domainErrf(format, args...) }

// KeyError builds an E_KEY runtime error.
func KeyError(format string, args ...any) error { return keyErrf(format, args...) }

// RngError builds an E_RNG runtime error.
func RngError(format string, args ...any) error { return rngErrf(format, args...) }

// IoError builds an E_IO runtime error.
func IoError(format string, args ...any) error { return ioErrf(format, args...) }
