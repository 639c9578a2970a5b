// Package diagnostics defines Tumble diagnostic types for parse and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tumblelang/tumble/pkg/ast"
)

// Diagnostic code constants. One per error kind of the language.
const (
	EParse     = "E_PARSE"     // malformed source
	EType      = "E_TYPE"      // operation unsupported for the value, after coercion
	EArity     = "E_ARITY"     // wrong number of arguments
	EDomain    = "E_DOMAIN"    // numeric domain violation (zero divisor, bad index, ...)
	EName      = "E_NAME"      // unbound identifier
	EKey       = "E_KEY"       // missing or duplicate map key
	ERng       = "E_RNG"       // malformed RNG snapshot
	EIo        = "E_IO"        // file-system intrinsic failure
	ECancelled = "E_CANCELLED" // host-initiated cancellation
)

// Diagnostic represents a parse or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d (byte %d)", d.Span.File, d.Span.Line, d.Span.Col, d.Span.Start)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}

// SourceLine extracts the single source line containing the given byte
// offset, for use as a diagnostic hint.
func SourceLine(source string, offset int) string {
	if offset > len(source) {
		offset = len(source)
	}
	start := strings.LastIndexByte(source[:offset], '\n') + 1
	end := strings.IndexByte(source[offset:], '\n')
	if end < 0 {
		end = len(source)
	} else {
		end += offset
	}
	return source[start:end]
}
