package evaluator

import (
	"fmt"
	"math/big"

	"github.com/tumblelang/tumble/pkg/diagnostics"
	"github.com/tumblelang/tumble/pkg/lexer"
)

// ParseValue parses the printable form of a value: the restricted grammar
// accepting only literals (null, bool, integer, string, list, map). It
// rejects closures, intrinsics, comments, and arbitrary expressions, and it
// inverts Print over the values it accepts.
func ParseValue(source string) (Value, error) {
	tokens, err := lexer.TokenizeValue(source, "<value>")
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, &RuntimeError{Code: le.Diag.Code, Message: le.Diag.Message, Span: le.Diag.Span}
		}
		return nil, &RuntimeError{Code: diagnostics.EParse, Message: err.Error()}
	}
	p := &valueParser{tokens: tokens}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != lexer.TokEOF {
		return nil, p.errorf("unexpected token '%s' after value", p.peek().Value)
	}
	return v, nil
}

type valueParser struct {
	tokens []lexer.Token
	pos    int
}

func (p *valueParser) peek() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *valueParser) advance() lexer.Token {
	tok := p.peek()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *valueParser) errorf(format string, args ...any) error {
	span := p.peek().Span
	return &RuntimeError{Code: diagnostics.EParse, Message: fmt.Sprintf(format, args...), Span: &span}
}

func (p *valueParser) value() (Value, error) {
	tok := p.advance()
	switch tok.Type {
	case lexer.TokNull:
		return Null{}, nil
	case lexer.TokTrue:
		return Bool{Value: true}, nil
	case lexer.TokFalse:
		return Bool{Value: false}, nil
	case lexer.TokIntLit:
		n, ok := new(big.Int).SetString(tok.Value, 10)
		if !ok {
			return nil, p.errorf("malformed integer literal '%s'", tok.Value)
		}
		return Number{Value: n}, nil
	case lexer.TokMinus:
		num := p.advance()
		if num.Type != lexer.TokIntLit {
			return nil, p.errorf("expected integer after '-', got '%s'", num.Value)
		}
		n, ok := new(big.Int).SetString(num.Value, 10)
		if !ok {
			return nil, p.errorf("malformed integer literal '%s'", num.Value)
		}
		return Number{Value: n.Neg(n)}, nil
	case lexer.TokStringLit:
		return String{Value: tok.Value}, nil
	case lexer.TokLBracket:
		var items []Value
		for p.peek().Type != lexer.TokRBracket {
			item, err := p.value()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			if p.peek().Type != lexer.TokComma {
				break
			}
			p.advance()
		}
		if p.peek().Type != lexer.TokRBracket {
			return nil, p.errorf("expected ']', got '%s'", p.peek().Value)
		}
		p.advance()
		return List{Items: items}, nil
	case lexer.TokLMap:
		var pairs []KeyValue
		seen := map[string]bool{}
		for p.peek().Type != lexer.TokRMap {
			key, err := p.mapKey()
			if err != nil {
				return nil, err
			}
			if seen[key] {
				return nil, keyErrf("duplicate map key '%s'", key)
			}
			seen[key] = true
			if p.peek().Type != lexer.TokColon {
				return nil, p.errorf("expected ':', got '%s'", p.peek().Value)
			}
			p.advance()
			val, err := p.value()
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, KeyValue{Key: key, Value: val})
			if p.peek().Type != lexer.TokComma {
				break
			}
			p.advance()
		}
		if p.peek().Type != lexer.TokRMap {
			return nil, p.errorf("expected '|>', got '%s'", p.peek().Value)
		}
		p.advance()
		return NewMap(pairs), nil
	}
	return nil, p.errorf("unexpected token '%s' in value", tok.Value)
}

func (p *valueParser) mapKey() (string, error) {
	tok := p.peek()
	switch tok.Type {
	case lexer.TokIdent, lexer.TokStringLit,
		lexer.TokLet, lexer.TokNull, lexer.TokTrue, lexer.TokFalse,
		lexer.TokDice, lexer.TokKeepHigh, lexer.TokKeepLow, lexer.TokRemoveHigh, lexer.TokRemoveLow:
		p.advance()
		if tok.Value == "" {
			return "", keyErrf("map keys must be non-empty")
		}
		return tok.Value, nil
	}
	return "", p.errorf("expected map key, got '%s'", tok.Value)
}
