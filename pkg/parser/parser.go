// Package parser implements the Tumble expression parser.
package parser

import (
	"fmt"
	"math/big"

	"github.com/tumblelang/tumble/pkg/ast"
	"github.com/tumblelang/tumble/pkg/diagnostics"
	"github.com/tumblelang/tumble/pkg/lexer"
)

type parser struct {
	source string
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
}

// Parse tokenizes source and parses it as a single expression.
func Parse(source, filename string) (ast.Expr, []diagnostics.Diagnostic) {
	p, diags := newParser(source, filename)
	if diags != nil {
		return nil, diags
	}
	expr, ok := p.parseExpr()
	if ok && p.peek() != lexer.TokEOF {
		p.addError(fmt.Sprintf("unexpected token '%s' after expression", p.current().Value), p.current().Span)
	}
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return expr, nil
}

// ParseProgram tokenizes source and parses it as a sequence of expressions
// separated by semicolons. A trailing semicolon is allowed.
func ParseProgram(source, filename string) ([]ast.Expr, []diagnostics.Diagnostic) {
	p, diags := newParser(source, filename)
	if diags != nil {
		return nil, diags
	}
	var exprs []ast.Expr
	for p.peek() != lexer.TokEOF {
		expr, ok := p.parseExpr()
		if !ok {
			return nil, p.diags
		}
		exprs = append(exprs, expr)
		if p.peek() != lexer.TokSemi {
			break
		}
		p.advance()
	}
	if p.peek() != lexer.TokEOF {
		p.addError(fmt.Sprintf("unexpected token '%s' after expression", p.current().Value), p.current().Span)
	}
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return exprs, nil
}

func newParser(source, filename string) (*parser, []diagnostics.Diagnostic) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EParse, err.Error(), nil, "")}
	}
	return &parser{source: source, tokens: tokens}, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType, what string) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.addError(fmt.Sprintf("expected %s, got '%s'", what, tok.Value), tok.Span)
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) addError(msg string, span ast.Span) {
	hint := diagnostics.SourceLine(p.source, span.Start)
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, &span, hint))
}

func (p *parser) spanFrom(start ast.Span) ast.Span {
	prev := p.tokens[0].Span
	if p.pos > 0 {
		prev = p.tokens[p.pos-1].Span
	}
	start.End = prev.End
	return start
}

// --- Precedence climbing ---

// parseExpr parses at the lowest tier: let and assignment, right-associative.
func (p *parser) parseExpr() (ast.Expr, bool) {
	start := p.current().Span
	switch {
	case p.peek() == lexer.TokLet:
		p.advance()
		name, ok := p.expect(lexer.TokIdent, "identifier")
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(lexer.TokEquals, "'='"); !ok {
			return nil, false
		}
		value, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		return &ast.Let{Span: p.spanFrom(start), Name: name.Value, Value: value}, true
	case p.peek() == lexer.TokIdent && p.peekAt(1) == lexer.TokEquals:
		name := p.advance()
		p.advance() // '='
		value, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		return &ast.Assign{Span: p.spanFrom(start), Name: name.Value, Value: value}, true
	}
	return p.parseJoin()
}

func (p *parser) parseJoin() (ast.Expr, bool) {
	start := p.current().Span
	left, ok := p.parseAdd()
	if !ok {
		return nil, false
	}
	for p.peek() == lexer.TokTilde {
		p.advance()
		right, ok := p.parseAdd()
		if !ok {
			return nil, false
		}
		left = &ast.Binary{Span: p.spanFrom(start), Op: ast.OpJoin, Left: left, Right: right}
	}
	return left, true
}

func (p *parser) parseAdd() (ast.Expr, bool) {
	start := p.current().Span
	left, ok := p.parseMul()
	if !ok {
		return nil, false
	}
	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokPlus:
			op = ast.OpAdd
		case lexer.TokMinus:
			op = ast.OpSub
		default:
			return left, true
		}
		p.advance()
		right, ok := p.parseMul()
		if !ok {
			return nil, false
		}
		left = &ast.Binary{Span: p.spanFrom(start), Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseMul() (ast.Expr, bool) {
	start := p.current().Span
	left, ok := p.parseRepeat()
	if !ok {
		return nil, false
	}
	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokStar:
			op = ast.OpMul
		case lexer.TokSlash:
			op = ast.OpDiv
		case lexer.TokPercent:
			op = ast.OpMod
		default:
			return left, true
		}
		p.advance()
		right, ok := p.parseRepeat()
		if !ok {
			return nil, false
		}
		left = &ast.Binary{Span: p.spanFrom(start), Op: op, Left: left, Right: right}
	}
}

// parseRepeat handles the shared `^` / `kh` / `kl` / `rh` / `rl` tier.
// All five associate left across the tier.
func (p *parser) parseRepeat() (ast.Expr, bool) {
	start := p.current().Span
	left, ok := p.parseUnary()
	if !ok {
		return nil, false
	}
	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokCaret:
			op = ast.OpRepeat
		case lexer.TokKeepHigh:
			op = ast.OpKeepHigh
		case lexer.TokKeepLow:
			op = ast.OpKeepLow
		case lexer.TokRemoveHigh:
			op = ast.OpRemoveHigh
		case lexer.TokRemoveLow:
			op = ast.OpRemoveLow
		default:
			return left, true
		}
		p.advance()
		right, ok := p.parseUnary()
		if !ok {
			return nil, false
		}
		left = &ast.Binary{Span: p.spanFrom(start), Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (ast.Expr, bool) {
	start := p.current().Span
	var op ast.UnaryOp
	switch p.peek() {
	case lexer.TokPlus:
		op = ast.OpPlus
	case lexer.TokMinus:
		op = ast.OpNeg
	case lexer.TokDice:
		op = ast.OpDiceUnary
	default:
		return p.parseDice()
	}
	p.advance()
	operand, ok := p.parseUnary()
	if !ok {
		return nil, false
	}
	return &ast.Unary{Span: p.spanFrom(start), Op: op, Operand: operand}, true
}

// parseDice handles binary `d`, which binds tighter than every other
// operator: `3d6 kh 1` keeps from the roll, `2*3d6` rolls before scaling.
func (p *parser) parseDice() (ast.Expr, bool) {
	start := p.current().Span
	left, ok := p.parsePostfix()
	if !ok {
		return nil, false
	}
	for p.peek() == lexer.TokDice {
		p.advance()
		right, ok := p.parsePostfix()
		if !ok {
			return nil, false
		}
		left = &ast.Binary{Span: p.spanFrom(start), Op: ast.OpDice, Left: left, Right: right}
	}
	return left, true
}

func (p *parser) parsePostfix() (ast.Expr, bool) {
	start := p.current().Span
	expr, ok := p.parsePrimary()
	if !ok {
		return nil, false
	}
	for {
		switch p.peek() {
		case lexer.TokLParen:
			p.advance()
			var args []ast.Expr
			for p.peek() != lexer.TokRParen {
				arg, ok := p.parseExpr()
				if !ok {
					return nil, false
				}
				args = append(args, arg)
				if p.peek() != lexer.TokComma {
					break
				}
				p.advance()
			}
			if _, ok := p.expect(lexer.TokRParen, "')'"); !ok {
				return nil, false
			}
			expr = &ast.Call{Span: p.spanFrom(start), Callee: expr, Args: args}
		case lexer.TokLBracket:
			p.advance()
			key, ok := p.parseExpr()
			if !ok {
				return nil, false
			}
			if _, ok := p.expect(lexer.TokRBracket, "']'"); !ok {
				return nil, false
			}
			expr = &ast.Index{Span: p.spanFrom(start), Recv: expr, Key: key}
		case lexer.TokDot:
			p.advance()
			name, ok := p.parseMemberName()
			if !ok {
				return nil, false
			}
			expr = &ast.Member{Span: p.spanFrom(start), Recv: expr, Name: name}
		default:
			return expr, true
		}
	}
}

// parseMemberName accepts an identifier, a string literal, or a non-negative
// integer literal after `.`; keyword words double as plain names here.
func (p *parser) parseMemberName() (string, bool) {
	tok := p.current()
	switch tok.Type {
	case lexer.TokIdent, lexer.TokStringLit, lexer.TokIntLit,
		lexer.TokLet, lexer.TokNull, lexer.TokTrue, lexer.TokFalse,
		lexer.TokDice, lexer.TokKeepHigh, lexer.TokKeepLow, lexer.TokRemoveHigh, lexer.TokRemoveLow:
		p.advance()
		return tok.Value, true
	}
	p.addError(fmt.Sprintf("expected member name, got '%s'", tok.Value), tok.Span)
	return "", false
}

func (p *parser) parsePrimary() (ast.Expr, bool) {
	tok := p.current()
	start := tok.Span
	switch tok.Type {
	case lexer.TokIntLit:
		p.advance()
		v, ok := new(big.Int).SetString(tok.Value, 10)
		if !ok {
			p.addError(fmt.Sprintf("malformed integer literal '%s'", tok.Value), start)
			return nil, false
		}
		return &ast.NumberLit{Span: start, Value: v}, true
	case lexer.TokStringLit:
		p.advance()
		return &ast.StringLit{Span: start, Value: tok.Value}, true
	case lexer.TokNull:
		p.advance()
		return &ast.NullLit{Span: start}, true
	case lexer.TokTrue:
		p.advance()
		return &ast.BoolLit{Span: start, Value: true}, true
	case lexer.TokFalse:
		p.advance()
		return &ast.BoolLit{Span: start, Value: false}, true
	case lexer.TokIdent:
		p.advance()
		return &ast.Ident{Span: start, Name: tok.Value}, true
	case lexer.TokLParen:
		p.advance()
		expr, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(lexer.TokRParen, "')'"); !ok {
			return nil, false
		}
		return expr, true
	case lexer.TokLBracket:
		return p.parseListLit()
	case lexer.TokLMap:
		return p.parseMapLit()
	case lexer.TokLBrace:
		return p.parseBlock()
	case lexer.TokPipe:
		return p.parseClosure()
	}
	p.addError(fmt.Sprintf("unexpected token '%s'", tok.Value), start)
	return nil, false
}

func (p *parser) parseListLit() (ast.Expr, bool) {
	start := p.advance().Span // '['
	var elements []ast.Expr
	for p.peek() != lexer.TokRBracket {
		el, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		elements = append(elements, el)
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(lexer.TokRBracket, "']'"); !ok {
		return nil, false
	}
	return &ast.ListLit{Span: p.spanFrom(start), Elements: elements}, true
}

// isMapKey reports whether the token can start a map literal entry.
func isMapKey(t lexer.TokenType) bool {
	switch t {
	case lexer.TokIdent, lexer.TokStringLit,
		lexer.TokLet, lexer.TokNull, lexer.TokTrue, lexer.TokFalse,
		lexer.TokDice, lexer.TokKeepHigh, lexer.TokKeepLow, lexer.TokRemoveHigh, lexer.TokRemoveLow:
		return true
	}
	return false
}

func (p *parser) parseMapLit() (ast.Expr, bool) {
	start := p.advance().Span // '<|'
	var pairs []ast.MapPair
	seen := map[string]bool{}
	for p.peek() != lexer.TokRMap {
		keyTok := p.current()
		if !isMapKey(keyTok.Type) {
			p.addError(fmt.Sprintf("expected map key, got '%s'", keyTok.Value), keyTok.Span)
			return nil, false
		}
		p.advance()
		if keyTok.Value == "" {
			p.addError("map keys must be non-empty", keyTok.Span)
			return nil, false
		}
		if seen[keyTok.Value] {
			p.addError(fmt.Sprintf("duplicate map key '%s'", keyTok.Value), keyTok.Span)
			return nil, false
		}
		seen[keyTok.Value] = true
		if _, ok := p.expect(lexer.TokColon, "':'"); !ok {
			return nil, false
		}
		value, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		pairs = append(pairs, ast.MapPair{Span: p.spanFrom(keyTok.Span), Key: keyTok.Value, Value: value})
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(lexer.TokRMap, "'|>'"); !ok {
		return nil, false
	}
	return &ast.MapLit{Span: p.spanFrom(start), Pairs: pairs}, true
}

func (p *parser) parseBlock() (ast.Expr, bool) {
	start := p.advance().Span // '{'
	var exprs []ast.Expr
	for {
		expr, ok := p.parseExpr()
		if !ok {
			return nil, false
		}
		exprs = append(exprs, expr)
		if p.peek() != lexer.TokSemi {
			break
		}
		p.advance()
		if p.peek() == lexer.TokRBrace {
			break // trailing semicolon
		}
	}
	if _, ok := p.expect(lexer.TokRBrace, "'}'"); !ok {
		return nil, false
	}
	return &ast.Block{Span: p.spanFrom(start), Exprs: exprs}, true
}

func (p *parser) parseClosure() (ast.Expr, bool) {
	start := p.advance().Span // '|'
	var params []string
	seen := map[string]bool{}
	for p.peek() != lexer.TokPipe {
		name, ok := p.expect(lexer.TokIdent, "parameter name")
		if !ok {
			return nil, false
		}
		if seen[name.Value] {
			p.addError(fmt.Sprintf("duplicate closure parameter '%s'", name.Value), name.Span)
			return nil, false
		}
		seen[name.Value] = true
		params = append(params, name.Value)
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}
	if _, ok := p.expect(lexer.TokPipe, "'|'"); !ok {
		return nil, false
	}
	body, ok := p.parseExpr()
	if !ok {
		return nil, false
	}
	return &ast.ClosureLit{Span: p.spanFrom(start), Params: params, Body: body}, true
}
