package ast

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// Binary encoding of expression trees. The encoding is deterministic: the
// same tree always produces the same bytes on every platform, which makes it
// usable inside the canonical JSON form of closures. Spans are not part of
// the encoding; decoded trees carry zero spans.

const (
	tagNull byte = iota
	tagBool
	tagNumber
	tagString
	tagList
	tagMap
	tagIdent
	tagLet
	tagAssign
	tagBlock
	tagCall
	tagIndex
	tagMember
	tagClosure
	tagUnary
	tagBinary
)

var binOpCodes = map[BinaryOp]byte{
	OpAdd: 0, OpSub: 1, OpMul: 2, OpDiv: 3, OpMod: 4, OpJoin: 5,
	OpRepeat: 6, OpDice: 7, OpKeepHigh: 8, OpKeepLow: 9, OpRemoveHigh: 10, OpRemoveLow: 11,
}

var binOpNames = [...]BinaryOp{
	OpAdd, OpSub, OpMul, OpDiv, OpMod, OpJoin,
	OpRepeat, OpDice, OpKeepHigh, OpKeepLow, OpRemoveHigh, OpRemoveLow,
}

var unOpCodes = map[UnaryOp]byte{OpNeg: 0, OpPlus: 1, OpDiceUnary: 2}

var unOpNames = [...]UnaryOp{OpNeg, OpPlus, OpDiceUnary}

// Encode serializes an expression tree to its canonical binary form.
func Encode(e Expr) []byte {
	return appendExpr(nil, e)
}

func appendString(b []byte, s string) []byte {
	b = binary.AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

func appendExpr(b []byte, e Expr) []byte {
	switch n := e.(type) {
	case *NullLit:
		return append(b, tagNull)
	case *BoolLit:
		b = append(b, tagBool)
		if n.Value {
			return append(b, 1)
		}
		return append(b, 0)
	case *NumberLit:
		b = append(b, tagNumber)
		switch n.Value.Sign() {
		case 0:
			return append(b, 0)
		case 1:
			b = append(b, 1)
		default:
			b = append(b, 2)
		}
		mag := n.Value.Bytes() // big-endian magnitude
		b = binary.AppendUvarint(b, uint64(len(mag)))
		for i := len(mag) - 1; i >= 0; i-- { // stored little-endian
			b = append(b, mag[i])
		}
		return b
	case *StringLit:
		return appendString(append(b, tagString), n.Value)
	case *ListLit:
		b = binary.AppendUvarint(append(b, tagList), uint64(len(n.Elements)))
		for _, el := range n.Elements {
			b = appendExpr(b, el)
		}
		return b
	case *MapLit:
		b = binary.AppendUvarint(append(b, tagMap), uint64(len(n.Pairs)))
		for _, p := range n.Pairs {
			b = appendString(b, p.Key)
			b = appendExpr(b, p.Value)
		}
		return b
	case *Ident:
		return appendString(append(b, tagIdent), n.Name)
	case *Let:
		b = appendString(append(b, tagLet), n.Name)
		return appendExpr(b, n.Value)
	case *Assign:
		b = appendString(append(b, tagAssign), n.Name)
		return appendExpr(b, n.Value)
	case *Block:
		b = binary.AppendUvarint(append(b, tagBlock), uint64(len(n.Exprs)))
		for _, el := range n.Exprs {
			b = appendExpr(b, el)
		}
		return b
	case *Call:
		b = appendExpr(append(b, tagCall), n.Callee)
		b = binary.AppendUvarint(b, uint64(len(n.Args)))
		for _, a := range n.Args {
			b = appendExpr(b, a)
		}
		return b
	case *Index:
		b = appendExpr(append(b, tagIndex), n.Recv)
		return appendExpr(b, n.Key)
	case *Member:
		b = appendExpr(append(b, tagMember), n.Recv)
		return appendString(b, n.Name)
	case *ClosureLit:
		b = binary.AppendUvarint(append(b, tagClosure), uint64(len(n.Params)))
		for _, p := range n.Params {
			b = appendString(b, p)
		}
		return appendExpr(b, n.Body)
	case *Unary:
		b = append(b, tagUnary, unOpCodes[n.Op])
		return appendExpr(b, n.Operand)
	case *Binary:
		b = append(b, tagBinary, binOpCodes[n.Op])
		b = appendExpr(b, n.Left)
		return appendExpr(b, n.Right)
	}
	panic(fmt.Sprintf("ast: unencodable node %T", e))
}

// Decode parses the canonical binary form back into an expression tree.
// It fails on truncated input, unknown tags, and trailing bytes.
func Decode(data []byte) (Expr, error) {
	d := &decoder{data: data}
	e, err := d.expr()
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.data) {
		return nil, fmt.Errorf("ast: %d trailing bytes after expression", len(d.data)-d.pos)
	}
	return e, nil
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) byte() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, fmt.Errorf("ast: truncated expression encoding")
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) uvarint() (uint64, error) {
	v, n := binary.Uvarint(d.data[d.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("ast: truncated expression encoding")
	}
	d.pos += n
	return v, nil
}

func (d *decoder) string() (string, error) {
	l, err := d.uvarint()
	if err != nil {
		return "", err
	}
	if uint64(len(d.data)-d.pos) < l {
		return "", fmt.Errorf("ast: truncated expression encoding")
	}
	s := string(d.data[d.pos : d.pos+int(l)])
	d.pos += int(l)
	return s, nil
}

func (d *decoder) expr() (Expr, error) {
	tag, err := d.byte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagNull:
		return &NullLit{}, nil
	case tagBool:
		b, err := d.byte()
		if err != nil {
			return nil, err
		}
		return &BoolLit{Value: b != 0}, nil
	case tagNumber:
		sign, err := d.byte()
		if err != nil {
			return nil, err
		}
		if sign == 0 {
			return &NumberLit{Value: new(big.Int)}, nil
		}
		l, err := d.uvarint()
		if err != nil {
			return nil, err
		}
		if uint64(len(d.data)-d.pos) < l {
			return nil, fmt.Errorf("ast: truncated expression encoding")
		}
		mag := make([]byte, l) // back to big-endian
		for i := range mag {
			mag[int(l)-1-i] = d.data[d.pos+i]
		}
		d.pos += int(l)
		v := new(big.Int).SetBytes(mag)
		if sign == 2 {
			v.Neg(v)
		}
		return &NumberLit{Value: v}, nil
	case tagString:
		s, err := d.string()
		if err != nil {
			return nil, err
		}
		return &StringLit{Value: s}, nil
	case tagList:
		els, err := d.exprs()
		if err != nil {
			return nil, err
		}
		return &ListLit{Elements: els}, nil
	case tagMap:
		count, err := d.uvarint()
		if err != nil {
			return nil, err
		}
		pairs := make([]MapPair, 0, count)
		for i := uint64(0); i < count; i++ {
			k, err := d.string()
			if err != nil {
				return nil, err
			}
			v, err := d.expr()
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, MapPair{Key: k, Value: v})
		}
		return &MapLit{Pairs: pairs}, nil
	case tagIdent:
		name, err := d.string()
		if err != nil {
			return nil, err
		}
		return &Ident{Name: name}, nil
	case tagLet:
		name, err := d.string()
		if err != nil {
			return nil, err
		}
		v, err := d.expr()
		if err != nil {
			return nil, err
		}
		return &Let{Name: name, Value: v}, nil
	case tagAssign:
		name, err := d.string()
		if err != nil {
			return nil, err
		}
		v, err := d.expr()
		if err != nil {
			return nil, err
		}
		return &Assign{Name: name, Value: v}, nil
	case tagBlock:
		els, err := d.exprs()
		if err != nil {
			return nil, err
		}
		if len(els) == 0 {
			return nil, fmt.Errorf("ast: empty block in expression encoding")
		}
		return &Block{Exprs: els}, nil
	case tagCall:
		callee, err := d.expr()
		if err != nil {
			return nil, err
		}
		args, err := d.exprs()
		if err != nil {
			return nil, err
		}
		return &Call{Callee: callee, Args: args}, nil
	case tagIndex:
		recv, err := d.expr()
		if err != nil {
			return nil, err
		}
		key, err := d.expr()
		if err != nil {
			return nil, err
		}
		return &Index{Recv: recv, Key: key}, nil
	case tagMember:
		recv, err := d.expr()
		if err != nil {
			return nil, err
		}
		name, err := d.string()
		if err != nil {
			return nil, err
		}
		return &Member{Recv: recv, Name: name}, nil
	case tagClosure:
		count, err := d.uvarint()
		if err != nil {
			return nil, err
		}
		params := make([]string, 0, count)
		for i := uint64(0); i < count; i++ {
			p, err := d.string()
			if err != nil {
				return nil, err
			}
			params = append(params, p)
		}
		body, err := d.expr()
		if err != nil {
			return nil, err
		}
		return &ClosureLit{Params: params, Body: body}, nil
	case tagUnary:
		op, err := d.byte()
		if err != nil {
			return nil, err
		}
		if int(op) >= len(unOpNames) {
			return nil, fmt.Errorf("ast: unknown unary op code %d", op)
		}
		operand, err := d.expr()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: unOpNames[op], Operand: operand}, nil
	case tagBinary:
		op, err := d.byte()
		if err != nil {
			return nil, err
		}
		if int(op) >= len(binOpNames) {
			return nil, fmt.Errorf("ast: unknown binary op code %d", op)
		}
		left, err := d.expr()
		if err != nil {
			return nil, err
		}
		right, err := d.expr()
		if err != nil {
			return nil, err
		}
		return &Binary{Op: binOpNames[op], Left: left, Right: right}, nil
	}
	return nil, fmt.Errorf("ast: unknown expression tag %d", tag)
}

func (d *decoder) exprs() ([]Expr, error) {
	count, err := d.uvarint()
	if err != nil {
		return nil, err
	}
	out := make([]Expr, 0, count)
	for i := uint64(0); i < count; i++ {
		e, err := d.expr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
