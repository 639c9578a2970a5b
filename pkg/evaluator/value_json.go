package evaluator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/tumblelang/tumble/pkg/ast"
)

// Canonical JSON form of values. Null, bool, string, list, numbers that fit
// in 64 bits, and maps whose keys avoid "$type" map to their natural JSON
// forms; everything else uses a "$type" wrapper. The encoding is canonical: the same value always
// produces the same bytes, which the RNG seed derivation relies on.

// MarshalValue serializes a value to its canonical JSON form.
func MarshalValue(v Value) ([]byte, error) {
	return appendJSON(nil, v)
}

func appendJSON(buf []byte, v Value) ([]byte, error) {
	switch val := v.(type) {
	case Null:
		return append(buf, "null"...), nil
	case Bool:
		if val.Value {
			return append(buf, "true"...), nil
		}
		return append(buf, "false"...), nil
	case Number:
		if val.Value.IsInt64() {
			return strconv.AppendInt(buf, val.Value.Int64(), 10), nil
		}
		sign := 1
		if val.Value.Sign() < 0 {
			sign = -1
		}
		buf = append(buf, `{"$type":"number","$sign":`...)
		buf = strconv.AppendInt(buf, int64(sign), 10)
		buf = append(buf, `,"$bytes":`...)
		buf = appendByteArray(buf, magnitudeLE(val.Value))
		return append(buf, '}'), nil
	case String:
		return appendJSONString(buf, val.Value)
	case List:
		buf = append(buf, '[')
		for i, item := range val.Items {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			buf, err = appendJSON(buf, item)
			if err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	case *Map:
		if val.Has("$type") {
			buf = append(buf, `{"$type":"map","$content":`...)
			var err error
			buf, err = appendJSONObject(buf, val.Pairs)
			if err != nil {
				return nil, err
			}
			return append(buf, '}'), nil
		}
		return appendJSONObject(buf, val.Pairs)
	case *Closure:
		buf = append(buf, `{"$type":"closure","$params":[`...)
		for i, p := range val.Params {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			buf, err = appendJSONString(buf, p)
			if err != nil {
				return nil, err
			}
		}
		buf = append(buf, ']')
		if len(val.Captures) > 0 {
			buf = append(buf, `,"$captures":`...)
			var err error
			buf, err = appendJSONObject(buf, val.Captures)
			if err != nil {
				return nil, err
			}
		}
		buf = append(buf, `,"$body":`...)
		buf = appendByteArray(buf, ast.Encode(val.Body))
		return append(buf, '}'), nil
	case Intrinsic:
		buf = append(buf, `{"$type":"intrinsic","$intrinsic":`...)
		var err error
		buf, err = appendJSONString(buf, val.Name)
		if err != nil {
			return nil, err
		}
		return append(buf, '}'), nil
	}
	return nil, typeErrf("cannot serialize %s to JSON", variantName(v))
}

// appendJSONObject writes pairs as a JSON object, preserving their order.
func appendJSONObject(buf []byte, pairs []KeyValue) ([]byte, error) {
	buf = append(buf, '{')
	for i, kv := range pairs {
		if i > 0 {
			buf = append(buf, ',')
		}
		var err error
		buf, err = appendJSONString(buf, kv.Key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, ':')
		buf, err = appendJSON(buf, kv.Value)
		if err != nil {
			return nil, err
		}
	}
	return append(buf, '}'), nil
}

func appendJSONString(buf []byte, s string) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return append(buf, b...), nil
}

func appendByteArray(buf []byte, data []byte) []byte {
	buf = append(buf, '[')
	for i, b := range data {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendInt(buf, int64(b), 10)
	}
	return append(buf, ']')
}

// magnitudeLE returns the little-endian magnitude bytes of n.
func magnitudeLE(n *big.Int) []byte {
	be := n.Bytes()
	le := make([]byte, len(be))
	for i, b := range be {
		le[len(be)-1-i] = b
	}
	return le
}

// --- Deserialization ---

// jsonNode is an order-preserving JSON tree: nil, bool, json.Number,
// string, []jsonNode, or *jsonObject.
type jsonNode any

type jsonField struct {
	key   string
	value jsonNode
}

type jsonObject struct {
	fields []jsonField
}

func (o *jsonObject) get(key string) (jsonNode, bool) {
	for _, f := range o.fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// UnmarshalValue parses the canonical JSON form back into a value.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	node, err := decodeNode(dec)
	if err != nil {
		return nil, typeErrf("malformed JSON: %v", err)
	}
	if _, err := dec.Token(); err == nil {
		return nil, typeErrf("malformed JSON: trailing data after value")
	}
	return nodeToValue(node)
}

func decodeNode(dec *json.Decoder) (jsonNode, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeNodeFrom(dec, tok)
}

func decodeNodeFrom(dec *json.Decoder, tok json.Token) (jsonNode, error) {
	switch t := tok.(type) {
	case nil, bool, string, json.Number:
		return t, nil
	case json.Delim:
		switch t {
		case '[':
			var items []jsonNode
			for dec.More() {
				item, err := decodeNode(dec)
				if err != nil {
					return nil, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil { // ']'
				return nil, err
			}
			return items, nil
		case '{':
			obj := &jsonObject{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string")
				}
				value, err := decodeNode(dec)
				if err != nil {
					return nil, err
				}
				obj.fields = append(obj.fields, jsonField{key: key, value: value})
			}
			if _, err := dec.Token(); err != nil { // '}'
				return nil, err
			}
			return obj, nil
		}
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

func nodeToValue(node jsonNode) (Value, error) {
	switch n := node.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool{Value: n}, nil
	case string:
		return String{Value: n}, nil
	case json.Number:
		v, ok := new(big.Int).SetString(n.String(), 10)
		if !ok {
			return nil, domainErrf("JSON number %s is not an integer", n.String())
		}
		return Number{Value: v}, nil
	case []jsonNode:
		items := make([]Value, len(n))
		for i, item := range n {
			v, err := nodeToValue(item)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return List{Items: items}, nil
	case *jsonObject:
		if typ, ok := n.get("$type"); ok {
			return escapedToValue(n, typ)
		}
		return objectToMap(n)
	}
	return nil, typeErrf("unexpected JSON node")
}

// objectToMap converts an object to a plain map value, in document order.
func objectToMap(obj *jsonObject) (Value, error) {
	pairs := make([]KeyValue, 0, len(obj.fields))
	seen := map[string]bool{}
	for _, f := range obj.fields {
		if f.key == "" {
			return nil, keyErrf("map keys must be non-empty")
		}
		if seen[f.key] {
			return nil, keyErrf("duplicate map key '%s'", f.key)
		}
		seen[f.key] = true
		v, err := nodeToValue(f.value)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, KeyValue{Key: f.key, Value: v})
	}
	return NewMap(pairs), nil
}

// escapedToValue handles the "$type" wrappers.
func escapedToValue(obj *jsonObject, typ jsonNode) (Value, error) {
	name, ok := typ.(string)
	if !ok {
		return nil, typeErrf("'$type' must be a string")
	}
	switch name {
	case "number":
		signNode, ok := obj.get("$sign")
		if !ok {
			return nil, typeErrf("number escape misses '$sign'")
		}
		signNum, ok := signNode.(json.Number)
		if !ok {
			return nil, typeErrf("'$sign' must be 1 or -1")
		}
		sign, err := signNum.Int64()
		if err != nil || (sign != 1 && sign != -1) {
			return nil, typeErrf("'$sign' must be 1 or -1")
		}
		bytesNode, ok := obj.get("$bytes")
		if !ok {
			return nil, typeErrf("number escape misses '$bytes'")
		}
		data, err2 := nodeToBytes(bytesNode)
		if err2 != nil {
			return nil, err2
		}
		be := make([]byte, len(data)) // little-endian on the wire
		for i, b := range data {
			be[len(data)-1-i] = b
		}
		v := new(big.Int).SetBytes(be)
		if sign == -1 {
			v.Neg(v)
		}
		return Number{Value: v}, nil

	case "map":
		content, ok := obj.get("$content")
		if !ok {
			return nil, typeErrf("map escape misses '$content'")
		}
		inner, ok := content.(*jsonObject)
		if !ok {
			return nil, typeErrf("'$content' must be an object")
		}
		return objectToMap(inner)

	case "closure":
		paramsNode, ok := obj.get("$params")
		if !ok {
			return nil, typeErrf("closure escape misses '$params'")
		}
		paramList, ok := paramsNode.([]jsonNode)
		if !ok && paramsNode != nil {
			return nil, typeErrf("'$params' must be an array of strings")
		}
		params := make([]string, 0, len(paramList))
		seen := map[string]bool{}
		for _, p := range paramList {
			s, ok := p.(string)
			if !ok || s == "" {
				return nil, typeErrf("'$params' must be an array of non-empty strings")
			}
			if seen[s] {
				return nil, typeErrf("duplicate closure parameter '%s'", s)
			}
			seen[s] = true
			params = append(params, s)
		}
		var captures []KeyValue
		if capturesNode, ok := obj.get("$captures"); ok {
			capObj, ok := capturesNode.(*jsonObject)
			if !ok {
				return nil, typeErrf("'$captures' must be an object")
			}
			capMap, err := objectToMap(capObj)
			if err != nil {
				return nil, err
			}
			captures = capMap.(*Map).SortedPairs()
		}
		bodyNode, ok := obj.get("$body")
		if !ok {
			return nil, typeErrf("closure escape misses '$body'")
		}
		bodyBytes, err := nodeToBytes(bodyNode)
		if err != nil {
			return nil, err
		}
		body, derr := ast.Decode(bodyBytes)
		if derr != nil {
			return nil, typeErrf("malformed closure body: %v", derr)
		}
		return &Closure{Params: params, Captures: captures, Body: body}, nil

	case "intrinsic":
		nameNode, ok := obj.get("$intrinsic")
		if !ok {
			return nil, typeErrf("intrinsic escape misses '$intrinsic'")
		}
		s, ok := nameNode.(string)
		if !ok || s == "" {
			return nil, typeErrf("'$intrinsic' must be a non-empty string")
		}
		return Intrinsic{Name: s}, nil
	}
	return nil, typeErrf("unknown '$type' %q", name)
}

func nodeToBytes(node jsonNode) ([]byte, error) {
	list, ok := node.([]jsonNode)
	if !ok && node != nil {
		return nil, typeErrf("byte arrays must be JSON arrays of integers")
	}
	out := make([]byte, 0, len(list))
	for _, item := range list {
		num, ok := item.(json.Number)
		if !ok {
			return nil, typeErrf("byte arrays must be JSON arrays of integers")
		}
		v, err := num.Int64()
		if err != nil || v < 0 || v > 255 {
			return nil, typeErrf("byte value %s is out of range", num.String())
		}
		out = append(out, byte(v))
	}
	return out, nil
}
