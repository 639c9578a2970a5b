package evaluator

import (
	"math/big"
	"sort"
)

// Operator algebra over values. Everything here is pure: operands are never
// mutated, composites come back fresh. The evaluator and the fold
// intrinsics (sum, mult, join) share these entry points.

// ToNumber converts a value to a Number. Numbers pass through, bools become
// 0/1, strings go through the value parser and retry, one-element lists and
// maps recurse. Everything else is a type error.
func ToNumber(v Value) (Number, error) {
	switch val := v.(type) {
	case Number:
		return val, nil
	case Bool:
		if val.Value {
			return NewNumber(1), nil
		}
		return NewNumber(0), nil
	case String:
		parsed, err := ParseValue(val.Value)
		if err != nil {
			return Number{}, typeErrf("cannot convert %q to a number", val.Value)
		}
		return ToNumber(parsed)
	case List:
		if len(val.Items) == 1 {
			return ToNumber(val.Items[0])
		}
		return Number{}, typeErrf("cannot convert a list of %d elements to a number", len(val.Items))
	case *Map:
		if val.Len() == 1 {
			return ToNumber(val.Pairs[0].Value)
		}
		return Number{}, typeErrf("cannot convert a map of %d entries to a number", val.Len())
	}
	return Number{}, typeErrf("cannot convert %s to a number", variantName(v))
}

// ToList converts a value to a List. Lists pass through, maps flatten to
// their values in sorted-key order, everything else becomes a singleton.
func ToList(v Value) List {
	switch val := v.(type) {
	case List:
		return val
	case *Map:
		pairs := val.SortedPairs()
		items := make([]Value, len(pairs))
		for i, kv := range pairs {
			items[i] = kv.Value
		}
		return List{Items: items}
	}
	return List{Items: []Value{v}}
}

// Sum is the unary `+`: composites are summed recursively, scalars are
// coerced to numbers.
func Sum(v Value) (Value, error) {
	switch val := v.(type) {
	case List:
		acc := Value(NewNumber(0))
		for _, item := range val.Items {
			next, err := Add(acc, item)
			if err != nil {
				return nil, err
			}
			acc = next
		}
		return acc, nil
	case *Map:
		acc := Value(NewNumber(0))
		for _, kv := range val.Pairs {
			next, err := Add(acc, kv.Value)
			if err != nil {
				return nil, err
			}
			acc = next
		}
		return acc, nil
	}
	n, err := ToNumber(v)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// addend coerces a `+`/`-` operand: composites are summed first, scalars
// converted.
func addend(v Value) (Number, error) {
	switch v.(type) {
	case List, *Map:
		s, err := Sum(v)
		if err != nil {
			return Number{}, err
		}
		return s.(Number), nil
	}
	return ToNumber(v)
}

// Add implements binary `+`.
func Add(a, b Value) (Value, error) {
	na, err := addend(a)
	if err != nil {
		return nil, err
	}
	nb, err := addend(b)
	if err != nil {
		return nil, err
	}
	return Number{Value: new(big.Int).Add(na.Value, nb.Value)}, nil
}

// Sub implements binary `-`; composites coerce like `+`.
func Sub(a, b Value) (Value, error) {
	na, err := addend(a)
	if err != nil {
		return nil, err
	}
	nb, err := addend(b)
	if err != nil {
		return nil, err
	}
	return Number{Value: new(big.Int).Sub(na.Value, nb.Value)}, nil
}

// Mul implements binary `*`, distributing over composites.
func Mul(a, b Value) (Value, error) {
	return distribute(a, b, "*", func(x, y Number) (Value, error) {
		return Number{Value: new(big.Int).Mul(x.Value, y.Value)}, nil
	})
}

// Div implements binary `/`, truncating toward zero and distributing over
// composites. Division by zero is a domain error.
func Div(a, b Value) (Value, error) {
	return distribute(a, b, "/", func(x, y Number) (Value, error) {
		if y.Value.Sign() == 0 {
			return nil, domainErrf("division by zero")
		}
		return Number{Value: new(big.Int).Quo(x.Value, y.Value)}, nil
	})
}

// Rem implements binary `%`, truncating toward zero and distributing over
// composites. A zero divisor is a domain error.
func Rem(a, b Value) (Value, error) {
	return distribute(a, b, "%", func(x, y Number) (Value, error) {
		if y.Value.Sign() == 0 {
			return nil, domainErrf("remainder by zero")
		}
		return Number{Value: new(big.Int).Rem(x.Value, y.Value)}, nil
	})
}

// Neg implements unary `-` by delegating to `* -1`, which distributes
// element-wise over composites.
func Neg(v Value) (Value, error) {
	return Mul(v, NewNumber(-1))
}

func isComposite(v Value) bool {
	switch v.(type) {
	case List, *Map:
		return true
	}
	return false
}

// distribute applies a scalar operation, mapping it element-wise when one
// or both operands are composite. Two composites must share their shape:
// equal lengths for lists, equal key sets for maps.
func distribute(a, b Value, opName string, op func(x, y Number) (Value, error)) (Value, error) {
	switch {
	case isComposite(a) && isComposite(b):
		la, aIsList := a.(List)
		lb, bIsList := b.(List)
		if aIsList && bIsList {
			if len(la.Items) != len(lb.Items) {
				return nil, typeErrf("'%s' needs lists of equal length, got %d and %d", opName, len(la.Items), len(lb.Items))
			}
			items := make([]Value, len(la.Items))
			for i := range la.Items {
				r, err := distribute(la.Items[i], lb.Items[i], opName, op)
				if err != nil {
					return nil, err
				}
				items[i] = r
			}
			return List{Items: items}, nil
		}
		ma, aIsMap := a.(*Map)
		mb, bIsMap := b.(*Map)
		if aIsMap && bIsMap {
			if ma.Len() != mb.Len() {
				return nil, typeErrf("'%s' needs maps with the same keys", opName)
			}
			pairs := make([]KeyValue, 0, ma.Len())
			for _, kv := range ma.Pairs {
				other, ok := mb.Get(kv.Key)
				if !ok {
					return nil, typeErrf("'%s' needs maps with the same keys, right side misses '%s'", opName, kv.Key)
				}
				r, err := distribute(kv.Value, other, opName, op)
				if err != nil {
					return nil, err
				}
				pairs = append(pairs, KeyValue{Key: kv.Key, Value: r})
			}
			return NewMap(pairs), nil
		}
		return nil, typeErrf("'%s' cannot combine a list with a map", opName)
	case isComposite(a):
		return mapComposite(a, func(el Value) (Value, error) { return distribute(el, b, opName, op) })
	case isComposite(b):
		return mapComposite(b, func(el Value) (Value, error) { return distribute(a, el, opName, op) })
	}
	na, err := ToNumber(a)
	if err != nil {
		return nil, err
	}
	nb, err := ToNumber(b)
	if err != nil {
		return nil, err
	}
	return op(na, nb)
}

// mapComposite rebuilds a list or map with f applied to every element,
// preserving order and keys.
func mapComposite(v Value, f func(Value) (Value, error)) (Value, error) {
	switch val := v.(type) {
	case List:
		items := make([]Value, len(val.Items))
		for i, item := range val.Items {
			r, err := f(item)
			if err != nil {
				return nil, err
			}
			items[i] = r
		}
		return List{Items: items}, nil
	case *Map:
		pairs := make([]KeyValue, len(val.Pairs))
		for i, kv := range val.Pairs {
			r, err := f(kv.Value)
			if err != nil {
				return nil, err
			}
			pairs[i] = KeyValue{Key: kv.Key, Value: r}
		}
		return NewMap(pairs), nil
	}
	panic("mapComposite on a scalar")
}

// Join implements binary `~`. Strings concatenate, lists concatenate, maps
// merge key-wise with the right side winning; any other mix coerces both
// sides through ToList and concatenates.
func Join(a, b Value) (Value, error) {
	if sa, ok := a.(String); ok {
		if sb, ok := b.(String); ok {
			return String{Value: sa.Value + sb.Value}, nil
		}
	}
	if ma, ok := a.(*Map); ok {
		if mb, ok := b.(*Map); ok {
			merged := NewMap(make([]KeyValue, 0, ma.Len()+mb.Len()))
			for _, kv := range ma.Pairs {
				merged.set(kv.Key, kv.Value)
			}
			for _, kv := range mb.Pairs {
				merged.set(kv.Key, kv.Value)
			}
			return merged, nil
		}
	}
	la := ToList(a)
	lb := ToList(b)
	items := make([]Value, 0, len(la.Items)+len(lb.Items))
	items = append(items, la.Items...)
	items = append(items, lb.Items...)
	return List{Items: items}, nil
}

// filterKind selects which end of the ordering a filter works on and
// whether it keeps or removes.
type filterKind int

const (
	keepHigh filterKind = iota
	keepLow
	removeHigh
	removeLow
)

// filter implements `kh`, `kl`, `rh`, `rl`. The receiver must be a list and
// every element numerically comparable; n saturates at the list length.
// The retained multiset is fully determined; retained elements keep their
// input order.
func filter(kind filterKind, v Value, nv Value) (Value, error) {
	list, ok := v.(List)
	if !ok {
		return nil, typeErrf("filters apply to lists, got %s", variantName(v))
	}
	num, err := ToNumber(nv)
	if err != nil {
		return nil, err
	}
	if num.Value.Sign() < 0 {
		return nil, domainErrf("filter count must be non-negative, got %s", num.Value)
	}
	n := len(list.Items)
	if num.Value.IsInt64() && num.Value.Int64() < int64(n) {
		n = int(num.Value.Int64())
	}

	keys := make([]*big.Int, len(list.Items))
	for i, item := range list.Items {
		k, err := ToNumber(item)
		if err != nil {
			return nil, err
		}
		keys[i] = k.Value
	}

	order := make([]int, len(list.Items))
	for i := range order {
		order[i] = i
	}
	descending := kind == keepHigh || kind == removeHigh
	sort.SliceStable(order, func(i, j int) bool {
		c := keys[order[i]].Cmp(keys[order[j]])
		if descending {
			return c > 0
		}
		return c < 0
	})

	selected := make([]bool, len(list.Items))
	for _, idx := range order[:n] {
		selected[idx] = true
	}
	keep := kind == keepHigh || kind == keepLow

	var items []Value
	for i, item := range list.Items {
		if selected[i] == keep {
			items = append(items, item)
		}
	}
	return List{Items: items}, nil
}

func variantName(v Value) string {
	switch v.(type) {
	case Null:
		return "null"
	case Bool:
		return "a boolean"
	case Number:
		return "a number"
	case String:
		return "a string"
	case List:
		return "a list"
	case *Map:
		return "a map"
	case *Closure:
		return "a closure"
	case Intrinsic:
		return "an intrinsic"
	}
	return "an unknown value"
}
