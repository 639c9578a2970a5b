// Package evaluator implements the Tumble runtime: values, environments,
// sessions, and the tree-walking evaluation of expression trees.
package evaluator

import (
	"math/big"
	"sort"

	"github.com/tumblelang/tumble/pkg/ast"
)

// Value is the interface for all Tumble runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	value() // sealed marker
}

// Null represents the null value.
type Null struct{}

func (Null) value() {}

// Bool represents a boolean value.
type Bool struct {
	Value bool
}

func (Bool) value() {}

// Number represents an exact integer of arbitrary precision. The inner
// big.Int is never mutated after construction.
type Number struct {
	Value *big.Int
}

func (Number) value() {}

// String represents UTF-8 text, indexable by codepoint.
type String struct {
	Value string
}

func (String) value() {}

// List represents an ordered sequence of values.
type List struct {
	Items []Value
}

func (List) value() {}

// KeyValue is a key-value pair in an ordered map.
type KeyValue struct {
	Key   string
	Value Value
}

// Map represents an ordered mapping from non-empty string keys to values.
// Insertion order is preserved via the Pairs slice; flattening to a list
// uses sorted-key order instead.
type Map struct {
	Pairs []KeyValue
	index map[string]int // lazy index for lookups
}

func (*Map) value() {}

// Closure pairs a parameter list, a captured snapshot of the surrounding
// environment, and a body expression. Immutable after construction;
// closures compare by identity.
type Closure struct {
	Params   []string
	Captures []KeyValue // sorted by name
	Body     ast.Expr
}

func (*Closure) value() {}

// Intrinsic identifies a built-in callable by its stable name, resolvable
// through the session's intrinsic table.
type Intrinsic struct {
	Name string
}

func (Intrinsic) value() {}

// NewNumber wraps an int64 as a Number.
func NewNumber(n int64) Number {
	return Number{Value: big.NewInt(n)}
}

// NewMap creates an ordered map from key-value pairs.
func NewMap(pairs []KeyValue) *Map {
	m := &Map{Pairs: pairs}
	m.buildIndex()
	return m
}

func (m *Map) buildIndex() {
	m.index = make(map[string]int, len(m.Pairs))
	for i, kv := range m.Pairs {
		m.index[kv.Key] = i
	}
}

// Get retrieves a value by key.
func (m *Map) Get(key string) (Value, bool) {
	if m.index == nil {
		m.buildIndex()
	}
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.Pairs[i].Value, true
}

// Has reports whether the map contains the key.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.Pairs)
}

// Keys returns all keys in insertion order.
func (m *Map) Keys() []string {
	keys := make([]string, len(m.Pairs))
	for i, kv := range m.Pairs {
		keys[i] = kv.Key
	}
	return keys
}

// SortedPairs returns the entries sorted by key.
func (m *Map) SortedPairs() []KeyValue {
	out := make([]KeyValue, len(m.Pairs))
	copy(out, m.Pairs)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// set updates or appends an entry, preserving insertion order. Only used
// while building fresh maps; stored maps are never mutated.
func (m *Map) set(key string, val Value) {
	if m.index == nil {
		m.buildIndex()
	}
	if i, ok := m.index[key]; ok {
		m.Pairs[i].Value = val
		return
	}
	m.index[key] = len(m.Pairs)
	m.Pairs = append(m.Pairs, KeyValue{Key: key, Value: val})
}

// Equal implements structural equality: same variant, same content. Map
// comparison is order-insensitive; closures and intrinsics compare by
// identity and name respectively.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av.Value == bv.Value
	case Number:
		bv, ok := b.(Number)
		return ok && av.Value.Cmp(bv.Value) == 0
	case String:
		bv, ok := b.(String)
		return ok && av.Value == bv.Value
	case List:
		bv, ok := b.(List)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, kv := range av.Pairs {
			other, ok := bv.Get(kv.Key)
			if !ok || !Equal(kv.Value, other) {
				return false
			}
		}
		return true
	case *Closure:
		bv, ok := b.(*Closure)
		return ok && av == bv
	case Intrinsic:
		bv, ok := b.(Intrinsic)
		return ok && av.Name == bv.Name
	}
	return false
}

// variantRank orders the variants for the internal total order:
// Null < Bool < Number < String < List < Map < Closure < Intrinsic.
func variantRank(v Value) int {
	switch v.(type) {
	case Null:
		return 0
	case Bool:
		return 1
	case Number:
		return 2
	case String:
		return 3
	case List:
		return 4
	case *Map:
		return 5
	case *Closure:
		return 6
	case Intrinsic:
		return 7
	}
	return 8
}

// Compare is the internal total order over values: variant rank first, then
// the inner order per variant. It is never observable through the language
// surface beyond sorted-key flattening.
func Compare(a, b Value) int {
	ra, rb := variantRank(a), variantRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case Null:
		return 0
	case Bool:
		bv := b.(Bool)
		switch {
		case av.Value == bv.Value:
			return 0
		case !av.Value:
			return -1
		default:
			return 1
		}
	case Number:
		return av.Value.Cmp(b.(Number).Value)
	case String:
		bv := b.(String)
		switch {
		case av.Value == bv.Value:
			return 0
		case av.Value < bv.Value:
			return -1
		default:
			return 1
		}
	case List:
		bv := b.(List)
		for i := 0; i < len(av.Items) && i < len(bv.Items); i++ {
			if c := Compare(av.Items[i], bv.Items[i]); c != 0 {
				return c
			}
		}
		return len(av.Items) - len(bv.Items)
	case *Map:
		ap, bp := av.SortedPairs(), b.(*Map).SortedPairs()
		for i := 0; i < len(ap) && i < len(bp); i++ {
			if ap[i].Key != bp[i].Key {
				if ap[i].Key < bp[i].Key {
					return -1
				}
				return 1
			}
			if c := Compare(ap[i].Value, bp[i].Value); c != 0 {
				return c
			}
		}
		return len(ap) - len(bp)
	case *Closure:
		bv := b.(*Closure)
		if av == bv {
			return 0
		}
		// arbitrary but consistent within one process
		if len(av.Params) != len(bv.Params) {
			return len(av.Params) - len(bv.Params)
		}
		return -1
	case Intrinsic:
		bv := b.(Intrinsic)
		switch {
		case av.Name == bv.Name:
			return 0
		case av.Name < bv.Name:
			return -1
		default:
			return 1
		}
	}
	return 0
}
