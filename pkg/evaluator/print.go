package evaluator

import (
	"fmt"
	"strings"
)

// Print renders a value in its printable form: the output of the
// `to_string` intrinsic. Over the value grammar (no closures or
// intrinsics), ParseValue inverts it exactly.
func Print(v Value) string {
	var b strings.Builder
	printValue(&b, v)
	return b.String()
}

func printValue(b *strings.Builder, v Value) {
	switch val := v.(type) {
	case Null:
		b.WriteString("null")
	case Bool:
		if val.Value {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case Number:
		b.WriteString(val.Value.String())
	case String:
		printQuoted(b, val.Value)
	case List:
		b.WriteByte('[')
		for i, item := range val.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			printValue(b, item)
		}
		b.WriteByte(']')
	case *Map:
		b.WriteString("<|")
		for i, kv := range val.Pairs {
			if i > 0 {
				b.WriteString(", ")
			}
			if isBareKey(kv.Key) {
				b.WriteString(kv.Key)
			} else {
				printQuoted(b, kv.Key)
			}
			b.WriteString(": ")
			printValue(b, kv.Value)
		}
		b.WriteString("|>")
	case *Closure:
		fmt.Fprintf(b, "<closure with %d parameters", len(val.Params))
		if len(val.Captures) > 0 {
			fmt.Fprintf(b, " (captured %d values)", len(val.Captures))
		}
		b.WriteByte('>')
	case Intrinsic:
		fmt.Fprintf(b, "<intrinsic %s>", val.Name)
	}
}

// keywordNames are words the lexer claims; a map key equal to one must be
// quoted to survive a print/parse round trip.
var keywordNames = map[string]bool{
	"let": true, "null": true, "true": true, "false": true,
	"d": true, "kh": true, "kl": true, "rh": true, "rl": true,
}

// isBareKey reports whether a map key can print without quotes.
func isBareKey(key string) bool {
	if key == "" || keywordNames[key] {
		return false
	}
	for i := 0; i < len(key); i++ {
		ch := key[i]
		switch {
		case ch == '_', ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func printQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 0:
			b.WriteString(`\0`)
		default:
			if r < 0x20 || r == 0x7F {
				fmt.Fprintf(b, `\x%02X`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}
