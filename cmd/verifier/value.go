package verifier

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"

	gojson "github.com/goccy/go-json"
)

// object is a decoded JSON object that remembers key order. A repeated key
// keeps its first position and its last value.
type object struct {
	keys   []string
	values map[string]any
}

func newObject() *object {
	return &object{values: make(map[string]any)}
}

func (o *object) set(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Normalize renders a cell or blob value as the string it is compared by.
// nil becomes "" and strings are kept. Everything else is rendered the way
// the exporting toolchain prints decoded JSON: True/False, None inside
// containers, integers in full, floats in shortest round-trip form with a
// trailing ".0" when whole, and {'k': v} / [a, b] for containers.
func Normalize(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		var sb strings.Builder
		writeRepr(&sb, val)
		return sb.String()
	}
}

func writeRepr(sb *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		sb.WriteString("None")
	case bool:
		if val {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case string:
		writeQuoted(sb, val)
	case gojson.Number:
		sb.WriteString(formatNumber(string(val)))
	case *object:
		sb.WriteByte('{')
		for i, key := range val.keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeQuoted(sb, key)
			sb.WriteString(": ")
			writeRepr(sb, val.values[key])
		}
		sb.WriteByte('}')
	case []any:
		sb.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeRepr(sb, item)
		}
		sb.WriteByte(']')
	default:
		fmt.Fprint(sb, val)
	}
}

// formatNumber renders a JSON number literal. Literals with a fraction or
// exponent are floats; the rest are arbitrary precision integers.
func formatNumber(lit string) string {
	if !strings.ContainsAny(lit, ".eE") {
		n, ok := new(big.Int).SetString(lit, 10)
		if !ok {
			return lit
		}
		return n.String()
	}

	// Out of range literals become ±Inf, which is how they decode upstream.
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil && !math.IsInf(f, 0) {
		return lit
	}
	return formatFloat(f)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, expPart, _ := strings.Cut(sci, "e")
	exp, _ := strconv.Atoi(expPart)

	// Scientific notation below 1e-4 and from 1e16 up.
	if exp < -4 || exp >= 16 {
		return fmt.Sprintf("%se%+03d", mantissa, exp)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// writeQuoted writes s in single quotes, switching to double quotes when s
// contains a single quote and no double quote.
func writeQuoted(sb *strings.Builder, s string) {
	quote := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	sb.WriteRune(quote)
	for _, r := range s {
		switch {
		case r == quote || r == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\t':
			sb.WriteString(`\t`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == ' ' || unicode.IsPrint(r):
			sb.WriteRune(r)
		case r < 0x100:
			fmt.Fprintf(sb, `\x%02x`, r)
		case r < 0x10000:
			fmt.Fprintf(sb, `\u%04x`, r)
		default:
			fmt.Fprintf(sb, `\U%08x`, r)
		}
	}
	sb.WriteRune(quote)
}
