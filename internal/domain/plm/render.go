package plm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Literal renders a decoded payload in literal notation, for example
// {'name': 'Widget', 'qty': 4, 'tags': ['a', 'b'], 'active': True}.
func Literal(v any) string {
	var b strings.Builder
	writeLiteral(&b, v)
	return b.String()
}

// Display is Literal except that a top-level string is returned as is.
func Display(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return Literal(v)
}

func writeLiteral(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("None")
	case string:
		writeQuoted(b, val)
	case bool:
		if val {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case json.Number:
		b.WriteString(val.String())
	case int:
		b.WriteString(strconv.Itoa(val))
	case int64:
		b.WriteString(strconv.FormatInt(val, 10))
	case float64:
		b.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	case *Record:
		b.WriteByte('{')
		for i, f := range val.Fields() {
			if i > 0 {
				b.WriteString(", ")
			}
			writeQuoted(b, f.Key)
			b.WriteString(": ")
			writeLiteral(b, f.Value)
		}
		b.WriteByte('}')
	case []*Record:
		b.WriteByte('[')
		for i, rec := range val {
			if i > 0 {
				b.WriteString(", ")
			}
			writeLiteral(b, rec)
		}
		b.WriteByte(']')
	case []any:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteString(", ")
			}
			writeLiteral(b, item)
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			writeQuoted(b, k)
			b.WriteString(": ")
			writeLiteral(b, val[k])
		}
		b.WriteByte('}')
	default:
		fmt.Fprint(b, val)
	}
}

func writeQuoted(b *strings.Builder, s string) {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(quote):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
}
