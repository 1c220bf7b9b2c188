package types

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LevelLabel is the label key carrying the event severity.
const LevelLabel = "level"

// Labels is a set of low-cardinality key/value dimensions identifying a
// stream.
type Labels map[string]string

// ValidLabelName reports whether name matches [a-zA-Z_][a-zA-Z0-9_]*,
// the label names Loki accepts.
func ValidLabelName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Validate returns an error naming the first invalid label name.
func (l Labels) Validate() error {
	for _, k := range l.Keys() {
		if !ValidLabelName(k) {
			return fmt.Errorf("types: invalid label name %q", k)
		}
	}
	return nil
}

// Clone returns an independent copy of l.
func (l Labels) Clone() Labels {
	out := make(Labels, len(l)+1)
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Keys returns the label names in sorted order.
func (l Labels) Keys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether both sets hold the same pairs.
func (l Labels) Equal(o Labels) bool {
	if len(l) != len(o) {
		return false
	}
	for k, v := range l {
		if ov, ok := o[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// String renders the set in the selector form Loki uses for stream
// identity, e.g. {level="info", service="api"}. Keys are sorted.
func (l Labels) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range l.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(l[k]))
	}
	b.WriteByte('}')
	return b.String()
}

// ParseLabels parses the output of Labels.String.
func ParseLabels(s string) (Labels, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, fmt.Errorf("types: label set %q must be wrapped in braces", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	out := make(Labels)
	for body != "" {
		eq := strings.IndexByte(body, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("types: malformed label pair in %q", s)
		}
		name := strings.TrimSpace(body[:eq])
		rest := strings.TrimLeft(body[eq+1:], " ")
		quoted, err := strconv.QuotedPrefix(rest)
		if err != nil {
			return nil, fmt.Errorf("types: label %q: %w", name, err)
		}
		value, err := strconv.Unquote(quoted)
		if err != nil {
			return nil, fmt.Errorf("types: label %q: %w", name, err)
		}
		out[name] = value
		body = strings.TrimLeft(rest[len(quoted):], " ")
		if body != "" {
			if body[0] != ',' {
				return nil, fmt.Errorf("types: expected ',' after label %q", name)
			}
			body = strings.TrimLeft(body[1:], " ")
		}
	}
	return out, nil
}
