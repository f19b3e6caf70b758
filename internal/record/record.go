// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package record reads loosely-typed JSON records whose field names vary
// between camelCase, PascalCase and snake_case spellings of the same concept.
// Normalizers resolve every field through Fields once, so scoring code never
// sees more than one spelling.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Fields is one decoded JSON object.
type Fields map[string]any

// Decode parses raw as a JSON object. Numbers are kept as json.Number.
func Decode(raw []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var f map[string]any
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if f == nil {
		return nil, fmt.Errorf("decoding record: not an object")
	}
	return Fields(f), nil
}

// Lookup resolves a dotted path. Each segment matches keys ignoring case,
// underscores and hyphens ("nctId", "NCTId" and "nct_id" are equivalent).
// When a segment lands on an array of objects the remaining path is applied
// to every element and the results are flattened.
func (f Fields) Lookup(path string) (any, bool) {
	if f == nil || path == "" {
		return nil, false
	}
	return lookup(map[string]any(f), strings.Split(path, "."))
}

func lookup(v any, segs []string) (any, bool) {
	if len(segs) == 0 {
		return v, v != nil
	}
	switch node := v.(type) {
	case map[string]any:
		child, ok := field(node, segs[0])
		if !ok {
			return nil, false
		}
		return lookup(child, segs[1:])
	case Fields:
		return lookup(map[string]any(node), segs)
	case []any:
		var out []any
		for _, elem := range node {
			got, ok := lookup(elem, segs)
			if !ok {
				continue
			}
			if list, isList := got.([]any); isList {
				out = append(out, list...)
			} else {
				out = append(out, got)
			}
		}
		return out, len(out) > 0
	default:
		return nil, false
	}
}

// field finds key in m, preferring an exact match and otherwise the
// lexically smallest key with the same normalized spelling.
func field(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	want := normalizeKey(key)
	best := ""
	found := false
	for k := range m {
		if normalizeKey(k) != want {
			continue
		}
		if !found || k < best {
			best = k
			found = true
		}
	}
	if !found {
		return nil, false
	}
	return m[best], true
}

func normalizeKey(k string) string {
	k = strings.ToLower(k)
	return strings.NewReplacer("_", "", "-", "").Replace(k)
}

// String returns the first non-empty scalar found among paths, formatted as text.
func (f Fields) String(paths ...string) string {
	for _, p := range paths {
		v, ok := f.Lookup(p)
		if !ok {
			continue
		}
		if s := scalarString(v); s != "" {
			return s
		}
	}
	return ""
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		// A single-element list stands in for its element.
		if len(x) == 1 {
			return scalarString(x[0])
		}
	}
	return ""
}

// Strings returns the non-empty scalars of the first path that yields any.
// A lone string is returned as a one-element list.
func (f Fields) Strings(paths ...string) []string {
	for _, p := range paths {
		v, ok := f.Lookup(p)
		if !ok {
			continue
		}
		var out []string
		switch x := v.(type) {
		case []any:
			for _, elem := range x {
				if s := scalarString(elem); s != "" {
					out = append(out, s)
				}
			}
		default:
			if s := scalarString(x); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// Int returns the first integer found among paths. Numeric strings such as
// "1,200" are accepted.
func (f Fields) Int(paths ...string) (int, bool) {
	for _, p := range paths {
		v, ok := f.Lookup(p)
		if !ok {
			continue
		}
		if n, ok := toInt(v); ok {
			return n, true
		}
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), true
		}
		if fl, err := x.Float64(); err == nil {
			return int(fl), true
		}
	case float64:
		return int(x), true
	case int:
		return x, true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Bool returns the first boolean found among paths. Strings "true", "yes"
// and "y" are true; "false", "no" and "n" are false.
func (f Fields) Bool(paths ...string) (bool, bool) {
	for _, p := range paths {
		v, ok := f.Lookup(p)
		if !ok {
			continue
		}
		switch x := v.(type) {
		case bool:
			return x, true
		case string:
			switch strings.ToLower(strings.TrimSpace(x)) {
			case "true", "yes", "y":
				return true, true
			case "false", "no", "n":
				return false, true
			}
		}
	}
	return false, false
}

// dateLayouts are tried in order when parsing date strings.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2006-01",
	"January 2, 2006",
	"January 2006",
	"Jan 2006",
	"2006",
}

// Time returns the first parseable date found among paths, or the zero time.
func (f Fields) Time(paths ...string) time.Time {
	for _, p := range paths {
		if t := ParseDate(f.String(p)); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// ParseDate parses the date formats used by the evidence sources. It returns
// the zero time when s matches none of them.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// Objects returns the objects held in the array at path.
func (f Fields) Objects(path string) []Fields {
	v, ok := f.Lookup(path)
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		if m, isMap := v.(map[string]any); isMap {
			return []Fields{Fields(m)}
		}
		return nil
	}
	var out []Fields
	for _, elem := range list {
		if m, ok := elem.(map[string]any); ok {
			out = append(out, Fields(m))
		}
	}
	return out
}
