// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package envelope extracts the record array from JSON responses whose
// envelope varies between deployments of the same evidence source.
//
// Four shapes are recognized and tried in order:
//
//	{"results": [...]}
//	{"<entity>": [...]}   (e.g. "studies", "reviews", or a dotted path "esearchresult.idlist")
//	[...]
//	{"data": [...]}
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Shape identifies which envelope matched.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeResults
	ShapeEntity
	ShapeArray
	ShapeData
)

func (s Shape) String() string {
	switch s {
	case ShapeResults:
		return "results"
	case ShapeEntity:
		return "entity"
	case ShapeArray:
		return "array"
	case ShapeData:
		return "data"
	default:
		return "none"
	}
}

// ErrUnrecognized is returned when the body is valid JSON but no known
// envelope shape holds an array.
var ErrUnrecognized = errors.New("unrecognized response envelope")

// Items returns the raw records held by body. entity names the source's own
// array field; a dotted entity descends through nested objects.
func Items(body []byte, entity string) ([]json.RawMessage, Shape, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ShapeNone, fmt.Errorf("%w: empty body", ErrUnrecognized)
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, ShapeNone, fmt.Errorf("decoding array envelope: %w", err)
		}
		return items, ShapeArray, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, ShapeNone, fmt.Errorf("decoding envelope: %w", err)
	}

	if items, ok := arrayField(obj, "results"); ok {
		return items, ShapeResults, nil
	}
	if entity != "" {
		if items, ok := arrayPath(obj, entity); ok {
			return items, ShapeEntity, nil
		}
	}
	if items, ok := arrayField(obj, "data"); ok {
		return items, ShapeData, nil
	}
	return nil, ShapeNone, ErrUnrecognized
}

// arrayPath follows a dotted path of object keys and decodes the final value
// as an array.
func arrayPath(obj map[string]json.RawMessage, path string) ([]json.RawMessage, bool) {
	parts := strings.Split(path, ".")
	for _, key := range parts[:len(parts)-1] {
		raw, ok := obj[key]
		if !ok {
			return nil, false
		}
		var next map[string]json.RawMessage
		if err := json.Unmarshal(raw, &next); err != nil {
			return nil, false
		}
		obj = next
	}
	return arrayField(obj, parts[len(parts)-1])
}

func arrayField(obj map[string]json.RawMessage, key string) ([]json.RawMessage, bool) {
	raw, ok := obj[key]
	if !ok {
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}
