package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NormalizeValue converts v into the canonical attribute form every backend
// stores and returns: nil, bool, json.Number, string, []any or map[string]any.
// Numbers keep their exact decimal text so they round-trip through any backend.
func NormalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal attribute: %w", err)
	}
	return decodeCanonical(raw)
}

// NormalizeItem returns a canonical deep copy of item.
func NormalizeItem(item Item) (Item, error) {
	if item == nil {
		return nil, nil
	}
	out := make(Item, len(item))
	for k, v := range item {
		nv, err := NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

// ItemFromJSON decodes a JSON object into a canonical item.
func ItemFromJSON(raw []byte) (Item, error) {
	v, err := decodeCanonical(raw)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("item must be a JSON object, got %T", v)
	}
	return Item(m), nil
}

// DecodeValue decodes one JSON-encoded attribute into canonical form.
func DecodeValue(raw []byte) (any, error) {
	return decodeCanonical(raw)
}

func decodeCanonical(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode attribute: %w", err)
	}
	return out, nil
}

// CloneItem deep-copies a canonical item.
func CloneItem(item Item) Item {
	if item == nil {
		return nil
	}
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Merge overlays patch attributes onto base and returns a new item.
func Merge(base, patch Item) Item {
	out := CloneItem(base)
	if out == nil {
		out = make(Item, len(patch))
	}
	for k, v := range patch {
		out[k] = cloneValue(v)
	}
	return out
}
