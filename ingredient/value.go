package ingredient

import (
	"fmt"
	"maps"
)

// NormalizeValue normalizes an ingredient held as decoded JSON. Anything that
// is not a map[string]any, nil included, is returned unchanged. Keys other
// than name, amount and unit are kept. An ingredient with no name left
// becomes an empty map.
func NormalizeValue(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}

	raw := Raw{
		Name:   stringValue(m["name"]),
		Amount: m["amount"],
	}
	if unit, ok := m["unit"].(string); ok {
		raw.Unit = unit
	}

	ing, ok := Normalize(raw)
	if !ok {
		return map[string]any{}
	}

	out := maps.Clone(m)
	if out == nil {
		out = map[string]any{}
	}
	out["name"] = ing.Name
	out["unit"] = ing.Unit
	if ing.Amount != nil {
		out["amount"] = *ing.Amount
	} else {
		out["amount"] = nil
	}

	return out
}

// NormalizeValues applies NormalizeValue to every element, dropping nil
// elements and ingredients that normalize to an empty map. Elements that are
// not maps pass through untouched.
func NormalizeValues(vs []any) []any {
	if len(vs) == 0 {
		return vs
	}

	out := make([]any, 0, len(vs))
	for _, v := range vs {
		if v == nil {
			continue
		}
		n := NormalizeValue(v)
		if m, ok := n.(map[string]any); ok && len(m) == 0 {
			continue
		}
		out = append(out, n)
	}
	return out
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
