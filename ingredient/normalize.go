package ingredient

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Raw is an ingredient as an extractor found it. Amount may be nil, any
// integer or float kind, a json.Number or a string such as "100-150 g".
type Raw struct {
	Name   string `json:"name"`
	Amount any    `json:"amount"`
	Unit   string `json:"unit"`
}

// Ingredient is a normalized ingredient record. Amount is nil when no
// quantity could be determined; Unit is empty when none applies.
type Ingredient struct {
	Name   string   `json:"name"`
	Amount *float64 `json:"amount"`
	Unit   string   `json:"unit"`
}

// trimCutset is stripped from both ends of a normalized name.
const trimCutset = " \t\n\r.,;:-–—"

// parenPattern finds a parenthetical quantity such as "(500g)" or "(2 cups)"
// anywhere in a name.
var parenPattern = regexp.MustCompile(
	`(?i)\s*\(\s*(\d+(?:[.,]\d+)?)\s*(` + strings.Join(quoteAll(sortedUnits), "|") + `)?\s*\)\s*`,
)

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = regexp.QuoteMeta(s)
	}
	return out
}

// Normalize hoists a leading quantity and unit out of the ingredient name and
// into Amount and Unit. Values already present in raw are kept; the name is
// cleaned either way. The boolean is false when nothing is left of the name,
// in which case the ingredient should be dropped.
func Normalize(raw Raw) (Ingredient, bool) {
	name := strings.TrimSpace(raw.Name)
	unit := raw.Unit
	amount := coerceAmount(raw.Amount, &unit)

	// Repeat until the name stops changing so the result never starts with a
	// number or a unit word, which keeps Normalize idempotent.
	for name != "" {
		before := name
		name = hoistQuantity(name, &amount)
		name = hoistUnit(name, &unit)
		name = exciseParenthetical(name, &amount, &unit)
		name = strings.Trim(name, trimCutset)
		if name == before {
			break
		}
	}

	if name == "" {
		return Ingredient{}, false
	}

	if isEmpty(amount) {
		amount = nil
	}

	return Ingredient{
		Name:   name,
		Amount: amount,
		Unit:   cleanUnit(unit),
	}, true
}

// NormalizeList normalizes every ingredient, dropping nil entries and those
// that normalize to nothing. Order is preserved.
func NormalizeList(raws []*Raw) []Ingredient {
	out := make([]Ingredient, 0, len(raws))
	for _, raw := range raws {
		if raw == nil {
			continue
		}
		if ing, ok := Normalize(*raw); ok {
			out = append(out, ing)
		}
	}
	return out
}

// coerceAmount turns the caller's amount into a number. A string amount that
// carries more than a plain decimal is run through the grammar and any text
// after the number fills unit when unit is still empty.
func coerceAmount(v any, unit *string) *float64 {
	switch a := v.(type) {
	case nil:
		return nil
	case string:
		return amountFromString(a, unit)
	case json.Number:
		if f, err := a.Float64(); err == nil {
			return finite(f)
		}
		return amountFromString(a.String(), unit)
	case float64:
		return finite(a)
	case float32:
		return finite(float64(a))
	case int:
		return finite(float64(a))
	case int8:
		return finite(float64(a))
	case int16:
		return finite(float64(a))
	case int32:
		return finite(float64(a))
	case int64:
		return finite(float64(a))
	case uint:
		return finite(float64(a))
	case uint8:
		return finite(float64(a))
	case uint16:
		return finite(float64(a))
	case uint32:
		return finite(float64(a))
	case uint64:
		return finite(float64(a))
	case *float64:
		if a == nil {
			return nil
		}
		return finite(*a)
	default:
		return nil
	}
}

func amountFromString(s string, unit *string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if simpleDecimal.MatchString(s) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return finite(v)
	}

	if q, ok := MatchQuantity(s); ok {
		if q.Rest != "" && strings.TrimSpace(*unit) == "" {
			*unit = q.Rest
		}
		if !q.Valid {
			return nil
		}
		return finite(q.Value)
	}

	// Best effort for things like ".5" or "1e3".
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return finite(v)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func isEmpty(amount *float64) bool {
	return amount == nil || *amount == 0
}

// hoistQuantity strips a leading numeric token from name and records its
// value when no amount is known yet.
func hoistQuantity(name string, amount **float64) string {
	q, ok := MatchQuantity(name)
	if !ok {
		return name
	}
	if isEmpty(*amount) && q.Valid {
		v := q.Value
		*amount = &v
	}
	return q.Rest
}

// hoistUnit strips a leading lexicon word from name and records it when no
// unit is known yet. A trailing period is kept on the unit for cleanUnit to
// decide about.
func hoistUnit(name string, unit *string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return name
	}

	first := words[0]
	if !IsUnit(strings.TrimRight(first, ".,;:")) {
		return name
	}

	if strings.TrimSpace(*unit) == "" {
		*unit = strings.TrimRight(first, ",;:")
	}
	return strings.Join(words[1:], " ")
}

// exciseParenthetical removes the first parenthetical quantity from name,
// using it for amount and unit when no amount is known yet.
func exciseParenthetical(name string, amount **float64, unit *string) string {
	m := parenPattern.FindStringSubmatchIndex(name)
	if m == nil {
		return name
	}

	if isEmpty(*amount) {
		if v, err := parseDecimal(name[m[2]:m[3]]); err == nil {
			*amount = &v
			if m[4] >= 0 && strings.TrimSpace(*unit) == "" {
				*unit = name[m[4]:m[5]]
			}
		}
	}

	return strings.Join(strings.Fields(name[:m[0]]+" "+name[m[1]:]), " ")
}

// cleanUnit trims unit and drops a single trailing period unless the unit
// has periods inside it, as abbreviations like "ст.л." do.
func cleanUnit(unit string) string {
	unit = strings.TrimSpace(unit)
	if strings.HasSuffix(unit, ".") && !strings.Contains(unit[:len(unit)-1], ".") {
		unit = unit[:len(unit)-1]
	}
	return strings.TrimSpace(unit)
}
