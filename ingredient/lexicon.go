// Package ingredient turns free-text ingredient lines into a name, an amount
// and a unit. It has no state and no I/O, so every function is safe to call
// from any number of goroutines.
package ingredient

import (
	"sort"
	"strings"
)

// units is the recognized-unit lexicon. It is English only; localized
// synonyms are translated to these tokens by package locale before a line
// reaches Normalize.
var units = map[string]struct{}{
	// Weight and volume
	"g": {}, "kg": {}, "mg": {}, "ml": {}, "l": {}, "cl": {}, "dl": {},
	"oz": {}, "lb": {}, "lbs": {}, "cup": {}, "cups": {},

	// Spoons
	"tbsp": {}, "tsp": {}, "tablespoon": {}, "tablespoons": {},
	"teaspoon": {}, "teaspoons": {},

	// Counts
	"piece": {}, "pieces": {}, "pcs": {}, "pc": {}, "slice": {}, "slices": {},
	"clove": {}, "cloves": {}, "bunch": {}, "bunches": {}, "pinch": {},
	"handful": {}, "dash": {}, "sprig": {}, "sprigs": {},

	// Containers and produce parts
	"can": {}, "cans": {}, "jar": {}, "jars": {}, "bottle": {}, "bottles": {},
	"package": {}, "packages": {}, "head": {}, "heads": {}, "stalk": {},
	"stalks": {}, "leaf": {}, "leaves": {}, "strip": {}, "strips": {},
}

// sortedUnits holds the lexicon ordered longest first, then alphabetically,
// so regexp alternations built from it prefer "cups" over "cup".
var sortedUnits = func() []string {
	out := make([]string, 0, len(units))
	for u := range units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

// IsUnit reports whether word is in the recognized-unit lexicon. The check is
// case-insensitive.
func IsUnit(word string) bool {
	_, ok := units[strings.ToLower(strings.TrimSpace(word))]
	return ok
}

// Units returns a copy of the recognized-unit lexicon, longest token first.
func Units() []string {
	out := make([]string, len(sortedUnits))
	copy(out, sortedUnits)
	return out
}
