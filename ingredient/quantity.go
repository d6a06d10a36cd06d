package ingredient

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// quantityPattern is the numeric-token grammar, anchored at the start of the
// string. Alternatives are tried in order: mixed number, simple fraction,
// then a plain number with an optional second endpoint for ranges.
//
// Groups: 1-3 mixed (whole, num, den), 4-5 fraction (num, den), 6-7 number
// or range (low, high).
var quantityPattern = regexp.MustCompile(
	`^\s*(?:` +
		`(\d+)\s+(\d+)\s*/\s*(\d+)` +
		`|(\d+)\s*/\s*(\d+)` +
		`|(\d+(?:[.,]\d+)?)(?:\s*[-–—]\s*(\d+(?:[.,]\d+)?))?` +
		`)\s*`,
)

// simpleDecimal matches amount strings that need no grammar at all.
var simpleDecimal = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?$`)

// Quantity is a numeric token matched at the start of a string.
type Quantity struct {
	// Token is the matched text without surrounding whitespace, e.g. "1 1/2"
	// or "50-75".
	Token string

	// Value is the evaluated token: fractions divided out, ranges averaged.
	// Only meaningful when Valid is true.
	Value float64

	// Valid is false when the token matched but could not be evaluated,
	// e.g. "1/0".
	Valid bool

	// Rest is whatever follows the token, with leading whitespace removed.
	Rest string
}

// MatchQuantity matches the numeric-token grammar at the start of s. The
// boolean is false when s does not begin with a number.
func MatchQuantity(s string) (Quantity, bool) {
	m := quantityPattern.FindStringSubmatchIndex(s)
	if m == nil {
		return Quantity{}, false
	}

	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return s[m[2*i]:m[2*i+1]]
	}

	q := Quantity{
		Token: strings.TrimSpace(s[:m[1]]),
		Rest:  strings.TrimSpace(s[m[1]:]),
	}

	var err error
	switch {
	case group(1) != "":
		q.Value, err = mixedNumber(group(1), group(2), group(3))
	case group(4) != "":
		q.Value, err = fraction(group(4), group(5))
	default:
		q.Value, err = numberOrRange(group(6), group(7))
	}
	q.Valid = err == nil

	return q, true
}

// errArithmetic marks a token that matched but cannot be evaluated.
type errArithmetic string

func (e errArithmetic) Error() string { return string(e) }

const errZeroDenominator = errArithmetic("zero denominator")

func mixedNumber(whole, num, den string) (float64, error) {
	w, err := parseDecimal(whole)
	if err != nil {
		return 0, err
	}
	f, err := fraction(num, den)
	if err != nil {
		return 0, err
	}
	return w + f, nil
}

func fraction(num, den string) (float64, error) {
	n, err := parseDecimal(num)
	if err != nil {
		return 0, err
	}
	d, err := parseDecimal(den)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, errZeroDenominator
	}
	return n / d, nil
}

func numberOrRange(low, high string) (float64, error) {
	lo, err := parseDecimal(low)
	if err != nil {
		return 0, err
	}
	if high == "" {
		return lo, nil
	}
	hi, err := parseDecimal(high)
	if err != nil {
		return 0, err
	}
	return (lo + hi) / 2, nil
}

// parseDecimal converts a number that may use a comma as decimal separator.
// Non-finite results are rejected so they never reach JSON output.
func parseDecimal(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errArithmetic("non-finite number")
	}
	return v, nil
}
