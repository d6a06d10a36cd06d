package extractor

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var isoDuration = regexp.MustCompile(
	`^P(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`,
)

// ParseISODuration converts an ISO-8601 duration such as "PT1H30M" to whole
// minutes. Seconds are rounded to the nearest minute. It returns false for
// malformed or zero durations.
func ParseISODuration(s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || s == "P" || strings.HasSuffix(s, "T") {
		return 0, false
	}

	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	weights := []float64{24 * 60, 60, 1, 1.0 / 60}
	var total float64
	for i, w := range weights {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, false
		}
		total += v * w
	}

	minutes := int(math.Round(total))
	if minutes <= 0 {
		return 0, false
	}
	return minutes, true
}

// FormatMinutes renders a duration the way recipes store it.
func FormatMinutes(minutes int) string {
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// formatDuration renders an ISO duration in minutes, or the cleaned raw
// value when it is not ISO.
func formatDuration(raw string) string {
	if minutes, ok := ParseISODuration(raw); ok {
		return FormatMinutes(minutes)
	}
	return CleanText(raw)
}
