package catalog

import (
	"math"
	"strconv"
	"strings"
)

// ParseOptionalNumber parses a spreadsheet or form cell. It reports false for
// blank text and for anything that is not a finite number. A single decimal
// comma is accepted ("12,5").
func ParseOptionalNumber(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseOptionalInt is ParseOptionalNumber truncated toward zero, so "12.0"
// and "12" both yield 12.
func ParseOptionalInt(text string) (int, bool) {
	v, ok := ParseOptionalNumber(text)
	if !ok {
		return 0, false
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, false
	}
	return int(v), true
}
