package util

import (
	"fmt"
	"strconv"
)

// Pct renders a fraction as a percent string, e.g. 0.42 -> "42.0%".
func Pct(frac float64) string {
	return fmt.Sprintf("%.1f%%", frac*100)
}

// Bps renders a fraction as basis points, e.g. 0.0123 -> "123bps".
func Bps(frac float64) string {
	return fmt.Sprintf("%.0fbps", frac*10000)
}

// Ratio renders a plain ratio with two decimals, e.g. 1.37 -> "1.37x".
func Ratio(v float64) string {
	return fmt.Sprintf("%.2fx", v)
}

// Score renders a unit-interval score with two decimals.
func Score(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
