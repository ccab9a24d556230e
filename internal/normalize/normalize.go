// Package normalize parses the locale-formatted amounts and dates found in
// accounting report text into canonical values.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	amountStrip  = regexp.MustCompile(`[()$,\s]`)
	amountToken  = regexp.MustCompile(`\(\d[\d,]*\.?\d*\)|-?\d[\d,]*\.?\d*`)
	slashedDate  = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
	hasDigitExpr = regexp.MustCompile(`\d`)
)

// ParseAmount converts a report amount such as "$1,234.56", "(1,234.56)" or
// "-1234.56" to a signed float. Empty or unparsable input yields 0.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || !hasDigitExpr.MatchString(s) {
		return 0
	}

	negative := strings.Contains(s, "(") || strings.HasPrefix(strings.TrimLeft(s, "$ "), "-")
	cleaned := strings.TrimLeft(amountStrip.ReplaceAllString(s, ""), "-")
	if cleaned == "" {
		return 0
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	if negative {
		return -v
	}
	return v
}

// ParseDate converts MM/DD/YYYY to YYYY-MM-DD. Anything else is returned
// trimmed but otherwise unchanged.
func ParseDate(s string) string {
	s = strings.TrimSpace(s)
	if !slashedDate.MatchString(s) {
		return s
	}
	t, err := time.Parse("1/2/2006", s)
	if err != nil {
		return s
	}
	return t.Format("2006-01-02")
}

// FindAmounts returns every numeric token in s, in order of appearance.
// Parenthesized negatives are returned with their parentheses.
func FindAmounts(s string) []string {
	return amountToken.FindAllString(s, -1)
}
