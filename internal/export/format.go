// Package export renders the extracted collections as an XLSX workbook and
// a compact Markdown summary.
package export

import (
	"math"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer = message.NewPrinter(language.English)
	titler  = cases.Title(language.English)
)

// Currency formats v as $1,234.56, with a leading minus for negatives.
func Currency(v float64) string {
	if v < 0 {
		return printer.Sprintf("-$%.2f", math.Abs(v))
	}
	return printer.Sprintf("$%.2f", v)
}

// Percent formats v as 12.3%.
func Percent(v float64) string {
	return printer.Sprintf("%.1f%%", v)
}

// Title capitalizes each word of s.
func Title(s string) string {
	return titler.String(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
