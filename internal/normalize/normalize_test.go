package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$1,234.56", 1234.56},
		{"(1,234.56)", -1234.56},
		{"-1234.56", -1234.56},
		{"$-12.00", -12},
		{"805.00", 805},
		{" 4.40 ", 4.40},
		{"0.00", 0},
		{"", 0},
		{"   ", 0},
		{"n/a", 0},
		{"-", 0},
		{"()", 0},
		{"1.2.3", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseAmount(tt.in), 0.0001)
		})
	}
}

func TestParseDate(t *testing.T) {
	assert.Equal(t, "2025-11-03", ParseDate("11/03/2025"))
	assert.Equal(t, "2025-01-05", ParseDate("1/5/2025"))
	assert.Equal(t, "2025-10-31", ParseDate(" 10/31/2025 "))
	assert.Equal(t, "2025-11-03", ParseDate("2025-11-03"))
	assert.Equal(t, "13/45/2025", ParseDate("13/45/2025"))
	assert.Equal(t, "Nov 3", ParseDate("Nov 3"))
	assert.Equal(t, "", ParseDate(""))
}

func TestFindAmounts(t *testing.T) {
	got := FindAmounts("  20.00   0.00  (72.00)  1,076.00 -5.5")
	assert.Equal(t, []string{"20.00", "0.00", "(72.00)", "1,076.00", "-5.5"}, got)
	assert.Empty(t, FindAmounts("Administrative, General"))
}
