package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hoa-financials/internal/model"
)

const incomeText = `Income Statement
Current Period   Year to Date   Annual
Income
Assessment Income
4000 - Residential Assessments   0.00   0.00   0.00   123,516.80   124,920.00   (1,403.20)   124,920.00   1,403.20
Total Assessment Income   0.00   0.00   0.00   123,516.80   124,920.00   (1,403.20)   124,920.00   1,403.20
Total Operating Income   0.00   0.00   0.00   123,516.80   124,920.00   (1,403.20)   124,920.00   1,403.20
Expense
Administrative
5000 - Administrative Supplies   20.00   100.00   80.00   1,076.00   1,100.00   24.00   1,100.00   24.00
Total Operating Expense   20.00   100.00   80.00   1,076.00   1,100.00   24.00   1,100.00   24.00
Page 1 of 1
`

func TestParseIncomeStatementRules(t *testing.T) {
	got := ParseIncomeStatementRules(incomeText)
	require.Len(t, got, 5)

	assert.Equal(t, model.IncomeStatementEntry{
		AccountCode:     "4000",
		AccountName:     "Residential Assessments",
		Section:         "Income",
		Category:        "Assessment Income",
		YTDActual:       123516.80,
		YTDBudget:       124920.00,
		YTDVariance:     -1403.20,
		AnnualBudget:    124920.00,
		BudgetRemaining: 1403.20,
	}, got[0])

	total := got[1]
	assert.True(t, total.IsTotal)
	assert.Empty(t, total.AccountCode)
	assert.Equal(t, "Total Assessment Income", total.AccountName)
	assert.Equal(t, "Assessment Income", total.Category)
	assert.Equal(t, "Income", total.Section)

	assert.Equal(t, "Expense", got[3].Section)
	assert.Equal(t, "Administrative", got[3].Category)
	assert.Equal(t, 20.0, got[3].CurrentActual)
	assert.Equal(t, 80.0, got[3].CurrentVariance)
}

func TestParseIncomeStatementRules_OperatingHeaderKeepsCategory(t *testing.T) {
	text := "Expense\nUtilities\nOperating\n6100 - Electric   1.00   1.00   0.00   1.00   1.00   0.00   1.00   0.00\n"

	got := ParseIncomeStatementRules(text)
	require.Len(t, got, 1)
	assert.Equal(t, "Utilities", got[0].Category)
}

func TestParseIncomeStatementRules_NoHeaders(t *testing.T) {
	got := ParseIncomeStatementRules("6100 - Electric   1.00   1.00   0.00   1.00   1.00   0.00   1.00   0.00\n")
	require.Len(t, got, 1)
	assert.Equal(t, "Unknown", got[0].Section)
	assert.Equal(t, "Unknown", got[0].Category)
}

func TestSummarizeIncome(t *testing.T) {
	got := SummarizeIncome(ParseIncomeStatementRules(incomeText))
	assert.Equal(t, 123516.80, got.TotalIncomeYTD)
	assert.Equal(t, 124920.0, got.TotalIncomeBudget)
	assert.Equal(t, 1076.0, got.TotalExpenseYTD)
	assert.Equal(t, 1100.0, got.TotalExpenseBudget)
	assert.InDelta(t, 122440.80, got.NetIncomeYTD, 0.001)
}
