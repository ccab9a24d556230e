package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hoa-financials/internal/model"
)

func TestParseBalanceSheetRules(t *testing.T) {
	got := ParseBalanceSheetRules(balanceText)
	require.Len(t, got, 3)

	assert.Equal(t, model.BalanceSheetEntry{
		AccountCode:    "1001",
		AccountName:    "PPB #3118 Builder Bond",
		Category:       "Assets",
		Subcategory:    "Operating Funds",
		CurrentBalance: 21398.80,
		PriorBalance:   21394.40,
		Change:         4.40,
	}, got[0])

	assert.Equal(t, "Liabilities", got[2].Category)
	assert.Equal(t, "Accounts Payable", got[2].Subcategory)
	assert.Equal(t, -1250.0, got[2].CurrentBalance)
	assert.Equal(t, -350.0, got[2].Change)
}

func TestParseBalanceSheetRules_NoHeaders(t *testing.T) {
	got := ParseBalanceSheetRules("1001 - Checking   10.00   5.00   5.00\n")
	require.Len(t, got, 1)
	assert.Equal(t, "Unknown", got[0].Category)
	assert.Equal(t, "Unknown", got[0].Subcategory)
}

func TestParseBalanceSheetRules_Empty(t *testing.T) {
	assert.Empty(t, ParseBalanceSheetRules(""))
}

func TestExtractTotals(t *testing.T) {
	text := `Total Assets   45,000.00
Total Liabilities   1,250.00
Total Owners' Equity   43,750.00
Total Reserve Funds   12,000.00`

	got := ExtractTotals(text)
	assert.Equal(t, 45000.0, got["total_assets"])
	assert.Equal(t, 1250.0, got["total_liabilities"])
	assert.Equal(t, 43750.0, got["total_equity"])
	assert.Equal(t, 12000.0, got["reserve_funds"])
	_, ok := got["net_income"]
	assert.False(t, ok)
}

func TestBalanceSheet_OracleChangeDerivedWhenMissing(t *testing.T) {
	o := &fakeOracle{resp: `[
		{"account_code":"1001","account_name":"PPB #3118 Builder Bond","category":"Assets",
		 "current_balance":21398.80,"prior_balance":21394.40},
		{"account_code":"1002","account_name":"Operating Checking","category":"Assets",
		 "current_balance":5000,"prior_balance":4000,"change":0}
	]`}

	got, err := (&BalanceSheet{Oracle: o}).Entries(context.Background(), balanceText)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 4.40, got[0].Change, 0.001)
	assert.Zero(t, got[1].Change, "an explicit change is kept")
}
