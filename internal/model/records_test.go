package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageNumber(t *testing.T) {
	assert.Equal(t, 7, PageNumber("page_007"))
	assert.Equal(t, 120, PageNumber("page-120"))
	assert.Greater(t, PageNumber("cover"), 100000)
}

func TestSortPageIDs(t *testing.T) {
	ids := []string{"page_010", "page_2", "page_001", "page_100"}
	SortPageIDs(ids)
	assert.Equal(t, []string{"page_001", "page_2", "page_010", "page_100"}, ids)
}

func TestPageGroup_IDAndRange(t *testing.T) {
	g := PageGroup{Type: LabelBalanceSheet, Pages: []string{"page_001", "page_002", "page_003"}}
	assert.Equal(t, "group_00_balance_sheet", g.ID(0))
	assert.Equal(t, "group_12_balance_sheet", g.ID(12))
	assert.Equal(t, "page_001-page_003", g.Range())

	single := PageGroup{Type: LabelInvoice, Pages: []string{"page_009"}}
	assert.Equal(t, "page_009", single.Range())
}

func TestPageLabel_Valid(t *testing.T) {
	for _, l := range AllLabels() {
		assert.True(t, l.Valid(), l)
	}
	assert.False(t, PageLabel("cover_letter").Valid())
}

func TestReconciled(t *testing.T) {
	assert.True(t, Reconciled(3522.75-3522.75))
	assert.True(t, Reconciled(-0.004))
	assert.False(t, Reconciled(0.02))
	assert.False(t, Reconciled(-0.02))
}

func TestExpenseTrendEntry_Variance(t *testing.T) {
	e := ExpenseTrendEntry{FullYearActual: 1076, TotalBudget: 1100}
	assert.InDelta(t, 24.0, e.Variance(), 0.001)

	assert.Zero(t, ExpenseTrendEntry{FullYearActual: 1076}.Variance())
	assert.Zero(t, ExpenseTrendEntry{TotalBudget: 1100}.Variance())
}

func TestExpenseTrendEntry_SetMonths(t *testing.T) {
	var e ExpenseTrendEntry
	e.SetMonths([]float64{1, 2, 3})
	assert.Equal(t, []float64{1, 2, 3, 0, 0, 0, 0, 0, 0, 0, 0}, e.Months())
}

func TestCollections_Append(t *testing.T) {
	var c Collections
	c.Append(
		BalanceSheetEntry{AccountCode: "1001"},
		InvestmentEntry{BalanceSheetEntry{AccountCode: "1201"}},
		DisbursementEntry{CheckNumber: "1"},
		InvoiceEntry{InvoiceID: "A"},
		BankReconciliationEntry{AccountCode: "1011"},
		AccountsReceivableEntry{AccountID: "00339-2087"},
		IncomeStatementEntry{AccountCode: "4000"},
		ExpenseTrendEntry{AccountCode: "5000"},
	)
	assert.Len(t, c.BalanceSheet, 1)
	assert.Len(t, c.Investments, 1)
	assert.Equal(t, "1201", c.Investments[0].AccountCode)
	assert.Equal(t, 8, c.Total())
}

func TestInvestmentEntry_JSONIsFlat(t *testing.T) {
	b, err := json.Marshal(InvestmentEntry{BalanceSheetEntry{AccountCode: "1201", CurrentBalance: 5}})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"account_code":"1201"`)
	assert.Equal(t, KindInvestment, InvestmentEntry{}.Kind())
}

func TestSummarize(t *testing.T) {
	c := Collections{
		BalanceSheet: []BalanceSheetEntry{
			{AccountName: "Operating Checking", Category: "Assets", Subcategory: "Operating Funds", CurrentBalance: 14458.25},
			{AccountName: "Reserve MM", Category: "Assets", Subcategory: "Reserve Funds", CurrentBalance: 99143.16},
			{AccountName: "Prepaid Assessments", Category: "Liabilities", CurrentBalance: -23895.46},
			{AccountName: "Retained", Category: "Owners' Equity", CurrentBalance: 500},
		},
		Disbursements: []DisbursementEntry{
			{CheckNumber: "00200284", Amount: 805},
			{CheckNumber: "00200284", Amount: 195},
			{CheckNumber: "00200285", Amount: 1000},
			{CheckNumber: "", Amount: 10},
		},
		AccountsReceivable: []AccountsReceivableEntry{
			{TotalBalance: 4457.13},
			{TotalBalance: -1403.60},
		},
	}

	now := time.Date(2025, time.November, 30, 10, 0, 0, 0, time.UTC)
	s := Summarize("package.pdf", now, c)

	assert.Equal(t, "November 30, 2025", s.ReportDate)
	assert.Equal(t, "package.pdf", s.SourceFile)
	assert.Equal(t, 2, s.ChecksWritten)
	assert.InDelta(t, 113601.41, s.TotalAssets, 0.001)
	assert.InDelta(t, 23895.46, s.TotalLiabilities, 0.001)
	assert.InDelta(t, 113601.41-23895.46, s.NetEquity, 0.001)
	assert.InDelta(t, 14458.25, s.OperatingFunds, 0.001)
	assert.InDelta(t, 99143.16, s.ReserveFunds, 0.001)
	assert.InDelta(t, 3053.53, s.AccountsReceivable, 0.001)
	assert.InDelta(t, 2010, s.MonthlyExpenses, 0.001)
}

func TestCollections_Init(t *testing.T) {
	var c Collections
	c.Init()
	data, err := json.Marshal(c.Named()[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
	assert.Equal(t, 0, c.Total())
}
