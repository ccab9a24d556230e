package model

import (
	"math"
	"strings"
	"time"
)

// Collections accumulates every extracted record, one slice per kind.
type Collections struct {
	BalanceSheet       []BalanceSheetEntry       `json:"balance_sheet"`
	Disbursements      []DisbursementEntry       `json:"disbursements"`
	Invoices           []InvoiceEntry            `json:"invoices"`
	Investments        []InvestmentEntry         `json:"investments"`
	BankReconciliation []BankReconciliationEntry `json:"bank_reconciliation"`
	AccountsReceivable []AccountsReceivableEntry `json:"accounts_receivable"`
	IncomeStatement    []IncomeStatementEntry    `json:"income_statement"`
	ExpenseTrend       []ExpenseTrendEntry       `json:"expense_trend"`
}

// Append routes each record to the collection of its kind.
func (c *Collections) Append(records ...Record) {
	for _, r := range records {
		switch v := r.(type) {
		case BalanceSheetEntry:
			c.BalanceSheet = append(c.BalanceSheet, v)
		case DisbursementEntry:
			c.Disbursements = append(c.Disbursements, v)
		case InvoiceEntry:
			c.Invoices = append(c.Invoices, v)
		case InvestmentEntry:
			c.Investments = append(c.Investments, v)
		case BankReconciliationEntry:
			c.BankReconciliation = append(c.BankReconciliation, v)
		case AccountsReceivableEntry:
			c.AccountsReceivable = append(c.AccountsReceivable, v)
		case IncomeStatementEntry:
			c.IncomeStatement = append(c.IncomeStatement, v)
		case ExpenseTrendEntry:
			c.ExpenseTrend = append(c.ExpenseTrend, v)
		}
	}
}

// Init replaces nil collections with empty ones so they serialize as [].
func (c *Collections) Init() {
	if c.BalanceSheet == nil {
		c.BalanceSheet = []BalanceSheetEntry{}
	}
	if c.Disbursements == nil {
		c.Disbursements = []DisbursementEntry{}
	}
	if c.Invoices == nil {
		c.Invoices = []InvoiceEntry{}
	}
	if c.Investments == nil {
		c.Investments = []InvestmentEntry{}
	}
	if c.BankReconciliation == nil {
		c.BankReconciliation = []BankReconciliationEntry{}
	}
	if c.AccountsReceivable == nil {
		c.AccountsReceivable = []AccountsReceivableEntry{}
	}
	if c.IncomeStatement == nil {
		c.IncomeStatement = []IncomeStatementEntry{}
	}
	if c.ExpenseTrend == nil {
		c.ExpenseTrend = []ExpenseTrendEntry{}
	}
}

// Collection names one persisted record collection.
type Collection struct {
	// Key is the checkpoint data key.
	Key string
	// File is the base name of the inspection dump under parsed/.
	File  string
	Value any
	Len   int
}

// Named lists the collections in their persisted order. Values point into c
// so callers can decode into them.
func (c *Collections) Named() []Collection {
	return []Collection{
		{Key: "balance_sheet_data", File: "balance_sheet", Value: &c.BalanceSheet, Len: len(c.BalanceSheet)},
		{Key: "disbursement_data", File: "disbursements", Value: &c.Disbursements, Len: len(c.Disbursements)},
		{Key: "invoice_data", File: "invoices", Value: &c.Invoices, Len: len(c.Invoices)},
		{Key: "investment_data", File: "investments", Value: &c.Investments, Len: len(c.Investments)},
		{Key: "bank_reconciliation_data", File: "bank_reconciliation", Value: &c.BankReconciliation, Len: len(c.BankReconciliation)},
		{Key: "accounts_receivable_data", File: "accounts_receivable", Value: &c.AccountsReceivable, Len: len(c.AccountsReceivable)},
		{Key: "income_statement_data", File: "income_statement", Value: &c.IncomeStatement, Len: len(c.IncomeStatement)},
		{Key: "expense_trend_data", File: "expense_trend", Value: &c.ExpenseTrend, Len: len(c.ExpenseTrend)},
	}
}

// Total returns the number of records across all collections.
func (c *Collections) Total() int {
	n := 0
	for _, col := range c.Named() {
		n += col.Len
	}
	return n
}

// SummaryMetrics is the aggregate view over all collections.
type SummaryMetrics struct {
	ReportDate         string  `json:"report_date" yaml:"report_date"`
	SourceFile         string  `json:"source_file" yaml:"source_file"`
	ChecksWritten      int     `json:"checks_written" yaml:"checks_written"`
	TotalAssets        float64 `json:"total_assets" yaml:"total_assets"`
	TotalLiabilities   float64 `json:"total_liabilities" yaml:"total_liabilities"`
	NetEquity          float64 `json:"net_equity" yaml:"net_equity"`
	OperatingFunds     float64 `json:"operating_funds" yaml:"operating_funds"`
	ReserveFunds       float64 `json:"reserve_funds" yaml:"reserve_funds"`
	AccountsReceivable float64 `json:"accounts_receivable" yaml:"accounts_receivable"`
	MonthlyExpenses    float64 `json:"monthly_expenses" yaml:"monthly_expenses"`
}

// Summarize derives SummaryMetrics from the collections. Liabilities are
// counted by magnitude since reports print them as credits.
func Summarize(sourceFile string, now time.Time, c Collections) SummaryMetrics {
	s := SummaryMetrics{
		ReportDate: now.Format("January 02, 2006"),
		SourceFile: sourceFile,
	}

	checks := make(map[string]struct{})
	for _, d := range c.Disbursements {
		if d.CheckNumber != "" {
			checks[d.CheckNumber] = struct{}{}
		}
		s.MonthlyExpenses += d.Amount
	}
	s.ChecksWritten = len(checks)

	for _, r := range c.BalanceSheet {
		category := strings.ToLower(r.Category)
		sub := strings.ToLower(r.Subcategory)
		name := strings.ToLower(r.AccountName)

		switch {
		case strings.Contains(category, "asset"):
			s.TotalAssets += r.CurrentBalance
			if strings.Contains(sub, "operating") || strings.Contains(name, "operating") {
				s.OperatingFunds += r.CurrentBalance
			} else if strings.Contains(sub, "reserve") || strings.Contains(name, "reserve") {
				s.ReserveFunds += r.CurrentBalance
			}
		case strings.Contains(category, "liabilit"):
			s.TotalLiabilities += math.Abs(r.CurrentBalance)
		}
	}
	s.NetEquity = s.TotalAssets - s.TotalLiabilities

	for _, r := range c.AccountsReceivable {
		s.AccountsReceivable += r.TotalBalance
	}

	return s
}
