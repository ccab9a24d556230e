package model

// Kind discriminates the record variants produced by the extractors.
type Kind string

const (
	KindBalanceSheet       Kind = "balance_sheet"
	KindDisbursement       Kind = "disbursement"
	KindInvoice            Kind = "invoice"
	KindInvestment         Kind = "investment"
	KindBankReconciliation Kind = "bank_reconciliation"
	KindAccountsReceivable Kind = "accounts_receivable"
	KindIncomeStatement    Kind = "income_statement"
	KindExpenseTrend       Kind = "expense_trend"
)

// Record is one structured line item extracted from a report.
type Record interface {
	Kind() Kind
}

// BalanceSheetEntry is one account line of a balance sheet.
type BalanceSheetEntry struct {
	AccountCode    string  `json:"account_code"`
	AccountName    string  `json:"account_name"`
	Category       string  `json:"category"`
	Subcategory    string  `json:"subcategory"`
	CurrentBalance float64 `json:"current_balance"`
	PriorBalance   float64 `json:"prior_balance"`
	Change         float64 `json:"change"`
}

func (BalanceSheetEntry) Kind() Kind { return KindBalanceSheet }

// InvestmentEntry is an account line from an investment listing. Listings
// share the balance sheet layout.
type InvestmentEntry struct {
	BalanceSheetEntry
}

func (InvestmentEntry) Kind() Kind { return KindInvestment }

// DisbursementEntry is one transaction line under a check.
type DisbursementEntry struct {
	CheckNumber string  `json:"check_number"`
	CheckDate   string  `json:"check_date"`
	CheckAmount float64 `json:"check_amount"`
	Vendor      string  `json:"vendor"`
	AccountCode string  `json:"account_code"`
	AccountName string  `json:"account_name"`
	TransDate   string  `json:"trans_date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

func (DisbursementEntry) Kind() Kind { return KindDisbursement }

// LineItem is a single billed item on an invoice.
type LineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// InvoiceEntry is a vendor invoice, from report text or from a scanned page.
type InvoiceEntry struct {
	InvoiceID     string     `json:"invoice_id"`
	InvoiceDate   string     `json:"invoice_date"`
	Vendor        string     `json:"vendor"`
	Description   string     `json:"description"`
	Amount        float64    `json:"amount"`
	LineItems     []LineItem `json:"line_items"`
	OCRConfidence string     `json:"ocr_confidence"`
	Notes         string     `json:"notes"`
	SourcePage    int        `json:"source_page,omitempty"`
	SourceImage   string     `json:"source_image,omitempty"`
	OCRText       string     `json:"ocr_text,omitempty"`
}

func (InvoiceEntry) Kind() Kind { return KindInvoice }

// HasContent reports whether any identifying field was extracted.
func (e InvoiceEntry) HasContent() bool {
	return e.Amount != 0 || e.Vendor != "" || e.InvoiceID != ""
}

// OutstandingItem is a deposit or check not yet cleared by the bank.
type OutstandingItem struct {
	Batch       string  `json:"batch"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Reference   string  `json:"reference"`
	Amount      float64 `json:"amount"`
}

// BankReconciliationEntry is the reconciliation of one bank account.
type BankReconciliationEntry struct {
	AccountCode              string            `json:"account_code"`
	AccountName              string            `json:"account_name"`
	AccountType              string            `json:"account_type"`
	BalancePerBank           float64           `json:"balance_per_bank"`
	OutstandingDeposits      []OutstandingItem `json:"outstanding_deposits"`
	TotalOutstandingDeposits float64           `json:"total_outstanding_deposits"`
	OutstandingChecks        []OutstandingItem `json:"outstanding_checks"`
	TotalOutstandingChecks   float64           `json:"total_outstanding_checks"`
	EndingBalanceGL          float64           `json:"ending_balance_gl"`
	Difference               float64           `json:"difference"`
	IsReconciled             bool              `json:"is_reconciled"`
}

func (BankReconciliationEntry) Kind() Kind { return KindBankReconciliation }

// Reconciled reports whether the bank and ledger balances agree to the cent.
func Reconciled(difference float64) bool {
	if difference < 0 {
		difference = -difference
	}
	return difference < 0.01
}

// AR sections.
const (
	SectionDelinquent = "delinquent"
	SectionPrepaid    = "prepaid"
	SectionUnknown    = "unknown"
)

// AccountsReceivableEntry is one member account with its aging buckets.
type AccountsReceivableEntry struct {
	AccountID    string  `json:"account_id"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Section      string  `json:"section"`
	Day30        float64 `json:"day_30"`
	Day31To60    float64 `json:"day_31_60"`
	Day61To90    float64 `json:"day_61_90"`
	Day91To120   float64 `json:"day_91_120"`
	Day120Plus   float64 `json:"day_120_plus"`
	TotalBalance float64 `json:"total_balance"`
}

func (AccountsReceivableEntry) Kind() Kind { return KindAccountsReceivable }

// IncomeStatementEntry is an account or total row of an income statement.
type IncomeStatementEntry struct {
	AccountCode     string  `json:"account_code"`
	AccountName     string  `json:"account_name"`
	Section         string  `json:"section"`
	Category        string  `json:"category"`
	IsTotal         bool    `json:"is_total"`
	CurrentActual   float64 `json:"current_actual"`
	CurrentBudget   float64 `json:"current_budget"`
	CurrentVariance float64 `json:"current_variance"`
	YTDActual       float64 `json:"ytd_actual"`
	YTDBudget       float64 `json:"ytd_budget"`
	YTDVariance     float64 `json:"ytd_variance"`
	AnnualBudget    float64 `json:"annual_budget"`
	BudgetRemaining float64 `json:"budget_remaining"`
}

func (IncomeStatementEntry) Kind() Kind { return KindIncomeStatement }

// ExpenseTrendEntry is an account or total row of the monthly trend report.
// December is not reported.
type ExpenseTrendEntry struct {
	AccountCode    string  `json:"account_code"`
	AccountName    string  `json:"account_name"`
	Category       string  `json:"category"`
	IsTotal        bool    `json:"is_total"`
	Jan            float64 `json:"jan"`
	Feb            float64 `json:"feb"`
	Mar            float64 `json:"mar"`
	Apr            float64 `json:"apr"`
	May            float64 `json:"may"`
	Jun            float64 `json:"jun"`
	Jul            float64 `json:"jul"`
	Aug            float64 `json:"aug"`
	Sep            float64 `json:"sep"`
	Oct            float64 `json:"oct"`
	Nov            float64 `json:"nov"`
	FullYearActual float64 `json:"full_year_actual"`
	TotalBudget    float64 `json:"total_budget"`
}

func (ExpenseTrendEntry) Kind() Kind { return KindExpenseTrend }

// Months returns the eleven reported monthly amounts, January first.
func (e ExpenseTrendEntry) Months() []float64 {
	return []float64{e.Jan, e.Feb, e.Mar, e.Apr, e.May, e.Jun, e.Jul, e.Aug, e.Sep, e.Oct, e.Nov}
}

// SetMonths assigns up to eleven monthly amounts, January first.
func (e *ExpenseTrendEntry) SetMonths(vals []float64) {
	dst := []*float64{&e.Jan, &e.Feb, &e.Mar, &e.Apr, &e.May, &e.Jun, &e.Jul, &e.Aug, &e.Sep, &e.Oct, &e.Nov}
	for i := range dst {
		if i < len(vals) {
			*dst[i] = vals[i]
		}
	}
}

// Variance is budget minus actual, or zero when either side is missing. A
// budget of exactly zero reads as missing, so unbudgeted spending shows no
// variance.
func (e ExpenseTrendEntry) Variance() float64 {
	if e.TotalBudget == 0 || e.FullYearActual == 0 {
		return 0
	}
	return e.TotalBudget - e.FullYearActual
}

// OCRPending marks a scanned page routed to the ocr step.
type OCRPending struct {
	PageID   string `json:"page_id"`
	NeedsOCR bool   `json:"needs_ocr"`
}

// OCRRawResult keeps the text of a scanned page that yielded no invoice fields.
type OCRRawResult struct {
	PageID    string `json:"page_id"`
	PageNum   int    `json:"page_num"`
	OCRText   string `json:"ocr_text"`
	ImagePath string `json:"image_path"`
}
