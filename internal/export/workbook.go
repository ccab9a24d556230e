package export

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/hoa-financials/internal/model"
)

const (
	currencyFormat = "$#,##0.00"
	maxColumnWidth = 50
	minColumnWidth = 10
)

// Sheet names in workbook order.
const (
	SheetSummary            = "Summary"
	SheetBalanceSheet       = "Balance Sheet"
	SheetDisbursements      = "Disbursements"
	SheetInvoices           = "Invoices"
	SheetInvestments        = "Investments"
	SheetBankReconciliation = "Bank Reconciliation"
	SheetAccountsReceivable = "Accounts Receivable"
	SheetIncomeStatement    = "Income Statement"
	SheetExpenseTrend       = "Expense Trend"
)

var (
	headerStyle = func() *xlsx.Style {
		s := xlsx.NewStyle()
		s.Font.Bold = true
		s.Font.Color = "FFFFFFFF"
		s.Fill = *xlsx.NewFill("solid", "FF4472C4", "FF4472C4")
		s.Alignment.Horizontal = "center"
		s.Alignment.WrapText = true
		s.ApplyFont = true
		s.ApplyFill = true
		s.ApplyAlignment = true
		return s
	}()
	boldStyle = func() *xlsx.Style {
		s := xlsx.NewStyle()
		s.Font.Bold = true
		s.ApplyFont = true
		return s
	}()
	titleStyle = func() *xlsx.Style {
		s := xlsx.NewStyle()
		s.Font.Bold = true
		s.Font.Size = 14
		s.ApplyFont = true
		return s
	}()
)

// sheetWriter appends rows to a sheet and tracks the widest value per column.
type sheetWriter struct {
	sheet  *xlsx.Sheet
	widths []int
}

func newSheet(f *xlsx.File, name string, headers ...string) (*sheetWriter, error) {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return nil, eris.Wrapf(err, "export: add sheet %s", name)
	}
	w := &sheetWriter{sheet: sheet}
	if len(headers) > 0 {
		r := w.row()
		for _, h := range headers {
			r.str(h).SetStyle(headerStyle)
		}
	}
	return w, nil
}

func (w *sheetWriter) row() *rowWriter {
	return &rowWriter{w: w, row: w.sheet.AddRow()}
}

func (w *sheetWriter) track(col, width int) {
	for len(w.widths) <= col {
		w.widths = append(w.widths, 0)
	}
	w.widths[col] = max(w.widths[col], width)
}

// fit sizes every column to its content, capped at maxColumnWidth.
// Sheet columns are 1-based.
func (w *sheetWriter) fit() {
	for col, width := range w.widths {
		size := float64(minColumnWidth)
		if width > 0 {
			size = float64(min(width+2, maxColumnWidth))
		}
		w.sheet.SetColWidth(col+1, col+1, size)
	}
}

type rowWriter struct {
	w   *sheetWriter
	row *xlsx.Row
	col int
}

func (r *rowWriter) next(width int) *xlsx.Cell {
	r.w.track(r.col, width)
	r.col++
	return r.row.AddCell()
}

func (r *rowWriter) str(s string) *xlsx.Cell {
	c := r.next(len([]rune(s)))
	c.SetString(s)
	return c
}

func (r *rowWriter) integer(n int) *xlsx.Cell {
	c := r.next(len(strconv.Itoa(n)))
	c.SetInt(n)
	return c
}

func (r *rowWriter) money(v float64, bold bool) *xlsx.Cell {
	c := r.next(len(strconv.FormatFloat(v, 'f', -1, 64)))
	c.SetFloatWithFormat(v, currencyFormat)
	if bold {
		c.SetStyle(boldStyle)
	}
	return c
}

func (r *rowWriter) moneys(bold bool, vals ...float64) {
	for _, v := range vals {
		r.money(v, bold)
	}
}

// WriteWorkbook writes the summary sheet plus one sheet per non-empty
// collection to path.
func WriteWorkbook(path string, summary model.SummaryMetrics, c model.Collections) error {
	return writeWorkbook(path, summary, c, time.Now())
}

func writeWorkbook(path string, summary model.SummaryMetrics, c model.Collections, now time.Time) error {
	f := xlsx.NewFile()

	steps := []struct {
		name  string
		empty bool
		add   func(*xlsx.File) error
	}{
		{SheetSummary, false, func(f *xlsx.File) error { return addSummary(f, summary, now) }},
		{SheetBalanceSheet, len(c.BalanceSheet) == 0, func(f *xlsx.File) error { return addBalanceSheet(f, SheetBalanceSheet, c.BalanceSheet) }},
		{SheetDisbursements, len(c.Disbursements) == 0, func(f *xlsx.File) error { return addDisbursements(f, c.Disbursements) }},
		{SheetInvoices, len(c.Invoices) == 0, func(f *xlsx.File) error { return addInvoices(f, c.Invoices) }},
		{SheetInvestments, len(c.Investments) == 0, func(f *xlsx.File) error { return addBalanceSheet(f, SheetInvestments, investmentRows(c.Investments)) }},
		{SheetBankReconciliation, len(c.BankReconciliation) == 0, func(f *xlsx.File) error { return addBankReconciliation(f, c.BankReconciliation) }},
		{SheetAccountsReceivable, len(c.AccountsReceivable) == 0, func(f *xlsx.File) error { return addAccountsReceivable(f, c.AccountsReceivable) }},
		{SheetIncomeStatement, len(c.IncomeStatement) == 0, func(f *xlsx.File) error { return addIncomeStatement(f, c.IncomeStatement) }},
		{SheetExpenseTrend, len(c.ExpenseTrend) == 0, func(f *xlsx.File) error { return addExpenseTrend(f, c.ExpenseTrend) }},
	}
	for _, s := range steps {
		if s.empty {
			continue
		}
		if err := s.add(f); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "export: create output dir")
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	zap.L().Info("export: workbook written",
		zap.String("path", path),
		zap.Int("sheets", len(f.Sheets)),
		zap.Int("records", c.Total()),
	)
	return nil
}

func addSummary(f *xlsx.File, s model.SummaryMetrics, now time.Time) error {
	w, err := newSheet(f, SheetSummary)
	if err != nil {
		return err
	}

	title := w.row()
	cell := title.str("Financial Summary")
	cell.SetStyle(titleStyle)
	cell.Merge(1, 0)
	title.str("")

	r := w.row()
	r.str("Report Date:")
	r.str(s.ReportDate)
	r = w.row()
	r.str("Generated:")
	r.str(now.Format("2006-01-02 15:04"))
	w.row()

	for _, m := range []struct {
		label string
		value float64
	}{
		{"Total Assets", s.TotalAssets},
		{"Total Liabilities", s.TotalLiabilities},
		{"Net Equity", s.NetEquity},
		{"Operating Funds", s.OperatingFunds},
		{"Reserve Funds", s.ReserveFunds},
		{"Accounts Receivable", s.AccountsReceivable},
		{"Monthly Expenses", s.MonthlyExpenses},
	} {
		r := w.row()
		r.str(m.label)
		r.money(m.value, false)
	}
	r = w.row()
	r.str("Checks Written")
	r.integer(s.ChecksWritten)

	w.fit()
	return nil
}

func investmentRows(in []model.InvestmentEntry) []model.BalanceSheetEntry {
	out := make([]model.BalanceSheetEntry, len(in))
	for i, e := range in {
		out[i] = e.BalanceSheetEntry
	}
	return out
}

func addBalanceSheet(f *xlsx.File, name string, rows []model.BalanceSheetEntry) error {
	w, err := newSheet(f, name,
		"Account Code", "Account Name", "Category", "Subcategory",
		"Current Balance", "Prior Balance", "Change")
	if err != nil {
		return err
	}
	for _, e := range rows {
		r := w.row()
		r.str(e.AccountCode)
		r.str(e.AccountName)
		r.str(e.Category)
		r.str(e.Subcategory)
		r.moneys(false, e.CurrentBalance, e.PriorBalance, e.Change)
	}
	w.fit()
	return nil
}

func addDisbursements(f *xlsx.File, rows []model.DisbursementEntry) error {
	w, err := newSheet(f, SheetDisbursements,
		"Check #", "Date", "Vendor", "Account Code", "Account Name",
		"Description", "Amount", "Category")
	if err != nil {
		return err
	}
	for _, e := range rows {
		r := w.row()
		r.str(e.CheckNumber)
		r.str(e.CheckDate)
		r.str(e.Vendor)
		r.str(e.AccountCode)
		r.str(e.AccountName)
		r.str(e.Description)
		r.money(e.Amount, false)
		r.str(e.Category)
	}
	w.fit()
	return nil
}

func addInvoices(f *xlsx.File, rows []model.InvoiceEntry) error {
	w, err := newSheet(f, SheetInvoices,
		"Invoice ID", "Date", "Vendor", "Description",
		"Amount", "Source Page", "OCR Confidence")
	if err != nil {
		return err
	}
	for _, e := range rows {
		r := w.row()
		r.str(e.InvoiceID)
		r.str(e.InvoiceDate)
		r.str(e.Vendor)
		r.str(e.Description)
		r.money(e.Amount, false)
		if e.SourcePage > 0 {
			r.integer(e.SourcePage)
		} else {
			r.str("")
		}
		r.str(e.OCRConfidence)
	}
	w.fit()
	return nil
}

func addBankReconciliation(f *xlsx.File, rows []model.BankReconciliationEntry) error {
	w, err := newSheet(f, SheetBankReconciliation,
		"Account Code", "Account Name", "Type", "Bank Balance",
		"Outstanding Deposits", "Outstanding Checks", "GL Balance",
		"Difference", "Reconciled")
	if err != nil {
		return err
	}
	for _, e := range rows {
		r := w.row()
		r.str(e.AccountCode)
		r.str(e.AccountName)
		r.str(e.AccountType)
		r.moneys(false, e.BalancePerBank, e.TotalOutstandingDeposits, e.TotalOutstandingChecks,
			e.EndingBalanceGL, e.Difference)
		r.str(yesNo(e.IsReconciled))
	}
	w.fit()
	return nil
}

func addAccountsReceivable(f *xlsx.File, rows []model.AccountsReceivableEntry) error {
	w, err := newSheet(f, SheetAccountsReceivable,
		"Account ID", "Name", "Address", "Status",
		"Current", "31-60 Days", "61-90 Days", "91-120 Days",
		"120+ Days", "Total Balance")
	if err != nil {
		return err
	}
	for _, e := range rows {
		r := w.row()
		r.str(e.AccountID)
		r.str(e.Name)
		r.str(e.Address)
		r.str(Title(e.Section))
		r.moneys(false, e.Day30, e.Day31To60, e.Day61To90, e.Day91To120, e.Day120Plus, e.TotalBalance)
	}
	w.fit()
	return nil
}

func addIncomeStatement(f *xlsx.File, rows []model.IncomeStatementEntry) error {
	w, err := newSheet(f, SheetIncomeStatement,
		"Account", "Name", "Section", "Category",
		"Curr Actual", "Curr Budget", "Curr Var",
		"YTD Actual", "YTD Budget", "YTD Var",
		"Annual Budget", "Remaining")
	if err != nil {
		return err
	}
	for _, e := range rows {
		r := w.row()
		r.str(e.AccountCode)
		r.str(e.AccountName)
		r.str(e.Section)
		r.str(e.Category)
		r.moneys(e.IsTotal,
			e.CurrentActual, e.CurrentBudget, e.CurrentVariance,
			e.YTDActual, e.YTDBudget, e.YTDVariance,
			e.AnnualBudget, e.BudgetRemaining)
	}
	w.fit()
	return nil
}

func addExpenseTrend(f *xlsx.File, rows []model.ExpenseTrendEntry) error {
	w, err := newSheet(f, SheetExpenseTrend,
		"Account", "Name", "Category",
		"Jan", "Feb", "Mar", "Apr", "May", "Jun",
		"Jul", "Aug", "Sep", "Oct", "Nov",
		"Full Year", "Budget", "Variance")
	if err != nil {
		return err
	}
	for _, e := range rows {
		r := w.row()
		r.str(e.AccountCode)
		r.str(e.AccountName)
		r.str(e.Category)
		r.moneys(e.IsTotal, e.Months()...)
		r.moneys(e.IsTotal, e.FullYearActual, e.TotalBudget, e.Variance())
	}
	w.fit()
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
