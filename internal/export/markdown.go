package export

import (
	"cmp"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hoa-financials/internal/model"
)

// Thresholds for the Markdown summary.
const (
	VariancePctThreshold  = 20.0
	VarianceMinAmount     = 500.0
	VarianceAlwaysAmount  = 2000.0
	DelinquentMinBalance  = 200.0
	NotableTransactionMin = 2000.0
	DefaultMaxLines       = 500
)

const (
	maxVarianceRows    = 15
	maxChangeRows      = 10
	maxTransactionRows = 15
	truncatedMarker    = "\n\n*[Truncated for context efficiency]*"
	noData             = "*No data*"
)

type align int

const (
	alignLeft align = iota
	alignRight
	alignCenter
)

type column struct {
	name  string
	align align
}

func table(cols []column, rows [][]string) string {
	if len(rows) == 0 {
		return noData
	}
	var b strings.Builder
	names := make([]string, len(cols))
	seps := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
		switch c.align {
		case alignRight:
			seps[i] = "---:"
		case alignCenter:
			seps[i] = ":---:"
		default:
			seps[i] = "---"
		}
	}
	b.WriteString("| " + strings.Join(names, " | ") + " |\n")
	b.WriteString("| " + strings.Join(seps, " | ") + " |\n")
	for _, r := range rows {
		b.WriteString("| " + strings.Join(r, " | ") + " |\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// WriteMarkdown renders the condensed summary to path, truncated to at most
// maxLines lines. maxLines <= 0 uses DefaultMaxLines.
func WriteMarkdown(path string, summary model.SummaryMetrics, c model.Collections, maxLines int) error {
	doc := RenderMarkdown(summary, c, time.Now(), maxLines)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "export: create output dir")
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	zap.L().Info("export: markdown written", zap.String("path", path))
	return nil
}

// RenderMarkdown builds the summary document.
func RenderMarkdown(summary model.SummaryMetrics, c model.Collections, now time.Time, maxLines int) string {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	sections := []string{
		"# HOA Financial Summary",
		executiveSummary(summary, now),
		alerts(c),
		delinquent(c.AccountsReceivable),
		bankReconciliation(c.BankReconciliation),
		cashPosition(c.BalanceSheet),
		monthOverMonth(c.ExpenseTrend),
		notableTransactions(c.Disbursements),
	}
	return truncateLines(strings.Join(sections, "\n\n")+"\n", maxLines)
}

func truncateLines(doc string, maxLines int) string {
	lines := strings.Split(doc, "\n")
	if len(lines) <= maxLines {
		return doc
	}
	return strings.Join(lines[:maxLines], "\n") + truncatedMarker
}

func executiveSummary(s model.SummaryMetrics, now time.Time) string {
	rows := [][]string{
		{"Total Assets", Currency(s.TotalAssets)},
		{"Total Liabilities", Currency(s.TotalLiabilities)},
		{"Net Equity", Currency(s.NetEquity)},
		{"Operating Funds", Currency(s.OperatingFunds)},
		{"Reserve Funds", Currency(s.ReserveFunds)},
		{"Total AR", Currency(s.AccountsReceivable)},
		{"Monthly Expenses", Currency(s.MonthlyExpenses)},
		{"Checks Written", fmt.Sprintf("%d", s.ChecksWritten)},
	}
	return fmt.Sprintf("## 1. Executive Summary\n\n**Report Period:** %s\n**Generated:** %s\n\n%s",
		s.ReportDate, now.Format("2006-01-02 15:04"),
		table([]column{{"Metric", alignLeft}, {"Value", alignRight}}, rows))
}

// Variance is a budget line flagged for review.
type Variance struct {
	Account  string
	Actual   float64
	Budget   float64
	Variance float64
	Percent  float64
}

func significant(variance, pct float64) bool {
	av := math.Abs(variance)
	return (math.Abs(pct) > VariancePctThreshold && av > VarianceMinAmount) || av > VarianceAlwaysAmount
}

// Variances collects significant budget variances from the trend report and
// the income statement, largest first. An account reported in both is taken
// from the trend report.
func Variances(c model.Collections) []Variance {
	var out []Variance
	seen := make(map[string]bool)

	add := func(name string, actual, budget, variance float64) {
		if budget == 0 || seen[name] {
			return
		}
		pct := variance / budget * 100
		if !significant(variance, pct) {
			return
		}
		seen[name] = true
		out = append(out, Variance{Account: name, Actual: actual, Budget: budget, Variance: variance, Percent: pct})
	}

	for _, e := range c.ExpenseTrend {
		if !e.IsTotal {
			add(e.AccountName, e.FullYearActual, e.TotalBudget, e.TotalBudget-e.FullYearActual)
		}
	}
	for _, e := range c.IncomeStatement {
		if !e.IsTotal {
			add(e.AccountName, e.YTDActual, e.YTDBudget, e.YTDVariance)
		}
	}

	slices.SortStableFunc(out, func(a, b Variance) int {
		return cmp.Compare(math.Abs(b.Variance), math.Abs(a.Variance))
	})
	return out
}

func alerts(c model.Collections) string {
	vs := Variances(c)
	if len(vs) == 0 {
		return "## 2. Alerts & Variances\n\n*No significant variances detected*"
	}
	rows := make([][]string, 0, min(len(vs), maxVarianceRows))
	for _, v := range vs[:min(len(vs), maxVarianceRows)] {
		rows = append(rows, []string{
			truncate(v.Account, 40), Currency(v.Actual), Currency(v.Budget),
			Currency(v.Variance), Percent(v.Percent),
		})
	}
	return "## 2. Alerts & Variances\n\n" + table([]column{
		{"Account", alignLeft}, {"YTD Actual", alignRight}, {"Budget", alignRight},
		{"Variance $", alignRight}, {"Variance %", alignRight},
	}, rows)
}

// Delinquent returns the accounts with a 120+ day balance or a total above
// DelinquentMinBalance, largest balance first.
func Delinquent(ar []model.AccountsReceivableEntry) []model.AccountsReceivableEntry {
	var out []model.AccountsReceivableEntry
	for _, e := range ar {
		if e.Day120Plus > 0 || e.TotalBalance > DelinquentMinBalance {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b model.AccountsReceivableEntry) int {
		return cmp.Compare(b.TotalBalance, a.TotalBalance)
	})
	return out
}

func delinquent(ar []model.AccountsReceivableEntry) string {
	const heading = "## 3. Accounts Receivable - Delinquent\n\n"
	accounts := Delinquent(ar)
	if len(accounts) == 0 {
		return heading + "*No delinquent accounts*"
	}
	var total float64
	rows := make([][]string, 0, len(accounts))
	for _, e := range accounts {
		total += e.TotalBalance
		rows = append(rows, []string{
			truncate(e.Name, 25), truncate(e.Address, 30),
			Currency(e.TotalBalance), Currency(e.Day120Plus),
		})
	}
	return heading + table([]column{
		{"Name", alignLeft}, {"Address", alignLeft},
		{"Total Balance", alignRight}, {"120+ Days", alignRight},
	}, rows) + fmt.Sprintf("\n\n**Total Delinquent: %s**", Currency(total))
}

func bankReconciliation(recs []model.BankReconciliationEntry) string {
	const heading = "## 4. Bank Reconciliation\n\n"
	if len(recs) == 0 {
		return heading + "*No bank reconciliation data*"
	}
	rows := make([][]string, 0, len(recs))
	for _, e := range recs {
		diff := "-"
		if e.Difference != 0 {
			diff = Currency(e.Difference)
		}
		rows = append(rows, []string{
			truncate(e.AccountName, 30), e.AccountType, Currency(e.EndingBalanceGL),
			yesNo(e.IsReconciled), diff,
		})
	}
	return heading + table([]column{
		{"Account", alignLeft}, {"Type", alignLeft}, {"GL Balance", alignRight},
		{"Reconciled", alignCenter}, {"Difference", alignRight},
	}, rows)
}

func cashPosition(bs []model.BalanceSheetEntry) string {
	var operating, reserve float64
	for _, e := range bs {
		if !strings.Contains(strings.ToLower(e.Category), "asset") {
			continue
		}
		name := strings.ToLower(e.AccountName)
		sub := strings.ToLower(e.Subcategory)
		if strings.Contains(name, "reserve") || strings.Contains(sub, "reserve") {
			reserve += e.CurrentBalance
		} else {
			operating += e.CurrentBalance
		}
	}
	return "## 5. Cash Position\n\n" + table([]column{{"Category", alignLeft}, {"Amount", alignRight}}, [][]string{
		{"Operating Accounts", Currency(operating)},
		{"Reserve Accounts", Currency(reserve)},
		{"**Combined Total**", "**" + Currency(operating+reserve) + "**"},
	})
}

func monthOverMonth(trend []model.ExpenseTrendEntry) string {
	const heading = "## 6. Month-over-Month Changes (Oct to Nov)\n\n"
	type change struct {
		name          string
		oct, nov, chg float64
	}
	var changes []change
	for _, e := range trend {
		if e.IsTotal || e.Nov-e.Oct == 0 {
			continue
		}
		changes = append(changes, change{e.AccountName, e.Oct, e.Nov, e.Nov - e.Oct})
	}
	if len(changes) == 0 {
		return heading + "*No month-over-month data available*"
	}
	slices.SortStableFunc(changes, func(a, b change) int {
		return cmp.Compare(math.Abs(b.chg), math.Abs(a.chg))
	})
	changes = changes[:min(len(changes), maxChangeRows)]
	rows := make([][]string, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, []string{truncate(c.name, 40), Currency(c.oct), Currency(c.nov), Currency(c.chg)})
	}
	return heading + table([]column{
		{"Account", alignLeft}, {"October", alignRight}, {"November", alignRight}, {"Change", alignRight},
	}, rows)
}

func notableTransactions(disb []model.DisbursementEntry) string {
	const heading = "## 7. Notable Transactions (>$2,000)\n\n"
	var notable []model.DisbursementEntry
	for _, d := range disb {
		if d.Amount > NotableTransactionMin {
			notable = append(notable, d)
		}
	}
	if len(notable) == 0 {
		return heading + "*No transactions over $2,000*"
	}
	slices.SortStableFunc(notable, func(a, b model.DisbursementEntry) int {
		return cmp.Compare(b.Amount, a.Amount)
	})
	notable = notable[:min(len(notable), maxTransactionRows)]
	rows := make([][]string, 0, len(notable))
	for _, d := range notable {
		rows = append(rows, []string{
			truncate(d.Vendor, 30), Currency(d.Amount), truncate(d.Description, 35), d.CheckNumber,
		})
	}
	return heading + table([]column{
		{"Vendor", alignLeft}, {"Amount", alignRight}, {"Description", alignLeft}, {"Check #", alignLeft},
	}, rows)
}
