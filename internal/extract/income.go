package extract

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/sells-group/hoa-financials/internal/model"
	"github.com/sells-group/hoa-financials/internal/normalize"
	"github.com/sells-group/hoa-financials/internal/oracle"
)

const isAmount = `(-?[\d,().]+)`

var (
	isAccountLine = regexp.MustCompile(`^\s*(\d{4})\s*-\s*(.+?)\s+` +
		isAmount + `\s+` + isAmount + `\s+` + isAmount + `\s+` +
		isAmount + `\s+` + isAmount + `\s+` + isAmount + `\s+` +
		isAmount + `\s+` + isAmount + `\s*$`)
	isTotalLine = regexp.MustCompile(`^\s*Total\s+(.+?)\s+` +
		isAmount + `\s+` + isAmount + `\s+` + isAmount + `\s+` +
		isAmount + `\s+` + isAmount + `\s+` + isAmount + `\s+` +
		isAmount + `\s+` + isAmount + `\s*$`)
	isNotCategory = map[string]bool{"Income": true, "Expense": true, "Operating": true, "Reserves": true}
)

// IncomeStatement extracts period, year-to-date and annual figures per account.
type IncomeStatement struct {
	Oracle oracle.Oracle
}

const incomeSchema = `Return a JSON array of income statement line items. Each record should have:
{
    "account_code": "4-digit account code (empty for totals)",
    "account_name": "account name or Total X",
    "section": "Income or Expense",
    "category": "subcategory like Assessment Income, Administrative, etc.",
    "is_total": boolean (true for Total lines),
    "current_actual": numeric (current month actual),
    "current_budget": numeric (current month budget),
    "current_variance": numeric (actual - budget, negative in parens),
    "ytd_actual": numeric (year to date actual),
    "ytd_budget": numeric (year to date budget),
    "ytd_variance": numeric,
    "annual_budget": numeric (full year budget),
    "budget_remaining": numeric (annual - ytd actual)
}

Parse ALL line items including individual accounts AND totals.
Numbers in parentheses are negative.`

const incomeExample = `[
    {
        "account_code": "4000",
        "account_name": "Residential Assessments",
        "section": "Income",
        "category": "Assessment Income",
        "is_total": false,
        "current_actual": 0.00,
        "current_budget": 0.00,
        "current_variance": 0.00,
        "ytd_actual": 123516.80,
        "ytd_budget": 124920.00,
        "ytd_variance": -1403.20,
        "annual_budget": 124920.00,
        "budget_remaining": 1403.20
    },
    {
        "account_code": "",
        "account_name": "Total Assessment Income",
        "section": "Income",
        "category": "Assessment Income",
        "is_total": true,
        "current_actual": 0.00,
        "current_budget": 0.00,
        "current_variance": 0.00,
        "ytd_actual": 123516.80,
        "ytd_budget": 124920.00,
        "ytd_variance": -1403.20,
        "annual_budget": 124920.00,
        "budget_remaining": 1403.20
    }
]`

// Entries parses text into income statement rows.
func (i *IncomeStatement) Entries(ctx context.Context, text string) ([]model.IncomeStatementEntry, error) {
	s := strategy[model.IncomeStatementEntry]{
		kind:    model.KindIncomeStatement,
		schema:  incomeSchema,
		example: incomeExample,
		rules:   ParseIncomeStatementRules,
	}
	return s.parse(ctx, i.Oracle, text)
}

func (i *IncomeStatement) Parse(ctx context.Context, text string) ([]model.Record, error) {
	out, err := i.Entries(ctx, text)
	if err != nil {
		return nil, err
	}
	return toRecords(out), nil
}

type incomeScan struct {
	section  string
	category string
}

// looksLikeHeader reports a short line with no figures near its start.
func looksLikeHeader(stripped string, maxLen int, excludedPrefixes ...string) bool {
	if stripped == "" || unicode.IsDigit(rune(stripped[0])) || len(stripped) >= maxLen {
		return false
	}
	for _, p := range excludedPrefixes {
		if strings.HasPrefix(stripped, p) {
			return false
		}
	}
	return true
}

func (s incomeScan) step(line string) (incomeScan, *model.IncomeStatementEntry) {
	if isNoise(line) {
		return s, nil
	}
	stripped := strings.TrimSpace(line)
	switch stripped {
	case "Income", "Expense":
		s.section = stripped
		return s, nil
	}

	head := stripped
	if len(head) > 10 {
		head = head[:10]
	}
	if looksLikeHeader(stripped, 50, "Total", "Current", "Actual") && !strings.ContainsAny(head, "0123456789") {
		if !isNotCategory[stripped] {
			s.category = stripped
		}
		return s, nil
	}

	if m := isAccountLine.FindStringSubmatch(line); m != nil {
		e := incomeRow(m[3:11])
		e.AccountCode = m[1]
		e.AccountName = strings.TrimSpace(m[2])
		e.Section = orUnknown(s.section)
		e.Category = orUnknown(s.category)
		return s, &e
	}
	if m := isTotalLine.FindStringSubmatch(line); m != nil {
		name := strings.TrimSpace(m[1])
		e := incomeRow(m[2:10])
		e.AccountName = "Total " + name
		e.Section = orUnknown(s.section)
		e.Category = name
		e.IsTotal = true
		return s, &e
	}
	return s, nil
}

func incomeRow(v []string) model.IncomeStatementEntry {
	return model.IncomeStatementEntry{
		CurrentActual:   normalize.ParseAmount(v[0]),
		CurrentBudget:   normalize.ParseAmount(v[1]),
		CurrentVariance: normalize.ParseAmount(v[2]),
		YTDActual:       normalize.ParseAmount(v[3]),
		YTDBudget:       normalize.ParseAmount(v[4]),
		YTDVariance:     normalize.ParseAmount(v[5]),
		AnnualBudget:    normalize.ParseAmount(v[6]),
		BudgetRemaining: normalize.ParseAmount(v[7]),
	}
}

// ParseIncomeStatementRules parses an income statement with line rules only.
func ParseIncomeStatementRules(text string) []model.IncomeStatementEntry {
	var (
		scan incomeScan
		out  []model.IncomeStatementEntry
		rec  *model.IncomeStatementEntry
	)
	for _, line := range lines(text) {
		if scan, rec = scan.step(line); rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}

// IncomeSummary holds the headline year-to-date totals.
type IncomeSummary struct {
	TotalIncomeYTD     float64 `json:"total_income_ytd"`
	TotalExpenseYTD    float64 `json:"total_expense_ytd"`
	NetIncomeYTD       float64 `json:"net_income_ytd"`
	TotalIncomeBudget  float64 `json:"total_income_budget"`
	TotalExpenseBudget float64 `json:"total_expense_budget"`
}

// SummarizeIncome picks the income and expense totals out of the rows.
func SummarizeIncome(entries []model.IncomeStatementEntry) IncomeSummary {
	var s IncomeSummary
	for _, e := range entries {
		if !e.IsTotal {
			continue
		}
		name := strings.ToLower(e.AccountName)
		switch {
		case strings.Contains(name, "operating income") || strings.Contains(name, "total income"):
			s.TotalIncomeYTD = e.YTDActual
			s.TotalIncomeBudget = e.AnnualBudget
		case strings.Contains(name, "operating expense") || strings.Contains(name, "total expense"):
			s.TotalExpenseYTD = e.YTDActual
			s.TotalExpenseBudget = e.AnnualBudget
		}
	}
	s.NetIncomeYTD = s.TotalIncomeYTD - s.TotalExpenseYTD
	return s
}
