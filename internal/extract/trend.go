package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/sells-group/hoa-financials/internal/model"
	"github.com/sells-group/hoa-financials/internal/normalize"
	"github.com/sells-group/hoa-financials/internal/oracle"
)

var (
	trAccountLine  = regexp.MustCompile(`^\s*(\d{4})\s*-\s*([A-Za-z].*?)\s{2,}`)
	trTotalLine    = regexp.MustCompile(`^Total\s+(.+?)\s{2,}`)
	trHeaderTokens = []string{"Jan", "Feb", "Mar", "Actual", "Budget"}
)

// ExpenseTrend extracts monthly actuals per account from trend reports.
type ExpenseTrend struct {
	Oracle oracle.Oracle
}

const trendSchema = `Return a JSON array of expense trend line items. Each record should have:
{
    "account_code": "4-digit account code (empty for totals)",
    "account_name": "account name",
    "category": "expense category (Administrative, Utilities, etc.)",
    "is_total": boolean (true for Total lines),
    "jan": numeric (January actual),
    "feb": numeric (February actual),
    "mar": numeric (March actual),
    "apr": numeric (April actual),
    "may": numeric (May actual),
    "jun": numeric (June actual),
    "jul": numeric (July actual),
    "aug": numeric (August actual),
    "sep": numeric (September actual),
    "oct": numeric (October actual),
    "nov": numeric (November actual),
    "full_year_actual": numeric (sum of all months),
    "total_budget": numeric (annual budget)
}

Parse ALL line items including individual accounts AND totals.
Numbers in parentheses are negative.`

const trendExample = `[
    {
        "account_code": "5000",
        "account_name": "Administrative Supplies",
        "category": "Administrative",
        "is_total": false,
        "jan": 20.00, "feb": 0.00, "mar": 72.00, "apr": 63.00, "may": 188.00, "jun": 79.00,
        "jul": 242.00, "aug": 0.00, "sep": 70.00, "oct": 0.00, "nov": 342.00,
        "full_year_actual": 1076.00,
        "total_budget": 1100.00
    },
    {
        "account_code": "",
        "account_name": "Total Administrative",
        "category": "Administrative",
        "is_total": true,
        "jan": 107.00, "feb": 0.00, "mar": 407.00, "apr": 406.00, "may": 414.00, "jun": 313.00,
        "jul": 862.00, "aug": 0.00, "sep": 160.00, "oct": 0.00, "nov": 912.00,
        "full_year_actual": 3582.00,
        "total_budget": 2150.00
    }
]`

// Entries parses text into expense trend rows.
func (t *ExpenseTrend) Entries(ctx context.Context, text string) ([]model.ExpenseTrendEntry, error) {
	s := strategy[model.ExpenseTrendEntry]{
		kind:    model.KindExpenseTrend,
		schema:  trendSchema,
		example: trendExample,
		rules:   ParseExpenseTrendRules,
	}
	return s.parse(ctx, t.Oracle, text)
}

func (t *ExpenseTrend) Parse(ctx context.Context, text string) ([]model.Record, error) {
	out, err := t.Entries(ctx, text)
	if err != nil {
		return nil, err
	}
	return toRecords(out), nil
}

type trendScan struct {
	category string
}

func (s trendScan) step(line string) (trendScan, *model.ExpenseTrendEntry) {
	if isNoise(line) {
		return s, nil
	}
	stripped := strings.TrimSpace(line)
	if looksLikeHeader(stripped, 40, "Total", "Account") && !containsAny(stripped, trHeaderTokens) {
		s.category = stripped
		return s, nil
	}

	if loc := trAccountLine.FindStringSubmatchIndex(line); loc != nil {
		amounts := normalize.FindAmounts(line[loc[1]:])
		if len(amounts) >= 12 {
			e := trendRow(amounts)
			e.AccountCode = line[loc[2]:loc[3]]
			e.AccountName = strings.TrimSpace(line[loc[4]:loc[5]])
			e.Category = orUnknown(s.category)
			return s, &e
		}
	}

	if strings.HasPrefix(stripped, "Total ") {
		m := trTotalLine.FindStringSubmatch(stripped)
		if m == nil {
			return s, nil
		}
		amounts := normalize.FindAmounts(line)
		if len(amounts) < 2 {
			return s, nil
		}
		name := strings.TrimSpace(m[1])
		e := trendRow(amounts)
		e.AccountName = "Total " + name
		e.Category = name
		e.IsTotal = true
		return s, &e
	}
	return s, nil
}

// trendRow maps the leading amounts to months and the last two to the
// full-year actual and the budget.
func trendRow(amounts []string) model.ExpenseTrendEntry {
	vals := make([]float64, len(amounts))
	for i, a := range amounts {
		vals[i] = normalize.ParseAmount(a)
	}
	var e model.ExpenseTrendEntry
	e.SetMonths(vals)
	e.FullYearActual = vals[len(vals)-2]
	e.TotalBudget = vals[len(vals)-1]
	return e
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ParseExpenseTrendRules parses a monthly trend report with line rules only.
func ParseExpenseTrendRules(text string) []model.ExpenseTrendEntry {
	var (
		scan trendScan
		out  []model.ExpenseTrendEntry
		rec  *model.ExpenseTrendEntry
	)
	for _, line := range lines(text) {
		if scan, rec = scan.step(line); rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}

// CategoryTotal compares a category's full-year actual with its budget.
type CategoryTotal struct {
	Actual   float64 `json:"actual"`
	Budget   float64 `json:"budget"`
	Variance float64 `json:"variance"`
}

// TrendSummary rolls up the total rows of a trend report.
type TrendSummary struct {
	TotalIncome  float64                  `json:"total_income"`
	TotalExpense float64                  `json:"total_expense"`
	TotalBudget  float64                  `json:"total_budget"`
	Variance     float64                  `json:"variance"`
	Categories   map[string]CategoryTotal `json:"categories"`
}

// SummarizeTrend collects per-category totals and the overall income and
// expense figures.
func SummarizeTrend(entries []model.ExpenseTrendEntry) TrendSummary {
	s := TrendSummary{Categories: map[string]CategoryTotal{}}
	for _, e := range entries {
		if e.IsTotal && !strings.Contains(e.AccountName, "Total Income") {
			s.Categories[orUnknown(e.Category)] = CategoryTotal{
				Actual:   e.FullYearActual,
				Budget:   e.TotalBudget,
				Variance: e.TotalBudget - e.FullYearActual,
			}
		}
		name := strings.ToLower(e.AccountName)
		switch {
		case strings.Contains(name, "total income"):
			s.TotalIncome = e.FullYearActual
		case strings.Contains(name, "total expense") || strings.Contains(name, "total operating expense"):
			s.TotalExpense = e.FullYearActual
			s.TotalBudget = e.TotalBudget
		}
	}
	s.Variance = s.TotalBudget - s.TotalExpense
	return s
}
