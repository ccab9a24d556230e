package extract

import (
	"context"
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hoa-financials/internal/model"
	"github.com/sells-group/hoa-financials/internal/normalize"
	"github.com/sells-group/hoa-financials/internal/oracle"
)

var (
	bsAccountLine = regexp.MustCompile(`^\s*(\d{4})\s*-\s*(.+?)\s+(-?[\d,]+\.?\d*)\s+(-?[\d,]+\.?\d*)\s+(-?[\d,]+\.?\d*)?\s*$`)
	bsCategory    = regexp.MustCompile(`(?i)^\s*(Assets|Liabilities|Owners' Equity)\s*$`)
	bsSubcategory = regexp.MustCompile(`^\s{2,10}([A-Z][a-zA-Z\s]+)\s*$`)
	bsTotalLine   = regexp.MustCompile(`(?i)^\s*Total\s+`)
)

// BalanceSheet extracts account balances from balance sheet reports.
type BalanceSheet struct {
	Oracle oracle.Oracle
}

const balanceSchema = `Return a JSON array of account records. Each record should have:
{
    "account_code": "4-digit account code",
    "account_name": "account description",
    "category": "Assets, Liabilities, or Owners' Equity",
    "subcategory": "e.g., Operating Funds, Reserve Funds, Accounts Payable",
    "current_balance": numeric (negative for credits/liabilities shown in parens),
    "prior_balance": numeric,
    "change": numeric (current - prior)
}`

const balanceExample = `[
    {
        "account_code": "1001",
        "account_name": "PPB #3118 Builder Bond",
        "category": "Assets",
        "subcategory": "Operating Funds",
        "current_balance": 21398.80,
        "prior_balance": 21394.40,
        "change": 4.40
    }
]`

func (b *BalanceSheet) strategy() strategy[model.BalanceSheetEntry] {
	return strategy[model.BalanceSheetEntry]{
		kind:    model.KindBalanceSheet,
		schema:  balanceSchema,
		example: balanceExample,
		rules:   ParseBalanceSheetRules,
		decode:  decodeBalanceSheet,
	}
}

// decodeBalanceSheet unmarshals oracle records, deriving change as
// current minus prior when the record carries none.
func decodeBalanceSheet(raw json.RawMessage) ([]model.BalanceSheetEntry, error) {
	var rows []struct {
		model.BalanceSheetEntry
		Change *float64 `json:"change"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, eris.Wrap(err, "extract: decode balance sheet")
	}
	out := make([]model.BalanceSheetEntry, len(rows))
	for n, r := range rows {
		out[n] = r.BalanceSheetEntry
		if r.Change != nil {
			out[n].Change = *r.Change
		} else {
			out[n].Change = cents(r.CurrentBalance - r.PriorBalance)
		}
	}
	return out, nil
}

// cents rounds v to two decimal places.
func cents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Entries parses text into balance sheet entries.
func (b *BalanceSheet) Entries(ctx context.Context, text string) ([]model.BalanceSheetEntry, error) {
	return b.strategy().parse(ctx, b.Oracle, text)
}

func (b *BalanceSheet) Parse(ctx context.Context, text string) ([]model.Record, error) {
	out, err := b.Entries(ctx, text)
	if err != nil {
		return nil, err
	}
	return toRecords(out), nil
}

// balanceScan carries the headers seen so far while walking a balance sheet.
type balanceScan struct {
	category    string
	subcategory string
}

func (s balanceScan) step(line string) (balanceScan, *model.BalanceSheetEntry) {
	if isNoise(line) {
		return s, nil
	}
	if m := bsCategory.FindStringSubmatch(line); m != nil {
		s.category = m[1]
		return s, nil
	}
	if m := bsSubcategory.FindStringSubmatch(line); m != nil && !bsTotalLine.MatchString(line) {
		s.subcategory = strings.TrimSpace(m[1])
		return s, nil
	}
	m := bsAccountLine.FindStringSubmatch(line)
	if m == nil {
		return s, nil
	}

	current := normalize.ParseAmount(m[3])
	prior := normalize.ParseAmount(m[4])
	change := current - prior
	if m[5] != "" {
		change = normalize.ParseAmount(m[5])
	}
	return s, &model.BalanceSheetEntry{
		AccountCode:    m[1],
		AccountName:    strings.TrimSpace(m[2]),
		Category:       orUnknown(s.category),
		Subcategory:    orUnknown(s.subcategory),
		CurrentBalance: current,
		PriorBalance:   prior,
		Change:         change,
	}
}

// ParseBalanceSheetRules parses a balance sheet with line rules only.
func ParseBalanceSheetRules(text string) []model.BalanceSheetEntry {
	var (
		scan balanceScan
		out  []model.BalanceSheetEntry
		rec  *model.BalanceSheetEntry
	)
	for _, line := range lines(text) {
		if scan, rec = scan.step(line); rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}

var balanceTotals = []struct {
	key  string
	expr *regexp.Regexp
}{
	{"total_assets", regexp.MustCompile(`(?i)Total\s+Assets\s+(-?[\d,]+\.?\d*)`)},
	{"total_liabilities", regexp.MustCompile(`(?i)Total\s+Liabilities\s+(-?[\d,]+\.?\d*)`)},
	{"total_equity", regexp.MustCompile(`(?i)Total\s+(?:Owners'?\s+)?Equity\s+(-?[\d,]+\.?\d*)`)},
	{"net_income", regexp.MustCompile(`(?i)Net\s+Income\s*/?\s*\(?\s*Loss\s*\)?\s+(-?[\d,]+\.?\d*)`)},
	{"operating_funds", regexp.MustCompile(`(?i)Total\s+Operating\s+Funds\s+(-?[\d,]+\.?\d*)`)},
	{"reserve_funds", regexp.MustCompile(`(?i)Total\s+Reserve\s+Funds\s+(-?[\d,]+\.?\d*)`)},
}

// ExtractTotals pulls the report-level totals printed on a balance sheet.
// Keys are present only when the total was found.
func ExtractTotals(text string) map[string]float64 {
	out := make(map[string]float64)
	for _, t := range balanceTotals {
		if m := t.expr.FindStringSubmatch(text); m != nil {
			out[t.key] = normalize.ParseAmount(m[1])
		}
	}
	return out
}

// Investments parses investment listings with the balance sheet rules.
type Investments struct {
	BalanceSheet *BalanceSheet
}

func (i *Investments) Parse(ctx context.Context, text string) ([]model.Record, error) {
	entries, err := i.BalanceSheet.Entries(ctx, text)
	if err != nil {
		return nil, err
	}
	out := make([]model.Record, len(entries))
	for n, e := range entries {
		out[n] = model.InvestmentEntry{BalanceSheetEntry: e}
	}
	return out, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
