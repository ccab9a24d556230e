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
	brPageBreak       = regexp.MustCompile(`Page \d+ of \d+`)
	brAccount         = regexp.MustCompile(`(?i)Account:\s*(\d{4})\s*--\s*(.+?)\s*--\s*(\w+)`)
	brBankBalance     = regexp.MustCompile(`Balance per Bank:\s*(\(?[\d,.-]+\)?)`)
	brGLBalance       = regexp.MustCompile(`Ending balance General Ledger:\s*(\(?[\d,.-]+\)?)`)
	brDifference      = regexp.MustCompile(`Difference:\s*(\(?[\d,.-]+\)?)`)
	brTotalDeposits   = regexp.MustCompile(`Total deposits and outstanding debits:\s*(\(?[\d,.-]+\)?)`)
	brTotalChecks     = regexp.MustCompile(`Total outstanding checks:\s*(\(?[\d,.-]+\)?)`)
	brDepositSection  = regexp.MustCompile(`(?is)Plus deposits and outstanding debits:(.*?)Total deposits`)
	brCheckSection    = regexp.MustCompile(`(?is)Less outstanding checks:(.*?)Total outstanding checks`)
	brOutstandingItem = regexp.MustCompile(`(\d+)\s+(\d{2}/\d{2}/\d{4})\s+(.+?)\s{2,}(\S+)\s+([\d,.-]+)`)
)

// BankReconciliation extracts one record per reconciled bank account.
type BankReconciliation struct {
	Oracle oracle.Oracle
}

const bankRecSchema = `Return a JSON array of bank reconciliation records. Each record should have:
{
    "account_code": "4-digit account code",
    "account_name": "account name",
    "account_type": "Operating or Reserves",
    "balance_per_bank": numeric,
    "outstanding_deposits": [
        {"batch": "batch#", "date": "MM/DD/YYYY", "description": "desc", "reference": "ref", "amount": numeric}
    ],
    "total_outstanding_deposits": numeric,
    "outstanding_checks": [
        {"batch": "batch#", "date": "MM/DD/YYYY", "description": "payee", "reference": "check#", "amount": numeric (negative)}
    ],
    "total_outstanding_checks": numeric (negative),
    "ending_balance_gl": numeric,
    "difference": numeric (should be 0 if reconciled),
    "is_reconciled": boolean
}`

const bankRecExample = `[
    {
        "account_code": "1011",
        "account_name": "HAR OPER #1137",
        "account_type": "Operating",
        "balance_per_bank": 3522.75,
        "outstanding_deposits": [
            {"batch": "3977008", "date": "10/31/2025", "description": "check 1002", "reference": "10/25", "amount": 5500.00}
        ],
        "total_outstanding_deposits": 12300.00,
        "outstanding_checks": [
            {"batch": "3975807", "date": "11/26/2025", "description": "Pedernales Electric", "reference": "Check No 00300447", "amount": -57.97}
        ],
        "total_outstanding_checks": -410.50,
        "ending_balance_gl": 15412.25,
        "difference": 0.00,
        "is_reconciled": true
    }
]`

// Entries parses text into reconciliation records.
func (b *BankReconciliation) Entries(ctx context.Context, text string) ([]model.BankReconciliationEntry, error) {
	s := strategy[model.BankReconciliationEntry]{
		kind:    model.KindBankReconciliation,
		schema:  bankRecSchema,
		example: bankRecExample,
		rules:   ParseBankReconciliationRules,
		decode:  decodeBankReconciliation,
	}
	return s.parse(ctx, b.Oracle, text)
}

func (b *BankReconciliation) Parse(ctx context.Context, text string) ([]model.Record, error) {
	out, err := b.Entries(ctx, text)
	if err != nil {
		return nil, err
	}
	return toRecords(out), nil
}

// decodeBankReconciliation unmarshals oracle records. is_reconciled is
// always recomputed so the flag cannot contradict the numbers.
func decodeBankReconciliation(raw json.RawMessage) ([]model.BankReconciliationEntry, error) {
	var rows []struct {
		model.BankReconciliationEntry
		Difference *float64 `json:"difference"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, eris.Wrap(err, "extract: decode bank reconciliation")
	}
	out := make([]model.BankReconciliationEntry, len(rows))
	for n, r := range rows {
		out[n] = r.BankReconciliationEntry
		reconcile(&out[n], r.Difference, true)
	}
	return out, nil
}

// reconcile sets the difference and is_reconciled. A reported difference
// wins; otherwise it is derived from the balances when both were found,
// and the entry stays unreconciled when they were not.
func reconcile(e *model.BankReconciliationEntry, difference *float64, haveBalances bool) {
	if e.OutstandingDeposits == nil {
		e.OutstandingDeposits = []model.OutstandingItem{}
	}
	if e.OutstandingChecks == nil {
		e.OutstandingChecks = []model.OutstandingItem{}
	}
	switch {
	case difference != nil:
		e.Difference = *difference
	case haveBalances:
		adjusted := e.BalancePerBank + e.TotalOutstandingDeposits - math.Abs(e.TotalOutstandingChecks)
		e.Difference = cents(e.EndingBalanceGL - adjusted)
	default:
		e.Difference = 0
		e.IsReconciled = false
		return
	}
	e.IsReconciled = model.Reconciled(e.Difference)
}

// ParseBankReconciliationRules parses a reconciliation report with line
// rules only. Each page section naming an account yields one record.
func ParseBankReconciliationRules(text string) []model.BankReconciliationEntry {
	var out []model.BankReconciliationEntry
	for _, page := range brPageBreak.Split(text, -1) {
		if strings.TrimSpace(page) == "" {
			continue
		}
		m := brAccount.FindStringSubmatch(page)
		if m == nil {
			continue
		}
		e := model.BankReconciliationEntry{
			AccountCode:              m[1],
			AccountName:              strings.TrimSpace(m[2]),
			AccountType:              strings.TrimSpace(m[3]),
			BalancePerBank:           findAmount(brBankBalance, page),
			OutstandingDeposits:      outstandingItems(brDepositSection, page),
			TotalOutstandingDeposits: findAmount(brTotalDeposits, page),
			OutstandingChecks:        outstandingItems(brCheckSection, page),
			TotalOutstandingChecks:   findAmount(brTotalChecks, page),
			EndingBalanceGL:          findAmount(brGLBalance, page),
		}
		var difference *float64
		if m := brDifference.FindStringSubmatch(page); m != nil {
			d := normalize.ParseAmount(m[1])
			difference = &d
		}
		haveBalances := brBankBalance.MatchString(page) && brGLBalance.MatchString(page)
		reconcile(&e, difference, haveBalances)
		out = append(out, e)
	}
	return out
}

func findAmount(re *regexp.Regexp, text string) float64 {
	if m := re.FindStringSubmatch(text); m != nil {
		return normalize.ParseAmount(m[1])
	}
	return 0
}

func outstandingItems(section *regexp.Regexp, page string) []model.OutstandingItem {
	items := []model.OutstandingItem{}
	m := section.FindStringSubmatch(page)
	if m == nil || strings.Contains(m[1], "No outstanding") {
		return items
	}
	for _, im := range brOutstandingItem.FindAllStringSubmatch(m[1], -1) {
		items = append(items, model.OutstandingItem{
			Batch:       im[1],
			Date:        im[2],
			Description: strings.TrimSpace(im[3]),
			Reference:   im[4],
			Amount:      normalize.ParseAmount(im[5]),
		})
	}
	return items
}
