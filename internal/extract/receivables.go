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
	arLine = regexp.MustCompile(`^(\d{5}-\d{4})\s+(.+?)(?:\s{2,}|\t)(.+?)(?:\s{2,}|\t)\s*` +
		`(-?[\d,]+\.?\d*)\s+(-?[\d,]+\.?\d*)\s+(-?[\d,]+\.?\d*)\s+` +
		`(-?[\d,]+\.?\d*)\s+(-?[\d,]+\.?\d*)\s+(-?[\d,]+\.?\d*)\s*$`)
	arAccountID   = regexp.MustCompile(`^\d{5}-\d{4}`)
	arNameAddress = regexp.MustCompile(`^(.+?)\s+(\d+\s+.+)$`)
	arSkipMarkers = []string{
		"Account Id", "Total Accounts", "Outstanding Balance:", "Prepaid Balance:",
		"Percentage", "Balance:",
	}
)

// AccountsReceivable extracts member balances with their aging buckets.
type AccountsReceivable struct {
	Oracle oracle.Oracle
}

const receivableSchema = `Return a JSON array of accounts receivable records. Each record should have:
{
    "account_id": "XXXXX-XXXX format",
    "name": "owner/member name",
    "address": "property address",
    "section": "delinquent or prepaid",
    "day_30": numeric (current month),
    "day_31_60": numeric,
    "day_61_90": numeric,
    "day_91_120": numeric,
    "day_120_plus": numeric (oldest),
    "total_balance": numeric (positive for owed, negative for prepaid/credit)
}

Include both Outstanding Balances (delinquent) and Prepaid Balances sections.`

const receivableExample = `[
    {
        "account_id": "00339-2087",
        "name": "Brad S. Rose",
        "address": "1202 Brads Flight",
        "section": "delinquent",
        "day_30": 71.01,
        "day_31_60": 235.80,
        "day_61_90": 40.59,
        "day_91_120": 40.38,
        "day_120_plus": 4069.35,
        "total_balance": 4457.13
    },
    {
        "account_id": "00329-4570",
        "name": "Jeff Epstein",
        "address": "1126 Brads Flight",
        "section": "prepaid",
        "day_30": 0.00,
        "day_31_60": 0.00,
        "day_61_90": 0.00,
        "day_91_120": 0.00,
        "day_120_plus": -1403.60,
        "total_balance": -1403.60
    }
]`

// Entries parses text into receivable entries.
func (a *AccountsReceivable) Entries(ctx context.Context, text string) ([]model.AccountsReceivableEntry, error) {
	s := strategy[model.AccountsReceivableEntry]{
		kind:    model.KindAccountsReceivable,
		schema:  receivableSchema,
		example: receivableExample,
		rules:   ParseReceivableRules,
	}
	return s.parse(ctx, a.Oracle, text)
}

func (a *AccountsReceivable) Parse(ctx context.Context, text string) ([]model.Record, error) {
	out, err := a.Entries(ctx, text)
	if err != nil {
		return nil, err
	}
	return toRecords(out), nil
}

type receivableScan struct {
	section string
}

func (s receivableScan) step(line string) (receivableScan, *model.AccountsReceivableEntry) {
	switch {
	case strings.Contains(line, "Outstanding Balances"):
		s.section = model.SectionDelinquent
		return s, nil
	case strings.Contains(line, "Prepaid Balances"):
		s.section = model.SectionPrepaid
		return s, nil
	}
	if strings.TrimSpace(line) == "" {
		return s, nil
	}
	for _, marker := range arSkipMarkers {
		if strings.Contains(line, marker) {
			return s, nil
		}
	}

	section := s.section
	if section == "" {
		section = model.SectionUnknown
	}

	var id, name, address string
	var amounts []string
	if m := arLine.FindStringSubmatch(line); m != nil {
		id, name, address = m[1], m[2], m[3]
		amounts = m[4:10]
	} else {
		parts := strings.Fields(line)
		if len(parts) < 8 || !arAccountID.MatchString(parts[0]) {
			return s, nil
		}
		id = parts[0]
		amounts = parts[len(parts)-6:]
		nameAddr := strings.Join(parts[1:len(parts)-6], " ")
		if nm := arNameAddress.FindStringSubmatch(nameAddr); nm != nil {
			name, address = nm[1], nm[2]
		} else {
			name = nameAddr
		}
	}

	return s, &model.AccountsReceivableEntry{
		AccountID:    id,
		Name:         strings.TrimSpace(name),
		Address:      strings.TrimSpace(address),
		Section:      section,
		Day30:        normalize.ParseAmount(amounts[0]),
		Day31To60:    normalize.ParseAmount(amounts[1]),
		Day61To90:    normalize.ParseAmount(amounts[2]),
		Day91To120:   normalize.ParseAmount(amounts[3]),
		Day120Plus:   normalize.ParseAmount(amounts[4]),
		TotalBalance: normalize.ParseAmount(amounts[5]),
	}
}

// ParseReceivableRules parses a delinquency/prepaid report with line rules
// only.
func ParseReceivableRules(text string) []model.AccountsReceivableEntry {
	var (
		scan receivableScan
		out  []model.AccountsReceivableEntry
		rec  *model.AccountsReceivableEntry
	)
	for _, line := range lines(text) {
		if scan, rec = scan.step(line); rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}

// ReceivableSummary totals balances per section.
type ReceivableSummary struct {
	DelinquentCount int     `json:"delinquent_count"`
	DelinquentTotal float64 `json:"delinquent_total"`
	PrepaidCount    int     `json:"prepaid_count"`
	PrepaidTotal    float64 `json:"prepaid_total"`
	NetBalance      float64 `json:"net_balance"`
}

// SummarizeAR counts and totals delinquent and prepaid accounts.
func SummarizeAR(entries []model.AccountsReceivableEntry) ReceivableSummary {
	var s ReceivableSummary
	for _, e := range entries {
		switch e.Section {
		case model.SectionDelinquent:
			s.DelinquentCount++
			s.DelinquentTotal += e.TotalBalance
		case model.SectionPrepaid:
			s.PrepaidCount++
			s.PrepaidTotal += e.TotalBalance
		}
	}
	s.NetBalance = s.DelinquentTotal + s.PrepaidTotal
	return s
}
