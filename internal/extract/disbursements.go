package extract

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/sells-group/hoa-financials/internal/model"
	"github.com/sells-group/hoa-financials/internal/normalize"
	"github.com/sells-group/hoa-financials/internal/oracle"
)

var (
	dbVendor     = regexp.MustCompile(`^([A-Za-z][^(]+)\s*\(\d+\)`)
	dbCheck      = regexp.MustCompile(`Check\s+Number:\s*(\d+)\s+Check\s+Date:\s*(\d{1,2}/\d{1,2}/\d{4})\s+Check\s+Amount:\s*([\d,]+\.?\d*)`)
	dbTrans      = regexp.MustCompile(`^\s*(\d+)\s*-\s*(\d+)\s*-\s*([^0-9]+?)\s+(\d{1,2}/\d{1,2}/\d{4})\s+(.+?)\s+(-?[\d,]+\.?\d*)$`)
	dbSimpleLine = regexp.MustCompile(`^\s*\d+\s*-\s*(\d+)\s*-\s*(.+?)\s+(\d{1,2}/\d{1,2}/\d{4})\s+(.+?)\s+([\d,]+\.?\d*)\s*$`)
)

// Disbursements extracts check disbursement transactions.
type Disbursements struct {
	Oracle oracle.Oracle
}

const disbursementSchema = `Return a JSON array of transaction records from this check disbursement report.
Each record should have:
{
    "check_number": "check number",
    "check_date": "YYYY-MM-DD",
    "vendor": "vendor name",
    "account_code": "GL account code (4 digits)",
    "account_name": "account description",
    "description": "transaction description/memo",
    "amount": numeric amount
}

Parse ALL transaction lines, not just the first few.`

const disbursementExample = `[
    {
        "check_number": "00200284",
        "check_date": "2025-11-03",
        "vendor": "Associa Hill Country",
        "account_code": "7040",
        "account_name": "Management Fees",
        "description": "Management Fee",
        "amount": 805.00
    }
]`

// Entries parses text into disbursement entries.
func (d *Disbursements) Entries(ctx context.Context, text string) ([]model.DisbursementEntry, error) {
	s := strategy[model.DisbursementEntry]{
		kind:    model.KindDisbursement,
		schema:  disbursementSchema,
		example: disbursementExample,
		rules:   ParseDisbursementRules,
	}
	return s.parse(ctx, d.Oracle, text)
}

func (d *Disbursements) Parse(ctx context.Context, text string) ([]model.Record, error) {
	out, err := d.Entries(ctx, text)
	if err != nil {
		return nil, err
	}
	return toRecords(out), nil
}

// disbursementScan carries the vendor and check headers that apply to the
// transaction lines below them.
type disbursementScan struct {
	vendor      string
	checkNumber string
	checkDate   string
	checkAmount float64
}

func (s disbursementScan) step(raw string) (disbursementScan, *model.DisbursementEntry) {
	line := strings.TrimRightFunc(raw, unicode.IsSpace)
	if isNoise(line) {
		return s, nil
	}
	if m := dbVendor.FindStringSubmatch(line); m != nil {
		s.vendor = strings.TrimSpace(m[1])
		return s, nil
	}
	if m := dbCheck.FindStringSubmatch(line); m != nil {
		s.checkNumber = m[1]
		s.checkDate = normalize.ParseDate(m[2])
		s.checkAmount = normalize.ParseAmount(m[3])
		return s, nil
	}

	var account, accountName, date, desc, amount string
	if m := dbTrans.FindStringSubmatch(line); m != nil {
		account, accountName, date, desc, amount = m[2], m[3], m[4], m[5], m[6]
	} else if m := dbSimpleLine.FindStringSubmatch(line); m != nil {
		account, accountName, date, desc, amount = m[1], m[2], m[3], m[4], m[5]
	} else {
		return s, nil
	}

	vendor := s.vendor
	if vendor == "" {
		vendor = "Unknown"
	}
	return s, &model.DisbursementEntry{
		CheckNumber: s.checkNumber,
		CheckDate:   s.checkDate,
		CheckAmount: s.checkAmount,
		Vendor:      vendor,
		AccountCode: strings.TrimSpace(account),
		AccountName: strings.TrimSpace(accountName),
		TransDate:   normalize.ParseDate(date),
		Description: strings.TrimSpace(desc),
		Amount:      normalize.ParseAmount(amount),
	}
}

// ParseDisbursementRules parses a check disbursement report with line rules
// only.
func ParseDisbursementRules(text string) []model.DisbursementEntry {
	var (
		scan disbursementScan
		out  []model.DisbursementEntry
		rec  *model.DisbursementEntry
	)
	for _, line := range lines(text) {
		if scan, rec = scan.step(line); rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}

// Total is a labeled sum.
type Total struct {
	Key    string  `json:"key"`
	Amount float64 `json:"amount"`
}

func sortedTotals(m map[string]float64) []Total {
	out := make([]Total, 0, len(m))
	for k, v := range m {
		out = append(out, Total{Key: k, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// SummarizeByVendor sums amounts per vendor, largest first.
func SummarizeByVendor(entries []model.DisbursementEntry) []Total {
	m := make(map[string]float64)
	for _, e := range entries {
		v := e.Vendor
		if v == "" {
			v = "Unknown"
		}
		m[v] += e.Amount
	}
	return sortedTotals(m)
}

// SummarizeByAccount sums amounts per "code - name" account, largest first.
func SummarizeByAccount(entries []model.DisbursementEntry) []Total {
	m := make(map[string]float64)
	for _, e := range entries {
		m[e.AccountCode+" - "+e.AccountName] += e.Amount
	}
	return sortedTotals(m)
}
