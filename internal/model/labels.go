package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PageLabel is the report type assigned to a single page.
type PageLabel string

const (
	LabelBalanceSheet       PageLabel = "balance_sheet"
	LabelDisbursements      PageLabel = "disbursements"
	LabelInvoice            PageLabel = "invoice"
	LabelInvestmentListing  PageLabel = "investment_listing"
	LabelIncomeStatement    PageLabel = "income_statement"
	LabelExpenseTrend       PageLabel = "expense_trend"
	LabelAccountsReceivable PageLabel = "accounts_receivable"
	LabelBankReconciliation PageLabel = "bank_reconciliation"
	LabelScannedImage       PageLabel = "scanned_image"
	LabelUnknown            PageLabel = "unknown"
)

// AllLabels returns the closed label set in match precedence order.
func AllLabels() []PageLabel {
	return []PageLabel{
		LabelBalanceSheet,
		LabelDisbursements,
		LabelInvoice,
		LabelInvestmentListing,
		LabelIncomeStatement,
		LabelExpenseTrend,
		LabelAccountsReceivable,
		LabelBankReconciliation,
		LabelScannedImage,
		LabelUnknown,
	}
}

// Valid reports whether l is one of the known labels.
func (l PageLabel) Valid() bool {
	for _, known := range AllLabels() {
		if l == known {
			return true
		}
	}
	return false
}

// PageGroup is a maximal run of consecutive pages sharing one label.
type PageGroup struct {
	Type  PageLabel `json:"type"`
	Pages []string  `json:"pages"`
}

// ID returns the stable identifier of the group at position index.
func (g PageGroup) ID(index int) string {
	return fmt.Sprintf("group_%02d_%s", index, g.Type)
}

// Range renders the first and last page ids of the group.
func (g PageGroup) Range() string {
	switch len(g.Pages) {
	case 0:
		return ""
	case 1:
		return g.Pages[0]
	default:
		return g.Pages[0] + "-" + g.Pages[len(g.Pages)-1]
	}
}

// PageID builds the page identifier for a 1-based page number.
func PageID(n int) string {
	return fmt.Sprintf("page_%03d", n)
}

// PageNumber extracts the numeric page index from an id such as "page_007".
// Ids without a trailing number sort last.
func PageNumber(id string) int {
	idx := strings.LastIndexAny(id, "_-")
	if idx < 0 {
		return int(^uint(0) >> 1)
	}
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

// SortPageIDs orders page ids by page number, breaking ties by id.
func SortPageIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		ni, nj := PageNumber(ids[i]), PageNumber(ids[j])
		if ni != nj {
			return ni < nj
		}
		return ids[i] < ids[j]
	})
}
