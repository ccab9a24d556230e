// Package extract turns the text of a page group into typed records. Every
// extractor tries the oracle first when one is configured and falls back to
// deterministic line rules when the oracle output is unusable.
package extract

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/hoa-financials/internal/model"
	"github.com/sells-group/hoa-financials/internal/oracle"
	"github.com/sells-group/hoa-financials/internal/resilience"
)

// Extractor parses the combined text of a page group.
type Extractor interface {
	Parse(ctx context.Context, text string) ([]model.Record, error)
}

// strategy describes how one report type is parsed. decode, when set,
// replaces plain unmarshaling of validated oracle output; fix runs on the
// records of either path.
type strategy[T any] struct {
	kind    model.Kind
	schema  string
	example string
	rules   func(text string) []T
	decode  func(raw json.RawMessage) ([]T, error)
	fix     func([]T) []T
}

// parse runs the oracle strategy, validating its output, and falls back to
// the line rules. Rate/quota exhaustion and cancellation are returned.
func (s strategy[T]) parse(ctx context.Context, o oracle.Oracle, text string) ([]T, error) {
	if o == nil {
		return s.ruleParse(text), nil
	}

	out, err := s.oracleParse(ctx, o, text)
	if err == nil {
		zap.L().Info("extract: parsed with oracle",
			zap.String("kind", string(s.kind)),
			zap.Int("records", len(out)),
		)
		return out, nil
	}
	if resilience.IsTokenLimit(err) || ctx.Err() != nil {
		return nil, err
	}

	zap.L().Warn("extract: oracle parse failed, using line rules",
		zap.String("kind", string(s.kind)),
		zap.Error(err),
	)
	return s.ruleParse(text), nil
}

func (s strategy[T]) oracleParse(ctx context.Context, o oracle.Oracle, text string) ([]T, error) {
	raw, err := oracle.ParseTextToJSON(ctx, o, text, s.schema, s.example)
	if err != nil {
		return nil, err
	}
	if err := validate(s.kind, raw); err != nil {
		return nil, err
	}
	var out []T
	if s.decode != nil {
		out, err = s.decode(raw)
	} else {
		err = json.Unmarshal(raw, &out)
	}
	if err != nil {
		return nil, err
	}
	if s.fix != nil {
		out = s.fix(out)
	}
	return out, nil
}

func (s strategy[T]) ruleParse(text string) []T {
	out := s.rules(text)
	if s.fix != nil {
		out = s.fix(out)
	}
	zap.L().Info("extract: parsed with line rules",
		zap.String("kind", string(s.kind)),
		zap.Int("records", len(out)),
	)
	return out
}

func toRecords[T model.Record](in []T) []model.Record {
	out := make([]model.Record, len(in))
	for i, r := range in {
		out[i] = r
	}
	return out
}

// lines splits text into lines, dropping carriage returns.
func lines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

// isNoise reports report chrome (print footers, page counters).
func isNoise(line string) bool {
	return strings.TrimSpace(line) == "" ||
		strings.Contains(line, "Printed by") ||
		strings.Contains(line, "Page ")
}

// Set holds one extractor per report type.
type Set struct {
	BalanceSheet       *BalanceSheet
	Investments        *Investments
	Disbursements      *Disbursements
	Invoices           *Invoices
	BankReconciliation *BankReconciliation
	AccountsReceivable *AccountsReceivable
	IncomeStatement    *IncomeStatement
	ExpenseTrend       *ExpenseTrend
}

// NewSet builds every extractor around o. A nil oracle selects the line
// rules only.
func NewSet(o oracle.Oracle) *Set {
	bs := &BalanceSheet{Oracle: o}
	return &Set{
		BalanceSheet:       bs,
		Investments:        &Investments{BalanceSheet: bs},
		Disbursements:      &Disbursements{Oracle: o},
		Invoices:           &Invoices{Oracle: o},
		BankReconciliation: &BankReconciliation{Oracle: o},
		AccountsReceivable: &AccountsReceivable{Oracle: o},
		IncomeStatement:    &IncomeStatement{Oracle: o},
		ExpenseTrend:       &ExpenseTrend{Oracle: o},
	}
}

// For returns the extractor handling label, or false for labels that are not
// parsed from text (scanned_image, unknown).
func (s *Set) For(label model.PageLabel) (Extractor, bool) {
	switch label {
	case model.LabelBalanceSheet:
		return s.BalanceSheet, true
	case model.LabelInvestmentListing:
		return s.Investments, true
	case model.LabelDisbursements:
		return s.Disbursements, true
	case model.LabelInvoice:
		return s.Invoices, true
	case model.LabelBankReconciliation:
		return s.BankReconciliation, true
	case model.LabelAccountsReceivable:
		return s.AccountsReceivable, true
	case model.LabelIncomeStatement:
		return s.IncomeStatement, true
	case model.LabelExpenseTrend:
		return s.ExpenseTrend, true
	}
	return nil, false
}
