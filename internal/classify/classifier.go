package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hoa-financials/internal/model"
	"github.com/sells-group/hoa-financials/internal/oracle"
)

// Classifier assigns a PageLabel to every page sample using the oracle.
type Classifier struct {
	Oracle      oracle.Oracle
	BatchSize   int
	PromptChars int
}

// New returns a Classifier with the default batch size and prompt sample
// length.
func New(o oracle.Oracle) *Classifier {
	return &Classifier{Oracle: o, BatchSize: 20, PromptChars: 600}
}

// Classify labels every page in samples. A batch whose response cannot be
// decoded labels all of its pages unknown without affecting other batches.
// Oracle errors, including rate/quota exhaustion, abort classification.
func (c *Classifier) Classify(ctx context.Context, samples map[string]string) (map[string]model.PageLabel, error) {
	ids := make([]string, 0, len(samples))
	for id := range samples {
		ids = append(ids, id)
	}
	model.SortPageIDs(ids)

	size := c.BatchSize
	if size <= 0 {
		size = 20
	}

	labels := make(map[string]model.PageLabel, len(ids))
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batch := ids[start:end]

		zap.L().Info("classify: batch",
			zap.String("first", batch[0]),
			zap.String("last", batch[len(batch)-1]),
			zap.Int("pages", len(batch)),
		)

		resp, err := c.Oracle.Complete(ctx, c.prompt(batch, samples))
		if err != nil {
			return nil, eris.Wrapf(err, "classify: batch starting at %s", batch[0])
		}

		var raw map[string]any
		if err := oracle.DecodeJSON(resp, &raw); err != nil {
			zap.L().Warn("classify: malformed batch response",
				zap.String("first", batch[0]),
				zap.Error(err),
			)
			markUnknown(labels, batch)
			continue
		}

		for _, id := range batch {
			v, ok := raw[id].(string)
			if !ok {
				labels[id] = model.LabelUnknown
				continue
			}
			labels[id] = MatchLabel(v)
		}
	}
	return labels, nil
}

func markUnknown(labels map[string]model.PageLabel, batch []string) {
	for _, id := range batch {
		labels[id] = model.LabelUnknown
	}
}

// MatchLabel normalizes a free-form oracle answer to a label. An exact label
// wins; otherwise the answer must contain exactly one distinct label.
func MatchLabel(raw string) model.PageLabel {
	v := strings.ToLower(strings.TrimSpace(raw))
	if l := model.PageLabel(v); l.Valid() {
		return l
	}
	var found []model.PageLabel
	for _, l := range model.AllLabels() {
		if strings.Contains(v, string(l)) {
			found = append(found, l)
		}
	}
	if len(found) == 1 {
		return found[0]
	}
	return model.LabelUnknown
}

const classifyPrompt = `Classify each page by its financial report type.

Possible types:
- balance_sheet: Assets, liabilities, equity, account balances
- disbursements: Check disbursements, payments, vendor transactions
- invoice: Vendor invoice or bill
- investment_listing: Bank accounts, investment balances, rates
- income_statement: Income Statement Report - revenue/expenses with current period vs YTD vs budget columns
- expense_trend: Income and Expense Trend Report - monthly breakdown (Jan-Dec columns) with budget comparison
- accounts_receivable: Member assessments owed, AR aging
- bank_reconciliation: Bank reconciliation with outstanding checks/deposits, GL balance
- scanned_image: Page appears to be a scanned image (minimal text)
- unknown: Cannot determine

IMPORTANT: Distinguish between income_statement (shows "Current Actual", "YTD Actual", "YTD Budget") and expense_trend (shows monthly columns like "Jan", "Feb", "Mar"... "Nov", "Full Year Actual", "Total Budget").

PAGES TO CLASSIFY:
%s

Return a JSON object mapping each page ID to its type. Example:
{"page_001": "balance_sheet", "page_002": "balance_sheet", "page_003": "disbursements"}

Return ONLY valid JSON, nothing else.`

func (c *Classifier) prompt(batch []string, samples map[string]string) string {
	n := c.PromptChars
	if n <= 0 {
		n = 600
	}
	var b strings.Builder
	for _, id := range batch {
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", id, truncateRunes(samples[id], n))
	}
	return fmt.Sprintf(classifyPrompt, b.String())
}

// Counts tallies pages per label, for logging.
func Counts(labels map[string]model.PageLabel) map[model.PageLabel]int {
	out := make(map[model.PageLabel]int)
	for _, l := range labels {
		out[l]++
	}
	return out
}
