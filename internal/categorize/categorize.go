// Package categorize assigns HOA expense categories to disbursements.
package categorize

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hoa-financials/internal/oracle"
)

// Unknown is used for both fields when the oracle answer cannot be decoded.
const Unknown = "Unknown"

// Result is the category assigned to one transaction.
type Result struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Notes       string `json:"notes"`
}

// Categorizer asks an oracle to place a transaction in the HOA taxonomy.
type Categorizer struct {
	Oracle oracle.Oracle
}

// New returns a Categorizer backed by o.
func New(o oracle.Oracle) *Categorizer {
	return &Categorizer{Oracle: o}
}

const categorizePrompt = `Categorize this HOA transaction:

Vendor: %s
Amount: $%.2f
Description: %s

Common HOA categories:
- Management (fees, admin)
- Maintenance (repairs, landscaping, pool)
- Utilities (water, electric, trash)
- Insurance
- Legal/Collections
- Capital Improvements
- Reserves

Return JSON:
{"category": "main category", "subcategory": "specific type", "notes": "any relevant notes"}

Return ONLY valid JSON.`

// Prompt renders the categorization prompt for one transaction.
func Prompt(vendor string, amount float64, description string) string {
	return fmt.Sprintf(categorizePrompt, vendor, amount, description)
}

// Categorize returns the category for one transaction. An undecodable or
// empty answer yields Unknown/Unknown with the raw answer in Notes; oracle errors are
// returned.
func (c *Categorizer) Categorize(ctx context.Context, vendor string, amount float64, description string) (Result, error) {
	if c.Oracle == nil {
		return Result{}, eris.New("categorize: no oracle configured")
	}
	resp, err := c.Oracle.Complete(ctx, Prompt(vendor, amount, description))
	if err != nil {
		return Result{}, eris.Wrapf(err, "categorize: %s", vendor)
	}

	var r Result
	if err := oracle.DecodeJSON(resp, &r); err != nil {
		zap.L().Warn("categorize: undecodable answer",
			zap.String("vendor", vendor),
			zap.Error(err),
		)
		return failed(resp), nil
	}
	r.Category = strings.TrimSpace(r.Category)
	r.Subcategory = strings.TrimSpace(r.Subcategory)
	if r.Category == "" {
		zap.L().Warn("categorize: answer has no category", zap.String("vendor", vendor))
		return failed(resp), nil
	}
	return r, nil
}

func failed(resp string) Result {
	return Result{
		Category:    Unknown,
		Subcategory: Unknown,
		Notes:       "Failed to categorize: " + strings.TrimSpace(resp),
	}
}
