package extract

import (
	"context"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hoa-financials/internal/model"
	"github.com/sells-group/hoa-financials/internal/normalize"
	"github.com/sells-group/hoa-financials/internal/oracle"
)

var (
	invAnchor = regexp.MustCompile(`(?i)Invoice\s*ID\s*:`)
	invID     = regexp.MustCompile(`(?i)Invoice\s*(?:ID|#|Number)\s*:?\s*(\S+)`)
	invDates  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Invoice\s*Date\s*:?\s*(\d{1,2}/\d{1,2}/\d{4})`),
		regexp.MustCompile(`(?i)Date\s*:?\s*(\d{1,2}/\d{1,2}/\d{4})`),
		regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})`),
	}
	invAmounts = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Total\s*(?:Invoice\s*)?(?:Amt|Amount)\s*:?\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)Invoice\s*Amt\s*:?\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)Amount\s*Due\s*:?\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)Total\s*:?\s*\$?([\d,]+\.?\d*)`),
	}
	invVendors = []*regexp.Regexp{
		regexp.MustCompile(`^([A-Z][A-Za-z\s]+(?:LLC|Inc|Corp|Company|Services)?)\s*$`),
		regexp.MustCompile(`Bill\s*(?:To|From)\s*:?\s*([A-Za-z][A-Za-z\s,]+)`),
	}
	invDescription = regexp.MustCompile(`(?i)Description\s*:?\s*`)
	invDescStops   = []string{"notes", "invoice", "total"}
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

const (
	minInvoiceBlock   = 50
	vendorSearchLines = 20
	maxDescription    = 500
)

// Invoices extracts vendor invoices from report text and scanned images.
type Invoices struct {
	Oracle oracle.Oracle
}

const invoiceSchema = `Extract ALL invoices from this text. Return a JSON array where each invoice has:
{
    "invoice_id": "invoice number/ID",
    "invoice_date": "YYYY-MM-DD",
    "vendor": "vendor/company name",
    "description": "what the invoice is for",
    "amount": numeric total amount,
    "line_items": [
        {"description": "item/service", "amount": numeric}
    ],
    "notes": "any relevant notes or special items"
}

Be thorough - extract every invoice you find in the text.`

const invoiceExample = `[
    {
        "invoice_id": "890931",
        "invoice_date": "2025-10-24",
        "vendor": "Associa OnCall",
        "description": "Gate issue/phone line repair at Park and Pool",
        "amount": 428.68,
        "line_items": [
            {"description": "Service call", "amount": 428.68}
        ],
        "notes": "Recommended upgrade to cellular"
    }
]`

// Entries parses text into invoices.
func (i *Invoices) Entries(ctx context.Context, text string) ([]model.InvoiceEntry, error) {
	s := strategy[model.InvoiceEntry]{
		kind:    model.KindInvoice,
		schema:  invoiceSchema,
		example: invoiceExample,
		rules:   ParseInvoiceRules,
		fix:     fillInvoiceDefaults,
	}
	return s.parse(ctx, i.Oracle, text)
}

func (i *Invoices) Parse(ctx context.Context, text string) ([]model.Record, error) {
	out, err := i.Entries(ctx, text)
	if err != nil {
		return nil, err
	}
	return toRecords(out), nil
}

// ParseImage transcribes a scanned invoice with the oracle and extracts its
// fields.
func (i *Invoices) ParseImage(ctx context.Context, imagePath string, page int) (model.InvoiceEntry, error) {
	if i.Oracle == nil {
		return model.InvoiceEntry{}, eris.New("extract: image invoices require an oracle")
	}
	text, err := i.Oracle.CompleteWithImage(ctx, oracle.OCRPrompt, imagePath)
	if err != nil {
		return model.InvoiceEntry{}, err
	}
	inv := ExtractInvoiceFields(text)
	inv.SourcePage = page
	inv.SourceImage = imagePath
	inv.OCRText = text
	return inv, nil
}

func fillInvoiceDefaults(in []model.InvoiceEntry) []model.InvoiceEntry {
	for n := range in {
		if in[n].OCRConfidence == "" {
			in[n].OCRConfidence = "medium"
		}
		if in[n].LineItems == nil {
			in[n].LineItems = []model.LineItem{}
		}
	}
	return in
}

// splitInvoiceBlocks cuts text in front of every "Invoice ID:" anchor.
func splitInvoiceBlocks(text string) []string {
	locs := invAnchor.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}
	blocks := make([]string, 0, len(locs)+1)
	prev := 0
	for _, loc := range locs {
		blocks = append(blocks, text[prev:loc[0]])
		prev = loc[0]
	}
	return append(blocks, text[prev:])
}

// ParseInvoiceRules parses invoice report text with line rules only.
func ParseInvoiceRules(text string) []model.InvoiceEntry {
	var out []model.InvoiceEntry
	for _, block := range splitInvoiceBlocks(text) {
		if strings.TrimSpace(block) == "" || utf8.RuneCountInString(block) < minInvoiceBlock {
			continue
		}
		inv := ExtractInvoiceFields(block)
		if inv.InvoiceID != "" || inv.Vendor != "" {
			out = append(out, inv)
		}
	}
	return out
}

// ExtractInvoiceFields pulls id, date, amount, vendor and description out of
// one invoice's text. Missing fields stay empty.
func ExtractInvoiceFields(text string) model.InvoiceEntry {
	inv := model.InvoiceEntry{
		LineItems:     []model.LineItem{},
		OCRConfidence: "medium",
	}

	if m := invID.FindStringSubmatch(text); m != nil {
		inv.InvoiceID = strings.TrimSpace(m[1])
	}
	for _, re := range invDates {
		if m := re.FindStringSubmatch(text); m != nil {
			inv.InvoiceDate = normalize.ParseDate(m[1])
			break
		}
	}
	for _, re := range invAmounts {
		if m := re.FindStringSubmatch(text); m != nil {
			inv.Amount = normalize.ParseAmount(m[1])
			break
		}
	}
	inv.Vendor = findVendor(text)
	inv.Description = findDescription(text)
	return inv
}

func findVendor(text string) string {
	ls := strings.Split(text, "\n")
	if len(ls) > vendorSearchLines {
		ls = ls[:vendorSearchLines]
	}
	for _, line := range ls {
		line = strings.TrimSpace(line)
		for _, re := range invVendors {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			v := strings.TrimSpace(m[1])
			if len(v) > 3 && !strings.HasPrefix(strings.ToLower(v), "invoice") {
				return v
			}
		}
	}
	return ""
}

// findDescription returns the text after "Description:" up to the next
// Notes, Invoice or Total keyword, whitespace-collapsed.
func findDescription(text string) string {
	loc := invDescription.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	if rest == "" {
		return ""
	}

	_, first := utf8.DecodeRuneInString(rest)
	end := len(rest)
	lower := strings.ToLower(rest[first:])
	for _, stop := range invDescStops {
		if idx := strings.Index(lower, stop); idx >= 0 && first+idx < end {
			end = first + idx
		}
	}

	desc := whitespaceRun.ReplaceAllString(strings.TrimSpace(rest[:end]), " ")
	if utf8.RuneCountInString(desc) > maxDescription {
		desc = string([]rune(desc)[:maxDescription])
	}
	return desc
}

// MatchDisbursement finds the disbursement paying inv: amounts must agree
// within tolerance, and a vendor name overlap is preferred.
func MatchDisbursement(inv model.InvoiceEntry, disbursements []model.DisbursementEntry, tolerance float64) (model.DisbursementEntry, bool) {
	vendor := strings.ToLower(inv.Vendor)
	var fallback *model.DisbursementEntry
	for n := range disbursements {
		d := disbursements[n]
		if math.Abs(inv.Amount-d.Amount) > tolerance {
			continue
		}
		dv := strings.ToLower(d.Vendor)
		if vendor != "" && dv != "" && (strings.Contains(dv, vendor) || strings.Contains(vendor, dv)) {
			return d, true
		}
		if fallback == nil {
			fallback = &disbursements[n]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return model.DisbursementEntry{}, false
}
