package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hoa-financials/internal/classify"
	"github.com/sells-group/hoa-financials/internal/extract"
	"github.com/sells-group/hoa-financials/internal/model"
	"github.com/sells-group/hoa-financials/internal/resilience"
)

const (
	ocrRawPreview         = 500
	invoiceMatchTolerance = 0.01
)

func (p *Pipeline) split(ctx context.Context) error {
	if err := p.start(ctx, StepSplit); err != nil {
		return err
	}
	if p.deps.Splitter == nil {
		return eris.New("pipeline: no splitter configured")
	}
	if err := p.deps.Splitter.Split(ctx, p.pdfPath, p.cfg.Split.MaxPages); err != nil {
		return err
	}

	texts, err := p.layout.TextFiles()
	if err != nil {
		return err
	}
	if len(texts) == 0 {
		return eris.Errorf("pipeline: split produced no page text in %s", p.layout.TextDir())
	}
	md, err := p.layout.MarkdownFiles()
	if err != nil {
		return err
	}
	if md == nil {
		md = []string{}
	}
	if err := p.store.SetData(ctx, keyMarkdownFiles, md); err != nil {
		return err
	}

	p.log.Info("pipeline: split complete", zap.Int("chunks", len(md)), zap.Int("pages", len(texts)))
	return p.store.CompleteStep(ctx, StepSplit, map[string]int{"chunks": len(md), "pages": len(texts)})
}

func (p *Pipeline) detect(ctx context.Context) error {
	if err := p.start(ctx, StepDetect); err != nil {
		return err
	}
	if _, err := os.Stat(p.layout.TextDir()); err != nil {
		return eris.Wrapf(err, "pipeline: text directory %s missing, re-run split", p.layout.TextDir())
	}

	if p.deps.Classifier == nil {
		return eris.New("pipeline: no page classifier configured")
	}
	samples, err := classify.LoadSamples(p.layout.TextDir(), p.cfg.Classify.SampleChars)
	if err != nil {
		return err
	}
	p.log.Info("pipeline: classifying pages", zap.Int("pages", len(samples)))

	labels, err := p.deps.Classifier.Classify(ctx, samples)
	if err != nil {
		return err
	}
	for label, n := range classify.Counts(labels) {
		p.log.Info("pipeline: page type", zap.String("type", string(label)), zap.Int("pages", n))
	}
	groups := classify.BuildGroups(labels)
	if groups == nil {
		groups = []model.PageGroup{}
	}
	for i, g := range groups {
		p.log.Info("pipeline: detected group",
			zap.String("group_id", g.ID(i)),
			zap.String("pages", g.Range()),
			zap.Int("count", len(g.Pages)),
		)
	}

	if err := p.store.SetData(ctx, keyPageTypes, labels); err != nil {
		return err
	}
	if err := p.store.SetData(ctx, keyPageGroups, groups); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(p.layout.DetectedDir(), "page_types.json"), labels); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(p.layout.DetectedDir(), "page_groups.json"), groups); err != nil {
		return err
	}
	return p.store.CompleteStep(ctx, StepDetect, map[string]int{"groups": len(groups)})
}

func (p *Pipeline) pageGroups() ([]model.PageGroup, error) {
	var groups []model.PageGroup
	if _, err := p.store.GetData(keyPageGroups, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// groupDump is the per-group inspection file under parsed/per_group/.
type groupDump struct {
	GroupID      string          `json:"group_id"`
	DetectedType model.PageLabel `json:"detected_type"`
	RecordCount  int             `json:"record_count"`
	Summary      any             `json:"summary,omitempty"`
	Records      any             `json:"records"`
}

func (p *Pipeline) parse(ctx context.Context) error {
	if err := p.start(ctx, StepParse); err != nil {
		return err
	}
	groups, err := p.pageGroups()
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return eris.New("pipeline: no page groups found, re-run detection")
	}
	// Records of groups parsed by an earlier attempt.
	if err := p.loadCollections(); err != nil {
		return err
	}

	for i, g := range groups {
		id := g.ID(i)
		if p.store.HasData(parsedKey(id)) {
			p.log.Info("pipeline: group already parsed", zap.String("group_id", id))
			continue
		}
		p.log.Info("pipeline: parsing group",
			zap.String("group_id", id),
			zap.String("pages", g.Range()),
			zap.Int("count", len(g.Pages)),
		)

		if err := p.parseGroup(ctx, id, g); err != nil {
			if sErr := p.saveCollections(context.WithoutCancel(ctx)); sErr != nil {
				p.log.Error("pipeline: save collections", zap.Error(sErr))
			}
			return eris.Wrapf(err, "pipeline: parse %s", id)
		}
	}

	if err := p.saveCollections(ctx); err != nil {
		return err
	}
	return p.store.CompleteStep(ctx, StepParse, map[string]int{"records": p.data.Total()})
}

func (p *Pipeline) parseGroup(ctx context.Context, id string, g model.PageGroup) error {
	dump := groupDump{GroupID: id, DetectedType: g.Type}

	switch g.Type {
	case model.LabelScannedImage:
		pending := make([]model.OCRPending, len(g.Pages))
		for i, page := range g.Pages {
			pending[i] = model.OCRPending{PageID: page, NeedsOCR: true}
		}
		p.log.Info("pipeline: scanned pages deferred to ocr", zap.String("group_id", id))
		dump.Records, dump.RecordCount = pending, len(pending)
	default:
		ex, ok := p.deps.Extractors.For(g.Type)
		if !ok {
			p.log.Warn("pipeline: unknown group type, skipping", zap.String("group_id", id))
			dump.Records = []model.Record{}
			break
		}
		text := classify.CombineText(p.layout.TextDir(), g)
		records, err := ex.Parse(ctx, text)
		if err != nil {
			return err
		}
		if records == nil {
			records = []model.Record{}
		}
		p.data.Append(records...)
		dump.Records, dump.RecordCount = records, len(records)
		dump.Summary = groupSummary(g.Type, text, records)
	}

	path := filepath.Join(p.layout.PerGroupDir(), id+".json")
	if err := writeJSON(path, dump); err != nil {
		return err
	}
	// Records must be durable before the key marks the group done.
	if err := p.saveCollections(ctx); err != nil {
		return err
	}
	p.log.Info("pipeline: group parsed", zap.String("group_id", id), zap.Int("records", dump.RecordCount))
	return p.store.SetData(ctx, parsedKey(id), true)
}

func (p *Pipeline) ocr(ctx context.Context) error {
	if err := p.start(ctx, StepOCR); err != nil {
		return err
	}
	if err := p.loadCollections(); err != nil {
		return err
	}
	groups, err := p.pageGroups()
	if err != nil {
		return err
	}

	var pages []string
	for _, g := range groups {
		if g.Type == model.LabelScannedImage {
			pages = append(pages, g.Pages...)
		}
	}
	if len(pages) == 0 {
		p.log.Info("pipeline: no scanned pages, skipping ocr")
		return p.store.CompleteStep(ctx, StepOCR, nil)
	}
	if p.deps.Renderer == nil || p.deps.OCR == nil {
		return eris.New("pipeline: scanned pages need a renderer and an ocr engine")
	}
	p.log.Info("pipeline: ocr scanned pages", zap.Int("pages", len(pages)))

	var raw []model.OCRRawResult
	if _, err := p.store.GetData(keyOCRRaw, &raw); err != nil {
		return err
	}
	for _, id := range pages {
		if p.store.HasData(ocrKey(id)) {
			p.log.Debug("pipeline: page already ocr'd", zap.String("page_id", id))
			continue
		}
		n := model.PageNumber(id)
		pdf := p.layout.PagePDF(n)
		if _, err := os.Stat(pdf); err != nil {
			p.log.Warn("pipeline: page pdf not found", zap.String("page_id", id), zap.String("path", pdf))
			continue
		}

		rawResult, err := p.ocrPage(ctx, id, n, pdf)
		if err != nil {
			if resilience.IsTokenLimit(err) || ctx.Err() != nil {
				if sErr := p.saveCollections(context.WithoutCancel(ctx)); sErr != nil {
					p.log.Error("pipeline: save collections", zap.Error(sErr))
				}
				return err
			}
			p.log.Error("pipeline: ocr failed", zap.String("page_id", id), zap.Error(err))
			continue
		}
		if rawResult != nil {
			raw = append(raw, *rawResult)
			if err := p.store.SetData(ctx, keyOCRRaw, raw); err != nil {
				return err
			}
		}
		if err := p.saveCollections(ctx); err != nil {
			return err
		}
		if err := p.store.SetData(ctx, ocrKey(id), true); err != nil {
			return err
		}
	}

	if len(raw) > 0 {
		path := filepath.Join(p.layout.ParsedDir(), "ocr_raw_results.json")
		if err := writeJSON(path, raw); err != nil {
			return err
		}
		p.log.Info("pipeline: saved raw ocr results", zap.Int("count", len(raw)), zap.String("path", path))
	}
	if err := p.saveCollections(ctx); err != nil {
		return err
	}
	p.log.Info("pipeline: ocr complete", zap.Int("invoices", len(p.data.Invoices)))
	return p.store.CompleteStep(ctx, StepOCR, map[string]int{"invoices": len(p.data.Invoices)})
}

// ocrPage renders and reads one scanned page. A page yielding text but no
// invoice fields comes back as a raw result for manual review.
func (p *Pipeline) ocrPage(ctx context.Context, id string, n int, pdf string) (*model.OCRRawResult, error) {
	if err := os.MkdirAll(p.layout.OCRImagesDir(), 0o755); err != nil {
		return nil, eris.Wrap(err, "pipeline: create ocr image dir")
	}
	img, err := p.deps.Renderer.Render(ctx, pdf, p.layout.OCRImagePrefix(n))
	if err != nil {
		return nil, err
	}
	text := p.deps.OCR.Recognize(ctx, img)
	if text == "" {
		p.log.Info("pipeline: no text in scanned page", zap.String("page_id", id))
		return nil, nil
	}

	inv := extract.ExtractInvoiceFields(text)
	inv.SourcePage = n
	inv.SourceImage = img
	inv.OCRText = text
	if inv.HasContent() {
		if d, ok := extract.MatchDisbursement(inv, p.data.Disbursements, invoiceMatchTolerance); ok && inv.Amount != 0 {
			inv.Notes = strings.TrimSpace(inv.Notes + " Paid by check " + d.CheckNumber)
		}
		p.data.Invoices = append(p.data.Invoices, inv)
		p.log.Info("pipeline: invoice from scan",
			zap.String("page_id", id),
			zap.String("vendor", inv.Vendor),
			zap.Float64("amount", inv.Amount),
		)
		return nil, nil
	}

	p.log.Info("pipeline: scanned page has no invoice fields",
		zap.String("page_id", id),
		zap.Int("chars", len(text)),
	)
	preview := []rune(text)
	if len(preview) > ocrRawPreview {
		preview = preview[:ocrRawPreview]
	}
	return &model.OCRRawResult{
		PageID:    id,
		PageNum:   n,
		OCRText:   string(preview),
		ImagePath: img,
	}, nil
}

func (p *Pipeline) categorize(ctx context.Context) error {
	if err := p.start(ctx, StepCategorize); err != nil {
		return err
	}
	if err := p.loadCollections(); err != nil {
		return err
	}

	done := 0
	for i := range p.data.Disbursements {
		d := &p.data.Disbursements[i]
		if d.Category != "" {
			continue
		}
		key := fmt.Sprintf("cat_disb_%d", i)
		if p.store.HasData(key) {
			continue
		}
		if p.deps.Categorizer == nil {
			return eris.New("pipeline: no categorizer configured")
		}

		r, err := p.deps.Categorizer.Categorize(ctx, d.Vendor, d.Amount, d.Description)
		if err != nil {
			if sErr := p.saveCollections(context.WithoutCancel(ctx)); sErr != nil {
				p.log.Error("pipeline: save collections", zap.Error(sErr))
			}
			return err
		}
		d.Category = r.Category
		d.Subcategory = r.Subcategory
		if r.Notes != "" {
			d.Notes = r.Notes
		}

		// The category must be durable before the key marks it done.
		if err := p.store.SetData(ctx, keyDisbursements, p.data.Disbursements); err != nil {
			return err
		}
		if err := p.store.SetData(ctx, key, true); err != nil {
			return err
		}
		done++
	}

	if err := p.saveCollections(ctx); err != nil {
		return err
	}
	p.log.Info("pipeline: categorize complete", zap.Int("categorized", done))
	return p.store.CompleteStep(ctx, StepCategorize, map[string]int{"categorized": done})
}

func (p *Pipeline) excel(ctx context.Context) error {
	if err := p.start(ctx, StepExcel); err != nil {
		return err
	}
	if err := p.loadCollections(); err != nil {
		return err
	}

	summary := p.Summary()
	job := p.store.JobID()
	out := Outputs{
		OutputFile:   filepath.Join(p.cfg.Output.Dir, job+".xlsx"),
		MarkdownFile: filepath.Join(p.cfg.Output.Dir, job+"_SUMMARY.md"),
	}
	if err := p.deps.Exporter.WriteWorkbook(out.OutputFile, summary, p.data); err != nil {
		return err
	}
	if err := p.deps.Exporter.WriteMarkdown(out.MarkdownFile, summary, p.data, p.cfg.Output.MarkdownMaxLines); err != nil {
		return err
	}
	return p.store.CompleteStep(ctx, StepExcel, out)
}

// groupSummary rolls up a parsed group for its inspection dump. Kinds
// without a rollup return nil.
func groupSummary(label model.PageLabel, text string, records []model.Record) any {
	switch label {
	case model.LabelBalanceSheet:
		return extract.ExtractTotals(text)
	case model.LabelDisbursements:
		var entries []model.DisbursementEntry
		for _, r := range records {
			if e, ok := r.(model.DisbursementEntry); ok {
				entries = append(entries, e)
			}
		}
		return map[string][]extract.Total{
			"by_vendor":  extract.SummarizeByVendor(entries),
			"by_account": extract.SummarizeByAccount(entries),
		}
	case model.LabelAccountsReceivable:
		var entries []model.AccountsReceivableEntry
		for _, r := range records {
			if e, ok := r.(model.AccountsReceivableEntry); ok {
				entries = append(entries, e)
			}
		}
		return extract.SummarizeAR(entries)
	case model.LabelIncomeStatement:
		var entries []model.IncomeStatementEntry
		for _, r := range records {
			if e, ok := r.(model.IncomeStatementEntry); ok {
				entries = append(entries, e)
			}
		}
		return extract.SummarizeIncome(entries)
	case model.LabelExpenseTrend:
		var entries []model.ExpenseTrendEntry
		for _, r := range records {
			if e, ok := r.(model.ExpenseTrendEntry); ok {
				entries = append(entries, e)
			}
		}
		return extract.SummarizeTrend(entries)
	}
	return nil
}
