// Package pipeline runs the resumable split → detect → parse → ocr →
// categorize → excel flow over one report package.
package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hoa-financials/internal/categorize"
	"github.com/sells-group/hoa-financials/internal/checkpoint"
	"github.com/sells-group/hoa-financials/internal/config"
	"github.com/sells-group/hoa-financials/internal/export"
	"github.com/sells-group/hoa-financials/internal/extract"
	"github.com/sells-group/hoa-financials/internal/model"
	"github.com/sells-group/hoa-financials/internal/ocr"
	"github.com/sells-group/hoa-financials/internal/resilience"
	"github.com/sells-group/hoa-financials/internal/split"
)

// Step names in execution order.
const (
	StepSplit      = "split"
	StepDetect     = "detect"
	StepParse      = "parse"
	StepOCR        = "ocr"
	StepCategorize = "categorize"
	StepExcel      = "excel"
)

// Steps lists every step in execution order.
func Steps() []string {
	return []string{StepSplit, StepDetect, StepParse, StepOCR, StepCategorize, StepExcel}
}

// PageClassifier labels page samples by report type.
type PageClassifier interface {
	Classify(ctx context.Context, samples map[string]string) (map[string]model.PageLabel, error)
}

// TransactionCategorizer assigns an expense category to a disbursement.
type TransactionCategorizer interface {
	Categorize(ctx context.Context, vendor string, amount float64, description string) (categorize.Result, error)
}

// Exporter writes the final artifacts.
type Exporter interface {
	WriteWorkbook(path string, summary model.SummaryMetrics, c model.Collections) error
	WriteMarkdown(path string, summary model.SummaryMetrics, c model.Collections, maxLines int) error
}

// FileExporter writes XLSX and Markdown files with the export package.
type FileExporter struct{}

func (FileExporter) WriteWorkbook(path string, summary model.SummaryMetrics, c model.Collections) error {
	return export.WriteWorkbook(path, summary, c)
}

func (FileExporter) WriteMarkdown(path string, summary model.SummaryMetrics, c model.Collections, maxLines int) error {
	return export.WriteMarkdown(path, summary, c, maxLines)
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Splitter    split.Splitter
	Classifier  PageClassifier
	Extractors  *extract.Set
	Renderer    ocr.PageRenderer
	OCR         ocr.ImageOCR
	Categorizer TransactionCategorizer
	Exporter    Exporter
}

// Pipeline processes a single report package, checkpointing after every
// unit of work.
type Pipeline struct {
	cfg     *config.Config
	store   *checkpoint.Store
	deps    Deps
	pdfPath string
	layout  split.Layout
	data    model.Collections
	now     func() time.Time
	attempt string
	log     *zap.Logger
}

// JobID derives the checkpoint job id from the source PDF path.
func JobID(pdfPath string) string {
	base := filepath.Base(pdfPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// New creates a Pipeline for pdfPath. store must be opened for JobID(pdfPath).
func New(cfg *config.Config, store *checkpoint.Store, pdfPath string, deps Deps) *Pipeline {
	if deps.Exporter == nil {
		deps.Exporter = FileExporter{}
	}
	if deps.Extractors == nil {
		deps.Extractors = extract.NewSet(nil)
	}
	return &Pipeline{
		cfg:     cfg,
		store:   store,
		deps:    deps,
		pdfPath: pdfPath,
		layout:  split.NewLayout(pdfPath),
		now:     time.Now,
		log:     zap.L(),
	}
}

// StepResult records the outcome of one step within a run.
type StepResult struct {
	Name     string        `json:"name"`
	Skipped  bool          `json:"skipped"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Outputs are the artifacts written by the excel step.
type Outputs struct {
	OutputFile   string `json:"output_file"`
	MarkdownFile string `json:"markdown_file"`
}

// Result describes one run.
type Result struct {
	JobID     string               `json:"job_id"`
	AttemptID string               `json:"attempt_id"`
	Steps     []StepResult         `json:"steps"`
	Summary   model.SummaryMetrics `json:"summary"`
	Outputs   Outputs              `json:"outputs"`
}

// Run executes every step not yet completed. Without resume the checkpoint
// is cleared first. A rate/quota stop leaves the job in token_limit and
// returns an error wrapping the *resilience.TokenLimitError.
func (p *Pipeline) Run(ctx context.Context, resume bool) (*Result, error) {
	p.attempt = uuid.NewString()
	p.log = zap.L().With(
		zap.String("job_id", p.store.JobID()),
		zap.String("attempt_id", p.attempt),
	)
	p.log.Info("pipeline: starting", zap.String("pdf", p.pdfPath), zap.Bool("resume", resume))

	switch {
	case resume && p.store.CanResume():
		p.log.Info("pipeline: resuming from checkpoint", zap.String("checkpoint", p.store.Summary()))
	case !resume:
		if err := p.store.Clear(ctx); err != nil {
			return nil, eris.Wrap(err, "pipeline: clear checkpoint")
		}
	}

	result := &Result{JobID: p.store.JobID(), AttemptID: p.attempt}
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StepSplit, p.split},
		{StepDetect, p.detect},
		{StepParse, p.parse},
		{StepOCR, p.ocr},
		{StepCategorize, p.categorize},
		{StepExcel, p.excel},
	}

	for _, s := range steps {
		if p.store.IsStepCompleted(s.name) {
			p.log.Info("pipeline: step already complete", zap.String("step", s.name))
			result.Steps = append(result.Steps, StepResult{Name: s.name, Skipped: true})
			continue
		}

		start := time.Now()
		err := s.fn(ctx)
		sr := StepResult{Name: s.name, Duration: time.Since(start)}
		if err != nil {
			sr.Error = err.Error()
			result.Steps = append(result.Steps, sr)
			return result, p.stop(ctx, s.name, err)
		}
		result.Steps = append(result.Steps, sr)
		p.log.Info("pipeline: step complete",
			zap.String("step", s.name),
			zap.Int64("duration_ms", sr.Duration.Milliseconds()),
		)
	}

	if err := p.store.MarkComplete(ctx); err != nil {
		return result, eris.Wrap(err, "pipeline: mark complete")
	}
	if err := p.loadCollections(); err != nil {
		return result, err
	}
	result.Summary = p.Summary()
	if _, err := p.store.StepResult(StepExcel, &result.Outputs); err != nil {
		return result, err
	}
	p.log.Info("pipeline: complete",
		zap.String("output_file", result.Outputs.OutputFile),
		zap.String("markdown_file", result.Outputs.MarkdownFile),
	)
	return result, nil
}

// stop records why step ended the run and returns the error to report.
func (p *Pipeline) stop(ctx context.Context, step string, err error) error {
	// The job state must be written even when ctx is what stopped us.
	ctx = context.WithoutCancel(ctx)

	if resilience.IsTokenLimit(err) {
		p.log.Warn("pipeline: token limit reached, progress saved",
			zap.String("step", step),
			zap.Error(err),
		)
		if mErr := p.store.MarkTokenLimit(ctx); mErr != nil {
			p.log.Error("pipeline: mark token limit", zap.Error(mErr))
		}
		return eris.Wrapf(err, "pipeline: %s stopped at token limit", step)
	}

	p.log.Error("pipeline: step failed", zap.String("step", step), zap.Error(err))
	current := p.store.CurrentStep()
	if current == "" {
		current = step
	}
	if fErr := p.store.FailStep(ctx, current, err.Error()); fErr != nil {
		p.log.Error("pipeline: record failure", zap.Error(fErr))
	}
	return eris.Wrapf(err, "pipeline: step %s", step)
}

// Summary computes SummaryMetrics over the collections loaded so far.
func (p *Pipeline) Summary() model.SummaryMetrics {
	return model.Summarize(filepath.Base(p.pdfPath), p.now(), p.data)
}

// Collections returns the records accumulated so far.
func (p *Pipeline) Collections() model.Collections {
	return p.data
}

func (p *Pipeline) start(ctx context.Context, step string) error {
	p.log.Info("pipeline: step starting", zap.String("step", step))
	return p.store.StartStep(ctx, step, map[string]any{"attempt_id": p.attempt})
}
