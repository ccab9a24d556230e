package ocr

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hoa-financials/internal/command"
)

// PdfToText extracts text from PDFs using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
	runner  command.Runner
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string, runner command.Runner) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath, runner: runner}
}

// ExtractText runs pdftotext -layout on the given PDF and returns stdout.
func (p *PdfToText) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	return p.ExtractPages(ctx, pdfPath, 0, 0)
}

// ExtractPages is ExtractText restricted to pages first..last (1-based).
// Zero bounds are omitted.
func (p *PdfToText) ExtractPages(ctx context.Context, pdfPath string, first, last int) (string, error) {
	args := []string{"-layout"}
	if first > 0 {
		args = append(args, "-f", strconv.Itoa(first))
	}
	if last > 0 {
		args = append(args, "-l", strconv.Itoa(last))
	}
	args = append(args, pdfPath, "-")

	stdout, stderr, err := p.runner.Run(ctx, nil, p.binPath, args...)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: pdftotext failed for %s: %s", pdfPath, command.Truncate(string(stderr), 512))
	}
	return string(stdout), nil
}
