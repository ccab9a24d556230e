// Package ocr wraps the poppler and tesseract command line tools used to
// pull text out of page PDFs and scanned page images.
package ocr

import (
	"context"
	"time"

	"github.com/sells-group/hoa-financials/internal/command"
	"github.com/sells-group/hoa-financials/internal/config"
)

// TextExtractor extracts the text layer of a PDF.
type TextExtractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// PageRenderer rasterizes a single-page PDF to a PNG.
type PageRenderer interface {
	Render(ctx context.Context, pdfPath, outPrefix string) (string, error)
}

// ImageOCR recognizes the text in an image.
type ImageOCR interface {
	Recognize(ctx context.Context, imagePath string) string
}

// Tools bundles the collaborators built from one OCR config.
type Tools struct {
	Text     *PdfToText
	Renderer *Renderer
	OCR      *Tesseract
}

// NewTools builds every tool around runner using the configured binaries.
func NewTools(cfg config.OCRConfig, runner command.Runner) *Tools {
	return &Tools{
		Text:     NewPdfToText(cfg.PdfToTextPath, runner),
		Renderer: NewRenderer(cfg.PdfToPPMPath, cfg.DPI, runner),
		OCR:      NewTesseract(cfg.TesseractPath, cfg.Language, cfg.Timeout(), runner),
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
