package ocr

import (
	"context"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hoa-financials/internal/command"
)

const defaultDPI = 200

// Renderer converts single-page PDFs to PNG with pdftoppm.
type Renderer struct {
	binPath string
	dpi     int
	runner  command.Runner
}

// NewRenderer creates a Renderer. Empty binPath selects "pdftoppm"; a
// non-positive dpi selects 200.
func NewRenderer(binPath string, dpi int, runner command.Runner) *Renderer {
	if binPath == "" {
		binPath = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = defaultDPI
	}
	return &Renderer{binPath: binPath, dpi: dpi, runner: runner}
}

// Render writes <outPrefix>.png from the first page of pdfPath and returns
// its path. An existing image is reused.
func (r *Renderer) Render(ctx context.Context, pdfPath, outPrefix string) (string, error) {
	out := outPrefix + ".png"
	if _, err := os.Stat(out); err == nil {
		return out, nil
	}

	_, stderr, err := r.runner.Run(ctx, nil, r.binPath,
		"-png", "-r", strconv.Itoa(r.dpi), "-singlefile", pdfPath, outPrefix)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: pdftoppm failed for %s: %s", pdfPath, command.Truncate(string(stderr), 512))
	}
	if _, err := os.Stat(out); err != nil {
		return "", eris.Wrapf(err, "ocr: pdftoppm produced no image for %s", pdfPath)
	}
	return out, nil
}
