package ocr

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/hoa-financials/internal/command"
)

// Tesseract recognizes text in images with the tesseract CLI.
type Tesseract struct {
	binPath  string
	language string
	timeout  time.Duration
	runner   command.Runner
}

// NewTesseract creates a Tesseract. Empty binPath and language select
// "tesseract" and "eng".
func NewTesseract(binPath, language string, timeout time.Duration, runner command.Runner) *Tesseract {
	if binPath == "" {
		binPath = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &Tesseract{binPath: binPath, language: language, timeout: timeout, runner: runner}
}

// Recognize returns the trimmed text of imagePath. Failures and timeouts are
// logged and yield "".
func (t *Tesseract) Recognize(ctx context.Context, imagePath string) string {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	stdout, stderr, err := t.runner.Run(ctx, nil, t.binPath, imagePath, "stdout", "-l", t.language)
	if err != nil {
		zap.L().Warn("ocr: tesseract failed",
			zap.String("image", imagePath),
			zap.String("stderr", command.Truncate(string(stderr), 512)),
			zap.Error(err),
		)
		return ""
	}
	return strings.TrimSpace(string(stdout))
}
