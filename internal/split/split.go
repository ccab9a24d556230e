package split

import (
	"context"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hoa-financials/internal/command"
	"github.com/sells-group/hoa-financials/internal/config"
	"github.com/sells-group/hoa-financials/internal/ocr"
)

// Splitter produces the per-page files of a Layout from a source PDF.
type Splitter interface {
	Split(ctx context.Context, pdfPath string, maxPages int) error
}

// New selects the splitter named by cfg.Mode.
func New(cfg config.SplitConfig, runner command.Runner, text ocr.TextExtractor) (Splitter, error) {
	switch cfg.Mode {
	case "script", "":
		return NewScript(cfg.ScriptPath, runner), nil
	case "builtin":
		return NewBuiltin(text, cfg.TextWorkers), nil
	default:
		return nil, eris.Errorf("split: unknown mode %q", cfg.Mode)
	}
}

// Script delegates splitting to an external shell script invoked as
// <script> <pdf> <max_pages>.
type Script struct {
	path   string
	runner command.Runner
}

// NewScript creates a Script splitter.
func NewScript(path string, runner command.Runner) *Script {
	return &Script{path: path, runner: runner}
}

func (s *Script) Split(ctx context.Context, pdfPath string, maxPages int) error {
	if _, err := os.Stat(s.path); err != nil {
		return eris.Wrapf(err, "split: script not found: %s", s.path)
	}

	zap.L().Info("split: running script",
		zap.String("script", s.path),
		zap.String("pdf", pdfPath),
		zap.Int("max_pages", maxPages),
	)
	_, stderr, err := s.runner.Run(ctx, nil, s.path, pdfPath, strconv.Itoa(maxPages))
	if err != nil {
		return eris.Wrapf(err, "split: script failed: %s", command.Truncate(string(stderr), 2048))
	}
	return nil
}
