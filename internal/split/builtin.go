package split

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/hoa-financials/internal/ocr"
)

const defaultTextWorkers = 4

var splitPageSuffix = regexp.MustCompile(`_(\d+)\.pdf$`)

// Builtin splits in process with pdfcpu and extracts page text with a
// bounded pool of pdftotext workers.
type Builtin struct {
	text    ocr.TextExtractor
	workers int

	// splitFile writes one PDF per page of in into outDir.
	splitFile func(in, outDir string) error
}

// NewBuiltin creates a Builtin splitter. A non-positive workers selects 4.
func NewBuiltin(text ocr.TextExtractor, workers int) *Builtin {
	if workers <= 0 {
		workers = defaultTextWorkers
	}
	return &Builtin{text: text, workers: workers, splitFile: pdfcpuSplit}
}

func pdfcpuSplit(in, outDir string) error {
	return api.SplitFile(in, outDir, 1, model.NewDefaultConfiguration())
}

func (b *Builtin) Split(ctx context.Context, pdfPath string, maxPages int) error {
	l := NewLayout(pdfPath)
	if err := l.Ensure(); err != nil {
		return err
	}

	tmp, err := os.MkdirTemp(l.Root, ".split-*")
	if err != nil {
		return eris.Wrap(err, "split: temp dir")
	}
	defer os.RemoveAll(tmp) //nolint:errcheck

	if err := b.splitFile(pdfPath, tmp); err != nil {
		return eris.Wrapf(err, "split: pdfcpu split %s", pdfPath)
	}
	pages, err := collectPages(tmp, l)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return eris.Errorf("split: %s produced no pages", pdfPath)
	}

	texts, err := b.extractTexts(ctx, l, pages)
	if err != nil {
		return err
	}

	chunks, err := writeChunks(l, pages, texts, maxPages)
	if err != nil {
		return err
	}
	zap.L().Info("split: builtin complete",
		zap.String("pdf", pdfPath),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", chunks),
	)
	return nil
}

// collectPages moves the per-page PDFs written to tmp into the layout as
// page-NNN.pdf and returns the page numbers in order.
func collectPages(tmp string, l Layout) ([]int, error) {
	entries, err := os.ReadDir(tmp)
	if err != nil {
		return nil, eris.Wrap(err, "split: read split output")
	}
	var pages []int
	for _, e := range entries {
		m := splitPageSuffix.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if err := os.Rename(filepath.Join(tmp, e.Name()), l.PagePDF(n)); err != nil {
			return nil, eris.Wrapf(err, "split: move page %d", n)
		}
		pages = append(pages, n)
	}
	sort.Ints(pages)
	return pages, nil
}

func (b *Builtin) extractTexts(ctx context.Context, l Layout, pages []int) ([]string, error) {
	texts := make([]string, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, n := range pages {
		g.Go(func() error {
			text, err := b.text.ExtractText(gctx, l.PagePDF(n))
			if err != nil {
				return eris.Wrapf(err, "split: text for page %d", n)
			}
			if err := os.WriteFile(l.PageText(n), []byte(text), 0o644); err != nil {
				return eris.Wrapf(err, "split: write text for page %d", n)
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}

// writeChunks writes one Markdown file per maxPages pages and returns the
// number written.
func writeChunks(l Layout, pages []int, texts []string, maxPages int) (int, error) {
	if maxPages <= 0 {
		maxPages = len(pages)
	}
	count := 0
	for start := 0; start < len(pages); start += maxPages {
		end := min(start+maxPages, len(pages))
		first, last := pages[start], pages[end-1]

		var b strings.Builder
		fmt.Fprintf(&b, "# %s (pages %d-%d)\n\n", l.Stem, first, last)
		for i := start; i < end; i++ {
			fmt.Fprintf(&b, "## Page %d\n\n```\n%s\n```\n\n", pages[i], strings.TrimRight(texts[i], "\n"))
		}

		name := filepath.Join(l.MarkdownDir(), fmt.Sprintf("%s-pages-%03d-%03d.md", l.Stem, first, last))
		if err := os.WriteFile(name, []byte(b.String()), 0o644); err != nil {
			return count, eris.Wrapf(err, "split: write %s", name)
		}
		count++
	}
	return count, nil
}
