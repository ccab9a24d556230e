// Package split breaks a report package PDF into per-page files and lays
// out the working directory every later step reads from.
package split

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Layout is the working directory tree of one job, <dir>/<stem>-split.
type Layout struct {
	Root string
	Stem string
}

// NewLayout derives the layout for pdfPath.
func NewLayout(pdfPath string) Layout {
	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	return Layout{
		Root: filepath.Join(filepath.Dir(pdfPath), stem+"-split"),
		Stem: stem,
	}
}

func (l Layout) MarkdownDir() string  { return filepath.Join(l.Root, "markdown") }
func (l Layout) TextDir() string      { return filepath.Join(l.Root, "text") }
func (l Layout) PagesDir() string     { return filepath.Join(l.Root, "pages") }
func (l Layout) OCRImagesDir() string { return filepath.Join(l.Root, "images", "ocr") }
func (l Layout) DetectedDir() string  { return filepath.Join(l.Root, "detected") }
func (l Layout) ParsedDir() string    { return filepath.Join(l.Root, "parsed") }
func (l Layout) PerGroupDir() string  { return filepath.Join(l.Root, "parsed", "per_group") }

// PagePDF is the single-page PDF of page n.
func (l Layout) PagePDF(n int) string {
	return filepath.Join(l.PagesDir(), fmt.Sprintf("page-%03d.pdf", n))
}

// PageText is the extracted text of page n.
func (l Layout) PageText(n int) string {
	return filepath.Join(l.TextDir(), fmt.Sprintf("page-%03d.txt", n))
}

// OCRImagePrefix is the pdftoppm output prefix for page n.
func (l Layout) OCRImagePrefix(n int) string {
	return filepath.Join(l.OCRImagesDir(), fmt.Sprintf("page-%03d", n))
}

// Ensure creates every directory of the layout.
func (l Layout) Ensure() error {
	for _, dir := range []string{
		l.MarkdownDir(), l.TextDir(), l.PagesDir(), l.OCRImagesDir(),
		l.DetectedDir(), l.PerGroupDir(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "split: mkdir %s", dir)
		}
	}
	return nil
}

// MarkdownFiles lists the chunk files, sorted.
func (l Layout) MarkdownFiles() ([]string, error) {
	return sortedGlob(filepath.Join(l.MarkdownDir(), "*.md"))
}

// TextFiles lists the per-page text files, sorted.
func (l Layout) TextFiles() ([]string, error) {
	return sortedGlob(filepath.Join(l.TextDir(), "page-*.txt"))
}

func sortedGlob(pattern string) ([]string, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, eris.Wrapf(err, "split: glob %s", pattern)
	}
	sort.Strings(files)
	return files, nil
}
