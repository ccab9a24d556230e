// Package classify labels pages by report type and groups consecutive pages
// sharing a label.
package classify

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hoa-financials/internal/model"
)

// PageIDFromFile derives the page id from a per-page file name, e.g.
// "text/page-007.txt" becomes "page_007".
func PageIDFromFile(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(stem, "-", "_")
}

// PageFileStem is the inverse of PageIDFromFile without extension.
func PageFileStem(pageID string) string {
	return strings.ReplaceAll(pageID, "_", "-")
}

// TextFiles lists the per-page text files in textDir ordered by page number.
func TextFiles(textDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(textDir, "page-*.txt"))
	if err != nil {
		return nil, eris.Wrap(err, "classify: glob text files")
	}
	ids := make([]string, len(files))
	byID := make(map[string]string, len(files))
	for i, f := range files {
		ids[i] = PageIDFromFile(f)
		byID[ids[i]] = f
	}
	model.SortPageIDs(ids)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = byID[id]
	}
	return out, nil
}

// LoadSamples reads the first maxChars characters of every page text file.
func LoadSamples(textDir string, maxChars int) (map[string]string, error) {
	files, err := TextFiles(textDir)
	if err != nil {
		return nil, err
	}
	samples := make(map[string]string, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, eris.Wrapf(err, "classify: read %s", f)
		}
		samples[PageIDFromFile(f)] = truncateRunes(string(data), maxChars)
	}
	return samples, nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
