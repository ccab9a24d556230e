package classify

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sells-group/hoa-financials/internal/model"
)

// BuildGroups partitions labeled pages into maximal runs of consecutive pages
// (by page number) sharing a label.
func BuildGroups(labels map[string]model.PageLabel) []model.PageGroup {
	if len(labels) == 0 {
		return nil
	}
	ids := make([]string, 0, len(labels))
	for id := range labels {
		ids = append(ids, id)
	}
	model.SortPageIDs(ids)

	var groups []model.PageGroup
	for _, id := range ids {
		l := labels[id]
		if n := len(groups); n > 0 && groups[n-1].Type == l {
			groups[n-1].Pages = append(groups[n-1].Pages, id)
			continue
		}
		groups = append(groups, model.PageGroup{Type: l, Pages: []string{id}})
	}
	return groups
}

// CombineText concatenates the text of every page in g that exists in
// textDir, each preceded by a page marker.
func CombineText(textDir string, g model.PageGroup) string {
	var b strings.Builder
	for _, id := range g.Pages {
		data, err := os.ReadFile(filepath.Join(textDir, PageFileStem(id)+".txt"))
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\n\n--- %s ---\n\n", id)
		b.Write(data)
	}
	return b.String()
}
