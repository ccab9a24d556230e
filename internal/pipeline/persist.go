package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hoa-financials/internal/model"
)

// Checkpoint data keys.
const (
	keyMarkdownFiles = "markdown_files"
	keyPageTypes     = "page_types"
	keyPageGroups    = "page_groups"
	keyDisbursements = "disbursement_data"
	keyOCRRaw        = "ocr_raw_results"
)

func parsedKey(groupID string) string { return "parsed_" + groupID }
func ocrKey(pageID string) string     { return "ocr_" + pageID }

// saveCollections writes every collection to the checkpoint and an
// inspection copy under parsed/.
func (p *Pipeline) saveCollections(ctx context.Context) error {
	p.data.Init()
	for _, c := range p.data.Named() {
		if err := p.store.SetData(ctx, c.Key, c.Value); err != nil {
			return err
		}
		if err := writeJSON(filepath.Join(p.layout.ParsedDir(), c.File+".json"), c.Value); err != nil {
			return err
		}
	}
	p.log.Debug("pipeline: collections saved", zap.Int("records", p.data.Total()))
	return nil
}

// loadCollections replaces the in-memory collections with the checkpointed
// ones.
func (p *Pipeline) loadCollections() error {
	var c model.Collections
	for _, col := range c.Named() {
		if _, err := p.store.GetData(col.Key, col.Value); err != nil {
			return err
		}
	}
	p.data = c
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "pipeline: mkdir for %s", path)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "pipeline: encode %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "pipeline: write %s", path)
	}
	return nil
}
