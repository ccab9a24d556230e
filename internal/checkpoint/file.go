package checkpoint

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// FileBackend stores one JSON document per job under Dir.
type FileBackend struct {
	Dir string
}

// NewFileBackend creates dir if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "checkpoint: create dir %s", dir)
	}
	return &FileBackend{Dir: dir}, nil
}

// Path returns the checkpoint file for a job.
func (b *FileBackend) Path(jobID string) string {
	return filepath.Join(b.Dir, jobID+".json")
}

func (b *FileBackend) Load(_ context.Context, jobID string) ([]byte, error) {
	data, err := os.ReadFile(b.Path(jobID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "checkpoint: read %s", jobID)
	}
	return data, nil
}

// Save writes to a temp file in the same directory and renames it over the
// previous snapshot.
func (b *FileBackend) Save(_ context.Context, jobID string, data []byte) error {
	tmp, err := os.CreateTemp(b.Dir, jobID+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "checkpoint: create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return eris.Wrap(err, "checkpoint: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return eris.Wrap(err, "checkpoint: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "checkpoint: close temp file")
	}
	if err := os.Rename(tmpName, b.Path(jobID)); err != nil {
		return eris.Wrapf(err, "checkpoint: rename into %s", b.Path(jobID))
	}
	return nil
}

func (b *FileBackend) Delete(_ context.Context, jobID string) error {
	err := os.Remove(b.Path(jobID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return eris.Wrapf(err, "checkpoint: delete %s", jobID)
	}
	return nil
}
