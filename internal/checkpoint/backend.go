package checkpoint

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Backend when no state exists for a job.
var ErrNotFound = errors.New("checkpoint: not found")

// Backend persists serialized job state.
type Backend interface {
	Load(ctx context.Context, jobID string) ([]byte, error)
	Save(ctx context.Context, jobID string, data []byte) error
	Delete(ctx context.Context, jobID string) error
}
