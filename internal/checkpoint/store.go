// Package checkpoint persists resumable job state: step progress, per-unit
// idempotency keys and intermediate data.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Store is the checkpoint for a single job. Every mutation is persisted
// through the Backend before returning.
type Store struct {
	mu      sync.Mutex
	backend Backend
	jobID   string
	state   *State
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open loads the state for jobID from backend, or initializes a fresh one.
func Open(ctx context.Context, backend Backend, jobID string, opts ...Option) (*Store, error) {
	if jobID == "" {
		return nil, eris.New("checkpoint: job id is required")
	}
	s := &Store{backend: backend, jobID: jobID, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	data, err := backend.Load(ctx, jobID)
	switch {
	case errors.Is(err, ErrNotFound):
		s.state = newState(jobID, s.now())
		return s, nil
	case err != nil:
		return nil, err
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, eris.Wrapf(err, "checkpoint: decode state for %s", jobID)
	}
	if st.Data == nil {
		st.Data = map[string]json.RawMessage{}
	}
	s.state = &st
	return s, nil
}

// JobID returns the job this store tracks.
func (s *Store) JobID() string { return s.jobID }

// Status returns the current job status.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Status
}

// CurrentStep returns the step in progress, or "" when none.
func (s *Store) CurrentStep() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentStep
}

func (s *Store) save(ctx context.Context) error {
	s.state.UpdatedAt = s.now()
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return eris.Wrap(err, "checkpoint: encode state")
	}
	return s.backend.Save(ctx, s.jobID, data)
}

func (s *Store) setLocked(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return eris.Wrapf(err, "checkpoint: encode %s", key)
	}
	s.state.Data[key] = raw
	return nil
}

// StartStep marks name as the current step.
func (s *Store) StartStep(ctx context.Context, name string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.CurrentStep = name
	s.state.Status = StatusProcessing
	if metadata != nil {
		if err := s.setLocked(name+"_metadata", metadata); err != nil {
			return err
		}
	}
	return s.save(ctx)
}

// CompleteStep records name as completed and stores result when non-nil.
func (s *Store) CompleteStep(ctx context.Context, name string, result any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.completedLocked(name) {
		s.state.CompletedSteps = append(s.state.CompletedSteps, name)
	}
	s.state.CurrentStep = ""
	if result != nil {
		if err := s.setLocked(name+"_result", result); err != nil {
			return err
		}
	}
	return s.save(ctx)
}

// FailStep records a failure of name and moves the job to failed.
func (s *Store) FailStep(ctx context.Context, name, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.FailedSteps = append(s.state.FailedSteps, Failure{
		Step:      name,
		Error:     msg,
		Timestamp: s.now(),
	})
	s.state.Errors = append(s.state.Errors, msg)
	s.state.Status = StatusFailed
	return s.save(ctx)
}

func (s *Store) completedLocked(name string) bool {
	for _, step := range s.state.CompletedSteps {
		if step == name {
			return true
		}
	}
	return false
}

// IsStepCompleted reports whether name has completed.
func (s *Store) IsStepCompleted(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedLocked(name)
}

// StepResult decodes the stored result of name into out.
func (s *Store) StepResult(name string, out any) (bool, error) {
	return s.GetData(name+"_result", out)
}

// SetData stores value under key and persists immediately.
func (s *Store) SetData(ctx context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setLocked(key, value); err != nil {
		return err
	}
	return s.save(ctx)
}

// GetData decodes the value under key into out. It reports false when the
// key is absent.
func (s *Store) GetData(key string, out any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.state.Data[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, eris.Wrapf(err, "checkpoint: decode %s", key)
	}
	return true, nil
}

// HasData reports whether key holds a truthy value. Idempotency keys are
// stored as true.
func (s *Store) HasData(key string) bool {
	s.mu.Lock()
	raw, ok := s.state.Data[key]
	s.mu.Unlock()
	if !ok {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// CanResume reports whether the job was interrupted and may continue.
func (s *Store) CanResume() bool {
	return s.Status().Resumable()
}

// Clear deletes the persisted state and starts over.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(ctx, s.jobID); err != nil {
		return err
	}
	s.state = newState(s.jobID, s.now())
	zap.L().Debug("checkpoint: cleared", zap.String("job_id", s.jobID))
	return nil
}

// MarkComplete moves the job to completed.
func (s *Store) MarkComplete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.state.Status = StatusCompleted
	s.state.CompletedAt = &now
	return s.save(ctx)
}

// MarkTokenLimit moves the job to token_limit so a later run can resume.
func (s *Store) MarkTokenLimit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.state.Status = StatusTokenLimit
	s.state.TokenLimitAt = &now
	return s.save(ctx)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Summary renders a short human-readable description of the job.
func (s *Store) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	completed := strings.Join(st.CompletedSteps, ", ")
	if completed == "" {
		completed = "none"
	}
	current := st.CurrentStep
	if current == "" {
		current = "none"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Job: %s\n", st.JobID)
	fmt.Fprintf(&b, "Status: %s\n", st.Status)
	fmt.Fprintf(&b, "Created: %s\n", st.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Updated: %s\n", st.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Completed steps: %s\n", completed)
	fmt.Fprintf(&b, "Current step: %s", current)
	if len(st.Errors) > 0 {
		fmt.Fprintf(&b, "\nErrors: %d", len(st.Errors))
	}
	return b.String()
}
