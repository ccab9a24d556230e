package checkpoint

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusProcessing  Status = "processing"
	StatusTokenLimit  Status = "token_limit"
	StatusFailed      Status = "failed"
	StatusCompleted   Status = "completed"
)

// Resumable reports whether a job in this status may be picked up again.
func (s Status) Resumable() bool {
	switch s {
	case StatusProcessing, StatusTokenLimit, StatusFailed:
		return true
	}
	return false
}

// Failure records one failed step.
type Failure struct {
	Step      string    `json:"step" yaml:"step"`
	Error     string    `json:"error" yaml:"error"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// State is the persisted snapshot of a job.
type State struct {
	JobID          string                     `json:"job_id" yaml:"job_id"`
	CreatedAt      time.Time                  `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at" yaml:"updated_at"`
	Status         Status                     `json:"status" yaml:"status"`
	CurrentStep    string                     `json:"current_step,omitempty" yaml:"current_step,omitempty"`
	CompletedSteps []string                   `json:"completed_steps" yaml:"completed_steps"`
	FailedSteps    []Failure                  `json:"failed_steps" yaml:"failed_steps"`
	Errors         []string                   `json:"errors" yaml:"errors"`
	Data           map[string]json.RawMessage `json:"data" yaml:"-"`
	CompletedAt    *time.Time                 `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	TokenLimitAt   *time.Time                 `json:"token_limit_at,omitempty" yaml:"token_limit_at,omitempty"`
}

func newState(jobID string, now time.Time) *State {
	return &State{
		JobID:          jobID,
		CreatedAt:      now,
		UpdatedAt:      now,
		Status:         StatusInitialized,
		CompletedSteps: []string{},
		FailedSteps:    []Failure{},
		Errors:         []string{},
		Data:           map[string]json.RawMessage{},
	}
}

// clone returns a deep copy safe to hand to callers.
func (s *State) clone() State {
	out := *s
	out.CompletedSteps = append([]string(nil), s.CompletedSteps...)
	out.FailedSteps = append([]Failure(nil), s.FailedSteps...)
	out.Errors = append([]string(nil), s.Errors...)
	out.Data = make(map[string]json.RawMessage, len(s.Data))
	for k, v := range s.Data {
		out.Data[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
