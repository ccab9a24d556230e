package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	t := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestStore(t *testing.T) (*Store, *FileBackend) {
	t.Helper()
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	s, err := Open(context.Background(), backend, "nov-2025", WithClock(fixedClock()))
	require.NoError(t, err)
	return s, backend
}

func TestOpenFresh(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Equal(t, "nov-2025", s.JobID())
	assert.Equal(t, StatusInitialized, s.Status())
	assert.False(t, s.CanResume())
	assert.Equal(t, "", s.CurrentStep())
}

func TestOpenRequiresJobID(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	_, err = Open(context.Background(), backend, "")
	assert.Error(t, err)
}

func TestStepLifecycle(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.StartStep(ctx, "split", map[string]any{"pdf": "nov.pdf"}))
	assert.Equal(t, StatusProcessing, s.Status())
	assert.Equal(t, "split", s.CurrentStep())
	assert.True(t, s.CanResume())

	var meta map[string]string
	ok, err := s.GetData("split_metadata", &meta)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "nov.pdf", meta["pdf"])

	require.NoError(t, s.CompleteStep(ctx, "split", map[string]int{"chunks": 4}))
	assert.True(t, s.IsStepCompleted("split"))
	assert.Equal(t, "", s.CurrentStep())

	var result map[string]int
	ok, err = s.StepResult("split", &result)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, result["chunks"])

	// Completing twice does not duplicate.
	require.NoError(t, s.CompleteStep(ctx, "split", nil))
	assert.Equal(t, []string{"split"}, s.Snapshot().CompletedSteps)
}

func TestStartStepWithoutMetadata(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.StartStep(ctx, "detect", nil))
	assert.False(t, s.HasData("detect_metadata"))
}

func TestFailStep(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.StartStep(ctx, "parse", nil))
	require.NoError(t, s.FailStep(ctx, "parse", "boom"))

	snap := s.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	require.Len(t, snap.FailedSteps, 1)
	assert.Equal(t, "parse", snap.FailedSteps[0].Step)
	assert.Equal(t, "boom", snap.FailedSteps[0].Error)
	assert.Equal(t, []string{"boom"}, snap.Errors)
	assert.True(t, s.CanResume())
}

func TestMarkTokenLimitAndComplete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	require.NoError(t, s.MarkTokenLimit(ctx))
	assert.Equal(t, StatusTokenLimit, s.Status())
	assert.True(t, s.CanResume())
	assert.NotNil(t, s.Snapshot().TokenLimitAt)

	require.NoError(t, s.MarkComplete(ctx))
	assert.Equal(t, StatusCompleted, s.Status())
	assert.False(t, s.CanResume())
	assert.NotNil(t, s.Snapshot().CompletedAt)
}

func TestHasDataTruthiness(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	values := map[string]any{
		"true":       true,
		"false":      false,
		"zero":       0,
		"one":        1,
		"empty_str":  "",
		"str":        "x",
		"empty_list": []string{},
		"list":       []string{"a"},
		"empty_map":  map[string]int{},
		"nil":        nil,
	}
	for k, v := range values {
		require.NoError(t, s.SetData(ctx, k, v))
	}

	assert.True(t, s.HasData("true"))
	assert.False(t, s.HasData("false"))
	assert.False(t, s.HasData("zero"))
	assert.True(t, s.HasData("one"))
	assert.False(t, s.HasData("empty_str"))
	assert.True(t, s.HasData("str"))
	assert.False(t, s.HasData("empty_list"))
	assert.True(t, s.HasData("list"))
	assert.False(t, s.HasData("empty_map"))
	assert.False(t, s.HasData("nil"))
	assert.False(t, s.HasData("missing"))
}

func TestGetDataMissing(t *testing.T) {
	s, _ := newTestStore(t)

	var out []string
	ok, err := s.GetData("nope", &out)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, out)
}

func TestGetDataTypeMismatch(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.SetData(ctx, "k", "text"))

	var out int
	ok, err := s.GetData("k", &out)
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestStateSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	require.NoError(t, s.StartStep(ctx, "ocr", nil))
	require.NoError(t, s.SetData(ctx, "ocr_7", true))
	require.NoError(t, s.SetData(ctx, "page_types", map[string]string{"page_001": "invoice"}))
	require.NoError(t, s.MarkTokenLimit(ctx))

	reopened, err := Open(ctx, backend, "nov-2025")
	require.NoError(t, err)

	assert.Equal(t, StatusTokenLimit, reopened.Status())
	assert.Equal(t, "ocr", reopened.CurrentStep())
	assert.True(t, reopened.HasData("ocr_7"))
	var types map[string]string
	ok, err := reopened.GetData("page_types", &types)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "invoice", types["page_001"])
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)

	require.NoError(t, s.SetData(ctx, "parsed_group_00_invoice", true))
	_, err := os.Stat(backend.Path("nov-2025"))
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, StatusInitialized, s.Status())
	assert.False(t, s.HasData("parsed_group_00_invoice"))

	_, err = os.Stat(backend.Path("nov-2025"))
	assert.True(t, os.IsNotExist(err))

	// Clearing an already-empty job is fine.
	require.NoError(t, s.Clear(ctx))
}

func TestOpenCorruptState(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))

	_, err = Open(context.Background(), backend, "bad")
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	sum := s.Summary()
	assert.Contains(t, sum, "Job: nov-2025")
	assert.Contains(t, sum, "Status: initialized")
	assert.Contains(t, sum, "Completed steps: none")
	assert.Contains(t, sum, "Current step: none")
	assert.NotContains(t, sum, "Errors:")

	require.NoError(t, s.CompleteStep(ctx, "split", nil))
	require.NoError(t, s.CompleteStep(ctx, "detect", nil))
	require.NoError(t, s.StartStep(ctx, "parse", nil))
	require.NoError(t, s.FailStep(ctx, "parse", "bad"))

	sum = s.Summary()
	assert.Contains(t, sum, "Status: failed")
	assert.Contains(t, sum, "Completed steps: split, detect")
	assert.Contains(t, sum, "Current step: parse")
	assert.Contains(t, sum, "Errors: 1")
}

func TestSnapshotIsCopy(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.CompleteStep(ctx, "split", nil))

	snap := s.Snapshot()
	snap.CompletedSteps[0] = "mutated"
	assert.True(t, s.IsStepCompleted("split"))
}
