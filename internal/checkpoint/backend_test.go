package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteBackend(t *testing.T) *SQLiteBackend {
	t.Helper()
	b, err := NewSQLiteBackend(context.Background(), filepath.Join(t.TempDir(), "sub", "cp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func backends(t *testing.T) map[string]Backend {
	fb, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	return map[string]Backend{
		"file":   fb,
		"sqlite": newTestSQLiteBackend(t),
	}
}

func TestBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Load(ctx, "job")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, b.Save(ctx, "job", []byte(`{"v":1}`)))
			got, err := b.Load(ctx, "job")
			require.NoError(t, err)
			assert.JSONEq(t, `{"v":1}`, string(got))

			require.NoError(t, b.Save(ctx, "job", []byte(`{"v":2}`)))
			got, err = b.Load(ctx, "job")
			require.NoError(t, err)
			assert.JSONEq(t, `{"v":2}`, string(got))

			require.NoError(t, b.Delete(ctx, "job"))
			_, err = b.Load(ctx, "job")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, b.Delete(ctx, "job"))
		})
	}
}

func TestBackendStoreResume(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, err := Open(ctx, b, "dec")
			require.NoError(t, err)
			require.NoError(t, s.CompleteStep(ctx, "split", map[string]int{"chunks": 2}))
			require.NoError(t, s.StartStep(ctx, "detect", nil))

			again, err := Open(ctx, b, "dec")
			require.NoError(t, err)
			assert.True(t, again.IsStepCompleted("split"))
			assert.Equal(t, "detect", again.CurrentStep())
			assert.True(t, again.CanResume())
		})
	}
}

func TestFileBackendLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Save(context.Background(), "job", []byte(`{}`)))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "job.json", entries[0].Name())
}

func TestSQLiteBackendWAL(t *testing.T) {
	b := newTestSQLiteBackend(t)

	var mode string
	require.NoError(t, b.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}
