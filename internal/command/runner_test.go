package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunsCommand(t *testing.T) {
	out, _, err := Exec{}.Run(context.Background(), nil, "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
}

func TestExecFeedsStdin(t *testing.T) {
	out, _, err := Exec{}.Run(context.Background(), []byte("piped"), "cat")
	require.NoError(t, err)
	assert.Equal(t, "piped", string(out))
}

func TestExecMissingBinary(t *testing.T) {
	_, _, err := Exec{}.Run(context.Background(), nil, "definitely-not-a-real-binary-xyz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command: definitely-not-a-real-binary-xyz")
}

func TestExecNonZeroExitKeepsStderr(t *testing.T) {
	_, stderr, err := Exec{}.Run(context.Background(), nil, "sh", "-c", "echo oops >&2; exit 3")
	require.Error(t, err)
	assert.Equal(t, "oops\n", string(stderr))
}

func TestRunnerFunc(t *testing.T) {
	var gotName string
	var gotArgs []string
	r := RunnerFunc(func(_ context.Context, _ []byte, name string, args ...string) ([]byte, []byte, error) {
		gotName, gotArgs = name, args
		return []byte("ok"), nil, nil
	})

	out, _, err := r.Run(context.Background(), nil, "tool", "-a", "b")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))
	assert.Equal(t, "tool", gotName)
	assert.Equal(t, []string{"-a", "b"}, gotArgs)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...(truncated)", Truncate("abcdef", 2))
}
