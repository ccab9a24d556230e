package oracle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hoa-financials/internal/command"
	"github.com/sells-group/hoa-financials/internal/resilience"
)

type call struct {
	stdin []byte
	name  string
	args  []string
}

func scriptedRunner(calls *[]call, results ...func() ([]byte, []byte, error)) command.Runner {
	return command.RunnerFunc(func(_ context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
		*calls = append(*calls, call{stdin: stdin, name: name, args: args})
		i := len(*calls) - 1
		if i >= len(results) {
			i = len(results) - 1
		}
		return results[i]()
	})
}

func ok(out string) func() ([]byte, []byte, error) {
	return func() ([]byte, []byte, error) { return []byte(out), nil, nil }
}

func fail(stderr string) func() ([]byte, []byte, error) {
	return func() ([]byte, []byte, error) { return nil, []byte(stderr), errors.New("exit status 1") }
}

func testCLIConfig() CLIConfig {
	return CLIConfig{Path: "claude", Retry: resilience.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}}
}

func TestCLIComplete(t *testing.T) {
	var calls []call
	c := NewCLI(scriptedRunner(&calls, ok("  answer \n")), testCLIConfig())

	out, err := c.Complete(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	require.Len(t, calls, 1)
	assert.Equal(t, "claude", calls[0].name)
	assert.Equal(t, []string{"-p", "question"}, calls[0].args)
	assert.Nil(t, calls[0].stdin)
}

func TestCLICompleteWithImageUsesStdin(t *testing.T) {
	img := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(img, []byte("hello"), 0o644))

	var calls []call
	c := NewCLI(scriptedRunner(&calls, ok("text")), testCLIConfig())

	_, err := c.CompleteWithImage(context.Background(), "Extract", img)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-p", "-"}, calls[0].args)
	assert.True(t, strings.HasPrefix(string(calls[0].stdin), "[Image: data:image/png;base64,aGVsbG8=]\n\nExtract"))
}

func TestCLIRetriesThenSucceeds(t *testing.T) {
	var calls []call
	c := NewCLI(scriptedRunner(&calls, fail("flaky"), ok("fine")), testCLIConfig())

	out, err := c.Complete(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "fine", out)
	assert.Len(t, calls, 2)
}

func TestCLIFailsAfterRetries(t *testing.T) {
	var calls []call
	c := NewCLI(scriptedRunner(&calls, fail("broken")), testCLIConfig())

	_, err := c.Complete(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Len(t, calls, 3)
}

func TestCLITokenLimitFromOutput(t *testing.T) {
	var calls []call
	c := NewCLI(scriptedRunner(&calls, ok("Error: Rate limit reached, try later")), testCLIConfig())

	_, err := c.Complete(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, resilience.IsTokenLimit(err))
	assert.Len(t, calls, 1)
}

func TestCLITokenLimitFromStderr(t *testing.T) {
	var calls []call
	c := NewCLI(scriptedRunner(&calls, fail("server at capacity")), testCLIConfig())

	_, err := c.Complete(context.Background(), "q")
	assert.True(t, resilience.IsTokenLimit(err))
	assert.Len(t, calls, 1)
}

func TestCLIAnswerMentioningCapacityIsNotALimit(t *testing.T) {
	answers := []string{
		`[{"description": "Pool pump, 2 HP, 40 GPM capacity", "amount": 1200}]`,
		"```json\n{\"vendor\": \"Too Many Requests Plumbing\"}\n```",
		strings.Repeat("The retention pond is near capacity after the storms. ", 5),
	}
	for _, answer := range answers {
		var calls []call
		c := NewCLI(scriptedRunner(&calls, ok(answer)), testCLIConfig())

		out, err := c.Complete(context.Background(), "q")
		require.NoError(t, err)
		assert.Equal(t, strings.TrimSpace(answer), out)
		assert.Len(t, calls, 1)
	}
}
