package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/hoa-financials/internal/checkpoint"
	"github.com/sells-group/hoa-financials/internal/command"
	"github.com/sells-group/hoa-financials/internal/config"
	"github.com/sells-group/hoa-financials/internal/oracle"
	"github.com/sells-group/hoa-financials/internal/resilience"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"run", "status", "clear"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "hoa-financials", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("checkpoint-dir"))
}

func TestRunCommand_Flags(t *testing.T) {
	for _, name := range []string{"pdf", "resume", "output-dir", "max-pages"} {
		require.NotNil(t, runCmd.Flags().Lookup(name), "run command should have --%s", name)
	}
	assert.Equal(t, "false", runCmd.Flags().Lookup("resume").DefValue)
}

func TestStatusCommand_Flags(t *testing.T) {
	flag := statusCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "text", flag.DefValue)
	assert.NotNil(t, clearCmd.Flags().Lookup("pdf"))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("boom")))

	tl := &exitError{code: exitTokenLimit, err: &resilience.TokenLimitError{Marker: "rate limit"}}
	assert.Equal(t, 2, exitCode(tl))
	assert.True(t, resilience.IsTokenLimit(tl))
}

func newTestStore(t *testing.T) *checkpoint.Store {
	t.Helper()
	ctx := context.Background()
	env, err := openJob(ctx, &config.Config{
		Checkpoint: config.CheckpointConfig{Dir: t.TempDir(), Backend: "file"},
	}, "/reports/nov-2025.pdf")
	require.NoError(t, err)
	t.Cleanup(env.Close)

	require.NoError(t, env.Store.StartStep(ctx, "split", nil))
	require.NoError(t, env.Store.CompleteStep(ctx, "split", map[string]int{"chunks": 2}))
	return env.Store
}

func TestWriteStatus(t *testing.T) {
	st := newTestStore(t)

	var text bytes.Buffer
	require.NoError(t, writeStatus(&text, st, "text"))
	assert.Contains(t, text.String(), "Job: nov-2025")
	assert.Contains(t, text.String(), "Completed steps: split")

	var js bytes.Buffer
	require.NoError(t, writeStatus(&js, st, "json"))
	assert.Contains(t, js.String(), `"job_id": "nov-2025"`)
	assert.Contains(t, js.String(), `"split_result"`)

	var ym bytes.Buffer
	require.NoError(t, writeStatus(&ym, st, "yaml"))
	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &decoded))
	assert.Equal(t, "nov-2025", decoded["job_id"])
	assert.Equal(t, "processing", decoded["status"])
	assert.Equal(t, []any{"split"}, decoded["completed_steps"])
	assert.NotContains(t, decoded, "data")

	assert.Error(t, writeStatus(&bytes.Buffer{}, st, "xml"))
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, closer, err := openBackend(ctx, config.CheckpointConfig{Dir: dir})
	require.NoError(t, err)
	assert.IsType(t, &checkpoint.FileBackend{}, b)
	assert.Nil(t, closer)

	b, closer, err = openBackend(ctx, config.CheckpointConfig{Backend: "sqlite", SQLitePath: filepath.Join(dir, "cp.db")})
	require.NoError(t, err)
	assert.IsType(t, &checkpoint.SQLiteBackend{}, b)
	require.NotNil(t, closer)
	require.NoError(t, closer())

	_, _, err = openBackend(ctx, config.CheckpointConfig{Backend: "redis"})
	assert.Error(t, err)
}

func TestInitOracle(t *testing.T) {
	c := &config.Config{Oracle: config.OracleConfig{Provider: "api"}}
	_, err := initOracle(c, command.Exec{})
	assert.Error(t, err, "api oracle needs a key")

	c.Anthropic.Key = "sk-test"
	o, err := initOracle(c, command.Exec{})
	require.NoError(t, err)
	assert.IsType(t, &oracle.Claude{}, o)

	c.Oracle.Provider = "cli"
	o, err = initOracle(c, command.Exec{})
	require.NoError(t, err)
	assert.IsType(t, &oracle.CLI{}, o)

	c.Oracle.Provider = "carrier-pigeon"
	_, err = initOracle(c, command.Exec{})
	assert.Error(t, err)
}

func TestInitPipeline_MissingPDF(t *testing.T) {
	c := &config.Config{Anthropic: config.AnthropicConfig{Key: "sk-test"}}
	_, err := initPipeline(context.Background(), c, filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdf not found")
}
