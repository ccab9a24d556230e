package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/hoa-financials/internal/categorize"
	"github.com/sells-group/hoa-financials/internal/checkpoint"
	"github.com/sells-group/hoa-financials/internal/classify"
	"github.com/sells-group/hoa-financials/internal/command"
	"github.com/sells-group/hoa-financials/internal/config"
	"github.com/sells-group/hoa-financials/internal/extract"
	"github.com/sells-group/hoa-financials/internal/ocr"
	"github.com/sells-group/hoa-financials/internal/oracle"
	"github.com/sells-group/hoa-financials/internal/pipeline"
	"github.com/sells-group/hoa-financials/internal/resilience"
	"github.com/sells-group/hoa-financials/internal/split"
	anthropicpkg "github.com/sells-group/hoa-financials/pkg/anthropic"
)

// jobEnv holds the checkpoint and pipeline for one source PDF. Callers
// should defer env.Close().
type jobEnv struct {
	Store    *checkpoint.Store
	Pipeline *pipeline.Pipeline
	closer   func() error
}

// Close releases the checkpoint backend.
func (je *jobEnv) Close() {
	if je.closer != nil {
		if err := je.closer(); err != nil {
			zap.L().Warn("checkpoint: close backend", zap.Error(err))
		}
	}
}

// openBackend builds the checkpoint backend selected by config.
func openBackend(ctx context.Context, c config.CheckpointConfig) (checkpoint.Backend, func() error, error) {
	switch c.Backend {
	case "", "file":
		b, err := checkpoint.NewFileBackend(c.Dir)
		if err != nil {
			return nil, nil, err
		}
		return b, nil, nil
	case "sqlite":
		path := c.SQLitePath
		if path == "" {
			path = filepath.Join(c.Dir, "checkpoints.db")
		}
		b, err := checkpoint.NewSQLiteBackend(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	default:
		return nil, nil, eris.Errorf("checkpoint: unknown backend %q", c.Backend)
	}
}

// openJob opens the checkpoint of the job derived from pdfPath.
func openJob(ctx context.Context, c *config.Config, pdfPath string) (*jobEnv, error) {
	backend, closer, err := openBackend(ctx, c.Checkpoint)
	if err != nil {
		return nil, err
	}
	st, err := checkpoint.Open(ctx, backend, pipeline.JobID(pdfPath))
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, err
	}
	return &jobEnv{Store: st, closer: closer}, nil
}

// initOracle builds the oracle selected by oracle.provider.
func initOracle(c *config.Config, runner command.Runner) (oracle.Oracle, error) {
	retry := resilience.RetryConfig{
		MaxAttempts: c.Oracle.MaxRetries,
		Delay:       c.Oracle.RetryDelay(),
	}
	switch c.Oracle.Provider {
	case "", "api":
		if c.Anthropic.Key == "" {
			return nil, eris.New("config: anthropic.key is required for the api oracle")
		}
		return oracle.NewClaude(anthropicpkg.NewClient(c.Anthropic.Key), oracle.ClaudeConfig{
			Model:             c.Anthropic.Model,
			MaxTokens:         c.Anthropic.MaxTokens,
			RequestsPerMinute: c.Anthropic.RequestsPerMinute,
			Timeout:           c.Oracle.Timeout(),
			Retry:             retry,
		}), nil
	case "cli":
		return oracle.NewCLI(runner, oracle.CLIConfig{
			Path:    c.Oracle.CLIPath,
			Timeout: c.Oracle.Timeout(),
			Retry:   retry,
		}), nil
	default:
		return nil, eris.Errorf("config: unknown oracle provider %q", c.Oracle.Provider)
	}
}

// initPipeline wires every collaborator for pdfPath.
func initPipeline(ctx context.Context, c *config.Config, pdfPath string) (*jobEnv, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, eris.Wrapf(err, "pdf not found: %s", pdfPath)
	}

	runner := command.Exec{}
	o, err := initOracle(c, runner)
	if err != nil {
		return nil, err
	}
	tools := ocr.NewTools(c.OCR, runner)
	splitter, err := split.New(c.Split, runner, tools.Text)
	if err != nil {
		return nil, err
	}

	classifier := classify.New(o)
	if c.Classify.BatchSize > 0 {
		classifier.BatchSize = c.Classify.BatchSize
	}
	if c.Classify.PromptChars > 0 {
		classifier.PromptChars = c.Classify.PromptChars
	}

	env, err := openJob(ctx, c, pdfPath)
	if err != nil {
		return nil, err
	}
	env.Pipeline = pipeline.New(c, env.Store, pdfPath, pipeline.Deps{
		Splitter:    splitter,
		Classifier:  classifier,
		Extractors:  extract.NewSet(o),
		Renderer:    tools.Renderer,
		OCR:         tools.OCR,
		Categorizer: categorize.New(o),
		Exporter:    pipeline.FileExporter{},
	})
	return env, nil
}
