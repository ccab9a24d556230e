package oracle

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/hoa-financials/internal/command"
	"github.com/sells-group/hoa-financials/internal/resilience"
)

// CLIConfig configures the command-line oracle.
type CLIConfig struct {
	Path    string
	Timeout time.Duration
	Retry   resilience.RetryConfig
}

// CLI is an Oracle that shells out to the claude command in print mode.
type CLI struct {
	runner command.Runner
	cfg    CLIConfig
}

// NewCLI creates a command-line oracle.
func NewCLI(runner command.Runner, cfg CLIConfig) *CLI {
	if cfg.Path == "" {
		cfg.Path = "claude"
	}
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("claude-cli", "print")
	}
	if cfg.Retry.ShouldRetry == nil {
		cfg.Retry.ShouldRetry = func(error) bool { return true }
	}
	return &CLI{runner: runner, cfg: cfg}
}

func (c *CLI) Complete(ctx context.Context, prompt string) (string, error) {
	return c.run(ctx, nil, "-p", prompt)
}

// CompleteWithImage embeds the image as a data URI and sends the prompt on
// stdin.
func (c *CLI) CompleteWithImage(ctx context.Context, prompt, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", eris.Wrapf(err, "oracle: read image %s", imagePath)
	}
	uri := fmt.Sprintf("data:%s;base64,%s", mediaType(imagePath), base64.StdEncoding.EncodeToString(data))
	stdin := []byte(fmt.Sprintf("[Image: %s]\n\n%s", uri, prompt))
	return c.run(ctx, stdin, "-p", "-")
}

func (c *CLI) run(ctx context.Context, stdin []byte, args ...string) (string, error) {
	return resilience.DoVal(ctx, c.cfg.Retry, func(ctx context.Context) (string, error) {
		callCtx := ctx
		if c.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
		}

		stdout, stderr, err := c.runner.Run(callCtx, stdin, c.cfg.Path, args...)
		if marker := limitMarker(stdout, stderr, err); marker != "" {
			return "", &resilience.TokenLimitError{Marker: marker, Err: err}
		}
		if err != nil {
			return "", eris.Wrapf(err, "oracle: claude cli failed: %s",
				command.Truncate(strings.TrimSpace(string(stderr)), 512))
		}
		return strings.TrimSpace(string(stdout)), nil
	})
}

// limitNoticeMax bounds the length of a successful answer that is still
// read as a usage-limit notice.
const limitNoticeMax = 200

// limitMarker looks for rate/quota wording in stderr, in stdout of a failed
// call, and in a short non-JSON stdout of a successful call. A real answer
// that merely mentions "capacity" is not a limit.
func limitMarker(stdout, stderr []byte, err error) string {
	if marker := resilience.DetectTokenLimit(string(stderr)); marker != "" {
		return marker
	}
	out := strings.TrimSpace(string(stdout))
	if err == nil && (len(out) > limitNoticeMax || strings.HasPrefix(out, "{") ||
		strings.HasPrefix(out, "[") || strings.HasPrefix(out, "```")) {
		return ""
	}
	return resilience.DetectTokenLimit(out)
}
