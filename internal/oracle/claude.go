package oracle

import (
	"context"
	"encoding/base64"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/hoa-financials/internal/resilience"
	"github.com/sells-group/hoa-financials/pkg/anthropic"
)

// ClaudeConfig configures the API-backed oracle.
type ClaudeConfig struct {
	Model             string
	MaxTokens         int64
	RequestsPerMinute int
	Timeout           time.Duration
	Retry             resilience.RetryConfig
}

// Claude is an Oracle backed by the Anthropic messages API.
type Claude struct {
	client  anthropic.Client
	cfg     ClaudeConfig
	limiter *rate.Limiter
}

// NewClaude creates an API-backed oracle.
func NewClaude(client anthropic.Client, cfg ClaudeConfig) *Claude {
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("anthropic", "create_message")
	}
	if cfg.Retry.ShouldRetry == nil {
		cfg.Retry.ShouldRetry = retryableAPIError
	}
	return &Claude{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (c *Claude) Complete(ctx context.Context, prompt string) (string, error) {
	return c.send(ctx, anthropic.Message{Role: "user", Content: prompt})
}

func (c *Claude) CompleteWithImage(ctx context.Context, prompt, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", eris.Wrapf(err, "oracle: read image %s", imagePath)
	}
	return c.send(ctx, anthropic.Message{
		Role:    "user",
		Content: prompt,
		Images: []anthropic.Image{{
			MediaType: mediaType(imagePath),
			Data:      base64.StdEncoding.EncodeToString(data),
		}},
	})
}

func (c *Claude) send(ctx context.Context, msg anthropic.Message) (string, error) {
	return resilience.DoVal(ctx, c.cfg.Retry, func(ctx context.Context) (string, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "oracle: rate limiter")
		}

		callCtx := ctx
		if c.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
		}

		resp, err := c.client.CreateMessage(callCtx, anthropic.MessageRequest{
			Model:     c.cfg.Model,
			MaxTokens: c.cfg.MaxTokens,
			Messages:  []anthropic.Message{msg},
		})
		if err != nil {
			return "", classifyAPIError(err)
		}
		resp.Usage.LogCost(c.cfg.Model, "oracle")
		return resp.Text(), nil
	})
}

// classifyAPIError maps SDK failures onto the resilience taxonomy.
func classifyAPIError(err error) error {
	if anthropic.IsRateLimited(err) {
		return &resilience.TokenLimitError{Marker: "http 429", Err: err}
	}
	if marker := resilience.DetectTokenLimit(err.Error()); marker != "" {
		return &resilience.TokenLimitError{Marker: marker, Err: err}
	}
	if code := anthropic.StatusCode(err); resilience.IsTransientHTTPStatus(code) {
		return resilience.NewTransientError(err, code)
	}
	return err
}

func retryableAPIError(err error) bool {
	if resilience.IsTransient(err) {
		return true
	}
	code := anthropic.StatusCode(err)
	// Anything without an HTTP status (timeouts, dropped connections) is
	// worth another attempt; 4xx responses are not.
	return code == 0
}

func mediaType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	zap.L().Debug("oracle: unknown image type, assuming png", zap.String("path", path))
	return "image/png"
}
