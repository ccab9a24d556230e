package oracle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hoa-financials/internal/resilience"
	"github.com/sells-group/hoa-financials/pkg/anthropic"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func textResponse(s string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: s}}}
}

func testClaudeConfig() ClaudeConfig {
	return ClaudeConfig{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 1024,
		Retry:     resilience.RetryConfig{MaxAttempts: 3, Delay: time.Millisecond},
	}
}

func TestClaudeComplete(t *testing.T) {
	mc := new(mockClient)
	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-sonnet-4-5-20250929" &&
			req.MaxTokens == 1024 &&
			len(req.Messages) == 1 &&
			req.Messages[0].Content == "hello" &&
			len(req.Messages[0].Images) == 0
	})).Return(textResponse("world"), nil)

	c := NewClaude(mc, testClaudeConfig())
	out, err := c.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "world", out)
	mc.AssertExpectations(t)
}

func TestClaudeCompleteWithImage(t *testing.T) {
	img := filepath.Join(t.TempDir(), "page-004.png")
	require.NoError(t, os.WriteFile(img, []byte("hello"), 0o644))

	mc := new(mockClient)
	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		imgs := req.Messages[0].Images
		return len(imgs) == 1 && imgs[0].MediaType == "image/png" && imgs[0].Data == "aGVsbG8="
	})).Return(textResponse("Invoice ID: 9"), nil)

	c := NewClaude(mc, testClaudeConfig())
	out, err := c.CompleteWithImage(context.Background(), OCRPrompt, img)
	require.NoError(t, err)
	assert.Equal(t, "Invoice ID: 9", out)
}

func TestClaudeCompleteWithImageMissingFile(t *testing.T) {
	c := NewClaude(new(mockClient), testClaudeConfig())
	_, err := c.CompleteWithImage(context.Background(), "p", "/nope/missing.png")
	assert.Error(t, err)
}

func TestClaudeRetriesTransientFailure(t *testing.T) {
	mc := new(mockClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset by peer")).Once()
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("ok"), nil).Once()

	c := NewClaude(mc, testClaudeConfig())
	out, err := c.Complete(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	mc.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestClaudeGivesUpAfterMaxAttempts(t *testing.T) {
	mc := new(mockClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("i/o timeout"))

	c := NewClaude(mc, testClaudeConfig())
	_, err := c.Complete(context.Background(), "x")
	require.Error(t, err)
	mc.AssertNumberOfCalls(t, "CreateMessage", 3)
}

func TestClaudeTokenLimitNotRetried(t *testing.T) {
	mc := new(mockClient)
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("anthropic: create message: Quota exceeded for this org"))

	c := NewClaude(mc, testClaudeConfig())
	_, err := c.Complete(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, resilience.IsTokenLimit(err))
	mc.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestMediaType(t *testing.T) {
	assert.Equal(t, "image/png", mediaType("a.png"))
	assert.Equal(t, "image/jpeg", mediaType("a.jpg"))
	assert.Equal(t, "image/png", mediaType("a.unknownext"))
}
