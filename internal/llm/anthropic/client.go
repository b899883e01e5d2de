package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"bookreport-backend/internal/llm"
)

const (
	providerName = "anthropic"

	DefaultModel   = "claude-haiku-4-5-20251001"
	defaultTimeout = 120 * time.Second
)

// Config configures the Anthropic messages adapter.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
}

// Client implements llm.Synthesizer using the Anthropic Messages API.
type Client struct {
	client      sdk.Client
	model       string
	temperature float64
	timeout     time.Duration
}

// NewClient constructs an Anthropic client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client:      sdk.NewClient(opts...),
		model:       model,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}, nil
}

// Complete returns the concatenated text blocks of the reply.
func (c *Client) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   int64(maxOutputTokens),
		Temperature: sdk.Float(c.temperature),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", classify(err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(sdk.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return "", &llm.Error{Provider: providerName, Kind: llm.KindEmptyResponse, Err: errors.New("anthropic response empty content")}
	}
	return content, nil
}

func classify(err error) *llm.Error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return &llm.Error{
			Provider:   providerName,
			Kind:       llm.KindForStatus(apiErr.StatusCode, ""),
			StatusCode: apiErr.StatusCode,
			Err:        fmt.Errorf("anthropic http status %d", apiErr.StatusCode),
		}
	}
	return &llm.Error{Provider: providerName, Kind: llm.KindForTransport(err), Err: err}
}

var _ llm.Synthesizer = (*Client)(nil)
