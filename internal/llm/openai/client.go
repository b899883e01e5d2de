package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"bookreport-backend/internal/llm"
)

const (
	providerName = "openai"

	// DefaultModel matches the model the report prompt was tuned against.
	DefaultModel       = "gpt-4"
	DefaultTemperature = 0.7
	defaultTimeout     = 120 * time.Second
)

// Config configures the OpenAI chat completions adapter.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
}

// Client implements llm.Synthesizer using OpenAI Chat Completions.
type Client struct {
	client      sdk.Client
	model       string
	temperature float64
	timeout     time.Duration
}

// NewClient constructs a new OpenAI client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// Retries are owned by llm.Retry so attempts stay bounded in one place.
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

// Complete returns the report text for the prompt.
func (c *Client) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := sdk.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage(prompt),
		},
	}
	if isGPT5(c.model) {
		params.MaxCompletionTokens = sdk.Int(int64(maxOutputTokens))
	} else {
		params.MaxTokens = sdk.Int(int64(maxOutputTokens))
		params.Temperature = sdk.Float(c.temperature)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}
	if len(completion.Choices) == 0 {
		return "", &llm.Error{Provider: providerName, Kind: llm.KindEmptyResponse, Err: errors.New("openai response missing choices")}
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", &llm.Error{Provider: providerName, Kind: llm.KindEmptyResponse, Err: errors.New("openai response empty content")}
	}
	return content, nil
}

func classify(err error) *llm.Error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		code := apiErr.Code
		if code == "" {
			code = apiErr.Type
		}
		return &llm.Error{
			Provider:   providerName,
			Kind:       llm.KindForStatus(apiErr.StatusCode, code),
			StatusCode: apiErr.StatusCode,
			Err:        fmt.Errorf("openai http status %d: %s (%s)", apiErr.StatusCode, apiErr.Message, code),
		}
	}
	return &llm.Error{Provider: providerName, Kind: llm.KindForTransport(err), Err: err}
}

// gpt-5 models reject temperature and max_tokens.
func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Synthesizer = (*Client)(nil)
