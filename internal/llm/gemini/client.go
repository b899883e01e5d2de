package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"bookreport-backend/internal/llm"
)

const (
	providerName = "gemini"

	DefaultModel   = "gemini-2.5-flash"
	defaultTimeout = 120 * time.Second
)

// Config configures the Gemini adapter.
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Client implements llm.Synthesizer using the Gemini API.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// NewClient constructs a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	return &Client{
		client:      client,
		model:       model,
		temperature: float32(cfg.Temperature),
		timeout:     timeout,
	}, nil
}

// Complete returns the text of the first candidate.
func (c *Client) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxOutputTokens),
		Temperature:     genai.Ptr(c.temperature),
	})
	if err != nil {
		return "", classify(err)
	}
	content := strings.TrimSpace(resp.Text())
	if content == "" {
		return "", &llm.Error{Provider: providerName, Kind: llm.KindEmptyResponse, Err: errors.New("gemini response empty content")}
	}
	return content, nil
}

func classify(err error) *llm.Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return statusError(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return statusError(*apiErrPtr)
	}
	return &llm.Error{Provider: providerName, Kind: llm.KindForTransport(err), Err: err}
}

func statusError(apiErr genai.APIError) *llm.Error {
	code := ""
	if apiErr.Status == "RESOURCE_EXHAUSTED" && strings.Contains(strings.ToLower(apiErr.Message), "quota") {
		code = "insufficient_quota"
	}
	return &llm.Error{
		Provider:   providerName,
		Kind:       llm.KindForStatus(apiErr.Code, code),
		StatusCode: apiErr.Code,
		Err:        fmt.Errorf("gemini http status %d: %s (%s)", apiErr.Code, apiErr.Message, apiErr.Status),
	}
}

var _ llm.Synthesizer = (*Client)(nil)
