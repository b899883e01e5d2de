package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"bookreport-backend/internal/llm"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want llm.Kind
	}{
		{name: "rate limit", err: &sdk.Error{StatusCode: http.StatusTooManyRequests}, want: llm.KindRateLimit},
		{name: "wrapped rate limit", err: fmt.Errorf("call: %w", &sdk.Error{StatusCode: http.StatusTooManyRequests}), want: llm.KindRateLimit},
		{name: "forbidden", err: &sdk.Error{StatusCode: http.StatusForbidden}, want: llm.KindAuth},
		{name: "overloaded", err: &sdk.Error{StatusCode: 529}, want: llm.KindUnavailable},
		{name: "deadline", err: context.DeadlineExceeded, want: llm.KindTimeout},
		{name: "transport", err: errors.New("connection refused"), want: llm.KindUnavailable},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err).Kind; got != tt.want {
				t.Fatalf("classify kind = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCompleteReturnsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-haiku-4-5-20251001","content":[{"type":"text","text":"REPORT"}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/", Temperature: 0.7})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	got, err := client.Complete(context.Background(), "prompt", 1000)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "REPORT" {
		t.Fatalf("unexpected text %q", got)
	}
}
