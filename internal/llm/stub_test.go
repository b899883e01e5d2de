package llm

import (
	"context"
	"strings"
	"testing"
)

func TestStubSynthesizerUsesPromptSubject(t *testing.T) {
	prompt := BuildReportPrompt(ReportRequest{BookTitle: "Dune", Author: "Frank Herbert", Length: 800})

	report, err := StubSynthesizer{}.Complete(context.Background(), prompt, MaxOutputTokens(800))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !strings.HasPrefix(report, "# Book Report: Dune by Frank Herbert") {
		t.Fatalf("unexpected heading: %q", strings.SplitN(report, "\n", 2)[0])
	}
	if !strings.Contains(report, "placeholder report") {
		t.Fatalf("expected placeholder label")
	}
}

func TestStubSynthesizerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (StubSynthesizer{}).Complete(ctx, "p", 1000); err == nil {
		t.Fatalf("expected error for canceled context")
	}
}
