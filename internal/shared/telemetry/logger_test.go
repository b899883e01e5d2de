package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestInfoWritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, false)
	t.Cleanup(func() { SetOutput(os.Stdout, false) })

	Info("order.status", map[string]any{
		"order_id":          "order-1",
		"status_transition": "pending->processing",
	})

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &payload); err != nil {
		t.Fatalf("decode log json: %v (%q)", err, buf.String())
	}
	if payload["level"] != "info" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if payload["order_id"] != "order-1" || payload["status_transition"] != "pending->processing" {
		t.Fatalf("missing fields: %v", payload)
	}
}

func TestErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, false)
	t.Cleanup(func() { SetOutput(os.Stdout, false) })

	Error("http.error", map[string]any{"status": 500})

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	if payload["level"] != "error" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
}
