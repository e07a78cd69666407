package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestNotifier_Messages(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	n := New("Discover", logger)
	ctx := context.Background()

	n.Info(ctx, `Saved Data Source "errors"`)
	n.Error(ctx, errors.New("failed to save"))
	n.Error(ctx, nil)

	msgs := n.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[0] != (Message{Location: "Discover", Level: LevelInfo, Text: `Saved Data Source "errors"`}) {
		t.Errorf("Unexpected info message: %+v", msgs[0])
	}
	if msgs[1].Level != LevelError || msgs[1].Text != "failed to save" {
		t.Errorf("Unexpected error message: %+v", msgs[1])
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d: %s", len(lines), buf.String())
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("Log line is not JSON: %v", err)
	}
	if entry["level"] != "ERROR" || entry["location"] != "Discover" || entry["error"] != "failed to save" {
		t.Errorf("Unexpected log entry: %v", entry)
	}
}

func TestNotifier_KeepsMostRecent(t *testing.T) {
	n := New("Discover", slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	ctx := context.Background()
	for i := 0; i < 60; i++ {
		n.Info(ctx, fmt.Sprintf("message %d", i))
	}

	msgs := n.Messages()
	if len(msgs) != 50 {
		t.Fatalf("Expected 50 retained messages, got %d", len(msgs))
	}
	if msgs[0].Text != "message 10" || msgs[49].Text != "message 59" {
		t.Errorf("Unexpected window: first %q last %q", msgs[0].Text, msgs[49].Text)
	}
}

func TestNew_NilLogger(t *testing.T) {
	n := New("Discover", nil)
	n.Info(context.Background(), "hello")
	if len(n.Messages()) != 1 {
		t.Error("Expected one message")
	}
}
