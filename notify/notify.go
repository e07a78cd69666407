// Package notify reports user-facing messages for one page of the application.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Level classifies a notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Message is one notification as shown to the user.
type Message struct {
	Location string
	Level    Level
	Text     string
}

// Notifier logs notifications tagged with a location and keeps the most
// recent ones for display.
type Notifier struct {
	location string
	logger   *slog.Logger
	limit    int

	mu       sync.Mutex
	messages []Message
}

// New creates a Notifier for location. A nil logger means slog.Default().
func New(location string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		location: location,
		logger:   logger,
		limit:    50,
	}
}

// Info records an informational message.
func (n *Notifier) Info(ctx context.Context, msg string) {
	n.logger.InfoContext(ctx, msg, "location", n.location)
	n.push(Message{Location: n.location, Level: LevelInfo, Text: msg})
}

// Error records a failure.
func (n *Notifier) Error(ctx context.Context, err error) {
	if err == nil {
		return
	}
	n.logger.ErrorContext(ctx, "operation failed", "location", n.location, "error", err)
	n.push(Message{Location: n.location, Level: LevelError, Text: err.Error()})
}

// Messages returns the retained notifications, oldest first.
func (n *Notifier) Messages() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Message, len(n.messages))
	copy(out, n.messages)
	return out
}

func (n *Notifier) push(m Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) >= n.limit {
		n.messages = n.messages[1:]
	}
	n.messages = append(n.messages, m)
}
