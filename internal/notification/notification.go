package notification

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	// KindOTP carries a one-time registration code.
	KindOTP = "otp"
)

// Message describes a notification payload.
type Message struct {
	ID          string        `json:"id,omitempty"`
	Kind        string        `json:"kind"`
	Destination string        `json:"destination"`
	Title       string        `json:"title"`
	Body        string        `json:"body"`
	TimeoutHint time.Duration `json:"timeout_hint"`
}

// Notifier delivers notifications to downstream systems. Delivery is best
// effort: callers log a failed Send and carry on.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		slog.String("id", message.ID),
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
		slog.String("title", message.Title),
		slog.String("body", message.Body),
	)
	return nil
}

// ConsoleNotifier prints notifications to the terminal as a framed pop-up,
// standing in for a desktop or SMS notification.
type ConsoleNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleNotifier builds a notifier writing to w.
func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

func (n *ConsoleNotifier) Send(_ context.Context, message Message) error {
	lines := []string{message.Title, message.Body}
	if message.Destination != "" {
		lines = append(lines, "to: "+message.Destination)
	}
	width := 0
	for _, l := range lines {
		if len(l) > width {
			width = len(l)
		}
	}
	border := "+" + strings.Repeat("-", width+2) + "+"

	var b strings.Builder
	b.WriteString("\n" + border + "\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "| %-*s |\n", width, l)
	}
	b.WriteString(border + "\n\n")

	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := io.WriteString(n.w, b.String())
	return err
}
