package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/congo-pay/bank_system/internal/logging"
)

type recordingChannel struct {
	declared   []string
	exchange   string
	key        string
	published  []amqp.Publishing
	declareErr error
}

func (c *recordingChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	if c.declareErr != nil {
		return c.declareErr
	}
	c.declared = append(c.declared, name+"/"+kind)
	return nil
}

func (c *recordingChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange = exchange
	c.key = key
	c.published = append(c.published, msg)
	return nil
}

func TestAMQPNotifierPublishesJSON(t *testing.T) {
	ch := &recordingChannel{}
	n, err := NewAMQPNotifier(ch, "notifications")
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != "notifications/topic" {
		t.Fatalf("expected topic exchange declaration, got %v", ch.declared)
	}

	msg := Message{ID: "c-1", Kind: KindOTP, Destination: "01012345678", Title: "Bank System", Body: "Your OTP code: 4321", TimeoutHint: 3 * time.Second}
	if err := n.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if ch.exchange != "notifications" || ch.key != "notify.otp" {
		t.Fatalf("unexpected route %s/%s", ch.exchange, ch.key)
	}
	pub := ch.published[0]
	if pub.ContentType != "application/json" || pub.MessageId != "c-1" {
		t.Fatalf("unexpected publishing metadata %+v", pub)
	}
	if pub.Headers["timeout_hint_ms"] != int64(3000) {
		t.Fatalf("expected timeout hint header, got %v", pub.Headers)
	}
	var decoded Message
	if err := json.Unmarshal(pub.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.Body != msg.Body || decoded.Destination != msg.Destination {
		t.Fatalf("unexpected body %+v", decoded)
	}
}

func TestAMQPNotifierDeclareFailure(t *testing.T) {
	boom := errors.New("channel closed")
	if _, err := NewAMQPNotifier(&recordingChannel{declareErr: boom}, "notifications"); !errors.Is(err, boom) {
		t.Fatalf("expected declare error, got %v", err)
	}
}

func TestConsoleNotifierFramesMessage(t *testing.T) {
	var buf bytes.Buffer
	n := NewConsoleNotifier(&buf)
	if err := n.Send(context.Background(), Message{Title: "Bank System", Body: "Your OTP code: 4321"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "| Your OTP code: 4321 |") {
		t.Fatalf("expected framed body, got:\n%s", out)
	}
	if !strings.Contains(out, "| Bank System         |") {
		t.Fatalf("expected padded title, got:\n%s", out)
	}
}

func TestLoggerNotifierNilSafe(t *testing.T) {
	var n *LoggerNotifier
	if err := n.Send(context.Background(), Message{}); err != nil {
		t.Fatalf("nil notifier should be a no-op: %v", err)
	}
	if err := NewLoggerNotifier(logging.Discard()).Send(context.Background(), Message{Kind: KindOTP}); err != nil {
		t.Fatalf("send: %v", err)
	}
}
