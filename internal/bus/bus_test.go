package bus

import (
	"log/slog"
	"os"
	"testing"

	"calcbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestPublishSubscribe(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	b.Publish(domain.InboundMessage{Channel: "cli", ChatID: "1", Content: "2+2"})

	msg := <-b.Subscribe()
	if msg.Content != "2+2" || msg.Channel != "cli" {
		t.Errorf("got %+v", msg)
	}
}

func TestOutboundRouting(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	var got domain.OutboundMessage
	b.OnOutbound("telegram", func(msg domain.OutboundMessage) {
		got = msg
	})

	b.SendOutbound(domain.OutboundMessage{Channel: "telegram", ChatID: "42", Content: "2+2 = 4"})

	if got.ChatID != "42" || got.Content != "2+2 = 4" {
		t.Errorf("handler got %+v", got)
	}
}

func TestOutboundNoHandlerIsDropped(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	// Must not panic.
	b.SendOutbound(domain.OutboundMessage{Channel: "discord", Content: "ignored"})
}

func TestPublishAfterClose(t *testing.T) {
	b := New(10, testLogger())
	b.Close()

	// Must not panic on a closed bus.
	b.Publish(domain.InboundMessage{Channel: "cli", Content: "1+1"})
}
