package responder

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"calcbot/internal/bus"
	"calcbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// outboundCapture collects outbound messages for assertions.
type outboundCapture struct {
	mu   sync.Mutex
	msgs []domain.OutboundMessage
}

func (c *outboundCapture) handler(msg domain.OutboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *outboundCapture) waitFor(t *testing.T, n int) []domain.OutboundMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.msgs) >= n {
			out := make([]domain.OutboundMessage, len(c.msgs))
			copy(out, c.msgs)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t.Fatalf("timed out waiting for %d outbound messages, got %d: %+v", n, len(c.msgs), c.msgs)
	return nil
}

func (c *outboundCapture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func startLoop(t *testing.T) (*bus.InMemoryBus, *outboundCapture, context.CancelFunc) {
	t.Helper()
	b := bus.New(10, testLogger())
	capture := &outboundCapture{}
	b.OnOutbound("test", capture.handler)

	loop := NewLoop(LoopConfig{Bus: b, Logger: testLogger()})
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	t.Cleanup(func() {
		cancel()
		b.Close()
	})
	return b, capture, cancel
}

func TestLoop_RepliesInOrder(t *testing.T) {
	b, capture, _ := startLoop(t)

	b.Publish(domain.InboundMessage{
		Channel: "test", ChatID: "1", MessageID: "10",
		Content: "what is 4+4 and also 10×2?",
	})

	msgs := capture.waitFor(t, 2)
	if msgs[0].Content != "4+4 = 8" || msgs[1].Content != "10×2 = 20" {
		t.Errorf("replies out of order: %+v", msgs)
	}
	if msgs[0].Kind != domain.KindResult {
		t.Errorf("kind = %q, want %q", msgs[0].Kind, domain.KindResult)
	}
	if msgs[0].ReplyTo != "10" {
		t.Errorf("group reply should carry ReplyTo, got %q", msgs[0].ReplyTo)
	}
}

func TestLoop_DivisionByZeroIsUserVisible(t *testing.T) {
	b, capture, _ := startLoop(t)

	b.Publish(domain.InboundMessage{Channel: "test", ChatID: "1", Content: "5/0", Private: true})

	msgs := capture.waitFor(t, 1)
	if msgs[0].Content != "Error: Division by zero in '5/0'" {
		t.Errorf("content = %q", msgs[0].Content)
	}
	if msgs[0].Kind != domain.KindError {
		t.Errorf("kind = %q, want %q", msgs[0].Kind, domain.KindError)
	}
	if msgs[0].ReplyTo != "" {
		t.Errorf("private reply should not carry ReplyTo, got %q", msgs[0].ReplyTo)
	}
}

func TestLoop_ReminderInPrivateChat(t *testing.T) {
	b, capture, _ := startLoop(t)

	b.Publish(domain.InboundMessage{Channel: "test", ChatID: "1", Content: "hello there", Private: true})

	msgs := capture.waitFor(t, 1)
	if msgs[0].Kind != domain.KindReminder {
		t.Errorf("kind = %q, want %q", msgs[0].Kind, domain.KindReminder)
	}
	if msgs[0].Content != ReminderText {
		t.Errorf("content = %q", msgs[0].Content)
	}
}

func TestLoop_NoReminderInGroupChat(t *testing.T) {
	b, capture, _ := startLoop(t)

	b.Publish(domain.InboundMessage{Channel: "test", ChatID: "1", Content: "hello there"})
	// Follow with math so we can wait on something deterministic.
	b.Publish(domain.InboundMessage{Channel: "test", ChatID: "1", Content: "2+2"})

	msgs := capture.waitFor(t, 1)
	for _, m := range msgs {
		if m.Kind == domain.KindReminder {
			t.Errorf("unexpected reminder in group chat: %+v", m)
		}
	}
}

func TestLoop_ReplyToBotGetsReminder(t *testing.T) {
	b, capture, _ := startLoop(t)

	b.Publish(domain.InboundMessage{
		Channel: "test", ChatID: "1", Content: "thanks!", ReplyToBot: true,
	})

	msgs := capture.waitFor(t, 1)
	if msgs[0].Kind != domain.KindReminder {
		t.Errorf("kind = %q, want reminder", msgs[0].Kind)
	}
}

func TestLoop_IncompleteCandidateStaysSilent(t *testing.T) {
	b, capture, _ := startLoop(t)

	b.Publish(domain.InboundMessage{Channel: "test", ChatID: "1", Content: "send me 5+"})
	b.Publish(domain.InboundMessage{Channel: "test", ChatID: "1", Content: "9/3"})

	msgs := capture.waitFor(t, 1)
	if msgs[0].Content != "9/3 = 3" {
		t.Errorf("got %+v, want only the 9/3 reply", msgs)
	}
	if capture.count() != 1 {
		t.Errorf("expected exactly one reply, got %d", capture.count())
	}
}
