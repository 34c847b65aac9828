package responder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"calcbot/internal/calc"
	"calcbot/internal/domain"
	"calcbot/internal/metrics"
)

const (
	defaultConcurrency = 5
	defaultSendSlots   = 20
)

// ReminderText is sent when a message that deserves a reply contains no
// valid arithmetic.
const ReminderText = "🤖 I'm a calculator bot. Send me a math expression like 2+2, 3×4, or 10-5!"

// UsageRecorder receives per-message usage counters. Satisfied by
// stats.Store; may be nil.
type UsageRecorder interface {
	Record(ctx context.Context, channel, chatID string, expressions, errs int) error
}

// Loop consumes inbound messages from the bus, runs the arithmetic
// pipeline on each, and sends the replies. Messages are processed
// concurrently behind a semaphore; a second semaphore caps in-flight
// outbound sends across the whole process so a burst of results cannot
// overwhelm the messaging transport. Within one message, replies keep
// the left-to-right order of the expressions.
type Loop struct {
	bus         domain.MessageBus
	logger      *slog.Logger
	usage       UsageRecorder
	concurrency int
	sendSlots   chan struct{}
}

// LoopConfig holds the dependencies and tuning parameters for the loop.
type LoopConfig struct {
	Bus                domain.MessageBus
	Logger             *slog.Logger
	Usage              UsageRecorder // optional
	Concurrency        int           // max messages processed in parallel (default 5)
	MaxConcurrentSends int           // max in-flight outbound sends (default 20)
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.MaxConcurrentSends <= 0 {
		cfg.MaxConcurrentSends = defaultSendSlots
	}
	return &Loop{
		bus:         cfg.Bus,
		logger:      cfg.Logger,
		usage:       cfg.Usage,
		concurrency: cfg.Concurrency,
		sendSlots:   make(chan struct{}, cfg.MaxConcurrentSends),
	}
}

// Run consumes inbound messages until the context is cancelled or the
// bus is closed.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("responder loop started", "concurrency", l.concurrency)

	sem := make(chan struct{}, l.concurrency)
	inbound := l.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("responder loop stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				l.logger.Info("inbound channel closed, responder loop stopping")
				return
			}
			sem <- struct{}{}
			go func(m domain.InboundMessage) {
				defer func() { <-sem }()
				l.processMessage(ctx, m)
			}(msg)
		}
	}
}

// processMessage runs the pipeline over one message and delivers the
// replies in candidate order. Per-candidate failures never abort the
// siblings.
func (l *Loop) processMessage(ctx context.Context, msg domain.InboundMessage) {
	metrics.MessagesTotal.Inc()

	start := time.Now()
	results := calc.Solve(msg.Content)
	metrics.EvalLatency.Observe(time.Since(start).Seconds())

	l.logger.Debug("message processed",
		"channel", msg.Channel,
		"chat_id", msg.ChatID,
		"candidates", len(results),
	)

	var replied, errs int
	for _, res := range results {
		switch {
		case res.Err == nil:
			metrics.ExpressionsTotal.Inc()
			l.send(msg, res.Display, domain.KindResult)
			replied++
		case errors.Is(res.Err, calc.ErrDivisionByZero):
			metrics.DivisionByZeroTotal.Inc()
			l.send(msg, res.Display, domain.KindError)
			replied++
			errs++
		default:
			// Invalid at evaluation time: logged, never surfaced.
			metrics.InvalidTotal.Inc()
			l.logger.Error("expression failed evaluation",
				"expression", res.Expression,
				"channel", msg.Channel,
				"sender", msg.SenderID,
				"err", res.Err,
			)
		}
	}

	if replied == 0 && msg.AlwaysReply() {
		metrics.RemindersTotal.Inc()
		l.send(msg, ReminderText, domain.KindReminder)
	}

	if l.usage != nil {
		if err := l.usage.Record(ctx, msg.Channel, msg.ChatID, replied-errs, errs); err != nil {
			l.logger.Warn("usage recording failed", "err", err)
		}
	}
}

// send delivers one reply through the bus, gated by the send semaphore.
// Sends stay sequential within a message so reply order is preserved.
func (l *Loop) send(msg domain.InboundMessage, content, kind string) {
	l.sendSlots <- struct{}{}
	metrics.SendsInFlight.Inc()
	defer func() {
		metrics.SendsInFlight.Dec()
		<-l.sendSlots
	}()

	out := domain.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: content,
		Kind:    kind,
	}
	if !msg.Private {
		out.ReplyTo = msg.MessageID
	}
	l.bus.SendOutbound(out)
}
