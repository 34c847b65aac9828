package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"calcbot/internal/domain"
)

// CLI implements domain.Channel for an interactive terminal session.
// Useful for trying the pipeline without any chat platform credentials.
type CLI struct {
	bus    domain.MessageBus
	logger *slog.Logger
	in     io.Reader
	out    io.Writer
}

type CLIConfig struct {
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &CLI{
		logger: cfg.Logger,
		in:     cfg.In,
		out:    cfg.Out,
	}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the interactive loop and blocks until context is cancelled
// or input ends.
func (c *CLI) Start(ctx context.Context, bus domain.MessageBus) error {
	c.bus = bus

	bus.OnOutbound("cli", func(msg domain.OutboundMessage) {
		_, _ = fmt.Fprintln(c.out, msg.Content)
	})

	_, _ = fmt.Fprintln(c.out, "calcbot CLI. Type some math (e.g. 2+2) and press Enter. Type /quit to exit.")
	_, _ = fmt.Fprint(c.out, "> ")

	scanner := bufio.NewScanner(c.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil // EOF
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			_, _ = fmt.Fprint(c.out, "> ")
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}

		c.bus.Publish(domain.InboundMessage{
			Channel:   "cli",
			ChatID:    "local",
			SenderID:  "user",
			Content:   line,
			Private:   true, // a terminal session is a one-to-one chat
			Timestamp: time.Now(),
		})

		// Give the responder a beat before re-printing the prompt.
		time.Sleep(50 * time.Millisecond)
		_, _ = fmt.Fprint(c.out, "> ")
	}
}

func (c *CLI) Stop() error {
	return nil
}
