package domain

import "context"

// Channel is the interface for user-facing I/O (Telegram, Discord, Slack, CLI).
type Channel interface {
	Name() string
	Start(ctx context.Context, bus MessageBus) error
	Stop() error
}
