package domain

import "time"

// Message kinds carried on OutboundMessage. Channels may render them
// differently (e.g. Telegram attaches a delete button to reminders).
const (
	KindResult   = "result"   // a solved expression, "expr = value"
	KindError    = "error"    // user-visible evaluation error (division by zero)
	KindReminder = "reminder" // "I'm a calculator bot" nudge
	KindText     = "text"     // plain text (command replies etc.)
)

type InboundMessage struct {
	Channel    string
	ChatID     string
	SenderID   string
	Content    string
	MessageID  string // platform message ID, echoed back as ReplyTo in groups
	Private    bool   // one-to-one chat with the bot
	ReplyToBot bool   // the message replies to one of the bot's own messages
	Timestamp  time.Time
}

// AlwaysReply reports whether the bot should answer even when the message
// contains no arithmetic (private chats and direct replies to the bot).
func (m InboundMessage) AlwaysReply() bool {
	return m.Private || m.ReplyToBot
}

type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
	Kind    string // result | error | reminder | text
	ReplyTo string // optional: message ID to reply to (group chats)
}
