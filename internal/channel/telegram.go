package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"calcbot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
)

// Telegram implements domain.Channel for the Telegram Bot API. It is the
// primary surface: long polling, typing indicators, inline keyboards on
// /start, and a delete button on calculator reminders so groups can keep
// themselves tidy.
type Telegram struct {
	token      string
	allowFrom  []int64 // Allowed user IDs (empty = allow all)
	updatesURL string
	supportURL string

	bot    *tgbotapi.BotAPI
	bus    domain.MessageBus
	logger *slog.Logger
}

type TelegramConfig struct {
	Token      string
	AllowFrom  []string // User IDs as strings
	UpdatesURL string
	SupportURL string
	Logger     *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	return &Telegram{
		token:      cfg.Token,
		allowFrom:  allowed,
		updatesURL: cfg.UpdatesURL,
		supportURL: cfg.SupportURL,
		logger:     cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram, registers the command menu, and polls for
// updates until the context is cancelled.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	t.bus = bus

	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	t.registerCommands()

	bus.OnOutbound("telegram", func(msg domain.OutboundMessage) {
		chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
		if err != nil {
			t.logger.Error("invalid chat ID for telegram outbound", "chatID", msg.ChatID, "err", err)
			return
		}
		t.deliver(chatID, msg)
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(update)
		}
	}
}

// Stop is a no-op: the bot stops when Start's context is cancelled.
func (t *Telegram) Stop() error {
	return nil
}

// registerCommands publishes the command menu so clients show /start and
// /help in the input field.
func (t *Telegram) registerCommands() {
	cmds := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Welcome message"},
		tgbotapi.BotCommand{Command: "help", Description: "How to use me"},
	)
	if _, err := t.bot.Request(cmds); err != nil {
		t.logger.Warn("telegram command registration failed", "err", err)
		return
	}
	t.logger.Info("telegram commands registered")
}

func (t *Telegram) handleUpdate(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		t.handleCallback(update.CallbackQuery)
		return
	}

	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !t.isAllowed(userID) {
		t.logger.Warn("unauthorized telegram user",
			"user_id", userID,
			"username", update.Message.From.UserName,
		)
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}

	if update.Message.IsCommand() {
		t.handleCommand(chatID, update.Message)
		return
	}

	replyToBot := update.Message.ReplyToMessage != nil &&
		update.Message.ReplyToMessage.From != nil &&
		update.Message.ReplyToMessage.From.ID == t.bot.Self.ID

	t.logger.Info("telegram message received",
		"user_id", userID,
		"chat_id", chatID,
		"text_len", len(text),
	)

	t.bus.Publish(domain.InboundMessage{
		Channel:    "telegram",
		ChatID:     strconv.FormatInt(chatID, 10),
		SenderID:   strconv.FormatInt(userID, 10),
		Content:    text,
		MessageID:  strconv.Itoa(update.Message.MessageID),
		Private:    update.Message.Chat.IsPrivate(),
		ReplyToBot: replyToBot,
		Timestamp:  time.Unix(int64(update.Message.Date), 0),
	})
}

// handleCallback answers inline button presses. The only button calcbot
// sends is the delete button under reminders.
func (t *Telegram) handleCallback(cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}

	callback := tgbotapi.NewCallback(cq.ID, "")
	_, _ = t.bot.Request(callback)

	if cq.Data == "delete_msg" {
		del := tgbotapi.NewDeleteMessage(cq.Message.Chat.ID, cq.Message.MessageID)
		if _, err := t.bot.Request(del); err != nil {
			t.logger.Error("telegram message delete failed", "err", err)
		}
	}
}

func (t *Telegram) handleCommand(chatID int64, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		// Same behavior as the bot menu deep link: only greet in private.
		if !msg.Chat.IsPrivate() {
			return
		}
		t.sendStart(chatID, msg.From.FirstName)
	case "help":
		t.sendWithRetry(tgbotapi.NewMessage(chatID,
			"💌 How to use me:\n\n"+
				"Send me math like:\n"+
				"➤ 4+4\n"+
				"➤ 8-2\n"+
				"➤ 5×5\n"+
				"➤ 9÷3\n"+
				"➤ 10/4\n\n"+
				"I will solve it for you!"))
	default:
		t.sendWithRetry(tgbotapi.NewMessage(chatID, "Unknown command. Type /help for available commands."))
	}
}

// sendStart greets the user and offers the Updates/Support links plus a
// deep link that adds the bot to a group.
func (t *Telegram) sendStart(chatID int64, firstName string) {
	text := fmt.Sprintf(
		"👋 Hi %s! I am a Calculator Bot.\n\n"+
			"Just send me any math question like 5×5, 20+30, or 10/4 and I will give you the answer.",
		firstName)

	var rows [][]tgbotapi.InlineKeyboardButton
	if t.updatesURL != "" && t.supportURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Updates", t.updatesURL),
			tgbotapi.NewInlineKeyboardButtonURL("Support", t.supportURL),
		))
	}
	addMeLink := fmt.Sprintf("https://t.me/%s?startgroup=true", t.bot.Self.UserName)
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL("Add Me To Your Group", addMeLink),
	))

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	t.sendWithRetry(msg)
}

// deliver sends one pipeline reply: typing action first, then the text,
// chunked if oversized, replying to the original message in groups.
// Reminders carry a delete button.
func (t *Telegram) deliver(chatID int64, out domain.OutboundMessage) {
	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, _ = t.bot.Send(typing)

	for _, chunk := range splitMessage(out.Content, telegramMaxMsgLen) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if out.ReplyTo != "" {
			if replyID, err := strconv.Atoi(out.ReplyTo); err == nil {
				msg.ReplyToMessageID = replyID
			}
		}
		if out.Kind == domain.KindReminder {
			msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", "delete_msg"),
				),
			)
		}
		t.sendWithRetry(msg)
	}
}

// sendWithRetry sends one message with backoff on transient errors and
// Telegram rate limits (HTTP 429).
func (t *Telegram) sendWithRetry(msg tgbotapi.MessageConfig) {
	for attempt := 0; attempt <= telegramMaxSendRetries; attempt++ {
		_, err := t.bot.Send(msg)
		if err == nil {
			return
		}

		errStr := err.Error()
		if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.logger.Warn("telegram rate limited, backing off",
				"retry_after", retryAfter, "attempt", attempt+1,
			)
			time.Sleep(retryAfter)
			continue
		}

		if attempt < telegramMaxSendRetries {
			backoff := time.Duration(attempt+1) * time.Second
			t.logger.Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}

		t.logger.Error("telegram send failed after retries", "err", err, "attempts", telegramMaxSendRetries+1)
	}
}

func (t *Telegram) isAllowed(userID int64) bool {
	if len(t.allowFrom) == 0 {
		return true // Empty list = allow all
	}
	for _, id := range t.allowFrom {
		if id == userID {
			return true
		}
	}
	return false
}

// splitMessage cuts text into chunks under maxLen, preferring newline
// boundaries. Calculator replies are short; this only matters for
// pathological inputs.
func splitMessage(text string, maxLen int) []string {
	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}
		cutAt := strings.LastIndex(text[:maxLen], "\n")
		if cutAt < maxLen/2 {
			cutAt = maxLen
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	return chunks
}
