package channel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"calcbot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

const discordMaxMsgLen = 2000

// Discord implements domain.Channel for Discord.
type Discord struct {
	token   string
	guildID string
	session *discordgo.Session
	bus     domain.MessageBus
	logger  *slog.Logger
}

// DiscordConfig configures the Discord channel.
type DiscordConfig struct {
	Token   string
	GuildID string // optional: restrict to one guild
	Logger  *slog.Logger
}

func NewDiscord(cfg DiscordConfig) *Discord {
	return &Discord{
		token:   cfg.Token,
		guildID: cfg.GuildID,
		logger:  cfg.Logger,
	}
}

func (d *Discord) Name() string { return "discord" }

// Start connects to Discord using a bot token and listens for messages.
func (d *Discord) Start(ctx context.Context, bus domain.MessageBus) error {
	d.bus = bus

	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	d.session = session

	bus.OnOutbound("discord", func(msg domain.OutboundMessage) {
		if msg.Content == "" {
			return
		}
		d.sendMessage(msg.ChatID, msg.Content, msg.ReplyTo)
	})

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		// Ignore the bot's own messages.
		if m.Author.ID == s.State.User.ID {
			return
		}
		if d.guildID != "" && m.GuildID != "" && m.GuildID != d.guildID {
			return
		}

		replyToBot := m.ReferencedMessage != nil &&
			m.ReferencedMessage.Author != nil &&
			m.ReferencedMessage.Author.ID == s.State.User.ID

		d.logger.Info("discord message received",
			"author", m.Author.Username,
			"channel_id", m.ChannelID,
			"content_len", len(m.Content),
		)

		bus.Publish(domain.InboundMessage{
			Channel:    "discord",
			ChatID:     m.ChannelID,
			SenderID:   m.Author.ID,
			Content:    m.Content,
			MessageID:  m.ID,
			Private:    m.GuildID == "", // DMs have no guild
			ReplyToBot: replyToBot,
			Timestamp:  time.Now(),
		})
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}
	d.logger.Info("discord bot connected", "user", session.State.User.Username)

	<-ctx.Done()
	d.logger.Info("discord channel stopping")
	return session.Close()
}

func (d *Discord) Stop() error {
	return nil
}

func (d *Discord) sendMessage(channelID, content, replyTo string) {
	for _, chunk := range splitMessage(content, discordMaxMsgLen) {
		var err error
		if replyTo != "" {
			_, err = d.session.ChannelMessageSendReply(channelID, chunk, &discordgo.MessageReference{
				MessageID: replyTo,
				ChannelID: channelID,
			})
		} else {
			_, err = d.session.ChannelMessageSend(channelID, chunk)
		}
		if err != nil {
			d.logger.Error("discord send failed", "channel_id", channelID, "err", err)
			return
		}
	}
}
