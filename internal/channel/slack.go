package channel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"calcbot/internal/domain"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// Slack implements domain.Channel for Slack using Socket Mode.
type Slack struct {
	botToken string
	appToken string
	client   *slack.Client
	socket   *socketmode.Client
	bus      domain.MessageBus
	logger   *slog.Logger
	botUID   string // the bot's own user ID, to avoid replying to self
}

// SlackConfig configures the Slack channel.
type SlackConfig struct {
	BotToken string
	AppToken string
	Logger   *slog.Logger
}

func NewSlack(cfg SlackConfig) *Slack {
	return &Slack{
		botToken: cfg.BotToken,
		appToken: cfg.AppToken,
		logger:   cfg.Logger,
	}
}

func (s *Slack) Name() string { return "slack" }

// Start connects via Socket Mode and listens for message events.
func (s *Slack) Start(ctx context.Context, bus domain.MessageBus) error {
	s.bus = bus

	api := slack.New(
		s.botToken,
		slack.OptionAppLevelToken(s.appToken),
	)
	s.client = api

	authResp, err := api.AuthTest()
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	s.botUID = authResp.UserID
	s.logger.Info("slack bot connected", "user", authResp.User, "user_id", authResp.UserID)

	socketClient := socketmode.New(api)
	s.socket = socketClient

	bus.OnOutbound("slack", func(msg domain.OutboundMessage) {
		if msg.Content == "" {
			return
		}
		s.sendMessage(msg.ChatID, msg.Content, msg.ReplyTo)
	})

	go func() {
		for evt := range socketClient.Events {
			switch evt.Type {
			case socketmode.EventTypeEventsAPI:
				eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				socketClient.Ack(*evt.Request)
				s.handleEventsAPI(eventsAPIEvent)

			default:
				// Acknowledge unknown events to prevent Socket Mode disconnection.
				if evt.Request != nil {
					socketClient.Ack(*evt.Request)
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- socketClient.RunContext(ctx)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("slack bot disconnecting")
		return nil
	case err := <-errCh:
		return fmt.Errorf("slack socket mode: %w", err)
	}
}

func (s *Slack) Stop() error {
	return nil
}

func (s *Slack) handleEventsAPI(event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	// Ignore the bot's own messages and message_changed subtypes.
	if ev.User == s.botUID || ev.User == "" || ev.SubType != "" {
		return
	}

	s.logger.Info("slack message received",
		"user", ev.User,
		"channel", ev.Channel,
		"content_len", len(ev.Text),
	)

	s.bus.Publish(domain.InboundMessage{
		Channel:   "slack",
		ChatID:    ev.Channel,
		SenderID:  ev.User,
		Content:   ev.Text,
		MessageID: ev.TimeStamp,
		Private:   ev.ChannelType == "im",
		Timestamp: time.Now(),
	})
}

// sendMessage posts a reply; in channels it threads under the original
// message (Slack's equivalent of a reply).
func (s *Slack) sendMessage(channelID, content, replyTo string) {
	opts := []slack.MsgOption{slack.MsgOptionText(content, false)}
	if replyTo != "" {
		opts = append(opts, slack.MsgOptionTS(replyTo))
	}
	if _, _, err := s.client.PostMessage(channelID, opts...); err != nil {
		s.logger.Error("slack send failed", "channel", channelID, "err", err)
	}
}
