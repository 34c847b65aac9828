package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"calcbot/internal/bus"
	"calcbot/internal/calc"
	"calcbot/internal/channel"
	"calcbot/internal/config"
	"calcbot/internal/domain"
	"calcbot/internal/health"
	"calcbot/internal/responder"
	"calcbot/internal/stats"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:     "calcbot",
		Short:   "calcbot: calculator chat bot",
		Long:    "calcbot finds arithmetic in chat messages and replies with the answers. Telegram, Discord, Slack, WebSocket, and CLI surfaces.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ~/.calcbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(evalCmd())
	root.AddCommand(statusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func evalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval [text...]",
		Short: "Run the pipeline once over the given text and print the replies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := calc.Solve(strings.Join(args, " "))
			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "no expressions found")
				return nil
			}
			for _, res := range results {
				if res.Err != nil && !errors.Is(res.Err, calc.ErrDivisionByZero) {
					fmt.Fprintf(os.Stderr, "skipped %s: %v\n", res.Expression, res.Err)
					continue
				}
				fmt.Println(res.Display)
			}
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show config and usage totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}

			logger.Info("channels",
				"telegram", cfg.Channels.Telegram.Enabled,
				"discord", cfg.Channels.Discord.Enabled,
				"slack", cfg.Channels.Slack.Enabled,
				"websocket", cfg.Channels.WebSocket.Enabled,
				"cli", cfg.Channels.CLI.Enabled,
			)
			logger.Info("health", "enabled", cfg.Health.Enabled, "host", cfg.Health.Host, "port", cfg.Health.Port)

			if cfg.Stats.Enabled {
				store, err := stats.NewStore(cfg.Stats.DBPath, logger)
				if err != nil {
					return fmt.Errorf("stats store: %w", err)
				}
				defer store.Close()
				totals, err := store.Totals(cmd.Context())
				if err != nil {
					return err
				}
				logger.Info("usage",
					"chats", totals.Chats,
					"messages", totals.Messages,
					"expressions", totals.Expressions,
					"errors", totals.Errors,
				)
			}
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot (all enabled channels + health server)",
		Long:  "Starts the responder loop, all enabled channels, and the health endpoint. Press Ctrl+C to stop.",
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.General.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Message bus (closed during graceful shutdown below)
	messageBus := bus.New(100, logger)

	var usage responder.UsageRecorder
	var statsStore *stats.Store
	if cfg.Stats.Enabled {
		statsStore, err = stats.NewStore(cfg.Stats.DBPath, logger)
		if err != nil {
			return fmt.Errorf("stats store: %w", err)
		}
		defer statsStore.Close()
		usage = statsStore
	}

	loop := responder.NewLoop(responder.LoopConfig{
		Bus:                messageBus,
		Logger:             logger,
		Usage:              usage,
		Concurrency:        cfg.General.MaxConcurrentMessages,
		MaxConcurrentSends: cfg.General.MaxConcurrentSends,
	})
	go loop.Run(ctx)

	channels := enabledChannels(cfg)
	if len(channels) == 0 {
		return fmt.Errorf("no channels enabled; set a telegram token (or BOT_TOKEN) or enable the cli channel in %s", cfgPath)
	}
	for _, ch := range channels {
		go func() {
			if err := ch.Start(ctx, messageBus); err != nil {
				logger.Error("channel error", "channel", ch.Name(), "err", err)
			}
		}()
		logger.Info("channel enabled", "channel", ch.Name())
	}

	if cfg.Health.Enabled {
		healthSrv := health.NewServer(health.Config{
			Host:   cfg.Health.Host,
			Port:   cfg.Health.Port,
			Logger: logger,
		})
		go func() {
			if err := healthSrv.Start(ctx); err != nil {
				logger.Error("health server error", "err", err)
			}
		}()
	}

	logger.Info("calcbot started. Press Ctrl+C to stop.", "version", version)

	<-ctx.Done()
	logger.Info("shutting down...")

	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, ch := range channels {
			if err := ch.Stop(); err != nil {
				logger.Warn("channel stop failed", "channel", ch.Name(), "err", err)
			}
		}
		messageBus.Close()
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		return fmt.Errorf("shutdown timed out")
	}
}

// enabledChannels builds the channel list from config. Telegram needs a
// token to count as enabled.
func enabledChannels(cfg *config.Config) []domain.Channel {
	var channels []domain.Channel

	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		channels = append(channels, channel.NewTelegram(channel.TelegramConfig{
			Token:      cfg.Channels.Telegram.Token,
			AllowFrom:  cfg.Channels.Telegram.AllowFrom,
			UpdatesURL: cfg.Channels.Telegram.UpdatesURL,
			SupportURL: cfg.Channels.Telegram.SupportURL,
			Logger:     logger,
		}))
	}
	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token != "" {
		channels = append(channels, channel.NewDiscord(channel.DiscordConfig{
			Token:   cfg.Channels.Discord.Token,
			GuildID: cfg.Channels.Discord.GuildID,
			Logger:  logger,
		}))
	}
	if cfg.Channels.Slack.Enabled && cfg.Channels.Slack.BotToken != "" {
		channels = append(channels, channel.NewSlack(channel.SlackConfig{
			BotToken: cfg.Channels.Slack.BotToken,
			AppToken: cfg.Channels.Slack.AppToken,
			Logger:   logger,
		}))
	}
	if cfg.Channels.WebSocket.Enabled {
		channels = append(channels, channel.NewWebSocketChannel(channel.WSConfig{
			Port:   cfg.Channels.WebSocket.Port,
			Path:   cfg.Channels.WebSocket.Path,
			Logger: logger,
		}))
	}
	if cfg.Channels.CLI.Enabled {
		channels = append(channels, channel.NewCLI(channel.CLIConfig{Logger: logger}))
	}

	return channels
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
