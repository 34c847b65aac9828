package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:              "info",
			MaxConcurrentMessages: 5,
			MaxConcurrentSends:    20,
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled: false,
			},
			Discord: DiscordConfig{
				Enabled: false,
			},
			Slack: SlackConfig{
				Enabled: false,
			},
			WebSocket: WebSocketConfig{
				Enabled: false,
				Port:    8081,
				Path:    "/ws",
			},
			CLI: CLIConfig{
				Enabled: true,
			},
		},
		Health: HealthConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8000,
		},
		Stats: StatsConfig{
			Enabled: true,
			DBPath:  "~/.calcbot/stats.db",
		},
	}
}
