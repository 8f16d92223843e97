// Package config provides the configuration schema, loader and hot-reload
// watcher for the SourSound bot.
package config

import (
	"log/slog"
	"time"
)

// Defaults applied by [ApplyDefaults].
const (
	DefaultLogLevel           = LogInfo
	DefaultPrefix             = "S"
	DefaultStatus             = "Shelp | Sremote"
	DefaultFFmpegPath         = "ffmpeg"
	DefaultQuickSelectTimeout = 120 * time.Second

	// TokenEnv is consulted when discord.token is empty.
	TokenEnv = "DISCORD_BOT_TOKEN"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a slog level. Unknown values map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the root configuration structure for SourSound.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Discord     DiscordConfig     `yaml:"discord"`
	Generator   GeneratorConfig   `yaml:"generator"`
	QuickSelect QuickSelectConfig `yaml:"quick_select"`
}

// ServerConfig holds the HTTP observability endpoint and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address serving /healthz, /readyz and /metrics
	// (e.g. ":9090"). Empty disables the HTTP server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// DiscordConfig holds the bot identity and chat surface settings.
type DiscordConfig struct {
	// Token is the bare bot token. Falls back to $DISCORD_BOT_TOKEN.
	Token string `yaml:"token"`

	// Prefix starts every typed command (case-sensitive).
	Prefix string `yaml:"prefix"`

	// Status is the presence text.
	Status string `yaml:"status"`
}

// GeneratorConfig configures the external noise generator.
type GeneratorConfig struct {
	// FFmpegPath is the ffmpeg binary, resolved through $PATH when bare.
	FFmpegPath string `yaml:"ffmpeg_path"`

	// Realtime paces ffmpeg output at playback speed (-re). Defaults to true.
	Realtime *bool `yaml:"realtime"`
}

// RealtimeEnabled reports the effective realtime setting.
func (g GeneratorConfig) RealtimeEnabled() bool {
	return g.Realtime == nil || *g.Realtime
}

// QuickSelectConfig configures the reaction-driven preset menu.
type QuickSelectConfig struct {
	// Timeout is how long a menu accepts reactions.
	Timeout time.Duration `yaml:"timeout"`
}

// ApplyDefaults fills unset fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = DefaultLogLevel
	}
	if cfg.Discord.Prefix == "" {
		cfg.Discord.Prefix = DefaultPrefix
	}
	if cfg.Discord.Status == "" {
		cfg.Discord.Status = DefaultStatus
	}
	if cfg.Generator.FFmpegPath == "" {
		cfg.Generator.FFmpegPath = DefaultFFmpegPath
	}
	if cfg.QuickSelect.Timeout == 0 {
		cfg.QuickSelect.Timeout = DefaultQuickSelectTimeout
	}
}
