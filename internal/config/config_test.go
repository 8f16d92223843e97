package config_test

import (
	"log/slog"
	"testing"

	"github.com/MrWong99/soursound/internal/config"
)

func TestLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level config.LogLevel
		valid bool
		slog  slog.Level
	}{
		{config.LogDebug, true, slog.LevelDebug},
		{config.LogInfo, true, slog.LevelInfo},
		{config.LogWarn, true, slog.LevelWarn},
		{config.LogError, true, slog.LevelError},
		{"verbose", false, slog.LevelInfo},
		{"", false, slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			t.Parallel()
			if got := tt.level.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
			if got := tt.level.Level(); got != tt.slog {
				t.Errorf("Level() = %v, want %v", got, tt.slog)
			}
		})
	}
}

func TestRealtimeEnabled(t *testing.T) {
	t.Parallel()
	on, off := true, false
	if !(config.GeneratorConfig{}).RealtimeEnabled() {
		t.Error("unset realtime should default to true")
	}
	if !(config.GeneratorConfig{Realtime: &on}).RealtimeEnabled() {
		t.Error("realtime: true reported disabled")
	}
	if (config.GeneratorConfig{Realtime: &off}).RealtimeEnabled() {
		t.Error("realtime: false reported enabled")
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server:  config.ServerConfig{LogLevel: config.LogWarn},
		Discord: config.DiscordConfig{Prefix: "!", Status: "custom"},
	}
	config.ApplyDefaults(cfg)

	if cfg.Server.LogLevel != config.LogWarn || cfg.Discord.Prefix != "!" || cfg.Discord.Status != "custom" {
		t.Errorf("explicit values overwritten: %+v", cfg)
	}
	if cfg.Generator.FFmpegPath != config.DefaultFFmpegPath {
		t.Errorf("ffmpeg_path = %q", cfg.Generator.FFmpegPath)
	}
	if cfg.QuickSelect.Timeout != config.DefaultQuickSelectTimeout {
		t.Errorf("timeout = %v", cfg.QuickSelect.Timeout)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()
	env := map[string]string{config.TokenEnv: "secret"}

	cfg := &config.Config{}
	config.ApplyEnv(cfg, func(k string) string { return env[k] })
	if cfg.Discord.Token != "secret" {
		t.Errorf("token = %q", cfg.Discord.Token)
	}

	cfg = &config.Config{Discord: config.DiscordConfig{Token: "file"}}
	config.ApplyEnv(cfg, func(k string) string { return env[k] })
	if cfg.Discord.Token != "file" {
		t.Errorf("token = %q, file value must win", cfg.Discord.Token)
	}
}
