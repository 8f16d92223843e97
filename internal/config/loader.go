package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and the
// token environment fallback, and validates the result. An empty document
// yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	ApplyEnv(cfg, os.Getenv)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv fills values that may come from the environment.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if cfg.Discord.Token == "" {
		cfg.Discord.Token = strings.TrimSpace(getenv(TokenEnv))
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if addr := cfg.Server.ListenAddr; addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errs = append(errs, fmt.Errorf("server.listen_addr %q is invalid: %w", addr, err))
		}
	}

	// Discord
	if cfg.Discord.Token == "" {
		errs = append(errs, fmt.Errorf("discord.token is required (or set %s)", TokenEnv))
	}
	if strings.ContainsFunc(cfg.Discord.Prefix, isSpace) {
		errs = append(errs, fmt.Errorf("discord.prefix %q must not contain whitespace", cfg.Discord.Prefix))
	}

	// Generator
	if strings.TrimSpace(cfg.Generator.FFmpegPath) != cfg.Generator.FFmpegPath {
		errs = append(errs, fmt.Errorf("generator.ffmpeg_path %q has surrounding whitespace", cfg.Generator.FFmpegPath))
	}

	// Quick select
	if cfg.QuickSelect.Timeout < 0 {
		errs = append(errs, fmt.Errorf("quick_select.timeout %s must not be negative", cfg.QuickSelect.Timeout))
	}

	return errors.Join(errs...)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
