package config

import "time"

// ConfigDiff describes what changed between two configs.
// Hot-reloadable fields are reported individually; everything else is
// listed in RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	QuickSelectTimeoutChanged bool
	NewQuickSelectTimeout     time.Duration

	StatusChanged bool
	NewStatus     string

	// RestartRequired names changed settings that only take effect after a
	// restart, using their YAML paths.
	RestartRequired []string
}

// Changed reports whether any setting differs.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.QuickSelectTimeoutChanged || d.StatusChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.QuickSelect.Timeout != new.QuickSelect.Timeout {
		d.QuickSelectTimeoutChanged = true
		d.NewQuickSelectTimeout = new.QuickSelect.Timeout
	}
	if old.Discord.Status != new.Discord.Status {
		d.StatusChanged = true
		d.NewStatus = new.Discord.Status
	}

	restart := func(path string, changed bool) {
		if changed {
			d.RestartRequired = append(d.RestartRequired, path)
		}
	}
	restart("server.listen_addr", old.Server.ListenAddr != new.Server.ListenAddr)
	restart("discord.token", old.Discord.Token != new.Discord.Token)
	restart("discord.prefix", old.Discord.Prefix != new.Discord.Prefix)
	restart("generator.ffmpeg_path", old.Generator.FFmpegPath != new.Generator.FFmpegPath)
	restart("generator.realtime", old.Generator.RealtimeEnabled() != new.Generator.RealtimeEnabled())

	return d
}
