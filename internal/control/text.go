package control

import (
	"fmt"
	"strings"

	"github.com/MrWong99/soursound/internal/noise"
)

// User-facing replies.
const (
	msgJoinVoice        = "Join a voice channel first."
	msgJoinVoiceToPlay  = "Join a voice channel to play audio."
	msgInvalidControl   = "Invalid control."
	msgNoSelection      = "No selection."
	msgPresetNotFound   = "Preset not found."
	msgStopped          = "Stopped playback."
	msgLeft             = "Left the voice channel."
	msgUpdated          = "Updated setting."
	msgPlaying          = "Playing (settings applied)."
	msgGeneratorFailed  = "Couldn't start the noise generator."
	msgVoiceJoinFailed  = "Couldn't join your voice channel."
	msgWrongSession     = "This control belongs to another server."
	msgRemoteOpenFailed = "Couldn't post the remote control here."
)

func msgNowPlaying(p noise.Preset) string { return fmt.Sprintf("Now playing **%s**", p.Label) }
func msgApplied(p noise.Preset) string    { return fmt.Sprintf("Applied preset **%s**", p.Label) }
func msgColorSet(c noise.Color) string    { return fmt.Sprintf("Noise type set to %s", c) }

func msgPresetUnknown(prefix string, suggestion *noise.Preset) string {
	s := fmt.Sprintf("%s Try %snoises for a menu.", msgPresetNotFound, prefix)
	if suggestion != nil {
		s += fmt.Sprintf(" Did you mean **%s**?", suggestion.ID)
	}
	return s
}

// helpText lists the commands for prefix and the preset names of catalog.
func helpText(prefix string, catalog *noise.Catalog) string {
	var b strings.Builder
	b.WriteString("```\n")
	fmt.Fprintf(&b, "SourSound Commands (Prefix: %s)\n\n", prefix)
	rows := [][2]string{
		{"remote", "open the interactive remote control panel"},
		{"noises", "open the quick presets selector (reaction menu)"},
		{"play <name>", "play a preset by name (e.g. " + prefix + "play soft-breeze)"},
		{"stop", "stop playback"},
		{"leave", "disconnect bot"},
		{"status", "show current settings"},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "%-16s → %s\n", prefix+r[0], r[1])
	}
	b.WriteString("\nPreset names:\n")
	b.WriteString(strings.Join(catalog.IDs(), ", "))
	fmt.Fprintf(&b, "\n\nUse %sremote for fine control (lowpass, highpass, volume, type).\n", prefix)
	b.WriteString("```")
	return b.String()
}
