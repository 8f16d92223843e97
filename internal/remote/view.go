// Package remote renders the per-session control panel and keeps the posted
// panel in sync with session state.
//
// [Render] is a pure function from settings to a [View]; [Embed] and
// [Components] turn a View into Discord payloads. The [Synchronizer] edits
// the last posted panel in place and falls back to posting a fresh one when
// the old message is gone.
package remote

import (
	"fmt"

	"github.com/MrWong99/soursound/internal/noise"
)

// Panel text.
const (
	Title       = "🔊 SourSound — Remote Control"
	Footer      = "Fine buttons change small steps; Coarse buttons change larger steps."
	CustomLabel = "Custom"

	PresetPlaceholder = "Choose preset"
	ColorPlaceholder  = "Noise type"

	// AccentColor is the embed sidebar color (#00f7ff).
	AccentColor = 0x00F7FF

	// optionDescriptionMax caps preset descriptions in the selector.
	optionDescriptionMax = 50
)

// Style is a button style.
type Style int

const (
	StyleSecondary Style = iota
	StylePrimary
	StyleSuccess
	StyleDanger
)

// Field is one name/value line of the panel.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Option is one entry of a selector.
type Option struct {
	Label       string
	Value       string
	Description string
}

// Select is a dropdown.
type Select struct {
	CustomID    string
	Placeholder string
	Options     []Option
}

// Button is a clickable control.
type Button struct {
	Label    string
	CustomID string
	Style    Style
}

// View is the rendered control panel of one session.
type View struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      string

	Presets Select
	Colors  Select

	// Rows are the button rows: lowpass, highpass, then volume followed by
	// the transport controls.
	Rows [][]Button
}

var (
	lowpassButtons = []noise.Delta{
		{Field: noise.FieldLowpass, Direction: noise.Decrease, Magnitude: noise.Coarse},
		{Field: noise.FieldLowpass, Direction: noise.Decrease, Magnitude: noise.Fine},
		{Field: noise.FieldLowpass, Direction: noise.Increase, Magnitude: noise.Fine},
		{Field: noise.FieldLowpass, Direction: noise.Increase, Magnitude: noise.Coarse},
	}
	highpassButtons = []noise.Delta{
		{Field: noise.FieldHighpass, Direction: noise.Decrease, Magnitude: noise.Coarse},
		{Field: noise.FieldHighpass, Direction: noise.Decrease, Magnitude: noise.Fine},
		{Field: noise.FieldHighpass, Direction: noise.Increase, Magnitude: noise.Fine},
		{Field: noise.FieldHighpass, Direction: noise.Increase, Magnitude: noise.Coarse},
	}
	volumeButtons = []noise.Delta{
		{Field: noise.FieldVolume, Direction: noise.Decrease, Magnitude: noise.Coarse},
		{Field: noise.FieldVolume, Direction: noise.Increase, Magnitude: noise.Coarse},
	}
	actionLabels = map[Action]string{
		ActionPlay:  "▶ Play",
		ActionStop:  "⏹ Stop",
		ActionLeave: "👋 Leave",
	}
	actionStyles = map[Action]Style{
		ActionPlay:  StyleSuccess,
		ActionStop:  StyleDanger,
		ActionLeave: StyleSecondary,
	}
)

// Render builds the control panel for session key. It has no side effects.
func Render(key string, s noise.Settings, catalog *noise.Catalog) View {
	presetLabel := CustomLabel
	var description string
	if p, ok := catalog.ByID(s.Preset); ok {
		presetLabel = p.Label
		description = p.Description
	}

	v := View{
		Title:       Title,
		Description: description,
		Color:       AccentColor,
		Footer:      Footer,
		Fields: []Field{
			{Name: "Preset", Value: presetLabel, Inline: true},
			{Name: "Noise Type", Value: string(s.Color), Inline: true},
			{Name: "Volume", Value: fmt.Sprintf("%.2f", s.Volume), Inline: true},
			{Name: "Lowpass", Value: fmt.Sprintf("%d Hz", s.LowpassHz), Inline: true},
			{Name: "Highpass", Value: fmt.Sprintf("%d Hz", s.HighpassHz), Inline: true},
		},
		Presets: Select{CustomID: PresetSelectID(key), Placeholder: PresetPlaceholder},
		Colors:  Select{CustomID: ColorSelectID(key), Placeholder: ColorPlaceholder},
	}

	for _, p := range catalog.All() {
		v.Presets.Options = append(v.Presets.Options, Option{
			Label:       p.Label,
			Value:       PresetValue(p.ID),
			Description: truncate(p.Description, optionDescriptionMax),
		})
	}
	for _, c := range noise.Colors {
		v.Colors.Options = append(v.Colors.Options, Option{Label: c.Label(), Value: ColorValue(c)})
	}

	transport := nudgeButtons(key, volumeButtons)
	for _, a := range Actions {
		transport = append(transport, Button{
			Label:    actionLabels[a],
			CustomID: ControlID(key, a),
			Style:    actionStyles[a],
		})
	}
	v.Rows = [][]Button{
		nudgeButtons(key, lowpassButtons),
		nudgeButtons(key, highpassButtons),
		transport,
	}
	return v
}

func nudgeButtons(key string, deltas []noise.Delta) []Button {
	out := make([]Button, 0, len(deltas)+len(Actions))
	for _, d := range deltas {
		style := StyleSecondary
		if d.Direction == noise.Increase {
			style = StylePrimary
		}
		out = append(out, Button{Label: d.String(), CustomID: NudgeID(key, d), Style: style})
	}
	return out
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
