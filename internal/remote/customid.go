package remote

import (
	"strings"

	"github.com/MrWong99/soursound/internal/noise"
)

// Custom IDs carry the session key as their last colon-separated segment so
// that callbacks can be routed without any server-side lookup:
//
//	select:preset:<key>            value "preset:<id>"
//	select:color:<key>             value "color:<color>"
//	<field>:<dir>:<magnitude>:<key>
//	control:<action>:<key>
const (
	SelectPrefix = "select"
	SelectPreset = "preset"
	SelectColor  = "color"

	// SelectColorLegacy is the older spelling of [SelectColor], still
	// accepted on input.
	SelectColorLegacy = "type"

	ControlPrefix = "control"
)

// Action is a session transport control.
type Action string

const (
	ActionPlay  Action = "play"
	ActionStop  Action = "stop"
	ActionLeave Action = "leave"
)

// Actions lists the transport controls in display order.
var Actions = []Action{ActionPlay, ActionStop, ActionLeave}

func join(parts ...string) string { return strings.Join(parts, ":") }

// PresetSelectID is the custom ID of the preset selector for key.
func PresetSelectID(key string) string { return join(SelectPrefix, SelectPreset, key) }

// ColorSelectID is the custom ID of the color selector for key.
func ColorSelectID(key string) string { return join(SelectPrefix, SelectColor, key) }

// PresetValue is the select option value for preset id.
func PresetValue(id string) string { return join(SelectPreset, id) }

// ColorValue is the select option value for c.
func ColorValue(c noise.Color) string { return join(SelectColor, string(c)) }

// NudgeID is the custom ID of the button applying d to key.
func NudgeID(key string, d noise.Delta) string {
	return join(string(d.Field), string(d.Direction), string(d.Magnitude), key)
}

// ControlID is the custom ID of the transport button a for key.
func ControlID(key string, a Action) string { return join(ControlPrefix, string(a), key) }
