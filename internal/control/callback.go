package control

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/soursound/internal/noise"
	"github.com/MrWong99/soursound/internal/remote"
)

var (
	// ErrInvalidControl is returned for callbacks that match no known shape.
	ErrInvalidControl = errors.New("control: invalid control")

	// ErrNoSelection is returned for selector callbacks without a value.
	ErrNoSelection = errors.New("control: no selection")
)

// Callback is a decoded control-panel interaction. The concrete type is one
// of [PresetSelect], [ColorSelect], [Nudge] or [SessionControl].
type Callback interface {
	// SessionKey is the session the control was rendered for.
	SessionKey() string
	callback()
}

// PresetSelect chooses a preset from the selector.
type PresetSelect struct {
	Key      string
	PresetID string
}

// ColorSelect chooses a noise color from the selector.
type ColorSelect struct {
	Key   string
	Color noise.Color
}

// Nudge is a parameter step button.
type Nudge struct {
	Key   string
	Delta noise.Delta
}

// SessionControl is a play, stop or leave button.
type SessionControl struct {
	Key    string
	Action remote.Action
}

func (c PresetSelect) SessionKey() string   { return c.Key }
func (c ColorSelect) SessionKey() string    { return c.Key }
func (c Nudge) SessionKey() string          { return c.Key }
func (c SessionControl) SessionKey() string { return c.Key }

func (PresetSelect) callback()   {}
func (ColorSelect) callback()    {}
func (Nudge) callback()          {}
func (SessionControl) callback() {}

func invalid(customID string) error {
	return fmt.Errorf("%w: %q", ErrInvalidControl, customID)
}

// DecodeCallback turns a component custom ID and its selected values into a
// [Callback]. Anything that does not match a known shape yields an error
// wrapping [ErrInvalidControl]; a selector submitted without a value yields
// [ErrNoSelection].
func DecodeCallback(customID string, values []string) (Callback, error) {
	parts := strings.Split(customID, ":")
	for _, p := range parts {
		if p == "" {
			return nil, invalid(customID)
		}
	}

	switch {
	case len(parts) == 3 && parts[0] == remote.SelectPrefix:
		return decodeSelect(customID, parts[1], parts[2], values)

	case len(parts) == 3 && parts[0] == remote.ControlPrefix:
		a := remote.Action(parts[1])
		switch a {
		case remote.ActionPlay, remote.ActionStop, remote.ActionLeave:
			return SessionControl{Key: parts[2], Action: a}, nil
		}
		return nil, invalid(customID)

	case len(parts) == 4:
		d := noise.Delta{
			Field:     noise.Field(parts[0]),
			Direction: noise.Direction(parts[1]),
			Magnitude: noise.Magnitude(parts[2]),
		}
		if d.Validate() != nil {
			return nil, invalid(customID)
		}
		return Nudge{Key: parts[3], Delta: d}, nil
	}
	return nil, invalid(customID)
}

func decodeSelect(customID, kind, key string, values []string) (Callback, error) {
	if kind != remote.SelectPreset && kind != remote.SelectColor && kind != remote.SelectColorLegacy {
		return nil, invalid(customID)
	}
	if len(values) == 0 {
		return nil, ErrNoSelection
	}
	tag, val, ok := strings.Cut(values[0], ":")
	if !ok || val == "" {
		return nil, invalid(customID)
	}

	if kind == remote.SelectPreset {
		if tag != remote.SelectPreset {
			return nil, invalid(customID)
		}
		return PresetSelect{Key: key, PresetID: val}, nil
	}
	if tag != remote.SelectColor && tag != remote.SelectColorLegacy {
		return nil, invalid(customID)
	}
	c, err := noise.ParseColor(val)
	if err != nil {
		return nil, invalid(customID)
	}
	return ColorSelect{Key: key, Color: c}, nil
}
