// Package noise holds the synthesis parameter model and the preset catalog.
//
// Everything here is pure: no I/O, no locking. Callers that share a
// [Settings] value between goroutines must serialise access themselves
// (see session.Registry).
package noise

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownColor is returned by [ParseColor] for names outside the palette.
var ErrUnknownColor = errors.New("noise: unknown color")

// Color selects the spectral shape of the generated noise.
type Color string

const (
	Brown Color = "brown"
	Pink  Color = "pink"
	White Color = "white"
)

// Colors lists the supported colors in display order.
var Colors = []Color{Brown, Pink, White}

// IsValid reports whether c is a supported color.
func (c Color) IsValid() bool {
	switch c {
	case Brown, Pink, White:
		return true
	}
	return false
}

// Label is the human-facing name shown in selectors.
func (c Color) Label() string {
	switch c {
	case Brown:
		return "Brown (deep)"
	case Pink:
		return "Pink (balanced)"
	case White:
		return "White (bright)"
	default:
		return string(c)
	}
}

// ParseColor converts a case-insensitive color name into a [Color].
func ParseColor(s string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownColor, s)
	}
	return c, nil
}

// Defaults applied to every new session and to invalid inputs.
const (
	DefaultColor      = Brown
	DefaultLowpassHz  = 800
	DefaultHighpassHz = 10
	DefaultVolume     = 0.4
	DefaultPresetID   = "smooth-brown"

	// CustomPreset marks settings that no longer match any preset.
	CustomPreset = "custom"

	// MinFrequencyHz is the floor for both filter cutoffs.
	MinFrequencyHz = 1

	// MaxVolume is the ceiling for the output gain. Values above unity are
	// deliberately rejected.
	MaxVolume = 1.0
)

// Settings is the mutable synthesis parameter record of one session.
type Settings struct {
	Color      Color
	LowpassHz  int
	HighpassHz int
	Volume     float64

	// Preset is the active preset ID or [CustomPreset].
	Preset string
}

// DefaultSettings returns the settings every session starts with.
func DefaultSettings() Settings {
	return Settings{
		Color:      DefaultColor,
		LowpassHz:  DefaultLowpassHz,
		HighpassHz: DefaultHighpassHz,
		Volume:     DefaultVolume,
		Preset:     DefaultPresetID,
	}
}

// Clamped returns a copy of s with every parameter forced into its valid
// range. An invalid color falls back to [DefaultColor].
func (s Settings) Clamped() Settings {
	out := s
	if !out.Color.IsValid() {
		out.Color = DefaultColor
	}
	out.LowpassHz = ClampFrequency(float64(s.LowpassHz))
	out.HighpassHz = ClampFrequency(float64(s.HighpassHz))
	out.Volume = ClampVolume(s.Volume)
	return out
}

// ClampVolume maps v into [0, MaxVolume]. NaN and infinities resolve to
// [DefaultVolume].
func ClampVolume(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultVolume
	}
	return math.Min(math.Max(v, 0), MaxVolume)
}

// ClampFrequency floors f and enforces [MinFrequencyHz]. There is no upper
// bound; the generator decides what to do with extreme cutoffs. NaN and
// infinities resolve to [DefaultLowpassHz].
func ClampFrequency(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return DefaultLowpassHz
	}
	f = math.Floor(f)
	if f < MinFrequencyHz {
		return MinFrequencyHz
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}
