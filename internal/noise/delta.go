package noise

import (
	"fmt"
	"math"
)

// Field names a nudgeable parameter.
type Field string

const (
	FieldLowpass  Field = "lowpass"
	FieldHighpass Field = "highpass"
	FieldVolume   Field = "volume"
)

// Direction is the sign of a nudge.
type Direction string

const (
	Increase Direction = "inc"
	Decrease Direction = "dec"
)

// Magnitude selects the step size of a nudge.
type Magnitude string

const (
	Fine   Magnitude = "fine"
	Coarse Magnitude = "coarse"
)

// Delta is one signed, sized adjustment of a single parameter.
type Delta struct {
	Field     Field
	Direction Direction
	Magnitude Magnitude
}

// String renders the delta the way control labels show it, e.g. "+500" or "-0.10".
func (d Delta) String() string {
	sign := "+"
	if d.Direction == Decrease {
		sign = "-"
	}
	step, _ := d.step()
	if d.Field == FieldVolume {
		return fmt.Sprintf("%s%.2f", sign, step)
	}
	return fmt.Sprintf("%s%d", sign, int(step))
}

// Validate reports whether every component of d is known.
func (d Delta) Validate() error {
	switch d.Field {
	case FieldLowpass, FieldHighpass, FieldVolume:
	default:
		return fmt.Errorf("noise: unknown field %q", d.Field)
	}
	switch d.Direction {
	case Increase, Decrease:
	default:
		return fmt.Errorf("noise: unknown direction %q", d.Direction)
	}
	switch d.Magnitude {
	case Fine, Coarse:
	default:
		return fmt.Errorf("noise: unknown magnitude %q", d.Magnitude)
	}
	return nil
}

// stepTable holds the fine and coarse step for each field.
var stepTable = map[Field][2]float64{
	FieldLowpass:  {100, 500},
	FieldHighpass: {10, 50},
	FieldVolume:   {0.02, 0.10},
}

func (d Delta) step() (float64, bool) {
	steps, ok := stepTable[d.Field]
	if !ok {
		return 0, false
	}
	if d.Magnitude == Coarse {
		return steps[1], true
	}
	return steps[0], true
}

// volumePrecision is the rounding grid applied to nudged volumes so that
// repeated ±step sequences land back on the exact starting value.
const volumePrecision = 1e9

// ApplyDelta nudges one field of s by the step for d and clamps the result.
// Any nudge, valid or not, marks the settings as custom.
func ApplyDelta(s *Settings, d Delta) error {
	s.Preset = CustomPreset
	if err := d.Validate(); err != nil {
		return err
	}
	step, _ := d.step()
	if d.Direction == Decrease {
		step = -step
	}

	switch d.Field {
	case FieldLowpass:
		s.LowpassHz = ClampFrequency(float64(s.LowpassHz) + step)
	case FieldHighpass:
		s.HighpassHz = ClampFrequency(float64(s.HighpassHz) + step)
	case FieldVolume:
		v := math.Round((s.Volume+step)*volumePrecision) / volumePrecision
		s.Volume = ClampVolume(v)
	}
	return nil
}

// ApplyPreset overwrites the four synthesis parameters of s from p and makes
// p the active preset.
func ApplyPreset(s *Settings, p Preset) {
	s.Color = p.Color
	s.LowpassHz = p.LowpassHz
	s.HighpassHz = p.HighpassHz
	s.Volume = p.Volume
	s.Preset = p.ID
}

// SetColor changes the noise color and marks the settings as custom.
func SetColor(s *Settings, c Color) {
	s.Color = c
	s.Preset = CustomPreset
}
