package noise

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
)

// ErrUnknownPreset is returned when a preset name matches nothing in the catalog.
var ErrUnknownPreset = errors.New("noise: unknown preset")

// Preset is an immutable named parameter bundle.
type Preset struct {
	ID          string
	Label       string
	Description string
	Color       Color
	LowpassHz   int
	HighpassHz  int
	Volume      float64
}

// Catalog is an ordered, read-only list of presets. Order matters for the
// cyclic next/previous navigation of the quick-select menu.
type Catalog struct {
	presets []Preset
}

// builtinPresets ship with every build.
var builtinPresets = []Preset{
	{
		ID:          "deep-rumble",
		Label:       "Deep Rumble",
		Description: "Very low, deep, sub-bass rumble",
		Color:       Brown,
		LowpassHz:   250,
		HighpassHz:  2,
		Volume:      0.6,
	},
	{
		ID:          "soft-breeze",
		Label:       "Soft Breeze",
		Description: "Soft, airy, great for sleeping",
		Color:       Pink,
		LowpassHz:   1500,
		HighpassHz:  0,
		Volume:      0.3,
	},
	{
		ID:          "smooth-brown",
		Label:       "Smooth Brown",
		Description: "Balanced brown noise, warm & steady",
		Color:       Brown,
		LowpassHz:   800,
		HighpassHz:  10,
		Volume:      0.4,
	},
	{
		ID:          "wind-tunnel",
		Label:       "Wind Tunnel",
		Description: "Whooshing like inside an airplane cabin",
		Color:       Pink,
		LowpassHz:   3000,
		HighpassHz:  40,
		Volume:      0.5,
	},
	{
		ID:          "bright-hiss",
		Label:       "Bright Hiss",
		Description: "Sharper, high-frequency static-like hiss",
		Color:       White,
		LowpassHz:   12000,
		HighpassHz:  200,
		Volume:      0.5,
	},
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	return NewCatalog(builtinPresets)
}

// NewCatalog builds a catalog from presets, preserving their order.
func NewCatalog(presets []Preset) *Catalog {
	c := &Catalog{presets: make([]Preset, len(presets))}
	copy(c.presets, presets)
	return c
}

// Len returns the number of presets.
func (c *Catalog) Len() int { return len(c.presets) }

// All returns a copy of the presets in catalog order.
func (c *Catalog) All() []Preset {
	out := make([]Preset, len(c.presets))
	copy(out, c.presets)
	return out
}

// At returns the preset at index i, wrapping around in both directions.
func (c *Catalog) At(i int) Preset {
	return c.presets[c.Wrap(i)]
}

// Wrap maps any integer onto a valid catalog index.
func (c *Catalog) Wrap(i int) int {
	n := len(c.presets)
	return ((i % n) + n) % n
}

// ByID looks up a preset by its exact identifier.
func (c *Catalog) ByID(id string) (Preset, bool) {
	for _, p := range c.presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Find resolves a user-typed name against preset IDs and labels,
// case-insensitively.
func (c *Catalog) Find(name string) (Preset, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range c.presets {
		if p.ID == name || strings.ToLower(p.Label) == name {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// suggestThreshold is the minimum Jaro-Winkler similarity for a suggestion.
const suggestThreshold = 0.8

// Suggest returns the preset whose ID or label is closest to name, if any
// is similar enough to be worth proposing.
func (c *Catalog) Suggest(name string) (Preset, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Preset{}, false
	}
	var (
		best      Preset
		bestScore float64
	)
	for _, p := range c.presets {
		for _, candidate := range []string{p.ID, strings.ToLower(p.Label)} {
			if s := matchr.JaroWinkler(name, candidate, false); s > bestScore {
				best, bestScore = p, s
			}
		}
	}
	if bestScore < suggestThreshold {
		return Preset{}, false
	}
	return best, true
}

// IDs returns the preset identifiers in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.presets))
	for i, p := range c.presets {
		ids[i] = p.ID
	}
	return ids
}
