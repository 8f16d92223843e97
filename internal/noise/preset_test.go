package noise

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func TestDefaultCatalogOrder(t *testing.T) {
	is := is.New(t)

	c := DefaultCatalog()
	is.Equal(c.Len(), 5)
	is.Equal(c.IDs(), []string{"deep-rumble", "soft-breeze", "smooth-brown", "wind-tunnel", "bright-hiss"})
}

func TestCatalogSoftBreeze(t *testing.T) {
	is := is.New(t)

	p, ok := DefaultCatalog().ByID("soft-breeze")
	is.True(ok)
	is.Equal(p.Color, Pink)
	is.Equal(p.LowpassHz, 1500)
	is.Equal(p.HighpassHz, 0)
	is.Equal(p.Volume, 0.3)
}

func TestCatalogWrap(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	tests := []struct {
		in, want int
	}{
		{0, 0}, {4, 4}, {5, 0}, {-1, 4}, {-6, 4}, {12, 2},
	}
	for _, tc := range tests {
		if got := c.Wrap(tc.in); got != tc.want {
			t.Errorf("Wrap(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
	if got := c.At(-1).ID; got != "bright-hiss" {
		t.Errorf("At(-1) = %q, want bright-hiss", got)
	}
}

func TestCatalogFind(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"soft-breeze", "soft-breeze", false},
		{"Soft Breeze", "soft-breeze", false},
		{"  WIND-TUNNEL ", "wind-tunnel", false},
		{"bright hiss", "bright-hiss", false},
		{"thunder", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, err := c.Find(tc.name)
			if tc.wantErr {
				if !errors.Is(err, ErrUnknownPreset) {
					t.Fatalf("Find(%q) error = %v, want ErrUnknownPreset", tc.name, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Find(%q): %v", tc.name, err)
			}
			if p.ID != tc.want {
				t.Errorf("Find(%q) = %q, want %q", tc.name, p.ID, tc.want)
			}
		})
	}
}

func TestCatalogSuggest(t *testing.T) {
	is := is.New(t)

	c := DefaultCatalog()
	p, ok := c.Suggest("soft-breez")
	is.True(ok)
	is.Equal(p.ID, "soft-breeze")

	_, ok = c.Suggest("xyzzy")
	is.True(!ok) // nothing close enough

	_, ok = c.Suggest("")
	is.True(!ok)
}

func TestCatalogAllIsCopy(t *testing.T) {
	is := is.New(t)

	c := DefaultCatalog()
	all := c.All()
	all[0].Label = "changed"
	is.Equal(c.At(0).Label, "Deep Rumble") // catalog is immutable from the outside
}
