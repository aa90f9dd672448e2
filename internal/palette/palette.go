// Package palette generates UI color scales from a base color.
package palette

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	// ErrUnknownPalette indicates no named palette exists.
	ErrUnknownPalette = errors.New("unknown palette")
	// ErrInvalidColor indicates the base color is not a #rrggbb hex value.
	ErrInvalidColor = errors.New("invalid color, expected #rrggbb")
)

// Steps are the shade keys of every palette, lightest first.
var Steps = []int{50, 100, 200, 300, 400, 500, 600, 700, 800, 900, 950}

// mix is how far each step is blended toward white (negative) or black
// (positive) from the base color at 500.
var mix = map[int]float64{
	50:  -0.95,
	100: -0.88,
	200: -0.74,
	300: -0.56,
	400: -0.3,
	500: 0,
	600: 0.16,
	700: 0.32,
	800: 0.48,
	900: 0.62,
	950: 0.78,
}

var named = map[string]string{
	"ocean":    "#0ea5e9",
	"forest":   "#16a34a",
	"sunset":   "#f97316",
	"berry":    "#db2777",
	"lavender": "#8b5cf6",
	"slate":    "#64748b",
	"sand":     "#d6b98c",
}

var (
	white = colorful.Color{R: 1, G: 1, B: 1}
	black = colorful.Color{R: 0, G: 0, B: 0}
)

// Shade is one step of a palette.
type Shade struct {
	Step       int    `json:"step"`
	Hex        string `json:"hex"`
	Foreground string `json:"foreground"`
}

// Palette is an ordered scale of shades around a base color.
type Palette struct {
	Name   string  `json:"name,omitempty"`
	Base   string  `json:"base"`
	Shades []Shade `json:"shades"`
}

// Names returns the named palettes in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(named))
	for n := range named {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Named generates the palette registered under name.
func Named(name string) (*Palette, error) {
	base, ok := named[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPalette, name)
	}
	p, err := Generate(base)
	if err != nil {
		return nil, err
	}
	p.Name = strings.ToLower(name)
	return p, nil
}

// Generate builds the scale for base, blending in Lab space so lightness
// changes evenly across steps.
func Generate(base string) (*Palette, error) {
	hex := strings.TrimSpace(base)
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	if len(hex) != 7 {
		return nil, ErrInvalidColor
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, ErrInvalidColor
	}

	p := &Palette{Base: c.Hex(), Shades: make([]Shade, 0, len(Steps))}
	for _, step := range Steps {
		shade := blend(c, mix[step])
		p.Shades = append(p.Shades, Shade{
			Step:       step,
			Hex:        shade.Hex(),
			Foreground: foreground(shade).Hex(),
		})
	}
	return p, nil
}

// Shade returns the hex value of step, or "" when the step is not part of the scale.
func (p *Palette) Shade(step int) string {
	for _, s := range p.Shades {
		if s.Step == step {
			return s.Hex
		}
	}
	return ""
}

func blend(c colorful.Color, amount float64) colorful.Color {
	switch {
	case amount < 0:
		return c.BlendLab(white, -amount).Clamped()
	case amount > 0:
		return c.BlendLab(black, amount).Clamped()
	default:
		return c
	}
}

// foreground picks black or white text, whichever has the higher WCAG contrast.
func foreground(bg colorful.Color) colorful.Color {
	if ContrastRatio(bg, black) >= ContrastRatio(bg, white) {
		return black
	}
	return white
}

// ContrastRatio returns the WCAG 2 contrast ratio between two colors.
func ContrastRatio(a, b colorful.Color) float64 {
	la, lb := luminance(a), luminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

func luminance(c colorful.Color) float64 {
	r, g, b := c.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}
