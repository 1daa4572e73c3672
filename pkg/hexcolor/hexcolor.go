// Package hexcolor provides the RGB colour value used throughout pulsebar.
// Colours travel over the i3bar protocol as "#rrggbb" strings and appear
// verbatim inside pango markup, so the textual form is canonical: String
// always yields lowercase "#rrggbb".
package hexcolor

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a 24-bit RGB colour.
type Color struct {
	R, G, B uint8
}

// RGB returns the colour with the given channels.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// Parse parses "#rgb" or "#rrggbb" (the leading '#' is optional).
func Parse(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return Color{}, fmt.Errorf("hexcolor: invalid colour %q (expected #rgb or #rrggbb)", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("hexcolor: invalid colour %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// MustParse is like Parse but panics on error. Use it only for constants.
func MustParse(s string) Color {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns the colour as lowercase "#rrggbb".
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Ptr returns a pointer to a copy of c, for optional colour fields.
func (c Color) Ptr() *Color {
	return &c
}
