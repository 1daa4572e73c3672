package theme

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"gitlab.com/tinyland/lab/pulsebar/pkg/hexcolor"
)

// thTOMLTheme is the TOML-serializable representation of a Theme.
type thTOMLTheme struct {
	Name      string          `toml:"name"`
	Extends   string          `toml:"extends,omitempty"`
	Colors    thTOMLColors    `toml:"colors"`
	Powerline thTOMLPowerline `toml:"powerline"`
}

type thTOMLColors struct {
	Bg     *hexcolor.Color `toml:"bg"`
	Fg     *hexcolor.Color `toml:"fg"`
	Dim    *hexcolor.Color `toml:"dim"`
	Red    *hexcolor.Color `toml:"red"`
	Orange *hexcolor.Color `toml:"orange"`
	Yellow *hexcolor.Color `toml:"yellow"`
	Green  *hexcolor.Color `toml:"green"`
	Purple *hexcolor.Color `toml:"purple"`
}

type thTOMLPowerline struct {
	Enable        *bool  `toml:"enable"`
	Separator     string `toml:"separator,omitempty"`
	SeparatorFont string `toml:"separator_font,omitempty"`
	Bands         []Band `toml:"band"`
}

// LoadFromTOML parses a TOML theme definition. Colours that are not set are
// inherited from the builtin named by "extends" (or "default").
func LoadFromTOML(data []byte) (*Theme, error) {
	var tt thTOMLTheme
	if _, err := toml.Decode(string(data), &tt); err != nil {
		return nil, fmt.Errorf("theme: parse TOML: %w", err)
	}

	base := Get(tt.Extends)
	if tt.Name != "" {
		base.Name = tt.Name
	}

	for _, f := range []struct {
		src *hexcolor.Color
		dst *hexcolor.Color
	}{
		{tt.Colors.Bg, &base.Bg},
		{tt.Colors.Fg, &base.Fg},
		{tt.Colors.Dim, &base.Dim},
		{tt.Colors.Red, &base.Red},
		{tt.Colors.Orange, &base.Orange},
		{tt.Colors.Yellow, &base.Yellow},
		{tt.Colors.Green, &base.Green},
		{tt.Colors.Purple, &base.Purple},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}

	if tt.Powerline.Enable != nil {
		base.PowerlineEnable = *tt.Powerline.Enable
	}
	if tt.Powerline.Separator != "" {
		base.PowerlineSeparator.Glyph = tt.Powerline.Separator
	}
	if tt.Powerline.SeparatorFont != "" {
		base.PowerlineSeparator.Font = tt.Powerline.SeparatorFont
	}
	if len(tt.Powerline.Bands) > 0 {
		base.Powerline = tt.Powerline.Bands
	}

	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("theme: %w", err)
	}
	return base, nil
}

// LoadFile reads a TOML theme from disk.
func LoadFile(path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("theme: read %s: %w", path, err)
	}
	return LoadFromTOML(data)
}

// SaveToTOML serializes a theme to TOML bytes. The output is complete and
// does not rely on "extends".
func SaveToTOML(t *Theme) ([]byte, error) {
	enable := t.PowerlineEnable
	tt := thTOMLTheme{
		Name: t.Name,
		Colors: thTOMLColors{
			Bg:     t.Bg.Ptr(),
			Fg:     t.Fg.Ptr(),
			Dim:    t.Dim.Ptr(),
			Red:    t.Red.Ptr(),
			Orange: t.Orange.Ptr(),
			Yellow: t.Yellow.Ptr(),
			Green:  t.Green.Ptr(),
			Purple: t.Purple.Ptr(),
		},
		Powerline: thTOMLPowerline{
			Enable:        &enable,
			Separator:     t.PowerlineSeparator.Glyph,
			SeparatorFont: t.PowerlineSeparator.Font,
			Bands:         t.Powerline,
		},
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(tt); err != nil {
		return nil, fmt.Errorf("theme: encode TOML: %w", err)
	}
	return buf.Bytes(), nil
}
