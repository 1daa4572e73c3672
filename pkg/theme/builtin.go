package theme

import "gitlab.com/tinyland/lab/pulsebar/pkg/hexcolor"

// DefaultSeparator is the powerline "left half circle/triangle" glyph from
// the nerd fonts private use area.
const DefaultSeparator = ""

var c = hexcolor.MustParse

// thRegisterBuiltins registers all built-in themes in the registry.
func thRegisterBuiltins() {
	for _, t := range []Theme{
		thDefaultTheme(),
		thGruvboxTheme(),
		thNordTheme(),
		thCatppuccinTheme(),
		thDraculaTheme(),
		thTokyoNightTheme(),
	} {
		thRegister(t)
	}
}

// thDefaultTheme returns the dark neutral theme.
func thDefaultTheme() Theme {
	return Theme{
		Name:   "default",
		Bg:     c("#1e1e1e"),
		Fg:     c("#d4d4d4"),
		Dim:    c("#6b6b6b"),
		Red:    c("#e06c75"),
		Orange: c("#d19a66"),
		Yellow: c("#e5c07b"),
		Green:  c("#4ec970"),
		Purple: c("#7c3aed"),

		PowerlineEnable: false,
		Powerline: []Band{
			{Fg: c("#d4d4d4"), Bg: c("#2a2a2a")},
			{Fg: c("#d4d4d4"), Bg: c("#353535")},
			{Fg: c("#d4d4d4"), Bg: c("#404040")},
			{Fg: c("#d4d4d4"), Bg: c("#353535")},
		},
		PowerlineSeparator: Separator{Glyph: DefaultSeparator},
	}
}

// thGruvboxTheme returns the warm retro Gruvbox theme.
func thGruvboxTheme() Theme {
	return Theme{
		Name:   "gruvbox",
		Bg:     c("#282828"),
		Fg:     c("#ebdbb2"),
		Dim:    c("#928374"),
		Red:    c("#fb4934"),
		Orange: c("#fe8019"),
		Yellow: c("#fabd2f"),
		Green:  c("#b8bb26"),
		Purple: c("#d3869b"),

		PowerlineEnable: true,
		Powerline: []Band{
			{Fg: c("#ebdbb2"), Bg: c("#3c3836")},
			{Fg: c("#ebdbb2"), Bg: c("#504945")},
			{Fg: c("#fbf1c7"), Bg: c("#665c54")},
			{Fg: c("#ebdbb2"), Bg: c("#504945")},
		},
		PowerlineSeparator: Separator{Glyph: DefaultSeparator},
	}
}

// thNordTheme returns the arctic, north-bluish Nord theme.
func thNordTheme() Theme {
	return Theme{
		Name:   "nord",
		Bg:     c("#2e3440"),
		Fg:     c("#d8dee9"),
		Dim:    c("#4c566a"),
		Red:    c("#bf616a"),
		Orange: c("#d08770"),
		Yellow: c("#ebcb8b"),
		Green:  c("#a3be8c"),
		Purple: c("#b48ead"),

		PowerlineEnable: true,
		Powerline: []Band{
			{Fg: c("#d8dee9"), Bg: c("#3b4252")},
			{Fg: c("#e5e9f0"), Bg: c("#434c5e")},
			{Fg: c("#eceff4"), Bg: c("#4c566a")},
			{Fg: c("#e5e9f0"), Bg: c("#434c5e")},
		},
		PowerlineSeparator: Separator{Glyph: DefaultSeparator},
	}
}

// thCatppuccinTheme returns the Catppuccin Mocha theme.
func thCatppuccinTheme() Theme {
	return Theme{
		Name:   "catppuccin",
		Bg:     c("#1e1e2e"),
		Fg:     c("#cdd6f4"),
		Dim:    c("#6c7086"),
		Red:    c("#f38ba8"),
		Orange: c("#fab387"),
		Yellow: c("#f9e2af"),
		Green:  c("#a6e3a1"),
		Purple: c("#cba6f7"),

		PowerlineEnable: true,
		Powerline: []Band{
			{Fg: c("#cdd6f4"), Bg: c("#313244")},
			{Fg: c("#cdd6f4"), Bg: c("#45475a")},
			{Fg: c("#cdd6f4"), Bg: c("#585b70")},
		},
		PowerlineSeparator: Separator{Glyph: DefaultSeparator},
	}
}

// thDraculaTheme returns the Dracula dark theme.
func thDraculaTheme() Theme {
	return Theme{
		Name:   "dracula",
		Bg:     c("#282a36"),
		Fg:     c("#f8f8f2"),
		Dim:    c("#6272a4"),
		Red:    c("#ff5555"),
		Orange: c("#ffb86c"),
		Yellow: c("#f1fa8c"),
		Green:  c("#50fa7b"),
		Purple: c("#bd93f9"),

		PowerlineEnable: true,
		Powerline: []Band{
			{Fg: c("#f8f8f2"), Bg: c("#343746")},
			{Fg: c("#f8f8f2"), Bg: c("#44475a")},
		},
		PowerlineSeparator: Separator{Glyph: DefaultSeparator},
	}
}

// thTokyoNightTheme returns the Tokyo Night theme.
func thTokyoNightTheme() Theme {
	return Theme{
		Name:   "tokyo-night",
		Bg:     c("#1a1b26"),
		Fg:     c("#c0caf5"),
		Dim:    c("#565f89"),
		Red:    c("#f7768e"),
		Orange: c("#ff9e64"),
		Yellow: c("#e0af68"),
		Green:  c("#9ece6a"),
		Purple: c("#bb9af7"),

		PowerlineEnable: true,
		Powerline: []Band{
			{Fg: c("#c0caf5"), Bg: c("#24283b")},
			{Fg: c("#c0caf5"), Bg: c("#292e42")},
			{Fg: c("#c0caf5"), Bg: c("#414868")},
		},
		PowerlineSeparator: Separator{Glyph: DefaultSeparator},
	}
}
