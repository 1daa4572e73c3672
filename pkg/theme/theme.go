// Package theme defines the bar palette and powerline configuration. A Theme
// is loaded once at startup (builtin or TOML file) and then shared read-only
// by every item task.
package theme

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"gitlab.com/tinyland/lab/pulsebar/pkg/hexcolor"
)

// Band is one foreground/background pair of the cyclic powerline palette.
type Band struct {
	Fg hexcolor.Color `toml:"fg" yaml:"fg"`
	Bg hexcolor.Color `toml:"bg" yaml:"bg"`
}

// Separator is the glyph drawn between powerline segments.
type Separator struct {
	Glyph string
	// Font optionally names the font family containing Glyph.
	Font string
}

// Span returns the separator as pango markup.
func (s Separator) Span() string {
	if s.Font == "" {
		return s.Glyph
	}
	return fmt.Sprintf(`<span font_family="%s">%s</span>`, s.Font, s.Glyph)
}

// Theme is the complete colour configuration for the bar. Callers must
// treat a *Theme as immutable once it has been handed to the engine.
type Theme struct {
	Name string

	Bg     hexcolor.Color
	Fg     hexcolor.Color
	Dim    hexcolor.Color
	Red    hexcolor.Color
	Orange hexcolor.Color
	Yellow hexcolor.Color
	Green  hexcolor.Color
	Purple hexcolor.Color

	PowerlineEnable    bool
	Powerline          []Band
	PowerlineSeparator Separator
}

// Validate reports whether the theme can be rendered.
func (t *Theme) Validate() error {
	if len(t.Powerline) == 0 {
		return fmt.Errorf("theme %q: powerline needs at least one band", t.Name)
	}
	if t.PowerlineEnable && t.PowerlineSeparator.Glyph == "" {
		return fmt.Errorf("theme %q: powerline separator glyph is empty", t.Name)
	}
	return nil
}

// Clone returns a deep copy, so overrides never touch a registered theme.
func (t Theme) Clone() *Theme {
	t.Powerline = append([]Band(nil), t.Powerline...)
	return &t
}

var (
	mu       sync.RWMutex
	registry = map[string]Theme{}
)

func init() {
	thRegisterBuiltins()
}

// Get returns a copy of the named builtin theme, falling back to "default".
func Get(name string) *Theme {
	t, _ := Lookup(name)
	return t
}

// Lookup is like Get but reports whether name was found.
func Lookup(name string) (*Theme, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if t, ok := registry[strings.ToLower(name)]; ok {
		return t.Clone(), true
	}
	t := registry["default"]
	return t.Clone(), false
}

// Names returns all builtin theme names sorted alphabetically.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// thRegister adds a theme to the registry under its lowercase name.
func thRegister(t Theme) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(t.Name)] = t
}
