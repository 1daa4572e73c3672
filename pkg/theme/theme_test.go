package theme

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gitlab.com/tinyland/lab/pulsebar/pkg/hexcolor"
)

// --- Get / Lookup / Names ---

func TestGetDefault(t *testing.T) {
	th := Get("default")
	if th.Name != "default" {
		t.Errorf("Get(\"default\").Name = %q, want %q", th.Name, "default")
	}
	if th.Dim != hexcolor.MustParse("#6b6b6b") {
		t.Errorf("Get(\"default\").Dim = %v, want %v", th.Dim, "#6b6b6b")
	}
}

func TestGetUnknownFallsBackToDefault(t *testing.T) {
	th, ok := Lookup("unknown-theme-xyz")
	if ok {
		t.Error("Lookup of unknown theme reported found")
	}
	if th.Name != "default" {
		t.Errorf("Lookup(\"unknown\").Name = %q, want %q", th.Name, "default")
	}
}

func TestGetReturnsIndependentCopies(t *testing.T) {
	a := Get("nord")
	a.Powerline[0].Bg = hexcolor.RGB(1, 2, 3)
	a.Name = "mutated"

	b := Get("nord")
	if b.Name != "nord" {
		t.Errorf("registry name mutated: %q", b.Name)
	}
	if b.Powerline[0].Bg == hexcolor.RGB(1, 2, 3) {
		t.Error("registry powerline band mutated through a copy")
	}
}

func TestNames(t *testing.T) {
	want := []string{"catppuccin", "default", "dracula", "gruvbox", "nord", "tokyo-night"}
	if diff := cmp.Diff(want, Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestAllBuiltinsValidate(t *testing.T) {
	for _, name := range Names() {
		th := Get(name)
		t.Run(name, func(t *testing.T) {
			if err := th.Validate(); err != nil {
				t.Errorf("Validate() = %v", err)
			}
			if th.Bg == th.Dim {
				t.Error("dim colour equals background")
			}
		})
	}
}

func TestValidateRejectsEmptyPowerline(t *testing.T) {
	th := Get("default")
	th.Powerline = nil
	if err := th.Validate(); err == nil {
		t.Fatal("Validate() should reject an empty powerline")
	}
}

// --- TOML ---

func TestLoadFromTOMLExtends(t *testing.T) {
	data := []byte(`
name = "mine"
extends = "gruvbox"

[colors]
dim = "#101010"

[powerline]
enable = false
separator = ">"

[[powerline.band]]
fg = "#ffffff"
bg = "#000000"
`)
	th, err := LoadFromTOML(data)
	if err != nil {
		t.Fatalf("LoadFromTOML: %v", err)
	}
	if th.Name != "mine" {
		t.Errorf("Name = %q, want %q", th.Name, "mine")
	}
	if th.Dim != hexcolor.RGB(0x10, 0x10, 0x10) {
		t.Errorf("Dim = %v", th.Dim)
	}
	if th.Bg != Get("gruvbox").Bg {
		t.Errorf("Bg = %v, want inherited gruvbox bg", th.Bg)
	}
	if th.PowerlineEnable {
		t.Error("PowerlineEnable should be overridden to false")
	}
	if th.PowerlineSeparator.Glyph != ">" {
		t.Errorf("separator = %q", th.PowerlineSeparator.Glyph)
	}
	want := []Band{{Fg: hexcolor.RGB(0xff, 0xff, 0xff), Bg: hexcolor.RGB(0, 0, 0)}}
	if diff := cmp.Diff(want, th.Powerline); diff != "" {
		t.Errorf("bands mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromTOMLInvalidColor(t *testing.T) {
	_, err := LoadFromTOML([]byte("[colors]\nred = \"nope\"\n"))
	if err == nil {
		t.Fatal("expected error for invalid colour")
	}
	if !strings.Contains(err.Error(), "theme: parse TOML") {
		t.Errorf("error = %v", err)
	}
}

func TestSaveLoadTOML(t *testing.T) {
	orig := Get("tokyo-night")
	data, err := SaveToTOML(orig)
	if err != nil {
		t.Fatalf("SaveToTOML: %v", err)
	}
	loaded, err := LoadFromTOML(data)
	if err != nil {
		t.Fatalf("LoadFromTOML: %v\n%s", err, data)
	}
	if diff := cmp.Diff(orig, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

// --- helpers ---

func TestThreshold(t *testing.T) {
	th := Get("default")
	tests := []struct {
		pct    float64
		want   hexcolor.Color
		wantOK bool
	}{
		{95, th.Red, true},
		{80, th.Red, true},
		{79.9, th.Orange, true},
		{45, th.Yellow, true},
		{12, hexcolor.Color{}, false},
	}
	for _, tt := range tests {
		got, ok := th.Threshold(tt.pct)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Threshold(%v) = %v, %v; want %v, %v", tt.pct, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFraction(t *testing.T) {
	th := Get("default")
	if got := th.Fraction(1, 1); got != "" {
		t.Errorf("Fraction(1, 1) = %q, want empty", got)
	}
	want := `<span foreground="#6b6b6b"> (2/3)</span>`
	if got := th.Fraction(2, 3); got != want {
		t.Errorf("Fraction(2, 3) = %q, want %q", got, want)
	}
}
