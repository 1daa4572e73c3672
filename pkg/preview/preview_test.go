package preview

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muesli/termenv"

	"gitlab.com/tinyland/lab/pulsebar/pkg/bar"
	"gitlab.com/tinyland/lab/pulsebar/pkg/hexcolor"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
	"gitlab.com/tinyland/lab/pulsebar/pkg/theme"
)

func newWriter(buf *bytes.Buffer, opts Options) *Writer {
	p := termenv.Ascii
	if opts.Profile == nil {
		opts.Profile = &p
	}
	return New(buf, theme.Get("default"), opts)
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{`<span foreground="#ff0000">hot</span> 90%`, "hot 90%"},
		{"a &amp; b &lt;c&gt;", "a & b <c>"},
		{"<b><i>x</i></b>", "x"},
	}
	for _, tt := range tests {
		if got := StripMarkup(tt.in); got != tt.want {
			t.Errorf("StripMarkup(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderPlain(t *testing.T) {
	var buf bytes.Buffer
	w := newWriter(&buf, Options{})

	items := []i3.Item{
		i3.NewItem("cpu 5%"),
		i3.NewItem(`<span foreground="#00ff00">eth0</span>`).WithMarkup(i3.MarkupPango),
		i3.NewItem("12:00"),
	}
	if got := w.Render(items); got != "cpu 5% | eth0 | 12:00" {
		t.Errorf("Render = %q", got)
	}
}

func TestRenderSuppressedSeparator(t *testing.T) {
	var buf bytes.Buffer
	w := newWriter(&buf, Options{})
	items := []i3.Item{i3.NewItem("a").WithSeparator(false), i3.NewItem("b")}
	if got := w.Render(items); got != "ab" {
		t.Errorf("Render = %q, want ab", got)
	}
}

func TestRenderTruncates(t *testing.T) {
	var buf bytes.Buffer
	w := newWriter(&buf, Options{Width: 8})
	got := w.Render([]i3.Item{i3.NewItem("a very long segment")})
	if Width(got) > 8 || !strings.HasSuffix(got, "…") {
		t.Errorf("Render = %q (width %d)", got, Width(got))
	}
}

func TestRenderColours(t *testing.T) {
	var buf bytes.Buffer
	p := termenv.TrueColor
	w := New(&buf, theme.Get("default"), Options{Profile: &p})
	got := w.Render([]i3.Item{i3.NewItem("x").WithColor(hexcolor.RGB(255, 0, 0))})
	if !strings.Contains(got, "38;2;255;0;0") {
		t.Errorf("Render = %q, want truecolor red foreground", got)
	}
}

func TestWriteFrame(t *testing.T) {
	th := theme.Get("default")
	th.PowerlineEnable = false
	b := bar.New(2)
	b.Set(0, i3.NewItem("A"))
	b.Set(1, i3.NewItem("B"))
	frame, err := b.Serialize(th)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	w := newWriter(&buf, Options{})
	if err := w.WriteFrame(frame); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if buf.String() != "A | B\n" {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	w = newWriter(&buf, Options{Inline: true})
	if err := w.WriteFrame(frame); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "\r") || !strings.HasSuffix(buf.String(), "A | B") {
		t.Errorf("inline output = %q", buf.String())
	}
}

func TestWriteFrameBadJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := newWriter(&buf, Options{}).WriteFrame([]byte("{")); err == nil {
		t.Error("WriteFrame with bad JSON returned nil error")
	}
}
