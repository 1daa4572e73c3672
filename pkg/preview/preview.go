// Package preview renders bar frames as a coloured line in a terminal, for
// trying out a configuration without a running i3bar or swaybar.
package preview

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/term"
	"github.com/muesli/termenv"

	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
	"gitlab.com/tinyland/lab/pulsebar/pkg/theme"
)

// Options configures a Writer.
type Options struct {
	// Width truncates the line. Zero means the terminal width, or no limit
	// when the output is not a terminal.
	Width int

	// Inline redraws a single line in place instead of printing one line
	// per frame.
	Inline bool

	// Profile overrides colour detection.
	Profile *termenv.Profile
}

// Writer implements engine.FrameWriter for a terminal.
type Writer struct {
	mu       sync.Mutex
	w        io.Writer
	theme    *theme.Theme
	renderer *lipgloss.Renderer
	opts     Options
}

// New returns a preview writer for w.
func New(w io.Writer, t *theme.Theme, opts Options) *Writer {
	r := lipgloss.NewRenderer(w)
	if opts.Profile != nil {
		r.SetColorProfile(*opts.Profile)
	}
	if opts.Width == 0 {
		if f, ok := w.(*os.File); ok {
			if width, _, err := term.GetSize(f.Fd()); err == nil {
				opts.Width = width
			}
		}
	}
	return &Writer{w: w, theme: t, renderer: r, opts: opts}
}

// WriteFrame decodes an i3bar frame and draws it.
func (p *Writer) WriteFrame(frame []byte) error {
	var items []i3.Item
	if err := json.Unmarshal(frame, &items); err != nil {
		return fmt.Errorf("preview: decode frame: %w", err)
	}
	line := p.Render(items)

	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.opts.Inline {
		_, err = io.WriteString(p.w, "\r"+ansi.EraseEntireLine+line)
	} else {
		_, err = io.WriteString(p.w, line+"\n")
	}
	return err
}

// Render returns items as one styled line.
func (p *Writer) Render(items []i3.Item) string {
	var b strings.Builder
	for i, it := range items {
		style := p.renderer.NewStyle().Foreground(lipgloss.Color(p.theme.Fg.String()))
		if it.Color != nil {
			style = style.Foreground(lipgloss.Color(it.Color.String()))
		}
		if it.BackgroundColor != nil {
			style = style.Background(lipgloss.Color(it.BackgroundColor.String()))
		}
		if it.Urgent {
			style = style.Bold(true)
		}

		text := it.FullText
		if it.Markup == i3.MarkupPango {
			text = StripMarkup(text)
		}
		b.WriteString(style.Render(text))

		if i < len(items)-1 && nativeSeparator(it) {
			sep := p.renderer.NewStyle().Foreground(lipgloss.Color(p.theme.Dim.String()))
			b.WriteString(sep.Render(" | "))
		}
	}

	line := b.String()
	if p.opts.Width > 0 {
		line = ansi.Truncate(line, p.opts.Width, "…")
	}
	return line
}

func nativeSeparator(it i3.Item) bool {
	return it.Separator == nil || *it.Separator
}

var pangoTag = regexp.MustCompile(`<[^>]*>`)

// StripMarkup removes pango tags and decodes entities.
func StripMarkup(s string) string {
	return html.UnescapeString(pangoTag.ReplaceAllString(s, ""))
}

// Width returns the visible width of a rendered line.
func Width(line string) int {
	return ansi.StringWidth(line)
}
