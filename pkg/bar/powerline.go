package bar

import (
	"strings"
	"sync"

	"gitlab.com/tinyland/lab/pulsebar/pkg/hexcolor"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
	"gitlab.com/tinyland/lab/pulsebar/pkg/theme"
)

// Renderer paints items with cyclic powerline bands and chevron separators.
// Render has no side effects apart from initialising the dim adjuster on
// first use.
type Renderer struct {
	theme *theme.Theme

	once sync.Once
	adj  hexcolor.Adjuster
}

// NewRenderer returns a renderer for t.
func NewRenderer(t *theme.Theme) *Renderer {
	return &Renderer{theme: t}
}

func (r *Renderer) adjuster() hexcolor.Adjuster {
	r.once.Do(func() {
		r.adj = hexcolor.NewAdjuster(r.theme.Bg, r.theme.Dim)
	})
	return r.adj
}

// StartIndex returns the initial band cursor for visible items over L
// bands. Offsetting by the visible count keeps the band of the rightmost
// item fixed as items appear and disappear.
func StartIndex(visible, bands int) int {
	return bands - visible%bands
}

// Render returns a separator and a content item for every non-empty item,
// in order.
func (r *Renderer) Render(items []i3.Item) []i3.Item {
	t := r.theme
	bands := t.Powerline

	visible := make([]i3.Item, 0, len(items))
	for _, it := range items {
		if !it.IsEmpty() {
			visible = append(visible, it)
		}
	}
	if len(visible) == 0 || len(bands) == 0 {
		return []i3.Item{}
	}

	dim := t.Dim.String()
	out := make([]i3.Item, 0, 2*len(visible))
	idx := StartIndex(len(visible), len(bands))

	var prevBg *hexcolor.Color
	for _, it := range visible {
		this := bands[(idx+1)%len(bands)]
		idx++

		fg, bg := this.Fg, this.Bg
		if it.Urgent {
			fg, bg = t.Bg, t.Red
		} else if it.BackgroundColor != nil {
			bg = *it.BackgroundColor
		}

		sep := i3.NewItem(t.PowerlineSeparator.Span()).
			WithInstance(it.Instance).
			WithName(it.Name).
			WithColor(bg).
			WithMarkup(i3.MarkupPango).
			WithSeparator(false).
			WithSeparatorBlockWidth(0).
			WithData("powerline_separator", true)
		if prevBg != nil {
			sep = sep.WithBackgroundColor(*prevBg)
		}
		out = append(out, sep)

		out = append(out, r.content(it, fg, bg, dim))
		prevBg = bg.Ptr()
	}
	return out
}

func (r *Renderer) content(it i3.Item, fg, bg hexcolor.Color, dim string) i3.Item {
	t := r.theme
	urgent := it.Urgent

	text := it.FullText
	var adjusted hexcolor.Color
	dimmed := false
	if strings.Contains(text, dim) {
		adjusted = r.adjuster().Adjust(bg)
		dimmed = true
		text = strings.ReplaceAll(text, dim, adjusted.String())
	}

	color := fg
	switch {
	case urgent:
	case it.Color != nil && *it.Color == t.Dim:
		if !dimmed {
			adjusted = r.adjuster().Adjust(bg)
		}
		color = adjusted
	case it.Color != nil:
		color = *it.Color
	}

	out := it.Clone()
	out.FullText = " " + text + " "
	if out.ShortText != "" {
		out.ShortText = " " + out.ShortText + " "
	}
	return out.
		WithColor(color).
		WithBackgroundColor(bg).
		WithSeparator(false).
		WithSeparatorBlockWidth(0).
		WithUrgent(false).
		WithData("urgent", urgent)
}
